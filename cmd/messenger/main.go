package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"im-messenger/internal/auth"
	"im-messenger/internal/config"
	"im-messenger/internal/handlers/apiserver"
	"im-messenger/internal/handlers/chatserver"
	appKafka "im-messenger/internal/kafka"
	kafkahandlers "im-messenger/internal/kafka/handlers"
	"im-messenger/internal/logging"
	"im-messenger/internal/middleware"
	"im-messenger/internal/models"
	appRedis "im-messenger/internal/redis"
	"im-messenger/internal/services"
	"im-messenger/internal/storage"
	ws "im-messenger/internal/websocket"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法加载配置: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel, cfg.AppName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法初始化日志: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 2. 确定本地身份
	identity, err := auth.ResolveIdentity(cfg.Identity)
	if err != nil {
		log.Fatal("无法确定本地用户", zap.Error(err))
	}
	log.Info("本地用户", zap.String("userId", identity.UserID), zap.String("displayName", identity.DisplayName))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. 快照来源
	repos, closeRepos, err := openRepositories(ctx, cfg, identity, log)
	if err != nil {
		log.Fatal("无法初始化快照来源", zap.String("source", cfg.Feed.Source), zap.Error(err))
	}
	defer closeRepos()

	// 4. 输入状态存储
	typingStore, closeTyping, err := openTypingStore(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("无法初始化输入状态存储", zap.Error(err))
	}
	defer closeTyping()

	// 5. 出站发送
	sender, closeSender, err := openSender(cfg.Kafka, log)
	if err != nil {
		log.Fatal("无法初始化出站发送", zap.Error(err))
	}
	defer closeSender()

	// 6. Store 与服务
	store := services.NewStore(identity.UserID, services.WithLocalDisplayName(identity.DisplayName))
	conversationService := services.NewConversationService(store, repos.Conversations, log)
	roomService := services.NewRoomService(store, repos.Rooms, log)
	messageService := services.NewMessageService(store, repos.Messages, log)
	composerService := services.NewComposerService(store, messageService, sender, log)
	typingService := services.NewTypingService(store, typingStore, cfg.Typing.Expiry, log)
	feedService := services.NewFeedService(store, conversationService, roomService, messageService, typingService, log)

	if err := loadSnapshot(ctx, cfg.Feed, conversationService, roomService, messageService, log); err != nil {
		log.Fatal("加载快照失败", zap.Error(err))
	}

	// 7. 后台任务
	hub := ws.NewHub(log.Named("hub"))
	unsubscribe := store.Subscribe(hub.Publish)
	defer unsubscribe()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		services.RunTypingSweeper(ctx, typingService, cfg.Typing.SweepInterval, log)
	}()

	if cfg.Kafka.Enabled {
		consumer, err := appKafka.NewConfluentKafkaConsumer(cfg.Kafka, log)
		if err != nil {
			log.Fatal("无法创建 Kafka feed 消费者", zap.Error(err))
		}
		logic := kafkahandlers.NewFeedConsumerLogic(feedService, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer consumer.Close()
			topics := []string{cfg.Kafka.FeedTopic}
			if err := consumer.Consume(ctx, topics, cfg.Kafka.ConsumerGroup, logic.HandleFeedEvent); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Kafka feed 消费者退出", zap.Error(err))
			}
		}()
	}

	// 8. 路由
	local := models.Participant{ID: identity.UserID, DisplayName: identity.DisplayName, IsOnline: true}
	dispatcher := chatserver.NewCommandDispatcher(composerService, messageService, typingService, local)
	wsHandler := chatserver.NewWebSocketHandler(hub, dispatcher, cfg.WebSocket, log)

	var authMW apiserver.Middleware
	if cfg.Identity.TokenSecret != "" {
		authMW = middleware.NewGuard(cfg.Identity.TokenSecret, identity.UserID, log).AuthMiddleware
	} else {
		log.Warn("未配置 TOKEN_SECRET，API 不做鉴权")
	}

	r := mux.NewRouter()
	r.Use(mux.MiddlewareFunc(middleware.RequestLogger(log)))
	apiserver.RegisterRoutes(r, apiserver.Services{
		Conversations: conversationService,
		Rooms:         roomService,
		Messages:      messageService,
		Composer:      composerService,
		Typing:        typingService,
	}, authMW)

	var wsEndpoint http.Handler = http.HandlerFunc(wsHandler.ServeWS)
	if authMW != nil {
		wsEndpoint = authMW(wsEndpoint)
	}
	r.Handle(cfg.Server.WebSocketPath, wsEndpoint).Methods(http.MethodGet)

	handler := apiserver.WithCORS(r, cfg.Server.CORS)
	handler = handlers.RecoveryHandler(handlers.RecoveryLogger(zap.NewStdLog(log)))(handler)

	// 9. 启动 HTTP 服务器
	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:           serverAddr,
		Handler:        handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP 服务器启动", zap.String("addr", serverAddr), zap.String("websocketPath", cfg.Server.WebSocketPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP 服务器启动失败", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("服务器准备关闭...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP 服务器关闭失败", zap.Error(err))
	}

	cancel()
	wg.Wait()
	log.Info("服务器已优雅关闭。")
}

// openRepositories 按 FEED.SOURCE 选择快照来源。
func openRepositories(ctx context.Context, cfg config.Config, identity auth.Identity, log *zap.Logger) (storage.Repositories, func(), error) {
	fixtures := storage.DefaultFixtures(identity.UserID, time.Now())

	switch cfg.Feed.Source {
	case "", "mock":
		log.Info("使用内置演示数据")
		return storage.Repositories{Conversations: fixtures, Rooms: fixtures, Messages: fixtures}, func() {}, nil

	case "postgres":
		db, err := storage.InitDB(cfg.Database, log)
		if err != nil {
			return storage.Repositories{}, nil, err
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
		if err := storage.AutoMigrateTables(db, log); err != nil {
			closeDB()
			return storage.Repositories{}, nil, err
		}
		repos := storage.NewGormRepositories(db)
		if cfg.Feed.SeedDatabase {
			existing, err := repos.Conversations.ListConversations(ctx)
			if err != nil {
				closeDB()
				return storage.Repositories{}, nil, err
			}
			if len(existing) == 0 {
				if err := storage.ImportFixtures(ctx, repos, fixtures); err != nil {
					closeDB()
					return storage.Repositories{}, nil, fmt.Errorf("写入演示数据失败: %w", err)
				}
				log.Info("已向空数据库写入演示数据")
			}
		}
		return repos, closeDB, nil

	default:
		return storage.Repositories{}, nil, fmt.Errorf("未知的 FEED.SOURCE: %q", cfg.Feed.Source)
	}
}

// openTypingStore 启用 Redis 时使用 TTL 键保存输入状态，否则使用内存。
func openTypingStore(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (services.TypingStore, func(), error) {
	if !cfg.Enabled {
		return services.NewMemoryTypingStore(), func() {}, nil
	}
	client, err := appRedis.NewClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	log.Info("输入状态存储使用 Redis", zap.String("addr", cfg.Addr))
	return appRedis.NewRedisTypingStore(client), func() { client.Close() }, nil
}

// openSender 启用 Kafka 时把消息写入出站 topic，否则立即确认。
func openSender(cfg config.KafkaConfig, log *zap.Logger) (services.Sender, func(), error) {
	if !cfg.Enabled {
		loopback := services.SenderFunc(func(ctx context.Context, m models.Message) error {
			log.Debug("loopback send", zap.String("messageId", m.ID), zap.String("targetId", m.TargetID))
			return nil
		})
		return loopback, func() {}, nil
	}
	producer, err := appKafka.NewConfluentKafkaProducer(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return appKafka.NewOutboundSender(producer, cfg.OutboundTopic, 0, log), producer.Close, nil
}

// loadSnapshot 加载会话和频道，再为每个目标加载最近的消息。
func loadSnapshot(ctx context.Context, cfg config.FeedConfig, conversations services.ConversationService, rooms services.RoomService, messages services.MessageService, log *zap.Logger) error {
	if err := conversations.Load(ctx); err != nil {
		return err
	}
	if err := rooms.Load(ctx); err != nil {
		return err
	}

	var targets []string
	for _, filter := range []models.ConversationFilter{models.FilterAll, models.FilterArchived} {
		for _, c := range conversations.List(filter, "").All() {
			targets = append(targets, c.ID)
		}
	}
	for _, room := range rooms.SearchRooms("") {
		targets = append(targets, room.ID)
	}
	for _, id := range targets {
		if _, err := messages.Load(ctx, id, cfg.MessageHistory); err != nil {
			return err
		}
	}
	log.Info("快照已加载", zap.Int("targets", len(targets)))
	return nil
}
