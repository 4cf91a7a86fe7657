package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"im-messenger/internal/auth"
	"im-messenger/internal/config"
	"im-messenger/internal/logging"
	"im-messenger/internal/storage"
)

func usage() {
	fmt.Println("使用方法:")
	fmt.Println("  ./admin token                               - 为本地用户签发身份令牌")
	fmt.Println("  ./admin migrate                             - 执行数据库表结构迁移")
	fmt.Println("  ./admin seed                                - 迁移并写入演示数据")
	fmt.Println("  ./admin list-participants <conversationID>  - 列出会话的所有参与者")
}

func main() {
	// 简单命令行参数解析
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法加载配置: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.LogLevel, cfg.AppName+"-admin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法初始化日志: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// 执行指定的命令
	switch os.Args[1] {
	case "token":
		issueToken(cfg.Identity, log)

	case "migrate":
		db := openDB(cfg.Database, log)
		if err := storage.AutoMigrateTables(db, log); err != nil {
			log.Fatal("迁移失败", zap.Error(err))
		}

	case "seed":
		db := openDB(cfg.Database, log)
		if err := storage.AutoMigrateTables(db, log); err != nil {
			log.Fatal("迁移失败", zap.Error(err))
		}
		fixtures := storage.DefaultFixtures(cfg.Identity.LocalUserID, time.Now())
		if err := storage.ImportFixtures(ctx, storage.NewGormRepositories(db), fixtures); err != nil {
			log.Fatal("写入演示数据失败", zap.Error(err))
		}
		fmt.Println("演示数据已写入。")

	case "list-participants":
		if len(os.Args) < 3 {
			log.Fatal("需要指定会话ID")
		}
		db := openDB(cfg.Database, log)
		listParticipants(ctx, storage.NewGormConversationRepository(db), os.Args[2], log)

	default:
		usage()
		os.Exit(1)
	}
}

func openDB(cfg config.DatabaseConfig, log *zap.Logger) *gorm.DB {
	db, err := storage.InitDB(cfg, log)
	if err != nil {
		log.Fatal("无法连接数据库", zap.Error(err))
	}
	return db
}

func issueToken(cfg config.IdentityConfig, log *zap.Logger) {
	if cfg.TokenSecret == "" {
		log.Fatal("未配置 IDENTITY.TOKEN_SECRET")
	}
	token, err := auth.GenerateToken(cfg.LocalUserID, cfg.LocalDisplayName, cfg.TokenSecret, cfg.TokenExpiry)
	if err != nil {
		log.Fatal("签发令牌失败", zap.Error(err))
	}
	fmt.Println(token)
}

func listParticipants(ctx context.Context, repo storage.ConversationRepository, conversationID string, log *zap.Logger) {
	conversations, err := repo.ListConversations(ctx)
	if err != nil {
		log.Fatal("无法读取会话", zap.Error(err))
	}
	for _, c := range conversations {
		if c.ID != conversationID {
			continue
		}
		fmt.Printf("会话 %s (%s) 的参与者:\n", c.DisplayName(), c.Type)
		for _, p := range c.Participants {
			online := "离线"
			if p.IsOnline {
				online = "在线"
			}
			fmt.Printf("- %s @%s 角色:%s %s\n", p.Name(), p.Handle, p.Role, online)
		}
		return
	}
	fmt.Printf("会话 %s 不存在\n", conversationID)
}
