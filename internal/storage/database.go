package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"im-messenger/internal/config"
)

// BuildDSN 根据配置拼接 postgres 连接串，密码为空时省略。
func BuildDSN(cfg config.DatabaseConfig) string {
	var dsnParts []string
	dsnParts = append(dsnParts, fmt.Sprintf("host=%s", cfg.Host))
	dsnParts = append(dsnParts, fmt.Sprintf("port=%d", cfg.Port))
	dsnParts = append(dsnParts, fmt.Sprintf("user=%s", cfg.User))
	dsnParts = append(dsnParts, fmt.Sprintf("dbname=%s", cfg.DBName))
	if cfg.Password != "" {
		dsnParts = append(dsnParts, fmt.Sprintf("password=%s", cfg.Password))
	}
	dsnParts = append(dsnParts, fmt.Sprintf("sslmode=%s", cfg.SSLMode))
	return strings.Join(dsnParts, " ")
}

// InitDB 使用给定配置打开快照数据库连接。
func InitDB(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case "postgres":
		dialector = postgres.Open(BuildDSN(cfg))
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	gormLogger := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// AutoMigrateTables 为所有快照表执行 GORM 自动迁移。
func AutoMigrateTables(db *gorm.DB, log *zap.Logger) error {
	log.Info("开始数据库表结构迁移...")
	err := db.AutoMigrate(
		&ConversationRecord{},
		&ParticipantRecord{},
		&RoomRecord{},
		&MessageRecord{},
		&ReactionRecord{},
	)
	if err != nil {
		log.Error("数据库迁移失败", zap.Error(err))
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	log.Info("数据库迁移完成。")
	return nil
}

// Repositories 聚合了服务层需要的三类快照来源。
type Repositories struct {
	Conversations ConversationRepository
	Rooms         RoomRepository
	Messages      MessageRepository
}

// NewGormRepositories 基于同一个数据库连接构建全部仓库。
func NewGormRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Conversations: NewGormConversationRepository(db),
		Rooms:         NewGormRoomRepository(db),
		Messages:      NewGormMessageRepository(db),
	}
}

// ImportFixtures 将一组快照写入目标仓库，用于初始化空数据库。
func ImportFixtures(ctx context.Context, dst Repositories, fixtures *FixtureRepository) error {
	conversations, _ := fixtures.ListConversations(ctx)
	for _, c := range conversations {
		if err := dst.Conversations.SaveConversation(ctx, c); err != nil {
			return err
		}
	}
	rooms, _ := fixtures.ListRooms(ctx)
	for _, r := range rooms {
		if err := dst.Rooms.SaveRoom(ctx, r); err != nil {
			return err
		}
	}
	for _, targetID := range fixtures.Targets() {
		messages, _ := fixtures.ListMessages(ctx, targetID, 0)
		for _, m := range messages {
			if err := dst.Messages.SaveMessage(ctx, m); err != nil {
				return err
			}
		}
	}
	return nil
}
