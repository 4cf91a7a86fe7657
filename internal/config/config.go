package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// IdentityConfig 描述本地用户身份。TOKEN 非空时在启动时校验其签名并以其中的用户 ID 为准。
type IdentityConfig struct {
	LocalUserID      string        `mapstructure:"LOCAL_USER_ID"`
	LocalDisplayName string        `mapstructure:"LOCAL_DISPLAY_NAME"`
	TokenSecret      string        `mapstructure:"TOKEN_SECRET"`
	Token            string        `mapstructure:"TOKEN"`
	TokenExpiry      time.Duration `mapstructure:"TOKEN_EXPIRY"`
}

// ServerConfig 保存本地 HTTP/WebSocket 服务的配置。
type ServerConfig struct {
	Host           string        `mapstructure:"HOST"`
	Port           string        `mapstructure:"PORT"`
	WebSocketPath  string        `mapstructure:"WEBSOCKET_PATH"`
	ReadTimeout    time.Duration `mapstructure:"READ_TIMEOUT"`
	WriteTimeout   time.Duration `mapstructure:"WRITE_TIMEOUT"`
	MaxHeaderBytes int           `mapstructure:"MAX_HEADER_BYTES"`
	CORS           CORSConfig    `mapstructure:"CORS"`
}

// CORSConfig holds configuration for CORS.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"ALLOWED_ORIGINS"`
	AllowedMethods   []string `mapstructure:"ALLOWED_METHODS"`
	AllowedHeaders   []string `mapstructure:"ALLOWED_HEADERS"`
	ExposedHeaders   []string `mapstructure:"EXPOSED_HEADERS"`
	AllowCredentials bool     `mapstructure:"ALLOW_CREDENTIALS"`
	MaxAge           int      `mapstructure:"MAX_AGE"`
}

// FeedConfig 选择初始快照的来源: "mock" 使用内置数据，"postgres" 使用 DATABASE。
type FeedConfig struct {
	Source         string `mapstructure:"SOURCE"`
	SeedDatabase   bool   `mapstructure:"SEED_DATABASE"`
	MessageHistory int    `mapstructure:"MESSAGE_HISTORY"`
}

// KafkaConfig holds configuration for Kafka.
type KafkaConfig struct {
	Enabled       bool     `mapstructure:"ENABLED"`
	Brokers       []string `mapstructure:"BROKERS"`
	ClientID      string   `mapstructure:"CLIENT_ID"`
	FeedTopic     string   `mapstructure:"FEED_TOPIC"`     // 上游推送的 feed 事件
	OutboundTopic string   `mapstructure:"OUTBOUND_TOPIC"` // 本地用户发出的消息
	ConsumerGroup string   `mapstructure:"CONSUMER_GROUP"`
	Protocol      string   `mapstructure:"PROTOCOL"`
}

// DatabaseConfig holds configuration for the database.
type DatabaseConfig struct {
	Type     string `mapstructure:"TYPE"`
	Host     string `mapstructure:"HOST"`
	Port     int    `mapstructure:"PORT"`
	User     string `mapstructure:"USER"`
	Password string `mapstructure:"PASSWORD"`
	DBName   string `mapstructure:"DB_NAME"`
	SSLMode  string `mapstructure:"SSL_MODE"`
}

// RedisConfig holds configuration for Redis.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"ENABLED"`
	Addr     string `mapstructure:"ADDR"`
	Password string `mapstructure:"PASSWORD"`
	DB       int    `mapstructure:"DB"`
}

// TypingConfig 控制输入状态的过期与清理周期。
type TypingConfig struct {
	Expiry        time.Duration `mapstructure:"EXPIRY"`
	SweepInterval time.Duration `mapstructure:"SWEEP_INTERVAL"`
}

// WebSocketConfig holds configuration for WebSocket connections.
type WebSocketConfig struct {
	WriteWaitSeconds    int `mapstructure:"WRITE_WAIT_SECONDS"`
	PongWaitSeconds     int `mapstructure:"PONG_WAIT_SECONDS"`
	PingPeriodSeconds   int `mapstructure:"PING_PERIOD_SECONDS"`
	MaxMessageSizeBytes int `mapstructure:"MAX_MESSAGE_SIZE_BYTES"`
}

// Config holds all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	AppName   string          `mapstructure:"APP_NAME"`
	LogLevel  string          `mapstructure:"LOG_LEVEL"`
	Identity  IdentityConfig  `mapstructure:"IDENTITY"`
	Server    ServerConfig    `mapstructure:"SERVER"`
	Feed      FeedConfig      `mapstructure:"FEED"`
	Kafka     KafkaConfig     `mapstructure:"KAFKA"`
	Database  DatabaseConfig  `mapstructure:"DATABASE"`
	Redis     RedisConfig     `mapstructure:"REDIS"`
	Typing    TypingConfig    `mapstructure:"TYPING"`
	WebSocket WebSocketConfig `mapstructure:"WEBSOCKET"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()

	v.SetDefault("APP_NAME", "IM-Messenger")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("IDENTITY.LOCAL_USER_ID", "u-me")
	v.SetDefault("IDENTITY.LOCAL_DISPLAY_NAME", "You")
	v.SetDefault("IDENTITY.TOKEN_SECRET", "a_very_secret_key_that_should_be_changed")
	v.SetDefault("IDENTITY.TOKEN", "")
	v.SetDefault("IDENTITY.TOKEN_EXPIRY", 24*time.Hour)

	v.SetDefault("SERVER.HOST", "127.0.0.1")
	v.SetDefault("SERVER.PORT", "8090")
	v.SetDefault("SERVER.WEBSOCKET_PATH", "/ws")
	v.SetDefault("SERVER.READ_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER.WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER.MAX_HEADER_BYTES", 1<<20) // 1 MB
	v.SetDefault("SERVER.CORS.ALLOWED_ORIGINS", []string{"http://localhost:5173"})
	v.SetDefault("SERVER.CORS.ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("SERVER.CORS.ALLOWED_HEADERS", []string{"Accept", "Authorization", "Content-Type"})
	v.SetDefault("SERVER.CORS.EXPOSED_HEADERS", []string{"Content-Length"})
	v.SetDefault("SERVER.CORS.ALLOW_CREDENTIALS", true)
	v.SetDefault("SERVER.CORS.MAX_AGE", 300)

	v.SetDefault("FEED.SOURCE", "mock")
	v.SetDefault("FEED.SEED_DATABASE", false)
	v.SetDefault("FEED.MESSAGE_HISTORY", 50)

	v.SetDefault("KAFKA.ENABLED", false)
	v.SetDefault("KAFKA.BROKERS", []string{"localhost:9092"})
	v.SetDefault("KAFKA.CLIENT_ID", "im-messenger-client")
	v.SetDefault("KAFKA.FEED_TOPIC", "im-feed-events")
	v.SetDefault("KAFKA.OUTBOUND_TOPIC", "im-outbound-messages")
	v.SetDefault("KAFKA.CONSUMER_GROUP", "im-messenger-client-group")
	v.SetDefault("KAFKA.PROTOCOL", "")

	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "password")
	v.SetDefault("DATABASE.DB_NAME", "im_messenger_db")
	v.SetDefault("DATABASE.SSL_MODE", "disable")

	v.SetDefault("REDIS.ENABLED", false)
	v.SetDefault("REDIS.ADDR", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)

	v.SetDefault("TYPING.EXPIRY", 4*time.Second)
	v.SetDefault("TYPING.SWEEP_INTERVAL", time.Second)

	v.SetDefault("WEBSOCKET.WRITE_WAIT_SECONDS", 10)
	v.SetDefault("WEBSOCKET.PONG_WAIT_SECONDS", 60)
	v.SetDefault("WEBSOCKET.PING_PERIOD_SECONDS", 54) // (60 * 9) / 10
	v.SetDefault("WEBSOCKET.MAX_MESSAGE_SIZE_BYTES", 4096)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// IDENTITY.LOCAL_USER_ID 可由 IDENTITY_LOCAL_USER_ID 覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		// 没有配置文件时使用默认值
	}

	err = v.Unmarshal(&config)
	return
}
