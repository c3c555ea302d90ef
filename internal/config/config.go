package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// DatabaseConfig 定义 SQLite 数据库配置
type DatabaseConfig struct {
	Path         string        // 数据库文件路径，默认 "./data/idmail.db"
	BusyTimeout  time.Duration // SQLite busy_timeout，默认 5s
	QueryTimeout time.Duration // 单条语句超时上限，默认 5s
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
	File        string // 日志文件路径，留空表示只输出到 stdout
}

// RateLimitConfig 定义凭证端点的限流配置
type RateLimitConfig struct {
	PerSecond float64 // 每个来源 IP 每秒允许的请求数，默认 5
	Burst     int     // 突发额度，默认 10
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server    ServerConfig    // HTTP 服务器配置
	Database  DatabaseConfig  // 数据库配置
	CORS      CORSConfig      // 跨域配置
	Log       LogConfig       // 日志配置
	RateLimit RateLimitConfig // 限流配置
	// Provision 声明式期望状态文件路径（IDMAIL_PROVISION）。
	// 为空表示不执行调和。
	Provision string
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（最高优先级）
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: IDMAIL_
// 例如: IDMAIL_SERVER_HOST, IDMAIL_DATABASE_PATH, IDMAIL_PROVISION
func Load() (*Config, error) {
	// 尝试加载 .env 文件（静默失败，因为 .env 文件是可选的）
	loadEnvFile()

	viper.SetEnvPrefix("idmail")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.path", "./data/idmail.db")
	viper.SetDefault("database.busy_timeout", "5s")
	viper.SetDefault("database.query_timeout", "5s")
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("log.file", "")
	viper.SetDefault("ratelimit.per_second", 5.0)
	viper.SetDefault("ratelimit.burst", 10)
	viper.SetDefault("provision", "")

	busyTimeout, err := time.ParseDuration(viper.GetString("database.busy_timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid database.busy_timeout: %w", err)
	}
	queryTimeout, err := time.ParseDuration(viper.GetString("database.query_timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid database.query_timeout: %w", err)
	}

	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		return nil, fmt.Errorf("database.path must not be empty")
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	perSecond := viper.GetFloat64("ratelimit.per_second")
	if perSecond <= 0 {
		perSecond = 5.0
	}
	burst := viper.GetInt("ratelimit.burst")
	if burst <= 0 {
		burst = 10
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Database: DatabaseConfig{
			Path:         dbPath,
			BusyTimeout:  busyTimeout,
			QueryTimeout: queryTimeout,
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
			File:        viper.GetString("log.file"),
		},
		RateLimit: RateLimitConfig{
			PerSecond: perSecond,
			Burst:     burst,
		},
		Provision: viper.GetString("provision"),
	}

	return cfg, nil
}

// parseList 将逗号分隔的字符串解析为字符串切片
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 加载顺序：
//  1. 当前目录的 .env
//  2. 父目录的 .env
//
// 已存在的环境变量不会被覆盖。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
