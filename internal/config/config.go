// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Assistant     AssistantConfig     `mapstructure:"assistant"`
	RBAC          RBACConfig          `mapstructure:"rbac"`
	Notify        NotifyConfig        `mapstructure:"notify"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port               string `mapstructure:"port"`
	Mode               string `mapstructure:"mode"`
	CORSAllowedOrigins string `mapstructure:"cors_allowed_origins"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置，用于转发工单通知。
type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置（知识库检索）。
type ElasticsearchConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// MinIOConfig 存储 MinIO 对象存储的配置（导出快照）。
type MinIOConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	Enabled     bool                `mapstructure:"enabled"`
	APIKey      string              `mapstructure:"api_key"`
	BaseURL     string              `mapstructure:"base_url"`
	Model       string              `mapstructure:"model"`
	DataTimeout time.Duration       `mapstructure:"data_timeout"`
	ChatTimeout time.Duration       `mapstructure:"chat_timeout"`
	Generation  LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关参数。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// AssistantConfig 存储对话查询管道的可调参数。
type AssistantConfig struct {
	ContextTTL       time.Duration `mapstructure:"context_ttl"`
	ContextStore     string        `mapstructure:"context_store"` // memory | redis
	MaxRows          int           `mapstructure:"max_rows"`
	SummaryThreshold int           `mapstructure:"summary_threshold"`
	KnowledgeBackend string        `mapstructure:"knowledge_backend"` // sql | elasticsearch
	Timezone         string        `mapstructure:"timezone"`
}

// RBACConfig 列出拥有全量数据访问权限的角色。
type RBACConfig struct {
	FullAccessRoles []string `mapstructure:"full_access_roles"`
}

// NotifyConfig 配置工单通知渠道。
type NotifyConfig struct {
	Channel  string         `mapstructure:"channel"` // none | telegram | kafka
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 存储支持群 Telegram 机器人的配置。
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// DefaultFullAccessRoles 是未配置 rbac.full_access_roles 时使用的提升角色。
var DefaultFullAccessRoles = []string{
	"supervisor", "supervisora",
	"admin", "administrador", "administradora",
	"manager", "gerente",
	"jefe", "jefa", "jefe de servicio", "encargado", "encargada",
	"coordinador", "coordinadora",
	"developer", "desarrollador", "desarrolladora",
}

// setDefaults 为所有助手参数设置默认值。
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors_allowed_origins", "*")
	v.SetDefault("jwt.access_token_expire_hours", 12)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("kafka.topic", "hr-assistant-support")
	v.SetDefault("kafka.group_id", "hr-assistant-notifier")
	v.SetDefault("elasticsearch.index_name", "kb_articles")
	v.SetDefault("llm.enabled", true)
	v.SetDefault("llm.data_timeout", 30*time.Second)
	v.SetDefault("llm.chat_timeout", 10*time.Second)
	v.SetDefault("llm.generation.temperature", 0.3)
	v.SetDefault("llm.generation.max_tokens", 800)
	v.SetDefault("assistant.context_ttl", 15*time.Minute)
	v.SetDefault("assistant.context_store", "memory")
	v.SetDefault("assistant.max_rows", 100)
	v.SetDefault("assistant.summary_threshold", 10)
	v.SetDefault("assistant.knowledge_backend", "sql")
	v.SetDefault("assistant.timezone", "Europe/Madrid")
	v.SetDefault("rbac.full_access_roles", DefaultFullAccessRoles)
	v.SetDefault("notify.channel", "none")
	v.SetDefault("notify.telegram.api_base", "https://api.telegram.org")
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
// 环境变量（如 LLM_API_KEY）会覆盖文件中的同名键。
func Init(configPath string) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := v.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}
}

// Location 返回助手计算“今天”和月份窗口时使用的时区。
func (c AssistantConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
