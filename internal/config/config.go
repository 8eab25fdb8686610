package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config officemap-data（HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  DatabaseConfig
	Redis     struct {
		Addr     string
		Password string
		DB       int
	}
	Cache struct {
		TTLSeconds int // 已发布楼层读缓存的TTL
	}
	Log struct {
		Level  string
		Format string
	}
	People PeopleConfig `yaml:"people"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// PeopleConfig 人员目录服务配置（由独立的账号/档案服务提供）
type PeopleConfig struct {
	BaseURL string `yaml:"base_url"` // 人员服务地址
	Token   string `yaml:"token"`    // 服务间调用凭证（可选）
}

// MQTTConfig MQTT 配置（用于向大厅展示屏推送楼层发布事件）
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`   // 是否启用发布通知（默认 false）
	Broker   string `yaml:"broker"`    // MQTT Broker 地址（如 "tcp://localhost:1883"）
	ClientID string `yaml:"client_id"` // 客户端 ID
	Username string `yaml:"username"`  // 用户名（可选）
	Password string `yaml:"password"`  // 密码（可选）
	Topic    string `yaml:"topic"`     // 发布主题
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// Default to true for local dev: if DB is unavailable, officemap-data will
	// fall back to the in-memory store so the editor pages still work.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "officemap")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0
	cfg.Cache.TTLSeconds = parseInt(getEnv("CACHE_TTL_SECONDS", "300"), 300)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	// 人员目录服务
	cfg.People.BaseURL = getEnv("PEOPLE_BASE_URL", "http://localhost:8081")
	cfg.People.Token = getEnv("PEOPLE_TOKEN", "")

	// MQTT 发布通知（默认禁用）
	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "officemap-data")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "officemap/floors/published")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
