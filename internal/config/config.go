// Package config 提供配置管理
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"db"`
	API      APIConfig      `mapstructure:"api"`
	Planner  PlannerConfig  `mapstructure:"planner"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name      string `mapstructure:"name"`
	Env       string `mapstructure:"env"`
	Port      int    `mapstructure:"port"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // json/console
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"` // false 时使用内存存储
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// APIConfig API配置
type APIConfig struct {
	RateLimit   float64       `mapstructure:"rate_limit"` // 每秒请求数，0 表示不限
	Timeout     time.Duration `mapstructure:"timeout"`
	CORSEnabled bool          `mapstructure:"cors_enabled"`
	CORSOrigins []string      `mapstructure:"cors_origins"`
}

// PlannerConfig 排班引擎配置
type PlannerConfig struct {
	MonthWeeks     int `mapstructure:"month_weeks"`
	MaxSuggestions int `mapstructure:"max_suggestions"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load 从环境变量和可选配置文件加载配置
// 环境变量名为 段名_字段名 的大写形式，例如 APP_PORT、DB_ENABLED、PLANNER_MONTH_WEEKS
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults 默认值，AutomaticEnv 只覆盖已知键
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "radioplan")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 7012)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "console")

	v.SetDefault("db.enabled", false)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "radioplan")
	v.SetDefault("db.user", "radioplan")
	v.SetDefault("db.password", "radioplan")
	v.SetDefault("db.ssl_mode", "disable")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 2)
	v.SetDefault("db.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("api.rate_limit", 50)
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.cors_enabled", true)
	v.SetDefault("api.cors_origins", "*")

	v.SetDefault("planner.month_weeks", 5)
	v.SetDefault("planner.max_suggestions", 3)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Validate 检查配置取值
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("APP_PORT 无效: %d", c.App.Port)
	}
	if c.Planner.MonthWeeks <= 0 {
		return fmt.Errorf("PLANNER_MONTH_WEEKS 必须为正数: %d", c.Planner.MonthWeeks)
	}
	if c.Planner.MaxSuggestions <= 0 {
		return fmt.Errorf("PLANNER_MAX_SUGGESTIONS 必须为正数: %d", c.Planner.MaxSuggestions)
	}
	return nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
