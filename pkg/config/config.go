package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	once   sync.Once
	config *Config
)

// Config 全局配置结构
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Casbin   CasbinConfig   `mapstructure:"casbin"`
	Log      LogConfig      `mapstructure:"log"`
	Authz    AuthzConfig    `mapstructure:"authz"`
	Assets   AssetsConfig   `mapstructure:"assets"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
}

// HTTPConfig HTTP服务配置
type HTTPConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"readTimeout"`
	WriteTimeout int    `mapstructure:"writeTimeout"`
}

// Addr 监听地址
func (c *HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Database     string `mapstructure:"database"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Charset      string `mapstructure:"charset"`
	MaxIdleConns int    `mapstructure:"maxIdleConns"`
	MaxOpenConns int    `mapstructure:"maxOpenConns"`
	LogLevel     string `mapstructure:"logLevel"`
}

// DSN 生成数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	switch c.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
			c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset)
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.Username, c.Password, c.Database)
	case "sqlite":
		// 为空时使用共享内存库，保证连接池内多个连接看到同一份数据
		if c.Database == "" || c.Database == ":memory:" {
			return "file::memory:?cache=shared"
		}
		return c.Database
	default:
		return ""
	}
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"poolSize"`
	Mode     string `mapstructure:"mode"` // "standalone" 外部 Redis, "memory" 内存模式
}

// Addr 获取Redis地址
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CasbinConfig Casbin配置
type CasbinConfig struct {
	// ModelPath 为空时使用内置模型
	ModelPath string `mapstructure:"modelPath"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAge     int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// AuthzConfig 权限矩阵配置
type AuthzConfig struct {
	ReadOnly bool `mapstructure:"readOnly"` // 只读模式下禁止打开编辑会话
	Seed     bool `mapstructure:"seed"`     // 启动时写入默认目录
}

// AssetsConfig 远程资源缓存配置
type AssetsConfig struct {
	BaseURL               string `mapstructure:"baseUrl"`
	SkinListPath          string `mapstructure:"skinListPath"`
	ProbeTimeoutMs        int    `mapstructure:"probeTimeoutMs"`
	MinCheckIntervalHours int    `mapstructure:"minCheckIntervalHours"`
	ProbeConcurrency      int    `mapstructure:"probeConcurrency"`
	StateKey              string `mapstructure:"stateKey"`
	ColdStartOnBoot       bool   `mapstructure:"coldStartOnBoot"`
}

// ProbeTimeout 单次探测超时
func (c *AssetsConfig) ProbeTimeout() time.Duration {
	if c.ProbeTimeoutMs <= 0 {
		return 1500 * time.Millisecond
	}
	return time.Duration(c.ProbeTimeoutMs) * time.Millisecond
}

// MinCheckInterval 冷启动检查节流窗口
func (c *AssetsConfig) MinCheckInterval() time.Duration {
	if c.MinCheckIntervalHours <= 0 {
		return 6 * time.Hour
	}
	return time.Duration(c.MinCheckIntervalHours) * time.Hour
}

// GatewayConfig 网关配置
type GatewayConfig struct {
	Routes            []GatewayRoute `mapstructure:"routes"`
	TimeoutMs         int            `mapstructure:"timeoutMs"`
	BreakerThreshold  int            `mapstructure:"breakerThreshold"`
	BreakerTimeoutSec int            `mapstructure:"breakerTimeoutSec"`
}

// GatewayRoute 网关转发规则
type GatewayRoute struct {
	Service string `mapstructure:"service"`
	Prefix  string `mapstructure:"prefix"` // 去掉 /api/v1 后的路径前缀，如 /authz
	Target  string `mapstructure:"target"` // 后端服务地址，如 http://127.0.0.1:28091
}

// Timeout 转发超时
func (c *GatewayConfig) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// BreakerTimeout 熔断恢复时间
func (c *GatewayConfig) BreakerTimeout() time.Duration {
	if c.BreakerTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.BreakerTimeoutSec) * time.Second
}

// Default 返回无需配置文件即可运行的默认配置
func Default() *Config {
	return &Config{
		App: AppConfig{Name: "goconsole", Env: "dev", Version: "v1.0.0"},
		Server: ServerConfig{
			HTTP: HTTPConfig{Host: "0.0.0.0", Port: 28090, ReadTimeout: 10, WriteTimeout: 10},
		},
		Database: DatabaseConfig{
			Driver:       "sqlite",
			MaxIdleConns: 1,
			MaxOpenConns: 1,
			LogLevel:     "warn",
		},
		Redis: RedisConfig{Host: "127.0.0.1", Port: 6379, PoolSize: 10, Mode: "memory"},
		Log:   LogConfig{Level: "info", Format: "console", Output: "console"},
		Authz: AuthzConfig{Seed: true},
		Assets: AssetsConfig{
			SkinListPath:          "/skins/index.json",
			ProbeTimeoutMs:        1500,
			MinCheckIntervalHours: 6,
			ProbeConcurrency:      8,
			StateKey:              "assets:state",
			ColdStartOnBoot:       true,
		},
		Gateway: GatewayConfig{
			Routes: []GatewayRoute{
				{Service: "authz-service", Prefix: "/authz", Target: "http://127.0.0.1:28091"},
				{Service: "assets-service", Prefix: "/assets", Target: "http://127.0.0.1:28092"},
			},
			TimeoutMs:         5000,
			BreakerThreshold:  5,
			BreakerTimeoutSec: 30,
		},
	}
}

// Init 初始化配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		config = Default()
		err = loadConfig(configPath)
	})
	return err
}

// loadConfig 加载配置文件
func loadConfig(configPath string) error {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// 没有配置文件时使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = v.GetString("app.env")
	}

	if env != "" && env != "default" {
		v.SetConfigName(fmt.Sprintf("config.%s", env))
		if err := v.MergeInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("failed to merge env config: %w", err)
			}
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	resolveEnvVars(config)

	return nil
}

// resolveEnvVars 解析环境变量占位符
func resolveEnvVars(cfg *Config) {
	cfg.Database.Host = resolveEnvVar(cfg.Database.Host)
	cfg.Database.Username = resolveEnvVar(cfg.Database.Username)
	cfg.Database.Password = resolveEnvVar(cfg.Database.Password)
	cfg.Database.Database = resolveEnvVar(cfg.Database.Database)
	cfg.Redis.Host = resolveEnvVar(cfg.Redis.Host)
	cfg.Redis.Password = resolveEnvVar(cfg.Redis.Password)
	cfg.Assets.BaseURL = resolveEnvVar(cfg.Assets.BaseURL)
}

// resolveEnvVar 解析单个环境变量
func resolveEnvVar(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		envKey := strings.TrimSuffix(strings.TrimPrefix(value, "${"), "}")
		if envValue := os.Getenv(envKey); envValue != "" {
			return envValue
		}
	}
	return value
}

// Get 获取配置实例
func Get() *Config {
	if config == nil {
		panic("config not initialized, call Init first")
	}
	return config
}

// IsDev 是否为开发环境
func IsDev() bool {
	return Get().App.Env == "dev" || Get().App.Env == "development"
}
