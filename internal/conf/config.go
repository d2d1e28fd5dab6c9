package conf

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Feishu   FeishuConfig   `mapstructure:"feishu"`
	Halo     HaloConfig     `mapstructure:"halo"`
	Blog     BlogConfig     `mapstructure:"blog"`
	Email    EmailConfig    `mapstructure:"email"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
}

type LogConfig struct {
	Level            string        `mapstructure:"level"`
	Format           string        `mapstructure:"format"`
	Output           string        `mapstructure:"output"`
	File             FileLogConfig `mapstructure:"file"`
	EnableCaller     bool          `mapstructure:"enable_caller"`
	EnableStacktrace bool          `mapstructure:"enable_stacktrace"`
}

type FileLogConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	JWTIssuer string `mapstructure:"jwt_issuer"`
}

// FeishuConfig 飞书多维表格配置（报名数据存储）
type FeishuConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
	AppToken  string `mapstructure:"app_token"` // 多维表格 app token
	TableID   string `mapstructure:"table_id"`  // 报名表 table id
}

// HaloConfig Halo 博客配置
type HaloConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
}

// BlogConfig RSS 镜像配置
type BlogConfig struct {
	FeedURL      string        `mapstructure:"feed_url"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	SyncInterval time.Duration `mapstructure:"sync_interval"`
	AutoSync     bool          `mapstructure:"auto_sync"`
}

// EmailConfig 邮件发送配置（凭证本身存数据库，这里是全局行为参数）
type EmailConfig struct {
	MaxAttempts        int           `mapstructure:"max_attempts"`         // 单次发送最多轮换的凭证数
	QuotaBackoff       time.Duration `mapstructure:"quota_backoff"`        // 配额类失败后的等待
	BatchSize          int           `mapstructure:"batch_size"`           // 批量发送每批数量
	BatchDelay         time.Duration `mapstructure:"batch_delay"`          // 批间延迟
	ConnectTimeout     time.Duration `mapstructure:"connect_timeout"`      // 标准模式连接超时
	CompatTimeout      time.Duration `mapstructure:"compat_timeout"`       // 兼容模式连接超时
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"` // 跳过证书校验（默认关闭）
	BCC                string        `mapstructure:"bcc"`                  // 可选的全局密送地址
}

func LoadConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Email.MaxAttempts == 0 {
		c.Email.MaxAttempts = 3
	}
	if c.Email.QuotaBackoff == 0 {
		c.Email.QuotaBackoff = 2 * time.Second
	}
	if c.Email.BatchSize == 0 {
		c.Email.BatchSize = 5
	}
	if c.Email.BatchDelay == 0 {
		c.Email.BatchDelay = time.Second
	}
	if c.Email.ConnectTimeout == 0 {
		c.Email.ConnectTimeout = 10 * time.Second
	}
	if c.Email.CompatTimeout == 0 {
		c.Email.CompatTimeout = 30 * time.Second
	}
	if c.Blog.CacheTTL == 0 {
		c.Blog.CacheTTL = 10 * time.Minute
	}
	if c.Blog.SyncInterval == 0 {
		c.Blog.SyncInterval = time.Hour
	}
	if c.Feishu.BaseURL == "" {
		c.Feishu.BaseURL = "https://open.feishu.cn"
	}
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
