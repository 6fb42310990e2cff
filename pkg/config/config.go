package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Security  SecurityConfig  `yaml:"security"`
	Logging   LoggingConfig   `yaml:"logging"`
	Storage   StorageConfig   `yaml:"storage"`
	Employee  EmployeeConfig  `yaml:"employee"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Workflow  WorkflowConfig  `yaml:"workflow"`
	Events    EventsConfig    `yaml:"events"`
}

type ServerConfig struct {
	APIPort int    `yaml:"api_port"`
	Mode    string `yaml:"mode"` // debug / release / test
}

// SetDefaults 设置服务默认值
func (c *ServerConfig) SetDefaults() {
	if c.APIPort == 0 {
		c.APIPort = 8080
	}
	if c.Mode == "" {
		c.Mode = "release"
	}
}

type DatabaseConfig struct {
	Driver          string `yaml:"driver"` // 数据库驱动: mysql, postgres (默认: mysql)
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	DBName          string `yaml:"dbname"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"`
}

type RedisConfig struct {
	// Enabled 是否启用Redis
	// - true: 员工缓存、催办冷却、发布任务分布式锁走Redis
	// - false: 单机模式，冷却时间退化为数据库字段判断
	Enabled bool `yaml:"enabled"`

	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// ConnectTimeout 连接超时时间（秒，默认5秒）
	ConnectTimeout int `yaml:"connect_timeout"`
	// ReadTimeout 读取超时时间（秒，默认3秒）
	ReadTimeout int `yaml:"read_timeout"`
	// WriteTimeout 写入超时时间（秒，默认3秒）
	WriteTimeout int `yaml:"write_timeout"`
	// PoolSize 连接池大小（默认10）
	PoolSize int `yaml:"pool_size"`
	// MinIdleConns 最小空闲连接数（默认5）
	MinIdleConns int `yaml:"min_idle_conns"`
}

// Validate 验证Redis配置
func (c *RedisConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Host == "" {
		return fmt.Errorf("redis host is required when enabled=true")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid redis port: %d", c.Port)
	}
	return nil
}

// SetDefaults 设置默认值
func (c *RedisConfig) SetDefaults() {
	if c.Port == 0 {
		c.Port = 6379
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns == 0 {
		c.MinIdleConns = 5
	}
}

type SecurityConfig struct {
	// JWTSecret 网关与各服务共享的签名密钥，服务只信任签名有效的身份声明
	JWTSecret string `yaml:"jwt_secret"`
	// Issuer 期望的签发方，留空则不校验
	Issuer string `yaml:"issuer"`
}

// SetDefaults 设置安全配置的默认值
func (c *SecurityConfig) SetDefaults() {
	if c.JWTSecret == "" {
		// 仅用于开发环境，生产环境必须通过 JWT_SECRET 覆盖
		c.JWTSecret = "hrhub-dev-secret-change-me-0123456789abcdef0123456789abcdef"
	}
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug / info / warn / error
	Output string `yaml:"output"` // console / file / both
	File   string `yaml:"file"`   // 日志文件路径
}

// StorageConfig 对象存储配置（S3 协议）
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
	// PublicBaseURL 附件存储地址的前缀，例如 https://files.example.com/hrhub
	// 存储地址去掉该前缀后即为对象 key
	PublicBaseURL string `yaml:"public_base_url"`
	// PresignTTL 预签名链接有效期（秒，默认300）
	PresignTTL int `yaml:"presign_ttl"`
}

// SetDefaults 设置对象存储默认值
func (c *StorageConfig) SetDefaults() {
	if c.PresignTTL == 0 {
		c.PresignTTL = 300
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")
}

// EmployeeConfig 人事服务查询配置
type EmployeeConfig struct {
	BaseURL string `yaml:"base_url"`
	// Timeout 单次查询超时（秒，默认3秒）
	Timeout int `yaml:"timeout"`
	// CacheTTL 员工信息缓存时间（秒，默认600秒，仅Redis启用时生效）
	CacheTTL int `yaml:"cache_ttl"`
}

// SetDefaults 设置人事服务默认值
func (c *EmployeeConfig) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 3
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 600
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
}

// SchedulerConfig 预约提交任务配置
type SchedulerConfig struct {
	// PublishCron 预约文档扫描周期（标准5段cron，默认每分钟）
	PublishCron string `yaml:"publish_cron"`
	// BatchSize 单次扫描的最大文档数
	BatchSize int `yaml:"batch_size"`
	// Disabled 为 true 时不在本节点启动扫描
	Disabled bool `yaml:"disabled"`
}

// SetDefaults 设置调度默认值
func (c *SchedulerConfig) SetDefaults() {
	if c.PublishCron == "" {
		c.PublishCron = "* * * * *"
	}
	if c.BatchSize == 0 {
		c.BatchSize = 200
	}
}

// WorkflowConfig 审批流程配置
type WorkflowConfig struct {
	// RemindCooldown 两次催办之间的最小间隔（分钟，默认60）
	RemindCooldown int `yaml:"remind_cooldown"`
	// MaxApprovers 单个文档最多审批人数
	MaxApprovers int `yaml:"max_approvers"`
}

// SetDefaults 设置审批流程默认值
func (c *WorkflowConfig) SetDefaults() {
	if c.RemindCooldown == 0 {
		c.RemindCooldown = 60
	}
	if c.MaxApprovers == 0 {
		c.MaxApprovers = 20
	}
}

// EventsConfig 审批事件发布配置
type EventsConfig struct {
	Backend string   `yaml:"backend"` // gochannel / kafka
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// SetDefaults 设置事件默认值
func (c *EventsConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "gochannel"
	}
	if c.Topic == "" {
		c.Topic = "hrhub.approval.events"
	}
}

// Validate 验证事件配置
func (c *EventsConfig) Validate() error {
	switch c.Backend {
	case "gochannel":
		return nil
	case "kafka":
		if len(c.Brokers) == 0 {
			return fmt.Errorf("events brokers are required when backend=kafka")
		}
		return nil
	default:
		return fmt.Errorf("unsupported events backend: %s (supported: gochannel, kafka)", c.Backend)
	}
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse 解析配置内容，依次应用环境变量覆盖、默认值和校验
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&config)

	config.Server.SetDefaults()
	config.Database.SetDefaults()
	config.Redis.SetDefaults()
	config.Security.SetDefaults()
	config.Storage.SetDefaults()
	config.Employee.SetDefaults()
	config.Scheduler.SetDefaults()
	config.Workflow.SetDefaults()
	config.Events.SetDefaults()

	if err := config.Redis.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}
	if err := config.Events.Validate(); err != nil {
		return nil, fmt.Errorf("invalid events config: %w", err)
	}

	GlobalConfig = &config
	return &config, nil
}

// applyEnvOverrides 支持通过环境变量覆盖配置（Docker 部署时使用）
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.APIPort = port
		}
	}

	// 数据库
	if v := os.Getenv("DB_DRIVER"); v != "" {
		config.Database.Driver = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		config.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Database.Port = port
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		config.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		config.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		config.Database.DBName = v
	}

	// Redis
	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			config.Redis.Enabled = enabled
		}
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		config.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Redis.Port = port
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		config.Redis.Password = v
	}

	// 安全
	if v := os.Getenv("JWT_SECRET"); v != "" {
		config.Security.JWTSecret = v
	}

	// 对象存储
	if v := os.Getenv("STORAGE_ENDPOINT"); v != "" {
		config.Storage.Endpoint = v
	}
	if v := os.Getenv("STORAGE_ACCESS_KEY"); v != "" {
		config.Storage.AccessKey = v
	}
	if v := os.Getenv("STORAGE_SECRET_KEY"); v != "" {
		config.Storage.SecretKey = v
	}
	if v := os.Getenv("STORAGE_BUCKET"); v != "" {
		config.Storage.Bucket = v
	}

	// 人事服务
	if v := os.Getenv("EMPLOYEE_BASE_URL"); v != "" {
		config.Employee.BaseURL = v
	}

	// 事件
	if v := os.Getenv("EVENTS_BACKEND"); v != "" {
		config.Events.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		config.Events.Brokers = strings.Split(v, ",")
	}
}

func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" || c.Driver == "postgresql" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.User, c.Password, c.DBName)
	}
	// 默认 MySQL
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// SetDefaults 设置默认值
func (c *DatabaseConfig) SetDefaults() {
	if c.Driver == "" {
		c.Driver = "mysql"
	}
	if c.Port == 0 {
		if c.Driver == "postgres" || c.Driver == "postgresql" {
			c.Port = 5432
		} else {
			c.Port = 3306
		}
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 10
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 100
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = 3600 // 1 hour
	}
}
