package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix 所有环境变量的前缀，例如 INVENTORY_DB_PATH。
const EnvPrefix = "INVENTORY"

// AppConfig 聚合运行时配置，尽量通过环境变量注入，避免硬编码。
type AppConfig struct {
	DBPath string `envconfig:"DB_PATH" default:"data/inventory.db"`

	// 日志：级别、模式（development/production）、文件路径（空表示只写终端）
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogMode  string `envconfig:"LOG_MODE" default:"development"`
	LogFile  string `envconfig:"LOG_FILE" default:"data/inventory.log"`

	// 单次操作超时与 SQLite 写锁等待时间
	OpTimeout   time.Duration `envconfig:"OP_TIMEOUT" default:"10s"`
	BusyTimeout time.Duration `envconfig:"BUSY_TIMEOUT" default:"5s"`

	// 手动新增商品未填写税率时使用
	DefaultVatRate float64 `envconfig:"DEFAULT_VAT_RATE" default:"0.20"`

	// 初始化菜单默认读取的 JSON 快照
	SnapshotPath string `envconfig:"SNAPSHOT_PATH" default:"data/initial_stock.json"`

	SQLDebug bool `envconfig:"SQL_DEBUG" default:"false"`
}

// Load 读取并校验配置，缺失时使用默认值。
func Load() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate 校验字段取值；命令行覆盖配置后也需要再调用一次。
func (c AppConfig) Validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("DB_PATH must not be empty")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	switch c.LogMode {
	case "development", "production":
	default:
		return fmt.Errorf("invalid LOG_MODE %q", c.LogMode)
	}
	if c.OpTimeout < 0 {
		return fmt.Errorf("OP_TIMEOUT must be >= 0")
	}
	if c.BusyTimeout <= 0 {
		return fmt.Errorf("BUSY_TIMEOUT must be > 0")
	}
	if c.DefaultVatRate < 0 || c.DefaultVatRate > 1 {
		return fmt.Errorf("DEFAULT_VAT_RATE must be between 0 and 1")
	}
	return nil
}
