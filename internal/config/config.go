package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/palemoky/chkobba/internal/game/room"
	"github.com/palemoky/chkobba/internal/game/session"
)

// Config 服务端配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Game     GameConfig     `yaml:"game"`
	Security SecurityConfig `yaml:"security"`
}

// ServerConfig WebSocket 服务器配置
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxConnections int    `yaml:"max_connections"`
	LogMode        string `yaml:"log_mode"` // debug / release

	// 优雅关闭时等待进行中对局的最长时间（秒）
	ShutdownTimeout int `yaml:"shutdown_timeout"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// GameConfig 游戏配置
type GameConfig struct {
	TurnTimeout          int `yaml:"turn_timeout"`           // 出牌超时（秒）
	ReconnectGrace       int `yaml:"reconnect_grace"`        // 断线等待重连（秒）
	CaptureExpiry        int `yaml:"capture_expiry"`         // 吃牌选择过期（秒）
	CaptureSweepAge      int `yaml:"capture_sweep_age"`      // 清理多久前的吃牌选择（秒）
	CaptureSweepInterval int `yaml:"capture_sweep_interval"` // 清理间隔（秒）
	SnapshotInterval     int `yaml:"snapshot_interval"`      // 状态推送间隔（毫秒）
	RoomTimeout          int `yaml:"room_timeout"`           // 房间等待超时（分钟）
	RoomCleanupDelay     int `yaml:"room_cleanup_delay"`     // 游戏结束后房间保留（秒）
	ShutdownCheck        int `yaml:"shutdown_check"`         // 优雅关闭时检查对局的间隔（秒）
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	AllowedOrigins []string           `yaml:"allowed_origins"` // 为空时允许所有来源
	RateLimit      RateLimitConfig    `yaml:"rate_limit"`
	MessageLimit   MessageLimitConfig `yaml:"message_limit"`
}

// RateLimitConfig 按 IP 的建连频率限制
type RateLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
	MaxPerMinute int `yaml:"max_per_minute"`
	BanDuration  int `yaml:"ban_duration"` // 封禁时长（秒）
}

// BanDurationTime 返回封禁时长
func (c *RateLimitConfig) BanDurationTime() time.Duration {
	return time.Duration(c.BanDuration) * time.Second
}

// MessageLimitConfig 单个连接的消息频率限制
type MessageLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
}

// ShutdownTimeoutDuration 返回优雅关闭的等待时长
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}

// TurnTimeoutDuration 返回出牌超时时长
func (c *GameConfig) TurnTimeoutDuration() time.Duration {
	return time.Duration(c.TurnTimeout) * time.Second
}

// ReconnectGraceDuration 返回断线等待时长
func (c *GameConfig) ReconnectGraceDuration() time.Duration {
	return time.Duration(c.ReconnectGrace) * time.Second
}

// CaptureExpiryDuration 返回吃牌选择过期时长
func (c *GameConfig) CaptureExpiryDuration() time.Duration {
	return time.Duration(c.CaptureExpiry) * time.Second
}

// CaptureSweepAgeDuration 返回吃牌选择清理阈值
func (c *GameConfig) CaptureSweepAgeDuration() time.Duration {
	return time.Duration(c.CaptureSweepAge) * time.Second
}

// CaptureSweepIntervalDuration 返回吃牌选择清理间隔
func (c *GameConfig) CaptureSweepIntervalDuration() time.Duration {
	return time.Duration(c.CaptureSweepInterval) * time.Second
}

// SnapshotIntervalDuration 返回状态推送间隔
func (c *GameConfig) SnapshotIntervalDuration() time.Duration {
	return time.Duration(c.SnapshotInterval) * time.Millisecond
}

// RoomTimeoutDuration 返回房间等待超时时长
func (c *GameConfig) RoomTimeoutDuration() time.Duration {
	return time.Duration(c.RoomTimeout) * time.Minute
}

// RoomCleanupDelayDuration 返回游戏结束后房间保留时长
func (c *GameConfig) RoomCleanupDelayDuration() time.Duration {
	return time.Duration(c.RoomCleanupDelay) * time.Second
}

// ShutdownCheckDuration 返回优雅关闭时的检查间隔
func (c *GameConfig) ShutdownCheckDuration() time.Duration {
	return time.Duration(c.ShutdownCheck) * time.Second
}

// RoomOptions 转换为房间管理参数
func (c *GameConfig) RoomOptions() room.Options {
	return room.Options{
		Session:      c.SessionOptions(),
		RoomTimeout:  c.RoomTimeoutDuration(),
		CleanupDelay: c.RoomCleanupDelayDuration(),
	}
}

// SessionOptions 转换为会话状态机使用的时间参数
func (c *GameConfig) SessionOptions() session.Options {
	return session.Options{
		TurnTimeout:          c.TurnTimeoutDuration(),
		ReconnectGrace:       c.ReconnectGraceDuration(),
		CaptureExpiry:        c.CaptureExpiryDuration(),
		CaptureSweepAge:      c.CaptureSweepAgeDuration(),
		CaptureSweepInterval: c.CaptureSweepIntervalDuration(),
		SnapshotInterval:     c.SnapshotIntervalDuration(),
	}
}

// Load 加载配置文件，同目录或工作目录下的 .env 会先被载入，环境变量覆盖文件中的值
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.fillDefaults()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fillDefaults 显式写成 0 的字段回退到默认值
func (c *Config) fillDefaults() {
	d := Default()
	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.MaxConnections == 0 {
		c.Server.MaxConnections = d.Server.MaxConnections
	}
	if c.Server.LogMode == "" {
		c.Server.LogMode = d.Server.LogMode
	}
	setDefault(&c.Server.ShutdownTimeout, d.Server.ShutdownTimeout)
	if c.Redis.Addr == "" {
		c.Redis.Addr = d.Redis.Addr
	}

	g, dg := &c.Game, d.Game
	setDefault(&g.TurnTimeout, dg.TurnTimeout)
	setDefault(&g.ReconnectGrace, dg.ReconnectGrace)
	setDefault(&g.CaptureExpiry, dg.CaptureExpiry)
	setDefault(&g.CaptureSweepAge, dg.CaptureSweepAge)
	setDefault(&g.CaptureSweepInterval, dg.CaptureSweepInterval)
	setDefault(&g.SnapshotInterval, dg.SnapshotInterval)
	setDefault(&g.RoomTimeout, dg.RoomTimeout)
	setDefault(&g.RoomCleanupDelay, dg.RoomCleanupDelay)
	setDefault(&g.ShutdownCheck, dg.ShutdownCheck)

	sec, ds := &c.Security, d.Security
	setDefault(&sec.RateLimit.MaxPerSecond, ds.RateLimit.MaxPerSecond)
	setDefault(&sec.RateLimit.MaxPerMinute, ds.RateLimit.MaxPerMinute)
	setDefault(&sec.RateLimit.BanDuration, ds.RateLimit.BanDuration)
	setDefault(&sec.MessageLimit.MaxPerSecond, ds.MessageLimit.MaxPerSecond)
}

func setDefault(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

// applyEnv 环境变量覆盖
func (c *Config) applyEnv() error {
	if v := os.Getenv("CHKOBBA_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("CHKOBBA_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CHKOBBA_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("CHKOBBA_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("CHKOBBA_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("CHKOBBA_LOG_MODE"); v != "" {
		c.Server.LogMode = v
	}
	return nil
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            2567,
			MaxConnections:  10000,
			LogMode:         "debug",
			ShutdownTimeout: 300,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Game: GameConfig{
			TurnTimeout:          30,
			ReconnectGrace:       40,
			CaptureExpiry:        5,
			CaptureSweepAge:      10,
			CaptureSweepInterval: 60,
			SnapshotInterval:     50,
			RoomTimeout:          10,
			RoomCleanupDelay:     5,
			ShutdownCheck:        5,
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				MaxPerSecond: 5,
				MaxPerMinute: 60,
				BanDuration:  60,
			},
			MessageLimit: MessageLimitConfig{
				MaxPerSecond: 20,
			},
		},
	}
}
