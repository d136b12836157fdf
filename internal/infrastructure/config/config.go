package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Redis       RedisConfig       `koanf:"redis"`
	Auction     AuctionConfig     `koanf:"auction"`
	Security    SecurityConfig    `koanf:"security"`
	Broadcaster BroadcasterConfig `koanf:"broadcaster"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL      string `koanf:"url"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// AuctionConfig carries the bidding engine policy
type AuctionConfig struct {
	DefaultIncrementCents int64         `koanf:"default_increment_cents"`
	AntiSnipeWindow       time.Duration `koanf:"anti_snipe_window"`
	AntiSnipeExtension    time.Duration `koanf:"anti_snipe_extension"`
	// MaxTotalExtension of zero means unbounded, repeatable extension
	MaxTotalExtension time.Duration `koanf:"max_total_extension"`
	MailboxTimeout    time.Duration `koanf:"mailbox_timeout"`
	BidsPerMinute     int           `koanf:"bids_per_minute"`
	SchedulerPoll     time.Duration `koanf:"scheduler_poll"`
	SchedulerResync   time.Duration `koanf:"scheduler_resync"`
}

type SecurityConfig struct {
	JWTSecret   string        `koanf:"jwt_secret"`
	TokenExpiry time.Duration `koanf:"token_expiry"`
}

type BroadcasterConfig struct {
	QueueSize      int           `koanf:"queue_size"`
	ClientBuffer   int           `koanf:"client_buffer"`
	TickInterval   time.Duration `koanf:"tick_interval"`
	PingInterval   time.Duration `koanf:"ping_interval"`
	WriteDeadline  time.Duration `koanf:"write_deadline"`
	ReadDeadline   time.Duration `koanf:"read_deadline"`
	MaxMessageSize int64         `koanf:"max_message_size"`
}

// Load reads defaults, an optional YAML file, then MC_-prefixed env
// variables, later sources overriding earlier ones.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			DB: 0,
		},
		Auction: AuctionConfig{
			DefaultIncrementCents: 100,
			AntiSnipeWindow:       2 * time.Minute,
			AntiSnipeExtension:    2 * time.Minute,
			MaxTotalExtension:     0,
			MailboxTimeout:        250 * time.Millisecond,
			BidsPerMinute:         30,
			SchedulerPoll:         250 * time.Millisecond,
			SchedulerResync:       30 * time.Second,
		},
		Security: SecurityConfig{
			TokenExpiry: 24 * time.Hour,
		},
		Broadcaster: BroadcasterConfig{
			QueueSize:      1024,
			ClientBuffer:   16,
			TickInterval:   time.Second,
			PingInterval:   30 * time.Second,
			WriteDeadline:  10 * time.Second,
			ReadDeadline:   60 * time.Second,
			MaxMessageSize: 512,
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path == "" {
		path = "configs/config.yaml"
	}
	// Config file is optional
	_ = k.Load(file.Provider(path), yaml.Parser())

	if err := k.Load(env.Provider("MC_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "MC_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
