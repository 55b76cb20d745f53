package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

// ViolationThreshold is the number of stop-word violations that hard-blocks a user in a group.
const ViolationThreshold = 5

type (
	Config struct {
		TelegramAPIToken  string        `env:"TOKEN,required"`
		AdminIDs          []int64       `env:"ADMIN_IDS"`
		DefaultLanguage   string        `env:"LANG,default=en"`
		EnabledHandlers   []string      `env:"HANDLERS,default=admin,moderation"`
		LogLevel          int           `env:"LOG_LEVEL,default=4"`
		DotPath           string        `env:"DOT_PATH,default=~/.ngguard"`
		DBFile            string        `env:"DB_FILE,default=ngguard.db"`
		WorkerIdleTimeout time.Duration `env:"WORKERS_IDLE_TIMEOUT,default=10m"`
		MetricsAddr       string        `env:"METRICS_ADDR"`
		AuditLog          bool          `env:"AUDIT_LOG,default=true"`
		Moderation        Moderation
		Cache             Cache
	}

	Moderation struct {
		ViolationThreshold       int           `env:"VIOLATION_THRESHOLD,default=5"`
		DefaultSlowModeDelay     time.Duration `env:"DEFAULT_SLOW_MODE_DELAY,default=15s"`
		WarningTTL               time.Duration `env:"WARNING_TTL,default=15s"`
		SlowModeWarningTTLCap    time.Duration `env:"SLOW_MODE_WARNING_TTL_CAP,default=2s"`
		SubscriptionCheckTimeout time.Duration `env:"SUBSCRIPTION_CHECK_TIMEOUT,default=5s"`
	}

	Cache struct {
		RedisURL      string        `env:"REDIS_URL"`
		StopWordsTTL  time.Duration `env:"STOP_WORDS_CACHE_TTL,default=1m"`
		StopWordsSize int           `env:"STOP_WORDS_CACHE_SIZE,default=4096"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg := &Config{}
		envcfg := envconfig.Config{
			Lookuper: envconfig.PrefixLookuper("NG_", envconfig.OsLookuper()),
			Target:   cfg,
		}
		if err := envconfig.ProcessWith(context.Background(), &envcfg); err != nil {
			globalErr = fmt.Errorf("process env config: %w", err)
			return
		}
		if err := cfg.Validate(); err != nil {
			globalErr = err
			return
		}
		dotPath, err := homedir.Expand(cfg.DotPath)
		if err != nil {
			globalErr = fmt.Errorf("expand dot path: %w", err)
			return
		}
		cfg.DotPath = dotPath
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}

// Validate rejects values the moderation core does not support.
func (c *Config) Validate() error {
	m := c.Moderation
	if m.ViolationThreshold != ViolationThreshold {
		return fmt.Errorf("violation threshold is fixed at %d, got %d", ViolationThreshold, m.ViolationThreshold)
	}
	if m.DefaultSlowModeDelay < 0 {
		return fmt.Errorf("default slow mode delay must be non-negative, got %s", m.DefaultSlowModeDelay)
	}
	if m.WarningTTL < 0 || m.SlowModeWarningTTLCap < 0 {
		return fmt.Errorf("warning ttl must be non-negative")
	}
	if m.SubscriptionCheckTimeout <= 0 {
		return fmt.Errorf("subscription check timeout must be positive, got %s", m.SubscriptionCheckTimeout)
	}
	return nil
}
