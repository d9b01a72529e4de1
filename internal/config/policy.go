package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	_ "time/tzdata"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Policy carries business settings that operators may change without a restart.
type Policy struct {
	TimeZone           string      `mapstructure:"timezone"`
	LowStockThreshold  int         `mapstructure:"lowStockThreshold"`
	AuditRetentionDays int         `mapstructure:"auditRetentionDays"`
	Sweep              SweepPolicy `mapstructure:"sweep"`

	location *time.Location
}

type SweepPolicy struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

func DefaultPolicy() Policy {
	return Policy{
		TimeZone:           "UTC",
		LowStockThreshold:  5,
		AuditRetentionDays: 365,
		Sweep: SweepPolicy{
			Enabled:  true,
			Schedule: "@every 1h",
		},
		location: time.UTC,
	}
}

// Location returns the business time zone used to decide what "today" is.
// The cached zone is only trusted while it still matches TimeZone.
func (p Policy) Location() *time.Location {
	zone := strings.TrimSpace(p.TimeZone)
	if zone == "" {
		zone = "UTC"
	}
	if p.location != nil && p.location.String() == zone {
		return p.location
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type PolicyHolder struct {
	current atomic.Value // holds Policy
}

// NewPolicyHolder reads policy.yml from the configured paths and keeps it
// current as the file changes. A missing file yields DefaultPolicy.
func NewPolicyHolder(cfg Config, log *zap.Logger) (*PolicyHolder, error) {
	return newPolicyHolder(cfg.PolicyPaths, log)
}

// StaticPolicy returns a holder that never reloads.
func StaticPolicy(p Policy) *PolicyHolder {
	holder := &PolicyHolder{}
	p.location = p.Location()
	holder.current.Store(p)
	return holder
}

func newPolicyHolder(paths []string, log *zap.Logger) (*PolicyHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.policy")

	v := viper.New()
	v.SetConfigName("policy")
	v.SetConfigType("yml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("GYMDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPolicy()
	v.SetDefault("policy.timezone", defaults.TimeZone)
	v.SetDefault("policy.lowStockThreshold", defaults.LowStockThreshold)
	v.SetDefault("policy.auditRetentionDays", defaults.AuditRetentionDays)
	v.SetDefault("policy.sweep.enabled", defaults.Sweep.Enabled)
	v.SetDefault("policy.sweep.schedule", defaults.Sweep.Schedule)

	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		found = false
	}

	policy, err := decodePolicy(v)
	if err != nil {
		return nil, err
	}

	holder := &PolicyHolder{}
	holder.current.Store(policy)

	if !found {
		log.Info("policy file not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodePolicy(v)
		if err != nil {
			log.Warn("invalid policy ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("policy reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *PolicyHolder) Get() Policy {
	if h == nil {
		return DefaultPolicy()
	}
	return h.current.Load().(Policy)
}

func decodePolicy(v *viper.Viper) (Policy, error) {
	var doc struct {
		Policy Policy `mapstructure:"policy"`
	}
	if err := v.Unmarshal(&doc); err != nil {
		return Policy{}, err
	}
	p := doc.Policy
	if err := validatePolicy(&p); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func validatePolicy(p *Policy) error {
	p.TimeZone = strings.TrimSpace(p.TimeZone)
	if p.TimeZone == "" {
		p.TimeZone = "UTC"
	}
	loc, err := time.LoadLocation(p.TimeZone)
	if err != nil {
		return fmt.Errorf("policy.timezone: %w", err)
	}
	p.location = loc

	if p.LowStockThreshold < 0 {
		return errors.New("policy.lowStockThreshold cannot be negative")
	}
	if p.AuditRetentionDays < 0 {
		return errors.New("policy.auditRetentionDays cannot be negative")
	}
	p.Sweep.Schedule = strings.TrimSpace(p.Sweep.Schedule)
	if p.Sweep.Enabled {
		if _, err := CronParser.Parse(p.Sweep.Schedule); err != nil {
			return fmt.Errorf("policy.sweep.schedule: %w", err)
		}
	}
	return nil
}

// CronParser accepts optional seconds and descriptors such as @daily.
var CronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)
