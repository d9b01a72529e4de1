package db

import (
	"time"

	"github.com/smallbiznis/gymdesk/internal/config"
)

// Config holds connection pool settings.
type Config struct {
	Type            string
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func PoolConfig(cfg config.Config) Config {
	out := Config{
		Type:            cfg.DBType,
		MaxIdleConn:     cfg.DBMaxIdleConn,
		MaxOpenConn:     cfg.DBMaxOpenConn,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.DBConnMaxIdleTime) * time.Second,
	}
	// sqlite allows a single writer; a shared connection avoids SQLITE_BUSY.
	if out.Type == "sqlite" {
		out.MaxOpenConn = 1
		out.MaxIdleConn = 1
	}
	return out
}
