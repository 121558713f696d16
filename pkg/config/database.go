package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/jdziat/simple-async-jobs/pkg/storage"
)

// Database configures the job store.
type Database struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	Migrate         bool
}

func getDatabaseConfig(v *viper.Viper) *Database {
	pool := storage.DefaultPoolConfig()
	return &Database{
		Driver:          getStringOrDefault(v, "database.driver", storage.DriverSQLite),
		DSN:             getStringOrDefault(v, "database.dsn", "asyncq.db"),
		MaxOpenConns:    getIntOrDefault(v, "database.max_open_conns", pool.MaxOpenConns),
		MaxIdleConns:    getIntOrDefault(v, "database.max_idle_conns", pool.MaxIdleConns),
		ConnMaxLifetime: getDurationOrDefault(v, "database.conn_max_lifetime", pool.ConnMaxLifetime),
		ConnMaxIdleTime: getDurationOrDefault(v, "database.conn_max_idle_time", pool.ConnMaxIdleTime),
		Migrate:         getBoolOrDefault(v, "database.migrate", true),
	}
}

// PoolOptions converts the pool settings for storage.Open.
func (d *Database) PoolOptions() []storage.PoolOption {
	return []storage.PoolOption{
		storage.MaxOpenConns(d.MaxOpenConns),
		storage.MaxIdleConns(d.MaxIdleConns),
		storage.ConnMaxLifetime(d.ConnMaxLifetime),
		storage.ConnMaxIdleTime(d.ConnMaxIdleTime),
	}
}

// Open opens the configured storage.
func (d *Database) Open() (*storage.GormStorage, error) {
	return storage.Open(d.Driver, d.DSN, d.PoolOptions()...)
}
