package db

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shinyyama/hoko/internal/config"
	"github.com/shinyyama/hoko/internal/model"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	maxOpenConns    = 10
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
)

// address resolves DB_HOST into the driver's net(addr) form. A Cloud SQL
// instance name wins over the host.
func address(cfg *config.Config) string {
	host := cfg.DBHost
	switch {
	case cfg.InstanceConnectionName != "":
		return "unix(/cloudsql/" + cfg.InstanceConnectionName + ")"
	case strings.HasPrefix(host, "tcp("), strings.HasPrefix(host, "unix("):
		return host
	case strings.HasPrefix(host, "/"):
		return "unix(" + host + ")"
	}
	return "tcp(" + host + ":" + cfg.DBPort + ")"
}

func BuildDSN(cfg *config.Config) string {
	return fmt.Sprintf("%s:%s@%s/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.DBUser, cfg.DBPassword, address(cfg), cfg.DBName)
}

func Connect(cfg *config.Config) (*gorm.DB, error) {
	conn, err := gorm.Open(mysql.Open(BuildDSN(cfg)), &gorm.Config{
		PrepareStmt: true,
		Logger:      logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	return conn, nil
}

// ConnectRetry keeps dialing with a doubling delay, capped at 30s, until
// the database answers or ctx ends.
func ConnectRetry(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	delay := time.Second
	for attempt := 1; ; attempt++ {
		conn, err := Connect(cfg)
		if err == nil {
			return conn, nil
		}
		log.Printf("[db] stage=connect attempt=%d err=%v", attempt, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
}

// Migrate creates or updates every table the marketplace reads and writes.
func Migrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&model.City{},
		&model.User{},
		&model.Post{},
		&model.Offer{},
		&model.Notification{},
		&model.Message{},
		&model.OTPCode{},
	)
}
