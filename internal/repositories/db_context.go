package repositories

import (
	"fmt"
	"github.com/glebarez/sqlite"
	"github.com/maxaizer/jobboard-alerts/internal/domain/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"os"
	"path/filepath"
	"strings"
)

type DbContext struct {
	DB *gorm.DB
}

func NewDbContext(connectionString string) (*DbContext, error) {
	if !isPostgres(connectionString) {
		if err := os.MkdirAll(filepath.Dir(connectionString), 0755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
	}

	db, err := gorm.Open(dialectorFor(connectionString), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}

	return &DbContext{DB: db}, nil
}

// dialectorFor picks postgres for URL or keyword DSNs and falls back to a sqlite file.
func dialectorFor(connectionString string) gorm.Dialector {
	if isPostgres(connectionString) {
		return postgres.Open(connectionString)
	}
	return sqlite.Open(connectionString)
}

func isPostgres(connectionString string) bool {
	return strings.HasPrefix(connectionString, "postgres://") ||
		strings.HasPrefix(connectionString, "postgresql://") ||
		strings.Contains(connectionString, "host=")
}

func (c *DbContext) Migrate() error {
	err := c.DB.AutoMigrate(models.ArbitraryData{})
	if err != nil {
		return fmt.Errorf("failed to migrate ArbitraryData entity: %w", err)
	}

	err = c.DB.AutoMigrate(models.Subscriber{})
	if err != nil {
		return fmt.Errorf("failed to migrate Subscriber entity: %w", err)
	}

	return nil
}

// SetMaxOpenConnections limits the pool; zero keeps the driver default.
func (c *DbContext) SetMaxOpenConnections(n int) error {
	if n <= 0 {
		return nil
	}
	db, err := c.DB.DB()
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(n)
	db.SetMaxIdleConns(n)
	return nil
}

func (c *DbContext) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return err
	}

	return db.Close()
}
