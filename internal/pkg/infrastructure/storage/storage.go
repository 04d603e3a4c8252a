package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrStoreFailed = errors.New("could not store data")
	ErrNotFound    = errors.New("not found")
)

type ConnectorFunc func() (*gorm.DB, error)

// NewSQLiteConnector opens an on-device database file. An empty path
// yields an in-memory database, which is what the tests use.
func NewSQLiteConnector(filePath string) ConnectorFunc {
	if filePath == "" {
		filePath = "file::memory:"
	}

	return func() (*gorm.DB, error) {
		db, err := gorm.Open(sqlite.Open(filePath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})

		if err == nil {
			sqldb, _ := db.DB()
			sqldb.SetMaxOpenConns(1)
		}

		return db, err
	}
}

type kvEntry struct {
	Key        string `gorm:"primaryKey;column:key"`
	Value      []byte `gorm:"column:value"`
	ModifiedOn time.Time
}

func (kvEntry) TableName() string {
	return "kv_entries"
}

// Store is a durable key value store holding serialized collections.
// The scheduling core does not care what backs it, only that reads and
// writes survive process restarts.
type Store struct {
	db *gorm.DB
}

func New(connect ConnectorFunc) (*Store, error) {
	db, err := connect()
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&kvEntry{})
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	var entry kvEntry

	result := s.db.WithContext(ctx).First(&entry, "key = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}

	return entry.Value, nil
}

func (s *Store) Write(ctx context.Context, key string, value []byte) error {
	entry := kvEntry{Key: key, Value: value, ModifiedOn: time.Now()}

	result := s.db.WithContext(ctx).Save(&entry)
	if result.Error != nil {
		return fmt.Errorf("%w: %s", ErrStoreFailed, result.Error.Error())
	}

	return nil
}
