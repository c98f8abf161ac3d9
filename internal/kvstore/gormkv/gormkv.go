// Package gormkv implements the kvstore.Store interface on a GORM
// database. The same code path serves the SQLite and Postgres
// backends; only the dialector differs.
package gormkv

import (
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entry is one key-value row. Values are always JSON documents, so the
// column uses the JSON datatype and Postgres can index into it.
type Entry struct {
	Key   string         `gorm:"primaryKey;column:key"`
	Value datatypes.JSON `gorm:"column:value"`
}

// TableName fixes the table name regardless of dialect pluralization.
func (Entry) TableName() string {
	return "kv_entries"
}

// Store is a kvstore.Store backed by a GORM database.
type Store struct {
	db *gorm.DB
}

// New creates a Store over an open database.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Init migrates the schema.
func (s *Store) Init() error {
	if err := s.db.AutoMigrate(&Entry{}); err != nil {
		return fmt.Errorf("migrating kv schema: %w", err)
	}
	return nil
}

// Get returns the value for key.
func (s *Store) Get(key string) (string, bool, error) {
	var entry Entry
	err := s.db.First(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading key %q: %w", key, err)
	}
	return string(entry.Value), true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	entry := Entry{Key: key, Value: datatypes.JSON(value)}
	err := s.db.Save(&entry).Error
	if err != nil {
		return fmt.Errorf("writing key %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	err := s.db.Delete(&Entry{}, "key = ?", key).Error
	if err != nil {
		return fmt.Errorf("deleting key %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
