package storage

import (
	_ "github.com/mattn/go-sqlite3"

	"lynck-space/internal/config"
)

type SQLiteProvider struct {
	SQLProvider
}

func NewSQLiteProvider(config *config.Storage) *SQLiteProvider {
	provider := NewSQLProvider(config, "sqlite3", config.SQLite.Path+"?_foreign_keys=on")
	if provider == nil {
		return nil
	}
	return &SQLiteProvider{
		SQLProvider: *provider,
	}
}
