package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DBService owns the pooled Postgres connection shared by the
// repositories.
type DBService struct {
	DB *sql.DB
}

// NewDBService opens a pooled connection for the given connection string
// and verifies it with a ping. Pool limits are sized for a single-tenant
// ledger: replay reads dominate and writes are rare.
func NewDBService(connStr string) (*DBService, error) {
	if connStr == "" {
		return nil, fmt.Errorf("missing database connection string")
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("could not open db connection: %v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to the database: %v", err)
	}

	return &DBService{DB: db}, nil
}

// Health pings the database; the readiness probe maps "down" to 503.
func (s *DBService) Health() map[string]string {
	if err := s.DB.Ping(); err != nil {
		return map[string]string{
			"status": "down",
			"error":  fmt.Sprintf("db down: %v", err),
		}
	}
	return map[string]string{
		"status":  "up",
		"message": "database reachable",
	}
}

func (s *DBService) Close() error {
	return s.DB.Close()
}
