// Package directory reads the external USERSLOG user directory: a
// read-only record of which user names logged in today. The directory only
// feeds the presence view; message routing never consults it, and any
// failure degrades to an empty result.
package directory

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// User is one directory entry. The directory knows names only; connection
// ids and rooms come from the live registry.
type User struct {
	Name string `json:"name"`
}

// Fetcher yields the names logged in since a point in time.
type Fetcher interface {
	ActiveUsers(ctx context.Context, since time.Time) ([]User, error)
}

// Store reads the USERSLOG table over GORM.
type Store struct {
	db *gorm.DB
}

type userLogRow struct {
	RecordID int64     `gorm:"column:RecordId;primaryKey"`
	UserName string    `gorm:"column:UserName"`
	LogInOut string    `gorm:"column:LogInOut"`
	LoggedAt time.Time `gorm:"column:Date____"`
}

func (userLogRow) TableName() string { return "USERSLOG" }

// Open connects to the directory database. The table is owned by an
// external system; no migration is run here.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("directory connect: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an existing GORM handle; used by tests.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ActiveUsers returns the distinct user names with a log entry at or after
// since, ordered by first appearance.
func (s *Store) ActiveUsers(ctx context.Context, since time.Time) ([]User, error) {
	var rows []userLogRow
	err := s.db.WithContext(ctx).
		Where("Date____ >= ? AND UserName <> ?", since, " ").
		Order("RecordId").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("directory query: %w", err)
	}

	seen := make(map[string]struct{}, len(rows))
	users := make([]User, 0, len(rows))
	for _, row := range rows {
		if _, dup := seen[row.UserName]; dup {
			continue
		}
		seen[row.UserName] = struct{}{}
		users = append(users, User{Name: row.UserName})
	}
	return users, nil
}
