package session

import "time"

// Record is one persisted client key (token or user) for a session owner.
type Record struct {
	ID        int64     `gorm:"primaryKey"`
	Owner     string    `gorm:"column:owner;not null;uniqueIndex:idx_client_sessions_owner_key"`
	Key       string    `gorm:"column:key;not null;uniqueIndex:idx_client_sessions_owner_key"`
	Value     string    `gorm:"column:value;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Record) TableName() string {
	return "client_sessions"
}
