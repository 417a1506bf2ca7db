package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/salon-portal/internal/auth"
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/session"
)

// SessionStore keeps client session keys in the client_sessions table, scoped by owner.
// It works on any gorm dialect; the server uses postgres and the CLI sqlite.
type SessionStore struct {
	db    *gorm.DB
	owner string
}

func NewSessionStore(db *gorm.DB, owner string) auth.Store {
	return &SessionStore{db: db, owner: owner}
}

func (r *SessionStore) Get(ctx context.Context, key string) (string, bool, error) {
	var rec session.Record
	err := r.db.WithContext(ctx).
		Where(map[string]interface{}{"owner": r.owner, "key": key}).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return rec.Value, true, nil
}

func (r *SessionStore) Set(ctx context.Context, key, value string) error {
	rec := session.Record{Owner: r.owner, Key: key, Value: value}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
}

func (r *SessionStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where(map[string]interface{}{"owner": r.owner, "key": keys}).
		Delete(&session.Record{}).Error
}
