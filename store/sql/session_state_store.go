package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-brokerage/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SessionStateStore keeps one session state row per client id.
type SessionStateStore struct {
	db       *bun.DB
	repo     repository.Repository[*sessionStateRecord]
	clientID string
	now      func() time.Time
}

func NewSessionStateStore(db *bun.DB, clientID string) (*SessionStateStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, fmt.Errorf("sqlstore: client id is required")
	}
	repo := repository.NewRepository[*sessionStateRecord](db, sessionStateHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid session state repository wiring: %w", err)
		}
	}
	return &SessionStateStore{
		db:       db,
		repo:     repo,
		clientID: clientID,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// NewSessionStateStoreFromPersistence accepts a *bun.DB or any client
// exposing DB() *bun.DB, such as a go-persistence-bun client.
func NewSessionStateStoreFromPersistence(client any, clientID string) (*SessionStateStore, error) {
	db, err := resolveBunDB(client)
	if err != nil {
		return nil, err
	}
	return NewSessionStateStore(db, clientID)
}

func (s *SessionStateStore) ClientID() string {
	if s == nil {
		return ""
	}
	return s.clientID
}

func (s *SessionStateStore) Load(ctx context.Context) (core.SessionState, bool, error) {
	if s == nil || s.db == nil {
		return core.SessionState{}, false, fmt.Errorf("sqlstore: session state store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("client_id", "=", s.clientID),
		repository.OrderBy("updated_at DESC"),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.SessionState{}, false, err
	}
	if len(records) == 0 {
		return core.SessionState{}, false, nil
	}
	return records[0].toDomain(), true, nil
}

func (s *SessionStateStore) Save(ctx context.Context, state core.SessionState) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: session state store is not configured")
	}
	record := newSessionStateRecord(s.clientID, state, s.now())
	record.ID = uuid.NewString()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(record).
			On("CONFLICT (client_id) DO UPDATE").
			Set("access_token = EXCLUDED.access_token").
			Set("refresh_token = EXCLUDED.refresh_token").
			Set("access_token_expires_at = EXCLUDED.access_token_expires_at").
			Set("refresh_token_expires_at = EXCLUDED.refresh_token_expires_at").
			Set("authorization_url = EXCLUDED.authorization_url").
			Set("redirect_code = EXCLUDED.redirect_code").
			Set("logged_in = EXCLUDED.logged_in").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		return err
	})
}

func (s *SessionStateStore) Delete(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: session state store is not configured")
	}
	_, err := s.db.NewDelete().
		Model((*sessionStateRecord)(nil)).
		Where("client_id = ?", s.clientID).
		Exec(ctx)
	return err
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
