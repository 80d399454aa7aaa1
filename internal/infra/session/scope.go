package session

import (
	"context"

	repo "storefront/internal/repository"
)

// Scope は1セッションに固定したビュー
type Scope struct {
	store     repo.SessionStore
	sessionID string
}

func NewScope(store repo.SessionStore, sessionID string) *Scope {
	return &Scope{store: store, sessionID: sessionID}
}

func (s *Scope) Get(ctx context.Context, key string) (string, error) {
	return s.store.Get(ctx, s.sessionID, key)
}

func (s *Scope) Set(ctx context.Context, key string, value string) error {
	return s.store.Set(ctx, s.sessionID, key, value)
}
