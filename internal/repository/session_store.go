package repository

import "context"

// セッション単位の key→string ストア
// 見つからない場合は ErrNotFound を返す。
type SessionStore interface {
	Get(ctx context.Context, sessionID string, key string) (string, error)
	Set(ctx context.Context, sessionID string, key string, value string) error
	Delete(ctx context.Context, sessionID string, key string) error
}
