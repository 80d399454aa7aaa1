package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/platform/logger"
	repo "storefront/internal/repository"
)

// 永続化したカートのキー
const KeyCart = "cart"

const persistTimeout = 3 * time.Second

// CartPersister は1セッションのカートを KeyCart に保存する。
// 通知は順不同で届くので、書いたものより古いVersionは捨てる。
type CartPersister struct {
	sessions  repo.SessionStore
	sessionID string
	log       logger.Logger

	mu   sync.Mutex
	last uint64
}

func NewCartPersister(sessions repo.SessionStore, sessionID string, log logger.Logger) *CartPersister {
	return &CartPersister{sessions: sessions, sessionID: sessionID, log: log}
}

// Persist は cart.Store.Subscribe にそのまま渡せる。失敗はログのみ。
func (p *CartPersister) Persist(state model.CartState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if state.Version <= p.last {
		return
	}
	// 失敗しても古い状態で上書きしない
	p.last = state.Version

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	//空なら消す（復元しても空になる）
	if state.IsEmpty() {
		if err := p.sessions.Delete(ctx, p.sessionID, KeyCart); err != nil {
			p.log.Warnf("cart persist delete failed: session_id=%s err=%v", p.sessionID, err)
		}
		return
	}

	data, err := json.Marshal(state)
	if err != nil {
		p.log.Warnf("cart persist encode failed: session_id=%s err=%v", p.sessionID, err)
		return
	}
	if err := p.sessions.Set(ctx, p.sessionID, KeyCart, string(data)); err != nil {
		p.log.Warnf("cart persist failed: session_id=%s err=%v", p.sessionID, err)
	}
}
