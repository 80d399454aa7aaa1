package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"storefront/internal/domain/cart"
	"storefront/internal/domain/checkout"
	"storefront/internal/domain/model"
	"storefront/internal/infra/session"
	"storefront/internal/platform/logger"
	repo "storefront/internal/repository"

	"golang.org/x/sync/singleflight"
)

type IDGenerator interface {
	NewID() string
}

type Clock interface {
	Now() time.Time
}

// 計測（metrics.Metrics が実装）
type Recorder interface {
	CartOp(op string)
	Checkout(outcome string, elapsed time.Duration)
}

// セッション1つ分（カートとチェックアウトは必ず同じカートを指す）
type sessionEntry struct {
	cart     *cart.Store
	checkout *checkout.Orchestrator
	lastSeen time.Time
}

// SessionRegistry はセッションIDごとにカートとオーケストレーターを持つ。
type SessionRegistry struct {
	sessions repo.SessionStore
	orders   repo.OrderService
	log      logger.Logger
	idGen    IDGenerator
	clock    Clock
	cfg      checkout.Config

	mu      sync.Mutex
	entries map[string]*sessionEntry
	// 初回アクセスの復元をセッションごとに1回にまとめる
	loading singleflight.Group
}

// DI
func NewSessionRegistry(
	sessions repo.SessionStore,
	orders repo.OrderService,
	log logger.Logger,
	idGen IDGenerator,
	clock Clock,
	cfg checkout.Config,
) *SessionRegistry {
	return &SessionRegistry{
		sessions: sessions,
		orders:   orders,
		log:      log,
		idGen:    idGen,
		clock:    clock,
		cfg:      cfg,
		entries:  make(map[string]*sessionEntry),
	}
}

// 無ければ保存済みのカートから復元して作る。
// 復元の読み込み中は r.mu を持たない（他のセッションを止めない）。
func (r *SessionRegistry) get(ctx context.Context, sessionID string) *sessionEntry {
	if e, ok := r.lookup(sessionID); ok {
		return e
	}

	v, _, _ := r.loading.Do(sessionID, func() (interface{}, error) {
		if e, ok := r.lookup(sessionID); ok {
			return e, nil
		}

		store := r.restore(ctx, sessionID)
		store.Subscribe(NewCartPersister(r.sessions, sessionID, r.log).Persist)

		orch := checkout.NewOrchestrator(
			store,
			session.NewScope(r.sessions, sessionID),
			r.orders,
			r.log.With("session_id", sessionID),
			r.idGen.NewID,
			r.cfg,
		)

		e := &sessionEntry{cart: store, checkout: orch, lastSeen: r.clock.Now()}
		r.mu.Lock()
		r.entries[sessionID] = e
		r.mu.Unlock()
		return e, nil
	})
	return v.(*sessionEntry)
}

func (r *SessionRegistry) lookup(sessionID string) (*sessionEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[sessionID]
	if ok {
		e.lastSeen = r.clock.Now()
	}
	return e, ok
}

func (r *SessionRegistry) restore(ctx context.Context, sessionID string) *cart.Store {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	raw, err := r.sessions.Get(ctx, sessionID, KeyCart)
	if errors.Is(err, repo.ErrNotFound) {
		return cart.NewStore()
	}
	if err != nil {
		r.log.Warnf("cart restore failed: session_id=%s err=%v", sessionID, err)
		return cart.NewStore()
	}

	var state model.CartState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		r.log.Warnf("cart restore decode failed: session_id=%s err=%v", sessionID, err)
		return cart.NewStore()
	}
	return cart.Restore(state)
}

// EvictIdle は idle 以上触られていないセッションをメモリから外す。
// チェックアウト中のものは残す。カートは保存済みなので次回復元される。
func (r *SessionRegistry) EvictIdle(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.clock.Now().Add(-idle)
	n := 0
	for id, e := range r.entries {
		if e.lastSeen.After(cutoff) || e.checkout.Busy() {
			continue
		}
		delete(r.entries, id)
		n++
	}
	return n
}

// RunJanitor は ctx が終わるまで定期的に EvictIdle を呼ぶ。
func (r *SessionRegistry) RunJanitor(ctx context.Context, interval time.Duration, idle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.EvictIdle(idle); n > 0 {
				r.log.Debugf("evicted idle sessions: %d", n)
			}
		}
	}
}
