package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/platform/logger"
)

type State string

const (
	StateIdle         State = "IDLE"
	StateSnapshotting State = "SNAPSHOTTING"
	StateSubmitting   State = "SUBMITTING"
	StateCommitting   State = "COMMITTING"
	StateFailed       State = "FAILED"
)

// サイドチャネルのキー（確認ページが読む）
const (
	KeyCheckoutCart    = "checkout_cart"
	KeyCheckoutOrder   = "checkout_order"
	KeyCheckoutOrderID = "checkout_order_id"
)

var (
	// 空のカート。副作用なしで即時に返す。
	ErrEmptyCart = errors.New("cart is empty")
	// 送信中の二重実行。呼び出し側は黙って無視する。
	ErrInProgress = errors.New("checkout already in progress")
	// 成功レスポンスだがorder_idが使えない
	ErrMissingOrderID = errors.New("order response has no order_id")
)

// SubmissionError は注文送信の失敗。カートはそのまま残る。
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("order submission failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// オーケストレーターが触るカートの操作
// State は中身とVersionを同じロックの中で返すこと。
type Cart interface {
	State() model.CartState
	Clear() model.CartState
}

type SideChannel interface {
	Set(ctx context.Context, key string, value string) error
}

type OrderSubmitter interface {
	CreateOrder(ctx context.Context, req model.OrderRequest) (model.Order, error)
}

// サイドチャネル書き込みの既定の上限
const defaultSideChannelTimeout = 5 * time.Second

type Config struct {
	CurrencyCode string
	// 0ならタイムアウトなし
	Timeout time.Duration
	// スナップショット・注文の書き込み1回ごとの上限（0なら5秒）
	SideChannelTimeout time.Duration
}

// Result は確定した注文と、送信したカートの中身
type Result struct {
	Order    model.Order
	Snapshot model.CartState
}

// Orchestrator は1つのカートの「カート→注文」を受け持つ。
// 順序は必ず snapshot → submit → commit(書き込み→clear)。
type Orchestrator struct {
	cart   Cart
	side   SideChannel
	orders OrderSubmitter
	log    logger.Logger
	newKey func() string
	cfg    Config

	mu             sync.Mutex
	state          State
	pendingKey     string
	pendingVersion uint64
}

// DI
func NewOrchestrator(
	cart Cart,
	side SideChannel,
	orders OrderSubmitter,
	log logger.Logger,
	newKey func() string,
	cfg Config,
) *Orchestrator {
	if cfg.SideChannelTimeout <= 0 {
		cfg.SideChannelTimeout = defaultSideChannelTimeout
	}
	return &Orchestrator{
		cart:   cart,
		side:   side,
		orders: orders,
		log:    log,
		newKey: newKey,
		cfg:    cfg,
		state:  StateIdle,
	}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// 送信中〜コミット中
func (o *Orchestrator) Busy() bool {
	return o.State() != StateIdle
}

// Checkout は1回分のチェックアウトを実行する。
// 呼び出し元のctxがキャンセルされても送信とコミットは最後まで行う。
func (o *Orchestrator) Checkout(ctx context.Context) (Result, error) {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return Result{}, ErrInProgress
	}
	snap := o.cart.State()
	if snap.IsEmpty() {
		o.mu.Unlock()
		return Result{}, ErrEmptyCart
	}
	o.state = StateSnapshotting
	key := o.idempotencyKeyLocked(snap.Version)
	o.mu.Unlock()

	// ページ遷移（接続断）で失敗扱いにしない
	runCtx := context.WithoutCancel(ctx)

	o.writeSnapshot(runCtx, snap)

	o.setState(StateSubmitting)
	order, err := o.submit(runCtx, snap, key)
	if err != nil {
		o.setState(StateFailed)
		o.log.Warnf("checkout failed: idempotency_key=%s err=%v", key, err)
		o.setState(StateIdle)
		return Result{}, &SubmissionError{Err: err}
	}

	o.setState(StateCommitting)
	o.commit(runCtx, order)

	o.mu.Lock()
	o.pendingKey = ""
	o.state = StateIdle
	o.mu.Unlock()

	return Result{Order: order, Snapshot: snap}, nil
}

// カートが変わっていなければ同じキーを使い回す（再試行の重複注文防止）
func (o *Orchestrator) idempotencyKeyLocked(version uint64) string {
	if o.pendingKey != "" && o.pendingVersion == version {
		return o.pendingKey
	}
	o.pendingKey = o.newKey()
	o.pendingVersion = version
	return o.pendingKey
}

// スナップショットの失敗は記録するだけ
func (o *Orchestrator) writeSnapshot(ctx context.Context, snap model.CartState) {
	data, err := json.Marshal(model.CheckoutSnapshot{Items: snap.Items, Total: snap.Total})
	if err != nil {
		o.log.Warnf("checkout snapshot encode failed: %v", err)
		return
	}
	if err := o.setSide(ctx, KeyCheckoutCart, string(data)); err != nil {
		o.log.Warnf("checkout snapshot write failed: %v", err)
	}
}

// 1回ごとに上限付き
func (o *Orchestrator) setSide(ctx context.Context, key string, value string) error {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.SideChannelTimeout)
	defer cancel()
	return o.side.Set(ctx, key, value)
}

func (o *Orchestrator) submit(ctx context.Context, snap model.CartState, key string) (model.Order, error) {
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	req := model.OrderRequest{
		LineItems:      toLineItems(snap.Items),
		CurrencyCode:   o.cfg.CurrencyCode,
		IdempotencyKey: key,
	}

	order, err := o.orders.CreateOrder(ctx, req)
	if err != nil {
		return model.Order{}, err
	}
	order.ID = strings.TrimSpace(order.ID)
	if order.ID == "" {
		return model.Order{}, ErrMissingOrderID
	}
	return order, nil
}

// 注文を書き込んでからカートを空にする。
// 注文は受理済みなので書き込み失敗でもclearは行う。
func (o *Orchestrator) commit(ctx context.Context, order model.Order) {
	payload := order.Payload
	if len(payload) == 0 {
		payload, _ = json.Marshal(map[string]string{"order_id": order.ID})
	}
	if err := o.setSide(ctx, KeyCheckoutOrder, string(payload)); err != nil {
		o.log.Errorf("checkout order write failed: order_id=%s err=%v", order.ID, err)
	}
	if err := o.setSide(ctx, KeyCheckoutOrderID, order.ID); err != nil {
		o.log.Errorf("checkout order id write failed: order_id=%s err=%v", order.ID, err)
	}

	o.cart.Clear()
	o.log.Infof("checkout committed: order_id=%s", order.ID)
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func toLineItems(items []model.CartItem) []model.OrderLineItem {
	out := make([]model.OrderLineItem, 0, len(items))
	for _, it := range items {
		li := model.OrderLineItem{
			ProductID: it.Product.ID,
			Quantity:  it.Quantity,
		}
		if it.Variant != nil && it.Variant.ID != "" {
			id := it.Variant.ID
			li.VariantID = &id
		}
		out = append(out, li)
	}
	return out
}
