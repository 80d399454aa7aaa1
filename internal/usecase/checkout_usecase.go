package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"storefront/internal/domain/checkout"
	"storefront/internal/domain/model"
	"storefront/internal/infra/session"
	"storefront/internal/platform/logger"
	"storefront/internal/platform/metrics"
	repo "storefront/internal/repository"
)

const (
	CheckoutStatusCommitted  = "committed"
	CheckoutStatusInProgress = "in_progress"
)

type CheckoutUsecase struct {
	registry  *SessionRegistry
	sessions  repo.SessionStore
	publisher repo.CheckoutEventPublisher
	recorder  Recorder
	clock     Clock
	log       logger.Logger
	currency  string
}

// DI
func NewCheckoutUsecase(
	registry *SessionRegistry,
	sessions repo.SessionStore,
	publisher repo.CheckoutEventPublisher,
	recorder Recorder,
	clock Clock,
	log logger.Logger,
	currency string,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		registry:  registry,
		sessions:  sessions,
		publisher: publisher,
		recorder:  recorder,
		clock:     clock,
		log:       log,
		currency:  currency,
	}
}

type CheckoutOutput struct {
	Status  string          `json:"status"`
	OrderID string          `json:"order_id,omitempty"`
	Order   json.RawMessage `json:"order,omitempty"`
}

// 確認ページ用
type ConfirmationOutput struct {
	OrderID string                  `json:"order_id"`
	Order   json.RawMessage         `json:"order"`
	Cart    *model.CheckoutSnapshot `json:"cart,omitempty"`
}

// Checkout はカートを注文に変える。
// 二重実行は in_progress を返すだけでエラーにしない。
func (u *CheckoutUsecase) Checkout(ctx context.Context, sessionID string) (CheckoutOutput, error) {
	if sessionID == "" {
		return CheckoutOutput{}, NewHTTPError(http.StatusUnauthorized, "no session")
	}

	e := u.registry.get(ctx, sessionID)
	start := u.clock.Now()

	res, err := e.checkout.Checkout(ctx)
	elapsed := u.clock.Now().Sub(start)

	switch {
	case err == nil:
	case errors.Is(err, checkout.ErrInProgress):
		u.recorder.Checkout(metrics.OutcomeInProgress, elapsed)
		return CheckoutOutput{Status: CheckoutStatusInProgress}, nil
	case errors.Is(err, checkout.ErrEmptyCart):
		u.recorder.Checkout(metrics.OutcomeEmptyCart, elapsed)
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "cart empty")
	default:
		u.recorder.Checkout(metrics.OutcomeFailed, elapsed)
		return CheckoutOutput{}, NewHTTPError(http.StatusBadGateway, "order could not be created, please retry")
	}

	u.recorder.Checkout(metrics.OutcomeCommitted, elapsed)

	//イベントは送れなくても注文は確定済み。中身は送信したスナップショット。
	ev := model.CheckoutCompleted{
		OrderID:      res.Order.ID,
		SessionID:    sessionID,
		Total:        res.Snapshot.Total,
		CurrencyCode: u.currency,
		ItemCount:    res.Snapshot.ItemCount(),
	}
	if err := u.publisher.PublishCheckoutCompleted(context.WithoutCancel(ctx), ev); err != nil {
		u.log.Warnf("checkout event publish failed: order_id=%s err=%v", res.Order.ID, err)
	}

	return CheckoutOutput{
		Status:  CheckoutStatusCommitted,
		OrderID: res.Order.ID,
		Order:   res.Order.Payload,
	}, nil
}

// サイドチャネルから直近の注文とスナップショットを読む
func (u *CheckoutUsecase) Confirmation(ctx context.Context, sessionID string) (ConfirmationOutput, error) {
	if sessionID == "" {
		return ConfirmationOutput{}, NewHTTPError(http.StatusUnauthorized, "no session")
	}

	side := session.NewScope(u.sessions, sessionID)

	orderID, err := side.Get(ctx, checkout.KeyCheckoutOrderID)
	if errors.Is(err, repo.ErrNotFound) {
		return ConfirmationOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return ConfirmationOutput{}, NewHTTPError(http.StatusInternalServerError, "session store error")
	}

	out := ConfirmationOutput{OrderID: orderID}

	if raw, err := side.Get(ctx, checkout.KeyCheckoutOrder); err == nil && json.Valid([]byte(raw)) {
		out.Order = json.RawMessage(raw)
	}

	//スナップショットが無くても注文は見せる
	if raw, err := side.Get(ctx, checkout.KeyCheckoutCart); err == nil {
		var snap model.CheckoutSnapshot
		if err := json.Unmarshal([]byte(raw), &snap); err == nil {
			out.Cart = &snap
		} else {
			u.log.Warnf("checkout snapshot decode failed: session_id=%s err=%v", sessionID, err)
		}
	}

	return out, nil
}
