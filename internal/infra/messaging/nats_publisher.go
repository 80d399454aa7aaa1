package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront/internal/domain/model"

	"github.com/nats-io/nats.go"
)

const SubjectCheckoutCompleted = "checkout.completed"

// NATSに接続する（再接続は無制限）
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("storefront"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats %s: %w", url, err)
	}
	return conn, nil
}

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(conn *nats.Conn) (*NATSPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("NATS connection cannot be nil")
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) PublishCheckoutCompleted(ctx context.Context, ev model.CheckoutCompleted) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", SubjectCheckoutCompleted, err)
	}
	if err := p.conn.Publish(SubjectCheckoutCompleted, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", SubjectCheckoutCompleted, err)
	}
	return nil
}

// NATS未設定のとき
type NopPublisher struct{}

func (NopPublisher) PublishCheckoutCompleted(ctx context.Context, ev model.CheckoutCompleted) error {
	return nil
}
