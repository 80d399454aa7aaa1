package usecase_test

import (
	"context"
	"strconv"
	"sync"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/stretchr/testify/mock"
)

// =====================
// Mocks
// =====================

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Error(1)
}

func (m *ProductRepoMock) FindByID(ctx context.Context, storeID string, productID string) (model.Product, error) {
	args := m.Called(ctx, storeID, productID)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) FindVariant(ctx context.Context, productID string, variantID string) (model.Variant, error) {
	args := m.Called(ctx, productID, variantID)
	v, _ := args.Get(0).(model.Variant)
	return v, args.Error(1)
}

var _ repo.ProductRepository = (*ProductRepoMock)(nil)

type CollectionRepoMock struct{ mock.Mock }

func (m *CollectionRepoMock) ListByStore(ctx context.Context, storeID string) ([]model.Collection, error) {
	args := m.Called(ctx, storeID)
	cs, _ := args.Get(0).([]model.Collection)
	return cs, args.Error(1)
}

func (m *CollectionRepoMock) FindByID(ctx context.Context, storeID string, collectionID string) (model.Collection, error) {
	args := m.Called(ctx, storeID, collectionID)
	c, _ := args.Get(0).(model.Collection)
	return c, args.Error(1)
}

var _ repo.CollectionRepository = (*CollectionRepoMock)(nil)

type OrderServiceMock struct{ mock.Mock }

func (m *OrderServiceMock) CreateOrder(ctx context.Context, req model.OrderRequest) (model.Order, error) {
	args := m.Called(ctx, req)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

var _ repo.OrderService = (*OrderServiceMock)(nil)

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) PublishCheckoutCompleted(ctx context.Context, ev model.CheckoutCompleted) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

var _ repo.CheckoutEventPublisher = (*PublisherMock)(nil)

// =====================
// fakes
// =====================

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return "id-" + strconv.Itoa(g.n)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recorderSpy struct {
	mu       sync.Mutex
	ops      []string
	outcomes []string
}

func (r *recorderSpy) CartOp(op string) {
	r.mu.Lock()
	r.ops = append(r.ops, op)
	r.mu.Unlock()
}

func (r *recorderSpy) Checkout(outcome string, elapsed time.Duration) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, outcome)
	r.mu.Unlock()
}
