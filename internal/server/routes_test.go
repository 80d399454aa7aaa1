package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain/checkout"
	"storefront/internal/domain/model"
	"storefront/internal/handler"
	"storefront/internal/infra/session"
	"storefront/internal/middleware"
	"storefront/internal/platform/logger"
	"storefront/internal/platform/metrics"
	repo "storefront/internal/repository"
	"storefront/internal/server"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =====================
// fakes
// =====================

type catalogFake struct {
	products    []model.Product
	collections []model.Collection
}

func (f *catalogFake) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, error) {
	out := []model.Product{}
	for _, p := range f.products {
		if q.Handles != nil && !contains(q.Handles, p.Handle) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *catalogFake) FindByID(ctx context.Context, storeID string, productID string) (model.Product, error) {
	for _, p := range f.products {
		if p.ID == productID {
			return p, nil
		}
	}
	return model.Product{}, repo.ErrNotFound
}

func (f *catalogFake) FindVariant(ctx context.Context, productID string, variantID string) (model.Variant, error) {
	return model.Variant{}, repo.ErrNotFound
}

func (f *catalogFake) ListByStore(ctx context.Context, storeID string) ([]model.Collection, error) {
	return f.collections, nil
}

func (f *catalogFake) findCollection(id string) (model.Collection, error) {
	for _, c := range f.collections {
		if c.ID == id {
			return c, nil
		}
	}
	return model.Collection{}, repo.ErrNotFound
}

// CollectionRepository 用（FindByIDの衝突回避）
type collectionFake struct{ *catalogFake }

func (f collectionFake) FindByID(ctx context.Context, storeID string, collectionID string) (model.Collection, error) {
	return f.findCollection(collectionID)
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

type ordersFake struct {
	mu    sync.Mutex
	calls []model.OrderRequest
	fail  bool
}

func (f *ordersFake) CreateOrder(ctx context.Context, req model.OrderRequest) (model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.fail {
		return model.Order{}, context.DeadlineExceeded
	}
	return model.Order{ID: "ord_1", Payload: json.RawMessage(`{"order_id":"ord_1"}`)}, nil
}

type ids struct {
	mu sync.Mutex
	n  int
}

func (g *ids) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return "id-" + strconv.Itoa(g.n)
}

type clock struct{}

func (clock) Now() time.Time { return time.Now() }

// =====================
// helper
// =====================

type app struct {
	e      *echo.Echo
	orders *ordersFake
	cookie *http.Cookie
}

func newApp(t *testing.T) *app {
	t.Helper()

	cat := &catalogFake{
		products: []model.Product{
			{ID: "p1", Handle: "mug", Title: "Mug", Price: decimal.NewNullDecimal(decimal.NewFromInt(10))},
			{ID: "p2", Handle: "tee", Title: "Tee", Price: decimal.NewNullDecimal(decimal.NewFromInt(5))},
		},
		collections: []model.Collection{
			{ID: "c1", Name: "Drinkware", ProductHandles: pq.StringArray{"mug"}},
		},
	}
	orders := &ordersFake{}
	sessions := session.NewMemoryStore()
	log := logger.NewNop()
	idGen := &ids{}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	registry := usecase.NewSessionRegistry(sessions, orders, log, idGen, clock{}, checkout.Config{CurrencyCode: "USD"})

	e := server.New(config.Config{})
	sessionMW := middleware.Session(middleware.SessionConfig{Secret: []byte("secret"), TTL: time.Hour}, idGen.NewID, time.Now)
	server.RegisterRoutes(e, server.Handlers{
		Catalog:  handler.NewCatalogHandler(usecase.NewCatalogUsecase(cat, collectionFake{cat}, "store-1")),
		Cart:     handler.NewCartHandler(usecase.NewCartUsecase(registry, cat, m, "store-1")),
		Checkout: handler.NewCheckoutHandler(usecase.NewCheckoutUsecase(registry, sessions, messagingNop{}, m, clock{}, log, "USD")),
		Metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}, sessionMW)

	return &app{e: e, orders: orders}
}

type messagingNop struct{}

func (messagingNop) PublishCheckoutCompleted(ctx context.Context, ev model.CheckoutCompleted) error {
	return nil
}

func (a *app) do(t *testing.T, method string, path string, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if a.cookie != nil {
		req.AddCookie(a.cookie)
	}

	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.SessionCookieName {
			a.cookie = ck
		}
	}
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// =====================
// catalog
// =====================

func TestRoutes_Catalog(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodGet, "/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[usecase.ProductListOutput](t, rec)
	assert.Len(t, all.Items, 2)

	rec = a.do(t, http.MethodGet, "/products?collection=c1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	filtered := decode[usecase.ProductListOutput](t, rec)
	require.Len(t, filtered.Items, 1)
	assert.Equal(t, "mug", filtered.Items[0].Handle)

	rec = a.do(t, http.MethodGet, "/products?collection=zzz", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodGet, "/products?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodGet, "/products/p2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Tee", decode[model.Product](t, rec).Title)

	rec = a.do(t, http.MethodGet, "/collections", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Collection](t, rec), 1)

	// カタログはセッションを発行しない
	assert.Nil(t, a.cookie)
}

// =====================
// cart → checkout → confirmation
// =====================

func TestRoutes_CartCheckoutFlow(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodPost, "/cart/items", `{"product_id":"p1","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, a.cookie)

	rec = a.do(t, http.MethodPost, "/cart/items", `{"product_id":"p2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decode[usecase.CartResponse](t, rec)
	assert.Equal(t, "25.00", cart.Total)
	assert.Equal(t, "3", cart.Badge)

	rec = a.do(t, http.MethodPatch, "/cart/items/p2", `{"quantity":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "35.00", decode[usecase.CartResponse](t, rec).Total)

	rec = a.do(t, http.MethodPatch, "/cart/items/p2", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/checkout", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[usecase.CheckoutOutput](t, rec)
	assert.Equal(t, usecase.CheckoutStatusCommitted, out.Status)
	assert.Equal(t, "ord_1", out.OrderID)

	require.Len(t, a.orders.calls, 1)
	assert.Equal(t, "USD", a.orders.calls[0].CurrencyCode)
	assert.Len(t, a.orders.calls[0].LineItems, 2)

	rec = a.do(t, http.MethodGet, "/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[usecase.CartResponse](t, rec).Items)

	rec = a.do(t, http.MethodGet, "/checkout/confirmation", "")
	require.Equal(t, http.StatusOK, rec.Code)
	conf := decode[usecase.ConfirmationOutput](t, rec)
	assert.Equal(t, "ord_1", conf.OrderID)
	require.NotNil(t, conf.Cart)
	assert.True(t, decimal.NewFromInt(35).Equal(conf.Cart.Total))

	// 空のカート
	rec = a.do(t, http.MethodPost, "/checkout", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoutes_CheckoutFailure(t *testing.T) {
	a := newApp(t)
	a.orders.fail = true

	rec := a.do(t, http.MethodPost, "/cart/items", `{"product_id":"p1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/checkout", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "order could not be created, please retry", decode[handler.ErrorResponse](t, rec).Error)

	rec = a.do(t, http.MethodGet, "/cart", "")
	assert.Len(t, decode[usecase.CartResponse](t, rec).Items, 1)

	rec = a.do(t, http.MethodGet, "/checkout/confirmation", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutes_HealthAndMetrics(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	_ = a.do(t, http.MethodPost, "/cart/items", `{"product_id":"p1"}`)

	rec = a.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `storefront_cart_operations_total{op="add"} 1`)
}
