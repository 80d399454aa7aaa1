package server

import (
	"net/http"

	"storefront/internal/handler"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Catalog  *handler.CatalogHandler
	Cart     *handler.CartHandler
	Checkout *handler.CheckoutHandler
	Metrics  http.Handler
}

// カタログは誰でも、カートとチェックアウトはセッション必須
func RegisterRoutes(e *echo.Echo, h Handlers, session echo.MiddlewareFunc) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if h.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.Metrics))
	}

	h.Catalog.RegisterRoutes(e)

	h.Cart.RegisterRoutes(e, session)
	h.Checkout.RegisterRoutes(e, session)
}
