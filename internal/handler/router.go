// Package handler exposes the storefront REST API over gin.
package handler

import (
	"context"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"storefront-api/internal/infrastructure/ratelimit"
	"storefront-api/internal/service"
	"storefront-api/internal/telemetry"
)

type HealthChecker interface {
	Health(ctx context.Context) map[string]string
}

type Deps struct {
	Log                *slog.Logger
	Metrics            *telemetry.Metrics
	DB                 HealthChecker
	Orders             service.OrderService
	Catalog            service.CatalogService
	Carts              service.CartService
	Limiter            ratelimit.Limiter
	CORSAllowedOrigins []string
	// TrustedProxies may set X-Forwarded-For; empty means none.
	TrustedProxies     []string
}

type Handler struct {
	log     *slog.Logger
	db      HealthChecker
	orders  service.OrderService
	catalog service.CatalogService
	carts   service.CartService
}

var registerTagName sync.Once

// NewRouter wires middleware and routes.
func NewRouter(d Deps) *gin.Engine {
	registerTagName.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(jsonFieldName)
		}
	})

	h := &Handler{
		log:     d.Log,
		db:      d.DB,
		orders:  d.Orders,
		catalog: d.Catalog,
		carts:   d.Carts,
	}

	r := gin.New()
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		d.Log.Error("invalid trusted proxies, trusting none", "proxies", d.TrustedProxies, "err", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(
		gin.Recovery(),
		requestID(),
		tracing(),
		requestLogger(d.Log),
		requestMetrics(d.Metrics),
		cors.New(corsConfig(d.CORSAllowedOrigins)),
	)

	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	api := r.Group("/api/v1")
	api.Use(rateLimit(d.Limiter, d.Log))

	api.GET("/categories", h.listCategories)
	api.GET("/categories/:id", h.getCategory)
	api.GET("/products", h.listProducts)
	api.GET("/products/:id", h.getProduct)

	authed := api.Group("")
	authed.Use(identity())

	authed.GET("/cart", h.getCart)
	authed.POST("/cart/items", h.addCartItem)
	authed.PATCH("/cart/items/:productId", h.setCartItem)
	authed.DELETE("/cart/items/:productId", h.removeCartItem)
	authed.DELETE("/cart", h.clearCart)

	authed.POST("/orders", h.placeOrder)
	authed.GET("/orders", h.listOrders)
	authed.GET("/orders/:id", h.getOrder)

	admin := authed.Group("")
	admin.Use(requireAdmin())

	admin.POST("/categories", h.createCategory)
	admin.PATCH("/categories/:id", h.updateCategory)
	admin.DELETE("/categories/:id", h.deleteCategory)
	admin.POST("/products", h.createProduct)
	admin.PATCH("/products/:id", h.updateProduct)
	admin.DELETE("/products/:id", h.deleteProduct)
	admin.PATCH("/orders/:id/status", h.updateOrderStatus)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", headerUserID, headerUserRole, headerRequestID},
		ExposeHeaders: []string{headerRequestID, "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		name = strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
	}
	if name == "" {
		return f.Name
	}
	return name
}
