package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/logging"
	"storefront/internal/repository/slot"
	accountsvc "storefront/internal/service/account"
	cartsvc "storefront/internal/service/cart"
	categorysvc "storefront/internal/service/category"
	checkoutsvc "storefront/internal/service/checkout"
	productsvc "storefront/internal/service/product"
	sessionsvc "storefront/internal/service/session"
	"storefront/internal/store"
)

// Deps are the services behind the routes.
type Deps struct {
	Slots      slot.Repository
	Sessions   *sessionsvc.Service
	Registry   *store.Registry
	Products   *productsvc.Service
	Browser    *productsvc.Browser
	Categories *categorysvc.Service
	Cart       *cartsvc.Service
	Accounts   *accountsvc.Service
	Checkout   *checkoutsvc.Service
}

func (d Deps) validate() error {
	if d.Sessions == nil || d.Registry == nil || d.Products == nil || d.Browser == nil ||
		d.Categories == nil || d.Cart == nil || d.Accounts == nil || d.Checkout == nil {
		return errors.New("httpserver: missing dependency")
	}
	return nil
}

// Options tune the router.
type Options struct {
	BasePath       string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, deps Deps, opts Options) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(
		logging.RequestLogger(logger),
		recovery(logger),
		cors.New(corsConfig(opts.CORSOrigins)),
	)
	if opts.RateLimitRPS > 0 {
		router.Use(newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst).middleware())
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Slots))

	h := &handlers{Deps: deps, logger: logger}
	root := router.Group(opts.BasePath)
	api := root.Group("/api")
	api.POST("/session", h.createSession)
	api.POST("/account/register-email", h.registerEmail)
	api.POST("/account/setup-password", h.setupPassword)
	api.POST("/account/forgot-password", h.forgotPassword)
	api.POST("/account/reset-password", h.resetPassword)

	scoped := api.Group("", sessionMiddleware(deps.Sessions, deps.Registry, logger))
	scoped.GET("/session/state", h.sessionState)
	scoped.DELETE("/session/toast", h.hideToast)

	scoped.GET("/categories", h.listCategories)
	scoped.GET("/products", h.listProducts)
	scoped.GET("/products/:id", h.getProduct)

	scoped.GET("/catalog", h.browse)
	scoped.PATCH("/catalog/filters", h.applyFilters)
	scoped.PUT("/catalog/page", h.setPage)
	scoped.PUT("/catalog/scroll", h.scroll)
	scoped.POST("/catalog/leave", h.leave)

	scoped.GET("/cart", h.getCart)
	scoped.DELETE("/cart", h.clearCart)
	scoped.POST("/cart/items", h.addToCart)
	scoped.PATCH("/cart/items/:id", h.updateCartItem)
	scoped.DELETE("/cart/items/:id", h.removeCartItem)
	scoped.GET("/cart/availability/:id", h.availability)

	scoped.POST("/account/signup", h.signup)
	scoped.POST("/account/login", h.login)
	scoped.POST("/account/logout", h.logout)
	scoped.GET("/account/me", h.me)
	scoped.PATCH("/account/me", h.updateMe)
	scoped.GET("/account/addresses", h.addresses)
	scoped.PUT("/account/addresses/:type", h.updateAddress)
	scoped.GET("/account/orders", h.orders)
	scoped.POST("/account/orders", h.createOrder)

	scoped.GET("/checkout", h.checkoutSummary)
	scoped.POST("/checkout/preference", h.createPreference)
	scoped.POST("/checkout/confirm", h.confirmPayment)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", sessionHeader, "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

type handlers struct {
	Deps
	logger *zap.Logger
}
