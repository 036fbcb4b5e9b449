package api

import (
	"net/http"

	"storefront-client/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler exposes an operator surface over the client state: health,
// metrics, and read-only debug views of the session, cart, and caches.
type Handler struct {
	app *store.App
}

// NewHandler creates the handler for the given app.
func NewHandler(app *store.App) *Handler {
	return &Handler{app: app}
}

// SetupRoutes registers all routes on the router.
func (h *Handler) SetupRoutes(r *gin.Engine) {
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	debug := r.Group("/debug/v1")
	{
		debug.GET("/session", h.getSession)
		debug.GET("/cart", h.getCart)
		debug.GET("/caches", h.getCaches)
		debug.POST("/caches/:cache/retry", h.retryCache)
	}
}

func (h *Handler) getSession(c *gin.Context) {
	resp := gin.H{"phase": h.app.Session.Phase()}
	if user, ok := h.app.Session.CurrentUser(); ok {
		resp["user"] = user
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getCart(c *gin.Context) {
	resp := gin.H{
		"lines":      h.app.Cart.Lines(),
		"totalItems": h.app.Cart.TotalItems(),
		"totalPrice": h.app.Cart.TotalPrice(h.app.Products.Find),
	}
	if err := h.app.Cart.SyncError(); err != nil {
		resp["syncError"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getCaches(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"products":   cacheView(h.app.Products.State, h.app.Products.Stale, h.app.Products.Count),
		"categories": cacheView(h.app.Categories.State, h.app.Categories.Stale, h.app.Categories.Count),
		"orders":     cacheView(h.app.Orders.State, h.app.Orders.Stale, h.app.Orders.Count),
	})
}

func cacheView(state func() (store.FetchState, string), stale func() bool, count func() int) gin.H {
	st, msg := state()
	view := gin.H{"state": st, "stale": stale(), "count": count()}
	if msg != "" {
		view["message"] = msg
	}
	return view
}

func (h *Handler) retryCache(c *gin.Context) {
	var err error
	switch c.Param("cache") {
	case "products":
		err = h.app.Products.Retry(c.Request.Context())
	case "categories":
		err = h.app.Categories.Retry(c.Request.Context())
	case "orders":
		err = h.app.Orders.Retry(c.Request.Context())
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown cache"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
