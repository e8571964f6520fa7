package router

import (
	"github.com/gin-gonic/gin"
	"github.com/shopdesk/backend/internal/interfaces/http/handler"
	"github.com/shopdesk/backend/internal/interfaces/http/middleware"
)

// AccountRoutes mounts the credential and shop endpoints under /account
func AccountRoutes(h *handler.AccountHandler) *DomainGroup {
	g := NewDomainGroup("account", "/account")
	g.POST("/connect", h.Connect).
		POST("/credentials", h.SaveCredentials).
		GET("/credentials", h.GetCredentials).
		POST("/refresh", h.Refresh).
		GET("/shops", h.ListShops).
		PUT("/shop", h.SelectShop)
	return g
}

// OrderRoutes mounts the order endpoints under /orders
func OrderRoutes(h *handler.OrderHandler) *DomainGroup {
	g := NewDomainGroup("orders", "/orders")
	g.POST("/search", h.Search).
		GET("/details", h.Details).
		GET("/history", h.History)
	return g
}

// FulfillmentRoutes mounts shipping and waybill endpoints under /fulfillment
func FulfillmentRoutes(h *handler.FulfillmentHandler) *DomainGroup {
	g := NewDomainGroup("fulfillment", "/fulfillment")
	g.POST("/ship", h.Ship).
		POST("/waybills", h.PrintWaybills)
	g.Group("packages", "/packages").
		POST("/search", h.SearchPackages)
	return g
}

// AdsRoutes mounts the ads report under /ads
func AdsRoutes(h *handler.AdsHandler) *DomainGroup {
	g := NewDomainGroup("ads", "/ads")
	g.GET("/summary", h.Summary)
	return g
}

// RegisterProxy mounts the signing proxy at /api/tiktok/proxy. It sits
// outside the versioned API: no dashboard token, open CORS, raw upstream
// answers.
func RegisterProxy(engine *gin.Engine, h *handler.ProxyHandler, mw ...gin.HandlerFunc) {
	g := engine.Group("/api/tiktok", middleware.ProxyCORS())
	if len(mw) > 0 {
		g.Use(mw...)
	}
	g.POST("/proxy", h.Proxy)
	g.OPTIONS("/proxy", h.Preflight)
}
