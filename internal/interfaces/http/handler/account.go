package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/shopdesk/backend/internal/application/account"
	"github.com/shopdesk/backend/internal/domain/marketplace"
	"github.com/shopdesk/backend/internal/interfaces/http/middleware"
)

// AccountService manages the seller's marketplace credentials
type AccountService interface {
	Connect(ctx context.Context, userID string, input account.ConnectInput) (*account.ConnectResult, error)
	SaveManual(ctx context.Context, userID string, input account.ManualInput) (*account.ConnectResult, error)
	Refresh(ctx context.Context, userID string) (*marketplace.CredentialsView, error)
	Current(ctx context.Context, userID string) (*marketplace.CredentialsView, error)
	Shops(ctx context.Context, userID string) ([]marketplace.Shop, error)
	SelectShop(ctx context.Context, userID, shopID string) (*marketplace.CredentialsView, error)
}

// AccountHandler handles the seller account endpoints
type AccountHandler struct {
	BaseHandler
	service AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(service AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// SelectShopRequest switches the active shop
type SelectShopRequest struct {
	ShopID string `json:"shop_id" binding:"required,max=64"`
}

// Connect completes the authorization redirect and stores the credentials
func (h *AccountHandler) Connect(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req account.ConnectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.service.Connect(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SaveCredentials stores hand-entered credentials
func (h *AccountHandler) SaveCredentials(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req account.ManualInput
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.service.SaveManual(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GetCredentials returns the redacted current credentials
func (h *AccountHandler) GetCredentials(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	view, err := h.service.Current(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Refresh renews the access token
func (h *AccountHandler) Refresh(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	view, err := h.service.Refresh(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// ListShops lists the authorized shops
func (h *AccountHandler) ListShops(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	shops, err := h.service.Shops(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, shops)
}

// SelectShop switches the active shop
func (h *AccountHandler) SelectShop(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req SelectShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	view, err := h.service.SelectShop(c.Request.Context(), userID, req.ShopID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}
