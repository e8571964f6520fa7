package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopdesk/backend/internal/application/account"
	"github.com/shopdesk/backend/internal/application/ads"
	"github.com/shopdesk/backend/internal/application/fulfillment"
	"github.com/shopdesk/backend/internal/domain/marketplace"
	"github.com/shopdesk/backend/internal/infrastructure/logger"
	"github.com/shopdesk/backend/internal/interfaces/http/dto"
	"github.com/shopdesk/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// userID returns the authenticated user. It writes a 401 and returns false
// when the JWT middleware did not run for the route.
func (h *BaseHandler) userID(c *gin.Context) (string, bool) {
	id := middleware.GetJWTUserID(c)
	if id == "" {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
		return "", false
	}
	return id, true
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// HandleError maps service errors to the response envelope. Marketplace
// failures keep their kind and, for business failures, the upstream code
// and request ID so the seller can quote them to support.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	info := classify(err)
	info.RequestID = middleware.GetRequestID(c)
	status := dto.GetHTTPStatus(info.Code)

	log := logger.GetGinLogger(c)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.String("code", info.Code), zap.Error(err))
	} else {
		log.Info("Request rejected", zap.String("code", info.Code), zap.Error(err))
	}

	c.JSON(status, dto.Response{Success: false, Error: info})
}

// classify picks the error code and a message that is safe to show
func classify(err error) *dto.ErrorInfo {
	if e, ok := marketplace.AsError(err); ok {
		info := &dto.ErrorInfo{Kind: e.Kind.String(), Message: e.Message}
		switch e.Kind {
		case marketplace.KindConfiguration:
			info.Code = dto.ErrCodeConfiguration
		case marketplace.KindTransport:
			info.Code = dto.ErrCodeUpstreamUnavailable
			info.Message = "Marketplace API is unreachable"
		case marketplace.KindUpstreamHTTP:
			info.Code = dto.ErrCodeUpstreamHTTP
		case marketplace.KindSignatureMismatch:
			info.Code = dto.ErrCodeSignatureMismatch
		default:
			info.Code = dto.ErrCodeUpstreamBusiness
		}
		if e.Kind != marketplace.KindTransport {
			info.UpstreamCode = e.Code
			info.UpstreamRequestID = e.RequestID
		}
		return info
	}

	switch {
	case errors.Is(err, marketplace.ErrCredentialsNotFound):
		return &dto.ErrorInfo{Code: dto.ErrCodeNotConnected, Message: "No TikTok Shop account is connected"}
	case errors.Is(err, marketplace.ErrOrderRecordNotFound):
		return &dto.ErrorInfo{Code: dto.ErrCodeNotFound, Message: "Order not found"}
	case errors.Is(err, account.ErrNoAuthorizedShops), errors.Is(err, account.ErrShopNotAuthorized):
		return &dto.ErrorInfo{Code: dto.ErrCodeShopNotFound, Message: err.Error()}
	case errors.Is(err, fulfillment.ErrNoWaybills):
		return &dto.ErrorInfo{Code: dto.ErrCodeNoWaybills, Message: "None of the selected orders has a shipping label"}
	case errors.Is(err, ads.ErrInvalidDateRange):
		return &dto.ErrorInfo{Code: dto.ErrCodeInvalidRange, Message: err.Error()}
	case isValidationError(err):
		return &dto.ErrorInfo{Code: dto.ErrCodeValidation, Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return &dto.ErrorInfo{Code: dto.ErrCodeTimeout, Message: "Request timed out"}
	default:
		return &dto.ErrorInfo{Code: dto.ErrCodeInternal, Message: "An unexpected error occurred"}
	}
}

var validationErrors = []error{
	marketplace.ErrInvalidOrderIDs,
	marketplace.ErrInvalidOrderStatus,
	marketplace.ErrInvalidHandoverMethod,
	marketplace.ErrInvalidDocumentType,
	marketplace.ErrInvalidPackageID,
	marketplace.ErrMissingAppKey,
	marketplace.ErrMissingAppSecret,
	marketplace.ErrMissingAuthCode,
	marketplace.ErrMissingAccessToken,
	marketplace.ErrMissingShopCipher,
	account.ErrInvalidCallbackURL,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
