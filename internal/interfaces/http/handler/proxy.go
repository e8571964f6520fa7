package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopdesk/backend/internal/domain/marketplace"
	"github.com/shopdesk/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Dispatcher signs and relays one marketplace call
type Dispatcher interface {
	Dispatch(ctx context.Context, req marketplace.Request) (*marketplace.Response, error)
}

// ProxyRequest is the body accepted by the signing proxy. Field names follow
// the browser client, which predates the dashboard API.
type ProxyRequest struct {
	Method      string         `json:"method"`
	Endpoint    string         `json:"endpoint"`
	Params      map[string]any `json:"params"`
	Body        map[string]any `json:"body"`
	AppSecret   string         `json:"appSecret"`
	AccessToken string         `json:"accessToken"`
}

// ProxyHandler exposes the dispatcher to browser clients. Unlike the
// dashboard API it answers with the raw marketplace envelope.
type ProxyHandler struct {
	dispatcher Dispatcher
}

// NewProxyHandler creates a new ProxyHandler
func NewProxyHandler(dispatcher Dispatcher) *ProxyHandler {
	return &ProxyHandler{dispatcher: dispatcher}
}

// Preflight answers CORS preflight requests
func (h *ProxyHandler) Preflight(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{})
}

// Proxy signs the call and relays the upstream answer.
// A 2xx upstream answer is always relayed as 200, business failures
// included; the caller inspects the embedded code.
func (h *ProxyHandler) Proxy(c *gin.Context) {
	var req ProxyRequest
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}
	if req.Endpoint == "" || req.AppSecret == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: endpoint, appSecret"})
		return
	}

	resp, err := h.dispatcher.Dispatch(c.Request.Context(), marketplace.Request{
		Method:      req.Method,
		Endpoint:    req.Endpoint,
		Params:      req.Params,
		Body:        req.Body,
		AppSecret:   req.AppSecret,
		AccessToken: req.AccessToken,
	})
	if err == nil {
		c.Data(http.StatusOK, "application/json; charset=utf-8", resp.Payload)
		return
	}

	e, ok := marketplace.AsError(err)
	if !ok {
		h.internalError(c, err)
		return
	}

	switch {
	case resp != nil && (e.Kind == marketplace.KindBusiness || e.Kind == marketplace.KindSignatureMismatch):
		c.Data(http.StatusOK, "application/json; charset=utf-8", resp.Payload)
	case resp != nil && e.Kind == marketplace.KindUpstreamHTTP:
		c.Data(e.HTTPStatus, "application/json; charset=utf-8", resp.Payload)
	case e.Kind == marketplace.KindConfiguration:
		c.JSON(http.StatusBadRequest, gin.H{"error": e.Message})
	case e.Kind == marketplace.KindTransport && e.HTTPStatus == 0:
		logger.GetGinLogger(c).Warn("TikTok API unreachable", zap.String("endpoint", req.Endpoint), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Bad gateway", "message": e.Message})
	default:
		h.internalError(c, err)
	}
}

func (h *ProxyHandler) internalError(c *gin.Context, err error) {
	logger.GetGinLogger(c).Error("TikTok API proxy error", zap.Error(err))
	message := err.Error()
	if e, ok := marketplace.AsError(err); ok {
		message = e.Message
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "message": message})
}
