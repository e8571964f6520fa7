package ecommerce

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopdesk/backend/internal/domain/marketplace"
)

// TikTok Shop API paths
const (
	PathTokenGet          = "/api/v2/token/get"
	PathTokenRefresh      = "/api/v2/token/refresh"
	PathAuthorizedShops   = "/authorization/202309/shops"
	PathOrderSearch       = "/order/202309/orders/search"
	PathOrderDetails      = "/order/202309/orders"
	PathPackageSearch     = "/fulfillment/202309/packages/search"
	pathPackageShipFmt    = "/fulfillment/202309/packages/%s/ship"
	pathPackageDocsFmt    = "/fulfillment/202309/packages/%s/shipping_documents"
	defaultSearchPageSize = 20
	maxSearchPageSize     = 100
)

// RequestDispatcher is the single entry point the client funnels through
type RequestDispatcher interface {
	Dispatch(ctx context.Context, req marketplace.Request) (*marketplace.Response, error)
}

// Client exposes one method per TikTok Shop operation used by the dashboard.
// Credentials are passed on every call; the client keeps no seller state.
type Client struct {
	dispatcher RequestDispatcher
}

// NewClient creates a client on top of a dispatcher
func NewClient(dispatcher RequestDispatcher) *Client {
	return &Client{dispatcher: dispatcher}
}

// ---------------------------------------------------------------------------
// Authorization
// ---------------------------------------------------------------------------

// GetAccessToken exchanges an authorization code for access and refresh tokens
func (c *Client) GetAccessToken(ctx context.Context, appKey, appSecret, authCode string) (*marketplace.TokenGrant, error) {
	if err := (&marketplace.Credentials{AppKey: appKey, AppSecret: appSecret}).Validate(); err != nil {
		return nil, marketplace.NewConfigurationError(err)
	}
	if authCode == "" {
		return nil, marketplace.NewConfigurationError(marketplace.ErrMissingAuthCode)
	}

	var grant marketplace.TokenGrant
	err := c.call(ctx, marketplace.Request{
		Method:   http.MethodGet,
		Endpoint: PathTokenGet,
		Params: map[string]any{
			ParamAppKey:  appKey,
			"grant_type": "authorized_code",
			"auth_code":  authCode,
		},
		AppSecret: appSecret,
	}, &grant)
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// RefreshAccessToken trades a refresh token for a new token pair
func (c *Client) RefreshAccessToken(ctx context.Context, appKey, appSecret, refreshToken string) (*marketplace.TokenGrant, error) {
	if err := (&marketplace.Credentials{AppKey: appKey, AppSecret: appSecret}).Validate(); err != nil {
		return nil, marketplace.NewConfigurationError(err)
	}
	if refreshToken == "" {
		return nil, marketplace.NewConfigurationError(marketplace.ErrMissingRefresh)
	}

	var grant marketplace.TokenGrant
	err := c.call(ctx, marketplace.Request{
		Method:   http.MethodGet,
		Endpoint: PathTokenRefresh,
		Params: map[string]any{
			ParamAppKey:     appKey,
			"grant_type":    "refresh_token",
			"refresh_token": refreshToken,
		},
		AppSecret: appSecret,
	}, &grant)
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// GetAuthorizedShops lists the shops the seller authorized, with their ciphers
func (c *Client) GetAuthorizedShops(ctx context.Context, creds *marketplace.Credentials) ([]marketplace.Shop, error) {
	if err := creds.Validate(); err != nil {
		return nil, marketplace.NewConfigurationError(err)
	}

	var data AuthorizedShopsData
	err := c.call(ctx, marketplace.Request{
		Method:      http.MethodGet,
		Endpoint:    PathAuthorizedShops,
		Params:      map[string]any{ParamAppKey: creds.AppKey},
		AppSecret:   creds.AppSecret,
		AccessToken: creds.AccessToken,
	}, &data)
	if err != nil {
		return nil, err
	}
	return data.Shops, nil
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// SearchOrders searches orders. Paging travels in the query, filters in the body.
func (c *Client) SearchOrders(ctx context.Context, creds *marketplace.Credentials, filter OrderSearchFilter) (*OrderSearchResult, error) {
	if err := creds.ValidateShopScope(); err != nil {
		return nil, marketplace.NewConfigurationError(err)
	}
	if filter.OrderStatus != "" && !filter.OrderStatus.IsValid() {
		return nil, marketplace.NewConfigurationError(marketplace.ErrInvalidOrderStatus)
	}

	params := shopParams(creds)
	params["page_size"] = pageSize(filter.PageSize)
	if filter.PageToken != "" {
		params["page_token"] = filter.PageToken
	}

	body := map[string]any{}
	if filter.OrderStatus != "" {
		body["order_status"] = string(filter.OrderStatus)
	}
	putTime(body, "create_time_ge", filter.CreateTimeGE)
	putTime(body, "create_time_lt", filter.CreateTimeLT)
	putTime(body, "update_time_ge", filter.UpdateTimeGE)
	putTime(body, "update_time_lt", filter.UpdateTimeLT)

	var result OrderSearchResult
	err := c.call(ctx, marketplace.Request{
		Method:      http.MethodPost,
		Endpoint:    PathOrderSearch,
		Params:      params,
		Body:        body,
		AppSecret:   creds.AppSecret,
		AccessToken: creds.AccessToken,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetOrderDetails fetches up to 50 orders by ID
func (c *Client) GetOrderDetails(ctx context.Context, creds *marketplace.Credentials, orderIDs []string) ([]Order, error) {
	if err := creds.ValidateShopScope(); err != nil {
		return nil, marketplace.NewConfigurationError(err)
	}
	if err := marketplace.ValidateOrderIDs(orderIDs); err != nil {
		return nil, marketplace.NewConfigurationError(err)
	}

	params := shopParams(creds)
	params["ids"] = strings.Join(orderIDs, ",")

	var result OrderDetailsResult
	err := c.call(ctx, marketplace.Request{
		Method:      http.MethodGet,
		Endpoint:    PathOrderDetails,
		Params:      params,
		AppSecret:   creds.AppSecret,
		AccessToken: creds.AccessToken,
	}, &result)
	if err != nil {
		return nil, err
	}
	return result.Orders, nil
}

// ---------------------------------------------------------------------------
// Fulfillment
// ---------------------------------------------------------------------------

// ShipPackage marks a package ready to ship with the chosen handover method
func (c *Client) ShipPackage(ctx context.Context, creds *marketplace.Credentials, packageID string, method marketplace.HandoverMethod) error {
	if err := creds.ValidateShopScope(); err != nil {
		return marketplace.NewConfigurationError(err)
	}
	if packageID == "" {
		return marketplace.NewConfigurationError(marketplace.ErrInvalidPackageID)
	}
	method = method.OrDefault()
	if !method.IsValid() {
		return marketplace.NewConfigurationError(marketplace.ErrInvalidHandoverMethod)
	}

	return c.call(ctx, marketplace.Request{
		Method:      http.MethodPost,
		Endpoint:    packagePath(pathPackageShipFmt, packageID),
		Params:      shopParams(creds),
		Body:        map[string]any{"handover_method": string(method)},
		AppSecret:   creds.AppSecret,
		AccessToken: creds.AccessToken,
	}, nil)
}

// GetShippingDocument returns the URL of a package's shipping document
func (c *Client) GetShippingDocument(ctx context.Context, creds *marketplace.Credentials, packageID string, docType marketplace.DocumentType) (*ShippingDocument, error) {
	if err := creds.ValidateShopScope(); err != nil {
		return nil, marketplace.NewConfigurationError(err)
	}
	if packageID == "" {
		return nil, marketplace.NewConfigurationError(marketplace.ErrInvalidPackageID)
	}
	docType = docType.OrDefault()
	if !docType.IsValid() {
		return nil, marketplace.NewConfigurationError(marketplace.ErrInvalidDocumentType)
	}

	params := shopParams(creds)
	params["document_type"] = string(docType)
	params["document_size"] = 0

	var doc ShippingDocument
	err := c.call(ctx, marketplace.Request{
		Method:      http.MethodGet,
		Endpoint:    packagePath(pathPackageDocsFmt, packageID),
		Params:      params,
		AppSecret:   creds.AppSecret,
		AccessToken: creds.AccessToken,
	}, &doc)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// SearchPackages searches fulfillment packages
func (c *Client) SearchPackages(ctx context.Context, creds *marketplace.Credentials, filter PackageSearchFilter) (*PackageSearchResult, error) {
	if err := creds.ValidateShopScope(); err != nil {
		return nil, marketplace.NewConfigurationError(err)
	}

	params := shopParams(creds)
	params["page_size"] = pageSize(filter.PageSize)
	if filter.PageToken != "" {
		params["page_token"] = filter.PageToken
	}

	body := map[string]any{}
	if filter.PackageStatus != "" {
		body["package_status"] = filter.PackageStatus
	}
	putTime(body, "create_time_ge", filter.CreateTimeGE)
	putTime(body, "create_time_lt", filter.CreateTimeLT)
	putTime(body, "update_time_ge", filter.UpdateTimeGE)
	putTime(body, "update_time_lt", filter.UpdateTimeLT)

	var result PackageSearchResult
	err := c.call(ctx, marketplace.Request{
		Method:      http.MethodPost,
		Endpoint:    PathPackageSearch,
		Params:      params,
		Body:        body,
		AppSecret:   creds.AppSecret,
		AccessToken: creds.AccessToken,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// call dispatches req and decodes the data section into out (when non-nil)
func (c *Client) call(ctx context.Context, req marketplace.Request, out any) error {
	resp, err := c.dispatcher.Dispatch(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}

func shopParams(creds *marketplace.Credentials) map[string]any {
	return map[string]any{
		ParamAppKey:     creds.AppKey,
		ParamShopCipher: creds.ShopCipher,
	}
}

func packagePath(format, packageID string) string {
	return fmt.Sprintf(format, url.PathEscape(packageID))
}

func pageSize(n int) int {
	if n <= 0 {
		return defaultSearchPageSize
	}
	if n > maxSearchPageSize {
		return maxSearchPageSize
	}
	return n
}

func putTime(body map[string]any, key string, v int64) {
	if v > 0 {
		body[key] = v
	}
}
