package handler

import (
	"context"

	"github.com/shopdesk/backend/internal/application/account"
	"github.com/shopdesk/backend/internal/application/fulfillment"
	"github.com/shopdesk/backend/internal/application/orders"
	"github.com/shopdesk/backend/internal/domain/marketplace"
	"github.com/shopdesk/backend/internal/infrastructure/ecommerce"
	"github.com/stretchr/testify/mock"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, req marketplace.Request) (*marketplace.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*marketplace.Response), args.Error(1)
}

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) Connect(ctx context.Context, userID string, input account.ConnectInput) (*account.ConnectResult, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.ConnectResult), args.Error(1)
}

func (m *MockAccountService) SaveManual(ctx context.Context, userID string, input account.ManualInput) (*account.ConnectResult, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.ConnectResult), args.Error(1)
}

func (m *MockAccountService) Refresh(ctx context.Context, userID string) (*marketplace.CredentialsView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*marketplace.CredentialsView), args.Error(1)
}

func (m *MockAccountService) Current(ctx context.Context, userID string) (*marketplace.CredentialsView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*marketplace.CredentialsView), args.Error(1)
}

func (m *MockAccountService) Shops(ctx context.Context, userID string) ([]marketplace.Shop, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]marketplace.Shop), args.Error(1)
}

func (m *MockAccountService) SelectShop(ctx context.Context, userID, shopID string) (*marketplace.CredentialsView, error) {
	args := m.Called(ctx, userID, shopID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*marketplace.CredentialsView), args.Error(1)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Search(ctx context.Context, userID string, filter ecommerce.OrderSearchFilter) (*orders.SearchResult, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.SearchResult), args.Error(1)
}

func (m *MockOrderService) Details(ctx context.Context, userID string, orderIDs []string) ([]ecommerce.Order, error) {
	args := m.Called(ctx, userID, orderIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ecommerce.Order), args.Error(1)
}

func (m *MockOrderService) History(ctx context.Context, userID string, filter marketplace.HistoryFilter) (*orders.HistoryPage, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.HistoryPage), args.Error(1)
}

type MockShipmentService struct {
	mock.Mock
}

func (m *MockShipmentService) Ship(ctx context.Context, userID string, input fulfillment.BulkShipInput) (*fulfillment.BatchResult, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfillment.BatchResult), args.Error(1)
}

type MockWaybillPrinter struct {
	mock.Mock
}

func (m *MockWaybillPrinter) Print(ctx context.Context, userID string, orderIDs []string) (*fulfillment.PrintResult, error) {
	args := m.Called(ctx, userID, orderIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfillment.PrintResult), args.Error(1)
}

type MockPackageSearcher struct {
	mock.Mock
}

func (m *MockPackageSearcher) Search(ctx context.Context, userID string, filter ecommerce.PackageSearchFilter) (*ecommerce.PackageSearchResult, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ecommerce.PackageSearchResult), args.Error(1)
}

type MockAdsReporter struct {
	mock.Mock
}

func (m *MockAdsReporter) Summary(ctx context.Context, userID, startDate, endDate string) (*marketplace.AdSpendSummary, error) {
	args := m.Called(ctx, userID, startDate, endDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*marketplace.AdSpendSummary), args.Error(1)
}
