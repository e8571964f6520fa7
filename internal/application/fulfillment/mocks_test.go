package fulfillment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopdesk/backend/internal/domain/marketplace"
	"github.com/shopdesk/backend/internal/infrastructure/ecommerce"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, userID string) (*marketplace.Credentials, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*marketplace.Credentials), args.Error(1)
}

type MockFulfillmentAPI struct {
	mock.Mock
}

func (m *MockFulfillmentAPI) GetOrderDetails(ctx context.Context, creds *marketplace.Credentials, orderIDs []string) ([]ecommerce.Order, error) {
	args := m.Called(ctx, creds, orderIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ecommerce.Order), args.Error(1)
}

func (m *MockFulfillmentAPI) ShipPackage(ctx context.Context, creds *marketplace.Credentials, packageID string, method marketplace.HandoverMethod) error {
	return m.Called(ctx, creds, packageID, method).Error(0)
}

func (m *MockFulfillmentAPI) GetShippingDocument(ctx context.Context, creds *marketplace.Credentials, packageID string, docType marketplace.DocumentType) (*ecommerce.ShippingDocument, error) {
	args := m.Called(ctx, creds, packageID, docType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ecommerce.ShippingDocument), args.Error(1)
}

func (m *MockFulfillmentAPI) SearchPackages(ctx context.Context, creds *marketplace.Credentials, filter ecommerce.PackageSearchFilter) (*ecommerce.PackageSearchResult, error) {
	args := m.Called(ctx, creds, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ecommerce.PackageSearchResult), args.Error(1)
}

type MockOrderHistory struct {
	mock.Mock
}

func (m *MockOrderHistory) Upsert(ctx context.Context, record *marketplace.OrderRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *MockOrderHistory) FindByOrderID(ctx context.Context, orderID string) (*marketplace.OrderRecord, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*marketplace.OrderRecord), args.Error(1)
}

func (m *MockOrderHistory) ListByCredential(ctx context.Context, credentialID uuid.UUID, filter marketplace.HistoryFilter) ([]marketplace.OrderRecord, int64, error) {
	args := m.Called(ctx, credentialID, filter)
	return args.Get(0).([]marketplace.OrderRecord), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderHistory) ShippedRevenue(ctx context.Context, credentialID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, credentialID, from, to)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockShipmentGuard struct {
	mock.Mock
}

func (m *MockShipmentGuard) Acquire(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockShipmentGuard) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type MockMerger struct {
	mock.Mock
}

func (m *MockMerger) Merge(ctx context.Context, urls []string) ([]byte, error) {
	args := m.Called(ctx, urls)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) Store(ctx context.Context, key string, pdf []byte) (string, error) {
	args := m.Called(ctx, key, pdf)
	return args.String(0), args.Error(1)
}

// countingRecorder tallies recorded outcomes
type countingRecorder struct {
	mu        sync.Mutex
	shipments map[string]int
	prints    map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{shipments: map[string]int{}, prints: map[string]int{}}
}

func (r *countingRecorder) RecordShipment(_ context.Context, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shipments[outcome]++
}

func (r *countingRecorder) RecordWaybillPrint(_ context.Context, mode string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prints[mode]++
}

var (
	_ CredentialResolver         = (*MockResolver)(nil)
	_ FulfillmentAPI             = (*MockFulfillmentAPI)(nil)
	_ marketplace.OrderHistory   = (*MockOrderHistory)(nil)
	_ marketplace.ShipmentGuard  = (*MockShipmentGuard)(nil)
	_ marketplace.DocumentMerger = (*MockMerger)(nil)
	_ marketplace.LabelArchive   = (*MockArchive)(nil)
	_ Recorder                   = (*countingRecorder)(nil)
)

var testCreds = &marketplace.Credentials{
	ID:          uuid.New(),
	UserID:      "user-1",
	AppKey:      "abc",
	AppSecret:   "s3cr3t",
	AccessToken: "tok",
	ShopCipher:  "xyz",
}

func newResolver() *MockResolver {
	r := new(MockResolver)
	r.On("Resolve", mock.Anything, "user-1").Return(testCreds, nil)
	return r
}

func shippableOrder(id, packageID string) ecommerce.Order {
	o := ecommerce.Order{
		ID:      id,
		Status:  marketplace.OrderStatusAwaitingShipment,
		Payment: &ecommerce.OrderPayment{Currency: "USD", TotalAmount: "19.99"},
		RecipientAddress: &ecommerce.RecipientAddress{
			Name: "Jane Doe", PhoneNumber: "555-0100", FullAddress: "1 Main St",
		},
	}
	if packageID != "" {
		o.Packages = []ecommerce.OrderPackage{{ID: packageID}}
	}
	return o
}
