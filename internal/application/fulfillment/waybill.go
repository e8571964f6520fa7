package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopdesk/backend/internal/domain/marketplace"
	"go.uber.org/zap"
)

// ErrNoWaybills is returned when none of the selected orders has a label
var ErrNoWaybills = errors.New("fulfillment: no waybills available for the selected orders")

// PrintMode tells the dashboard how to present the printed labels
type PrintMode string

const (
	// PrintModeSingle returns the one label URL as is
	PrintModeSingle PrintMode = "single"
	// PrintModeMerged returns one merged document
	PrintModeMerged PrintMode = "merged"
	// PrintModeIndividual returns every label URL because merging was unavailable
	PrintModeIndividual PrintMode = "individual"
)

// WaybillsInput selects the orders whose labels are printed
type WaybillsInput struct {
	OrderIDs []string `json:"order_ids" binding:"required,min=1,max=50,dive,required"`
}

// Waybill is the shipping label of one order
type Waybill struct {
	OrderID        string `json:"order_id"`
	PackageID      string `json:"package_id"`
	URL            string `json:"url"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

// CollectResult lists the labels found and the orders without one
type CollectResult struct {
	Waybills []Waybill      `json:"waybills"`
	Missing  []SkippedOrder `json:"missing"`
}

// URLs returns the label URLs in order
func (c *CollectResult) URLs() []string {
	urls := make([]string, len(c.Waybills))
	for i, w := range c.Waybills {
		urls[i] = w.URL
	}
	return urls
}

// PrintResult is the outcome of a print request. In merged mode URL points at
// the archived document; without an archive the document is carried in PDF.
type PrintResult struct {
	Mode     PrintMode      `json:"mode"`
	URL      string         `json:"url,omitempty"`
	URLs     []string       `json:"urls,omitempty"`
	Waybills []Waybill      `json:"waybills"`
	Missing  []SkippedOrder `json:"missing"`
	PDF      []byte         `json:"-"`
}

// WaybillService gathers shipping labels and combines them for printing
type WaybillService struct {
	creds    CredentialResolver
	api      FulfillmentAPI
	merger   marketplace.DocumentMerger
	archive  marketplace.LabelArchive
	recorder Recorder
	now      func() time.Time
	logger   *zap.Logger
}

// WaybillOption is a functional option for WaybillService
type WaybillOption func(*WaybillService)

// WithMerger enables merging several labels into one document
func WithMerger(m marketplace.DocumentMerger) WaybillOption {
	return func(s *WaybillService) {
		s.merger = m
	}
}

// WithArchive stores merged documents and hands out their URL
func WithArchive(a marketplace.LabelArchive) WaybillOption {
	return func(s *WaybillService) {
		s.archive = a
	}
}

// WithPrintRecorder sets the metrics recorder
func WithPrintRecorder(r Recorder) WaybillOption {
	return func(s *WaybillService) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewWaybillService creates a waybill service. Without a merger every
// multi-label print falls back to the individual URLs.
func NewWaybillService(creds CredentialResolver, api FulfillmentAPI, logger *zap.Logger, opts ...WaybillOption) *WaybillService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &WaybillService{
		creds:    creds,
		api:      api,
		recorder: nopRecorder{},
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Collect resolves the package of every order and fetches its shipping label
func (s *WaybillService) Collect(ctx context.Context, userID string, orderIDs []string) (*CollectResult, error) {
	if err := marketplace.ValidateOrderIDs(orderIDs); err != nil {
		return nil, err
	}
	creds, err := s.creds.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := uniqueIDs(orderIDs)
	details, err := s.api.GetOrderDetails(ctx, creds, ids)
	if err != nil {
		return nil, err
	}
	byID := orderIndex(details)

	result := &CollectResult{Waybills: []Waybill{}, Missing: []SkippedOrder{}}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		order, ok := byID[id]
		if !ok {
			result.Missing = append(result.Missing, SkippedOrder{OrderID: id, Reason: ReasonNotFound})
			continue
		}
		packageID := order.FirstPackageID()
		if packageID == "" {
			result.Missing = append(result.Missing, SkippedOrder{OrderID: id, Reason: ReasonNoPackage})
			continue
		}

		doc, err := s.api.GetShippingDocument(ctx, creds, packageID, marketplace.DocumentTypeShippingLabel)
		if err != nil || doc == nil || doc.DocURL == "" {
			reason := "shipping label not available"
			if err != nil {
				reason = fmt.Sprintf("%s: %s", reason, errorMessage(err))
			}
			result.Missing = append(result.Missing, SkippedOrder{OrderID: id, Reason: reason})
			continue
		}

		result.Waybills = append(result.Waybills, Waybill{
			OrderID:        id,
			PackageID:      packageID,
			URL:            doc.DocURL,
			TrackingNumber: doc.TrackingNumber,
		})
	}
	return result, nil
}

// Print collects the labels and returns a single printable document when it
// can: one label is returned directly, several are merged and archived, and
// when merging is unavailable the individual URLs are returned.
func (s *WaybillService) Print(ctx context.Context, userID string, orderIDs []string) (*PrintResult, error) {
	collected, err := s.Collect(ctx, userID, orderIDs)
	if err != nil {
		return nil, err
	}
	if len(collected.Waybills) == 0 {
		return nil, ErrNoWaybills
	}

	result := &PrintResult{Waybills: collected.Waybills, Missing: collected.Missing}
	urls := collected.URLs()

	if len(urls) == 1 {
		result.Mode = PrintModeSingle
		result.URL = urls[0]
		s.recorder.RecordWaybillPrint(ctx, string(result.Mode))
		return result, nil
	}

	pdf, err := s.merge(ctx, urls)
	if err != nil {
		return nil, err
	}

	switch {
	case pdf == nil:
		result.Mode = PrintModeIndividual
		result.URLs = urls
	case s.archive == nil:
		result.Mode = PrintModeMerged
		result.PDF = pdf
	default:
		link, err := s.archive.Store(ctx, s.archiveKey(userID), pdf)
		if err != nil {
			s.logger.Warn("Failed to archive merged waybills", zap.String("user_id", userID), zap.Error(err))
			result.Mode = PrintModeIndividual
			result.URLs = urls
			break
		}
		result.Mode = PrintModeMerged
		result.URL = link
	}

	s.recorder.RecordWaybillPrint(ctx, string(result.Mode))
	return result, nil
}

func (s *WaybillService) merge(ctx context.Context, urls []string) ([]byte, error) {
	if s.merger == nil {
		return nil, nil
	}
	return s.merger.Merge(ctx, urls)
}

// archiveKey places merged documents under a per-day, per-user path
func (s *WaybillService) archiveKey(userID string) string {
	return fmt.Sprintf("%s/%s/%s.pdf", s.now().UTC().Format("2006/01/02"), userID, uuid.NewString())
}

func errorMessage(err error) string {
	if e, ok := marketplace.AsError(err); ok {
		return e.Message
	}
	return err.Error()
}
