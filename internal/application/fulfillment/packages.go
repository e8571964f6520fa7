package fulfillment

import (
	"context"

	"github.com/shopdesk/backend/internal/infrastructure/ecommerce"
)

// PackageService searches fulfillment packages of the connected shop
type PackageService struct {
	creds CredentialResolver
	api   FulfillmentAPI
}

// NewPackageService creates a package service
func NewPackageService(creds CredentialResolver, api FulfillmentAPI) *PackageService {
	return &PackageService{creds: creds, api: api}
}

// Search returns one page of packages matching filter
func (s *PackageService) Search(ctx context.Context, userID string, filter ecommerce.PackageSearchFilter) (*ecommerce.PackageSearchResult, error) {
	creds, err := s.creds.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	result, err := s.api.SearchPackages(ctx, creds, filter)
	if err != nil {
		return nil, err
	}
	if result.Packages == nil {
		result.Packages = []ecommerce.PackageSummary{}
	}
	return result, nil
}
