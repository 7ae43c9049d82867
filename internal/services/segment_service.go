package services

import (
	"context"

	"github.com/finportal/marketing-console-backend/internal/models"
	"github.com/finportal/marketing-console-backend/internal/services/segment"
)

const (
	defaultPreviewLimit = 10
	maxPreviewLimit     = 100
)

// ContactPager pages through a project's contacts ordered by id
type ContactPager interface {
	PageAfter(ctx context.Context, projectID, afterID string, limit int) ([]models.Contact, error)
}

type SegmentService struct {
	contacts   ContactPager
	registries RegistryLoader
	pageSize   int
}

func NewSegmentService(contacts ContactPager, registries RegistryLoader, pageSize int) *SegmentService {
	return &SegmentService{contacts: contacts, registries: registries, pageSize: pageSize}
}

// BuildFilter validates a raw filter against the project schema
func (s *SegmentService) BuildFilter(ctx context.Context, tenant models.Tenant, raw models.SegmentFilter) (*segment.Filter, error) {
	reg, err := s.registries.LoadRegistry(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return segment.BuildFilter(raw, reg)
}

// Fetcher returns the paging function over the project's contacts
func (s *SegmentService) Fetcher(tenant models.Tenant) segment.PageFunc {
	return func(ctx context.Context, afterID string, limit int) ([]models.Contact, error) {
		return s.contacts.PageAfter(ctx, tenant.ProjectID, afterID, limit)
	}
}

// PreviewSegment counts the matching contacts and returns a sample
func (s *SegmentService) PreviewSegment(ctx context.Context, tenant models.Tenant, req *models.SegmentPreviewRequest) (*models.SegmentPreviewResponse, error) {
	filter, err := s.BuildFilter(ctx, tenant, req.Filter)
	if err != nil {
		return nil, err
	}

	limit := req.PreviewLimit
	if limit <= 0 {
		limit = defaultPreviewLimit
	}
	if limit > maxPreviewLimit {
		limit = maxPreviewLimit
	}

	preview, err := segment.PreviewCount(ctx, filter, s.Fetcher(tenant), limit, s.pageSize)
	if err != nil {
		return nil, err
	}
	return &models.SegmentPreviewResponse{TotalCount: preview.TotalCount, Sample: preview.Sample}, nil
}

// Collect returns every contact matching filter
func (s *SegmentService) Collect(ctx context.Context, tenant models.Tenant, filter *segment.Filter) ([]models.Contact, error) {
	return segment.Collect(ctx, filter, s.Fetcher(tenant), s.pageSize)
}
