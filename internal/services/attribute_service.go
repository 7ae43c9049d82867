package services

import (
	"context"
	"fmt"

	"github.com/finportal/marketing-console-backend/internal/apperrors"
	"github.com/finportal/marketing-console-backend/internal/models"
	"github.com/finportal/marketing-console-backend/internal/services/schema"
	"github.com/finportal/marketing-console-backend/internal/services/template"
)

// AttributeStore is the attribute schema persistence
type AttributeStore interface {
	ListByProject(ctx context.Context, projectID string) ([]models.AttributeSchema, error)
	GetByKey(ctx context.Context, projectID, key string) (*models.AttributeSchema, error)
	CreateBatch(ctx context.Context, attrs []models.AttributeSchema) error
	Update(ctx context.Context, attr *models.AttributeSchema) error
	Delete(ctx context.Context, projectID, key string) (bool, error)
}

// LiveCampaignLister lists a project's non-terminal campaigns
type LiveCampaignLister interface {
	ListLive(ctx context.Context, projectID string) ([]*models.Campaign, error)
}

type AttributeService struct {
	attributeRepo AttributeStore
	campaignRepo  LiveCampaignLister
}

func NewAttributeService(attributeRepo AttributeStore, campaignRepo LiveCampaignLister) *AttributeService {
	return &AttributeService{
		attributeRepo: attributeRepo,
		campaignRepo:  campaignRepo,
	}
}

// LoadRegistry builds the schema registry of a project
func (s *AttributeService) LoadRegistry(ctx context.Context, tenant models.Tenant) (*schema.Registry, error) {
	attrs, err := s.attributeRepo.ListByProject(ctx, tenant.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attributes: %w", err)
	}
	return schema.NewRegistry(attrs), nil
}

// RegisterAttributes adds a batch of attributes. The batch is stored
// entirely or not at all.
func (s *AttributeService) RegisterAttributes(ctx context.Context, tenant models.Tenant, req *models.RegisterAttributesRequest) ([]models.AttributeSchema, error) {
	reg, err := s.LoadRegistry(ctx, tenant)
	if err != nil {
		return nil, err
	}

	batch := make([]models.AttributeSchema, 0, len(req.Attributes))
	for _, def := range req.Attributes {
		batch = append(batch, def.ToSchema(tenant.ProjectID))
	}
	if err := reg.Register(batch); err != nil {
		return nil, err
	}

	if err := s.attributeRepo.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to create attributes: %w", err)
	}
	return batch, nil
}

// ListAttributes returns the schema with the operators each type allows
func (s *AttributeService) ListAttributes(ctx context.Context, tenant models.Tenant) ([]models.AttributeWithOperators, error) {
	reg, err := s.LoadRegistry(ctx, tenant)
	if err != nil {
		return nil, err
	}

	attrs := reg.GetAttributes()
	out := make([]models.AttributeWithOperators, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, models.AttributeWithOperators{
			AttributeSchema: a,
			Operators:       schema.AllowedOperators(a.Type),
		})
	}
	return out, nil
}

// UpdateAttribute changes an attribute. Its type, options and item type are
// frozen while a live campaign filters on it.
func (s *AttributeService) UpdateAttribute(ctx context.Context, tenant models.Tenant, key string, req *models.UpdateAttributeRequest) (*models.AttributeSchema, error) {
	attr, err := s.attributeRepo.GetByKey(ctx, tenant.ProjectID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get attribute: %w", err)
	}
	if attr == nil {
		return nil, apperrors.NewNotFound("attribute", key)
	}

	structural := req.Type != nil || req.Options != nil || req.ItemType != nil
	if structural {
		if err := s.ensureUnused(ctx, tenant, key); err != nil {
			return nil, err
		}
	}

	updated := *attr
	if req.Label != nil {
		updated.Label = *req.Label
	}
	if req.Type != nil {
		updated.Type = *req.Type
		if updated.Type != models.AttributeTypeEnum {
			updated.Options = nil
		}
		if updated.Type != models.AttributeTypeArray {
			updated.ItemType = ""
		}
	}
	if req.Options != nil {
		updated.Options = models.StringList(req.Options)
	}
	if req.ItemType != nil {
		updated.ItemType = *req.ItemType
	}
	if req.Required != nil {
		updated.Required = *req.Required
	}

	if err := schema.ValidateDefinition(updated); err != nil {
		return nil, err
	}
	if err := s.attributeRepo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update attribute: %w", err)
	}
	return &updated, nil
}

// DeleteAttribute removes an attribute no live campaign filters on
func (s *AttributeService) DeleteAttribute(ctx context.Context, tenant models.Tenant, key string) error {
	if err := s.ensureUnused(ctx, tenant, key); err != nil {
		return err
	}
	deleted, err := s.attributeRepo.Delete(ctx, tenant.ProjectID, key)
	if err != nil {
		return fmt.Errorf("failed to delete attribute: %w", err)
	}
	if !deleted {
		return apperrors.NewNotFound("attribute", key)
	}
	return nil
}

func (s *AttributeService) ensureUnused(ctx context.Context, tenant models.Tenant, key string) error {
	campaigns, err := s.campaignRepo.ListLive(ctx, tenant.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to list campaigns: %w", err)
	}
	for _, c := range campaigns {
		for _, k := range campaignKeys(c) {
			if k == key {
				return apperrors.NewValidation(apperrors.CodeAttributeInUse, key,
					"attribute is used by campaign %s (%s)", c.ID, c.Status)
			}
		}
	}
	return nil
}

// campaignKeys lists the attribute keys c filters on or renders
func campaignKeys(c *models.Campaign) []string {
	keys := c.SegmentFilter.Keys()
	for _, tpl := range []string{c.MessageTemplate, c.EmailSubjectTemplate, c.EmailBodyTemplate} {
		keys = append(keys, template.ExtractVariables(tpl)...)
	}
	return keys
}
