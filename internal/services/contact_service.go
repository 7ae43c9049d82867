package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/finportal/marketing-console-backend/internal/apperrors"
	"github.com/finportal/marketing-console-backend/internal/models"
	"github.com/finportal/marketing-console-backend/internal/services/schema"
	"github.com/finportal/marketing-console-backend/internal/utils"
)

// ContactStore is the contact persistence
type ContactStore interface {
	Create(ctx context.Context, contact *models.Contact) error
	GetByID(ctx context.Context, projectID, id string) (*models.Contact, error)
	List(ctx context.Context, projectID string, limit, offset int) ([]*models.Contact, int64, error)
	PageAfter(ctx context.Context, projectID, afterID string, limit int) ([]models.Contact, error)
}

// RegistryLoader loads the attribute schema of a project
type RegistryLoader interface {
	LoadRegistry(ctx context.Context, tenant models.Tenant) (*schema.Registry, error)
}

type ContactService struct {
	contactRepo ContactStore
	registries  RegistryLoader
}

func NewContactService(contactRepo ContactStore, registries RegistryLoader) *ContactService {
	return &ContactService{
		contactRepo: contactRepo,
		registries:  registries,
	}
}

// CreateContact validates and stores a single contact
func (s *ContactService) CreateContact(ctx context.Context, tenant models.Tenant, req *models.CreateContactRequest) (*models.Contact, error) {
	reg, err := s.registries.LoadRegistry(ctx, tenant)
	if err != nil {
		return nil, err
	}
	contact, err := buildContact(reg, tenant, req)
	if err != nil {
		return nil, err
	}
	if err := s.contactRepo.Create(ctx, contact); err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	return contact, nil
}

// ImportContacts stores every valid contact of the batch and reports the
// rejected rows by index
func (s *ContactService) ImportContacts(ctx context.Context, tenant models.Tenant, req *models.ImportContactsRequest) (*models.ImportContactsResponse, error) {
	reg, err := s.registries.LoadRegistry(ctx, tenant)
	if err != nil {
		return nil, err
	}

	resp := &models.ImportContactsResponse{Failed: []models.ImportFailure{}}
	for i := range req.Contacts {
		contact, err := buildContact(reg, tenant, &req.Contacts[i])
		if err == nil {
			err = s.contactRepo.Create(ctx, contact)
		}
		if err != nil {
			resp.Failed = append(resp.Failed, models.ImportFailure{
				Index: i,
				Error: err.Error(),
				Code:  string(apperrors.CodeOf(err)),
			})
			continue
		}
		resp.Created++
	}
	return resp, nil
}

// GetContact returns one contact of the project
func (s *ContactService) GetContact(ctx context.Context, tenant models.Tenant, id string) (*models.Contact, error) {
	contact, err := s.contactRepo.GetByID(ctx, tenant.ProjectID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	if contact == nil {
		return nil, apperrors.NewNotFound("contact", id)
	}
	return contact, nil
}

// ListContacts returns a page of contacts
func (s *ContactService) ListContacts(ctx context.Context, tenant models.Tenant, page utils.Page) ([]*models.Contact, int64, error) {
	return s.contactRepo.List(ctx, tenant.ProjectID, page.Size, page.Offset())
}

func buildContact(reg *schema.Registry, tenant models.Tenant, req *models.CreateContactRequest) (*models.Contact, error) {
	phone := strings.TrimSpace(req.Phone)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if phone == "" && email == "" {
		return nil, apperrors.NewValidation(apperrors.CodeContactMissingRecipient, "phone", "a contact needs a phone or an email")
	}

	attrs, err := reg.ValidateAttributes(req.Attributes)
	if err != nil {
		return nil, err
	}
	return &models.Contact{
		ProjectID:  tenant.ProjectID,
		Phone:      phone,
		Email:      email,
		Attributes: attrs,
	}, nil
}
