package services

import (
	"context"
	"fmt"
	"time"

	"github.com/finportal/marketing-console-backend/internal/apperrors"
	"github.com/finportal/marketing-console-backend/internal/models"
	"github.com/finportal/marketing-console-backend/internal/services/api_key"
)

// ProjectStore is the project persistence
type ProjectStore interface {
	CreateWithAPIKey(ctx context.Context, project *models.Project, apiKey *models.APIKey) error
	GetByID(ctx context.Context, id string) (*models.Project, error)
}

type ProjectService struct {
	projectRepo     ProjectStore
	defaultTimezone string
}

func NewProjectService(projectRepo ProjectStore, defaultTimezone string) *ProjectService {
	return &ProjectService{projectRepo: projectRepo, defaultTimezone: defaultTimezone}
}

// CreateProject creates a tenant together with its first API key
func (s *ProjectService) CreateProject(ctx context.Context, req *models.CreateProjectRequest) (*models.CreateProjectResponse, error) {
	tz := req.Timezone
	if tz == "" {
		tz = s.defaultTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, apperrors.NewValidation(apperrors.CodeScheduleInvalidTimezone, "timezone", "unknown timezone %q", tz)
	}

	project := &models.Project{
		Name:               req.Name,
		Timezone:           tz,
		DefaultSMSSender:   req.DefaultSMSSender,
		DefaultEmailSender: req.DefaultEmailSender,
	}
	apiKey, raw, err := api_key.NewKey("")
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	if err := s.projectRepo.CreateWithAPIKey(ctx, project, apiKey); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return &models.CreateProjectResponse{Project: project, APIKey: raw}, nil
}

// GetProject returns a project by id
func (s *ProjectService) GetProject(ctx context.Context, id string) (*models.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if project == nil {
		return nil, apperrors.NewNotFound("project", id)
	}
	return project, nil
}
