package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
	"github.com/spec-kit/campus-helpdesk/internal/repository"
	apperrors "github.com/spec-kit/campus-helpdesk/pkg/util"
)

// DepartmentService manages the routing targets tickets are assigned to.
type DepartmentService struct {
	repo   repository.DepartmentRepository
	logger *zap.Logger
	now    Clock
}

// DepartmentUpdate carries optional field changes.
type DepartmentUpdate struct {
	Name        *string
	Description *string
}

// NewDepartmentService constructs the service.
func NewDepartmentService(repo repository.DepartmentRepository, logger *zap.Logger, clock Clock) *DepartmentService {
	return &DepartmentService{repo: repo, logger: loggerOrNop(logger), now: clockOrDefault(clock)}
}

// List returns every department.
func (s *DepartmentService) List(ctx context.Context) ([]domain.Department, error) {
	depts, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if depts == nil {
		depts = []domain.Department{}
	}
	return depts, nil
}

// Get loads a department by id.
func (s *DepartmentService) Get(ctx context.Context, id string) (*domain.Department, error) {
	dept, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "department", map[string]any{"department_id": id})
	}
	return dept, nil
}

// Create adds a department. Names are unique regardless of case.
func (s *DepartmentService) Create(ctx context.Context, identity domain.Identity, name, description string) (*domain.Department, error) {
	if err := requireSupervisor(identity); err != nil {
		return nil, err
	}
	return s.create(ctx, name, description)
}

func (s *DepartmentService) create(ctx context.Context, name, description string) (*domain.Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("department name is required", map[string]any{"field": "name"})
	}
	dept := &domain.Department{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, dept); err != nil {
		return nil, mapRepoError(err, "department", map[string]any{"name": name})
	}
	s.logger.Info("department created", zap.String("department", dept.Name))
	return dept, nil
}

// Update renames or re-describes a department.
func (s *DepartmentService) Update(ctx context.Context, identity domain.Identity, id string, update DepartmentUpdate) (*domain.Department, error) {
	if err := requireSupervisor(identity); err != nil {
		return nil, err
	}
	dept, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("department name is required", map[string]any{"field": "name"})
		}
		dept.Name = name
	}
	if update.Description != nil {
		dept.Description = strings.TrimSpace(*update.Description)
	}
	if err := s.repo.Update(ctx, dept); err != nil {
		return nil, mapRepoError(err, "department", map[string]any{"department_id": id})
	}
	return dept, nil
}

// Delete removes a department. Tickets keep the name they were routed with.
func (s *DepartmentService) Delete(ctx context.Context, identity domain.Identity, id string) error {
	if err := requireSupervisor(identity); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err, "department", map[string]any{"department_id": id})
	}
	return nil
}

// Resolve finds a department by name, creating it when autoCreate is set.
func (s *DepartmentService) Resolve(ctx context.Context, name string, autoCreate bool) (*domain.Department, error) {
	name = strings.TrimSpace(name)
	dept, err := s.repo.GetByName(ctx, name)
	if err == nil {
		return dept, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.MapError(err)
	}
	if !autoCreate {
		return nil, apperrors.NewNotFound("department", map[string]any{"department": name})
	}
	return s.create(ctx, name, "")
}

// Seed makes sure the named departments exist.
func (s *DepartmentService) Seed(ctx context.Context, names []string) error {
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if _, err := s.Resolve(ctx, name, true); err != nil && !apperrors.HasCode(err, apperrors.CodeConflict) {
			return err
		}
	}
	return nil
}
