package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"collab-llm/internal/domain"
	"collab-llm/internal/repository"
)

// ProjectService coordina reglas de negocio para proyectos y su membresía.
type ProjectService struct {
	projects repository.ProjectRepository
}

func NewProjectService(projects repository.ProjectRepository) *ProjectService {
	return &ProjectService{projects: projects}
}

var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrInvalidProjectID = errors.New("invalid project id")
	ErrProjectNameEmpty = errors.New("project name is required")
	ErrNotProjectMember = errors.New("user does not belong to this project")
	ErrNoUsersToAdd     = errors.New("users must be a non-empty list")
	ErrInvalidUserID    = errors.New("invalid user id")
	ErrProjectSvcNotOK  = errors.New("project service not configured")
)

func (s *ProjectService) Create(ctx context.Context, name, ownerID string) (domain.Project, error) {
	if s == nil || s.projects == nil {
		return domain.Project{}, ErrProjectSvcNotOK
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Project{}, ErrProjectNameEmpty
	}
	if _, err := uuid.Parse(strings.TrimSpace(ownerID)); err != nil {
		return domain.Project{}, ErrInvalidUserID
	}

	now := time.Now().UTC()
	project := domain.Project{
		ID:        uuid.NewString(),
		Name:      name,
		UserIDs:   []string{strings.TrimSpace(ownerID)},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.projects.Create(ctx, project); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// Resolve valida el formato del id, resuelve el proyecto y opcionalmente
// exige que userID sea miembro. Es el paso de admisión que usa el gateway
// de websockets además de los handlers HTTP.
func (s *ProjectService) Resolve(ctx context.Context, projectID, userID string) (domain.Project, error) {
	if s == nil || s.projects == nil {
		return domain.Project{}, ErrProjectSvcNotOK
	}

	projectID = strings.TrimSpace(projectID)
	if _, err := uuid.Parse(projectID); err != nil {
		return domain.Project{}, ErrInvalidProjectID
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Project{}, ErrProjectNotFound
		}
		return domain.Project{}, err
	}

	if userID != "" && !project.HasMember(userID) {
		return domain.Project{}, ErrNotProjectMember
	}
	return project, nil
}

func (s *ProjectService) ListForUser(ctx context.Context, userID string) ([]domain.Project, error) {
	if s == nil || s.projects == nil {
		return nil, ErrProjectSvcNotOK
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return []domain.Project{}, nil
	}
	return s.projects.ListByMember(ctx, userID)
}

// AddUsers agrega colaboradores a un proyecto. El solicitante debe ser
// miembro; los ids agregados deben ser uuids válidos.
func (s *ProjectService) AddUsers(ctx context.Context, projectID string, userIDs []string, requesterID string) (domain.Project, error) {
	if s == nil || s.projects == nil {
		return domain.Project{}, ErrProjectSvcNotOK
	}

	if len(userIDs) == 0 {
		return domain.Project{}, ErrNoUsersToAdd
	}
	cleaned := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		id = strings.TrimSpace(id)
		if _, err := uuid.Parse(id); err != nil {
			return domain.Project{}, ErrInvalidUserID
		}
		cleaned = append(cleaned, id)
	}

	if _, err := s.Resolve(ctx, projectID, requesterID); err != nil {
		return domain.Project{}, err
	}

	return s.projects.AddUsers(ctx, strings.TrimSpace(projectID), cleaned)
}
