package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"collab-llm/internal/domain"
)

// ProjectRepository define el contrato de persistencia para proyectos.
type ProjectRepository interface {
	Create(ctx context.Context, project domain.Project) error
	GetByID(ctx context.Context, id string) (domain.Project, error)
	ListByMember(ctx context.Context, userID string) ([]domain.Project, error)
	AddUsers(ctx context.Context, projectID string, userIDs []string) (domain.Project, error)
}

// PgProjectRepository implementa ProjectRepository usando pgxpool.
// La membresía vive en project_users (project_id, user_id).
type PgProjectRepository struct {
	pool *pgxpool.Pool
}

func NewPgProjectRepository(pool *pgxpool.Pool) *PgProjectRepository {
	return &PgProjectRepository{pool: pool}
}

func (r *PgProjectRepository) Create(ctx context.Context, project domain.Project) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insertProject = `
		INSERT INTO projects (id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tx.Exec(ctx, insertProject,
		project.ID,
		project.Name,
		project.CreatedAt,
		project.UpdatedAt,
	); err != nil {
		return err
	}

	const insertMember = `
		INSERT INTO project_users (project_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	for _, userID := range project.UserIDs {
		if _, err := tx.Exec(ctx, insertMember, project.ID, userID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *PgProjectRepository) GetByID(ctx context.Context, id string) (domain.Project, error) {
	const query = `
		SELECT p.id, p.name, p.created_at, p.updated_at,
		       COALESCE(ARRAY_AGG(pu.user_id) FILTER (WHERE pu.user_id IS NOT NULL), '{}')
		FROM projects p
		LEFT JOIN project_users pu ON pu.project_id = p.id
		WHERE p.id = $1
		GROUP BY p.id
	`
	var p domain.Project
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.UserIDs,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Project{}, err
	}
	return p, err
}

func (r *PgProjectRepository) ListByMember(ctx context.Context, userID string) ([]domain.Project, error) {
	const query = `
		SELECT p.id, p.name, p.created_at, p.updated_at,
		       COALESCE(ARRAY_AGG(all_pu.user_id) FILTER (WHERE all_pu.user_id IS NOT NULL), '{}')
		FROM projects p
		JOIN project_users pu ON pu.project_id = p.id AND pu.user_id = $1
		LEFT JOIN project_users all_pu ON all_pu.project_id = p.id
		GROUP BY p.id
		ORDER BY p.created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt, &p.UserIDs); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *PgProjectRepository) AddUsers(ctx context.Context, projectID string, userIDs []string) (domain.Project, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback(ctx)

	const insertMember = `
		INSERT INTO project_users (project_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	for _, userID := range userIDs {
		if _, err := tx.Exec(ctx, insertMember, projectID, userID); err != nil {
			return domain.Project{}, err
		}
	}

	const touch = `UPDATE projects SET updated_at = NOW() WHERE id = $1`
	if _, err := tx.Exec(ctx, touch, projectID); err != nil {
		return domain.Project{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Project{}, err
	}

	return r.GetByID(ctx, projectID)
}
