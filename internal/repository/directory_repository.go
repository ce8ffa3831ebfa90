package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/attendly/fieldforce-api/internal/models"
)

// DirectoryRepository reads the employee directory facts the engine needs:
// employees, their sites, and the active roster. Directory writes belong to
// the identity service.
type DirectoryRepository struct {
	db *sqlx.DB
}

// NewDirectoryRepository constructs the repository.
func NewDirectoryRepository(db *sqlx.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// GetEmployee fetches directory facts for one employee.
// sql.ErrNoRows passes through.
func (r *DirectoryRepository) GetEmployee(ctx context.Context, employeeID string) (*models.Employee, error) {
	const query = `SELECT id, full_name, designation, delegate_id, site_id, role_level, active
FROM employees WHERE id = $1`
	var emp models.Employee
	if err := r.db.GetContext(ctx, &emp, query, employeeID); err != nil {
		return nil, err
	}
	return &emp, nil
}

// ResolveSite returns the assigned site for an employee.
func (r *DirectoryRepository) ResolveSite(ctx context.Context, employeeID string) (*models.Site, error) {
	const query = `SELECT s.id, s.name, s.kind, s.lat, s.lng
FROM employees e
JOIN sites s ON s.id = e.site_id
WHERE e.id = $1`
	var site models.Site
	if err := r.db.GetContext(ctx, &site, query, employeeID); err != nil {
		return nil, err
	}
	return &site, nil
}

// ActiveRoster lists ids of every active employee, for the end-of-day sweep.
func (r *DirectoryRepository) ActiveRoster(ctx context.Context) ([]string, error) {
	const query = `SELECT id FROM employees WHERE active = TRUE ORDER BY id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list active roster: %w", err)
	}
	return ids, nil
}
