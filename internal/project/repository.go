package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type SQLRepository struct {
	db *sql.DB
}

func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Create(ctx context.Context, p *Project) error {
	query := `INSERT INTO projects (id, name, owner_id, visibility, content_type, size_bytes, width, height, source_path, thumbnail_path, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.Name,
		p.OwnerID,
		string(p.Visibility),
		p.ContentType,
		p.SizeBytes,
		p.Width,
		p.Height,
		p.SourcePath,
		nullString(p.ThumbnailPath),
		p.Timestamp,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrAlreadyExists
	}
	return err
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*Project, error) {
	query := `SELECT id, name, owner_id, visibility, content_type, size_bytes, width, height, source_path, thumbnail_path, created_at
			  FROM projects WHERE id = $1`

	p, err := scanProject(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

func (r *SQLRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Project, error) {
	query := `SELECT id, name, owner_id, visibility, content_type, size_bytes, width, height, source_path, thumbnail_path, created_at
			  FROM projects WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}

	return projects, rows.Err()
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*Project, error) {
	p := &Project{}
	var visibility string
	var thumbnailPath sql.NullString

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.OwnerID,
		&visibility,
		&p.ContentType,
		&p.SizeBytes,
		&p.Width,
		&p.Height,
		&p.SourcePath,
		&thumbnailPath,
		&p.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	p.Visibility = Visibility(visibility)
	p.ThumbnailPath = thumbnailPath.String
	return p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
