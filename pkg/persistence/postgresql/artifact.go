package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/dukex/curator/pkg/versioning"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ArtifactRepository handles artifact and assessment database operations.
type ArtifactRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewArtifactRepository creates a new artifact repository.
func NewArtifactRepository(db *sql.DB, logger *slog.Logger) *ArtifactRepository {
	return &ArtifactRepository{db: db, logger: logger}
}

// FindExact returns the artifact at url|version.
func (r *ArtifactRepository) FindExact(ctx context.Context, url, version string) (*models.Artifact, error) {
	row := r.db.QueryRowContext(ctx, `SELECT document FROM artifacts WHERE url = $1 AND version = $2`, url, version)

	return scanArtifact(row)
}

// FindByID returns the artifact with the storage id.
func (r *ArtifactRepository) FindByID(ctx context.Context, id string) (*models.Artifact, error) {
	row := r.db.QueryRowContext(ctx, `SELECT document FROM artifacts WHERE id = $1`, id)

	return scanArtifact(row)
}

// FindLatest returns the highest version of url, optionally restricted to a status.
// Version ordering happens in Go since versions are not sortable as text.
func (r *ArtifactRepository) FindLatest(ctx context.Context, url string, status models.ArtifactStatus) (*models.Artifact, error) {
	query := `SELECT document FROM artifacts WHERE url = $1`
	args := []any{url}

	if status != "" {
		query += ` AND status = $2`

		args = append(args, status)
	}

	artifacts, err := r.queryArtifacts(ctx, r.db, query, args...)
	if err != nil {
		return nil, err
	}

	return versioning.Latest(artifacts), nil
}

// FindAssessments returns the assessments attached to url|version.
func (r *ArtifactRepository) FindAssessments(ctx context.Context, url, version string) ([]*models.Assessment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT document
		FROM assessments
		WHERE artifact_url = $1 AND artifact_version = $2
		ORDER BY date
	`, url, version)
	if err != nil {
		return nil, fmt.Errorf("failed to query assessments: %w", err)
	}

	defer r.closeRows(ctx, rows)

	assessments := make([]*models.Assessment, 0)

	for rows.Next() {
		var document []byte
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}

		var assessment models.Assessment
		if err := json.Unmarshal(document, &assessment); err != nil {
			return nil, fmt.Errorf("failed to unmarshal assessment: %w", err)
		}

		assessments = append(assessments, &assessment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assessments: %w", err)
	}

	return assessments, nil
}

// SubmitTransaction applies every write inside one database transaction. Constraint
// violations and missing rows abort and roll back the whole transaction.
func (r *ArtifactRepository) SubmitTransaction(ctx context.Context, writes []models.Write) (*models.TransactionResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	outcomes := make([]models.WriteOutcome, 0, len(writes))

	for i, w := range writes {
		if err := r.apply(ctx, tx, w); err != nil {
			_ = tx.Rollback()

			return nil, fmt.Errorf("write %d: %w", i, err)
		}

		outcomes = append(outcomes, models.WriteOutcome{
			Method:       w.Method,
			ResourceType: w.ResourceType(),
			ID:           w.DocumentID(),
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.DebugContext(ctx, "transaction committed", "writes", len(writes))

	return &models.TransactionResult{ID: uuid.NewString(), Outcomes: outcomes}, nil
}

func (r *ArtifactRepository) apply(ctx context.Context, tx *sql.Tx, w models.Write) error {
	switch {
	case w.Artifact != nil && w.Assessment != nil:
		return fmt.Errorf("%w: write carries both an artifact and an assessment", persistence.ErrInvalidWrite)
	case w.Artifact != nil:
		return r.applyArtifact(ctx, tx, w.Method, w.Artifact)
	case w.Assessment != nil:
		return r.applyAssessment(ctx, tx, w.Method, w.Assessment)
	default:
		return fmt.Errorf("%w: empty write", persistence.ErrInvalidWrite)
	}
}

func (r *ArtifactRepository) applyArtifact(ctx context.Context, tx *sql.Tx, method models.WriteMethod, a *models.Artifact) error {
	if a.ID == "" || a.URL == "" {
		return fmt.Errorf("%w: artifact id and url are required", persistence.ErrInvalidWrite)
	}

	if method == models.WriteDelete {
		result, err := tx.ExecContext(ctx, `DELETE FROM artifacts WHERE id = $1`, a.ID)

		return expectRow(result, err, persistence.NewArtifactIDError("Delete", a.ID, persistence.ErrArtifactNotFound))
	}

	document, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact %s: %w", a.ID, err)
	}

	switch method {
	case models.WriteCreate:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO artifacts (id, url, version, kind, status, last_modified, document)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, a.ID, a.URL, a.Version, a.Kind, a.Status, a.LastModified, document)

		return translate(err, persistence.NewArtifactError("Create", a.URL, a.Version, persistence.ErrArtifactAlreadyExists))
	case models.WriteUpdate:
		result, err := tx.ExecContext(ctx, `
			UPDATE artifacts
			SET url = $2, version = $3, kind = $4, status = $5, last_modified = $6, document = $7
			WHERE id = $1
		`, a.ID, a.URL, a.Version, a.Kind, a.Status, a.LastModified, document)

		err = translate(err, persistence.NewArtifactError("Update", a.URL, a.Version, persistence.ErrArtifactAlreadyExists))

		return expectRow(result, err, persistence.NewArtifactIDError("Update", a.ID, persistence.ErrArtifactNotFound))
	default:
		return fmt.Errorf("%w: unknown method %q", persistence.ErrInvalidWrite, method)
	}
}

func (r *ArtifactRepository) applyAssessment(ctx context.Context, tx *sql.Tx, method models.WriteMethod, a *models.Assessment) error {
	if a.ID == "" {
		return fmt.Errorf("%w: assessment id is required", persistence.ErrInvalidWrite)
	}

	switch method {
	case models.WriteCreate:
		document, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("failed to marshal assessment %s: %w", a.ID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO assessments (id, artifact_url, artifact_version, info_type, date, document)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, a.ID, a.ArtifactURL, a.ArtifactVersion, a.InfoType, a.Date, document)

		return translate(err, fmt.Errorf("%w: assessment %s already exists", persistence.ErrInvalidWrite, a.ID))
	case models.WriteDelete:
		result, err := tx.ExecContext(ctx, `DELETE FROM assessments WHERE id = $1`, a.ID)

		return expectRow(result, err, fmt.Errorf("assessment %s: %w", a.ID, persistence.ErrAssessmentNotFound))
	default:
		return fmt.Errorf("%w: method %q not supported for assessments", persistence.ErrInvalidWrite, method)
	}
}

func (r *ArtifactRepository) queryArtifacts(ctx context.Context, q queryer, query string, args ...any) ([]*models.Artifact, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}

	defer r.closeRows(ctx, rows)

	artifacts := make([]*models.Artifact, 0)

	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}

		artifacts = append(artifacts, artifact)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating artifacts: %w", err)
	}

	return artifacts, nil
}

func (r *ArtifactRepository) closeRows(ctx context.Context, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row scanner) (*models.Artifact, error) {
	var document []byte

	err := row.Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan artifact: %w", err)
	}

	var artifact models.Artifact
	if err := json.Unmarshal(document, &artifact); err != nil {
		return nil, fmt.Errorf("failed to unmarshal artifact: %w", err)
	}

	return &artifact, nil
}

// translate maps a unique violation to conflict and wraps any other driver error.
func translate(err error, conflict error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return conflict
	}

	return fmt.Errorf("failed to execute statement: %w", err)
}

func expectRow(result sql.Result, err error, missing error) error {
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return missing
	}

	return nil
}
