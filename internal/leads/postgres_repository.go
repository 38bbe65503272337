package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/totalhomes/lead-qualifier/internal/qualify"
)

// PgxPool is the subset of *pgxpool.Pool the repository needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores leads in the relational database. Fields,
// estimate and transcript are kept as JSONB documents.
type PostgresRepository struct {
	pool      PgxPool
	validator *Validator
	capacity  int
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool PgxPool, capacity int) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &PostgresRepository{pool: pool, validator: NewValidator(), capacity: capacity}
}

const leadColumns = `id, session_id, created_at, language, backend, summary, score, tier, reasons, status, disqualified, fields, estimate, transcript`

// Save inserts the record, then trims the table to the configured capacity.
func (r *PostgresRepository) Save(ctx context.Context, rec *LeadRecord) (string, error) {
	if err := r.validator.Validate(rec); err != nil {
		return "", err
	}
	reasons, fields, estimate, transcript, err := encodeDocuments(rec)
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	if _, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.SessionID,
		rec.CreatedAt,
		string(rec.Language),
		rec.Backend,
		rec.Summary,
		rec.Score,
		rec.Tier,
		reasons,
		string(rec.Status),
		string(rec.Disqualified),
		fields,
		estimate,
		transcript,
	); err != nil {
		return "", fmt.Errorf("leads: insert failed: %w", err)
	}

	trim := `
		DELETE FROM leads
		WHERE id IN (SELECT id FROM leads ORDER BY created_at DESC, id DESC OFFSET $1)
	`
	if _, err := r.pool.Exec(ctx, trim, r.capacity); err != nil {
		return "", fmt.Errorf("leads: trim failed: %w", err)
	}
	return rec.ID, nil
}

// List returns up to limit leads, newest first. A limit of zero or less
// returns every stored lead.
func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*LeadRecord, error) {
	if limit <= 0 {
		limit = r.capacity
	}
	rows, err := r.pool.Query(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	defer rows.Close()

	out := []*LeadRecord{}
	for rows.Next() {
		rec, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	return out, nil
}

// Get fetches a lead by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*LeadRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	rec, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("leads: delete failed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) Clear(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM leads`); err != nil {
		return fmt.Errorf("leads: clear failed: %w", err)
	}
	return nil
}

func scanLead(row pgx.Row) (*LeadRecord, error) {
	var (
		rec                                   LeadRecord
		language, status, disqualified        string
		reasons, fields, estimate, transcript []byte
		createdAt                             time.Time
	)
	if err := row.Scan(
		&rec.ID,
		&rec.SessionID,
		&createdAt,
		&language,
		&rec.Backend,
		&rec.Summary,
		&rec.Score,
		&rec.Tier,
		&reasons,
		&status,
		&disqualified,
		&fields,
		&estimate,
		&transcript,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	rec.CreatedAt = createdAt.UTC()
	rec.Language = qualify.Language(language)
	rec.Status = Status(status)
	rec.Disqualified = qualify.DisqualifyReason(disqualified)
	if err := decodeDocuments(&rec, reasons, fields, estimate, transcript); err != nil {
		return nil, err
	}
	return &rec, nil
}

func encodeDocuments(rec *LeadRecord) (reasons, fields, estimate, transcript []byte, err error) {
	if reasons, err = json.Marshal(rec.Reasons); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("leads: encode reasons: %w", err)
	}
	if fields, err = json.Marshal(rec.Fields); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("leads: encode fields: %w", err)
	}
	if estimate, err = json.Marshal(rec.Estimate); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("leads: encode estimate: %w", err)
	}
	if transcript, err = json.Marshal(rec.Transcript); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("leads: encode transcript: %w", err)
	}
	return reasons, fields, estimate, transcript, nil
}

func decodeDocuments(rec *LeadRecord, reasons, fields, estimate, transcript []byte) error {
	docs := []struct {
		name string
		data []byte
		dst  any
	}{
		{"reasons", reasons, &rec.Reasons},
		{"fields", fields, &rec.Fields},
		{"estimate", estimate, &rec.Estimate},
		{"transcript", transcript, &rec.Transcript},
	}
	for _, d := range docs {
		if len(d.data) == 0 {
			continue
		}
		if err := json.Unmarshal(d.data, d.dst); err != nil {
			return fmt.Errorf("leads: decode %s: %w", d.name, err)
		}
	}
	if rec.Reasons == nil {
		rec.Reasons = []string{}
	}
	return nil
}
