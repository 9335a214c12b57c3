package course

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore keeps each course as one JSONB document in the courses table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed course store. The courses
// table must exist (see database.EnsureSchema).
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Save(ctx context.Context, c *Course) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("course id is required")
	}
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode course: %w", err)
	}

	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO courses (id, owner_id, title, document, created_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET owner_id = EXCLUDED.owner_id,
		     title = EXCLUDED.title,
		     document = EXCLUDED.document`,
		c.ID,
		c.OwnerID,
		c.Title,
		string(doc),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("save course: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Course, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT document FROM courses WHERE id = $1`,
		id,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrCourseNotFound, id)
		}
		return nil, fmt.Errorf("get course: %w", err)
	}

	var c Course
	if err := json.Unmarshal(doc, &c); err != nil {
		return nil, fmt.Errorf("decode course: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) List(ctx context.Context, ownerID string, limit int) ([]Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	// LIMIT NULL means no limit.
	var lim any
	if limit > 0 {
		lim = limit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, title,
		        COALESCE((document->>'durationDays')::int, 0),
		        COALESCE(jsonb_array_length(document->'modules'), 0),
		        created_at
		 FROM courses
		 WHERE owner_id = $1
		 ORDER BY created_at DESC, id ASC
		 LIMIT $2`,
		ownerID,
		lim,
	)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.DurationDays, &sum.Modules, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return out, nil
}
