// Package audit records course generation events for later analysis.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// Event types written by the course pipeline.
const (
	EventCourseGenerated   = "course_generated"
	EventGenerationFailed  = "generation_failed"
	EventMalformedResponse = "malformed_response"
	EventPersistenceFailed = "persistence_failed"
	EventDocumentExported  = "document_exported"
)

// Event represents an analytics event persisted to the generation_events table.
type Event struct {
	CourseID  string
	UserID    string
	EventType string
	Data      map[string]any
	CreatedAt time.Time
}

// EventLogger defines event logging behavior.
type EventLogger interface {
	LogEvent(ctx context.Context, event Event) error
}

// NopEventLogger ignores all events.
type NopEventLogger struct{}

func (NopEventLogger) LogEvent(context.Context, Event) error {
	return nil
}

// MemoryEventLogger stores events in memory for tests.
type MemoryEventLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEventLogger() *MemoryEventLogger {
	return &MemoryEventLogger{
		events: []Event{},
	}
}

func (l *MemoryEventLogger) LogEvent(_ context.Context, event Event) error {
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

func (l *MemoryEventLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// OfType returns the recorded events with the given type, oldest first.
func (l *MemoryEventLogger) OfType(eventType string) []Event {
	var out []Event
	for _, e := range l.Events() {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// PostgresEventLogger inserts events into the generation_events table.
type PostgresEventLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresEventLogger(pool *pgxpool.Pool) *PostgresEventLogger {
	return &PostgresEventLogger{pool: pool}
}

func (l *PostgresEventLogger) LogEvent(ctx context.Context, event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}

	payload := event.Data
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err = l.pool.Exec(ctx,
		`INSERT INTO generation_events (course_id, user_id, event_type, data, created_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5)`,
		nullIfEmpty(event.CourseID),
		event.UserID,
		event.EventType,
		string(data),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("event logged",
		"type", event.EventType,
		"course_id", event.CourseID,
		"user_id", event.UserID,
	)
	return nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
