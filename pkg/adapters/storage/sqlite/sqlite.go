// Package sqlite stores notifications in a SQLite database using the pure Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/aescanero/diun2homer/pkg/domain"
)

// NotificationStore implements NotificationStore using SQLite
type NotificationStore struct {
	db     *sql.DB
	logger *zap.Logger
	mu     sync.RWMutex
}

// New opens (creating if needed) the database at dbPath and migrates it.
func New(ctx context.Context, dbPath string, logger *zap.Logger) (*NotificationStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	dsn := "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't handle multiple writers well
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := NewMigrator(db).MigrateUp(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("database initialized", zap.String("path", dbPath))

	return &NotificationStore{db: db, logger: logger}, nil
}

// Save inserts a notification and assigns its row ID
func (s *NotificationStore) Save(ctx context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	extra, err := encodeExtra(n.Extra)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events (image, status, platform, tag, message, timestamp, extra)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.Image, n.Status, nullString(n.Platform), nullString(n.Tag), n.Message, n.Timestamp(), extra,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read event id: %w", err)
	}
	n.ID = id

	s.logger.Debug("event stored", zap.Int64("id", id), zap.String("image", n.Image))
	return nil
}

// List returns notifications newest first
func (s *NotificationStore) List(ctx context.Context, limit int) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, image, status, platform, tag, message, timestamp, extra
		 FROM events ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return out, nil
}

// Count returns the number of stored notifications
func (s *NotificationStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

// DeleteBefore removes notifications received strictly before t. Rows only
// carry whole seconds, so the cutoff is rounded up.
func (s *NotificationStore) DeleteBefore(ctx context.Context, t time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE timestamp < ?`,
		domain.CeilSecond(t).UTC().Format(domain.TimestampLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to delete events: %w", err)
	}
	return rowsAffected(res)
}

// Trim keeps only the newest keep notifications
func (s *NotificationStore) Trim(ctx context.Context, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM events WHERE id NOT IN (
			SELECT id FROM events ORDER BY timestamp DESC, id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to trim events: %w", err)
	}
	return rowsAffected(res)
}

// Ping checks if the database is accessible
func (s *NotificationStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *NotificationStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNotification(row scanner) (domain.Notification, error) {
	var (
		n                      domain.Notification
		image, status, message sql.NullString
		platform, tag, extra   sql.NullString
		ts                     any
	)
	if err := row.Scan(&n.ID, &image, &status, &platform, &tag, &message, &ts, &extra); err != nil {
		return domain.Notification{}, fmt.Errorf("failed to scan event: %w", err)
	}

	n.Image = image.String
	n.Status = status.String
	n.Platform = platform.String
	n.Tag = tag.String
	n.Message = message.String

	receivedAt, err := parseTimestamp(ts)
	if err != nil {
		return domain.Notification{}, fmt.Errorf("event %d: %w", n.ID, err)
	}
	n.ReceivedAt = receivedAt

	if extra.Valid && extra.String != "" {
		if err := json.Unmarshal([]byte(extra.String), &n.Extra); err != nil {
			return domain.Notification{}, fmt.Errorf("event %d: failed to decode extra: %w", n.ID, err)
		}
	}
	return n, nil
}

// parseTimestamp accepts whatever the driver hands back for the timestamp
// column. DATETIME columns may come back as time.Time or as text.
func parseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return domain.ParseTimestamp(t)
	case []byte:
		return domain.ParseTimestamp(string(t))
	case nil:
		return time.Time{}, fmt.Errorf("missing timestamp")
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp type %T", v)
	}
}

func encodeExtra(extra map[string]any) (sql.NullString, error) {
	if len(extra) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal extra: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func rowsAffected(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(n), nil
}
