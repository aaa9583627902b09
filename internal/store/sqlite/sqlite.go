// Package sqlite provides an embedded SQLite implementation of the remote
// store.
//
// The database runs in embedded mode (ncruces/go-sqlite3, WASM build of
// SQLite) with WAL for concurrent readers.
//
// Architecture:
//   - Tables: sheets, questions, user_question_status
//   - Unique (user_id, question_id) on user_question_status
//   - Every committed status mutation is published on an in-process Feed,
//     which backs Subscribe
//
// The store is the only writer of user_question_status, so the feed sees
// every change.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/sheettrack/sheettrack/internal/schema"
	"github.com/sheettrack/sheettrack/internal/store"
)

// Store wraps the SQLite connection and the change feed.
type Store struct {
	conn   *sql.DB
	path   string
	feed   *store.Feed
	logger *log.Logger
}

var (
	_ store.RemoteStore = (*Store)(nil)
	_ store.Upserter    = (*Store)(nil)
	_ store.Admin       = (*Store)(nil)
)

// Open creates a new database connection at the specified path.
//
// If the database doesn't exist, it is created. Call InitSchema before
// first use. The caller MUST call Close() when done.
//
// If logger is nil, a default logger writing to stderr is used.
//
// Example:
//
//	st, err := sqlite.Open(".sheettrack/store.db", nil)
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
func Open(path string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[store] ", log.LstdFlags)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas in the DSN apply to every pooled connection. Immediate
	// transactions take the write lock up front so read-then-write
	// transactions wait on busy_timeout instead of failing.
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{
		conn:   conn,
		path:   path,
		feed:   store.NewFeed(100, logger),
		logger: logger,
	}

	if _, err := s.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close ends all subscriptions and closes the database connection.
// Performs a WAL checkpoint to ensure all changes are persisted.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	s.feed.Close()

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		s.logger.Printf("Warning: failed to checkpoint WAL: %v", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.conn = nil
	return nil
}

// InitSchema creates the database schema if it doesn't exist.
// This is idempotent - safe to call multiple times.
func (s *Store) InitSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS sheets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		total_questions INTEGER NOT NULL DEFAULT 0,
		position INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		difficulty TEXT NOT NULL CHECK (difficulty IN ('Easy', 'Medium', 'Hard')),
		url TEXT NOT NULL DEFAULT '',
		topic TEXT NOT NULL,
		sheet_id TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (sheet_id) REFERENCES sheets(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS user_question_status (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('todo', 'redo', 'revision', 'completed')),
		last_updated TEXT NOT NULL,
		UNIQUE (user_id, question_id)
	);

	CREATE INDEX IF NOT EXISTS idx_questions_sheet ON questions(sheet_id, position);
	CREATE INDEX IF NOT EXISTS idx_status_user ON user_question_status(user_id);
	`

	if _, err := s.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// PutSheet inserts or replaces a sheet. New sheets are appended after
// existing ones in listing order.
func (s *Store) PutSheet(ctx context.Context, sheet *schema.Sheet) error {
	if err := sheet.Validate(); err != nil {
		return fmt.Errorf("invalid sheet: %w", err)
	}

	query := `
	INSERT INTO sheets (id, name, description, total_questions, position)
	VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM sheets))
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		description = excluded.description,
		total_questions = excluded.total_questions
	`
	if _, err := s.conn.ExecContext(ctx, query, sheet.ID, sheet.Name, sheet.Description, sheet.TotalQuestions); err != nil {
		return fmt.Errorf("failed to put sheet %s: %w", sheet.ID, err)
	}
	return nil
}

// PutQuestion inserts or replaces a question. The owning sheet must exist.
func (s *Store) PutQuestion(ctx context.Context, q *schema.Question) error {
	if err := q.Validate(); err != nil {
		return fmt.Errorf("invalid question: %w", err)
	}

	query := `
	INSERT INTO questions (id, title, difficulty, url, topic, sheet_id, position)
	VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM questions WHERE sheet_id = ?))
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		difficulty = excluded.difficulty,
		url = excluded.url,
		topic = excluded.topic,
		sheet_id = excluded.sheet_id
	`
	_, err := s.conn.ExecContext(ctx, query,
		q.ID, q.Title, string(q.Difficulty), q.URL, q.Topic, q.SheetID, q.SheetID)
	if err != nil {
		return fmt.Errorf("failed to put question %s: %w", q.ID, err)
	}
	return nil
}

// ListSheets implements store.RemoteStore.
func (s *Store) ListSheets(ctx context.Context) ([]schema.Sheet, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, name, description, total_questions
		FROM sheets
		ORDER BY position ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sheets: %w", err)
	}
	defer rows.Close()

	sheets := []schema.Sheet{}
	for rows.Next() {
		var sh schema.Sheet
		if err := rows.Scan(&sh.ID, &sh.Name, &sh.Description, &sh.TotalQuestions); err != nil {
			return nil, fmt.Errorf("failed to scan sheet: %w", err)
		}
		sheets = append(sheets, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sheets: %w", err)
	}
	return sheets, nil
}

// ListQuestions implements store.RemoteStore.
func (s *Store) ListQuestions(ctx context.Context, sheetID string) ([]schema.Question, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, title, difficulty, url, topic, sheet_id
		FROM questions
		WHERE sheet_id = ?
		ORDER BY position ASC, id ASC
	`, sheetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions for sheet %s: %w", sheetID, err)
	}
	defer rows.Close()

	questions := []schema.Question{}
	for rows.Next() {
		var q schema.Question
		var difficulty string
		if err := rows.Scan(&q.ID, &q.Title, &difficulty, &q.URL, &q.Topic, &q.SheetID); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		q.Difficulty = schema.Difficulty(difficulty)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}
	return questions, nil
}

const statusColumns = `id, user_id, question_id, status, last_updated`

// ListStatuses implements store.RemoteStore.
func (s *Store) ListStatuses(ctx context.Context, userID string) ([]schema.StatusRecord, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+statusColumns+` FROM user_question_status WHERE user_id = ? ORDER BY question_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query statuses for %s: %w", userID, err)
	}
	defer rows.Close()

	return scanStatuses(rows)
}

// ListStatusesFor implements store.RemoteStore.
func (s *Store) ListStatusesFor(ctx context.Context, userID string, questionIDs []string) ([]schema.StatusRecord, error) {
	if len(questionIDs) == 0 {
		return []schema.StatusRecord{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(questionIDs)), ",")
	args := make([]interface{}, 0, len(questionIDs)+1)
	args = append(args, userID)
	for _, id := range questionIDs {
		args = append(args, id)
	}

	query := `SELECT ` + statusColumns + ` FROM user_question_status
		WHERE user_id = ? AND question_id IN (` + placeholders + `)
		ORDER BY question_id`

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query statuses for %s: %w", userID, err)
	}
	defer rows.Close()

	return scanStatuses(rows)
}

// GetStatus implements store.RemoteStore.
func (s *Store) GetStatus(ctx context.Context, userID, questionID string) (*schema.StatusRecord, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+statusColumns+` FROM user_question_status WHERE user_id = ? AND question_id = ?`,
		userID, questionID)

	rec, err := scanStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get status %s/%s: %w", userID, questionID, err)
	}
	return rec, nil
}

// InsertStatus implements store.RemoteStore.
// A UUID is assigned when rec.ID is empty.
func (s *Store) InsertStatus(ctx context.Context, rec *schema.StatusRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid status record: %w", err)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	res, err := s.conn.ExecContext(ctx, `
		INSERT INTO user_question_status (id, user_id, question_id, status, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, question_id) DO NOTHING
	`, rec.ID, rec.UserID, rec.QuestionID, string(rec.Status), formatTime(rec.LastUpdated))
	if err != nil {
		return fmt.Errorf("failed to insert status %s/%s: %w", rec.UserID, rec.QuestionID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to insert status %s/%s: %w", rec.UserID, rec.QuestionID, store.ErrConflict)
	}

	s.publish(store.EventInsert, rec, nil)
	return nil
}

// UpdateStatus implements store.RemoteStore.
func (s *Store) UpdateStatus(ctx context.Context, rec *schema.StatusRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid status record: %w", err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	old, err := scanStatus(tx.QueryRowContext(ctx,
		`SELECT `+statusColumns+` FROM user_question_status WHERE user_id = ? AND question_id = ?`,
		rec.UserID, rec.QuestionID))
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to update status %s/%s: %w", rec.UserID, rec.QuestionID, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read status %s/%s: %w", rec.UserID, rec.QuestionID, err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE user_question_status SET status = ?, last_updated = ?
		WHERE user_id = ? AND question_id = ?
	`, string(rec.Status), formatTime(rec.LastUpdated), rec.UserID, rec.QuestionID)
	if err != nil {
		return fmt.Errorf("failed to update status %s/%s: %w", rec.UserID, rec.QuestionID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	rec.ID = old.ID
	s.publish(store.EventUpdate, rec, old)
	return nil
}

// UpsertStatus implements store.Upserter.
func (s *Store) UpsertStatus(ctx context.Context, rec *schema.StatusRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid status record: %w", err)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	old, err := scanStatus(tx.QueryRowContext(ctx,
		`SELECT `+statusColumns+` FROM user_question_status WHERE user_id = ? AND question_id = ?`,
		rec.UserID, rec.QuestionID))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read status %s/%s: %w", rec.UserID, rec.QuestionID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_question_status (id, user_id, question_id, status, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, question_id) DO UPDATE SET
			status = excluded.status,
			last_updated = excluded.last_updated
	`, rec.ID, rec.UserID, rec.QuestionID, string(rec.Status), formatTime(rec.LastUpdated))
	if err != nil {
		return fmt.Errorf("failed to upsert status %s/%s: %w", rec.UserID, rec.QuestionID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if old != nil {
		rec.ID = old.ID
		s.publish(store.EventUpdate, rec, old)
	} else {
		s.publish(store.EventInsert, rec, nil)
	}
	return nil
}

// DeleteStatus removes the record for (userID, questionID).
// Returns nil if the record doesn't exist (idempotent).
func (s *Store) DeleteStatus(ctx context.Context, userID, questionID string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	old, err := scanStatus(tx.QueryRowContext(ctx,
		`SELECT `+statusColumns+` FROM user_question_status WHERE user_id = ? AND question_id = ?`,
		userID, questionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read status %s/%s: %w", userID, questionID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_question_status WHERE user_id = ? AND question_id = ?`,
		userID, questionID); err != nil {
		return fmt.Errorf("failed to delete status %s/%s: %w", userID, questionID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.publish(store.EventDelete, nil, old)
	return nil
}

// Subscribe implements store.RemoteStore.
func (s *Store) Subscribe(ctx context.Context, userID string) (store.Subscription, error) {
	if s.conn == nil {
		return nil, store.ErrClosed
	}
	return s.feed.Subscribe(ctx, userID)
}

// Counts reports the number of rows in each collection.
type Counts struct {
	Sheets    int
	Questions int
	Statuses  int
}

// Count returns row counts for the status command.
func (s *Store) Count(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM sheets),
			(SELECT COUNT(*) FROM questions),
			(SELECT COUNT(*) FROM user_question_status)
	`).Scan(&c.Sheets, &c.Questions, &c.Statuses)
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count rows: %w", err)
	}
	return c, nil
}

func (s *Store) publish(typ store.EventType, newRec, oldRec *schema.StatusRecord) {
	ev := store.ChangeEvent{Type: typ, At: time.Now().UTC()}
	if newRec != nil {
		cp := *newRec
		ev.New = &cp
	}
	if oldRec != nil {
		cp := *oldRec
		ev.Old = &cp
	}
	s.feed.Publish(ev)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanStatus scans a single status row. Returns sql.ErrNoRows unchanged.
func scanStatus(row rowScanner) (*schema.StatusRecord, error) {
	var rec schema.StatusRecord
	var status, lastUpdated string

	if err := row.Scan(&rec.ID, &rec.UserID, &rec.QuestionID, &status, &lastUpdated); err != nil {
		return nil, err
	}

	rec.Status = schema.Status(status)
	t, err := time.Parse(time.RFC3339Nano, lastUpdated)
	if err != nil {
		return nil, fmt.Errorf("failed to parse last_updated %q: %w", lastUpdated, err)
	}
	rec.LastUpdated = t
	return &rec, nil
}

// scanStatuses is a helper to scan multiple status rows.
func scanStatuses(rows *sql.Rows) ([]schema.StatusRecord, error) {
	recs := []schema.StatusRecord{}
	for rows.Next() {
		rec, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan status: %w", err)
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating statuses: %w", err)
	}
	return recs, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
