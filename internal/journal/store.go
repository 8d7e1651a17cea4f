package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"sam/internal/jobqueue"
	"sam/internal/logging"
)

// Status is the lifecycle state of a journaled job.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusRunning     Status = "running"
	StatusSucceeded   Status = "succeeded"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// Job is one journaled row.
type Job struct {
	ID         string
	SessionID  string
	Kind       string
	Seq        uint64
	Status     Status
	Error      string
	QueuedAt   time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
}

// Filter narrows List results.
type Filter struct {
	SessionID string
	Status    Status
	Limit     int
}

// writeBacklog bounds observer events waiting for the writer goroutine.
const writeBacklog = 512

// Store manages job history backed by SQLite. Observer callbacks only queue
// a write; a single writer goroutine applies them in arrival order.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	closed  bool
	writes  chan write
	done    chan struct{}
	dropped atomic.Int64
}

type write struct {
	info  jobqueue.JobInfo
	stage string
	apply func(ctx context.Context) error
	ack   chan struct{}
}

var _ jobqueue.Observer = (*Store)(nil)

// Open initializes or connects to the journal database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:     db,
		path:   path,
		logger: logging.NewComponentLogger(logger, "journal"),
		now:    time.Now,
		writes: make(chan write, writeBacklog),
		done:   make(chan struct{}),
	}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	go store.writer()
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close applies pending observer writes and closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.writes)
	s.mu.Unlock()

	<-s.done
	return s.db.Close()
}

// Flush waits until every observer write queued before the call is applied.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	ack := make(chan struct{})
	select {
	case s.writes <- write{ack: ack}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped reports observer writes discarded because the backlog was full.
func (s *Store) Dropped() int64 { return s.dropped.Load() }

func (s *Store) writer() {
	defer close(s.done)
	for w := range s.writes {
		if w.ack != nil {
			close(w.ack)
			continue
		}
		s.observe(w.info, w.stage, w.apply(context.Background()))
	}
}

func (s *Store) submit(w write) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.writes <- w:
	default:
		if s.dropped.Add(1) == 1 {
			logging.WarnWithContext(s.logger, "job journal backlog full; dropping history", "journal_backlog_full",
				logging.String(logging.FieldJobID, w.info.ID),
				logging.String("stage", w.stage),
				logging.String(logging.FieldErrorHint, "check state_dir disk latency"),
				logging.String(logging.FieldImpact, "job history is incomplete; jobs are unaffected"),
			)
		}
	}
}

// MarkInterrupted moves rows a previous process left queued or running to
// interrupted and returns how many changed.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, finished_at = ? WHERE status IN (?, ?)`,
		StatusInterrupted, s.timestamp(), StatusQueued, StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted jobs: %w", err)
	}
	return res.RowsAffected()
}

// RecordQueued inserts a queued row.
func (s *Store) RecordQueued(ctx context.Context, info jobqueue.JobInfo) error {
	return s.insertQueued(ctx, info, s.timestamp())
}

func (s *Store) insertQueued(ctx context.Context, info jobqueue.JobInfo, at string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, session_id, kind, seq, status, queued_at) VALUES (?, ?, ?, ?, ?, ?)`,
		info.ID, info.Session, info.Kind, int64(info.Seq), StatusQueued, at,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// RecordStarted marks a row running.
func (s *Store) RecordStarted(ctx context.Context, id string) error {
	return s.markStarted(ctx, id, s.timestamp())
}

func (s *Store) markStarted(ctx context.Context, id, at string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, started_at = ? WHERE id = ?`,
		StatusRunning, at, id,
	)
	if err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}
	return nil
}

// RecordFinished marks a row succeeded or failed.
func (s *Store) RecordFinished(ctx context.Context, id string, duration time.Duration, jobErr error) error {
	return s.markFinished(ctx, id, duration, jobErr, s.timestamp())
}

func (s *Store) markFinished(ctx context.Context, id string, duration time.Duration, jobErr error, at string) error {
	status := StatusSucceeded
	var message sql.NullString
	if jobErr != nil {
		status = StatusFailed
		message = sql.NullString{String: jobErr.Error(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, finished_at = ?, duration_ms = ? WHERE id = ?`,
		status, message, at, duration.Milliseconds(), id,
	)
	if err != nil {
		return fmt.Errorf("mark job finished: %w", err)
	}
	return nil
}

// List returns jobs newest first, after pending observer writes land.
func (s *Store) List(ctx context.Context, filter Filter) ([]Job, error) {
	if err := s.Flush(ctx); err != nil {
		return nil, err
	}
	query := `SELECT id, session_id, kind, seq, status, error_message, queued_at, started_at, finished_at, duration_ms FROM jobs`
	var (
		clauses []string
		args    []any
	)
	if filter.SessionID != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY queued_at DESC, seq DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	if err := s.Flush(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// JobQueued implements jobqueue.Observer.
func (s *Store) JobQueued(info jobqueue.JobInfo) {
	at := s.timestamp()
	s.submit(write{info: info, stage: "queued", apply: func(ctx context.Context) error {
		return s.insertQueued(ctx, info, at)
	}})
}

// JobStarted implements jobqueue.Observer.
func (s *Store) JobStarted(info jobqueue.JobInfo) {
	at := s.timestamp()
	s.submit(write{info: info, stage: "started", apply: func(ctx context.Context) error {
		return s.markStarted(ctx, info.ID, at)
	}})
}

// JobFinished implements jobqueue.Observer.
func (s *Store) JobFinished(info jobqueue.JobInfo, duration time.Duration, err error) {
	at := s.timestamp()
	s.submit(write{info: info, stage: "finished", apply: func(ctx context.Context) error {
		return s.markFinished(ctx, info.ID, duration, err, at)
	}})
}

func (s *Store) observe(info jobqueue.JobInfo, stage string, err error) {
	if err == nil {
		return
	}
	logging.WarnWithContext(s.logger, "job journal write failed", "journal_write_failed",
		logging.String(logging.FieldSessionID, info.Session),
		logging.String(logging.FieldJobID, info.ID),
		logging.String("stage", stage),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check state_dir permissions and free space"),
		logging.String(logging.FieldImpact, "job history is incomplete; the job itself is unaffected"),
	)
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (Job, error) {
	var (
		job                           Job
		seq                           int64
		errMsg, startedAt, finishedAt sql.NullString
		queuedAt                      string
		durationMS                    sql.NullInt64
	)
	if err := row.Scan(&job.ID, &job.SessionID, &job.Kind, &seq, &job.Status, &errMsg, &queuedAt, &startedAt, &finishedAt, &durationMS); err != nil {
		return Job{}, fmt.Errorf("scan job: %w", err)
	}
	job.Seq = uint64(seq)
	job.Error = errMsg.String
	job.QueuedAt = parseTime(queuedAt)
	job.StartedAt = parseTime(startedAt.String)
	job.FinishedAt = parseTime(finishedAt.String)
	if durationMS.Valid {
		job.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	}
	return job, nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
