package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"sam/internal/fileutil"
	"sam/internal/jobqueue"
	"sam/internal/logging"
	"sam/internal/services"
	"sam/internal/textutil"
)

// Pointer is the persisted record of the most recently activated session.
type Pointer struct {
	SessionID   string `json:"sessionId"`
	SessionPath string `json:"sessionPath"`
	From        string `json:"from"`
}

// QueueFactory builds the job queue attached to a newly opened session.
type QueueFactory func(sessionID string) *jobqueue.Queue

// Store holds at most one session.
type Store struct {
	workDir     string
	pointerPath string
	newQueue    QueueFactory
	logger      *slog.Logger

	mu      sync.Mutex
	current *Session
}

// NewStore constructs a store rooted at workDir that persists its pointer to
// pointerPath. A nil factory attaches plain queues.
func NewStore(workDir, pointerPath string, factory QueueFactory, logger *slog.Logger) *Store {
	logger = logging.NewComponentLogger(logger, "session")
	if factory == nil {
		factory = func(id string) *jobqueue.Queue {
			return jobqueue.New(id, jobqueue.WithLogger(logger))
		}
	}
	return &Store{
		workDir:     workDir,
		pointerPath: pointerPath,
		newQueue:    factory,
		logger:      logger,
	}
}

// WorkDir returns the root directory holding session directories.
func (s *Store) WorkDir() string { return s.workDir }

// PointerPath returns the location of the persisted pointer.
func (s *Store) PointerPath() string { return s.pointerPath }

// Current returns the held session or nil.
func (s *Store) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Activate replaces the held session and writes the pointer. Pointer write
// failures are logged and otherwise ignored.
func (s *Store) Activate(sess *Session) {
	if sess == nil {
		return
	}
	s.mu.Lock()
	previous := s.current
	s.current = sess
	s.mu.Unlock()

	logger := s.logger.With(logging.String(logging.FieldSessionID, sess.ID))
	if previous != nil && previous.Active() && previous.ID != sess.ID {
		logger.Info("session superseded",
			logging.String("previous_session_id", previous.ID),
			logging.String(logging.FieldEventType, "session_superseded"),
		)
	}
	logger.Info("session activated",
		logging.String("path", sess.Path),
		logging.Int("images", sess.ImageCount()),
		logging.String(logging.FieldEventType, "session_activated"),
	)

	if err := s.writePointer(Pointer{SessionID: sess.ID, SessionPath: sess.Path, From: sess.From}); err != nil {
		logging.WarnWithContext(logger, "session pointer write failed", "pointer_write_failed",
			logging.Error(err),
			logging.String("pointer_path", s.pointerPath),
			logging.String(logging.FieldErrorHint, "check that the work directory is writable"),
			logging.String(logging.FieldImpact, "/last will not restore this session"),
		)
	}
}

// Clear drops the in-memory session. The pointer and directory remain.
func (s *Store) Clear() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.current
	s.current = nil
	return previous
}

// SetMode changes the mode of the held session. It returns false when no
// session is held.
func (s *Store) SetMode(mode Mode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return false
	}
	if mode == nil {
		mode = Idle{}
	}
	s.current.Mode = mode
	return true
}

// AwaitName holds a placeholder session that waits for a name from from. Any
// previously held session is replaced.
func (s *Store) AwaitName(from string) *Session {
	placeholder := &Session{From: from, Mode: AwaitingName{RequestedBy: from}}
	s.mu.Lock()
	s.current = placeholder
	s.mu.Unlock()
	return placeholder
}

// Open sanitizes name, creates or reuses its directory, scans existing
// images, and attaches a new queue. The session is not activated.
func (s *Store) Open(name, from string) (*Session, error) {
	id := textutil.SanitizeID(name)
	if id == "" {
		return nil, services.Wrap(services.ErrUserInput, "session", "open", "invalid session name", ErrEmptyName)
	}
	dir := filepath.Join(s.workDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrIO, "session", "create directory", dir, err)
	}
	images, err := ScanImages(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "session", "scan images", dir, err)
	}
	return &Session{
		ID:     id,
		Path:   dir,
		From:   from,
		Images: images,
		Mode:   Idle{},
		Queue:  s.newQueue(id),
	}, nil
}

// ReloadFromPointer rebuilds the last activated session from the pointer
// file. It returns nil without error when the pointer is missing or points at
// a directory that no longer exists.
func (s *Store) ReloadFromPointer() (*Session, error) {
	ptr, err := s.ReadPointer()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	id := strings.TrimSpace(ptr.SessionID)
	path := strings.TrimSpace(ptr.SessionPath)
	if id == "" || path == "" {
		return nil, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrIO, "session", "stat directory", path, err)
	}
	if !info.IsDir() {
		return nil, nil
	}
	images, err := ScanImages(path)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "session", "scan images", path, err)
	}
	return &Session{
		ID:     id,
		Path:   path,
		From:   ptr.From,
		Images: images,
		Mode:   Idle{},
		Queue:  s.newQueue(id),
	}, nil
}

// ReadPointer decodes the persisted pointer.
func (s *Store) ReadPointer() (Pointer, error) {
	data, err := os.ReadFile(s.pointerPath)
	if err != nil {
		return Pointer{}, err
	}
	var ptr Pointer
	if err := json.Unmarshal(data, &ptr); err != nil {
		return Pointer{}, services.Wrap(services.ErrIO, "session", "decode pointer", s.pointerPath, err)
	}
	return ptr, nil
}

func (s *Store) writePointer(ptr Pointer) error {
	data, err := json.MarshalIndent(ptr, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pointer: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.pointerPath), 0o755); err != nil {
		return fmt.Errorf("ensure pointer directory: %w", err)
	}
	return fileutil.WriteFileAtomic(s.pointerPath, data, 0o644)
}
