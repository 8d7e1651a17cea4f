package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"sam/internal/bridge"
	"sam/internal/chat"
	"sam/internal/config"
	"sam/internal/dispatch"
	"sam/internal/jobqueue"
	"sam/internal/journal"
	"sam/internal/logging"
	"sam/internal/notifications"
	"sam/internal/preflight"
	"sam/internal/session"
)

// ErrAlreadyRunning is returned when another process holds the work
// directory lock.
var ErrAlreadyRunning = errors.New("another sam instance is already running")

// Transport delivers inbound messages until the connection drops or ctx ends.
type Transport interface {
	Run(ctx context.Context, handler chat.Handler) error
}

// Options customizes a Daemon.
type Options struct {
	Logger *slog.Logger
	// Transport defaults to a bridge client built from the config.
	Transport Transport
	// ReconnectDelay overrides Bridge.ReconnectSeconds when positive.
	ReconnectDelay time.Duration
	// DrainTimeout bounds how long shutdown waits for queued jobs.
	DrainTimeout time.Duration
	Now          func() time.Time
}

// Daemon owns the process lifecycle.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	journal    *journal.Store
	notifier   notifications.Service
	store      *session.Store
	dispatcher *dispatch.Dispatcher
	allow      *chat.AllowList
	transport  Transport
	reconnect  time.Duration
	drainWait  time.Duration

	lockPath string
	lock     *flock.Flock

	queueMu sync.Mutex
	queues  []*jobqueue.Queue
	baseCtx context.Context

	running   atomic.Bool
	connected atomic.Bool
	received  atomic.Int64
	dropped   atomic.Int64
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Connected    bool
	SessionID    string
	SessionPath  string
	Mode         string
	PendingJobs  int
	Received     int64
	Dropped      int64
	LockFilePath string
	JournalPath  string
}

// New constructs a daemon with initialized dependencies. The lock is not
// taken until Run.
func New(cfg *config.Config, opts Options) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	d := &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		notifier:  notifications.NewService(cfg),
		allow:     chat.NewAllowList(cfg.Access.AllowedIDs, cfg.Access.AddressSuffix),
		transport: opts.Transport,
		reconnect: opts.ReconnectDelay,
		drainWait: opts.DrainTimeout,
		lockPath:  cfg.LockPath(),
		lock:      flock.New(cfg.LockPath()),
		baseCtx:   context.Background(),
	}
	if d.reconnect <= 0 {
		d.reconnect = time.Duration(cfg.Bridge.ReconnectSeconds) * time.Second
	}
	if d.drainWait <= 0 {
		d.drainWait = 30 * time.Second
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg.Journal.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		d.journal = store
	}

	d.store = session.NewStore(cfg.Paths.WorkDir, cfg.Paths.PointerFile, d.newQueue, logger)
	d.dispatcher = dispatch.New(d.store, dispatch.Options{
		Compressor:    NewCompressor(cfg, logger),
		Composer:      NewComposer(cfg, logger),
		Notifier:      d.notifier,
		Logger:        logger,
		Now:           opts.Now,
		NotifyTimeout: time.Duration(cfg.Notifications.RequestTimeout) * time.Second,
	})
	if d.transport == nil {
		d.transport = bridge.NewClient(bridge.Options{
			URL:            cfg.Bridge.URL,
			Token:          cfg.Bridge.Token,
			RequestTimeout: time.Duration(cfg.Bridge.RequestTimeoutSeconds) * time.Second,
			Logger:         logger,
		})
	}
	return d, nil
}

func (d *Daemon) newQueue(sessionID string) *jobqueue.Queue {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	opts := []jobqueue.Option{
		jobqueue.WithLogger(d.logger),
		jobqueue.WithContext(d.baseCtx),
		jobqueue.WithObserver(notifications.NewJobObserver(d.notifier, d.logger)),
	}
	if d.journal != nil {
		opts = append(opts, jobqueue.WithObserver(d.journal))
	}
	q := jobqueue.New(sessionID, opts...)
	d.queues = append(d.queues, q)
	return q
}

// Run acquires the work directory lock, runs preflight checks, and keeps
// the transport connected until ctx is cancelled. Queued jobs are drained
// before it returns.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("daemon already running")
	}
	defer d.running.Store(false)

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			logging.WarnWithContext(d.logger, "failed to release lock", "lock_release_failed",
				logging.String("lock", d.lockPath),
				logging.Error(err),
				logging.String(logging.FieldImpact, "next start may report a stale lock"),
			)
		}
	}()

	if err := d.checkReadiness(ctx); err != nil {
		return err
	}

	// Jobs keep running through shutdown and are bounded by the drain timeout.
	d.queueMu.Lock()
	d.baseCtx = context.WithoutCancel(ctx)
	d.queueMu.Unlock()

	if d.journal != nil {
		if n, err := d.journal.MarkInterrupted(ctx); err != nil {
			logging.WarnWithContext(d.logger, "failed to mark interrupted jobs", "journal_recover_failed", logging.Error(err))
		} else if n > 0 {
			d.logger.Info("jobs from previous run marked interrupted", logging.Int64("count", n))
		}
	}
	d.announceLastSession()

	d.logger.Info("sam daemon started",
		logging.String("lock", d.lockPath),
		logging.String("work_dir", d.cfg.Paths.WorkDir),
		logging.Int("allowed_senders", d.allow.Len()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)

	d.connectLoop(ctx)
	d.drain()

	d.logger.Info("sam daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
	return nil
}

func (d *Daemon) checkReadiness(ctx context.Context) error {
	var problems []string
	for _, result := range preflight.Failed(preflight.RunAll(ctx, d.cfg)) {
		if result.Name == "Chat bridge" {
			logging.WarnWithContext(d.logger, "chat bridge not reachable at startup", "bridge_unreachable",
				logging.String("detail", result.Detail),
				logging.String(logging.FieldImpact, "messages are delayed until the bridge is reachable"),
			)
			continue
		}
		problems = append(problems, fmt.Sprintf("%s: %s", result.Name, result.Detail))
	}
	if len(problems) > 0 {
		return fmt.Errorf("preflight failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

// announceLastSession logs the resumable session, if any. Resuming is left
// to the /last command.
func (d *Daemon) announceLastSession() {
	ptr, err := d.store.ReadPointer()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.WarnWithContext(d.logger, "session pointer unreadable", "pointer_read_failed",
				logging.String("pointer", d.cfg.Paths.PointerFile),
				logging.Error(err),
				logging.String(logging.FieldImpact, "/last will report no saved session"),
			)
		}
		return
	}
	if ptr.SessionID == "" {
		return
	}
	d.logger.Info("last session available",
		logging.String(logging.FieldSessionID, ptr.SessionID),
		logging.String("path", ptr.SessionPath),
	)
}

func (d *Daemon) connectLoop(ctx context.Context) {
	for {
		d.connected.Store(true)
		err := d.transport.Run(ctx, chat.HandlerFunc(d.handle))
		d.connected.Store(false)
		if ctx.Err() != nil {
			return
		}
		logging.WarnWithContext(d.logger, "bridge connection lost", "bridge_disconnected",
			logging.Error(err),
			logging.Duration("retry_in", d.reconnect),
			logging.String(logging.FieldImpact, "inbound messages are not received until reconnect"),
		)
		timer := time.NewTimer(d.reconnect)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (d *Daemon) handle(ctx context.Context, msg chat.Message) {
	if msg == nil {
		return
	}
	if !d.allow.Allows(msg.From()) {
		d.dropped.Add(1)
		d.logger.Debug("message from unlisted sender ignored",
			logging.String("from", msg.From()),
			logging.String(logging.FieldMessageID, msg.ID()),
		)
		return
	}
	d.received.Add(1)
	d.dispatcher.Handle(ctx, msg)
}

func (d *Daemon) drain() {
	d.queueMu.Lock()
	queues := append([]*jobqueue.Queue(nil), d.queues...)
	d.queueMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), d.drainWait)
	defer cancel()
	for _, q := range queues {
		if q.Pending() == 0 {
			continue
		}
		if err := q.Drain(ctx); err != nil {
			logging.WarnWithContext(d.logger, "queued jobs abandoned at shutdown", "queue_drain_timeout",
				logging.String(logging.FieldSessionID, q.Session()),
				logging.Int("pending", q.Pending()),
				logging.Error(err),
			)
		}
	}
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	if d.journal != nil {
		return d.journal.Close()
	}
	return nil
}

// Journal returns the job journal, or nil when disabled.
func (d *Daemon) Journal() *journal.Store {
	return d.journal
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		Connected:    d.running.Load() && d.connected.Load(),
		Received:     d.received.Load(),
		Dropped:      d.dropped.Load(),
		LockFilePath: d.lockPath,
	}
	if d.journal != nil {
		status.JournalPath = d.journal.Path()
	}
	if cur := d.store.Current(); cur != nil {
		if cur.Mode != nil {
			status.Mode = cur.Mode.Name()
		}
		if cur.Active() {
			status.SessionID = cur.ID
			status.SessionPath = cur.Path
			if cur.Queue != nil {
				status.PendingJobs = cur.Queue.Pending()
			}
		}
	}
	return status
}
