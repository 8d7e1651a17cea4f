package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"sam/internal/chat"
	"sam/internal/logging"
	"sam/internal/media"
	"sam/internal/notifications"
	"sam/internal/services"
	"sam/internal/session"
)

// Job kinds enqueued by the dispatcher.
const (
	KindSaveMedia   = "save_media"
	KindMosaic      = "mosaic"
	KindChatLog     = "chat_log"
	KindEntry       = "entry"
	ChatLogFileName = "chat-log.txt"
)

// Options wires the dispatcher's collaborators.
type Options struct {
	Compressor *media.Compressor
	Composer   *media.Composer
	Notifier   notifications.Service
	Logger     *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// NotifyTimeout bounds each notification publish.
	NotifyTimeout time.Duration
}

// Dispatcher routes messages for a single Store.
type Dispatcher struct {
	store      *session.Store
	compressor *media.Compressor
	composer   *media.Composer
	notifier   notifications.Service
	logger     *slog.Logger
	now        func() time.Time
	notifyWait time.Duration
	commands   map[string]command
	help       string
}

// New builds a dispatcher over store.
func New(store *session.Store, opts Options) *Dispatcher {
	d := &Dispatcher{
		store:      store,
		compressor: opts.Compressor,
		composer:   opts.Composer,
		notifier:   opts.Notifier,
		logger:     logging.NewComponentLogger(opts.Logger, "dispatch"),
		now:        opts.Now,
		notifyWait: opts.NotifyTimeout,
	}
	if d.notifier == nil {
		d.notifier = notifications.NewNoop()
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.notifyWait <= 0 {
		d.notifyWait = 15 * time.Second
	}
	d.registerCommands()
	return d
}

// Handle processes one message. It is meant to be called from a single
// goroutine.
func (d *Dispatcher) Handle(ctx context.Context, msg chat.Message) {
	if msg == nil {
		return
	}
	ctx = services.WithMessageID(ctx, msg.ID())
	if cur := d.store.Current(); cur.Active() {
		ctx = services.WithSessionID(ctx, cur.ID)
	}

	token, args := splitCommand(msg.Body())
	if cmd, ok := d.commands[token]; ok {
		logging.WithContext(ctx, d.logger).Debug("command received",
			logging.String("command", token),
			logging.String("from", msg.From()),
			logging.String(logging.FieldEventType, "command_received"),
		)
		cmd.run(ctx, msg, args)
		return
	}
	d.route(ctx, msg)
}

// Commands returns the command help text.
func (d *Dispatcher) Commands() string { return d.help }

func (d *Dispatcher) route(ctx context.Context, msg chat.Message) {
	logger := logging.WithContext(ctx, d.logger)
	cur := d.store.Current()

	if msg.HasMedia() {
		if !cur.Active() {
			d.reply(ctx, msg, replyMediaNoSession)
			return
		}
		d.enqueueSaveMedia(ctx, cur, msg)
		return
	}

	text := strings.TrimSpace(msg.Body())
	if cur == nil || text == "" || strings.HasPrefix(text, "/") {
		logger.Debug("message ignored",
			logging.String("from", msg.From()),
			logging.Bool("session", cur != nil),
			logging.String(logging.FieldEventType, "message_ignored"),
		)
		return
	}

	switch mode := cur.Mode.(type) {
	case session.AwaitingName:
		if msg.From() != mode.RequestedBy {
			logger.Debug("name from other sender ignored", logging.String("from", msg.From()))
			return
		}
		d.openAndActivate(ctx, msg, text, replySessionActive)
	case session.Collecting:
		if !cur.Active() || msg.From() != cur.From {
			return
		}
		d.enqueueEntry(ctx, cur, mode.Kind, msg, text)
	default:
		if !cur.Active() || msg.From() != cur.From {
			return
		}
		d.enqueueChatLog(ctx, cur, msg, text)
	}
}

func (d *Dispatcher) openAndActivate(ctx context.Context, msg chat.Message, name string, confirm func(string) string) {
	sess, err := d.store.Open(name, msg.From())
	if err != nil {
		if errors.Is(err, services.ErrUserInput) {
			d.reply(ctx, msg, replyInvalidName)
			return
		}
		logging.ErrorWithContext(logging.WithContext(ctx, d.logger), "session open failed", "session_open_failed",
			logging.String("name", name),
			logging.Error(err),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String(logging.FieldErrorHint, "check work_dir permissions"),
		)
		d.reply(ctx, msg, replyCreateFailed)
		return
	}
	d.activate(ctx, msg, sess)
	d.reply(ctx, msg, confirm(sess.ID))
}

func (d *Dispatcher) activate(ctx context.Context, msg chat.Message, sess *session.Session) {
	d.store.Activate(sess)
	d.publish(ctx, notifications.EventSessionActivated, notifications.Payload{
		"session": sess.ID,
		"from":    msg.From(),
	})
}

func (d *Dispatcher) reply(ctx context.Context, msg chat.Message, text string) {
	if err := msg.Reply(ctx, text); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, d.logger), "reply failed", "reply_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the chat bridge connection"),
			logging.String(logging.FieldImpact, "sender did not receive a response"),
		)
	}
}

func (d *Dispatcher) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	logger := logging.WithContext(ctx, d.logger)
	go func() {
		pctx, cancel := context.WithTimeout(context.Background(), d.notifyWait)
		defer cancel()
		if err := d.notifier.Publish(pctx, event, payload); err != nil {
			logging.WarnWithContext(logger, "notification failed", "notification_failed",
				logging.String("event", string(event)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check ntfy_topic and network reachability"),
				logging.String(logging.FieldImpact, "push notification was not delivered"),
			)
		}
	}()
}

// splitCommand returns the lowercased first token of body and the trimmed
// remainder.
func splitCommand(body string) (string, string) {
	trimmed := strings.TrimLeft(body, " \t\r\n")
	idx := strings.IndexAny(trimmed, " \t\r\n")
	if idx < 0 {
		return strings.ToLower(trimmed), ""
	}
	return strings.ToLower(trimmed[:idx]), strings.TrimSpace(trimmed[idx:])
}
