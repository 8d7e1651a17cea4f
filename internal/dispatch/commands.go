package dispatch

import (
	"context"
	"fmt"
	"strings"

	"sam/internal/chat"
	"sam/internal/logging"
	"sam/internal/session"
)

type command struct {
	name        string
	description string
	run         func(ctx context.Context, msg chat.Message, args string)
}

func (d *Dispatcher) registerCommands() {
	table := []command{
		{name: "/help", description: "this help", run: d.cmdHelp},
		{name: "/new", description: "new directory", run: d.cmdNew},
		{name: "/ld", description: "list directories", run: d.cmdList},
		{name: "/mosaic", description: "generate mosaic", run: d.cmdMosaic},
		{name: "/last", description: "load last directory", run: d.cmdLast},
		{name: "/exit", description: "exit session", run: d.cmdExit},
		{name: "/dev", description: "toggle devolution entries", run: d.collectToggle(session.CollectDevolution)},
		{name: "/ret", description: "toggle retrieval entries", run: d.collectToggle(session.CollectRetrieval)},
	}
	d.commands = make(map[string]command, len(table))
	lines := make([]string, 0, len(table))
	for _, cmd := range table {
		d.commands[cmd.name] = cmd
		lines = append(lines, fmt.Sprintf("%s = %s", cmd.name, cmd.description))
	}
	d.help = strings.Join(lines, "\n")
}

func (d *Dispatcher) cmdNew(ctx context.Context, msg chat.Message, args string) {
	if args == "" {
		d.store.AwaitName(msg.From())
		d.reply(ctx, msg, replyAskName)
		return
	}
	d.openAndActivate(ctx, msg, args, replySessionActive)
}

func (d *Dispatcher) cmdLast(ctx context.Context, msg chat.Message, _ string) {
	sess, err := d.store.ReloadFromPointer()
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, d.logger), "last session reload failed", "pointer_read_failed",
			logging.String("pointer_path", d.store.PointerPath()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect or delete the pointer file"),
			logging.String(logging.FieldImpact, "/last could not restore a session"),
		)
	}
	if sess == nil {
		d.reply(ctx, msg, replyNoLastSession)
		return
	}
	d.activate(ctx, msg, sess)
	d.reply(ctx, msg, replyLastActive(sess.ID))
}

func (d *Dispatcher) cmdMosaic(ctx context.Context, msg chat.Message, _ string) {
	cur := d.store.Current()
	if !cur.Active() {
		d.reply(ctx, msg, replyNoActiveSession)
		return
	}
	d.enqueueMosaic(ctx, cur, msg)
}

func (d *Dispatcher) cmdExit(ctx context.Context, msg chat.Message, _ string) {
	previous := d.store.Clear()
	if !previous.Active() {
		d.reply(ctx, msg, replyNoSessionsLoaded)
		return
	}
	logging.WithContext(ctx, d.logger).Info("session cleared",
		logging.String(logging.FieldSessionID, previous.ID),
		logging.String(logging.FieldEventType, "session_cleared"),
	)
	d.reply(ctx, msg, replyExited(previous.ID))
}

func (d *Dispatcher) cmdList(ctx context.Context, msg chat.Message, _ string) {
	dirs, err := session.ListDirectories(d.store.WorkDir())
	if err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, d.logger), "list directories failed", "list_failed",
			logging.String("work_dir", d.store.WorkDir()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check work_dir exists and is readable"),
		)
		d.reply(ctx, msg, replyListFailed)
		return
	}
	if len(dirs) == 0 {
		d.reply(ctx, msg, replyNoDirectories)
		return
	}
	d.reply(ctx, msg, replyDirectoryList(dirs))
}

func (d *Dispatcher) cmdHelp(ctx context.Context, msg chat.Message, _ string) {
	active := ""
	if cur := d.store.Current(); cur.Active() {
		active = cur.ID
	}
	d.reply(ctx, msg, replyHelp(active, d.help))
}

func (d *Dispatcher) collectToggle(kind session.CollectKind) func(context.Context, chat.Message, string) {
	return func(ctx context.Context, msg chat.Message, _ string) {
		cur := d.store.Current()
		if !cur.Active() {
			d.reply(ctx, msg, replyNoActiveSession)
			return
		}
		if mode, ok := cur.Mode.(session.Collecting); ok && mode.Kind == kind {
			d.store.SetMode(session.Idle{})
			d.reply(ctx, msg, replyModeOff(kind))
			return
		}
		d.store.SetMode(session.Collecting{Kind: kind})
		d.reply(ctx, msg, replyModeOn(kind))
	}
}
