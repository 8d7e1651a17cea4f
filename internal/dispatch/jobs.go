package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sam/internal/chat"
	"sam/internal/fileutil"
	"sam/internal/logging"
	"sam/internal/media"
	"sam/internal/notifications"
	"sam/internal/services"
	"sam/internal/session"
)

// Entry is one structured line appended while a session is collecting.
type Entry struct {
	Timestamp string `json:"ts"`
	From      string `json:"from"`
	MessageID string `json:"messageId"`
	Text      string `json:"text"`
}

const chatLogTimeLayout = "2006-01-02T15:04:05.000Z07:00"

func (d *Dispatcher) enqueueSaveMedia(ctx context.Context, sess *session.Session, msg chat.Message) {
	dir := sess.Path
	sess.Queue.Enqueue(KindSaveMedia, func(jobCtx context.Context) error {
		path, err := d.saveMedia(jobCtx, dir, msg)
		if err != nil {
			d.reply(ctx, msg, replySaveFailed(msg.Type(), err))
			return err
		}
		if media.IsImageExtension(filepath.Ext(path)) {
			sess.AddImage(path)
		}
		d.reply(ctx, msg, replySaved(path))
		return nil
	})
}

func (d *Dispatcher) saveMedia(ctx context.Context, dir string, msg chat.Message) (string, error) {
	logger := logging.WithContext(ctx, d.logger)
	attachment, err := msg.DownloadMedia(ctx)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "dispatch", "download media", "", err)
	}
	if attachment == nil || len(attachment.Data) == 0 {
		return "", services.Wrap(services.ErrTransport, "dispatch", "download media", "empty payload", errors.New("media download returned no data"))
	}

	base := chat.FileSafeID(msg.ID())
	if base == "" {
		base = d.now().UTC().Format("20060102T150405.000")
	}
	ext := media.ExtensionFor(attachment.MimeType, attachment.Data)
	rawPath := filepath.Join(dir, base+"."+ext)
	if err := os.WriteFile(rawPath, attachment.Data, 0o644); err != nil {
		return "", services.Wrap(services.ErrIO, "dispatch", "write media", rawPath, err)
	}
	if !media.IsImageExtension(ext) || d.compressor == nil {
		return rawPath, nil
	}

	finalPath := filepath.Join(dir, base+".jpg")
	tmpPath := filepath.Join(dir, "."+base+".compress.jpg")
	result, err := d.compressor.Compress(ctx, rawPath, tmpPath)
	if err == nil {
		err = os.Rename(tmpPath, finalPath)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		logging.WarnWithContext(logger, "image compression failed; keeping original", "compress_failed",
			logging.String("path", rawPath),
			logging.Error(err),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String(logging.FieldErrorHint, "the file may be corrupt or an unsupported variant"),
			logging.String(logging.FieldImpact, "original file kept uncompressed"),
		)
		return rawPath, nil
	}
	if rawPath != finalPath {
		if err := os.Remove(rawPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Debug("raw media cleanup failed", logging.String("path", rawPath), logging.Error(err))
		}
	}
	logger.Info("media saved",
		logging.String("path", finalPath),
		logging.Int("quality", result.Quality),
		logging.Int64("bytes", result.Bytes),
		logging.String(logging.FieldEventType, "media_saved"),
	)
	return finalPath, nil
}

func (d *Dispatcher) enqueueMosaic(ctx context.Context, sess *session.Session, msg chat.Message) {
	dir, id := sess.Path, sess.ID
	sess.Queue.Enqueue(KindMosaic, func(jobCtx context.Context) error {
		images, err := session.ScanImages(dir)
		if err != nil {
			d.reply(ctx, msg, replyMosaicFailed)
			return services.Wrap(services.ErrIO, "dispatch", "scan images", dir, err)
		}
		if len(images) == 0 {
			d.reply(ctx, msg, replyNoImages)
			return nil
		}
		if d.composer == nil {
			d.reply(ctx, msg, replyMosaicFailed)
			return services.Wrap(services.ErrEncode, "dispatch", "compose mosaic", "composer not configured", nil)
		}

		d.reply(ctx, msg, replyMosaicStarted)
		out := filepath.Join(dir, session.MosaicFileName)
		res, err := d.composer.Compose(jobCtx, images, out)
		if err != nil {
			d.reply(ctx, msg, replyMosaicFailed)
			return err
		}
		if err := msg.ReplyFile(ctx, res.Path, replyMosaicCaption(id, len(images))); err != nil {
			return services.Wrap(services.ErrTransport, "dispatch", "send mosaic", res.Path, err)
		}
		d.publish(ctx, notifications.EventMosaicReady, notifications.Payload{"session": id, "images": len(images)})
		return nil
	})
}

func (d *Dispatcher) enqueueChatLog(ctx context.Context, sess *session.Session, msg chat.Message, text string) {
	path := filepath.Join(sess.Path, ChatLogFileName)
	stamp := d.now().UTC().Format(chatLogTimeLayout)
	line := "[" + stamp + "] " + text
	sess.Queue.Enqueue(KindChatLog, func(context.Context) error {
		if err := fileutil.AppendLine(path, line); err != nil {
			d.reply(ctx, msg, replyChatLogFailed)
			return services.Wrap(services.ErrIO, "dispatch", "append chat log", path, err)
		}
		return nil
	})
}

func (d *Dispatcher) enqueueEntry(ctx context.Context, sess *session.Session, kind session.CollectKind, msg chat.Message, text string) {
	path := filepath.Join(sess.Path, kind.EntriesFile())
	entry := Entry{
		Timestamp: d.now().UTC().Format(time.RFC3339Nano),
		From:      msg.From(),
		MessageID: msg.ID(),
		Text:      text,
	}
	sess.Queue.Enqueue(KindEntry, func(context.Context) error {
		data, err := json.Marshal(entry)
		if err != nil {
			return services.Wrap(services.ErrEncode, "dispatch", "encode entry", "", err)
		}
		if err := fileutil.AppendLine(path, strings.TrimSpace(string(data))); err != nil {
			d.reply(ctx, msg, replyEntryFailed)
			return services.Wrap(services.ErrIO, "dispatch", "append entry", path, err)
		}
		return nil
	})
}
