package dispatch_test

import (
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"sam/internal/config"
	"sam/internal/dispatch"
	"sam/internal/media"
	"sam/internal/session"
	"sam/internal/testsupport"
)

const owner = "5511999990000@c.us"

type harness struct {
	cfg   *config.Config
	store *session.Store
	disp  *dispatch.Dispatcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := session.NewStore(cfg.Paths.WorkDir, cfg.Paths.PointerFile, nil, nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 678_000_000, time.UTC)
	disp := dispatch.New(store, dispatch.Options{
		Compressor: media.NewCompressor(media.Ladder{
			Start:    cfg.Media.CompressQuality,
			Step:     cfg.Media.QualityStep,
			Floor:    cfg.Media.QualityFloor,
			MaxBytes: cfg.Media.MaxBytes(),
		}, nil),
		Composer: media.NewComposer(media.MosaicOptions{
			Columns:    cfg.Media.MosaicColumns,
			CellWidth:  cfg.Media.CellWidth,
			CellHeight: cfg.Media.CellHeight,
			Ladder: media.Ladder{
				Start:    cfg.Media.MosaicQuality,
				Step:     cfg.Media.QualityStep,
				Floor:    cfg.Media.QualityFloor,
				MaxBytes: cfg.Media.MaxBytes(),
			},
		}, nil),
		Now: func() time.Time { return fixed },
	})
	return &harness{cfg: cfg, store: store, disp: disp}
}

func (h *harness) send(t *testing.T, msg *testsupport.Message) *testsupport.Message {
	t.Helper()
	h.disp.Handle(context.Background(), msg)
	return msg
}

func (h *harness) text(t *testing.T, body string) *testsupport.Message {
	t.Helper()
	return h.send(t, testsupport.TextMessage("t-"+body, owner, body))
}

func (h *harness) drain(t *testing.T) {
	t.Helper()
	cur := h.store.Current()
	if cur == nil || cur.Queue == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := cur.Queue.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
}

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	return testsupport.EncodePNG(t, testsupport.SolidImage(120, 80, c))
}

func TestEndToEndSessionFlow(t *testing.T) {
	h := newHarness(t)

	reply := h.text(t, "/new test1")
	dir := filepath.Join(h.cfg.Paths.WorkDir, "test1")
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected session directory: %v", err)
	}
	if !strings.Contains(reply.LastReply(), "test1") {
		t.Fatalf("confirmation %q should name the session", reply.LastReply())
	}
	if cur := h.store.Current(); !cur.Active() || cur.ID != "test1" {
		t.Fatalf("unexpected current session %+v", cur)
	}

	first := h.send(t, testsupport.MediaMessage("m1", owner, "image/png", pngBytes(t, color.RGBA{R: 255, A: 255})))
	second := h.send(t, testsupport.MediaMessage("m2", owner, "image/jpeg", testsupport.EncodeJPEG(t, testsupport.SolidImage(90, 160, color.White), 90)))
	h.drain(t)

	for _, name := range []string{"m1.jpg", "m2.jpg"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "m1.png")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("raw png should be replaced by the compressed jpg: %v", err)
	}
	if !strings.Contains(first.LastReply(), filepath.Join(dir, "m1.jpg")) {
		t.Fatalf("save reply %q should contain the path", first.LastReply())
	}
	if !strings.Contains(second.LastReply(), filepath.Join(dir, "m2.jpg")) {
		t.Fatalf("save reply %q should contain the path", second.LastReply())
	}

	mosaicMsg := h.text(t, "/mosaic")
	h.drain(t)
	mosaicPath := filepath.Join(dir, session.MosaicFileName)
	if _, err := os.Stat(mosaicPath); err != nil {
		t.Fatalf("expected mosaic: %v", err)
	}
	files := mosaicMsg.Files()
	if len(files) != 1 || files[0].Path != mosaicPath {
		t.Fatalf("expected mosaic file reply, got %+v", files)
	}
	info, err := media.Probe(mosaicPath)
	if err != nil {
		t.Fatalf("inspect mosaic: %v", err)
	}
	if info.Width != 1200 || info.Height != 400 {
		t.Fatalf("mosaic is %dx%d, want 1200x400", info.Width, info.Height)
	}

	exit := h.text(t, "/exit")
	if h.store.Current() != nil {
		t.Fatal("expected session cleared")
	}
	if !strings.Contains(exit.LastReply(), "test1") {
		t.Fatalf("exit reply %q should name the session", exit.LastReply())
	}
	for _, name := range []string{"m1.jpg", "m2.jpg", session.MosaicFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("%s must survive /exit: %v", name, err)
		}
	}
}

func TestPendingMediaStaysInSupersededSession(t *testing.T) {
	h := newHarness(t)
	h.text(t, "/new first")
	first := h.store.Current()

	release := make(chan struct{})
	a := testsupport.MediaMessage("a1", owner, "image/png", pngBytes(t, color.RGBA{G: 255, A: 255}))
	a.Hold = release
	b := testsupport.MediaMessage("b1", owner, "image/png", pngBytes(t, color.RGBA{B: 255, A: 255}))
	h.send(t, a)
	h.send(t, b)
	if n := first.Queue.Pending(); n != 2 {
		t.Fatalf("pending = %d, want 2 before switching sessions", n)
	}

	h.text(t, "/new second")
	if cur := h.store.Current(); cur.ID != "second" {
		t.Fatalf("current = %q, want second", cur.ID)
	}
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := first.Queue.Drain(ctx); err != nil {
		t.Fatalf("drain first: %v", err)
	}
	h.drain(t)

	firstDir := filepath.Join(h.cfg.Paths.WorkDir, "first")
	secondDir := filepath.Join(h.cfg.Paths.WorkDir, "second")
	for _, name := range []string{"a1.jpg", "b1.jpg"} {
		if _, err := os.Stat(filepath.Join(firstDir, name)); err != nil {
			t.Errorf("%s should land in the session it was sent to: %v", name, err)
		}
		if _, err := os.Stat(filepath.Join(secondDir, name)); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s must not appear in the new session: %v", name, err)
		}
	}
}

func TestNewWithoutNameAwaitsName(t *testing.T) {
	h := newHarness(t)

	prompt := h.text(t, "/new")
	if prompt.LastReply() == "" {
		t.Fatal("expected a name prompt")
	}

	stranger := h.send(t, testsupport.TextMessage("x", "5511000000000@c.us", "Intruder"))
	if len(stranger.Replies()) != 0 || h.store.Current().Active() {
		t.Fatal("names from other senders must be ignored")
	}

	slash := h.text(t, "/bogus")
	if len(slash.Replies()) != 0 || h.store.Current().Active() {
		t.Fatal("slash text must not be taken as a name")
	}

	named := h.text(t, "Trip Photos")
	cur := h.store.Current()
	if !cur.Active() || cur.ID != "trip_photos" {
		t.Fatalf("unexpected session %+v", cur)
	}
	if !strings.Contains(named.LastReply(), "trip_photos") {
		t.Fatalf("confirmation %q should name the session", named.LastReply())
	}
}

func TestNewRejectsEmptyName(t *testing.T) {
	h := newHarness(t)
	msg := h.text(t, "/new !!!")
	if h.store.Current() != nil {
		t.Fatal("no session expected for an empty name")
	}
	if !strings.Contains(msg.LastReply(), "Invalid") {
		t.Fatalf("unexpected reply %q", msg.LastReply())
	}
}

func TestCommandsAreCaseInsensitive(t *testing.T) {
	h := newHarness(t)
	h.text(t, "  /NEW Caixa")
	if cur := h.store.Current(); !cur.Active() || cur.ID != "caixa" {
		t.Fatalf("unexpected session %+v", cur)
	}
}

func TestIdleTextAppendsChatLog(t *testing.T) {
	h := newHarness(t)
	h.text(t, "/new log")
	h.text(t, "hello there")
	h.text(t, "/unknown thing")
	h.send(t, testsupport.TextMessage("o", "5511000000000@c.us", "not the originator"))
	h.text(t, "second line")
	h.drain(t)

	data, err := os.ReadFile(filepath.Join(h.cfg.Paths.WorkDir, "log", dispatch.ChatLogFileName))
	if err != nil {
		t.Fatalf("read chat log: %v", err)
	}
	want := "[2026-01-02T03:04:05.678Z] hello there\n[2026-01-02T03:04:05.678Z] second line\n"
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Fatalf("chat log mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectingModeAppendsEntries(t *testing.T) {
	h := newHarness(t)
	h.text(t, "/new stock")

	on := h.text(t, "/dev")
	if _, ok := h.store.Current().Mode.(session.Collecting); !ok {
		t.Fatalf("mode = %T, want Collecting", h.store.Current().Mode)
	}
	if on.LastReply() == "" {
		t.Fatal("expected mode confirmation")
	}
	h.text(t, "1508097 mouse 4")
	h.text(t, "/dev")
	h.text(t, "back to chat")
	h.drain(t)

	dir := filepath.Join(h.cfg.Paths.WorkDir, "stock")
	raw, err := os.ReadFile(filepath.Join(dir, session.CollectDevolution.EntriesFile()))
	if err != nil {
		t.Fatalf("read entries: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 entry, got %d: %q", len(lines), raw)
	}
	var entry dispatch.Entry
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry.Text != "1508097 mouse 4" || entry.From != owner {
		t.Fatalf("unexpected entry %+v", entry)
	}

	log, err := os.ReadFile(filepath.Join(dir, dispatch.ChatLogFileName))
	if err != nil {
		t.Fatalf("read chat log: %v", err)
	}
	if !strings.Contains(string(log), "back to chat") || strings.Contains(string(log), "mouse") {
		t.Fatalf("unexpected chat log %q", log)
	}
}

func TestCollectToggleRequiresSession(t *testing.T) {
	h := newHarness(t)
	msg := h.text(t, "/ret")
	if !strings.Contains(msg.LastReply(), "No active session") {
		t.Fatalf("unexpected reply %q", msg.LastReply())
	}
}

func TestMediaWithoutSession(t *testing.T) {
	h := newHarness(t)
	msg := h.send(t, testsupport.MediaMessage("m1", owner, "image/png", pngBytes(t, color.White)))
	if !strings.Contains(msg.LastReply(), "no active session") {
		t.Fatalf("unexpected reply %q", msg.LastReply())
	}
	entries, err := os.ReadDir(h.cfg.Paths.WorkDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.IsDir() {
			t.Fatalf("no directory expected, found %s", e.Name())
		}
	}
}

func TestNonImageMediaKeepsExtension(t *testing.T) {
	h := newHarness(t)
	h.text(t, "/new docs")
	pdf := []byte("%PDF-1.4\n%test\n")
	msg := h.send(t, testsupport.MediaMessage("doc1", owner, "application/pdf", pdf))
	h.drain(t)

	path := filepath.Join(h.cfg.Paths.WorkDir, "docs", "doc1.pdf")
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved media: %v", err)
	}
	if string(got) != string(pdf) {
		t.Fatal("saved bytes differ from the download")
	}
	if !strings.Contains(msg.LastReply(), path) {
		t.Fatalf("unexpected reply %q", msg.LastReply())
	}
}

func TestCompressionFailureKeepsRawFile(t *testing.T) {
	h := newHarness(t)
	h.text(t, "/new broken")
	msg := h.send(t, testsupport.MediaMessage("bad", owner, "image/png", []byte("not really a png")))
	h.drain(t)

	dir := filepath.Join(h.cfg.Paths.WorkDir, "broken")
	if _, err := os.Stat(filepath.Join(dir, "bad.png")); err != nil {
		t.Fatalf("raw file must be kept: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.jpg")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("no compressed output expected: %v", err)
	}
	if !strings.Contains(msg.LastReply(), "bad.png") {
		t.Fatalf("unexpected reply %q", msg.LastReply())
	}
}

func TestDownloadFailureReplies(t *testing.T) {
	h := newHarness(t)
	h.text(t, "/new flaky")
	msg := &testsupport.Message{MsgID: "m9", Sender: owner, Kind: "image", MediaErr: errors.New("bridge timeout")}
	h.send(t, msg)
	h.drain(t)
	if !strings.Contains(msg.LastReply(), "bridge timeout") {
		t.Fatalf("unexpected reply %q", msg.LastReply())
	}
}

func TestLastReloadsPointer(t *testing.T) {
	h := newHarness(t)

	none := h.text(t, "/last")
	if !strings.Contains(none.LastReply(), "No previous session") {
		t.Fatalf("unexpected reply %q", none.LastReply())
	}

	h.text(t, "/new alpha")
	h.text(t, "/exit")
	last := h.text(t, "/last")
	if cur := h.store.Current(); !cur.Active() || cur.ID != "alpha" {
		t.Fatalf("unexpected session %+v", cur)
	}
	if !strings.Contains(last.LastReply(), "alpha") {
		t.Fatalf("unexpected reply %q", last.LastReply())
	}
}

func TestExitWithoutSession(t *testing.T) {
	h := newHarness(t)
	msg := h.text(t, "/exit")
	if !strings.Contains(msg.LastReply(), "No session") {
		t.Fatalf("unexpected reply %q", msg.LastReply())
	}
}

func TestListDirectories(t *testing.T) {
	h := newHarness(t)
	empty := h.text(t, "/ld")
	if !strings.Contains(empty.LastReply(), "No directories") {
		t.Fatalf("unexpected reply %q", empty.LastReply())
	}

	now := time.Now()
	for i, name := range []string{"older", "newer"} {
		dir := filepath.Join(h.cfg.Paths.WorkDir, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		stamp := now.Add(time.Duration(i-2) * time.Hour)
		if err := os.Chtimes(dir, stamp, stamp); err != nil {
			t.Fatal(err)
		}
	}
	list := h.text(t, "/ld")
	want := "📂 Total directories: 2\n- newer\n- older"
	if diff := cmp.Diff(want, list.LastReply()); diff != "" {
		t.Fatalf("reply mismatch (-want +got):\n%s", diff)
	}
}

func TestMosaicEdgeCases(t *testing.T) {
	h := newHarness(t)
	noSession := h.text(t, "/mosaic")
	if !strings.Contains(noSession.LastReply(), "No active session") {
		t.Fatalf("unexpected reply %q", noSession.LastReply())
	}

	h.text(t, "/new empty")
	noImages := h.text(t, "/mosaic")
	h.drain(t)
	if !strings.Contains(noImages.LastReply(), "No images") {
		t.Fatalf("unexpected reply %q", noImages.LastReply())
	}
	if _, err := os.Stat(filepath.Join(h.cfg.Paths.WorkDir, "empty", session.MosaicFileName)); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("no mosaic expected without images")
	}
}

func TestHelpListsCommands(t *testing.T) {
	h := newHarness(t)
	idle := h.text(t, "/help")
	if !strings.HasPrefix(idle.LastReply(), "No active session.") {
		t.Fatalf("unexpected reply %q", idle.LastReply())
	}
	h.text(t, "/new demo")
	active := h.text(t, "/help")
	for _, want := range []string{"Session *demo* active.", "/new = new directory", "/mosaic = generate mosaic", "/dev", "/ret"} {
		if !strings.Contains(active.LastReply(), want) {
			t.Fatalf("help %q missing %q", active.LastReply(), want)
		}
	}
}
