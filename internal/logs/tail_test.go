package logs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"sam/internal/logs"
)

func TestLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sam.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\nd\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	tests := []struct {
		n    int
		want []string
	}{
		{n: 2, want: []string{"c", "d"}},
		{n: 4, want: []string{"a", "b", "c", "d"}},
		{n: 10, want: []string{"a", "b", "c", "d"}},
		{n: 3, want: []string{"b", "c", "d"}},
	}
	for _, tc := range tests {
		lines, offset, err := logs.Last(path, tc.n)
		if err != nil {
			t.Fatalf("Last(%d): %v", tc.n, err)
		}
		if diff := cmp.Diff(tc.want, lines); diff != "" {
			t.Fatalf("Last(%d) mismatch (-want +got):\n%s", tc.n, diff)
		}
		if offset != 8 {
			t.Fatalf("Last(%d) offset = %d", tc.n, offset)
		}
	}

	lines, offset, err := logs.Last(path, 0)
	if err != nil || len(lines) != 0 || offset != 8 {
		t.Fatalf("Last(0) = %v, %d, %v", lines, offset, err)
	}
}

func TestLatestPicksNewest(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "sam-1.log")
	recent := filepath.Join(dir, "sam-2.log")
	for _, p := range []string{old, recent, filepath.Join(dir, "other.txt")} {
		if err := os.WriteFile(p, []byte("x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}

	got, err := logs.Latest(dir, "sam-*.log")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got != recent {
		t.Fatalf("Latest = %s, want %s", got, recent)
	}

	if _, err := logs.Latest(t.TempDir(), "sam-*.log"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sam.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	_, offset, err := logs.Last(path, 1)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu  sync.Mutex
		got []string
	)
	seen := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, 10*time.Millisecond, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
			seen <- struct{}{}
		})
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\npart"); err != nil {
		t.Fatalf("append: %v", err)
	}
	waitLine(t, seen)
	if _, err := f.WriteString("ial\r\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = f.Close()
	waitLine(t, seen)

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Follow: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff([]string{"later", "partial"}, got); diff != "" {
		t.Fatalf("followed lines mismatch (-want +got):\n%s", diff)
	}
}

func TestFollowRestartsAfterTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sam.log")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, offset, err := logs.Last(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("new\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	seen := make(chan string, 1)
	go func() {
		_ = logs.Follow(ctx, path, offset, 10*time.Millisecond, func(line string) {
			select {
			case seen <- line:
			default:
			}
		})
	}()

	select {
	case line := <-seen:
		if line != "new" {
			t.Fatalf("unexpected line %q", line)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no line after truncation")
	}
}

func waitLine(t *testing.T, seen <-chan struct{}) {
	t.Helper()
	select {
	case <-seen:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for followed line")
	}
}
