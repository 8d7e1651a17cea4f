package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"sam/internal/bridge"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckAllowList reports whether any sender is permitted. An empty list
// passes but is flagged, since every inbound message will be dropped.
func CheckAllowList(ids []string) Result {
	const name = "Allowed senders"
	count := 0
	for _, id := range ids {
		if strings.TrimSpace(id) != "" {
			count++
		}
	}
	if count == 0 {
		return Result{Name: name, Passed: true, Detail: "none configured (all messages ignored)"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d configured", count)}
}

// CheckBridge opens and immediately closes a websocket to the chat bridge.
// It uses a 5-second timeout and a single attempt.
func CheckBridge(ctx context.Context, url, token string) Result {
	const name = "Chat bridge"

	if strings.TrimSpace(url) == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	conn, err := bridge.Dial(checkCtx, nil, url, token)
	if err != nil {
		return Result{Name: name, Detail: summarizeDialError(err)}
	}
	_ = conn.Close()
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

func summarizeDialError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "connection timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "connection timed out"
	}
	return err.Error()
}
