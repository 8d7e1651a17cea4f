package dispatch

import (
	"fmt"
	"strings"

	"sam/internal/session"
)

const (
	replyAskName          = "Send the new session name:"
	replyInvalidName      = "⚠️ Invalid session name. Use letters, digits, - or _."
	replyCreateFailed     = "❌ Could not create the session directory."
	replyNoLastSession    = "⚠️ No previous session found."
	replyNoActiveSession  = "⚠️ No active session. Use */new*"
	replyMediaNoSession   = "⚠️ The media was not stored because there is no active session.\n\nUse */new* to create one."
	replyNoImages         = "⚠️ No images found."
	replyMosaicStarted    = "⏳ Generating mosaic..."
	replyMosaicFailed     = "❌ Could not generate the mosaic."
	replyNoSessionsLoaded = "⚠️ No session loaded."
	replyNoDirectories    = "⚠️ No directories found in the work directory."
	replyListFailed       = "❌ Could not list directories."
	replyEntryFailed      = "❌ Could not record the entry."
	replyChatLogFailed    = "❌ Could not record the message."
)

func replySessionActive(id string) string {
	return fmt.Sprintf("Session *%s* active.", id)
}

func replyLastActive(id string) string {
	return fmt.Sprintf("Last session *%s* active.", id)
}

func replyExited(id string) string {
	return fmt.Sprintf("Left session %s.", id)
}

func replySaved(path string) string {
	return fmt.Sprintf("📄 File saved to: %s", path)
}

func replySaveFailed(kind string, err error) string {
	reason := "unknown"
	if err != nil {
		reason = err.Error()
	}
	if kind == "" {
		kind = "media"
	}
	return fmt.Sprintf("❌ Could not save %s: %s", kind, reason)
}

func replyMosaicCaption(id string, count int) string {
	return fmt.Sprintf("Mosaic for *%s* (%d images)", id, count)
}

func replyModeOn(kind session.CollectKind) string {
	return fmt.Sprintf("%s mode active. Send one entry per message; repeat the command to stop.", collectLabel(kind))
}

func replyModeOff(kind session.CollectKind) string {
	return fmt.Sprintf("%s mode finished.", collectLabel(kind))
}

func collectLabel(kind session.CollectKind) string {
	switch kind {
	case session.CollectDevolution:
		return "Devolution"
	case session.CollectRetrieval:
		return "Retrieval"
	default:
		return strings.ToUpper(string(kind))
	}
}

func replyDirectoryList(dirs []session.Directory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📂 Total directories: %d", len(dirs))
	for _, d := range dirs {
		b.WriteString("\n- ")
		b.WriteString(d.Name)
	}
	return b.String()
}

func replyHelp(active string, commands string) string {
	if active == "" {
		return "No active session.\n\n" + commands
	}
	return fmt.Sprintf("Session *%s* active.\n\n%s", active, commands)
}
