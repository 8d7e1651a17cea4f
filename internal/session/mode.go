package session

// CollectKind selects which structured entry stream a Collecting mode feeds.
type CollectKind string

const (
	CollectDevolution CollectKind = "devolution"
	CollectRetrieval  CollectKind = "retrieval"
)

// EntriesFile returns the JSON-lines file name entries of this kind append to.
func (k CollectKind) EntriesFile() string {
	return string(k) + "-entries.jsonl"
}

// Mode is the interaction state of a session. The concrete types are Idle,
// AwaitingName, and Collecting.
type Mode interface {
	Name() string
	mode()
}

// Idle accepts chat-log text from the originator.
type Idle struct{}

// AwaitingName waits for a session name from RequestedBy.
type AwaitingName struct {
	RequestedBy string
}

// Collecting appends structured entries of Kind from the originator.
type Collecting struct {
	Kind CollectKind
}

func (Idle) Name() string         { return "idle" }
func (AwaitingName) Name() string { return "awaiting_name" }
func (c Collecting) Name() string { return "collecting_" + string(c.Kind) }

func (Idle) mode()         {}
func (AwaitingName) mode() {}
func (Collecting) mode()   {}
