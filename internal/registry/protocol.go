// Package registry is the client side of the session registry: the
// external daemon component that tracks terminal sessions and their
// captured turns. turnkeyd only consumes its snapshot; the registry
// owns session lifecycle and turn storage.
package registry

// SessionDescriptor describes one registry-tracked terminal session.
//
// Descriptors arrive as a read-only snapshot per call. Session ids are
// unique within one snapshot; PID is the session's child process (the
// shell), which typically nests beneath the window-owning process.
type SessionDescriptor struct {
	Session string `json:"session"`
	PID     int    `json:"pid"`
	HasTurn bool   `json:"has_turn"`
}

// Turn is one captured unit of session output, fetched for delivery.
type Turn struct {
	TurnID      string `json:"turn_id"`
	Content     []byte `json:"content"`
	Timestamp   int64  `json:"timestamp"`
	Interrupted bool   `json:"interrupted"`
	Truncated   bool   `json:"truncated"`
}

// request is one line-delimited JSON request to the registry socket.
type request struct {
	Op      string `json:"op"`
	Session string `json:"session,omitempty"`
}

// response is the registry's reply. Exactly one payload field is set
// depending on the op; Ok false carries Error.
type response struct {
	Ok       bool                `json:"ok"`
	Error    string              `json:"error,omitempty"`
	Sessions []SessionDescriptor `json:"sessions,omitempty"`
	Turn     *Turn               `json:"turn,omitempty"`
}

// Registry operations.
const (
	opListSessions = "list-sessions"
	opFetchTurn    = "fetch-turn"
	opPasteTurn    = "paste-turn"
)

// responseSchema validates registry replies before they are used. The
// registry runs in another process; its output is checked the same way
// any untrusted input is.
const responseSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["ok"],
  "properties": {
    "ok": {"type": "boolean"},
    "error": {"type": "string"},
    "sessions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["session", "pid"],
        "properties": {
          "session": {"type": "string", "minLength": 1},
          "pid": {"type": "integer", "minimum": 0},
          "has_turn": {"type": "boolean"}
        }
      }
    },
    "turn": {
      "type": "object",
      "required": ["turn_id", "content"],
      "properties": {
        "turn_id": {"type": "string", "minLength": 1},
        "content": {"type": "string"},
        "timestamp": {"type": "integer"},
        "interrupted": {"type": "boolean"},
        "truncated": {"type": "boolean"}
      }
    }
  }
}`
