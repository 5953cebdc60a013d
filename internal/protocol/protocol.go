package protocol

import "encoding/json"

const Version = "1"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeChanged = "CHANGED"
)

// Change scopes carried by CHANGED.
const (
	ScopePosts   = "posts"
	ScopeProfile = "profile"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// HelloMsg is optional; a page may send it to name itself in server logs.
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Client          string `json:"client,omitempty"`
}

// ChangedMsg tells open pages that a record was written and they should reload.
type ChangedMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Scope           string `json:"scope"`
	// Unix milliseconds of the write.
	At int64 `json:"at"`
}

func NewChanged(scope string, atMillis int64) ChangedMsg {
	return ChangedMsg{
		Type:            TypeChanged,
		ProtocolVersion: Version,
		Scope:           scope,
		At:              atMillis,
	}
}
