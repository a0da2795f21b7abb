package models

import "fmt"

// Role identifies who authored a message block.
type Role int

const (
	RoleUser Role = iota
	RoleAssistant
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// ParseRole is the inverse of Role.String, used when loading saved chats.
func ParseRole(s string) (Role, error) {
	switch s {
	case "user":
		return RoleUser, nil
	case "assistant", "model":
		return RoleAssistant, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

// VideoRef pairs a local video with the backend handle it was uploaded as.
// Handle is empty for videos that were never uploaded.
type VideoRef struct {
	Path   string `json:"path" yaml:"path"`
	Handle string `json:"handle,omitempty" yaml:"handle,omitempty"`
}

type MessageBlock struct {
	Role   Role
	Text   string
	Images []string
	Videos []VideoRef
}

// Clone returns a copy that shares no slices with b.
func (b MessageBlock) Clone() MessageBlock {
	out := MessageBlock{Role: b.Role, Text: b.Text}
	if len(b.Images) > 0 {
		out.Images = append([]string(nil), b.Images...)
	}
	if len(b.Videos) > 0 {
		out.Videos = append([]VideoRef(nil), b.Videos...)
	}
	return out
}

// PendingAttachments holds everything queued for the next request.
type PendingAttachments struct {
	Images   []string
	Videos   []string   // local paths still waiting for upload
	Uploaded []VideoRef // processed remote files ready to send
}

func (p PendingAttachments) Empty() bool {
	return len(p.Images) == 0 && len(p.Videos) == 0 && len(p.Uploaded) == 0
}

// CaptureKind says where an injected attachment came from.
type CaptureKind int

const (
	KindNone CaptureKind = iota
	KindScreenshot
	KindObject
	KindVideo
)

func (k CaptureKind) String() string {
	switch k {
	case KindScreenshot:
		return "screenshot"
	case KindObject:
		return "object"
	case KindVideo:
		return "video"
	default:
		return "none"
	}
}

type AIModel struct {
	ID              string
	Name            string
	ContextWindow   int
	MaxOutputTokens int
	Vision          bool
	Preview         bool
}

type ChatListItem struct {
	ID             int64
	UpdatedAtUnix  int64
	LastUserPrompt string
	ModelID        string
}
