// Package history holds the ordered conversation log the UI renders from.
//
// History is not safe for concurrent use. It is owned by the UI goroutine;
// background goroutines only ever see snapshots returned by Blocks.
package history

import "sightline/internal/models"

type History struct {
	blocks []models.MessageBlock
}

func New() *History {
	return &History{}
}

// Append adds b as the newest block.
func (h *History) Append(b models.MessageBlock) {
	h.blocks = append(h.blocks, b.Clone())
}

// Clear drops every block.
func (h *History) Clear() {
	h.blocks = nil
}

func (h *History) Len() int {
	return len(h.blocks)
}

// Blocks returns a snapshot in chronological order.
func (h *History) Blocks() []models.MessageBlock {
	out := make([]models.MessageBlock, len(h.blocks))
	for i, b := range h.blocks {
		out[i] = b.Clone()
	}
	return out
}

func (h *History) Last() (models.MessageBlock, bool) {
	if len(h.blocks) == 0 {
		return models.MessageBlock{}, false
	}
	return h.blocks[len(h.blocks)-1].Clone(), true
}

// FromNewest returns the block i positions back from the end; 0 is newest.
func (h *History) FromNewest(i int) (models.MessageBlock, bool) {
	if i < 0 || i >= len(h.blocks) {
		return models.MessageBlock{}, false
	}
	return h.blocks[len(h.blocks)-1-i].Clone(), true
}

// GrowLast appends text to the newest block if it is an assistant block.
func (h *History) GrowLast(text string) bool {
	n := len(h.blocks)
	if n == 0 || h.blocks[n-1].Role != models.RoleAssistant {
		return false
	}
	h.blocks[n-1].Text += text
	return true
}

// DropLast removes the newest block. Only used to abort an open
// assistant block whose stream failed.
func (h *History) DropLast() bool {
	if len(h.blocks) == 0 {
		return false
	}
	h.blocks[len(h.blocks)-1] = models.MessageBlock{}
	h.blocks = h.blocks[:len(h.blocks)-1]
	return true
}
