package session

import "time"

const DoublePressWindow = 500 * time.Millisecond

type Gesture int

const (
	GestureRead Gesture = iota
	GestureCopy
)

func (g Gesture) String() string {
	if g == GestureCopy {
		return "copy"
	}
	return "read"
}

// KeyRepeat tells a single press from a double press of the same key.
type KeyRepeat struct {
	Window time.Duration
	Now    func() time.Time

	lastKey int
	lastAt  time.Time
	armed   bool
}

func NewKeyRepeat() *KeyRepeat {
	return &KeyRepeat{Window: DoublePressWindow, Now: time.Now}
}

// Press records an activation of key and classifies it. A copy gesture
// disarms the tracker, so a third quick press reads again.
func (k *KeyRepeat) Press(key int) Gesture {
	now := k.Now()
	if k.armed && k.lastKey == key && now.Sub(k.lastAt) < k.Window {
		k.armed = false
		return GestureCopy
	}
	k.lastKey = key
	k.lastAt = now
	k.armed = true
	return GestureRead
}
