package session

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMailboxPreservesOrderWithoutConsumer(t *testing.T) {
	mb := NewMailbox()
	for i := 0; i < 1000; i++ {
		mb.Post(i)
	}
	if mb.Len() != 1000 {
		t.Fatalf("Len = %d", mb.Len())
	}
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		msg, ok := mb.Receive(ctx)
		if !ok || msg.(int) != i {
			t.Fatalf("message %d = %v, %v", i, msg, ok)
		}
	}
}

func TestMailboxConcurrentProducers(t *testing.T) {
	mb := NewMailbox()
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				mb.Post(i)
			}
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for n := 0; n < 400; n++ {
		if _, ok := mb.Receive(ctx); !ok {
			t.Fatalf("received only %d messages", n)
		}
	}
	wg.Wait()
}

func TestMailboxClose(t *testing.T) {
	mb := NewMailbox()
	mb.Post("queued")
	mb.Close()
	mb.Post("late")

	if _, ok := mb.Receive(context.Background()); ok {
		t.Error("Receive succeeded on a closed mailbox")
	}
	if mb.Len() != 0 {
		t.Errorf("closed mailbox holds %d messages", mb.Len())
	}
}

func TestMailboxReceiveHonorsContext(t *testing.T) {
	mb := NewMailbox()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, ok := mb.Receive(ctx); ok {
		t.Error("Receive returned a message from an empty mailbox")
	}
}

func TestKeyRepeat(t *testing.T) {
	tests := []struct {
		name string
		gaps []time.Duration
		keys []int
		want []Gesture
	}{
		{"double press", []time.Duration{0, 100 * time.Millisecond}, []int{1, 1}, []Gesture{GestureRead, GestureCopy}},
		{"slow presses", []time.Duration{0, 600 * time.Millisecond}, []int{1, 1}, []Gesture{GestureRead, GestureRead}},
		{"other key", []time.Duration{0, 100 * time.Millisecond}, []int{1, 2}, []Gesture{GestureRead, GestureRead}},
		{"third press reads", []time.Duration{0, 100 * time.Millisecond, 100 * time.Millisecond}, []int{3, 3, 3}, []Gesture{GestureRead, GestureCopy, GestureRead}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
			kr := NewKeyRepeat()
			kr.Now = func() time.Time { return now }
			for i, gap := range tt.gaps {
				now = now.Add(gap)
				if got := kr.Press(tt.keys[i]); got != tt.want[i] {
					t.Errorf("press %d = %v, want %v", i, got, tt.want[i])
				}
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	var r Registry
	if _, ok := r.Current(); ok {
		t.Fatal("empty registry has a current session")
	}

	made := 0
	newFn := func() *Controller {
		made++
		return New(Deps{}, DefaultOptions())
	}
	first, created := r.Open(newFn)
	if !created {
		t.Error("first Open did not create")
	}
	again, created := r.Open(newFn)
	if created || again != first {
		t.Error("second Open replaced the open session")
	}
	if cur, ok := r.Current(); !ok || cur != first {
		t.Error("Current does not return the open session")
	}

	r.Clear()
	if !first.Closed() {
		t.Error("Clear did not close the session")
	}
	if _, ok := r.Current(); ok {
		t.Error("Current after Clear")
	}
	if _, created := r.Open(newFn); !created || made != 2 {
		t.Errorf("Open after Clear: created=%v made=%d", created, made)
	}
	r.Clear()
}
