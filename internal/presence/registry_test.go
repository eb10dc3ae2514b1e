// ABOUTME: Tests for the presence registry fan-out system
// ABOUTME: Covers join, emit, multi-tab delivery, context cancellation, concurrency

package presence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_SingleConnectionReceivesEvent(t *testing.T) {
	r := NewRegistry(nil)
	defer r.Close()

	ch, _ := r.Join(t.Context(), "client-1")

	delivered := r.EmitToUser("client-1", &Event{Name: "newMessage", Data: "hi"})
	assert.True(t, delivered)

	select {
	case received := <-ch:
		assert.Equal(t, "newMessage", received.Name)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestRegistry_MultipleTabsReceiveSameEvent(t *testing.T) {
	r := NewRegistry(nil)
	defer r.Close()

	ctx := t.Context()
	ch1, _ := r.Join(ctx, "client-1")
	ch2, _ := r.Join(ctx, "client-1")
	ch3, _ := r.Join(ctx, "client-1")

	r.EmitToUser("client-1", &Event{Name: "newMessage"})

	for i, ch := range []<-chan *Event{ch1, ch2, ch3} {
		select {
		case received := <-ch:
			assert.Equal(t, "newMessage", received.Name, "tab %d got wrong event", i)
		case <-time.After(time.Second):
			t.Fatalf("tab %d timed out", i)
		}
	}
}

func TestRegistry_UsersAreIsolated(t *testing.T) {
	r := NewRegistry(nil)
	defer r.Close()

	ctx := t.Context()
	ch1, _ := r.Join(ctx, "client-1")
	ch2, _ := r.Join(ctx, "agent-1")

	r.EmitToUser("client-1", &Event{Name: "newMessage"})

	select {
	case received := <-ch1:
		assert.Equal(t, "newMessage", received.Name)
	case <-time.After(time.Second):
		t.Fatal("client-1 connection timed out")
	}

	select {
	case <-ch2:
		t.Fatal("agent-1 should not receive events addressed to client-1")
	case <-time.After(100 * time.Millisecond):
		// Expected: no event
	}
}

func TestRegistry_EmitToOfflineUser(t *testing.T) {
	r := NewRegistry(nil)
	defer r.Close()

	delivered := r.EmitToUser("nobody", &Event{Name: "newMessage"})
	assert.False(t, delivered)
}

func TestRegistry_DeliveredAfterLastTabLeaves(t *testing.T) {
	r := NewRegistry(nil)
	defer r.Close()

	_, connID := r.Join(t.Context(), "client-1")
	require.True(t, r.Online("client-1"))

	r.Leave("client-1", connID)
	assert.False(t, r.Online("client-1"))

	delivered := r.EmitToUser("client-1", &Event{Name: "newMessage"})
	assert.False(t, delivered)
}

func TestRegistry_SlowConnectionDoesNotBlockEmit(t *testing.T) {
	r := NewRegistry(nil)
	defer r.Close()

	ctx := t.Context()
	// Join but never read from the first connection (slow tab)
	_, _ = r.Join(ctx, "client-1")
	ch2, _ := r.Join(ctx, "client-1")

	// Emit more events than the buffer size to overflow the slow tab
	for i := 0; i < 100; i++ {
		r.EmitToUser("client-1", &Event{Name: "typing"})
	}

	receivedCount := 0
	for {
		select {
		case <-ch2:
			receivedCount++
		case <-time.After(200 * time.Millisecond):
			goto done
		}
	}
done:
	assert.Greater(t, receivedCount, 0, "fast tab should receive at least some events")
}

func TestRegistry_ContextCancellationCleansUp(t *testing.T) {
	r := NewRegistry(nil)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := r.Join(ctx, "client-1")
	require.True(t, r.Online("client-1"))

	cancel()

	// Give cleanup goroutine time to run
	time.Sleep(50 * time.Millisecond)

	assert.False(t, r.Online("client-1"))

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after context cancel")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after context cancel")
	}
}

func TestRegistry_Connections(t *testing.T) {
	r := NewRegistry(nil)
	defer r.Close()

	ctx := t.Context()
	assert.Equal(t, 0, r.Connections("client-1"))

	_, conn1 := r.Join(ctx, "client-1")
	r.Join(ctx, "client-1")
	assert.Equal(t, 2, r.Connections("client-1"))

	r.Leave("client-1", conn1)
	assert.Equal(t, 1, r.Connections("client-1"))
}

func TestRegistry_CloseClosesAllConnections(t *testing.T) {
	r := NewRegistry(nil)

	ch1, _ := r.Join(t.Context(), "client-1")
	ch2, _ := r.Join(t.Context(), "agent-1")

	r.Close()

	for i, ch := range []<-chan *Event{ch1, ch2} {
		select {
		case _, ok := <-ch:
			assert.False(t, ok, "channel %d should be closed after Close()", i)
		case <-time.After(time.Second):
			t.Fatalf("channel %d not closed after Close()", i)
		}
	}
}

func TestRegistry_ConcurrentJoinAndEmit(t *testing.T) {
	r := NewRegistry(nil)
	defer r.Close()

	var wg sync.WaitGroup
	ctx := t.Context()

	for range 10 {
		wg.Go(func() {
			ch, _ := r.Join(ctx, "client-concurrent")
			for range 5 {
				select {
				case <-ch:
				case <-time.After(500 * time.Millisecond):
					return
				}
			}
		})
	}

	for range 10 {
		wg.Go(func() {
			for range 10 {
				r.EmitToUser("client-concurrent", &Event{Name: "typing"})
			}
		})
	}

	wg.Wait()
	// If we get here without deadlock or panic, the test passes
}

func TestRegistry_EmitDuringLeaveChurn(t *testing.T) {
	r := NewRegistry(nil)
	defer r.Close()

	var wg sync.WaitGroup
	ctx := t.Context()

	// Connections join and leave while emitters fire continuously. A close
	// racing a send would panic here.
	for range 5 {
		wg.Go(func() {
			for range 200 {
				_, connID := r.Join(ctx, "client-churn")
				r.Leave("client-churn", connID)
			}
		})
	}

	for range 5 {
		wg.Go(func() {
			for range 200 {
				r.EmitToUser("client-churn", &Event{Name: "newMessage"})
			}
		})
	}

	wg.Wait()
}
