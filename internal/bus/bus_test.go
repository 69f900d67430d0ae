package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSenderEnqueuesInFIFOOrder(t *testing.T) {
	b := New()
	sender := b.Sender()

	sender.Send(Event{Kind: OnInput, Key: "a"})
	sender.Send(Event{Kind: OnInput, Key: "b"})
	sender.Send(Event{Kind: OnInput, Key: "c"})

	got := b.Drain()
	require.Len(t, got, 3)
	require.Equal(t, "a", got[0].Key)
	require.Equal(t, "b", got[1].Key)
	require.Equal(t, "c", got[2].Key)
}

func TestDrainIsNonBlockingOnEmptyBus(t *testing.T) {
	b := New()
	require.Empty(t, b.Drain())
}

func TestNextUnblocksOnContextCancellation(t *testing.T) {
	b := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok := b.Next(ctx)
	require.False(t, ok)
}

func TestRunSweeperDeliversTaskCompletionAsEvent(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = b.RunSweeper(ctx)
		close(done)
	}()

	b.Enqueue(func(ctx context.Context) Event {
		return Event{Kind: OnMessage, Text: "task done"}
	})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-b.events:
			require.Equal(t, "task done", e.Text)
			cancel()
			<-done
			return
		case <-deadline:
			t.Fatal("timed out waiting for task completion event")
		}
	}
}
