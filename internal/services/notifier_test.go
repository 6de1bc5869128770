package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_DeliversEmailAndRealtime(t *testing.T) {
	sender := &recordingSender{}
	publisher := &recordingPublisher{}
	notifier := NewNotifier(sender, publisher, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	notifier.Start(ctx)

	notifier.Enqueue(Notification{
		To:      "asha@example.com",
		Subject: "Your ticket is confirmed",
		Body:    "<p>hi</p>",
		Channel: "event-evt_1",
		Message: map[string]any{"type": "payment_captured"},
	})

	require.Eventually(t, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()
		return len(sender.sent) == 1
	}, time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		publisher.mu.Lock()
		defer publisher.mu.Unlock()
		return len(publisher.messages) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, "asha@example.com", sender.sent[0].To)
	assert.Equal(t, "event-evt_1", publisher.messages[0].Channel)
}

func TestNotifier_EnqueueNeverBlocks(t *testing.T) {
	// No worker running: the buffer fills and the rest is dropped.
	notifier := NewNotifier(&recordingSender{}, &recordingPublisher{}, 2)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			notifier.Enqueue(Notification{To: "x@example.com"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
}

func TestNotifier_SendFailureOnlyLogged(t *testing.T) {
	sender := &recordingSender{fail: true}
	notifier := NewNotifier(sender, &recordingPublisher{}, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	notifier.Start(ctx)

	notifier.Enqueue(Notification{To: "asha@example.com", Subject: "s", Body: "b"})

	require.Eventually(t, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()
		return sender.calls == 1
	}, time.Second, 10*time.Millisecond)
}
