package sse

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestHubBroadcastOrdering(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := uuid.New().String()

	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, channel)

	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventSolutionCreated, Data: map[string]any{"seq": 1}})
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventSolutionCompleted, Data: map[string]any{"seq": 2}})

	first := recvMessage(t, client.Outbound, time.Second)
	second := recvMessage(t, client.Outbound, time.Second)
	if first.Event != SSEEventSolutionCreated {
		t.Fatalf("first event: want %s got %s", SSEEventSolutionCreated, first.Event)
	}
	if second.Event != SSEEventSolutionCompleted {
		t.Fatalf("second event: want %s got %s", SSEEventSolutionCompleted, second.Event)
	}
}

func TestHubChannelIsolation(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))

	userA := uuid.New()
	userB := uuid.New()
	clientA := hub.NewSSEClient(userA)
	clientB := hub.NewSSEClient(userB)
	hub.AddChannel(clientA, userA.String())
	hub.AddChannel(clientB, userB.String())

	hub.Broadcast(SSEMessage{Channel: userA.String(), Event: SSEEventSolutionFailed})

	got := recvMessage(t, clientA.Outbound, time.Second)
	if got.Event != SSEEventSolutionFailed {
		t.Fatalf("event: want %s got %s", SSEEventSolutionFailed, got.Event)
	}
	select {
	case msg := <-clientB.Outbound:
		t.Fatalf("client B received a message for client A: %+v", msg)
	default:
	}
}

func TestHubRemoveClientStopsDelivery(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := uuid.New().String()

	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, channel)
	hub.RemoveClient(client)

	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventSummaryCompleted})
	select {
	case msg := <-client.Outbound:
		t.Fatalf("removed client still received: %+v", msg)
	default:
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := uuid.New().String()

	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, channel)

	// outbound buffer is 16; the rest must be dropped, not block
	for i := 0; i < 40; i++ {
		hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventSolutionProgress, Data: map[string]any{"seq": i}})
	}
	if got := len(client.Outbound); got != cap(client.Outbound) {
		t.Fatalf("outbound buffer: want %d queued got %d", cap(client.Outbound), got)
	}
}
