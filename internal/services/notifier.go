package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/logger"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/sse"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/types"
)

// SSEEmitter abstracts where an event goes: straight to the local hub, or
// through the redis bus when one is configured (the bus forwarder then
// broadcasts on every instance's hub, including ours).
type SSEEmitter interface {
	Emit(ctx context.Context, msg sse.SSEMessage)
}

type hubEmitter struct {
	hub *sse.SSEHub
}

func NewHubEmitter(hub *sse.SSEHub) SSEEmitter {
	return &hubEmitter{hub: hub}
}

func (e *hubEmitter) Emit(_ context.Context, msg sse.SSEMessage) {
	e.hub.Broadcast(msg)
}

type busEmitter struct {
	log *logger.Logger
	bus SSEBus
}

func NewBusEmitter(log *logger.Logger, bus SSEBus) SSEEmitter {
	return &busEmitter{log: log.With("component", "BusEmitter"), bus: bus}
}

func (e *busEmitter) Emit(ctx context.Context, msg sse.SSEMessage) {
	if err := e.bus.Publish(ctx, msg); err != nil {
		e.log.Warn("Failed to publish SSE message", "error", err)
	}
}

// =========================
// Solution notifier
// =========================

type SolutionNotifier interface {
	SolutionCreated(userID uuid.UUID, solution *types.Solution)
	SolutionProgress(userID, solutionID uuid.UUID, stage string, progress int, message string)
	SolutionCompleted(userID uuid.UUID, solution *types.Solution)
	SolutionFailed(userID, solutionID uuid.UUID, errorMessage string)
}

type solutionNotifier struct {
	emit SSEEmitter
}

func NewSolutionNotifier(emit SSEEmitter) SolutionNotifier {
	return &solutionNotifier{emit: emit}
}

func (n *solutionNotifier) SolutionCreated(userID uuid.UUID, solution *types.Solution) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: userID.String(),
		Event:   sse.SSEEventSolutionCreated,
		Data:    map[string]any{"solution": solution},
	})
}

func (n *solutionNotifier) SolutionProgress(userID, solutionID uuid.UUID, stage string, progress int, message string) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: userID.String(),
		Event:   sse.SSEEventSolutionProgress,
		Data: map[string]any{
			"solution_id": solutionID,
			"stage":       stage,
			"progress":    progress,
			"message":     message,
		},
	})
}

func (n *solutionNotifier) SolutionCompleted(userID uuid.UUID, solution *types.Solution) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: userID.String(),
		Event:   sse.SSEEventSolutionCompleted,
		Data:    map[string]any{"solution": solution},
	})
}

func (n *solutionNotifier) SolutionFailed(userID, solutionID uuid.UUID, errorMessage string) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: userID.String(),
		Event:   sse.SSEEventSolutionFailed,
		Data: map[string]any{
			"solution_id": solutionID,
			"error":       errorMessage,
		},
	})
}

// =========================
// Summary notifier
// =========================

type SummaryNotifier interface {
	SummaryCreated(userID uuid.UUID, summary *types.Summary)
	SummaryCompleted(userID uuid.UUID, summary *types.Summary)
	SummaryFailed(userID, summaryID uuid.UUID, errorMessage string)
}

type summaryNotifier struct {
	emit SSEEmitter
}

func NewSummaryNotifier(emit SSEEmitter) SummaryNotifier {
	return &summaryNotifier{emit: emit}
}

func (n *summaryNotifier) SummaryCreated(userID uuid.UUID, summary *types.Summary) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: userID.String(),
		Event:   sse.SSEEventSummaryCreated,
		Data:    map[string]any{"summary": summary},
	})
}

func (n *summaryNotifier) SummaryCompleted(userID uuid.UUID, summary *types.Summary) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: userID.String(),
		Event:   sse.SSEEventSummaryCompleted,
		Data:    map[string]any{"summary": summary},
	})
}

func (n *summaryNotifier) SummaryFailed(userID, summaryID uuid.UUID, errorMessage string) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: userID.String(),
		Event:   sse.SSEEventSummaryFailed,
		Data: map[string]any{
			"summary_id": summaryID,
			"error":      errorMessage,
		},
	})
}
