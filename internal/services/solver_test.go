package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/logger"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/sse"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/types"
)

// =========================
// Fakes
// =========================

type fakeSolutionRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*types.Solution
}

func newFakeSolutionRepo() *fakeSolutionRepo {
	return &fakeSolutionRepo{rows: make(map[uuid.UUID]*types.Solution)}
}

func (r *fakeSolutionRepo) Create(_ context.Context, _ *gorm.DB, solutions []*types.Solution) ([]*types.Solution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range solutions {
		cp := *s
		r.rows[s.ID] = &cp
	}
	return solutions, nil
}

func (r *fakeSolutionRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.Solution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Solution
	for _, id := range ids {
		if row, ok := r.rows[id]; ok {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeSolutionRepo) ListByUserID(_ context.Context, _ *gorm.DB, userID uuid.UUID) ([]*types.Solution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Solution
	for _, row := range r.rows {
		if row.UserID == userID {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeSolutionRepo) GetLatestByCourseWork(_ context.Context, _ *gorm.DB, userID uuid.UUID, courseID, courseWorkID string) (*types.Solution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *types.Solution
	for _, row := range r.rows {
		if row.UserID == userID && row.CourseID == courseID && row.CourseWorkID == courseWorkID {
			if latest == nil || row.CreatedAt.After(latest.CreatedAt) {
				latest = row
			}
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *fakeSolutionRepo) ClaimNextRunnable(_ context.Context, _ *gorm.DB, _ time.Duration) (*types.Solution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, row := range r.rows {
		if row.Status == types.SolutionStatusProcessing && row.LockedAt == nil {
			row.LockedAt = &now
			row.HeartbeatAt = &now
			row.StartedAt = &now
			row.Attempts++
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeSolutionRepo) UpdateFields(_ context.Context, _ *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return fmt.Errorf("no row %s", id)
	}
	applySolutionUpdates(row, updates)
	return nil
}

func (r *fakeSolutionRepo) Heartbeat(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[id]; ok && row.Status == types.SolutionStatusProcessing {
		now := time.Now()
		row.HeartbeatAt = &now
	}
	return nil
}

func (r *fakeSolutionRepo) DeleteByID(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

func (r *fakeSolutionRepo) get(id uuid.UUID) *types.Solution {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[id]; ok {
		cp := *row
		return &cp
	}
	return nil
}

func applySolutionUpdates(row *types.Solution, updates map[string]interface{}) {
	for k, v := range updates {
		switch k {
		case "status":
			row.Status = v.(string)
		case "solution_text":
			row.SolutionText = v.(string)
		case "pdf_data":
			row.PDFData = v.([]byte)
		case "pdf_key":
			row.PDFKey = v.(string)
		case "pdf_url":
			row.PDFURL = v.(string)
		case "error":
			row.Error = v.(string)
		case "completed_at":
			ts := v.(time.Time)
			row.CompletedAt = &ts
		}
	}
}

type fakeSummaryRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*types.Summary
}

func newFakeSummaryRepo() *fakeSummaryRepo {
	return &fakeSummaryRepo{rows: make(map[uuid.UUID]*types.Summary)}
}

func (r *fakeSummaryRepo) Create(_ context.Context, _ *gorm.DB, summaries []*types.Summary) ([]*types.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range summaries {
		cp := *s
		r.rows[s.ID] = &cp
	}
	return summaries, nil
}

func (r *fakeSummaryRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Summary
	for _, id := range ids {
		if row, ok := r.rows[id]; ok {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeSummaryRepo) ListByUserID(_ context.Context, _ *gorm.DB, userID uuid.UUID) ([]*types.Summary, error) {
	return nil, nil
}

func (r *fakeSummaryRepo) ClaimNextRunnable(_ context.Context, _ *gorm.DB, _ time.Duration) (*types.Summary, error) {
	return nil, nil
}

func (r *fakeSummaryRepo) UpdateFields(_ context.Context, _ *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return fmt.Errorf("no row %s", id)
	}
	for k, v := range updates {
		switch k {
		case "status":
			row.Status = v.(string)
		case "summary_text":
			row.SummaryText = v.(string)
		case "pdf_data":
			row.PDFData = v.([]byte)
		case "error":
			row.Error = v.(string)
		case "completed_at":
			ts := v.(time.Time)
			row.CompletedAt = &ts
		}
	}
	return nil
}

func (r *fakeSummaryRepo) Heartbeat(_ context.Context, _ *gorm.DB, _ uuid.UUID) error { return nil }
func (r *fakeSummaryRepo) DeleteByID(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

func (r *fakeSummaryRepo) get(id uuid.UUID) *types.Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[id]; ok {
		cp := *row
		return &cp
	}
	return nil
}

type fakeLLMLogRepo struct {
	mu   sync.Mutex
	logs []*types.LLMCallLog
}

func (r *fakeLLMLogRepo) Create(_ context.Context, _ *gorm.DB, logs []*types.LLMCallLog) ([]*types.LLMCallLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, logs...)
	return logs, nil
}

func (r *fakeLLMLogRepo) GetByContextIDs(_ context.Context, _ *gorm.DB, _ []uuid.UUID) ([]*types.LLMCallLog, error) {
	return nil, nil
}

func (r *fakeLLMLogRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.logs)
}

type fakeDrive struct {
	err error
}

func (d *fakeDrive) FetchMaterialText(_ context.Context, _ uuid.UUID, ref types.MaterialRef) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	return ref.InlineText, nil
}

type fakeClassroom struct {
	courseWork *types.ClassroomCourseWork
	material   *types.ClassroomCourseWorkMaterial
}

func (c *fakeClassroom) ListCourses(_ context.Context, _ uuid.UUID) ([]types.ClassroomCourse, error) {
	return nil, nil
}
func (c *fakeClassroom) ListCourseWork(_ context.Context, _ uuid.UUID, _ string) ([]types.ClassroomCourseWork, error) {
	return nil, nil
}
func (c *fakeClassroom) GetCourseWork(_ context.Context, _ uuid.UUID, _, _ string) (*types.ClassroomCourseWork, error) {
	if c.courseWork == nil {
		return nil, fmt.Errorf("course work not found")
	}
	return c.courseWork, nil
}
func (c *fakeClassroom) ListCourseWorkMaterials(_ context.Context, _ uuid.UUID, _ string) ([]types.ClassroomCourseWorkMaterial, error) {
	return nil, nil
}
func (c *fakeClassroom) GetCourseWorkMaterial(_ context.Context, _ uuid.UUID, _, _ string) (*types.ClassroomCourseWorkMaterial, error) {
	if c.material == nil {
		return nil, fmt.Errorf("material not found")
	}
	return c.material, nil
}

type fakeGemini struct {
	text string
	err  error
}

func (g *fakeGemini) Generate(_ context.Context, _ string) (*GeminiResult, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &GeminiResult{Text: g.text, Usage: GeminiUsage{TotalTokenCount: 10}}, nil
}

func (g *fakeGemini) Model() string { return "fake-model" }

type captureEmitter struct {
	mu   sync.Mutex
	msgs []sse.SSEMessage
}

func (e *captureEmitter) Emit(_ context.Context, msg sse.SSEMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
}

func (e *captureEmitter) events() []sse.SSEEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]sse.SSEEvent, 0, len(e.msgs))
	for _, m := range e.msgs {
		out = append(out, m.Event)
	}
	return out
}

// =========================
// Harness
// =========================

type solverHarness struct {
	svc       *solverService
	solutions *fakeSolutionRepo
	summaries *fakeSummaryRepo
	llmLogs   *fakeLLMLogRepo
	classroom *fakeClassroom
	drive     *fakeDrive
	gemini    *fakeGemini
	emitter   *captureEmitter
}

func newSolverHarness(t *testing.T) *solverHarness {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)

	h := &solverHarness{
		solutions: newFakeSolutionRepo(),
		summaries: newFakeSummaryRepo(),
		llmLogs:   &fakeLLMLogRepo{},
		classroom: &fakeClassroom{},
		drive:     &fakeDrive{},
		gemini:    &fakeGemini{text: "1. The answer is 42."},
		emitter:   &captureEmitter{},
	}
	h.svc = NewSolverService(
		nil,
		log,
		h.solutions,
		h.summaries,
		h.llmLogs,
		h.classroom,
		h.drive,
		h.gemini,
		nil,
		NewSolutionNotifier(h.emitter),
		NewSummaryNotifier(h.emitter),
	).(*solverService)
	return h
}

func hasEvent(events []sse.SSEEvent, want sse.SSEEvent) bool {
	for _, e := range events {
		if e == want {
			return true
		}
	}
	return false
}

// =========================
// Tests
// =========================

func TestEnqueueFromUploadCreatesProcessingRow(t *testing.T) {
	h := newSolverHarness(t)
	userID := uuid.New()

	solution, err := h.svc.EnqueueFromUpload(context.Background(), userID, "", "homework.txt", "text/plain", []byte("1) What is inertia?\n"))
	if err != nil {
		t.Fatalf("EnqueueFromUpload: %v", err)
	}
	if solution.Status != types.SolutionStatusProcessing {
		t.Fatalf("status: want processing got %s", solution.Status)
	}
	if solution.Title != "Solutions for homework.txt" {
		t.Fatalf("title: got %q", solution.Title)
	}

	var refs []types.MaterialRef
	if err := json.Unmarshal(solution.Materials, &refs); err != nil {
		t.Fatalf("materials snapshot: %v", err)
	}
	if len(refs) != 1 || refs[0].InlineText == "" {
		t.Fatalf("expected one inline material ref, got %+v", refs)
	}
	if !hasEvent(h.emitter.events(), sse.SSEEventSolutionCreated) {
		t.Fatalf("expected SolutionCreated event")
	}
}

func TestEnqueueFromCourseWorkSnapshotsMaterials(t *testing.T) {
	h := newSolverHarness(t)
	h.classroom.courseWork = &types.ClassroomCourseWork{
		ID:       "cw1",
		CourseID: "c1",
		Title:    "Physics Worksheet",
		Materials: []types.MaterialRef{
			{DriveFileID: "f1", Title: "worksheet.pdf"},
		},
	}
	userID := uuid.New()

	solution, err := h.svc.EnqueueFromCourseWork(context.Background(), userID, "c1", "cw1")
	if err != nil {
		t.Fatalf("EnqueueFromCourseWork: %v", err)
	}
	if solution.Title != "Solutions for Physics Worksheet" {
		t.Fatalf("title: got %q", solution.Title)
	}
	if solution.CourseID != "c1" || solution.CourseWorkID != "cw1" {
		t.Fatalf("course refs not set: %+v", solution)
	}
}

func TestEnqueueFromCourseWorkNoMaterials(t *testing.T) {
	h := newSolverHarness(t)
	h.classroom.courseWork = &types.ClassroomCourseWork{ID: "cw1", Title: "Empty"}
	if _, err := h.svc.EnqueueFromCourseWork(context.Background(), uuid.New(), "c1", "cw1"); err == nil {
		t.Fatalf("expected error for course work without materials")
	}
}

func TestProcessSolutionCompletes(t *testing.T) {
	h := newSolverHarness(t)
	userID := uuid.New()
	solution, err := h.svc.EnqueueFromUpload(context.Background(), userID, "", "quiz.txt", "text/plain", []byte("1) Define momentum?\n"))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	claimed, err := h.solutions.ClaimNextRunnable(context.Background(), nil, time.Minute)
	if err != nil || claimed == nil {
		t.Fatalf("claim: %v %v", claimed, err)
	}
	h.svc.processSolution(context.Background(), claimed)

	row := h.solutions.get(solution.ID)
	if row.Status != types.SolutionStatusCompleted {
		t.Fatalf("status: want completed got %s (error=%q)", row.Status, row.Error)
	}
	if row.SolutionText == "" {
		t.Fatalf("solution text not persisted")
	}
	if len(row.PDFData) == 0 || !strings.HasPrefix(string(row.PDFData[:4]), "%PDF") {
		t.Fatalf("pdf not persisted")
	}
	if row.CompletedAt == nil {
		t.Fatalf("completed_at not set")
	}
	if h.llmLogs.count() != 1 {
		t.Fatalf("llm call log: want 1 got %d", h.llmLogs.count())
	}
	if !hasEvent(h.emitter.events(), sse.SSEEventSolutionCompleted) {
		t.Fatalf("expected SolutionCompleted event")
	}
}

func TestProcessSolutionFailsOnModelError(t *testing.T) {
	h := newSolverHarness(t)
	h.gemini.err = fmt.Errorf("model unavailable")
	solution, err := h.svc.EnqueueFromUpload(context.Background(), uuid.New(), "", "quiz.txt", "text/plain", []byte("1) Define momentum?\n"))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	claimed, _ := h.solutions.ClaimNextRunnable(context.Background(), nil, time.Minute)
	h.svc.processSolution(context.Background(), claimed)

	row := h.solutions.get(solution.ID)
	if row.Status != types.SolutionStatusFailed {
		t.Fatalf("status: want failed got %s", row.Status)
	}
	if row.Error == "" {
		t.Fatalf("error message not persisted")
	}
	if !hasEvent(h.emitter.events(), sse.SSEEventSolutionFailed) {
		t.Fatalf("expected SolutionFailed event")
	}
	// failure is recorded in the call log too
	if h.llmLogs.count() != 1 {
		t.Fatalf("llm call log: want 1 got %d", h.llmLogs.count())
	}
}

func TestProcessSolutionFailsOnUnreadableMaterials(t *testing.T) {
	h := newSolverHarness(t)
	h.drive.err = fmt.Errorf("drive download failed")
	h.classroom.courseWork = &types.ClassroomCourseWork{
		ID: "cw1", CourseID: "c1", Title: "Worksheet",
		Materials: []types.MaterialRef{{DriveFileID: "f1", Title: "w.pdf"}},
	}
	solution, err := h.svc.EnqueueFromCourseWork(context.Background(), uuid.New(), "c1", "cw1")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	claimed, _ := h.solutions.ClaimNextRunnable(context.Background(), nil, time.Minute)
	h.svc.processSolution(context.Background(), claimed)

	row := h.solutions.get(solution.ID)
	if row.Status != types.SolutionStatusFailed {
		t.Fatalf("status: want failed got %s", row.Status)
	}
}

func TestProcessSummaryCompletes(t *testing.T) {
	h := newSolverHarness(t)
	h.gemini.text = "* key point one\n* key point two"
	h.classroom.material = &types.ClassroomCourseWorkMaterial{
		ID: "m1", CourseID: "c1", Title: "Week 3 Notes",
		Materials: []types.MaterialRef{{Title: "notes.txt", InlineText: "chapter notes text"}},
	}
	summary, err := h.svc.EnqueueSummary(context.Background(), uuid.New(), "c1", "m1")
	if err != nil {
		t.Fatalf("EnqueueSummary: %v", err)
	}
	if summary.Title != "Summary for Week 3 Notes" {
		t.Fatalf("title: got %q", summary.Title)
	}

	h.svc.processSummary(context.Background(), h.summaries.get(summary.ID))

	row := h.summaries.get(summary.ID)
	if row.Status != types.SolutionStatusCompleted {
		t.Fatalf("status: want completed got %s (error=%q)", row.Status, row.Error)
	}
	if row.SummaryText == "" || len(row.PDFData) == 0 {
		t.Fatalf("summary output not persisted")
	}
	if !hasEvent(h.emitter.events(), sse.SSEEventSummaryCompleted) {
		t.Fatalf("expected SummaryCompleted event")
	}
}

func TestCollectMaterialTextInlineDetection(t *testing.T) {
	h := newSolverHarness(t)
	userID := uuid.New()

	text, inlineOnly, err := h.svc.collectMaterialText(context.Background(), userID, []types.MaterialRef{
		{Title: "upload.txt", InlineText: "1) a question?"},
	})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if !inlineOnly {
		t.Fatalf("want inlineOnly=true for uploaded text")
	}
	if !strings.Contains(text, "=== upload.txt ===") {
		t.Fatalf("missing per-file header: %q", text)
	}
}
