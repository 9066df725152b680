package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/logger"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/repos"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/types"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/utils"
)

const (
	llmCallTypeAssignment = "assignment_solve"
	llmCallTypeQuestions  = "questions_solve"
	llmCallTypeSummary    = "notes_summary"
)

// SolverService enqueues solve and summarize tasks and runs the worker loop
// that drains them. A task is a processing row in the solution or summary
// table; the worker claims rows with SKIP LOCKED so several instances can
// run side by side without double-solving.
type SolverService interface {
	EnqueueFromCourseWork(ctx context.Context, userID uuid.UUID, courseID, courseWorkID string) (*types.Solution, error)
	EnqueueFromUpload(ctx context.Context, userID uuid.UUID, title, fileName, mimeType string, data []byte) (*types.Solution, error)
	EnqueueSummary(ctx context.Context, userID uuid.UUID, courseID, materialID string) (*types.Summary, error)
	StartWorker(ctx context.Context)
}

type solverService struct {
	db  *gorm.DB
	log *logger.Logger

	solutionRepo repos.SolutionRepo
	summaryRepo  repos.SummaryRepo
	llmLogRepo   repos.LLMCallLogRepo

	classroom ClassroomService
	drive     DriveService
	gemini    GeminiClient
	bucket    BucketService

	solutionNotifier SolutionNotifier
	summaryNotifier  SummaryNotifier

	tickInterval    time.Duration
	staleProcessing time.Duration
	heartbeatEvery  time.Duration
}

func NewSolverService(
	db *gorm.DB,
	log *logger.Logger,
	solutionRepo repos.SolutionRepo,
	summaryRepo repos.SummaryRepo,
	llmLogRepo repos.LLMCallLogRepo,
	classroom ClassroomService,
	drive DriveService,
	gemini GeminiClient,
	bucket BucketService,
	solutionNotifier SolutionNotifier,
	summaryNotifier SummaryNotifier,
) SolverService {
	serviceLog := log.With("service", "SolverService")
	staleSec := utils.GetEnvAsInt("WORKER_STALE_SECONDS", 300, log)
	return &solverService{
		db:               db,
		log:              serviceLog,
		solutionRepo:     solutionRepo,
		summaryRepo:      summaryRepo,
		llmLogRepo:       llmLogRepo,
		classroom:        classroom,
		drive:            drive,
		gemini:           gemini,
		bucket:           bucket,
		solutionNotifier: solutionNotifier,
		summaryNotifier:  summaryNotifier,
		tickInterval:     1 * time.Second,
		staleProcessing:  time.Duration(staleSec) * time.Second,
		heartbeatEvery:   15 * time.Second,
	}
}

// =========================
// Enqueue
// =========================

func (s *solverService) EnqueueFromCourseWork(ctx context.Context, userID uuid.UUID, courseID, courseWorkID string) (*types.Solution, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated")
	}
	cw, err := s.classroom.GetCourseWork(ctx, userID, courseID, courseWorkID)
	if err != nil {
		return nil, err
	}
	if len(cw.Materials) == 0 {
		return nil, fmt.Errorf("course work %q has no materials to solve", cw.Title)
	}

	materials, err := json.Marshal(cw.Materials)
	if err != nil {
		return nil, fmt.Errorf("Failed to snapshot materials: %w", err)
	}

	solution := &types.Solution{
		ID:           uuid.New(),
		UserID:       userID,
		CourseID:     courseID,
		CourseWorkID: courseWorkID,
		Title:        fmt.Sprintf("Solutions for %s", cw.Title),
		Status:       types.SolutionStatusProcessing,
		Materials:    datatypes.JSON(materials),
	}
	if _, err := s.solutionRepo.Create(ctx, nil, []*types.Solution{solution}); err != nil {
		return nil, fmt.Errorf("Failed to create solution: %w", err)
	}
	s.solutionNotifier.SolutionCreated(userID, solution)
	return solution, nil
}

func (s *solverService) EnqueueFromUpload(ctx context.Context, userID uuid.UUID, title, fileName, mimeType string, data []byte) (*types.Solution, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated")
	}
	text, err := ExtractText(fileName, mimeType, data)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no readable text in %s", fileName)
	}

	if title = strings.TrimSpace(title); title == "" {
		title = fmt.Sprintf("Solutions for %s", fileName)
	}

	materials, err := json.Marshal([]types.MaterialRef{{Title: fileName, InlineText: text}})
	if err != nil {
		return nil, fmt.Errorf("Failed to snapshot materials: %w", err)
	}

	solution := &types.Solution{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Status:    types.SolutionStatusProcessing,
		Materials: datatypes.JSON(materials),
	}
	if _, err := s.solutionRepo.Create(ctx, nil, []*types.Solution{solution}); err != nil {
		return nil, fmt.Errorf("Failed to create solution: %w", err)
	}
	s.solutionNotifier.SolutionCreated(userID, solution)
	return solution, nil
}

func (s *solverService) EnqueueSummary(ctx context.Context, userID uuid.UUID, courseID, materialID string) (*types.Summary, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated")
	}
	mat, err := s.classroom.GetCourseWorkMaterial(ctx, userID, courseID, materialID)
	if err != nil {
		return nil, err
	}
	if len(mat.Materials) == 0 {
		return nil, fmt.Errorf("material %q has no files to summarize", mat.Title)
	}

	materials, err := json.Marshal(mat.Materials)
	if err != nil {
		return nil, fmt.Errorf("Failed to snapshot materials: %w", err)
	}

	summary := &types.Summary{
		ID:         uuid.New(),
		UserID:     userID,
		CourseID:   courseID,
		MaterialID: materialID,
		Title:      fmt.Sprintf("Summary for %s", mat.Title),
		Status:     types.SolutionStatusProcessing,
		Materials:  datatypes.JSON(materials),
	}
	if _, err := s.summaryRepo.Create(ctx, nil, []*types.Summary{summary}); err != nil {
		return nil, fmt.Errorf("Failed to create summary: %w", err)
	}
	s.summaryNotifier.SummaryCreated(userID, summary)
	return summary, nil
}

// =========================
// Worker
// =========================

func (s *solverService) StartWorker(ctx context.Context) {
	go func() {
		s.log.Info("Solver worker started", "tick", s.tickInterval.String(), "stale_processing", s.staleProcessing.String())
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.log.Info("Solver worker stopped", "reason", ctx.Err())
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

func (s *solverService) tick(ctx context.Context) {
	solution, err := s.solutionRepo.ClaimNextRunnable(ctx, nil, s.staleProcessing)
	if err != nil {
		s.log.Error("Failed to claim solution", "error", err)
	} else if solution != nil {
		s.processSolution(ctx, solution)
		return
	}

	summary, err := s.summaryRepo.ClaimNextRunnable(ctx, nil, s.staleProcessing)
	if err != nil {
		s.log.Error("Failed to claim summary", "error", err)
	} else if summary != nil {
		s.processSummary(ctx, summary)
	}
}

// startHeartbeat keeps the claimed row visibly alive so other instances do
// not steal it as stale mid-solve. Returns a stop func.
func (s *solverService) startHeartbeat(ctx context.Context, beat func(context.Context) error) func() {
	hbCtx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(s.heartbeatEvery)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				if err := beat(hbCtx); err != nil {
					s.log.Warn("Heartbeat failed", "error", err)
				}
			}
		}
	}()
	return cancel
}

func (s *solverService) processSolution(ctx context.Context, solution *types.Solution) {
	log := s.log.With("solution_id", solution.ID, "user_id", solution.UserID)
	log.Info("Processing solution", "title", solution.Title, "attempt", solution.Attempts)

	stopHeartbeat := s.startHeartbeat(ctx, func(c context.Context) error {
		return s.solutionRepo.Heartbeat(c, nil, solution.ID)
	})
	defer stopHeartbeat()

	fail := func(stage string, err error) {
		log.Error("Solution failed", "stage", stage, "error", err)
		now := time.Now()
		uErr := s.solutionRepo.UpdateFields(ctx, nil, solution.ID, map[string]interface{}{
			"status":       types.SolutionStatusFailed,
			"error":        err.Error(),
			"completed_at": now,
		})
		if uErr != nil {
			log.Error("Failed to mark solution failed", "error", uErr)
		}
		s.solutionNotifier.SolutionFailed(solution.UserID, solution.ID, err.Error())
	}
	progress := func(stage string, pct int, message string) {
		s.solutionNotifier.SolutionProgress(solution.UserID, solution.ID, stage, pct, message)
	}

	var refs []types.MaterialRef
	if err := json.Unmarshal(solution.Materials, &refs); err != nil {
		fail("materials", fmt.Errorf("Failed to decode materials snapshot: %w", err))
		return
	}

	progress("fetch_materials", 10, "Collecting assignment text")
	text, inlineOnly, err := s.collectMaterialText(ctx, solution.UserID, refs)
	if err != nil {
		fail("fetch_materials", err)
		return
	}
	if strings.TrimSpace(text) == "" {
		fail("fetch_materials", fmt.Errorf("no readable content found in assignment materials"))
		return
	}

	// An uploaded questions file goes through question extraction; classroom
	// materials get the full assignment prompt over the combined text.
	prompt := BuildAssignmentPrompt(text)
	callType := llmCallTypeAssignment
	if inlineOnly {
		qs := ExtractQuestions(text)
		if len(qs) == 0 {
			qs = []string{text}
		}
		prompt = BuildQuestionsPrompt(qs)
		callType = llmCallTypeQuestions
	}

	progress("solve", 40, "Solving assignment")
	result, err := s.gemini.Generate(ctx, prompt)
	s.logLLMCall(ctx, solution.UserID, solution.ID, callType, prompt, result, err)
	if err != nil {
		fail("solve", fmt.Errorf("Failed to generate solution: %w", err))
		return
	}

	cleaned := CleanASCII(result.Text)
	if strings.TrimSpace(cleaned) == "" {
		fail("solve", fmt.Errorf("model returned empty solution"))
		return
	}

	progress("render_pdf", 80, "Rendering PDF")
	pdfBytes, err := WriteTextPDF(solution.Title, cleaned)
	if err != nil {
		fail("render_pdf", err)
		return
	}

	updates := map[string]interface{}{
		"status":        types.SolutionStatusCompleted,
		"solution_text": cleaned,
		"pdf_data":      pdfBytes,
		"error":         "",
		"completed_at":  time.Now(),
	}
	if s.bucket != nil {
		key := fmt.Sprintf("solution_pdf/%s/%s.pdf", solution.UserID, solution.ID)
		if upErr := s.bucket.UploadFile(ctx, key, "application/pdf", bytes.NewReader(pdfBytes)); upErr != nil {
			log.Warn("Failed to upload solution PDF to bucket", "error", upErr)
		} else {
			updates["pdf_key"] = key
			updates["pdf_url"] = s.bucket.GetPublicURL(key)
		}
	}
	if err := s.solutionRepo.UpdateFields(ctx, nil, solution.ID, updates); err != nil {
		fail("persist", fmt.Errorf("Failed to persist solution: %w", err))
		return
	}

	rows, err := s.solutionRepo.GetByIDs(ctx, nil, []uuid.UUID{solution.ID})
	if err == nil && len(rows) == 1 {
		s.solutionNotifier.SolutionCompleted(solution.UserID, rows[0])
	} else {
		s.solutionNotifier.SolutionCompleted(solution.UserID, solution)
	}
	log.Info("Solution completed", "pdf_bytes", len(pdfBytes))
}

func (s *solverService) processSummary(ctx context.Context, summary *types.Summary) {
	log := s.log.With("summary_id", summary.ID, "user_id", summary.UserID)
	log.Info("Processing summary", "title", summary.Title, "attempt", summary.Attempts)

	stopHeartbeat := s.startHeartbeat(ctx, func(c context.Context) error {
		return s.summaryRepo.Heartbeat(c, nil, summary.ID)
	})
	defer stopHeartbeat()

	fail := func(stage string, err error) {
		log.Error("Summary failed", "stage", stage, "error", err)
		now := time.Now()
		uErr := s.summaryRepo.UpdateFields(ctx, nil, summary.ID, map[string]interface{}{
			"status":       types.SolutionStatusFailed,
			"error":        err.Error(),
			"completed_at": now,
		})
		if uErr != nil {
			log.Error("Failed to mark summary failed", "error", uErr)
		}
		s.summaryNotifier.SummaryFailed(summary.UserID, summary.ID, err.Error())
	}

	var refs []types.MaterialRef
	if err := json.Unmarshal(summary.Materials, &refs); err != nil {
		fail("materials", fmt.Errorf("Failed to decode materials snapshot: %w", err))
		return
	}

	text, _, err := s.collectMaterialText(ctx, summary.UserID, refs)
	if err != nil {
		fail("fetch_materials", err)
		return
	}
	if strings.TrimSpace(text) == "" {
		fail("fetch_materials", fmt.Errorf("no readable content found in notes materials"))
		return
	}

	prompt := BuildNotesSummaryPrompt(text)
	result, err := s.gemini.Generate(ctx, prompt)
	s.logLLMCall(ctx, summary.UserID, summary.ID, llmCallTypeSummary, prompt, result, err)
	if err != nil {
		fail("summarize", fmt.Errorf("Failed to generate summary: %w", err))
		return
	}

	cleaned := CleanASCII(result.Text)
	if strings.TrimSpace(cleaned) == "" {
		fail("summarize", fmt.Errorf("model returned empty summary"))
		return
	}

	pdfBytes, err := WriteTextPDF(summary.Title, cleaned)
	if err != nil {
		fail("render_pdf", err)
		return
	}

	updates := map[string]interface{}{
		"status":       types.SolutionStatusCompleted,
		"summary_text": cleaned,
		"pdf_data":     pdfBytes,
		"error":        "",
		"completed_at": time.Now(),
	}
	if s.bucket != nil {
		key := fmt.Sprintf("summary_pdf/%s/%s.pdf", summary.UserID, summary.ID)
		if upErr := s.bucket.UploadFile(ctx, key, "application/pdf", bytes.NewReader(pdfBytes)); upErr != nil {
			log.Warn("Failed to upload summary PDF to bucket", "error", upErr)
		} else {
			updates["pdf_key"] = key
			updates["pdf_url"] = s.bucket.GetPublicURL(key)
		}
	}
	if err := s.summaryRepo.UpdateFields(ctx, nil, summary.ID, updates); err != nil {
		fail("persist", fmt.Errorf("Failed to persist summary: %w", err))
		return
	}

	rows, err := s.summaryRepo.GetByIDs(ctx, nil, []uuid.UUID{summary.ID})
	if err == nil && len(rows) == 1 {
		s.summaryNotifier.SummaryCompleted(summary.UserID, rows[0])
	} else {
		s.summaryNotifier.SummaryCompleted(summary.UserID, summary)
	}
	log.Info("Summary completed", "pdf_bytes", len(pdfBytes))
}

// collectMaterialText fetches every material's text and joins them with a
// per-file header, in material order. inlineOnly reports whether every
// readable ref carried inline text (the uploaded-questions path).
func (s *solverService) collectMaterialText(ctx context.Context, userID uuid.UUID, refs []types.MaterialRef) (string, bool, error) {
	texts := make([]string, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			text, err := s.drive.FetchMaterialText(gctx, userID, ref)
			if err != nil {
				return err
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", false, err
	}

	var out strings.Builder
	inlineOnly := true
	for i, ref := range refs {
		if strings.TrimSpace(texts[i]) == "" {
			continue
		}
		if ref.InlineText == "" {
			inlineOnly = false
		}
		title := ref.Title
		if title == "" {
			title = "material"
		}
		fmt.Fprintf(&out, "\n\n=== %s ===\n%s", title, texts[i])
	}
	return strings.TrimSpace(out.String()), inlineOnly, nil
}

func (s *solverService) logLLMCall(ctx context.Context, userID, contextID uuid.UUID, callType, prompt string, result *GeminiResult, callErr error) {
	row := &types.LLMCallLog{
		UserID:    &userID,
		ContextID: &contextID,
		CallType:  callType,
		Model:     s.gemini.Model(),
		Prompt:    prompt,
		Success:   callErr == nil,
	}
	if callErr != nil {
		row.Error = callErr.Error()
	}
	if result != nil {
		row.Response = result.Text
		if usage, mErr := json.Marshal(result.Usage); mErr == nil {
			row.Usage = usage
		}
	}
	if _, err := s.llmLogRepo.Create(ctx, nil, []*types.LLMCallLog{row}); err != nil {
		s.log.Warn("Failed to record llm call", "error", err)
	}
}
