package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/requestdata"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/services"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/types"
)

// =========================
// Stubs
// =========================

type stubSolverService struct {
	enqueuedCourseID     string
	enqueuedCourseWorkID string
	uploadFileName       string
	uploadData           []byte
	err                  error
}

func (s *stubSolverService) EnqueueFromCourseWork(_ context.Context, userID uuid.UUID, courseID, courseWorkID string) (*types.Solution, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.enqueuedCourseID = courseID
	s.enqueuedCourseWorkID = courseWorkID
	return &types.Solution{
		ID:           uuid.New(),
		UserID:       userID,
		CourseID:     courseID,
		CourseWorkID: courseWorkID,
		Status:       types.SolutionStatusProcessing,
	}, nil
}

func (s *stubSolverService) EnqueueFromUpload(_ context.Context, userID uuid.UUID, title, fileName, mimeType string, data []byte) (*types.Solution, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.uploadFileName = fileName
	s.uploadData = data
	return &types.Solution{
		ID:     uuid.New(),
		UserID: userID,
		Title:  title,
		Status: types.SolutionStatusProcessing,
	}, nil
}

func (s *stubSolverService) EnqueueSummary(_ context.Context, _ uuid.UUID, _, _ string) (*types.Summary, error) {
	return nil, fmt.Errorf("not used")
}

func (s *stubSolverService) StartWorker(_ context.Context) {}

type stubSolutionService struct {
	solution *types.Solution
	status   *services.SolutionStatus
	pdfTitle string
	pdfData  []byte
	deleted  []uuid.UUID
	err      error
}

func (s *stubSolutionService) List(_ context.Context) ([]*types.Solution, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.solution == nil {
		return nil, nil
	}
	return []*types.Solution{s.solution}, nil
}

func (s *stubSolutionService) Get(_ context.Context, _ uuid.UUID) (*types.Solution, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.solution, nil
}

func (s *stubSolutionService) GetStatus(_ context.Context, _ uuid.UUID) (*services.SolutionStatus, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.status, nil
}

func (s *stubSolutionService) GetPDF(_ context.Context, _ uuid.UUID) (string, []byte, error) {
	if s.err != nil {
		return "", nil, s.err
	}
	return s.pdfTitle, s.pdfData, nil
}

func (s *stubSolutionService) GetLatestForCourseWork(_ context.Context, _, _ string) (*types.Solution, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.solution, nil
}

func (s *stubSolutionService) Delete(_ context.Context, id uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, id)
	return nil
}

// =========================
// Harness
// =========================

func withTestUser(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := requestdata.WithRequestData(c.Request.Context(), &requestdata.RequestData{UserID: userID})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func newSolutionTestRouter(userID uuid.UUID, solver *stubSolverService, solutions *stubSolutionService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewSolutionHandler(solver, solutions)

	api := r.Group("/api", withTestUser(userID))
	api.POST("/solutions", h.Create)
	api.POST("/solutions/upload", h.CreateFromUpload)
	api.GET("/solutions", h.List)
	api.GET("/solutions/latest", h.GetLatestForCourseWork)
	api.GET("/solutions/:id", h.Get)
	api.GET("/solutions/:id/status", h.GetStatus)
	api.GET("/solutions/:id/pdf", h.GetPDF)
	api.DELETE("/solutions/:id", h.Delete)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// =========================
// Tests
// =========================

func TestSolutionCreate(t *testing.T) {
	solver := &stubSolverService{}
	r := newSolutionTestRouter(uuid.New(), solver, &stubSolutionService{})

	w := doJSON(t, r, http.MethodPost, "/api/solutions", gin.H{"course_id": "c1", "course_work_id": "cw1"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status: want 202 got %d body=%s", w.Code, w.Body.String())
	}
	if solver.enqueuedCourseID != "c1" || solver.enqueuedCourseWorkID != "cw1" {
		t.Fatalf("enqueue args: %q %q", solver.enqueuedCourseID, solver.enqueuedCourseWorkID)
	}

	var resp struct {
		Solution types.Solution `json:"solution"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Solution.Status != types.SolutionStatusProcessing {
		t.Fatalf("solution status: got %q", resp.Solution.Status)
	}
}

func TestSolutionCreateMissingIDs(t *testing.T) {
	r := newSolutionTestRouter(uuid.New(), &stubSolverService{}, &stubSolutionService{})

	for _, body := range []gin.H{
		{},
		{"course_id": "c1"},
		{"course_work_id": "cw1"},
	} {
		w := doJSON(t, r, http.MethodPost, "/api/solutions", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %v: want 400 got %d", body, w.Code)
		}
	}
}

func TestSolutionCreateEnqueueError(t *testing.T) {
	solver := &stubSolverService{err: fmt.Errorf("course work not found")}
	r := newSolutionTestRouter(uuid.New(), solver, &stubSolutionService{})

	w := doJSON(t, r, http.MethodPost, "/api/solutions", gin.H{"course_id": "c1", "course_work_id": "cw1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: want 400 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "course work not found") {
		t.Fatalf("error not surfaced: %s", w.Body.String())
	}
}

func TestSolutionCreateFromUpload(t *testing.T) {
	solver := &stubSolverService{}
	r := newSolutionTestRouter(uuid.New(), solver, &stubSolutionService{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "quiz.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte("1) What is inertia?\n")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.WriteField("title", "My quiz"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/solutions/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status: want 202 got %d body=%s", w.Code, w.Body.String())
	}
	if solver.uploadFileName != "quiz.txt" {
		t.Fatalf("file name: got %q", solver.uploadFileName)
	}
	if string(solver.uploadData) != "1) What is inertia?\n" {
		t.Fatalf("file data: got %q", solver.uploadData)
	}
}

func TestSolutionCreateFromUploadMissingFile(t *testing.T) {
	r := newSolutionTestRouter(uuid.New(), &stubSolverService{}, &stubSolutionService{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", "no file here")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/solutions/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: want 400 got %d", w.Code)
	}
}

func TestSolutionGetStatus(t *testing.T) {
	id := uuid.New()
	now := time.Now()
	solutions := &stubSolutionService{
		status: &services.SolutionStatus{
			ID:          id,
			Status:      types.SolutionStatusCompleted,
			HasPDF:      true,
			Attempts:    1,
			CompletedAt: &now,
			CreatedAt:   now,
		},
	}
	r := newSolutionTestRouter(uuid.New(), &stubSolverService{}, solutions)

	w := doJSON(t, r, http.MethodGet, "/api/solutions/"+id.String()+"/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: want 200 got %d", w.Code)
	}

	var got services.SolutionStatus
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if got.ID != id || got.Status != types.SolutionStatusCompleted || !got.HasPDF {
		t.Fatalf("unexpected status payload: %+v", got)
	}
}

func TestSolutionGetStatusBadID(t *testing.T) {
	r := newSolutionTestRouter(uuid.New(), &stubSolverService{}, &stubSolutionService{})
	w := doJSON(t, r, http.MethodGet, "/api/solutions/not-a-uuid/status", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: want 400 got %d", w.Code)
	}
}

func TestSolutionGetPDF(t *testing.T) {
	solutions := &stubSolutionService{
		pdfTitle: "Solutions for physics: week 1?",
		pdfData:  []byte("%PDF-1.4 fake"),
	}
	r := newSolutionTestRouter(uuid.New(), &stubSolverService{}, solutions)

	w := doJSON(t, r, http.MethodGet, "/api/solutions/"+uuid.New().String()+"/pdf", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: want 200 got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type: got %q", ct)
	}
	cd := w.Header().Get("Content-Disposition")
	if !strings.Contains(cd, "attachment") || strings.ContainsAny(cd, "?:") {
		t.Fatalf("content disposition not sanitized: %q", cd)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("pdf body not returned")
	}
}

func TestSolutionGetPDFNotReady(t *testing.T) {
	solutions := &stubSolutionService{err: fmt.Errorf("solution pdf is not ready")}
	r := newSolutionTestRouter(uuid.New(), &stubSolverService{}, solutions)

	w := doJSON(t, r, http.MethodGet, "/api/solutions/"+uuid.New().String()+"/pdf", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status: want 404 got %d", w.Code)
	}
}

func TestSolutionGetLatest(t *testing.T) {
	solutions := &stubSolutionService{solution: &types.Solution{ID: uuid.New(), CourseID: "c1", CourseWorkID: "cw1"}}
	r := newSolutionTestRouter(uuid.New(), &stubSolverService{}, solutions)

	w := doJSON(t, r, http.MethodGet, "/api/solutions/latest?course_id=c1&course_work_id=cw1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: want 200 got %d", w.Code)
	}

	// missing query params
	w = doJSON(t, r, http.MethodGet, "/api/solutions/latest?course_id=c1", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: want 400 got %d", w.Code)
	}
}

func TestSolutionGetLatestNone(t *testing.T) {
	r := newSolutionTestRouter(uuid.New(), &stubSolverService{}, &stubSolutionService{})

	w := doJSON(t, r, http.MethodGet, "/api/solutions/latest?course_id=c1&course_work_id=cw1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: want 200 got %d", w.Code)
	}
	var resp struct {
		Solution *types.Solution `json:"solution"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Solution != nil {
		t.Fatalf("want null solution, got %+v", resp.Solution)
	}
}

func TestSolutionDelete(t *testing.T) {
	solutions := &stubSolutionService{}
	r := newSolutionTestRouter(uuid.New(), &stubSolverService{}, solutions)

	id := uuid.New()
	w := doJSON(t, r, http.MethodDelete, "/api/solutions/"+id.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: want 200 got %d", w.Code)
	}
	if len(solutions.deleted) != 1 || solutions.deleted[0] != id {
		t.Fatalf("delete not forwarded: %v", solutions.deleted)
	}
}

func TestSafeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Solutions for physics.pdf", "Solutions_for_physics.pdf"},
		{"a/b\\c:d", "a_b_c_d"},
		{"  spaced   out  ", "spaced_out"},
		{"", "untitled"},
		{strings.Repeat("x", 200), strings.Repeat("x", 140)},
	}
	for _, tc := range cases {
		if got := safeFilename(tc.in); got != tc.want {
			t.Fatalf("safeFilename(%q): want %q got %q", tc.in, tc.want, got)
		}
	}
}
