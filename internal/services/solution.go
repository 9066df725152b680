package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/logger"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/repos"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/requestdata"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/types"
)

// SolutionStatus is the polling payload for an in-flight or finished
// solution. Clients poll this until the status leaves processing.
type SolutionStatus struct {
	ID          uuid.UUID  `json:"id"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	HasPDF      bool       `json:"has_pdf"`
	Attempts    int        `json:"attempts"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// SolutionService is the owner-scoped read/delete side of solutions. Every
// lookup resolves the caller from request data and refuses rows that belong
// to someone else.
type SolutionService interface {
	List(ctx context.Context) ([]*types.Solution, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Solution, error)
	GetStatus(ctx context.Context, id uuid.UUID) (*SolutionStatus, error)
	GetPDF(ctx context.Context, id uuid.UUID) (string, []byte, error)
	GetLatestForCourseWork(ctx context.Context, courseID, courseWorkID string) (*types.Solution, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type solutionService struct {
	db           *gorm.DB
	log          *logger.Logger
	solutionRepo repos.SolutionRepo
}

func NewSolutionService(db *gorm.DB, log *logger.Logger, solutionRepo repos.SolutionRepo) SolutionService {
	return &solutionService{
		db:           db,
		log:          log.With("service", "SolutionService"),
		solutionRepo: solutionRepo,
	}
}

func callerID(ctx context.Context) (uuid.UUID, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("not authenticated")
	}
	return rd.UserID, nil
}

func (ss *solutionService) List(ctx context.Context) ([]*types.Solution, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	return ss.solutionRepo.ListByUserID(ctx, nil, userID)
}

func (ss *solutionService) getOwned(ctx context.Context, id uuid.UUID) (*types.Solution, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := ss.solutionRepo.GetByIDs(ctx, nil, []uuid.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("Failed to get solution: %w", err)
	}
	if len(rows) == 0 || rows[0].UserID != userID {
		return nil, fmt.Errorf("solution not found")
	}
	return rows[0], nil
}

func (ss *solutionService) Get(ctx context.Context, id uuid.UUID) (*types.Solution, error) {
	return ss.getOwned(ctx, id)
}

func (ss *solutionService) GetStatus(ctx context.Context, id uuid.UUID) (*SolutionStatus, error) {
	solution, err := ss.getOwned(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SolutionStatus{
		ID:          solution.ID,
		Status:      solution.Status,
		Error:       solution.Error,
		HasPDF:      solution.HasPDF(),
		Attempts:    solution.Attempts,
		StartedAt:   solution.StartedAt,
		CompletedAt: solution.CompletedAt,
		CreatedAt:   solution.CreatedAt,
	}, nil
}

func (ss *solutionService) GetPDF(ctx context.Context, id uuid.UUID) (string, []byte, error) {
	solution, err := ss.getOwned(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if solution.Status != types.SolutionStatusCompleted {
		return "", nil, fmt.Errorf("solution is %s, no PDF yet", solution.Status)
	}
	if !solution.HasPDF() {
		return "", nil, fmt.Errorf("solution has no PDF")
	}
	return solution.Title, solution.PDFData, nil
}

func (ss *solutionService) GetLatestForCourseWork(ctx context.Context, courseID, courseWorkID string) (*types.Solution, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	return ss.solutionRepo.GetLatestByCourseWork(ctx, nil, userID, courseID, courseWorkID)
}

func (ss *solutionService) Delete(ctx context.Context, id uuid.UUID) error {
	solution, err := ss.getOwned(ctx, id)
	if err != nil {
		return err
	}
	if err := ss.solutionRepo.DeleteByID(ctx, nil, solution.ID); err != nil {
		return fmt.Errorf("Failed to delete solution: %w", err)
	}
	return nil
}
