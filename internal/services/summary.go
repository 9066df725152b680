package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/logger"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/repos"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/types"
)

// SummaryService mirrors SolutionService for study-note summaries.
type SummaryService interface {
	List(ctx context.Context) ([]*types.Summary, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Summary, error)
	GetPDF(ctx context.Context, id uuid.UUID) (string, []byte, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type summaryService struct {
	db          *gorm.DB
	log         *logger.Logger
	summaryRepo repos.SummaryRepo
}

func NewSummaryService(db *gorm.DB, log *logger.Logger, summaryRepo repos.SummaryRepo) SummaryService {
	return &summaryService{
		db:          db,
		log:         log.With("service", "SummaryService"),
		summaryRepo: summaryRepo,
	}
}

func (ss *summaryService) List(ctx context.Context) ([]*types.Summary, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	return ss.summaryRepo.ListByUserID(ctx, nil, userID)
}

func (ss *summaryService) getOwned(ctx context.Context, id uuid.UUID) (*types.Summary, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := ss.summaryRepo.GetByIDs(ctx, nil, []uuid.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("Failed to get summary: %w", err)
	}
	if len(rows) == 0 || rows[0].UserID != userID {
		return nil, fmt.Errorf("summary not found")
	}
	return rows[0], nil
}

func (ss *summaryService) Get(ctx context.Context, id uuid.UUID) (*types.Summary, error) {
	return ss.getOwned(ctx, id)
}

func (ss *summaryService) GetPDF(ctx context.Context, id uuid.UUID) (string, []byte, error) {
	summary, err := ss.getOwned(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if summary.Status != types.SolutionStatusCompleted {
		return "", nil, fmt.Errorf("summary is %s, no PDF yet", summary.Status)
	}
	if !summary.HasPDF() {
		return "", nil, fmt.Errorf("summary has no PDF")
	}
	return summary.Title, summary.PDFData, nil
}

func (ss *summaryService) Delete(ctx context.Context, id uuid.UUID) error {
	summary, err := ss.getOwned(ctx, id)
	if err != nil {
		return err
	}
	if err := ss.summaryRepo.DeleteByID(ctx, nil, summary.ID); err != nil {
		return fmt.Errorf("Failed to delete summary: %w", err)
	}
	return nil
}
