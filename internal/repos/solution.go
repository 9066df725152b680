package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/logger"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/types"
)

type SolutionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, solutions []*types.Solution) ([]*types.Solution, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Solution, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Solution, error)
	GetLatestByCourseWork(ctx context.Context, tx *gorm.DB, userID uuid.UUID, courseID, courseWorkID string) (*types.Solution, error)

	// Claims the next solution the worker may pick up:
	// - status=processing and never locked
	// - OR status=processing with a stale heartbeat (crash recovery).
	// Terminal rows are never claimable, so the processing -> {completed,failed}
	// transition happens at most once per row.
	ClaimNextRunnable(ctx context.Context, tx *gorm.DB, staleProcessing time.Duration) (*types.Solution, error)

	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type solutionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSolutionRepo(db *gorm.DB, baseLog *logger.Logger) SolutionRepo {
	return &solutionRepo{db: db, log: baseLog.With("repo", "SolutionRepo")}
}

func (r *solutionRepo) Create(ctx context.Context, tx *gorm.DB, solutions []*types.Solution) ([]*types.Solution, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(solutions) == 0 {
		return []*types.Solution{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&solutions).Error; err != nil {
		return nil, err
	}
	return solutions, nil
}

func (r *solutionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Solution, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Solution
	if len(ids) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *solutionRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Solution, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Solution
	if userID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Omit("pdf_data").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *solutionRepo) GetLatestByCourseWork(ctx context.Context, tx *gorm.DB, userID uuid.UUID, courseID, courseWorkID string) (*types.Solution, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || courseID == "" || courseWorkID == "" {
		return nil, nil
	}
	var solution types.Solution
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND course_id = ? AND course_work_id = ?", userID, courseID, courseWorkID).
		Order("created_at DESC").
		Limit(1).
		Find(&solution).Error
	if err != nil {
		return nil, err
	}
	if solution.ID == uuid.Nil {
		return nil, nil
	}
	return &solution, nil
}

func (r *solutionRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, staleProcessing time.Duration) (*types.Solution, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	now := time.Now()
	staleCutoff := now.Add(-staleProcessing)

	var claimed *types.Solution

	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var solution types.Solution

		q := txx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
        status = ?
        AND (
          locked_at IS NULL
          OR (heartbeat_at IS NOT NULL AND heartbeat_at < ?)
        )
      `, types.SolutionStatusProcessing, staleCutoff).
			Order("created_at ASC")

		qErr := q.First(&solution).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}

		uErr := txx.Model(&types.Solution{}).
			Where("id = ?", solution.ID).
			Updates(map[string]interface{}{
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"started_at":   now,
				"updated_at":   now,
			}).Error
		if uErr != nil {
			return uErr
		}

		solution.Attempts++
		claimed = &solution
		return nil
	})

	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *solutionRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(ctx).
		Model(&types.Solution{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *solutionRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.Solution{}).
		Where("id = ? AND status = ?", id, types.SolutionStatusProcessing).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}

func (r *solutionRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.Solution{}).Error
}
