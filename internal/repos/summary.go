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

type SummaryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, summaries []*types.Summary) ([]*types.Summary, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Summary, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Summary, error)
	ClaimNextRunnable(ctx context.Context, tx *gorm.DB, staleProcessing time.Duration) (*types.Summary, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type summaryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSummaryRepo(db *gorm.DB, baseLog *logger.Logger) SummaryRepo {
	return &summaryRepo{db: db, log: baseLog.With("repo", "SummaryRepo")}
}

func (r *summaryRepo) Create(ctx context.Context, tx *gorm.DB, summaries []*types.Summary) ([]*types.Summary, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(summaries) == 0 {
		return []*types.Summary{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&summaries).Error; err != nil {
		return nil, err
	}
	return summaries, nil
}

func (r *summaryRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Summary, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Summary
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

func (r *summaryRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Summary, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Summary
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

func (r *summaryRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, staleProcessing time.Duration) (*types.Summary, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	now := time.Now()
	staleCutoff := now.Add(-staleProcessing)

	var claimed *types.Summary

	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var summary types.Summary

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

		qErr := q.First(&summary).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}

		uErr := txx.Model(&types.Summary{}).
			Where("id = ?", summary.ID).
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

		summary.Attempts++
		claimed = &summary
		return nil
	})

	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *summaryRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Summary{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *summaryRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.Summary{}).
		Where("id = ? AND status = ?", id, types.SolutionStatusProcessing).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}

func (r *summaryRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.Summary{}).Error
}
