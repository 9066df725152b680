package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/logger"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/types"
)

type LLMCallLogRepo interface {
	Create(ctx context.Context, tx *gorm.DB, logs []*types.LLMCallLog) ([]*types.LLMCallLog, error)
	GetByContextIDs(ctx context.Context, tx *gorm.DB, contextIDs []uuid.UUID) ([]*types.LLMCallLog, error)
}

type llmCallLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLLMCallLogRepo(db *gorm.DB, baseLog *logger.Logger) LLMCallLogRepo {
	return &llmCallLogRepo{db: db, log: baseLog.With("repo", "LLMCallLogRepo")}
}

func (r *llmCallLogRepo) Create(ctx context.Context, tx *gorm.DB, logs []*types.LLMCallLog) ([]*types.LLMCallLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(logs) == 0 {
		return []*types.LLMCallLog{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *llmCallLogRepo) GetByContextIDs(ctx context.Context, tx *gorm.DB, contextIDs []uuid.UUID) ([]*types.LLMCallLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.LLMCallLog
	if len(contextIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("context_id IN ?", contextIDs).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
