package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/logger"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/types"
)

type GoogleTokenRepo interface {
	// Upsert keyed on user_id; each user has at most one linked Google account.
	Upsert(ctx context.Context, tx *gorm.DB, token *types.GoogleToken) error
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.GoogleToken, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	DeleteByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type googleTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGoogleTokenRepo(db *gorm.DB, baseLog *logger.Logger) GoogleTokenRepo {
	return &googleTokenRepo{db: db, log: baseLog.With("repo", "GoogleTokenRepo")}
}

func (r *googleTokenRepo) Upsert(ctx context.Context, tx *gorm.DB, token *types.GoogleToken) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if token == nil || token.UserID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"access_token", "refresh_token", "token_type", "expires_at", "updated_at",
			}),
		}).
		Create(token).Error
}

func (r *googleTokenRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.GoogleToken, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	var token types.GoogleToken
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&token).Error
	if err != nil {
		return nil, err
	}
	if token.ID == uuid.Nil {
		return nil, nil
	}
	return &token, nil
}

func (r *googleTokenRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.GoogleToken{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *googleTokenRepo) DeleteByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&types.GoogleToken{}).Error
}
