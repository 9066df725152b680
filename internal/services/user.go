package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/logger"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/repos"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/requestdata"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/types"
)

type UserService interface {
	GetMe(ctx context.Context) (*types.User, error)
}

type userService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo) UserService {
	return &userService{
		db:       db,
		log:      log.With("service", "UserService"),
		userRepo: userRepo,
	}
}

func (us *userService) GetMe(ctx context.Context) (*types.User, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated")
	}
	users, err := us.userRepo.GetByIDs(ctx, nil, []uuid.UUID{rd.UserID})
	if err != nil {
		return nil, fmt.Errorf("Failed to load user: %w", err)
	}
	if len(users) == 0 || users[0] == nil {
		return nil, fmt.Errorf("user not found")
	}
	return users[0], nil
}
