package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/logger"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/normalization"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/repos"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/requestdata"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/types"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/utils"
)

type AuthService interface {
	RegisterUser(ctx context.Context, user *types.User) error
	LoginUser(ctx context.Context, email, password string) (string, string, error)
	RefreshUser(ctx context.Context) (string, string, error)
	LogoutUser(ctx context.Context) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	avatarService AvatarService
	userTokenRepo repos.UserTokenRepo
	jwtSecretKey  string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	avatarService AvatarService,
	userTokenRepo repos.UserTokenRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	return &authService{
		db:            db,
		log:           log.With("service", "AuthService"),
		userRepo:      userRepo,
		avatarService: avatarService,
		userTokenRepo: userTokenRepo,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (as *authService) RegisterUser(ctx context.Context, user *types.User) error {
	utils.NormalizeUserFields(ctx, user)
	if vErr := utils.InputValidation(ctx, "registration", as.userRepo, as.log, user, "", ""); vErr != nil {
		return vErr
	}
	if hErr := utils.HashPassword(ctx, as.log, user); hErr != nil {
		return hErr
	}
	return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user.ID = uuid.New()
		if as.avatarService != nil {
			if err := as.avatarService.CreateAndUploadUserAvatar(ctx, tx, user); err != nil {
				as.log.Warn("Failed to create user avatar", "error", err)
			}
		}
		if _, err := as.userRepo.Create(ctx, tx, []*types.User{user}); err != nil {
			return fmt.Errorf("Failed to create user in postgres: %w", err)
		}
		return nil
	})
}

func (as *authService) LoginUser(ctx context.Context, email, password string) (string, string, error) {
	email = normalization.ParseInputString(email)

	if vErr := utils.InputValidation(ctx, "login", as.userRepo, as.log, nil, email, password); vErr != nil {
		return "", "", vErr
	}

	users, usErr := as.userRepo.GetByEmails(ctx, nil, []string{email})
	if usErr != nil {
		return "", "", fmt.Errorf("Error retrieving user by email: %w", usErr)
	}
	if len(users) == 0 {
		return "", "", fmt.Errorf("Invalid email or password")
	}

	user := users[0]
	if hErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); hErr != nil {
		return "", "", fmt.Errorf("Invalid email or password")
	}

	var accessToken, refreshToken string
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		foundTokens, ftErr := as.userTokenRepo.GetByUserIDs(ctx, tx, []uuid.UUID{user.ID})
		if ftErr != nil {
			return fmt.Errorf("Failed to check user tokens: %w", ftErr)
		}
		staleIDs := make([]uuid.UUID, 0, len(foundTokens))
		for _, t := range foundTokens {
			if t != nil {
				staleIDs = append(staleIDs, t.ID)
			}
		}
		if dErr := as.userTokenRepo.DeleteByIDs(ctx, tx, staleIDs); dErr != nil {
			return fmt.Errorf("Failed to delete stale user tokens: %w", dErr)
		}

		var gErr error
		accessToken, refreshToken, gErr = as.issueTokens(ctx, tx, user)
		return gErr
	})
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (as *authService) RefreshUser(ctx context.Context) (string, string, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil || rd.RefreshToken == "" {
		return "", "", fmt.Errorf("not authenticated")
	}

	token, err := as.userTokenRepo.GetByRefreshToken(ctx, nil, rd.RefreshToken)
	if err != nil {
		return "", "", fmt.Errorf("Failed to look up refresh token: %w", err)
	}
	if token == nil || token.UserID != rd.UserID {
		return "", "", fmt.Errorf("invalid refresh token")
	}

	users, err := as.userRepo.GetByIDs(ctx, nil, []uuid.UUID{rd.UserID})
	if err != nil || len(users) == 0 {
		return "", "", fmt.Errorf("user not found")
	}

	var accessToken, refreshToken string
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if dErr := as.userTokenRepo.DeleteByIDs(ctx, tx, []uuid.UUID{token.ID}); dErr != nil {
			return fmt.Errorf("Failed to rotate refresh token: %w", dErr)
		}
		var gErr error
		accessToken, refreshToken, gErr = as.issueTokens(ctx, tx, users[0])
		return gErr
	})
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (as *authService) LogoutUser(ctx context.Context) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return fmt.Errorf("not authenticated")
	}
	tokens, err := as.userTokenRepo.GetByUserIDs(ctx, nil, []uuid.UUID{rd.UserID})
	if err != nil {
		return fmt.Errorf("Failed to look up user tokens: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(tokens))
	for _, t := range tokens {
		if t != nil {
			ids = append(ids, t.ID)
		}
	}
	return as.userTokenRepo.DeleteByIDs(ctx, nil, ids)
}

func (as *authService) issueTokens(ctx context.Context, tx *gorm.DB, user *types.User) (string, string, error) {
	accessToken, err := as.signToken(user.ID, as.accessTTL)
	if err != nil {
		return "", "", fmt.Errorf("Failed to sign access token: %w", err)
	}
	refreshToken, err := as.signToken(user.ID, as.refreshTTL)
	if err != nil {
		return "", "", fmt.Errorf("Failed to sign refresh token: %w", err)
	}
	row := &types.UserToken{
		UserID:       user.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(as.refreshTTL),
	}
	if _, err := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{row}); err != nil {
		return "", "", fmt.Errorf("Failed to persist user token: %w", err)
	}
	return accessToken, refreshToken, nil
}

func (as *authService) signToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil || !parsed.Valid {
		return ctx, fmt.Errorf("invalid token")
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return ctx, fmt.Errorf("invalid token claims")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid token subject")
	}

	row, err := as.userTokenRepo.GetByAccessToken(ctx, nil, tokenString)
	if err != nil {
		return ctx, fmt.Errorf("Failed to look up token: %w", err)
	}
	refreshToken := ""
	if row != nil {
		refreshToken = row.RefreshToken
	} else {
		// Allow a refresh token to authenticate the /refresh route only;
		// the handler re-validates against the stored row.
		refRow, rErr := as.userTokenRepo.GetByRefreshToken(ctx, nil, tokenString)
		if rErr != nil || refRow == nil {
			return ctx, fmt.Errorf("token revoked")
		}
		refreshToken = refRow.RefreshToken
	}

	rd := &requestdata.RequestData{
		TokenString:  tokenString,
		RefreshToken: refreshToken,
		UserID:       userID,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}
