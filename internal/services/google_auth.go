package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/logger"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/repos"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/types"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/utils"
)

// GoogleAuthService keeps the per-user Classroom/Drive credentials. The
// frontend runs the consent flow and posts the resulting tokens here; the
// backend refreshes access tokens as needed and writes refreshed values back.
type GoogleAuthService interface {
	SaveTokens(ctx context.Context, userID uuid.UUID, accessToken, refreshToken, tokenType string, expiresAt time.Time) error
	TokenSource(ctx context.Context, userID uuid.UUID) (oauth2.TokenSource, error)
	Status(ctx context.Context, userID uuid.UUID) (*types.GoogleToken, error)
	Disconnect(ctx context.Context, userID uuid.UUID) error
}

type googleAuthService struct {
	db        *gorm.DB
	log       *logger.Logger
	tokenRepo repos.GoogleTokenRepo
	oauthCfg  *oauth2.Config
}

func NewGoogleAuthService(db *gorm.DB, log *logger.Logger, tokenRepo repos.GoogleTokenRepo) GoogleAuthService {
	serviceLog := log.With("service", "GoogleAuthService")
	cfg := &oauth2.Config{
		ClientID:     utils.GetEnv("GOOGLE_CLIENT_ID", "", log),
		ClientSecret: utils.GetEnv("GOOGLE_CLIENT_SECRET", "", log),
		Endpoint:     google.Endpoint,
	}
	if cfg.ClientID == "" {
		serviceLog.Warn("GOOGLE_CLIENT_ID not set; Google token refresh will fail")
	}
	return &googleAuthService{
		db:        db,
		log:       serviceLog,
		tokenRepo: tokenRepo,
		oauthCfg:  cfg,
	}
}

func (gs *googleAuthService) SaveTokens(ctx context.Context, userID uuid.UUID, accessToken, refreshToken, tokenType string, expiresAt time.Time) error {
	if userID == uuid.Nil {
		return fmt.Errorf("not authenticated")
	}
	if accessToken == "" {
		return fmt.Errorf("missing access token")
	}
	if tokenType == "" {
		tokenType = "Bearer"
	}
	row := &types.GoogleToken{
		ID:           uuid.New(),
		UserID:       userID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    tokenType,
		ExpiresAt:    expiresAt,
		UpdatedAt:    time.Now(),
	}
	return gs.tokenRepo.Upsert(ctx, nil, row)
}

func (gs *googleAuthService) Status(ctx context.Context, userID uuid.UUID) (*types.GoogleToken, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated")
	}
	return gs.tokenRepo.GetByUserID(ctx, nil, userID)
}

func (gs *googleAuthService) Disconnect(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return fmt.Errorf("not authenticated")
	}
	return gs.tokenRepo.DeleteByUserID(ctx, nil, userID)
}

func (gs *googleAuthService) TokenSource(ctx context.Context, userID uuid.UUID) (oauth2.TokenSource, error) {
	row, err := gs.tokenRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("Failed to load google token: %w", err)
	}
	if row == nil {
		return nil, fmt.Errorf("google account not connected")
	}

	tok := &oauth2.Token{
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
		TokenType:    row.TokenType,
		Expiry:       row.ExpiresAt,
	}
	base := gs.oauthCfg.TokenSource(ctx, tok)
	return &persistingTokenSource{
		svc:    gs,
		ctx:    ctx,
		rowID:  row.ID,
		base:   oauth2.ReuseTokenSource(tok, base),
		lastAT: row.AccessToken,
	}, nil
}

// persistingTokenSource writes refreshed access tokens back to postgres so
// the next request does not need another refresh round trip.
type persistingTokenSource struct {
	svc    *googleAuthService
	ctx    context.Context
	rowID  uuid.UUID
	base   oauth2.TokenSource
	mu     sync.Mutex
	lastAT string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.lastAT {
		updates := map[string]interface{}{
			"access_token": tok.AccessToken,
			"expires_at":   tok.Expiry,
			"updated_at":   time.Now(),
		}
		if tok.RefreshToken != "" {
			updates["refresh_token"] = tok.RefreshToken
		}
		if uErr := p.svc.tokenRepo.UpdateFields(p.ctx, nil, p.rowID, updates); uErr != nil {
			p.svc.log.Warn("Failed to persist refreshed google token", "error", uErr)
		}
		p.lastAT = tok.AccessToken
	}
	return tok, nil
}
