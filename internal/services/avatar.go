package services

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image/color"
	"os"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"gorm.io/gorm"

	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/logger"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/repos"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/types"
)

const avatarSize = 256

// Default background palette, used when AVATAR_FONT/custom styling is absent.
var avatarPalette = []color.NRGBA{
	{R: 0x3B, G: 0x82, B: 0xF6, A: 0xFF},
	{R: 0x10, G: 0xB9, B: 0x81, A: 0xFF},
	{R: 0xF5, G: 0x9E, B: 0x0B, A: 0xFF},
	{R: 0xEF, G: 0x44, B: 0x44, A: 0xFF},
	{R: 0x8B, G: 0x5C, B: 0xF6, A: 0xFF},
	{R: 0xEC, G: 0x48, B: 0x99, A: 0xFF},
}

type AvatarService interface {
	CreateAndUploadUserAvatar(ctx context.Context, tx *gorm.DB, user *types.User) error
	GenerateUserAvatar(user *types.User) (bytes.Buffer, error)
}

type avatarService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	bucketService BucketService
	fontFace      font.Face
}

func NewAvatarService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, bucketService BucketService) (AvatarService, error) {
	serviceLog := log.With("service", "AvatarService")

	face := font.Face(basicfont.Face7x13)
	if fontPath := strings.TrimSpace(os.Getenv("AVATAR_FONT")); fontPath != "" {
		loaded, err := loadFontFace(fontPath, 110)
		if err != nil {
			return nil, fmt.Errorf("could not load avatar font: %w", err)
		}
		face = loaded
	} else {
		serviceLog.Debug("AVATAR_FONT not set, using builtin bitmap face")
	}

	return &avatarService{
		db:            db,
		log:           serviceLog,
		userRepo:      userRepo,
		bucketService: bucketService,
		fontFace:      face,
	}, nil
}

func loadFontFace(path string, points float64) (font.Face, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	parsed, err := truetype.Parse(raw)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(parsed, &truetype.Options{Size: points}), nil
}

func (as *avatarService) CreateAndUploadUserAvatar(ctx context.Context, tx *gorm.DB, user *types.User) error {
	buf, err := as.GenerateUserAvatar(user)
	if err != nil {
		return err
	}
	if as.bucketService == nil {
		return nil
	}

	key := fmt.Sprintf("user_avatar/%s/%d.png", user.ID.String(), time.Now().UnixNano())
	if err := as.bucketService.UploadFile(ctx, key, "image/png", bytes.NewReader(buf.Bytes())); err != nil {
		return fmt.Errorf("failed to upload user avatar: %w", err)
	}
	user.AvatarBucketKey = key
	user.AvatarURL = as.bucketService.GetPublicURL(key)
	return nil
}

func (as *avatarService) GenerateUserAvatar(user *types.User) (bytes.Buffer, error) {
	var buf bytes.Buffer
	if user == nil {
		return buf, fmt.Errorf("no user given")
	}

	bg := avatarPalette[paletteIndex(user.ID.String(), len(avatarPalette))]

	dc := gg.NewContext(avatarSize, avatarSize)
	dc.SetColor(bg)
	dc.DrawCircle(avatarSize/2, avatarSize/2, avatarSize/2)
	dc.Fill()

	dc.SetFontFace(as.fontFace)
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(initials(user), avatarSize/2, avatarSize/2, 0.5, 0.5)

	if err := dc.EncodePNG(&buf); err != nil {
		return buf, fmt.Errorf("failed to encode avatar png: %w", err)
	}
	return buf, nil
}

func initials(user *types.User) string {
	out := ""
	if user.FirstName != "" {
		out += strings.ToUpper(user.FirstName[:1])
	}
	if user.LastName != "" {
		out += strings.ToUpper(user.LastName[:1])
	}
	if out == "" && user.Email != "" {
		out = strings.ToUpper(user.Email[:1])
	}
	return out
}

func paletteIndex(seed string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	return int(h.Sum32() % uint32(n))
}
