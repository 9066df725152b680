package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/logger"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/types"
)

const googleAppsPrefix = "application/vnd.google-apps"

// DriveService turns a drive-backed classroom material into plain text.
// Google-native files are exported (docs/slides to text/plain, sheets to
// text/csv); binary uploads are downloaded and run through ExtractText.
type DriveService interface {
	FetchMaterialText(ctx context.Context, userID uuid.UUID, ref types.MaterialRef) (string, error)
}

type driveService struct {
	log        *logger.Logger
	googleAuth GoogleAuthService
}

func NewDriveService(log *logger.Logger, googleAuth GoogleAuthService) DriveService {
	return &driveService{
		log:        log.With("service", "DriveService"),
		googleAuth: googleAuth,
	}
}

func (ds *driveService) newClient(ctx context.Context, userID uuid.UUID) (*drive.Service, error) {
	ts, err := ds.googleAuth.TokenSource(ctx, userID)
	if err != nil {
		return nil, err
	}
	svc, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("Failed to build drive client: %w", err)
	}
	return svc, nil
}

func (ds *driveService) FetchMaterialText(ctx context.Context, userID uuid.UUID, ref types.MaterialRef) (string, error) {
	if ref.InlineText != "" {
		return ref.InlineText, nil
	}
	if ref.DriveFileID == "" {
		// Link/YouTube/form materials carry no extractable text.
		return "", nil
	}

	svc, err := ds.newClient(ctx, userID)
	if err != nil {
		return "", err
	}

	meta, err := svc.Files.Get(ref.DriveFileID).Fields("id", "name", "mimeType").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("Failed to get drive file metadata %s: %w", ref.DriveFileID, err)
	}

	if strings.HasPrefix(meta.MimeType, googleAppsPrefix) {
		exportMime := ""
		switch meta.MimeType {
		case "application/vnd.google-apps.document", "application/vnd.google-apps.presentation":
			exportMime = "text/plain"
		case "application/vnd.google-apps.spreadsheet":
			exportMime = "text/csv"
		default:
			ds.log.Debug("Skipping unsupported google-apps file", "mime", meta.MimeType, "name", meta.Name)
			return "", nil
		}
		resp, err := svc.Files.Export(ref.DriveFileID, exportMime).Context(ctx).Download()
		if err != nil {
			return "", fmt.Errorf("Failed to export drive file %s: %w", meta.Name, err)
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("Failed to read exported file %s: %w", meta.Name, err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	resp, err := svc.Files.Get(ref.DriveFileID).Context(ctx).Download()
	if err != nil {
		return "", fmt.Errorf("Failed to download drive file %s: %w", meta.Name, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("Failed to read drive file %s: %w", meta.Name, err)
	}

	text, err := ExtractText(meta.Name, meta.MimeType, raw)
	if err != nil {
		return "", fmt.Errorf("Failed to extract text from %s: %w", meta.Name, err)
	}
	return text, nil
}
