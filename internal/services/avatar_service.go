package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/policy"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/repository"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/storage"
	"github.com/google/uuid"
)

var allowedImageExts = map[string]bool{
	"jpeg": true, "jpg": true, "png": true, "gif": true,
	"bmp": true, "tiff": true, "svg": true, "webp": true,
}

// ImageHost stores and removes avatar images.
type ImageHost interface {
	Upload(ctx context.Context, localPath string, opts storage.UploadOptions) (*storage.UploadResult, error)
	Delete(ctx context.Context, publicID string) error
}

// AvatarFile is an uploaded file as received from the client.
type AvatarFile struct {
	Name    string
	Content io.Reader
}

type AvatarConfig struct {
	Width  int
	Height int
	Crop   string
	TmpDir string
}

type AvatarService struct {
	store  repository.AccountStore
	host   ImageHost
	folder func(appID string) string
	cfg    AvatarConfig
	logger *slog.Logger
}

func NewAvatarService(store repository.AccountStore, host ImageHost, folder func(string) string, cfg AvatarConfig, logger *slog.Logger) *AvatarService {
	if cfg.Crop == "" {
		cfg.Crop = "fit"
	}
	if cfg.TmpDir == "" {
		cfg.TmpDir = os.TempDir()
	}
	return &AvatarService{store: store, host: host, folder: folder, cfg: cfg, logger: logger}
}

// Upload validates the file, hands it to the image host and persists the
// returned descriptor. Nothing is stored if the host fails.
func (s *AvatarService) Upload(ctx context.Context, appID string, actor *models.Account, targetID uuid.UUID, file *AvatarFile) (*models.Account, error) {
	target, err := s.authorize(ctx, appID, actor, targetID)
	if err != nil {
		return nil, err
	}
	if file == nil || file.Content == nil {
		return nil, badRequest("no file uploaded")
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(file.Name), "."))
	if !allowedImageExts[ext] {
		return nil, badRequest("unsupported image type")
	}

	tmpPath, err := s.spool(file.Content, ext)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmpPath)

	result, err := s.host.Upload(ctx, tmpPath, storage.UploadOptions{
		Folder: s.folder(appID),
		Width:  s.cfg.Width,
		Height: s.cfg.Height,
		Crop:   s.cfg.Crop,
	})
	if err != nil {
		s.logger.Error("avatar upload failed", "app_id", appID, "account_id", targetID.String(), "action", "avatar_upload", "error", err)
		return nil, upstream("error uploading image", err)
	}

	updated, err := s.store.Update(ctx, appID, targetID, repository.Patch{Avatar: &models.Avatar{
		URL:       result.URL,
		PublicID:  result.PublicID,
		SecureURL: result.SecureURL,
		Width:     result.Width,
		Height:    result.Height,
		Format:    result.Format,
	}})
	if err != nil {
		return nil, storeError(err)
	}

	if prev := target.AvatarInfo(); prev != nil && prev.PublicID != "" && prev.PublicID != result.PublicID {
		s.discard(ctx, appID, targetID, prev.PublicID)
	}
	return updated.Sanitized(), nil
}

// discard removes a replaced image. Failures only leave an orphaned object,
// so they are logged and not returned.
func (s *AvatarService) discard(ctx context.Context, appID string, targetID uuid.UUID, publicID string) {
	err := s.host.Delete(ctx, publicID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("previous avatar not removed",
			"app_id", appID,
			"account_id", targetID.String(),
			"action", "avatar_replace",
			"public_id", publicID,
			"error", err,
		)
	}
}

// Delete removes the stored image, if any, and clears the descriptor. An
// image already gone from the host is not an error.
func (s *AvatarService) Delete(ctx context.Context, appID string, actor *models.Account, targetID uuid.UUID) (*models.Account, error) {
	target, err := s.authorize(ctx, appID, actor, targetID)
	if err != nil {
		return nil, err
	}

	if av := target.AvatarInfo(); av != nil && av.PublicID != "" {
		err := s.host.Delete(ctx, av.PublicID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("avatar delete failed", "app_id", appID, "account_id", targetID.String(), "action", "avatar_delete", "error", err)
			return nil, upstream("error deleting image", err)
		}
	}

	updated, err := s.store.Update(ctx, appID, targetID, repository.Patch{
		Unset: []repository.Field{repository.FieldAvatar},
	})
	if err != nil {
		return nil, storeError(err)
	}
	return updated.Sanitized(), nil
}

// authorize applies the avatar policy and loads the target account.
func (s *AvatarService) authorize(ctx context.Context, appID string, actor *models.Account, targetID uuid.UUID) (*models.Account, error) {
	if err := authorize(actor, policy.CanMutateAvatarOf(actor, targetID)); err != nil {
		return nil, err
	}
	target, err := s.store.FindByID(ctx, appID, targetID)
	if err != nil {
		return nil, storeError(err)
	}
	return target, nil
}

// spool copies the upload to a temp file so the host can read it by path.
func (s *AvatarService) spool(r io.Reader, ext string) (string, error) {
	f, err := os.CreateTemp(s.cfg.TmpDir, "avatar-*."+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return f.Name(), nil
}
