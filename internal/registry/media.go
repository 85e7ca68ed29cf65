// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package registry

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/tomtom215/marquee/internal/apperr"
	"github.com/tomtom215/marquee/internal/fanout"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/models"
)

// DefaultMaxUploadBytes caps uploads when Config.MaxUploadBytes is unset.
const DefaultMaxUploadBytes = 512 << 20

// UploadMedia stores the content of r under the upload directory and records
// it as a media entity. The file is written to a temporary name and renamed
// into place so a partial upload is never served.
func (s *Service) UploadMedia(ctx context.Context, originalName string, r io.Reader) (*models.Media, error) {
	if originalName == "" {
		return nil, apperr.E(apperr.ErrValidation, "file name is required")
	}
	if err := os.MkdirAll(s.cfg.UploadDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	m := &models.Media{
		ID:           uuid.New().String(),
		OriginalName: filepath.Base(originalName),
		Type:         models.MediaTypeFromName(originalName),
		UploadedAt:   s.now(),
	}
	m.Filename = m.ID + "." + m.Extension()
	m.URL = s.cfg.PublicURL + "/uploads/" + m.Filename

	limit := s.cfg.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}

	final := filepath.Join(s.cfg.UploadDir, m.Filename)
	size, err := writeAtomic(final, io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if size > limit {
		removeQuietly(ctx, final)
		return nil, apperr.E(apperr.ErrValidation, "file exceeds maximum upload size of %d bytes", limit)
	}
	m.Size = size

	if err := s.store.CreateMedia(ctx, m); err != nil {
		removeQuietly(ctx, final)
		return nil, err
	}

	logging.Ctx(ctx).Info().Str("media_id", m.ID).Str("name", m.OriginalName).Int64("size", m.Size).Msg("Media uploaded")
	s.publish(ctx, fanout.WithActivity(models.ActivityMediaUploaded, "",
		fmt.Sprintf("Media uploaded: %s", m.OriginalName),
		fanout.AnalyticsUpdated()))
	return m, nil
}

// ListMedia returns all media, newest first.
func (s *Service) ListMedia(ctx context.Context) ([]models.Media, error) {
	return s.store.ListMedia(ctx)
}

// UploadDir is where uploaded files are served from.
func (s *Service) UploadDir() string {
	return s.cfg.UploadDir
}

func writeAtomic(path string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	n, err := io.Copy(tmp, r)
	if err != nil {
		return 0, fmt.Errorf("failed to write upload: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("failed to sync upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close upload: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return 0, fmt.Errorf("failed to store upload: %w", err)
	}
	ok = true
	return n, nil
}

func removeQuietly(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("Failed to remove upload")
	}
}
