package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"streamvault/internal/server/database"

	"github.com/google/uuid"
)

// UploadRequest carries one multipart video upload into the service.
type UploadRequest struct {
	CustomID     string
	Title        string
	Description  string
	FolderID     *int
	OriginalName string
	MimeType     string
	Size         int64
	Data         io.Reader
}

// UploadVideo validates and stores an uploaded video: the file goes to disk
// under a generated name, the metadata row to the database. The custom_id
// unique constraint is the authoritative duplicate guard; the lookup before
// the insert is only a fast path. On any failure after the disk write the
// stored file is removed, best-effort.
func (s *LibraryService) UploadVideo(ctx context.Context, req UploadRequest) (*database.Video, error) {
	if !strings.HasPrefix(req.MimeType, "video/") {
		return nil, ErrInvalidFileType
	}
	if req.Size > s.cfg.MaxUploadSize {
		return nil, ErrFileTooLarge
	}

	// Fast-path duplicate check; concurrent uploads with the same custom id
	// are caught again by the unique constraint below.
	if _, err := s.repo.GetVideoByCustomID(ctx, req.CustomID); err == nil {
		return nil, ErrDuplicateCustomID
	} else if !errors.Is(err, database.ErrVideoNotFound) {
		return nil, err
	}

	if req.FolderID != nil {
		if _, err := s.repo.GetFolderByID(ctx, *req.FolderID); err != nil {
			if errors.Is(err, database.ErrFolderNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, err
		}
	}

	filename := uuid.New().String() + sanitizeExt(req.OriginalName)

	written, err := s.store.Save(filename, req.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to store video file: %w", err)
	}

	var metadata []byte
	if req.Description != "" {
		metadata, err = json.Marshal(map[string]string{"description": req.Description})
		if err != nil {
			s.store.Delete(filename)
			return nil, fmt.Errorf("failed to encode metadata: %w", err)
		}
	}

	video := &database.Video{
		CustomID:     req.CustomID,
		Title:        req.Title,
		Filename:     filename,
		OriginalName: sanitizeFilename(req.OriginalName),
		MimeType:     req.MimeType,
		Size:         written,
		FolderID:     req.FolderID,
		Metadata:     metadata,
	}

	created, err := s.repo.CreateVideo(ctx, video)
	if err != nil {
		// Clean up stored file on DB failure
		s.store.Delete(filename)
		if errors.Is(err, database.ErrDuplicateCustomID) {
			return nil, ErrDuplicateCustomID
		}
		return nil, fmt.Errorf("failed to create video record: %w", err)
	}

	slog.Info("video uploaded",
		"id", created.ID,
		"custom_id", created.CustomID,
		"filename", filename,
		"size", written,
	)
	return created, nil
}

// GetVideo returns a video by its internal id.
func (s *LibraryService) GetVideo(ctx context.Context, id int) (*database.Video, error) {
	video, err := s.repo.GetVideoByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrVideoNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}
	return video, nil
}

// ListVideos returns the videos in folderID, or videos outside any folder
// when folderID is nil. Newest first.
func (s *LibraryService) ListVideos(ctx context.Context, folderID *int) ([]*database.Video, error) {
	return s.repo.GetVideosByFolderID(ctx, folderID)
}

// ListAllVideos returns every video, newest first.
func (s *LibraryService) ListAllVideos(ctx context.Context) ([]*database.Video, error) {
	return s.repo.GetAllVideos(ctx)
}

// UpdateVideo applies a partial update, validating the target folder when
// the video is being moved.
func (s *LibraryService) UpdateVideo(ctx context.Context, id int, updates database.VideoUpdate) (*database.Video, error) {
	if updates.SetFolder && updates.FolderID != nil {
		if _, err := s.repo.GetFolderByID(ctx, *updates.FolderID); err != nil {
			if errors.Is(err, database.ErrFolderNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, err
		}
	}

	video, err := s.repo.UpdateVideo(ctx, id, updates)
	if err != nil {
		if errors.Is(err, database.ErrVideoNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}
	return video, nil
}

// DeleteVideo removes a video's file and its metadata row. A missing file
// does not block the row delete.
func (s *LibraryService) DeleteVideo(ctx context.Context, id int) error {
	video, err := s.repo.GetVideoByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrVideoNotFound) {
			return ErrVideoNotFound
		}
		return err
	}

	if err := s.store.Delete(video.Filename); err != nil {
		slog.Error("failed to delete video file", "id", id, "filename", video.Filename, "error", err)
		// Continue with DB deletion even if file deletion fails
	}

	if err := s.repo.DeleteVideo(ctx, id); err != nil {
		if errors.Is(err, database.ErrVideoNotFound) {
			return ErrVideoNotFound
		}
		return fmt.Errorf("failed to delete video record: %w", err)
	}

	slog.Info("video deleted", "id", id, "custom_id", video.CustomID)
	return nil
}

// OpenStream resolves a video for streaming by its custom id and returns its
// metadata together with the on-disk path. Every successful open increments
// the view counter, best-effort.
func (s *LibraryService) OpenStream(ctx context.Context, customID string) (*database.Video, string, error) {
	video, err := s.repo.GetVideoByCustomID(ctx, customID)
	if err != nil {
		if errors.Is(err, database.ErrVideoNotFound) {
			return nil, "", ErrVideoNotFound
		}
		return nil, "", err
	}

	path, err := s.store.GetPath(video.Filename)
	if err != nil {
		return nil, "", ErrVideoFileNotFound
	}

	if err := s.repo.IncrementVideoViews(ctx, video.ID); err != nil {
		slog.Error("failed to increment view count", "custom_id", customID, "error", err)
	}

	return video, path, nil
}

// Stats returns aggregate library figures plus actual disk usage of the
// storage directory. When the disk walk fails the recorded sizes stand in
// for disk usage.
func (s *LibraryService) Stats(ctx context.Context) (*database.LibraryStats, int64, error) {
	stats, err := s.repo.GetLibraryStats(ctx)
	if err != nil {
		return nil, 0, err
	}

	diskUsage, err := s.store.DiskUsage()
	if err != nil {
		slog.Error("failed to measure disk usage", "error", err)
		diskUsage = stats.TotalStorage
	}
	return stats, diskUsage, nil
}

// sanitizeExt returns the lowercased extension of name, or empty when the
// name has none.
func sanitizeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(sanitizeFilename(name)))
	if len(ext) > 10 {
		return ""
	}
	return ext
}

// sanitizeFilename strips directory components and limits length.
func sanitizeFilename(name string) string {
	// Normalize Windows-style backslashes to forward slashes before
	// calling filepath.Base, which is platform-specific.
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	if len(name) > 255 {
		ext := filepath.Ext(name)
		name = name[:255-len(ext)] + ext
	}

	if name == "" || name == "." {
		name = "video"
	}

	return name
}
