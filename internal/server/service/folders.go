package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"streamvault/internal/server/database"
)

// maxFolderDepth bounds the parent-chain walk during cycle validation, so a
// corrupted tree cannot send it into an endless loop.
const maxFolderDepth = 100

// CreateFolder creates a folder, validating that the parent (if any) exists.
func (s *LibraryService) CreateFolder(ctx context.Context, name string, parentID *int) (*database.Folder, error) {
	if parentID != nil {
		if _, err := s.repo.GetFolderByID(ctx, *parentID); err != nil {
			if errors.Is(err, database.ErrFolderNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, err
		}
	}

	folder, err := s.repo.CreateFolder(ctx, name, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}

	slog.Info("folder created", "id", folder.ID, "name", folder.Name)
	return folder, nil
}

// GetFolder returns a folder by id.
func (s *LibraryService) GetFolder(ctx context.Context, id int) (*database.Folder, error) {
	folder, err := s.repo.GetFolderByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrFolderNotFound) {
			return nil, ErrFolderNotFound
		}
		return nil, err
	}
	return folder, nil
}

// ListFolders returns the children of parentID, or root-level folders when
// parentID is nil. Ordered by name.
func (s *LibraryService) ListFolders(ctx context.Context, parentID *int) ([]*database.Folder, error) {
	return s.repo.GetFoldersByParentID(ctx, parentID)
}

// ListAllFolders returns every folder, ordered by name.
func (s *LibraryService) ListAllFolders(ctx context.Context) ([]*database.Folder, error) {
	return s.repo.GetAllFolders(ctx)
}

// UpdateFolder applies a partial update. Moving a folder validates that the
// new parent exists and that the move does not make the folder its own
// ancestor.
func (s *LibraryService) UpdateFolder(ctx context.Context, id int, updates database.FolderUpdate) (*database.Folder, error) {
	if updates.SetParent && updates.ParentID != nil {
		if err := s.checkFolderCycle(ctx, id, *updates.ParentID); err != nil {
			return nil, err
		}
	}

	folder, err := s.repo.UpdateFolder(ctx, id, updates)
	if err != nil {
		if errors.Is(err, database.ErrFolderNotFound) {
			return nil, ErrFolderNotFound
		}
		return nil, err
	}
	return folder, nil
}

// DeleteFolder removes a folder by id.
func (s *LibraryService) DeleteFolder(ctx context.Context, id int) error {
	if err := s.repo.DeleteFolder(ctx, id); err != nil {
		if errors.Is(err, database.ErrFolderNotFound) {
			return ErrFolderNotFound
		}
		return err
	}
	slog.Info("folder deleted", "id", id)
	return nil
}

// checkFolderCycle walks the parent chain upward from newParentID and fails
// if it reaches id, which would make the folder an ancestor of itself.
func (s *LibraryService) checkFolderCycle(ctx context.Context, id, newParentID int) error {
	if id == newParentID {
		return ErrFolderCycle
	}

	current := newParentID
	for depth := 0; depth < maxFolderDepth; depth++ {
		folder, err := s.repo.GetFolderByID(ctx, current)
		if err != nil {
			if errors.Is(err, database.ErrFolderNotFound) {
				return ErrParentNotFound
			}
			return err
		}
		if folder.ParentID == nil {
			return nil
		}
		if *folder.ParentID == id {
			return ErrFolderCycle
		}
		current = *folder.ParentID
	}
	return ErrFolderCycle
}
