package service

import (
	"context"
	"errors"

	"streamvault/internal/server/config"
	"streamvault/internal/server/database"
	"streamvault/internal/server/storage"
)

// Sentinel errors for the service layer.
var (
	ErrFolderNotFound    = errors.New("folder not found")
	ErrVideoNotFound     = errors.New("video not found")
	ErrVideoFileNotFound = errors.New("video file not found")
	ErrDuplicateCustomID = errors.New("custom id already exists")
	ErrInvalidFileType   = errors.New("only video files are allowed")
	ErrFileTooLarge      = errors.New("file exceeds maximum allowed size")
	ErrParentNotFound    = errors.New("parent folder not found")
	ErrFolderCycle       = errors.New("folder cannot be its own ancestor")
)

// Repository is the data-access surface the service needs. Implemented by
// *database.Repository; tests substitute an in-memory fake.
type Repository interface {
	CreateFolder(ctx context.Context, name string, parentID *int) (*database.Folder, error)
	GetFolderByID(ctx context.Context, id int) (*database.Folder, error)
	GetFoldersByParentID(ctx context.Context, parentID *int) ([]*database.Folder, error)
	GetAllFolders(ctx context.Context) ([]*database.Folder, error)
	UpdateFolder(ctx context.Context, id int, updates database.FolderUpdate) (*database.Folder, error)
	DeleteFolder(ctx context.Context, id int) error

	CreateVideo(ctx context.Context, video *database.Video) (*database.Video, error)
	GetVideoByID(ctx context.Context, id int) (*database.Video, error)
	GetVideoByCustomID(ctx context.Context, customID string) (*database.Video, error)
	GetVideosByFolderID(ctx context.Context, folderID *int) ([]*database.Video, error)
	GetAllVideos(ctx context.Context) ([]*database.Video, error)
	UpdateVideo(ctx context.Context, id int, updates database.VideoUpdate) (*database.Video, error)
	DeleteVideo(ctx context.Context, id int) error
	IncrementVideoViews(ctx context.Context, id int) error

	GetLibraryStats(ctx context.Context) (*database.LibraryStats, error)
}

// LibraryService contains the business logic for folders, videos and
// streaming lookups.
type LibraryService struct {
	repo  Repository
	store storage.Store
	cfg   *config.Config
}

// NewLibraryService creates a new library service.
func NewLibraryService(repo Repository, store storage.Store, cfg *config.Config) *LibraryService {
	return &LibraryService{
		repo:  repo,
		store: store,
		cfg:   cfg,
	}
}
