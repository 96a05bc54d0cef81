package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrFolderNotFound    = errors.New("folder not found")
	ErrVideoNotFound     = errors.New("video not found")
	ErrDuplicateCustomID = errors.New("custom id already exists")
)

// Repository provides CRUD operations for folders and videos.
type Repository struct {
	db *DB
}

// NewRepository creates a new Repository.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// --- Folders ---

const folderColumns = "id, name, parent_id, created_at"

func scanFolder(row pgx.Row) (*Folder, error) {
	folder := &Folder{}
	err := row.Scan(&folder.ID, &folder.Name, &folder.ParentID, &folder.CreatedAt)
	if err != nil {
		return nil, err
	}
	return folder, nil
}

// CreateFolder inserts a new folder and returns it with its assigned id.
func (r *Repository) CreateFolder(ctx context.Context, name string, parentID *int) (*Folder, error) {
	folder, err := scanFolder(r.db.Pool.QueryRow(ctx, `
		INSERT INTO folders (name, parent_id)
		VALUES ($1, $2)
		RETURNING `+folderColumns,
		name, parentID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}
	return folder, nil
}

// GetFolderByID retrieves a folder by its id.
func (r *Repository) GetFolderByID(ctx context.Context, id int) (*Folder, error) {
	folder, err := scanFolder(r.db.Pool.QueryRow(ctx,
		"SELECT "+folderColumns+" FROM folders WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFolderNotFound
		}
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	return folder, nil
}

// GetFoldersByParentID lists the children of a folder, ordered by name.
// A nil parentID selects root-level folders.
func (r *Repository) GetFoldersByParentID(ctx context.Context, parentID *int) ([]*Folder, error) {
	query := "SELECT " + folderColumns + " FROM folders WHERE parent_id IS NULL ORDER BY name"
	args := []any{}
	if parentID != nil {
		query = "SELECT " + folderColumns + " FROM folders WHERE parent_id = $1 ORDER BY name"
		args = append(args, *parentID)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer rows.Close()

	return collectFolders(rows)
}

// GetAllFolders lists every folder, ordered by name.
func (r *Repository) GetAllFolders(ctx context.Context) ([]*Folder, error) {
	rows, err := r.db.Pool.Query(ctx,
		"SELECT "+folderColumns+" FROM folders ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer rows.Close()

	return collectFolders(rows)
}

func collectFolders(rows pgx.Rows) ([]*Folder, error) {
	folders := []*Folder{}
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		folders = append(folders, folder)
	}
	return folders, rows.Err()
}

// UpdateFolder applies a partial update and returns the updated folder.
func (r *Repository) UpdateFolder(ctx context.Context, id int, updates FolderUpdate) (*Folder, error) {
	sets := []string{}
	args := []any{}
	if updates.Name != nil {
		args = append(args, *updates.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if updates.SetParent {
		args = append(args, updates.ParentID)
		sets = append(sets, fmt.Sprintf("parent_id = $%d", len(args)))
	}
	if len(sets) == 0 {
		return r.GetFolderByID(ctx, id)
	}

	args = append(args, id)
	folder, err := scanFolder(r.db.Pool.QueryRow(ctx, fmt.Sprintf(
		"UPDATE folders SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), folderColumns,
	), args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFolderNotFound
		}
		return nil, fmt.Errorf("failed to update folder: %w", err)
	}
	return folder, nil
}

// DeleteFolder removes a folder by id. Children and contained videos are
// left in place with dangling references, matching the store contract.
func (r *Repository) DeleteFolder(ctx context.Context, id int) error {
	tag, err := r.db.Pool.Exec(ctx, "DELETE FROM folders WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFolderNotFound
	}
	return nil
}

// --- Videos ---

const videoColumns = "id, custom_id, title, filename, original_name, mime_type, size, duration, folder_id, metadata, views, created_at"

func scanVideo(row pgx.Row) (*Video, error) {
	video := &Video{}
	err := row.Scan(
		&video.ID,
		&video.CustomID,
		&video.Title,
		&video.Filename,
		&video.OriginalName,
		&video.MimeType,
		&video.Size,
		&video.Duration,
		&video.FolderID,
		&video.Metadata,
		&video.Views,
		&video.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return video, nil
}

// CreateVideo inserts a new video record and returns it with its assigned id.
// The custom_id unique constraint is the authoritative duplicate guard: a
// constraint violation surfaces as ErrDuplicateCustomID regardless of any
// earlier fast-path check.
func (r *Repository) CreateVideo(ctx context.Context, video *Video) (*Video, error) {
	created, err := scanVideo(r.db.Pool.QueryRow(ctx, `
		INSERT INTO videos (custom_id, title, filename, original_name, mime_type, size, duration, folder_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+videoColumns,
		video.CustomID,
		video.Title,
		video.Filename,
		video.OriginalName,
		video.MimeType,
		video.Size,
		video.Duration,
		video.FolderID,
		video.Metadata,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateCustomID
		}
		return nil, fmt.Errorf("failed to create video: %w", err)
	}
	return created, nil
}

// GetVideoByID retrieves a video by its internal id.
func (r *Repository) GetVideoByID(ctx context.Context, id int) (*Video, error) {
	video, err := scanVideo(r.db.Pool.QueryRow(ctx,
		"SELECT "+videoColumns+" FROM videos WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return video, nil
}

// GetVideoByCustomID retrieves a video by its external custom id.
func (r *Repository) GetVideoByCustomID(ctx context.Context, customID string) (*Video, error) {
	video, err := scanVideo(r.db.Pool.QueryRow(ctx,
		"SELECT "+videoColumns+" FROM videos WHERE custom_id = $1", customID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return video, nil
}

// GetVideosByFolderID lists the videos in a folder, newest first.
// A nil folderID selects videos outside any folder.
func (r *Repository) GetVideosByFolderID(ctx context.Context, folderID *int) ([]*Video, error) {
	query := "SELECT " + videoColumns + " FROM videos WHERE folder_id IS NULL ORDER BY created_at DESC"
	args := []any{}
	if folderID != nil {
		query = "SELECT " + videoColumns + " FROM videos WHERE folder_id = $1 ORDER BY created_at DESC"
		args = append(args, *folderID)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer rows.Close()

	return collectVideos(rows)
}

// GetAllVideos lists every video, newest first.
func (r *Repository) GetAllVideos(ctx context.Context) ([]*Video, error) {
	rows, err := r.db.Pool.Query(ctx,
		"SELECT "+videoColumns+" FROM videos ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer rows.Close()

	return collectVideos(rows)
}

func collectVideos(rows pgx.Rows) ([]*Video, error) {
	videos := []*Video{}
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}

// UpdateVideo applies a partial update and returns the updated video.
func (r *Repository) UpdateVideo(ctx context.Context, id int, updates VideoUpdate) (*Video, error) {
	sets := []string{}
	args := []any{}
	if updates.Title != nil {
		args = append(args, *updates.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if updates.SetFolder {
		args = append(args, updates.FolderID)
		sets = append(sets, fmt.Sprintf("folder_id = $%d", len(args)))
	}
	if len(sets) == 0 {
		return r.GetVideoByID(ctx, id)
	}

	args = append(args, id)
	video, err := scanVideo(r.db.Pool.QueryRow(ctx, fmt.Sprintf(
		"UPDATE videos SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), videoColumns,
	), args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to update video: %w", err)
	}
	return video, nil
}

// DeleteVideo removes a video record by id.
func (r *Repository) DeleteVideo(ctx context.Context, id int) error {
	tag, err := r.db.Pool.Exec(ctx, "DELETE FROM videos WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVideoNotFound
	}
	return nil
}

// IncrementVideoViews atomically increments a video's view counter.
func (r *Repository) IncrementVideoViews(ctx context.Context, id int) error {
	tag, err := r.db.Pool.Exec(ctx,
		"UPDATE videos SET views = views + 1 WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVideoNotFound
	}
	return nil
}

// GetLibraryStats returns aggregate library figures in a single query pair.
func (r *Repository) GetLibraryStats(ctx context.Context) (*LibraryStats, error) {
	stats := &LibraryStats{}

	err := r.db.Pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(size), 0),
			COALESCE(AVG(COALESCE(duration, 0)), 0)
		FROM videos
	`).Scan(&stats.TotalVideos, &stats.TotalStorage, &stats.AvgDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to get video stats: %w", err)
	}

	err = r.db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM folders").Scan(&stats.TotalFolders)
	if err != nil {
		return nil, fmt.Errorf("failed to get folder stats: %w", err)
	}
	return stats, nil
}
