package database

import (
	"encoding/json"
	"time"
)

// Folder is a node in the library's folder forest. ParentID is nil for
// root-level folders.
type Folder struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	ParentID  *int      `json:"parentId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Video is one uploaded video. CustomID is the user-chosen external
// identifier used in stream URLs; Filename is the generated on-disk name and
// is unrelated to either CustomID or OriginalName.
type Video struct {
	ID           int             `json:"id"`
	CustomID     string          `json:"customId"`
	Title        string          `json:"title"`
	Filename     string          `json:"filename"`
	OriginalName string          `json:"originalName"`
	MimeType     string          `json:"mimeType"`
	Size         int64           `json:"size"`
	Duration     *int            `json:"duration"` // seconds; not extracted on upload
	FolderID     *int            `json:"folderId"`
	Metadata     json.RawMessage `json:"metadata"` // raw JSON, may be nil
	Views        int             `json:"views"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// FolderUpdate holds the settable fields for a partial folder update.
// SetParent distinguishes "move to root" (SetParent with nil ParentID)
// from "leave parent unchanged".
type FolderUpdate struct {
	Name      *string
	ParentID  *int
	SetParent bool
}

// VideoUpdate holds the settable fields for a partial video update.
type VideoUpdate struct {
	Title     *string
	FolderID  *int
	SetFolder bool
}

// LibraryStats holds the aggregate figures used by the stats endpoint.
// AvgDuration is in seconds, matching the videos.duration column.
type LibraryStats struct {
	TotalVideos  int64
	TotalFolders int64
	TotalStorage int64
	AvgDuration  float64
}
