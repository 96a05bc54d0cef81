package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"streamvault/internal/server/auth"
	"streamvault/internal/server/config"
	"streamvault/internal/server/database"
	"streamvault/internal/server/service"
	"streamvault/internal/server/stream"
	"streamvault/internal/server/sysinfo"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"
)

// Handler contains the HTTP handlers for the StreamVault API.
type Handler struct {
	svc      *service.LibraryService
	db       *database.DB
	sessions *auth.SessionManager
	secrets  *auth.SecretVerifier
	tracker  *stream.Tracker
	prober   *sysinfo.Prober
	cfg      *config.Config
}

// NewHandler creates a new handler with its dependencies.
func NewHandler(
	svc *service.LibraryService,
	db *database.DB,
	sessions *auth.SessionManager,
	secrets *auth.SecretVerifier,
	tracker *stream.Tracker,
	prober *sysinfo.Prober,
	cfg *config.Config,
) *Handler {
	return &Handler{
		svc:      svc,
		db:       db,
		sessions: sessions,
		secrets:  secrets,
		tracker:  tracker,
		prober:   prober,
		cfg:      cfg,
	}
}

// --- Auth ---

type loginRequest struct {
	SecretKey string `json:"secretKey"`
}

// HandleLogin handles POST /api/login.
// Compares the submitted secret against the configured one and sets a
// session cookie on success.
func (h *Handler) HandleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}

	if !h.secrets.Verify(req.SecretKey) {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"success": false,
			"message": "Invalid secret key",
		})
	}

	token, err := h.sessions.Create()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Could not create session"})
	}

	c.SetCookie(&http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Login successful",
	})
}

// HandleLogout handles POST /api/logout.
func (h *Handler) HandleLogout(c echo.Context) error {
	if cookie, err := c.Cookie(auth.SessionCookieName); err == nil {
		h.sessions.Destroy(cookie.Value)
	}

	c.SetCookie(&http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

// HandleAuthStatus handles GET /api/auth/status.
func (h *Handler) HandleAuthStatus(c echo.Context) error {
	authenticated := false
	if cookie, err := c.Cookie(auth.SessionCookieName); err == nil {
		authenticated = h.sessions.Validate(cookie.Value)
	}
	return c.JSON(http.StatusOK, echo.Map{"authenticated": authenticated})
}

// --- Folders ---

type folderRequest struct {
	Name     string `json:"name"`
	ParentID *int   `json:"parentId"`
}

func (r folderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.ParentID, validation.Min(1)),
	)
}

// HandleListFolders handles GET /api/folders. An absent parentId query
// parameter selects root-level folders.
func (h *Handler) HandleListFolders(c echo.Context) error {
	parentID, err := optionalIntParam(c.QueryParam("parentId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid parentId"})
	}

	folders, err := h.svc.ListFolders(c.Request().Context(), parentID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to fetch folders"})
	}
	return c.JSON(http.StatusOK, folders)
}

// HandleListAllFolders handles GET /api/folders/all.
func (h *Handler) HandleListAllFolders(c echo.Context) error {
	folders, err := h.svc.ListAllFolders(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to fetch all folders"})
	}
	return c.JSON(http.StatusOK, folders)
}

// HandleGetFolder handles GET /api/folders/:id.
func (h *Handler) HandleGetFolder(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid folder id"})
	}

	folder, err := h.svc.GetFolder(c.Request().Context(), id)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, folder)
}

// HandleCreateFolder handles POST /api/folders.
func (h *Handler) HandleCreateFolder(c echo.Context) error {
	var req folderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid folder data"})
	}
	if err := req.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid folder data"})
	}

	folder, err := h.svc.CreateFolder(c.Request().Context(), req.Name, req.ParentID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, folder)
}

// HandleUpdateFolder handles PATCH /api/folders/:id.
func (h *Handler) HandleUpdateFolder(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid folder id"})
	}

	// Decoding into a map distinguishes {"parentId": null} (move to root)
	// from an absent key (leave unchanged).
	raw := map[string]any{}
	if err := c.Bind(&raw); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid folder data"})
	}

	updates := database.FolderUpdate{}
	if v, ok := raw["name"]; ok {
		name, ok := v.(string)
		if !ok || name == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid folder data"})
		}
		updates.Name = &name
	}
	if v, ok := raw["parentId"]; ok {
		updates.SetParent = true
		if v != nil {
			f, ok := v.(float64)
			if !ok || f != math.Trunc(f) {
				return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid folder data"})
			}
			parentID := int(f)
			updates.ParentID = &parentID
		}
	}

	folder, err := h.svc.UpdateFolder(c.Request().Context(), id, updates)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, folder)
}

// HandleDeleteFolder handles DELETE /api/folders/:id.
func (h *Handler) HandleDeleteFolder(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid folder id"})
	}

	if err := h.svc.DeleteFolder(c.Request().Context(), id); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Folder deleted successfully"})
}

// --- Videos ---

// HandleListVideos handles GET /api/videos. An absent folderId query
// parameter selects videos outside any folder.
func (h *Handler) HandleListVideos(c echo.Context) error {
	folderID, err := optionalIntParam(c.QueryParam("folderId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid folderId"})
	}

	videos, err := h.svc.ListVideos(c.Request().Context(), folderID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to fetch videos"})
	}
	return c.JSON(http.StatusOK, videos)
}

// HandleListAllVideos handles GET /api/videos/all.
func (h *Handler) HandleListAllVideos(c echo.Context) error {
	videos, err := h.svc.ListAllVideos(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to fetch all videos"})
	}
	return c.JSON(http.StatusOK, videos)
}

// HandleGetVideo handles GET /api/videos/:id.
func (h *Handler) HandleGetVideo(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid video id"})
	}

	video, err := h.svc.GetVideo(c.Request().Context(), id)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, video)
}

type uploadForm struct {
	CustomID    string
	Title       string
	Description string
}

func (f uploadForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.CustomID, validation.Required, validation.Length(1, 100)),
		validation.Field(&f.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&f.Description, validation.Length(0, 2000)),
	)
}

// HandleUpload handles POST /api/videos/upload.
// Accepts a multipart form with a "video" file field plus customId, title
// and optional folderId and description fields.
func (h *Handler) HandleUpload(c echo.Context) error {
	fileHeader, err := c.FormFile("video")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "No video file provided"})
	}

	form := uploadForm{
		CustomID:    c.FormValue("customId"),
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
	}
	if form.CustomID == "" || form.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Custom ID and title are required"})
	}
	if err := form.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid upload data"})
	}

	folderID, err := optionalIntParam(c.FormValue("folderId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid folderId"})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to read uploaded file"})
	}
	defer src.Close()

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	video, err := h.svc.UploadVideo(c.Request().Context(), service.UploadRequest{
		CustomID:     form.CustomID,
		Title:        form.Title,
		Description:  form.Description,
		FolderID:     folderID,
		OriginalName: fileHeader.Filename,
		MimeType:     mimeType,
		Size:         fileHeader.Size,
		Data:         src,
	})
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, video)
}

// HandleUpdateVideo handles PATCH /api/videos/:id.
func (h *Handler) HandleUpdateVideo(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid video id"})
	}

	raw := map[string]any{}
	if err := c.Bind(&raw); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid video data"})
	}

	updates := database.VideoUpdate{}
	if v, ok := raw["title"]; ok {
		title, ok := v.(string)
		if !ok || title == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid video data"})
		}
		updates.Title = &title
	}
	if v, ok := raw["folderId"]; ok {
		updates.SetFolder = true
		if v != nil {
			f, ok := v.(float64)
			if !ok || f != math.Trunc(f) {
				return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid video data"})
			}
			folderID := int(f)
			updates.FolderID = &folderID
		}
	}

	video, err := h.svc.UpdateVideo(c.Request().Context(), id, updates)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, video)
}

// HandleDeleteVideo handles DELETE /api/videos/:id.
func (h *Handler) HandleDeleteVideo(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid video id"})
	}

	if err := h.svc.DeleteVideo(c.Request().Context(), id); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Video deleted successfully"})
}

// --- Analytics & stats ---

type streamDetail struct {
	ID       string `json:"id"`
	Duration int64  `json:"duration"`
	ClientID string `json:"clientId"`
}

// HandleStreamAnalytics handles GET /api/stream-analytics.
func (h *Handler) HandleStreamAnalytics(c echo.Context) error {
	records := h.tracker.Snapshot()

	details := make([]streamDetail, 0, len(records))
	for _, rec := range records {
		details = append(details, streamDetail{
			ID:       rec.CustomID,
			Duration: rec.Age().Milliseconds(),
			ClientID: rec.ClientID,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"activeStreams":        len(details),
		"streamDetails":        details,
		"totalConcurrentLimit": h.cfg.MaxConcurrentStreams,
	})
}

// HandleStats handles GET /api/stats.
// Combines library aggregates, host metrics and the live stream tracker
// into one snapshot. No caching: every call re-reads the tables and
// re-invokes the probes.
func (h *Handler) HandleStats(c echo.Context) error {
	stats, diskUsage, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to fetch stats"})
	}

	host := h.prober.Probe(int(stats.TotalVideos))

	return c.JSON(http.StatusOK, echo.Map{
		"totalVideos":    stats.TotalVideos,
		"totalFolders":   stats.TotalFolders,
		"totalStorage":   stats.TotalStorage,
		"diskUsage":      diskUsage,
		"avgDuration":    math.Round(stats.AvgDuration),
		"uptime":         h.prober.Uptime(),
		"cpuUsage":       host.CPUUsage,
		"memoryUsage":    host.MemoryUsage,
		"totalMemory":    host.TotalMemory,
		"activeStreams":  h.tracker.ActiveCount(),
		"totalBandwidth": h.tracker.TotalBandwidth(),
	})
}

// HandleHealth handles GET /health.
// Returns the health status of the server, including database connectivity.
func (h *Handler) HandleHealth(c echo.Context) error {
	status := "healthy"
	dbStatus := "connected"

	if err := h.db.HealthCheck(c.Request().Context()); err != nil {
		status = "degraded"
		dbStatus = fmt.Sprintf("error: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":   status,
		"database": dbStatus,
	})
}

// mapServiceError translates service-layer errors into appropriate HTTP responses.
func mapServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrFolderNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Folder not found"})
	case errors.Is(err, service.ErrVideoNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Video not found"})
	case errors.Is(err, service.ErrVideoFileNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Video file not found"})
	case errors.Is(err, service.ErrDuplicateCustomID):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Custom ID already exists"})
	case errors.Is(err, service.ErrInvalidFileType):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Only video files are allowed"})
	case errors.Is(err, service.ErrParentNotFound):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Parent folder not found"})
	case errors.Is(err, service.ErrFolderCycle):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Folder cannot be its own ancestor"})
	case errors.Is(err, service.ErrFileTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"message": "File exceeds maximum allowed size"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal server error"})
	}
}

// optionalIntParam parses an optional integer query/form value; empty input
// yields nil.
func optionalIntParam(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
