package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"streamvault/internal/server/stream"

	"github.com/labstack/echo/v4"
)

// byteRange is an inclusive byte span within a file.
type byteRange struct {
	start int64
	end   int64
}

func (r byteRange) length() int64 {
	return r.end - r.start + 1
}

// parseRange interprets a Range request header of the form
// "bytes=<start>-<end>" against a file of the given size. The end is
// optional and defaults to the last byte. An absent or malformed header
// yields the full span; a start at or past end-of-file is unsatisfiable.
func parseRange(header string, size int64) (byteRange, error) {
	full := byteRange{start: 0, end: size - 1}
	if header == "" {
		return full, nil
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return full, nil
	}

	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return full, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return full, nil
	}

	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return full, nil
		}
		if end > size-1 {
			end = size - 1
		}
	}

	if start >= size || start > end {
		return byteRange{}, fmt.Errorf("unsatisfiable range %q for size %d", header, size)
	}
	return byteRange{start: start, end: end}, nil
}

// HandleStream handles GET /api/stream/:customId.
//
// Serves the video's bytes with byte-range support while registering an
// active-stream record with the tracker. The response status is always
// 206 Partial Content; when no Range header was supplied the Content-Range
// covers the whole file. Clients depend on the unconditional 206.
func (h *Handler) HandleStream(c echo.Context) error {
	customID := c.Param("customId")

	video, path, err := h.svc.OpenStream(c.Request().Context(), customID)
	if err != nil {
		return mapServiceError(c, err)
	}

	streamID := h.tracker.Register(video.CustomID, c.RealIP())

	file, err := os.Open(path)
	if err != nil {
		h.tracker.Release(streamID, 0)
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Video file not found"})
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		h.tracker.Release(streamID, 0)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Streaming error"})
	}
	size := info.Size()

	span, err := parseRange(c.Request().Header.Get("Range"), size)
	if err != nil {
		h.tracker.Release(streamID, 0)
		c.Response().Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		return c.JSON(http.StatusRequestedRangeNotSatisfiable, echo.Map{"message": "Requested range not satisfiable"})
	}

	if _, err := file.Seek(span.start, io.SeekStart); err != nil {
		h.tracker.Release(streamID, 0)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Streaming error"})
	}

	mimeType := video.MimeType
	if mimeType == "" {
		mimeType = "video/mp4"
	}

	res := c.Response()
	header := res.Header()
	header.Set(echo.HeaderContentType, mimeType)
	header.Set("Cache-Control", "public, max-age=3600")
	header.Set("Accept-Ranges", "bytes")
	header.Set(echo.HeaderAccessControlAllowOrigin, "*")
	header.Set(echo.HeaderAccessControlAllowHeaders, "Range")
	header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", span.start, span.end, size))
	header.Set(echo.HeaderContentLength, strconv.FormatInt(span.length(), 10))
	res.WriteHeader(http.StatusPartialContent)

	counted := &stream.CountingWriter{
		W:        res,
		Tracker:  h.tracker,
		StreamID: streamID,
	}
	_, copyErr := io.Copy(counted, io.LimitReader(file, span.length()))

	// The grace delay depends on how the transfer ended.
	switch {
	case c.Request().Context().Err() != nil:
		h.tracker.Release(streamID, stream.GraceDisconnect)
	case copyErr != nil:
		slog.Error("stream copy failed", "stream_id", streamID, "error", copyErr)
		h.tracker.Release(streamID, stream.GraceError)
	default:
		h.tracker.Release(streamID, stream.GraceEnd)
	}

	// Headers are already flushed; a mid-transfer error just ends the
	// connection with no structured payload.
	return nil
}
