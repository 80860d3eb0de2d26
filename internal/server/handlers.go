// Package server provides HTTP handlers and server setup for the query
// service.
package server

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"agrivoice/internal/artifacts"
	"agrivoice/internal/pipeline"
)

// QueryProcessor runs one query through the pipeline.
type QueryProcessor interface {
	Process(ctx context.Context, in *pipeline.Input) pipeline.Result
}

// Handler holds the HTTP handlers
type Handler struct {
	pipeline  QueryProcessor
	artifacts *artifacts.Store
}

// NewHandler creates a new handler with the given processor
func NewHandler(processor QueryProcessor, store *artifacts.Store) *Handler {
	return &Handler{
		pipeline:  processor,
		artifacts: store,
	}
}

// queryResponse is the success-shaped response for POST /api/query. Audio
// is null when no speech artifact was produced.
type queryResponse struct {
	Text   string  `json:"text"`
	Audio  *string `json:"audio"`
	Status string  `json:"status"`
}

// Query handles POST /api/query
func (h *Handler) Query(c echo.Context) error {
	in := &pipeline.Input{
		Text: c.FormValue("text"),
	}
	if part, err := formFilePart(c, "image"); err == nil {
		in.Image = part
	}
	if part, err := formFilePart(c, "audio"); err == nil {
		in.Audio = part
	}

	res := h.pipeline.Process(c.Request().Context(), in)

	if res.Err != nil && res.Err.HTTPStatus != 0 {
		return c.JSON(res.Err.HTTPStatus, map[string]any{
			"error": map[string]any{
				"type":    string(res.Err.Kind),
				"message": res.Text,
			},
		})
	}

	resp := queryResponse{Text: res.Text, Status: "success"}
	if res.AudioFile != "" {
		url := "/audio/" + res.AudioFile
		resp.Audio = &url
	}
	return c.JSON(http.StatusOK, resp)
}

// Audio handles GET /audio/:name, serving generated speech artifacts.
// Only names the artifact store could have generated are looked up, so
// traversal and probing requests never reach the filesystem.
func (h *Handler) Audio(c echo.Context) error {
	name := c.Param("name")
	if !h.artifacts.ValidName(name) {
		return echo.ErrNotFound
	}
	return c.File(h.artifacts.Path(name))
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// formFilePart adapts one multipart file field to a pipeline file part.
// The file content is not opened here; the pipeline decides whether the
// upload is worth reading at all.
func formFilePart(c echo.Context, field string) (*pipeline.FilePart, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}
	return &pipeline.FilePart{
		Filename: fh.Filename,
		Size:     fh.Size,
		Open: func() (io.ReadCloser, error) {
			f, err := fh.Open()
			if err != nil {
				return nil, err
			}
			return f, nil
		},
	}, nil
}
