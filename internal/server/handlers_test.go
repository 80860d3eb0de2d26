package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrivoice/internal/artifacts"
	"agrivoice/internal/core"
	"agrivoice/internal/pipeline"
)

type stubProcessor struct {
	result pipeline.Result
	last   *pipeline.Input
}

func (s *stubProcessor) Process(_ context.Context, in *pipeline.Input) pipeline.Result {
	s.last = in
	return s.result
}

func newTestServer(t *testing.T, proc *stubProcessor) (*Server, *artifacts.Store) {
	t.Helper()
	store, err := artifacts.NewStore(t.TempDir(), 0, nil)
	require.NoError(t, err)
	srv := New(NewHandler(proc, store), &Config{BodySizeLimit: 32 << 20}, nil)
	return srv, store
}

func multipartBody(t *testing.T, text string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if text != "" {
		require.NoError(t, w.WriteField("text", text))
	}
	for field, data := range files {
		fw, err := w.CreateFormFile(field, field+".bin")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestQuerySuccessWithAudio(t *testing.T) {
	proc := &stubProcessor{result: pipeline.Result{
		Text:      "उत्तर",
		AudioFile: "speech_response_d2a7c8aa-1111-4222-8333-444455556666.mp3",
	}}
	srv, _ := newTestServer(t, proc)

	body, contentType := multipartBody(t, "how to grow rice", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/query", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Text   string  `json:"text"`
		Audio  *string `json:"audio"`
		Status string  `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "उत्तर", resp.Text)
	require.NotNil(t, resp.Audio)
	assert.Equal(t, "/audio/speech_response_d2a7c8aa-1111-4222-8333-444455556666.mp3", *resp.Audio)
	assert.Equal(t, "success", resp.Status)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	require.NotNil(t, proc.last)
	assert.Equal(t, "how to grow rice", proc.last.Text)
	assert.Nil(t, proc.last.Image)
	assert.Nil(t, proc.last.Audio)
}

func TestQueryRejectionIsSuccessShaped(t *testing.T) {
	proc := &stubProcessor{result: pipeline.Result{
		Text: core.MsgOutOfDomain,
		Err:  core.NewOutOfDomain(),
	}}
	srv, _ := newTestServer(t, proc)

	body, contentType := multipartBody(t, "capital of France?", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/query", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, core.MsgOutOfDomain, resp["text"])
	assert.Nil(t, resp["audio"])
}

func TestQueryInvalidUploadMapsToHTTPError(t *testing.T) {
	proc := &stubProcessor{result: pipeline.Result{
		Text: "Invalid image format. Allowed: JPG, JPEG, PNG, GIF, BMP, WEBP",
		Err:  core.NewInputInvalid("Invalid image format. Allowed: JPG, JPEG, PNG, GIF, BMP, WEBP", http.StatusBadRequest),
	}}
	srv, _ := newTestServer(t, proc)

	body, contentType := multipartBody(t, "", map[string][]byte{"image": {1, 2, 3}})
	req := httptest.NewRequest(http.MethodPost, "/api/query", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "input_invalid", resp["error"]["type"])
	assert.Contains(t, resp["error"]["message"], "Invalid image format")
}

func TestQueryForwardsFileParts(t *testing.T) {
	proc := &stubProcessor{result: pipeline.Result{Text: "ok"}}
	srv, _ := newTestServer(t, proc)

	imageData := []byte{0x89, 'P', 'N', 'G'}
	body, contentType := multipartBody(t, "leaves", map[string][]byte{"image": imageData})
	req := httptest.NewRequest(http.MethodPost, "/api/query", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, proc.last.Image)
	assert.Equal(t, "image.bin", proc.last.Image.Filename)
	assert.Equal(t, int64(len(imageData)), proc.last.Image.Size)

	rc, err := proc.last.Image.Open()
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, imageData, got)
}

func TestAudioServesOnlyGeneratedNames(t *testing.T) {
	proc := &stubProcessor{}
	srv, store := newTestServer(t, proc)

	name, err := store.Put([]byte{0xff, 0xfb, 0x90})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/audio/"+name, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []byte{0xff, 0xfb, 0x90}, rec.Body.Bytes())

	for _, bad := range []string{"..%2F..%2Fetc%2Fpasswd", "config.yaml", "speech_response_zzz.mp3"} {
		req := httptest.NewRequest(http.MethodGet, "/audio/"+bad, nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, "name %q must be rejected", bad)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &stubProcessor{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestRateLimiting(t *testing.T) {
	proc := &stubProcessor{result: pipeline.Result{Text: "ok"}}
	store, err := artifacts.NewStore(t.TempDir(), 0, nil)
	require.NoError(t, err)
	srv := New(NewHandler(proc, store), &Config{RequestsPerMinute: 2}, nil)

	limited := false
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
		time.Sleep(time.Millisecond)
	}
	assert.True(t, limited, "burst beyond the per-minute budget must be limited")
}

