package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/attest/internal/api"
	"github.com/JaimeStill/attest/internal/config"
	"github.com/JaimeStill/attest/internal/infrastructure"
	"github.com/JaimeStill/attest/pkg/module"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=attest;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/attest;"

func loadConfig(t *testing.T, body string) *config.Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	return cfg
}

func newModule(t *testing.T, cfg *config.Config) *module.Module {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	infra, err := infrastructure.NewWithLogger(context.Background(), cfg, logger)
	require.NoError(t, err)

	m, err := api.NewModule(context.Background(), cfg, infra)
	require.NoError(t, err)
	return m
}

func pagePNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 120, 120))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Gray{Y: 255}), image.Point{}, draw.Src)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, path string, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "scan.png")
	require.NoError(t, err)
	_, err = part.Write(pagePNG(t))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(m *module.Module, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	m.Serve(rec, req)
	return rec
}

func TestNewModule(t *testing.T) {
	m := newModule(t, loadConfig(t, ""))
	assert.Equal(t, "/api", m.Prefix())
}

func TestNewModuleCustomBasePath(t *testing.T) {
	m := newModule(t, loadConfig(t, "[api]\nbase_path = \"/attest\"\n"))
	assert.Equal(t, "/attest", m.Prefix())
}

func TestMarksRoute(t *testing.T) {
	m := newModule(t, loadConfig(t, ""))

	rec := serve(m, uploadRequest(t, "/api/marks", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_signatures":0`)
}

func TestValidationsRouteWithoutAgents(t *testing.T) {
	m := newModule(t, loadConfig(t, ""))

	rec := serve(m, uploadRequest(t, "/api/validations", map[string]string{"person": "Juan Perez"}))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not configured")
}

func TestReportsRoute(t *testing.T) {
	t.Run("storage disabled", func(t *testing.T) {
		m := newModule(t, loadConfig(t, ""))

		rec := serve(m, httptest.NewRequest(http.MethodGet, "/api/reports/"+uuid.NewString(), nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("invalid run id", func(t *testing.T) {
		m := newModule(t, loadConfig(t, "[storage]\nconnection_string = \""+azuriteConnString+"\"\n"))

		rec := serve(m, httptest.NewRequest(http.MethodGet, "/api/reports/not-a-uuid", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestNewModuleAuthIssuerUnreachable(t *testing.T) {
	cfg := loadConfig(t, `
[api.auth]
enabled = true
issuer = "http://127.0.0.1:1"
audience = "attest"
`)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	infra, err := infrastructure.NewWithLogger(context.Background(), cfg, logger)
	require.NoError(t, err)

	_, err = api.NewModule(context.Background(), cfg, infra)
	assert.Error(t, err)
}

func TestOpenAPIRoute(t *testing.T) {
	m := newModule(t, loadConfig(t, ""))

	rec := serve(m, httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var spec struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &spec))

	assert.Equal(t, "Attest API", spec.Info.Title)
	for _, p := range []string{"/validations", "/validations/stored", "/marks", "/reports/{id}"} {
		assert.Contains(t, spec.Paths, p)
	}
}
