package main

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
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/attest/internal/config"
	"github.com/JaimeStill/attest/internal/infrastructure"
	"github.com/JaimeStill/attest/internal/workflow"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[pipeline]\nmax_concurrency = 2\n"), 0o644))
	return path
}

func TestRouterProbes(t *testing.T) {
	cfg, err := config.LoadFile(writeConfig(t))
	require.NoError(t, err)

	infra, err := infrastructure.NewWithLogger(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	router := buildRouter(infra)
	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, get("/healthz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz").Code)

	infra.Lifecycle.WaitForStartup()
	assert.Equal(t, http.StatusOK, get("/readyz").Code)

	metrics := get("/metrics")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "go_goroutines")
}

func TestMarksCommand(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Gray{Y: 255}), image.Point{}, draw.Src)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	doc := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, os.WriteFile(doc, buf.Bytes(), 0o644))

	cfgPath := writeConfig(t)
	cmd := marksCmd(&cfgPath)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--file", doc})
	cmd.SetContext(context.Background())
	require.NoError(t, cmd.Execute())

	var report workflow.MarksReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "scan.png", report.Filename)
	assert.Equal(t, 1, report.TotalPages)
	assert.Equal(t, 0, report.Summary.TotalMarks)
}

func TestValidateCommandRequiresFlags(t *testing.T) {
	cfgPath := writeConfig(t)
	cmd := validateCmd(&cfgPath)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--file", "missing.pdf"})

	assert.Error(t, cmd.Execute())
}

func TestOpenAPICommand(t *testing.T) {
	cfgPath := writeConfig(t)
	cmd := openapiCmd(&cfgPath)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	var spec map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &spec))
	assert.Equal(t, "3.1.0", spec["openapi"])
	assert.Contains(t, spec["paths"], "/validations")
}
