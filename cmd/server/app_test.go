package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"noteflow/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DataDir: t.TempDir(),
		Store:   config.StoreConfig{Driver: "memory"},
		Media:   config.MediaConfig{Backend: "local", URLPrefix: "/uploads"},
		Transcription: config.TranscriptionConfig{
			Timeout: time.Second,
		},
		AI:     config.AIConfig{AnthropicURL: "http://ai.local", Timeout: time.Second},
		Backup: config.BackupConfig{Keep: 3},
	}
}

func TestNewAppMemory(t *testing.T) {
	cfg := testConfig(t)
	a, err := newApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.sql)
	assert.Nil(t, a.backups)
	assert.NotNil(t, a.assistant)
	assert.Equal(t, filepath.Join(cfg.DataDir, "uploads"), a.uploads)
	assert.DirExists(t, a.uploads)
}

func TestNewBackupServiceWebDAV(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backup.WebDAV = config.WebDAVConfig{URL: "http://dav.local", Path: "/noteflow"}
	svc, err := newBackupService(context.Background(), cfg, nil, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.Equal(t, []string{"webdav"}, svc.Targets())
}

func TestZapLoggerMiddleware(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	e := echo.New()
	e.Use(zapLoggerMiddleware())
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/missing", func(c echo.Context) error { return c.NoContent(http.StatusNotFound) })

	for _, path := range []string{"/ok", "/missing"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	assert.Equal(t, 1, logs.FilterMessage("Request completed").Len())
	assert.Equal(t, 1, logs.FilterMessage("Client error").Len())
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, out.String(), "noteflow dev")
}
