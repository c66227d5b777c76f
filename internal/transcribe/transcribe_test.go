package transcribe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"noteflow/internal/domain"
)

func TestTranscribe(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/transcribe", r.URL.Path)

		f, hdr, err := r.FormFile("audio")
		if !assert.NoError(t, err) {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "voice-bytes", string(data))
		assert.Equal(t, "memo.webm", hdr.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transcription":"call mom #family"}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second, zaptest.NewLogger(t))
	text, err := c.Transcribe(context.Background(), strings.NewReader("voice-bytes"), "memo.webm")
	require.NoError(t, err)
	assert.Equal(t, "call mom #family", text)
}

func TestTranscribe_Errors(t *testing.T) {
	t.Parallel()

	t.Run("server error", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model crashed", http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := New(srv.URL, time.Second, zaptest.NewLogger(t)).
			Transcribe(context.Background(), strings.NewReader("a"), "")
		assert.ErrorIs(t, err, domain.ErrServer)
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()
		done := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			select {
			case <-done:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(done)

		_, err := New(srv.URL, 20*time.Millisecond, zaptest.NewLogger(t)).
			Transcribe(context.Background(), strings.NewReader("a"), "a.webm")
		assert.ErrorIs(t, err, domain.ErrTimeout)
	})

	t.Run("unreachable", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := New(url, time.Second, zaptest.NewLogger(t)).
			Transcribe(context.Background(), strings.NewReader("a"), "a.webm")
		assert.ErrorIs(t, err, domain.ErrConnectivity)
	})
}
