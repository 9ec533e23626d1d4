package vision

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/vision-assist/internal/domain/analysis"
)

func TestEndpointForCoversEveryIntent(t *testing.T) {
	tests := []struct {
		intent domain.Intent
		path   string
	}{
		{domain.IntentFaceRecognition, "/recognize_face"},
		{domain.IntentObjectDetection, "/detect_objects"},
		{domain.IntentTextExtraction, "/extract_text"},
		{domain.IntentEmotionAnalysis, "/analyze_emotion"},
		{domain.Intent("something-new"), "/recognize_face"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.path, endpointFor(tt.intent))
	}
}

func TestAnalyzeSuccess(t *testing.T) {
	var gotPath, gotIntent string
	var gotImage []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		gotIntent = r.FormValue("intent")

		file, _, err := r.FormFile("image")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		buf := make([]byte, 16)
		n, _ := file.Read(buf)
		gotImage = buf[:n]

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":["bottle"]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	out := c.Analyze(context.Background(), []byte{0xff, 0xd8, 0xff}, "box.jpg", domain.IntentTextExtraction)

	require.True(t, out.Succeeded)
	assert.Nil(t, out.Failure)
	assert.Equal(t, domain.IntentTextExtraction, out.Intent)
	assert.JSONEq(t, `{"items":["bottle"]}`, string(out.Result))

	assert.Equal(t, "/extract_text", gotPath)
	assert.Equal(t, string(domain.IntentTextExtraction), gotIntent)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, gotImage)
}

func TestAnalyzeRejectedCarriesStatusAndMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"model crashed"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	out := c.Analyze(context.Background(), []byte{0x01}, "a.jpg", domain.IntentFaceRecognition)

	require.False(t, out.Succeeded)
	require.NotNil(t, out.Failure)
	assert.Equal(t, domain.FailureBackendRejected, out.Failure.Kind)
	assert.Equal(t, http.StatusInternalServerError, out.Failure.StatusCode)
	assert.Equal(t, "model crashed", out.Failure.Message)
}

func TestAnalyzeRejectedWithoutJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "teapot", http.StatusTeapot)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	out := c.Analyze(context.Background(), []byte{0x01}, "a.jpg", domain.IntentObjectDetection)

	require.NotNil(t, out.Failure)
	assert.Equal(t, domain.FailureBackendRejected, out.Failure.Kind)
	assert.Equal(t, http.StatusTeapot, out.Failure.StatusCode)
	assert.NotEmpty(t, out.Failure.Message)
}

func TestAnalyzeTimeoutStaysBounded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(10 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 100*time.Millisecond)

	start := time.Now()
	out := c.Analyze(context.Background(), []byte{0x01}, "a.jpg", domain.IntentFaceRecognition)
	elapsed := time.Since(start)

	require.NotNil(t, out.Failure)
	assert.Equal(t, domain.FailureBackendTimeout, out.Failure.Kind)
	assert.Less(t, elapsed, time.Second, "timeout must honor the configured bound")
}

func TestAnalyzeUnavailableWhenRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // nothing listens here anymore

	c := NewClient(url, time.Second)
	out := c.Analyze(context.Background(), []byte{0x01}, "a.jpg", domain.IntentFaceRecognition)

	require.NotNil(t, out.Failure)
	assert.Equal(t, domain.FailureBackendUnavailable, out.Failure.Kind)
}

func TestAnalyzeContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(10 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 30*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	out := c.Analyze(ctx, []byte{0x01}, "a.jpg", domain.IntentEmotionAnalysis)

	require.NotNil(t, out.Failure)
	assert.Equal(t, domain.FailureBackendTimeout, out.Failure.Kind)
}
