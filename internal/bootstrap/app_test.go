package bootstrap

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casa-backend/internal/llm"
	"casa-backend/internal/shared/config"
	"casa-backend/internal/shared/telemetry"
)

func devConfig(t *testing.T) config.Config {
	t.Helper()
	t.Cleanup(func() { telemetry.SetOutput(os.Stdout, "info") })
	return config.Config{
		Env:             "dev",
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		PublicBaseURL:   "http://localhost:8080",
		LLMProvider:     "openai",
		LogLevel:        "error",
	}
}

func TestBuildDevUsesInMemoryDependencies(t *testing.T) {
	app, err := Build(context.Background(), devConfig(t))
	require.NoError(t, err)

	assert.Nil(t, app.DB)
	assert.Nil(t, app.Events)
	assert.IsType(t, llm.PlaceholderClient{}, app.ChatService.LLM)
	assert.Equal(t,
		"http://localhost:8080/api/v1/storage/public/guest:g1/1_a.jpg",
		app.Store.PublicURL("guest:g1/1_a.jpg"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("X-Guest-Id", "g1")
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}

func TestBuildStoresAndServesMedia(t *testing.T) {
	app, err := Build(context.Background(), devConfig(t))
	require.NoError(t, err)

	put := httptest.NewRequest(http.MethodPut, "/api/v1/storage/objects/guest:g1/1_a.jpg", bytes.NewReader([]byte("jpeg")))
	put.Header.Set("X-Guest-Id", "g1")
	put.Header.Set("Content-Type", "image/jpeg")
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, put)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	head := httptest.NewRequest(http.MethodHead, "/api/v1/storage/public/guest:g1/1_a.jpg", nil)
	resp = httptest.NewRecorder()
	app.Router.ServeHTTP(resp, head)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "4", resp.Header().Get("Content-Length"))
}

func TestBuildRequiresDatabaseOutsideDev(t *testing.T) {
	cfg := devConfig(t)
	cfg.Env = "production"

	_, err := Build(context.Background(), cfg)
	assert.Error(t, err)
}

func TestBuildRejectsS3WithoutBucket(t *testing.T) {
	cfg := devConfig(t)
	cfg.ObjectStoreType = "s3"

	_, err := Build(context.Background(), cfg)
	assert.ErrorContains(t, err, "S3_BUCKET")
}
