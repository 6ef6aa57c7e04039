package media

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"casa-backend/internal/shared/server/middleware"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(middleware.Auth("/api/v1/storage/public/"))
	NewHandler(newTestService(t)).RegisterRoutes(api)
	return r
}

func TestHandlerUploadThenServe(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/storage/objects/guest:g1/1_clip.mp4", strings.NewReader("frames"))
	req.Header.Set("Content-Type", "video/mp4")
	req.Header.Set("X-Guest-Id", "g1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created AssetResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.MediaType != CategoryVideo || created.SizeBytes != 6 {
		t.Fatalf("unexpected asset: %+v", created)
	}

	get := httptest.NewRecorder()
	router.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/v1/storage/public/"+created.Path, nil))
	if get.Code != http.StatusOK || get.Body.String() != "frames" {
		t.Fatalf("expected stored bytes, got %d %q", get.Code, get.Body.String())
	}
	if ct := get.Header().Get("Content-Type"); ct != "video/mp4" {
		t.Fatalf("unexpected content type %q", ct)
	}

	head := httptest.NewRecorder()
	router.ServeHTTP(head, httptest.NewRequest(http.MethodHead, "/api/v1/storage/public/"+created.Path, nil))
	if head.Code != http.StatusOK || head.Header().Get("Content-Length") != "6" || head.Body.Len() != 0 {
		t.Fatalf("unexpected HEAD response: %d %v %q", head.Code, head.Header(), head.Body.String())
	}

	list := httptest.NewRecorder()
	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/media", nil)
	listReq.Header.Set("X-Guest-Id", "g1")
	router.ServeHTTP(list, listReq)
	if list.Code != http.StatusOK || !strings.Contains(list.Body.String(), created.Path) {
		t.Fatalf("expected asset in list, got %d %s", list.Code, list.Body.String())
	}
}

func TestHandlerUploadErrors(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		name   string
		path   string
		ctype  string
		status int
	}{
		{"unsupported", "guest:g1/1_a.txt", "text/plain", http.StatusUnsupportedMediaType},
		{"foreign namespace", "guest:other/1_a.mp4", "video/mp4", http.StatusForbidden},
		{"traversal", "guest:g1/../x.mp4", "video/mp4", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/v1/storage/objects/"+tc.path, strings.NewReader("data"))
			req.Header.Set("Content-Type", tc.ctype)
			req.Header.Set("X-Guest-Id", "g1")
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestHandlerUploadKeepsExistingObject(t *testing.T) {
	router := newTestRouter(t)

	put := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/storage/objects/guest:g1/1_clip.mp4", strings.NewReader(body))
		req.Header.Set("Content-Type", "video/mp4")
		req.Header.Set("X-Guest-Id", "g1")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	if first := put("original"); first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", first.Code, first.Body.String())
	}
	second := put("replacement")
	if second.Code != http.StatusConflict || !strings.Contains(second.Body.String(), "already_exists") {
		t.Fatalf("expected 409 already_exists, got %d: %s", second.Code, second.Body.String())
	}

	get := httptest.NewRecorder()
	router.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/v1/storage/public/guest:g1/1_clip.mp4", nil))
	if get.Body.String() != "original" {
		t.Fatalf("stored bytes changed to %q", get.Body.String())
	}
}

func TestHandlerServeMissing(t *testing.T) {
	router := newTestRouter(t)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/storage/public/nobody/none.mp4", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
