package http

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastevision-service/internal/auth"
	"wastevision-service/internal/config"
	"wastevision-service/internal/inference"
	"wastevision-service/internal/render"
	"wastevision-service/internal/service"
	"wastevision-service/internal/storage"
)

type stubDetector struct {
	objects []inference.Object
}

func (s *stubDetector) Detect(ctx context.Context, img image.Image, opts inference.DetectOptions) ([]inference.Object, error) {
	return s.objects, nil
}

type testServer struct {
	router   *gin.Engine
	detector *stubDetector
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zerolog.Nop()

	cfg := &config.Config{
		Server:    config.ServerConfig{MaxUploadMB: 5, RequestTimeout: 10 * time.Second, AllowOrigins: []string{"*"}},
		Detection: config.DetectionConfig{Confidence: 0.3, IoU: 0.45, MaxDetections: 100},
		Preprocessing: config.PreprocessingConfig{
			Enabled: false, MaxImageSize: 1280, Contrast: 1.2, Sharpness: 1.3, Brightness: 1.1,
		},
	}

	artifacts, err := storage.NewArtifactStore(afero.NewMemMapFs(), "temporary_storage")
	require.NoError(t, err)
	users := storage.NewMemoryUserStore()
	tokens, err := auth.NewTokenManager("test-secret", "HS256", 0, users)
	require.NoError(t, err)

	detector := &stubDetector{}
	identify := service.NewIdentifyService(
		artifacts,
		nil,
		nil,
		service.NewDetectorAdapter(detector, log),
		render.NewRenderer(render.Options{LineThickness: 5}, log),
		service.IdentifyOptions{
			Detect: inference.DetectOptions{
				Confidence:    cfg.Detection.Confidence,
				IoU:           cfg.Detection.IoU,
				MaxDetections: cfg.Detection.MaxDetections,
			},
			CustomModelPath: "models/trained_v3.onnx",
		},
		log,
	)
	accounts := service.NewAccountService(users, tokens, 3*time.Hour, log)
	records := service.NewRecordService(storage.NewMemoryRecordStore(), artifacts, log)

	r := NewRouter(cfg.Server, log)
	NewHandler(identify, accounts, records, cfg, log).Register(r, auth.Middleware(tokens, log))
	return &testServer{router: r, detector: detector}
}

func (s *testServer) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	var body map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	}
	return w, body
}

func pngUpload(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	for i := 0; i < len(img.Pix); i += 4 {
		copy(img.Pix[i:], []byte{200, 180, 160, 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, path, field, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, path string, payload any, token string) *http.Request {
	raw, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestStatus(t *testing.T) {
	s := newTestServer(t)
	w, body := s.do(t, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "WasteVision API", body["service"])
	assert.Equal(t, false, body["custom_model_loaded"])
	assert.Equal(t, "Not loaded", body["custom_model_format"])
	assert.Equal(t, true, body["default_model_loaded"])
	assert.Equal(t, []any{"hazardous", "recyclable", "biodegradable", "nonbiodegradable"}, body["classes"])

	det := body["detection_config"].(map[string]any)
	assert.Equal(t, 0.3, det["confidence_threshold"])
	assert.Equal(t, false, det["preprocessing_enabled"])
}

func TestConfigEndpoint(t *testing.T) {
	s := newTestServer(t)
	w, body := s.do(t, httptest.NewRequest(http.MethodGet, "/config", nil))

	require.Equal(t, http.StatusOK, w.Code)
	det := body["detection"].(map[string]any)
	assert.Equal(t, 0.45, det["iou_threshold"])
	assert.Equal(t, float64(100), det["max_detections"])
	pre := body["preprocessing"].(map[string]any)
	assert.Equal(t, float64(1280), pre["max_image_size"])
	assert.Equal(t, 1.3, pre["sharpness_factor"])
}

func TestIdentify_MissingFile(t *testing.T) {
	s := newTestServer(t)
	w, body := s.do(t, multipartRequest(t, "/identify", "", "", nil, map[string]string{"x": "y"}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body, "error")
}

func TestIdentify_UndecodableImage(t *testing.T) {
	s := newTestServer(t)
	w, body := s.do(t, multipartRequest(t, "/identify", "file", "notes.txt", []byte("plain text"), nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, body, "error")
	assert.NotContains(t, body, "custom_model")
	assert.NotContains(t, body, "default_model")
}

func TestIdentify_ZeroDetections(t *testing.T) {
	s := newTestServer(t)
	w, body := s.do(t, multipartRequest(t, "/identify", "file", "room.png", pngUpload(t), nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.HasSuffix(body["saved_file"].(string), "_room.png"))
	assert.Equal(t, false, body["preprocessing_applied"])

	def := body["default_model"].(map[string]any)
	assert.Equal(t, float64(0), def["total_detections"])
	assert.Equal(t, map[string]any{}, def["percentages"])
	assert.Equal(t, []any{}, def["detections"])
	assert.True(t, strings.HasPrefix(def["image"].(string), "data:image/png;base64,"))

	custom := body["custom_model"].(map[string]any)
	assert.Equal(t, "Model not loaded", custom["error"])
	assert.Equal(t, float64(0), custom["total_detections"])
}

func TestIdentify_Detections(t *testing.T) {
	s := newTestServer(t)
	s.detector.objects = []inference.Object{
		{Label: "bottle", Confidence: 0.91, Box: inference.Box{XMin: 2, YMin: 2, XMax: 20, YMax: 20}},
		{Label: "mystery", Confidence: 0.5, Box: inference.Box{XMin: 5, YMin: 5, XMax: 10, YMax: 10}},
	}
	w, body := s.do(t, multipartRequest(t, "/identify", "file", "room.png", pngUpload(t), nil))
	require.Equal(t, http.StatusOK, w.Code)

	def := body["default_model"].(map[string]any)
	dets := def["detections"].([]any)
	require.Len(t, dets, 2)
	first := dets[0].(map[string]any)
	assert.Equal(t, "bottle", first["item"])
	assert.Equal(t, "recyclable", first["type"])
	assert.Contains(t, first, "bbox")
	assert.Equal(t, "unknown", dets[1].(map[string]any)["type"])
	assert.Equal(t, map[string]any{"recyclable": 50.0, "unknown": 50.0}, def["percentages"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/v1/profile", "/api/v1/user-records", "/api/v1/statistics"} {
		w, body := s.do(t, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, "Invalid authentication credentials", body["error"])
	}
}

func TestAccountAndRecordFlow(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, jsonRequest(http.MethodPost, "/api/v1/register",
		map[string]string{"name": "Ann", "email": "a@b.com", "password": "hunter22"}, ""))
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = s.do(t, jsonRequest(http.MethodPost, "/api/v1/register",
		map[string]string{"name": "Ann", "email": "a@b.com", "password": "hunter22"}, ""))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, jsonRequest(http.MethodPost, "/api/v1/login",
		map[string]string{"email": "a@b.com", "password": "wrong"}, ""))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, jsonRequest(http.MethodPost, "/api/v1/login",
		map[string]string{"email": "ghost@b.com", "password": "x"}, ""))
	require.Equal(t, http.StatusNotFound, w.Code)

	w, body := s.do(t, jsonRequest(http.MethodPost, "/api/v1/login",
		map[string]string{"email": "a@b.com", "password": "hunter22"}, ""))
	require.Equal(t, http.StatusOK, w.Code)
	token := body["token"].(string)
	user := body["user"].(map[string]any)
	assert.NotContains(t, user, "PasswordHash")
	assert.NotContains(t, user, "password_hash")

	w, body = s.do(t, jsonRequest(http.MethodGet, "/api/v1/profile", nil, token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a@b.com", body["data"].(map[string]any)["email"])

	req := multipartRequest(t, "/api/v1/save-record", "image", "bottle.png", pngUpload(t), map[string]string{
		"waste_type": "bottle",
		"category":   "recyclable",
		"confidence": "91.5",
		"recyclable": "true",
	})
	req.Header.Set("Authorization", "Bearer "+token)
	w, body = s.do(t, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	record := body["data"].(map[string]any)
	item := record["items"].([]any)[0].(map[string]any)
	assert.InDelta(t, 0.915, item["confidence"], 1e-9)
	assert.Equal(t, true, item["recyclable"])
	recordID := record["id"].(string)

	w, body = s.do(t, jsonRequest(http.MethodGet, "/api/v1/user-records", nil, token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["data"], 1)

	w, body = s.do(t, jsonRequest(http.MethodGet, "/api/v1/statistics", nil, token))
	require.Equal(t, http.StatusOK, w.Code)
	stats := body["data"].(map[string]any)
	assert.Equal(t, float64(1), stats["total_records"])

	w, _ = s.do(t, jsonRequest(http.MethodGet, "/api/v1/user-records/"+recordID, nil, token))
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, jsonRequest(http.MethodDelete, "/api/v1/user-records/"+recordID, nil, token))
	require.Equal(t, http.StatusNoContent, w.Code)

	w, _ = s.do(t, jsonRequest(http.MethodGet, "/api/v1/user-records/"+recordID, nil, token))
	require.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, jsonRequest(http.MethodGet, "/api/v1/user-records/not-a-uuid", nil, token))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaveRecord_MissingImage(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(t, jsonRequest(http.MethodPost, "/api/v1/register",
		map[string]string{"name": "Ann", "email": "a@b.com", "password": "pw"}, ""))
	require.Equal(t, http.StatusCreated, w.Code)
	w, body := s.do(t, jsonRequest(http.MethodPost, "/api/v1/login",
		map[string]string{"email": "a@b.com", "password": "pw"}, ""))
	require.Equal(t, http.StatusOK, w.Code)

	req := multipartRequest(t, "/api/v1/save-record", "", "", nil, map[string]string{"category": "recyclable"})
	req.Header.Set("Authorization", "Bearer "+body["token"].(string))
	w, _ = s.do(t, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPanicIsRecovered(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(config.ServerConfig{}, zerolog.Nop())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequestTimeoutSetsDeadline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(config.ServerConfig{RequestTimeout: time.Minute}, zerolog.Nop())
	r.GET("/deadline", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		c.JSON(http.StatusOK, gin.H{"deadline": ok})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/deadline", nil))
	assert.JSONEq(t, `{"deadline":true}`, w.Body.String())
}
