package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/UnendingLoop/BackgroundRemover/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestBatchHandler_Ping(t *testing.T) {
	r := gin.New()
	h := NewBatchHandler(nil, "", 0)

	r.GET("/ping", wrap(h.SimplePinger))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "pong", body["message"])
}

func TestBatchHandler_Models(t *testing.T) {
	r := gin.New()
	h := NewBatchHandler(&mockBatchService{}, "", 0)
	r.GET("/models", wrap(h.Models))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/models", nil))

	require.Equal(t, 200, w.Code)
	var body []model.ModelInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 1)
	require.Equal(t, model.ModelGeneral, body[0].ID)
}

func newMultipartRequest(t *testing.T, fields map[string]string, files map[string][]byte) *http.Request {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for name, content := range files {
		fw, err := w.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/batches", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestBatchHandler_CreateBatch(t *testing.T) {
	tests := []struct {
		name       string
		req        *http.Request
		mock       *mockBatchService
		wantStatus int
	}{
		{
			name: "success",
			req: newMultipartRequest(t,
				map[string]string{"model": "u2netp", "alpha_matting": "true"},
				map[string][]byte{"cat.png": []byte("img")},
			),
			mock: &mockBatchService{
				runBatchFn: func(ctx context.Context, images []model.SourceImage, opts model.BatchOptions) (*model.BatchSummary, error) {
					require.Len(t, images, 1)
					require.Equal(t, "cat.png", images[0].Filename)
					require.Equal(t, []byte("img"), images[0].Data)
					require.Equal(t, model.ModelLightWght, opts.Model)
					require.True(t, opts.AlphaMatting)
					return &model.BatchSummary{ID: uuid.New(), Total: 1, Processed: 1}, nil
				},
			},
			wantStatus: 200,
		},
		{
			name:       "not multipart",
			req:        httptest.NewRequest(http.MethodPost, "/batches", bytes.NewBufferString("{}")),
			mock:       &mockBatchService{},
			wantStatus: 400,
		},
		{
			name: "no images",
			req:  newMultipartRequest(t, map[string]string{"model": "u2net"}, nil),
			mock: &mockBatchService{
				runBatchFn: func(ctx context.Context, images []model.SourceImage, opts model.BatchOptions) (*model.BatchSummary, error) {
					require.Empty(t, images)
					return nil, model.ErrNoImages
				},
			},
			wantStatus: 400,
		},
		{
			name: "unknown model",
			req:  newMultipartRequest(t, map[string]string{"model": "sam"}, map[string][]byte{"a.png": []byte("x")}),
			mock: &mockBatchService{
				runBatchFn: func(ctx context.Context, images []model.SourceImage, opts model.BatchOptions) (*model.BatchSummary, error) {
					return nil, model.ErrIncorrectModel
				},
			},
			wantStatus: 400,
		},
		{
			name: "model load failure",
			req:  newMultipartRequest(t, nil, map[string][]byte{"a.png": []byte("x")}),
			mock: &mockBatchService{
				runBatchFn: func(ctx context.Context, images []model.SourceImage, opts model.BatchOptions) (*model.BatchSummary, error) {
					return nil, fmt.Errorf("%w %q: %w", model.ErrModelLoad, model.ModelGeneral, errors.New("missing weights"))
				},
			},
			wantStatus: 500,
		},
		{
			name: "cancelled by newer batch",
			req:  newMultipartRequest(t, nil, map[string][]byte{"a.png": []byte("x")}),
			mock: &mockBatchService{
				runBatchFn: func(ctx context.Context, images []model.SourceImage, opts model.BatchOptions) (*model.BatchSummary, error) {
					return nil, model.ErrBatchCancelled
				},
			},
			wantStatus: 409,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			h := NewBatchHandler(tt.mock, "", 0)
			r.POST("/batches", wrap(h.CreateBatch))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, tt.req)

			require.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestBatchHandler_CreateBatch_TooLarge(t *testing.T) {
	r := gin.New()
	h := NewBatchHandler(&mockBatchService{}, "", 16)
	r.POST("/batches", wrap(h.CreateBatch))

	req := newMultipartRequest(t, nil, map[string][]byte{"a.png": bytes.Repeat([]byte("x"), 1024)})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, 413, w.Code)
}

func TestBatchHandler_Progress(t *testing.T) {
	id := uuid.New()
	r := gin.New()
	h := NewBatchHandler(&mockBatchService{progressFn: func() model.Progress {
		return model.Progress{BatchID: id, Value: 0.5, Running: true, Total: 4, Finished: 2}
	}}, "", 0)
	r.GET("/batches/progress", wrap(h.Progress))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/batches/progress", nil))

	require.Equal(t, 200, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 0.5, body["progress"])
	require.Equal(t, true, body["running"])
	require.Equal(t, id.String(), body["batch_id"])
}

func TestBatchHandler_GetHistory(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		mock       *mockBatchService
		wantStatus int
	}{
		{
			name: "success",
			url:  "/batches?page=2&limit=5&order=ascend",
			mock: &mockBatchService{
				getHistoryFn: func(ctx context.Context, req *model.ListRequest) ([]model.BatchSummary, error) {
					require.Equal(t, 2, req.Page)
					require.Equal(t, 5, req.Limit)
					require.Equal(t, "ascend", req.Order)
					return []model.BatchSummary{{ID: uuid.New()}}, nil
				},
			},
			wantStatus: 200,
		},
		{
			name:       "bad query",
			url:        "/batches?page=abc",
			mock:       &mockBatchService{},
			wantStatus: 400,
		},
		{
			name: "service error",
			url:  "/batches",
			mock: &mockBatchService{
				getHistoryFn: func(ctx context.Context, req *model.ListRequest) ([]model.BatchSummary, error) {
					return nil, model.ErrCommon500
				},
			},
			wantStatus: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			h := NewBatchHandler(tt.mock, "", 0)
			r.GET("/batches", wrap(h.GetHistory))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))

			require.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestBatchHandler_ListResults(t *testing.T) {
	r := gin.New()
	h := NewBatchHandler(&mockBatchService{listResultsFn: func(ctx context.Context) []model.ResultInfo {
		return []model.ResultInfo{{Filename: "cat.jpg", DownloadName: "no_bg_cat.png", Size: 3}}
	}}, "", 0)
	r.GET("/results", wrap(h.ListResults))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/results", nil))

	require.Equal(t, 200, w.Code)
	var body []model.ResultInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "no_bg_cat.png", body[0].DownloadName)
}

func TestBatchHandler_LoadResult(t *testing.T) {
	tests := []struct {
		name       string
		mock       *mockBatchService
		wantStatus int
		wantBody   []byte
	}{
		{
			name: "success",
			mock: &mockBatchService{
				loadResultFn: func(ctx context.Context, filename string) (*model.ProcessedResult, error) {
					require.Equal(t, "cat.jpg", filename)
					return &model.ProcessedResult{Filename: filename, Payload: []byte("png"), Success: true}, nil
				},
			},
			wantStatus: 200,
			wantBody:   []byte("png"),
		},
		{
			name: "not found",
			mock: &mockBatchService{
				loadResultFn: func(ctx context.Context, filename string) (*model.ProcessedResult, error) {
					return nil, model.ErrResultNotFound
				},
			},
			wantStatus: 404,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			h := NewBatchHandler(tt.mock, "", 0)
			r.GET("/results/:name", wrap(h.LoadResult))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/results/cat.jpg", nil))

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != nil {
				require.Equal(t, tt.wantBody, w.Body.Bytes())
				require.Equal(t, model.PNG, w.Header().Get("Content-Type"))
				require.Equal(t, "attachment; filename=no_bg_cat.png", w.Header().Get("Content-Disposition"))
			}
		})
	}
}

func TestBatchHandler_LoadArchive(t *testing.T) {
	tests := []struct {
		name       string
		mock       *mockBatchService
		wantStatus int
	}{
		{
			name: "success",
			mock: &mockBatchService{
				archiveFn: func(ctx context.Context) ([]byte, error) {
					return []byte("PK"), nil
				},
			},
			wantStatus: 200,
		},
		{
			name: "empty store",
			mock: &mockBatchService{
				archiveFn: func(ctx context.Context) ([]byte, error) {
					return nil, model.ErrEmptyStore
				},
			},
			wantStatus: 404,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			h := NewBatchHandler(tt.mock, "bundle.zip", 0)
			r.GET("/archive", wrap(h.LoadArchive))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/archive", nil))

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == 200 {
				require.Equal(t, model.ZIP, w.Header().Get("Content-Type"))
				require.Equal(t, "attachment; filename=bundle.zip", w.Header().Get("Content-Disposition"))
			}
		})
	}
}

func TestBatchHandler_ClearResults(t *testing.T) {
	mock := &mockBatchService{}
	r := gin.New()
	h := NewBatchHandler(mock, "", 0)
	r.DELETE("/results", wrap(h.ClearResults))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/results", nil))

	require.Equal(t, 204, w.Code)
	require.Equal(t, 1, mock.cleared)
}

func TestErrorCodeDefiner(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{model.ErrCommon500, 500},
		{fmt.Errorf("%w: x", model.ErrModelLoad), 500},
		{model.ErrResultNotFound, 404},
		{model.ErrEmptyStore, 404},
		{model.ErrBatchCancelled, 409},
		{model.ErrIncorrectQuery, 400},
		{model.ErrIncorrectModel, 400},
		{model.ErrNoImages, 400},
		{errors.New("unknown"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			require.Equal(t, tt.want, errorCodeDefiner(tt.err))
		})
	}
}

func TestBatchHandler_LoadResult_Preview(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantStatus int
	}{
		{"success", "/results/cat.jpg?preview=160", 200},
		{"not a number", "/results/cat.jpg?preview=big", 400},
		{"out of range", "/results/cat.jpg?preview=5000", 400},
	}

	mock := &mockBatchService{
		previewFn: func(ctx context.Context, filename string, size int) ([]byte, error) {
			require.Equal(t, "cat.jpg", filename)
			if size > 1024 {
				return nil, model.ErrIncorrectQuery
			}
			return []byte("thumb"), nil
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			h := NewBatchHandler(mock, "", 0)
			r.GET("/results/:name", wrap(h.LoadResult))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == 200 {
				require.Equal(t, []byte("thumb"), w.Body.Bytes())
			}
		})
	}
}

func TestRegisterRoutes_ResultNamedArchive(t *testing.T) {
	var loaded string
	mock := &mockBatchService{
		loadResultFn: func(ctx context.Context, filename string) (*model.ProcessedResult, error) {
			loaded = filename
			return &model.ProcessedResult{Filename: filename, Payload: []byte("png"), Success: true}, nil
		},
		archiveFn: func(ctx context.Context) ([]byte, error) {
			return []byte("zip"), nil
		},
	}
	r := gin.New()
	RegisterRoutes(r, NewBatchHandler(mock, "bundle.zip", 0))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/results/archive", nil))
	require.Equal(t, 200, w.Code)
	require.Equal(t, "archive", loaded)
	require.Equal(t, model.PNG, w.Header().Get("Content-Type"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/archive", nil))
	require.Equal(t, 200, w.Code)
	require.Equal(t, model.ZIP, w.Header().Get("Content-Type"))
	require.Equal(t, []byte("zip"), w.Body.Bytes())
}
