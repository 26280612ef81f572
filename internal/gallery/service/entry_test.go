package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/cat-gallery/internal/gallery/biz"
	"github.com/lk2023060901/cat-gallery/internal/gallery/classifier"
	"github.com/lk2023060901/cat-gallery/internal/gallery/data"
	"github.com/lk2023060901/cat-gallery/internal/pkg/database/databasetest"
	apperrors "github.com/lk2023060901/cat-gallery/internal/pkg/errors"
	"github.com/lk2023060901/cat-gallery/internal/pkg/logger"
	"github.com/lk2023060901/cat-gallery/internal/pkg/workerpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeClassifier struct {
	isCat bool
	err   error
	calls int
}

func (f *fakeClassifier) Enabled() bool { return true }

func (f *fakeClassifier) Classify(context.Context, string, []byte) (classifier.Result, error) {
	f.calls++
	if f.err != nil {
		return classifier.Result{}, f.err
	}
	return classifier.Result{IsCat: f.isCat, CatProbability: 0.9}, nil
}

type fakeSource struct{}

func (fakeSource) Random(context.Context) (biz.NewEntry, error) {
	return biz.NewEntry{
		Title:       "mj",
		Description: "Importiert von thecatapi.com",
		Rating:      5,
		Filename:    "mj.png",
		Bytes:       base64.StdEncoding.EncodeToString(pngHeader),
	}, nil
}

type envelope struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

type testServer struct {
	router *gin.Engine
	dir    string
}

func newTestServer(t *testing.T, cls Classifier) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := data.NewEntryRepo(databasetest.New(t))
	require.NoError(t, repo.Migrate())

	dir := filepath.Join(t.TempDir(), "uploads")
	blobs := data.NewLocalBlobStore(dir, logger.Nop())
	uc := biz.NewEntryUseCase(repo, blobs, nil, logger.Nop())

	pool, err := workerpool.New(&workerpool.Config{Workers: 2}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(pool.Shutdown)
	importer := biz.NewImportUseCase(uc, fakeSource{}, pool, logger.Nop())

	r := gin.New()
	NewEntryService(uc, importer, cls, logger.Nop()).RegisterRoutes(r.Group("/api/v1"), r)
	return &testServer{router: r, dir: dir}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return s.serve(t, req)
}

func (s *testServer) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func catRequest(title string) EntryRequest {
	return EntryRequest{
		Title:    title,
		Rating:   7,
		Filename: "cat.png",
		Bytes:    base64.StdEncoding.EncodeToString(pngHeader),
	}
}

func decodeEntry(t *testing.T, env envelope) EntryResponse {
	t.Helper()
	var e EntryResponse
	require.NoError(t, json.Unmarshal(env.Data, &e))
	return e
}

func TestEntryService_CreateGetAndServeImage(t *testing.T) {
	s := newTestServer(t, nil)

	w, env := s.do(t, http.MethodPost, "/api/v1/entries", catRequest("Minka"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeEntry(t, env)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, created.ID+"_cat.png", created.Filename)
	assert.Equal(t, "/images/"+created.Filename, created.URL)
	assert.Equal(t, biz.Digest(pngHeader), created.Hash)

	w, env = s.do(t, http.MethodGet, "/api/v1/entries/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Minka", decodeEntry(t, env).Title)

	w, _ = s.serve(t, httptest.NewRequest(http.MethodGet, created.URL, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, pngHeader, w.Body.Bytes())
}

func TestEntryService_CreateMultipart(t *testing.T) {
	s := newTestServer(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "Upload"))
	require.NoError(t, mw.WriteField("rating", "3"))
	part, err := mw.CreateFormFile("picture", "garden.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w, env := s.serve(t, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	created := decodeEntry(t, env)
	assert.Equal(t, created.ID+"_garden.jpg", created.Filename)
	stored, err := os.ReadFile(filepath.Join(s.dir, created.Filename))
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(stored))
}

func TestEntryService_CreateValidation(t *testing.T) {
	s := newTestServer(t, nil)

	w, env := s.do(t, http.MethodPost, "/api/v1/entries", EntryRequest{Rating: 11})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrEntryInvalid, env.Code)
	assert.Equal(t, biz.MsgTitleRequired, env.Errors[biz.FieldTitle])
	assert.Equal(t, biz.MsgPictureRequired, env.Errors[biz.FieldPicture])
	assert.Equal(t, biz.MsgRatingRange, env.Errors[biz.FieldRating])

	entries, err := os.ReadDir(s.dir)
	if err == nil {
		assert.Empty(t, entries)
	}
}

func TestEntryService_Classifier(t *testing.T) {
	t.Run("rejects non-cat", func(t *testing.T) {
		cls := &fakeClassifier{isCat: false}
		s := newTestServer(t, cls)

		w, env := s.do(t, http.MethodPost, "/api/v1/entries", catRequest("Dog"))
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, biz.MsgNotACat, env.Errors[biz.FieldPicture])
		assert.Equal(t, 1, cls.calls)
	})

	t.Run("service down", func(t *testing.T) {
		s := newTestServer(t, &fakeClassifier{err: errors.New("connection refused")})

		w, env := s.do(t, http.MethodPost, "/api/v1/entries", catRequest("Minka"))
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, apperrors.ErrClassifierFailed, env.Code)
	})

	t.Run("unpadded bytes are classified", func(t *testing.T) {
		cls := &fakeClassifier{isCat: false}
		s := newTestServer(t, cls)

		req := catRequest("Dog")
		req.Bytes = base64.RawStdEncoding.EncodeToString(pngHeader)
		w, env := s.do(t, http.MethodPost, "/api/v1/entries", req)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, biz.MsgNotACat, env.Errors[biz.FieldPicture])
		assert.Equal(t, 1, cls.calls)
		assert.NoDirExists(t, s.dir)
	})

	t.Run("metadata-only update skips classifier", func(t *testing.T) {
		cls := &fakeClassifier{isCat: true}
		s := newTestServer(t, cls)

		_, env := s.do(t, http.MethodPost, "/api/v1/entries", catRequest("Minka"))
		id := decodeEntry(t, env).ID

		w, _ := s.do(t, http.MethodPut, "/api/v1/entries/"+id, EntryRequest{Title: "Renamed", Rating: 2})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, 1, cls.calls)
	})
}

func TestEntryService_UpdateReplacesPicture(t *testing.T) {
	s := newTestServer(t, nil)

	_, env := s.do(t, http.MethodPost, "/api/v1/entries", catRequest("Minka"))
	before := decodeEntry(t, env)

	req := EntryRequest{
		Title:    "Minka",
		Rating:   9,
		Filename: "new.jpg",
		Bytes:    base64.StdEncoding.EncodeToString([]byte("other")),
	}
	w, env := s.do(t, http.MethodPut, "/api/v1/entries/"+before.ID, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	after := decodeEntry(t, env)
	assert.Equal(t, before.ID+"_new.jpg", after.Filename)
	assert.Equal(t, 9, after.Rating)
	assert.NoFileExists(t, filepath.Join(s.dir, before.Filename))
	assert.FileExists(t, filepath.Join(s.dir, after.Filename))
}

func TestEntryService_UpdateRejectsNestedFilename(t *testing.T) {
	s := newTestServer(t, nil)

	_, env := s.do(t, http.MethodPost, "/api/v1/entries", catRequest("Minka"))
	before := decodeEntry(t, env)

	req := EntryRequest{
		Title:    "Minka",
		Rating:   7,
		Filename: "sub/new.png",
		Bytes:    base64.StdEncoding.EncodeToString([]byte("other")),
	}
	w, env := s.do(t, http.MethodPut, "/api/v1/entries/"+before.ID, req)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, biz.MsgPictureRequired, env.Errors[biz.FieldPicture])

	_, env = s.do(t, http.MethodGet, "/api/v1/entries/"+before.ID, nil)
	assert.Equal(t, before.Filename, decodeEntry(t, env).Filename)
	assert.FileExists(t, filepath.Join(s.dir, before.Filename))
}

func TestEntryService_URLEscapesFilename(t *testing.T) {
	s := newTestServer(t, nil)

	req := catRequest("Minka")
	req.Filename = "my cat#1.png"
	w, env := s.do(t, http.MethodPost, "/api/v1/entries", req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	created := decodeEntry(t, env)
	assert.Equal(t, "/images/"+created.ID+"_my%20cat%231.png", created.URL)

	w, _ = s.serve(t, httptest.NewRequest(http.MethodGet, created.URL, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pngHeader, w.Body.Bytes())
}

func TestEntryService_UpdateMissing(t *testing.T) {
	s := newTestServer(t, nil)

	w, env := s.do(t, http.MethodPut, "/api/v1/entries/nope", EntryRequest{Title: "x", Rating: 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ErrEntryNotFound, env.Code)
}

func TestEntryService_Delete(t *testing.T) {
	s := newTestServer(t, nil)

	_, env := s.do(t, http.MethodPost, "/api/v1/entries", catRequest("Minka"))
	created := decodeEntry(t, env)

	w, _ := s.do(t, http.MethodDelete, "/api/v1/entries/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NoFileExists(t, filepath.Join(s.dir, created.Filename))

	w, _ = s.do(t, http.MethodDelete, "/api/v1/entries/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/entries/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ErrEntryNotFound, env.Code)
}

func TestEntryService_List(t *testing.T) {
	s := newTestServer(t, nil)

	for _, r := range []struct {
		title  string
		rating int
	}{{"Alpha", 2}, {"Beta", 8}, {"Gamma", 5}} {
		req := catRequest(r.title)
		req.Rating = r.rating
		w, _ := s.do(t, http.MethodPost, "/api/v1/entries", req)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	titles := func(env envelope) []string {
		var body struct {
			Items []EntryResponse `json:"items"`
			Total int             `json:"total"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &body))
		out := make([]string, len(body.Items))
		for i, item := range body.Items {
			out[i] = item.Title
		}
		assert.Len(t, out, body.Total)
		return out
	}

	_, env := s.do(t, http.MethodGet, "/api/v1/entries", nil)
	assert.Equal(t, []string{"Alpha", "Beta", "Gamma"}, titles(env))

	_, env = s.do(t, http.MethodGet, "/api/v1/entries?min_rating=4&sort=rating_desc", nil)
	assert.Equal(t, []string{"Beta", "Gamma"}, titles(env))

	_, env = s.do(t, http.MethodGet, "/api/v1/entries?search=AMM", nil)
	assert.Equal(t, []string{"Gamma"}, titles(env))

	w, env := s.do(t, http.MethodGet, "/api/v1/entries?sort=random", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrInvalidParams, env.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/entries?max_rating=11", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEntryService_Import(t *testing.T) {
	s := newTestServer(t, nil)

	w, env := s.do(t, http.MethodGet, "/api/v1/entries/import", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var draft DraftResponse
	require.NoError(t, json.Unmarshal(env.Data, &draft))
	assert.Equal(t, "mj.png", draft.Filename)
	assert.Equal(t, 5, draft.Rating)

	w, env = s.do(t, http.MethodPost, "/api/v1/entries/import?count=3", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var report struct {
		IDs    []string `json:"ids"`
		Failed int      `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Len(t, report.IDs, 3)
	assert.Zero(t, report.Failed)

	w, _ = s.do(t, http.MethodPost, "/api/v1/entries/import?count=21", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEntryService_ServeImageErrors(t *testing.T) {
	s := newTestServer(t, nil)

	w, env := s.serve(t, httptest.NewRequest(http.MethodGet, "/images/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ErrImageNotFound, env.Code)

	w, env = s.serve(t, httptest.NewRequest(http.MethodGet, `/images/a%5Cb.png`, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrBadRequest, env.Code)
}
