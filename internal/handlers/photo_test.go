package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hookupza/apiserver/config"
	"github.com/hookupza/apiserver/internal/logging"
	"github.com/hookupza/apiserver/internal/services"
	"github.com/hookupza/apiserver/internal/storage"
	"github.com/hookupza/apiserver/types"
)

var testPNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func newPhotoRouter(t *testing.T, api *testAPI) http.Handler {
	t.Helper()

	client, err := storage.NewLocalClient(config.LocalConfig{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	logger := logging.NewWithWriter(io.Discard, "error", false)
	photoService := services.NewPhotoService(storage.NewStorage(client, ""), 0)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		PhotoRouter(r, photoService, api.users, api.sessions.RequireAuth, logger)
	})
	router.Route("/uploads", func(r chi.Router) {
		UploadsRouter(r, photoService, logger)
	})
	return router
}

func multipartPhoto(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(formFieldPhoto, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestUploadServeAndDeletePhoto(t *testing.T) {
	api := newTestAPI(t)
	router := newPhotoRouter(t, api)
	owner := api.register(t, "photographer", types.AccountFree)
	stranger := api.register(t, "stranger", types.AccountFree)

	body, contentType := multipartPhoto(t, "pic.png", testPNG)
	req := httptest.NewRequest(http.MethodPost, "/api/upload_photo", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+api.tokenFor(t, owner.ID))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var uploaded UploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&uploaded); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	if uploaded.URL != "/uploads/"+uploaded.Filename {
		t.Fatalf("unexpected url %q", uploaded.URL)
	}

	serve := httptest.NewRecorder()
	router.ServeHTTP(serve, httptest.NewRequest(http.MethodGet, uploaded.URL, nil))
	if serve.Code != http.StatusOK || !bytes.Equal(serve.Body.Bytes(), testPNG) {
		t.Fatalf("serve: expected stored bytes, got %d", serve.Code)
	}

	deleteAs := func(userID int) int {
		payload, _ := json.Marshal(DeletePhotoRequest{Filename: uploaded.Filename})
		req := httptest.NewRequest(http.MethodDelete, "/api/delete_photo", bytes.NewReader(payload))
		req.Header.Set("Authorization", "Bearer "+api.tokenFor(t, userID))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}
	if code := deleteAs(stranger.ID); code != http.StatusForbidden {
		t.Fatalf("stranger delete: expected 403, got %d", code)
	}
	if code := deleteAs(owner.ID); code != http.StatusOK {
		t.Fatalf("owner delete: expected 200, got %d", code)
	}
	if code := deleteAs(owner.ID); code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", code)
	}
}

func TestUploadRejectsNonImages(t *testing.T) {
	api := newTestAPI(t)
	router := newPhotoRouter(t, api)
	owner := api.register(t, "uploader", types.AccountFree)

	body, contentType := multipartPhoto(t, "notes.txt", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload_photo", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+api.tokenFor(t, owner.ID))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
