package media

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSaveServiceImageWritesThumbnail(t *testing.T) {
	root := t.TempDir()
	store := NewImageStore(root, "/media/", "", zap.NewNop())

	rel, err := store.SaveServiceImage(bytes.NewReader(pngBytes(t, 600, 400)), "photo.PNG")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "services/"))
	assert.True(t, strings.HasSuffix(rel, ".png"))

	thumb, err := imaging.Open(filepath.Join(root, "services", "thumb", filepath.Base(rel)))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(300, 200), thumb.Bounds().Size())

	_, err = os.Stat(filepath.Join(root, rel))
	assert.NoError(t, err)
}

func TestSaveServiceImageRejects(t *testing.T) {
	store := NewImageStore(t.TempDir(), "/media/", "", zap.NewNop())

	_, err := store.SaveServiceImage(bytes.NewReader(pngBytes(t, 10, 10)), "script.exe")
	assert.Error(t, err)

	_, err = store.SaveServiceImage(strings.NewReader("not an image"), "fake.jpg")
	assert.Error(t, err)
}

func upload(t *testing.T, store *ImageStore, field string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "pic.png")
	require.NoError(t, err)
	fw.Write(data)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads/service-image/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	store.UploadServiceImage(rec, req, nil)
	return rec
}

func TestUploadServiceImage(t *testing.T) {
	store := NewImageStore(t.TempDir(), "/media/", "https://cdn.example", zap.NewNop())

	rec := upload(t, store, "file", pngBytes(t, 20, 20))
	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, strings.HasPrefix(out["url"], "https://cdn.example/media/services/"))

	rec = upload(t, store, "image", pngBytes(t, 20, 20))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"No file uploaded (expected field 'file')"}`, rec.Body.String())
}

func TestURLFromRequestHost(t *testing.T) {
	store := NewImageStore(t.TempDir(), "/media/", "", zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "http://api.example/x", nil)

	assert.Equal(t, "http://api.example/media/services/a.png", store.URL(req, "services/a.png"))

	req.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://api.example/media/services/a.png", store.URL(req, "services/a.png"))
}
