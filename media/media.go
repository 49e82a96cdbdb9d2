package media

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"bookit/utils"

	"github.com/disintegration/imaging"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

const (
	maxUploadSize = 10 << 20
	thumbWidth    = 300
	servicesDir   = "services"
)

var allowedExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true,
}

// ImageStore keeps uploaded images on local disk below root and serves them
// under urlPrefix.
type ImageStore struct {
	root      string
	urlPrefix string
	baseURL   string
	logger    *zap.Logger
}

func NewImageStore(root, urlPrefix, baseURL string, logger *zap.Logger) *ImageStore {
	return &ImageStore{
		root:      root,
		urlPrefix: urlPrefix,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		logger:    logger,
	}
}

// Root is the directory served under the url prefix.
func (s *ImageStore) Root() string { return s.root }

// SaveServiceImage decodes src, stores it with a unique name plus a
// thumbnail and returns its path relative to the url prefix.
func (s *ImageStore) SaveServiceImage(src io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	if !allowedExt[ext] {
		return "", fmt.Errorf("unsupported image type %q", ext)
	}

	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	name := strings.ReplaceAll(utils.GetUUID(), "-", "") + ext
	dir := filepath.Join(s.root, servicesDir)
	thumbDir := filepath.Join(dir, "thumb")
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	if err := imaging.Save(img, filepath.Join(dir, name)); err != nil {
		return "", fmt.Errorf("failed to save original image: %w", err)
	}
	thumb := imaging.Resize(img, thumbWidth, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, filepath.Join(thumbDir, name)); err != nil {
		return "", fmt.Errorf("failed to save thumbnail: %w", err)
	}

	return path.Join(servicesDir, name), nil
}

// URL turns a stored path into an absolute URL for r.
func (s *ImageStore) URL(r *http.Request, rel string) string {
	base := s.baseURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		} else if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
			scheme = p
		}
		base = scheme + "://" + r.Host
	}
	return base + s.urlPrefix + rel
}

// POST /api/uploads/service-image/
func (s *ImageStore) UploadServiceImage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "No file uploaded (expected field 'file')")
		return
	}
	defer file.Close()

	rel, err := s.SaveServiceImage(file, header.Filename)
	if err != nil {
		s.logger.Warn("service image rejected", zap.String("filename", header.Filename), zap.Error(err))
		utils.RespondWithError(w, http.StatusBadRequest, "Unsupported or unreadable image")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"url": s.URL(r, rel)})
}
