// Package imagestore stores uploaded post images as resized WebP files on
// local disk and serves them back by URL.
package imagestore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"ravencube/internal/config"
	"ravencube/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMaxUploadSizeMB = 5
	DefaultMaxDimension    = 800
	WebPQuality            = 80
)

// Store is the image collaborator used by the content services.
type Store interface {
	Upload(ctx context.Context, data []byte, mimetype, folder string) (string, error)
	Delete(ctx context.Context, url string) error
}

// DiskStore writes images under dir and addresses them below baseURL.
type DiskStore struct {
	dir          string
	baseURL      string
	maxBytes     int64
	maxDimension int
}

// NewDiskStore builds a DiskStore from the media settings in cfg.
func NewDiskStore(cfg *config.Config) *DiskStore {
	s := &DiskStore{
		dir:          "./media",
		baseURL:      "/media",
		maxBytes:     DefaultMaxUploadSizeMB * 1024 * 1024,
		maxDimension: DefaultMaxDimension,
	}
	if cfg == nil {
		return s
	}
	if cfg.MediaDir != "" {
		s.dir = cfg.MediaDir
	}
	if cfg.MediaBaseURL != "" {
		s.baseURL = strings.TrimRight(cfg.MediaBaseURL, "/")
	}
	if cfg.ImageMaxUploadSizeMB > 0 {
		s.maxBytes = int64(cfg.ImageMaxUploadSizeMB) * 1024 * 1024
	}
	if cfg.ImageMaxDimension > 0 {
		s.maxDimension = cfg.ImageMaxDimension
	}
	return s
}

// Dir is the root directory that holds stored media.
func (s *DiskStore) Dir() string { return s.dir }

// Upload validates, resizes and re-encodes data, and returns its public URL.
// Identical images land on the same content-addressed file.
func (s *DiskStore) Upload(_ context.Context, data []byte, mimetype, folder string) (string, error) {
	if len(data) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if !strings.HasPrefix(normalizeContentType(mimetype), "image/") {
		return "", models.NewValidationError("Only image files are allowed")
	}
	if int64(len(data)) > s.maxBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes/(1024*1024)))
	}
	folder, err := cleanFolder(folder)
	if err != nil {
		return "", err
	}

	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}

	resized := resizeToFit(decoded, s.maxDimension, s.maxDimension)
	encoded, err := encodeWebP(resized, WebPQuality)
	if err != nil {
		return "", fmt.Errorf("encode webp: %w", err)
	}

	name := contentHash(encoded) + ".webp"
	if err := writeBytesToFile(filepath.Join(s.dir, filepath.FromSlash(folder), name), encoded); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return s.baseURL + "/" + path.Join(folder, name), nil
}

// Delete removes the file behind url. Unknown or already removed images are
// not an error.
func (s *DiskStore) Delete(_ context.Context, url string) error {
	rel, ok := s.relativePath(url)
	if !ok {
		return fmt.Errorf("image url %q is not served by this store", url)
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(rel)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// PublicID returns the stored name of an image URL without its extension.
func PublicID(url string) string {
	base := path.Base(url)
	return strings.TrimSuffix(base, path.Ext(base))
}

func (s *DiskStore) relativePath(url string) (string, bool) {
	rel, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok || rel == "" {
		return "", false
	}
	clean := path.Clean(rel)
	if clean == "." || strings.HasPrefix(clean, "..") || path.IsAbs(clean) {
		return "", false
	}
	id := PublicID(clean)
	if !isValidHash(id) {
		return "", false
	}
	return path.Join(path.Dir(clean), id+".webp"), true
}

func cleanFolder(folder string) (string, error) {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "" {
		return "uploads", nil
	}
	clean := path.Clean(folder)
	if clean == "." || strings.HasPrefix(clean, "..") || strings.Contains(clean, "/../") {
		return "", models.NewValidationError("Invalid upload folder")
	}
	return clean, nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// isValidHash checks that the id is strictly lowercase hex so it cannot
// escape the media directory.
func isValidHash(id string) bool {
	if len(id) == 0 || len(id) > 128 {
		return false
	}
	for _, c := range id {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func writeBytesToFile(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o600)
}
