package testutil

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"
)

// ImageStoreStub is an in-memory image store for tests. Setting UploadErr or
// DeleteErr makes the matching call fail.
type ImageStoreStub struct {
	mu        sync.Mutex
	nextID    int
	Uploaded  []string
	Deleted   []string
	UploadErr error
	DeleteErr error
}

// NewImageStoreStub creates an empty image store stub.
func NewImageStoreStub() *ImageStoreStub {
	return &ImageStoreStub{nextID: 1}
}

// Upload records the upload and returns a fake media URL.
func (s *ImageStoreStub) Upload(_ context.Context, _ []byte, _ string, folder string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UploadErr != nil {
		return "", s.UploadErr
	}
	url := fmt.Sprintf("https://media.test/%s/%d.webp", folder, s.nextID)
	s.nextID++
	s.Uploaded = append(s.Uploaded, url)
	return url, nil
}

// Delete records the URL as released.
func (s *ImageStoreStub) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	s.Deleted = append(s.Deleted, url)
	return nil
}

// DeletedURLs returns a copy of the released URLs.
func (s *ImageStoreStub) DeletedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Deleted...)
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t interface {
	Helper()
	Fatalf(string, ...any)
}, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
