package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Upload stores an image in the object store and returns its public URL.
func (s *Service) Upload(ctx context.Context, key, contentType string, size int64, r io.Reader) (string, error) {
	if s.uploads == nil {
		return "", domainError(http.StatusServiceUnavailable, "UPLOADS_UNAVAILABLE", "Uploads are not configured", nil)
	}
	url, err := s.uploads.Upload(ctx, key, contentType, size, r)
	if err != nil {
		return "", fmt.Errorf("upload asset: %w", err)
	}
	return url, nil
}
