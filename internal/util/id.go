package util

import (
	"strings"

	"github.com/google/uuid"
)

func NewID() string {
	return uuid.NewString()
}

// NewSlug produces a short URL-safe identifier for documents that are
// created without an explicit slug.
func NewSlug() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
