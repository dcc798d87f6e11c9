// Package storage provides the object store used for document files.
// Keys are namespaced per user so ownership checks never depend on the
// storage layer.
package storage

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ObjectStore is the contract the rest of the application uses for blob
// storage. The production implementation targets any S3-compatible service.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	PublicURL(key string) string
	Remove(ctx context.Context, key string) error
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// ObjectKey builds the storage key for a user's file:
// user_<id>/<unix-ms>_<sanitized-filename>.
func ObjectKey(userID, filename string) string {
	sanitized := whitespaceRe.ReplaceAllString(strings.TrimSpace(filename), "-")
	return fmt.Sprintf("user_%s/%d_%s", userID, time.Now().UnixMilli(), sanitized)
}
