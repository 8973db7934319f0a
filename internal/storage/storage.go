// Package storage uploads post attachments to blob storage and returns
// their public URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"path"
	"strconv"
	"strings"
	"time"
)

// Uploader stores one object under objectPath and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

// AttachmentPath namespaces an upload by user and a timestamp plus random
// suffix: posts/<user>/<unix-ms>-<suffix>.<ext>.
func AttachmentPath(userID, fileName string, now time.Time, suffix string) string {
	name := fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
	if ext := strings.TrimPrefix(path.Ext(fileName), "."); ext != "" {
		name += "." + strings.ToLower(ext)
	}
	return path.Join("posts", userID, name)
}

// RandomSuffix is a short base36 token.
func RandomSuffix() string {
	s := strconv.FormatUint(rand.Uint64(), 36)
	if len(s) > 6 {
		s = s[:6]
	}
	return s
}
