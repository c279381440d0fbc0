// Package storage holds uploaded files such as avatars and hands back the
// URL they can be downloaded from.
package storage

import (
	"context"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

var (
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrTooLarge         = errors.New("file too large")
	ErrEmpty            = errors.New("file is empty")
)

// BlobStore stores opaque blobs under slash separated keys
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

var imageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// DetectImage sniffs data and returns its MIME type if it is an accepted
// image no larger than maxBytes
func DetectImage(data []byte, maxBytes int64) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", ErrTooLarge
	}
	mt := mimetype.Detect(data)
	if !imageTypes[mt.String()] {
		return "", errors.Wrapf(ErrUnsupportedMedia, "got %s", mt.String())
	}
	return mt.String(), nil
}

// AvatarKey is the blob key of a user's avatar
func AvatarKey(userID string) string {
	return "avatars/" + userID
}

func cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, "..") || strings.ContainsRune(key, '\\') {
		return "", errors.Errorf("invalid blob key %q", key)
	}
	return key, nil
}
