// Package upload stores user-submitted images on local disk under a single
// uploads directory served statically at /uploads.
package upload

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ayutane/daylink/apperr"
	"go.uber.org/zap"
)

// URLPrefix is the public path prefix under which stored files are served.
const URLPrefix = "/uploads/"

// AvatarsSubdir holds avatar images inside the uploads directory.
const AvatarsSubdir = "avatars"

var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Store saves and removes uploaded images.
type Store struct {
	root      string
	maxImage  int64
	maxAvatar int64
	log       *zap.Logger
}

// NewStore creates the uploads directory (and avatars subdirectory) if needed.
func NewStore(root string, maxImageMB, maxAvatarMB int64, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, AvatarsSubdir), 0o755); err != nil {
		return nil, fmt.Errorf("upload: create dirs: %w", err)
	}
	return &Store{
		root:      root,
		maxImage:  maxImageMB * 1024 * 1024,
		maxAvatar: maxAvatarMB * 1024 * 1024,
		log:       log,
	}, nil
}

// SaveEventImage stores an event image and returns its /uploads/... reference.
func (s *Store) SaveEventImage(fh *multipart.FileHeader) (string, error) {
	return s.save(fh, "", s.maxImage)
}

// SaveAvatar stores an avatar image and returns its /uploads/avatars/... reference.
func (s *Store) SaveAvatar(fh *multipart.FileHeader) (string, error) {
	return s.save(fh, AvatarsSubdir, s.maxAvatar)
}

func (s *Store) save(fh *multipart.FileHeader, subdir string, maxSize int64) (string, error) {
	if fh.Size > maxSize {
		return "", apperr.Newf(apperr.Validation, "file too large, maximum allowed is %dMB", maxSize/(1024*1024))
	}
	mimeType := fh.Header.Get("Content-Type")
	if !allowedMimeTypes[mimeType] {
		return "", apperr.Newf(apperr.Validation, "unsupported file type %s, only JPEG, PNG, GIF and WebP are allowed", mimeType)
	}

	name := uniqueName(fh.Filename)
	dst := filepath.Join(s.root, subdir, name)
	if err := saveFile(fh, dst); err != nil {
		return "", apperr.Wrap(err, apperr.Internal, "failed to store file")
	}

	ref := URLPrefix + name
	if subdir != "" {
		ref = URLPrefix + subdir + "/" + name
	}
	return ref, nil
}

// uniqueName builds "<unix-ms>-<16 hex><ext>" from the original filename.
func uniqueName(original string) string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	ext := strings.ToLower(filepath.Ext(original))
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), hex.EncodeToString(buf), ext)
}

func saveFile(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}

// Remove deletes a stored file by its reference. The reference may be a
// relative /uploads/... path or an absolute URL whose path falls under
// /uploads/. A missing file is not an error; anything else is logged and
// returned so callers can decide whether it matters.
func (s *Store) Remove(ref string) error {
	if ref == "" {
		return nil
	}

	p := ref
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		u, err := url.Parse(ref)
		if err != nil {
			s.log.Warn("upload: unparseable file reference", zap.String("ref", ref))
			return err
		}
		p = u.Path
	}
	if !strings.HasPrefix(p, URLPrefix) {
		s.log.Warn("upload: reference outside uploads namespace", zap.String("ref", ref))
		return nil
	}

	rel := strings.TrimPrefix(p, URLPrefix)
	// path.Clean guards against ../ escapes in stored references.
	rel = path.Clean("/" + rel)[1:]
	abs := filepath.Join(s.root, filepath.FromSlash(rel))

	err := os.Remove(abs)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		s.log.Error("upload: remove failed", zap.String("path", abs), zap.Error(err))
		return err
	}
	return nil
}

// AbsoluteURL rewrites a stored /uploads/... reference to an absolute URL
// using the request's observed scheme and host. Already-absolute references
// pass through unchanged. All read paths share this one helper.
func AbsoluteURL(scheme, host, ref string) string {
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return scheme + "://" + host + ref
}
