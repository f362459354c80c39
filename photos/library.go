package photos

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jrsteele09/secure-health/internal/errors"
)

// MaxListed is the most photos a library listing returns.
const MaxListed = 50

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".heic": true,
}

// Photo is an image file in the library.
type Photo struct {
	URI     string
	Name    string
	Size    int64
	ModTime time.Time
}

// Library lists the images of one directory.
type Library struct {
	dir string
}

func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

// List returns up to MaxListed images, newest first.
func (l *Library) List(ctx context.Context) ([]Photo, error) {
	entries, err := os.ReadDir(l.dir)
	switch {
	case errors.Is(err, fs.ErrPermission):
		return nil, errors.Wrapf(errors.ErrPermissionDenied, "read %s", l.dir)
	case errors.Is(err, fs.ErrNotExist):
		return nil, errors.Wrapf(errors.ErrNotFound, "read %s", l.dir)
	case err != nil:
		return nil, err
	}

	photos := make([]Photo, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !IsImage(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info
			continue
		}
		photos = append(photos, Photo{
			URI:     FileURI(filepath.Join(l.dir, e.Name())),
			Name:    e.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.SliceStable(photos, func(i, j int) bool {
		if photos[i].ModTime.Equal(photos[j].ModTime) {
			return photos[i].Name < photos[j].Name
		}
		return photos[i].ModTime.After(photos[j].ModTime)
	})
	if len(photos) > MaxListed {
		photos = photos[:MaxListed]
	}
	return photos, nil
}

// IsImage reports whether name has a supported image extension.
func IsImage(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// FileURI returns the file:// URI of path, made absolute when possible.
func FileURI(path string) string {
	if strings.HasPrefix(path, "file://") {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "file://" + filepath.ToSlash(path)
}

// PathFromURI strips the file:// scheme. Other URIs are returned unchanged.
func PathFromURI(uri string) string {
	return filepath.FromSlash(strings.TrimPrefix(uri, "file://"))
}
