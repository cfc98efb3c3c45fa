package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"
)

var (
	errNilImage = errors.New("image is nil")
	errZeroArea = errors.New("image has zero area")
)

// LoadError reports a sheet image that could not be turned into pixels: the
// file is unreadable, the bytes do not decode, or the decoded image has zero
// area. It is fatal for the detection pipeline; no partial result exists.
type LoadError struct {
	// Path is the file that failed, empty when the image arrived already
	// decoded.
	Path string

	// Err is the underlying cause.
	Err error
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("load image %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("load image: %v", e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ImageCache provides thread-safe caching of decoded sheet images so that
// repeated detection runs over the same scan (threshold tuning, detect then
// evaluate) do not pay for disk reads and decoding twice.
//
// Cached images remain in memory until Evict or Clear. Batch jobs over many
// sheets should evict each path once processed.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates an empty cache, ready for concurrent use.
func NewImageCache() *ImageCache {
	return &ImageCache{images: make(map[string]image.Image)}
}

// Load returns the decoded image for path, reading from disk only on the
// first call. PNG, JPEG, and GIF are supported. Failures are reported as
// *LoadError; zero-area images are rejected here rather than deeper in the
// pipeline.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if img.Bounds().Dx() <= 0 || img.Bounds().Dy() <= 0 {
		return nil, &LoadError{Path: path, Err: errZeroArea}
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Clear removes all cached images.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes a single path from the cache. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}
