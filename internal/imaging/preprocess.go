package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// BinaryMask is a dark/light segmentation of a source image.
//
// A pixel is "dark" when it belongs to pen or pencil ink after thresholding,
// and "light" when it belongs to the sheet background. The mask has the same
// dimensions as the (possibly downscaled) source image and is the only view
// of the image the downstream detection stages ever consult.
type BinaryMask struct {
	// Width is the mask width in pixels.
	Width int

	// Height is the mask height in pixels.
	Height int

	dark [][]bool
}

// NewBinaryMask creates an all-light mask of the given dimensions.
func NewBinaryMask(width, height int) *BinaryMask {
	dark := make([][]bool, height)
	for y := range dark {
		dark[y] = make([]bool, width)
	}
	return &BinaryMask{Width: width, Height: height, dark: dark}
}

// Dark reports whether the pixel at (x, y) is ink. Out-of-range coordinates
// are light.
func (m *BinaryMask) Dark(x, y int) bool {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return false
	}
	return m.dark[y][x]
}

// SetDark marks or clears the pixel at (x, y). Out-of-range coordinates are
// ignored.
func (m *BinaryMask) SetDark(x, y int, v bool) {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return
	}
	m.dark[y][x] = v
}

// CountDark returns the number of dark pixels and the total number of pixels
// within the rectangle (x1, y1)-(x2, y2), both corners inclusive. The
// rectangle is clipped to the mask bounds.
func (m *BinaryMask) CountDark(x1, y1, x2, y2 int) (dark, total int) {
	if x1 < 0 {
		x1 = 0
	}
	if y1 < 0 {
		y1 = 0
	}
	if x2 >= m.Width {
		x2 = m.Width - 1
	}
	if y2 >= m.Height {
		y2 = m.Height - 1
	}
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			total++
			if m.dark[y][x] {
				dark++
			}
		}
	}
	return dark, total
}

// PreprocessOptions controls binarization of a scanned sheet.
type PreprocessOptions struct {
	// BlurRadius is the Gaussian smoothing radius applied before
	// thresholding. Zero disables smoothing; crisp synthetic images do not
	// need it, photographed sheets do.
	BlurRadius float64

	// MaxDimension caps the larger image dimension. Images above the cap are
	// downscaled proportionally before analysis. Zero disables downscaling.
	MaxDimension int

	// MinSpeckleArea removes connected dark components with fewer pixels
	// than this after thresholding. Scan speckle is typically a handful of
	// pixels; bubbles are hundreds.
	MinSpeckleArea int
}

// Preprocess converts a decoded image into a BinaryMask separating ink from
// sheet background.
//
// The pipeline is: grayscale conversion, optional Lanczos downscale,
// optional Gaussian blur, global thresholding at the Otsu level computed
// from the luminance histogram, then small-blob removal. It is a pure
// function over the input image and options; the input is never modified.
//
// Returns a *LoadError if img is nil or has zero area.
func Preprocess(img image.Image, opts PreprocessOptions) (*BinaryMask, error) {
	if img == nil {
		return nil, &LoadError{Err: errNilImage}
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, &LoadError{Err: errZeroArea}
	}

	gray := imaging.Grayscale(img)

	if opts.MaxDimension > 0 {
		w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
		if w > opts.MaxDimension || h > opts.MaxDimension {
			if w >= h {
				gray = imaging.Resize(gray, opts.MaxDimension, 0, imaging.Lanczos)
			} else {
				gray = imaging.Resize(gray, 0, opts.MaxDimension, imaging.Lanczos)
			}
		}
	}

	var src image.Image = gray
	if opts.BlurRadius > 0 {
		src = blur.Gaussian(gray, opts.BlurRadius)
	}

	// Otsu yields the last luminance of the dark class; segment.Threshold
	// whitens pixels >= level, so the cut sits one step above.
	level := otsuLevel(src)
	cut := int(level) + 1
	if cut > 255 {
		cut = 255
	}
	bin := segment.Threshold(src, uint8(cut))

	mask := maskFromGray(bin)
	if opts.MinSpeckleArea > 0 {
		removeSpeckle(mask, opts.MinSpeckleArea)
	}
	return mask, nil
}

// otsuLevel computes a global threshold from the luminance histogram using
// Otsu's method: the level that maximizes between-class variance of the
// dark and light pixel populations.
func otsuLevel(img image.Image) uint8 {
	bounds := img.Bounds()

	var hist [256]int
	total := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			lum := uint8(float64(r>>8)*0.299 + float64(g>>8)*0.587 + float64(b>>8)*0.114)
			hist[lum]++
			total++
		}
	}

	var sum float64
	for i, n := range hist {
		sum += float64(i) * float64(n)
	}

	var sumBack, weightBack float64
	bestLevel := uint8(128)
	bestVariance := -1.0

	for t := 0; t < 256; t++ {
		weightBack += float64(hist[t])
		if weightBack == 0 {
			continue
		}
		weightFore := float64(total) - weightBack
		if weightFore == 0 {
			break
		}
		sumBack += float64(t) * float64(hist[t])

		meanBack := sumBack / weightBack
		meanFore := (sum - sumBack) / weightFore
		variance := weightBack * weightFore * (meanBack - meanFore) * (meanBack - meanFore)
		if variance > bestVariance {
			bestVariance = variance
			bestLevel = uint8(t)
		}
	}
	return bestLevel
}

// maskFromGray interprets a thresholded grayscale image: black pixels are
// ink, white pixels are background.
func maskFromGray(bin *image.Gray) *BinaryMask {
	bounds := bin.Bounds()
	mask := NewBinaryMask(bounds.Dx(), bounds.Dy())
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if bin.GrayAt(x+bounds.Min.X, y+bounds.Min.Y).Y < 128 {
				mask.dark[y][x] = true
			}
		}
	}
	return mask
}

// removeSpeckle erases connected dark components smaller than minArea
// pixels. Uses an iterative stack-based sweep with 8-connectivity so large
// components cannot overflow the call stack.
func removeSpeckle(mask *BinaryMask, minArea int) {
	visited := make([][]bool, mask.Height)
	for y := range visited {
		visited[y] = make([]bool, mask.Width)
	}

	type pt struct{ x, y int }

	for sy := 0; sy < mask.Height; sy++ {
		for sx := 0; sx < mask.Width; sx++ {
			if !mask.dark[sy][sx] || visited[sy][sx] {
				continue
			}

			component := make([]pt, 0, minArea)
			stack := []pt{{sx, sy}}
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if p.x < 0 || p.x >= mask.Width || p.y < 0 || p.y >= mask.Height {
					continue
				}
				if visited[p.y][p.x] || !mask.dark[p.y][p.x] {
					continue
				}
				visited[p.y][p.x] = true
				component = append(component, p)
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if dx == 0 && dy == 0 {
							continue
						}
						stack = append(stack, pt{p.x + dx, p.y + dy})
					}
				}
			}

			if len(component) < minArea {
				for _, p := range component {
					mask.dark[p.y][p.x] = false
				}
			}
		}
	}
}
