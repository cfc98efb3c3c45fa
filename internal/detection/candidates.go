package detection

import (
	"github.com/omrscan/omr/internal/imaging"
)

// Bounds represents a rectangular bounding box in pixel coordinates.
//
// (X1, Y1) is the top-left corner and (X2, Y2) the bottom-right corner, all
// four edges inclusive.
type Bounds struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Width is the horizontal extent in pixels.
func (b Bounds) Width() int { return b.X2 - b.X1 + 1 }

// Height is the vertical extent in pixels.
func (b Bounds) Height() int { return b.Y2 - b.Y1 + 1 }

// Area is the bounding-box area in square pixels.
func (b Bounds) Area() int { return b.Width() * b.Height() }

// Range is an inclusive [Min, Max] interval used for geometric filtering.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the range, bounds inclusive.
func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// Bubble is a connected dark region that passed the geometric filters and is
// therefore a candidate answer bubble. It is transient: bubbles live only
// within one detection run.
type Bubble struct {
	// Bounds is the component's bounding box.
	Bounds Bounds `json:"bounds"`

	// CenterX, CenterY is the centroid of the component's dark pixels, not
	// of the bounding box; partial fills bias it far less that way.
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`

	// Area is the bounding-box area in square pixels.
	Area int `json:"area"`

	// Aspect is width divided by height. A circle's bounding box is square,
	// so bubbles sit near 1.0 while glyphs and ruled lines fall far outside.
	Aspect float64 `json:"aspect"`

	// PixelCount is the number of dark pixels in the component.
	PixelCount int `json:"pixel_count"`
}

// FindCandidates extracts connected dark components from the mask and keeps
// the bubble-shaped ones: bounding-box area within areaRange and aspect
// ratio within aspectRange, both inclusive.
//
// Components are found with an iterative 8-connected flood fill. The result
// order follows the scan order of component discovery; callers impose their
// own ordering. An empty result is not an error — it surfaces as zero rows
// downstream.
func FindCandidates(mask *imaging.BinaryMask, areaRange, aspectRange Range) []Bubble {
	visited := make([][]bool, mask.Height)
	for y := range visited {
		visited[y] = make([]bool, mask.Width)
	}

	bubbles := make([]Bubble, 0)

	for sy := 0; sy < mask.Height; sy++ {
		for sx := 0; sx < mask.Width; sx++ {
			if !mask.Dark(sx, sy) || visited[sy][sx] {
				continue
			}

			minX, minY := sx, sy
			maxX, maxY := sx, sy
			var sumX, sumY, count int

			stack := []point{{sx, sy}}
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				if p.x < 0 || p.x >= mask.Width || p.y < 0 || p.y >= mask.Height {
					continue
				}
				if visited[p.y][p.x] || !mask.Dark(p.x, p.y) {
					continue
				}
				visited[p.y][p.x] = true

				if p.x < minX {
					minX = p.x
				}
				if p.x > maxX {
					maxX = p.x
				}
				if p.y < minY {
					minY = p.y
				}
				if p.y > maxY {
					maxY = p.y
				}
				sumX += p.x
				sumY += p.y
				count++

				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if dx == 0 && dy == 0 {
							continue
						}
						stack = append(stack, point{p.x + dx, p.y + dy})
					}
				}
			}

			bounds := Bounds{X1: minX, Y1: minY, X2: maxX, Y2: maxY}
			aspect := float64(bounds.Width()) / float64(bounds.Height())

			if !areaRange.Contains(float64(bounds.Area())) {
				continue
			}
			if !aspectRange.Contains(aspect) {
				continue
			}

			bubbles = append(bubbles, Bubble{
				Bounds:     bounds,
				CenterX:    float64(sumX) / float64(count),
				CenterY:    float64(sumY) / float64(count),
				Area:       bounds.Area(),
				Aspect:     aspect,
				PixelCount: count,
			})
		}
	}

	return bubbles
}

type point struct{ x, y int }
