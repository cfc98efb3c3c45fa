package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
)

// OverlayMark describes one bubble to annotate on the debug overlay.
type OverlayMark struct {
	// X1, Y1, X2, Y2 is the bubble's bounding box, corners inclusive.
	X1, Y1, X2, Y2 int

	// FillRatio is the bubble's fill percentage in [0, 100]; it drives the
	// outline color from green (empty) to red (fully dark).
	FillRatio float64

	// Chosen marks the bubble resolved as the answer; it gets a doubled
	// outline so it stands out among its row.
	Chosen bool

	// Question, when non-zero, is drawn as a numeric label left of the
	// bounding box. Set it on the first bubble of each row.
	Question int
}

// OverlayResult contains the annotated sheet encoded as base64 PNG.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

var (
	heatEmpty = colorful.Color{R: 0.05, G: 0.75, B: 0.2} // green, unmarked
	heatFull  = colorful.Color{R: 0.85, G: 0.1, B: 0.1}  // red, saturated mark
)

// RenderOverlay draws fill-ratio annotations over a copy of the sheet image
// and returns it as base64 PNG. Intended for threshold troubleshooting: each
// bubble's outline color encodes its measured fill ratio, and the resolved
// bubble of each row is outlined twice.
func RenderOverlay(img image.Image, marks []OverlayMark) (*OverlayResult, error) {
	if img == nil {
		return nil, &LoadError{Err: errNilImage}
	}
	bounds := img.Bounds()

	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Src)

	labelFg := color.RGBA{255, 255, 255, 255}
	labelBg := color.RGBA{0, 0, 0, 180}

	for _, m := range marks {
		c := heatColor(m.FillRatio)
		drawRect(canvas, m.X1, m.Y1, m.X2, m.Y2, c)
		if m.Chosen {
			drawRect(canvas, m.X1-1, m.Y1-1, m.X2+1, m.Y2+1, c)
		}
		if m.Question > 0 {
			label := strconv.Itoa(m.Question)
			drawLabel(canvas, m.X1-4*len(label)-3, m.Y1, label, labelFg, labelBg)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode overlay image: %w", err)
	}

	return &OverlayResult{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// heatColor maps a fill ratio in [0, 100] onto the green-to-red gradient.
// Blending happens in Luv space so perceived brightness stays even across
// the ramp.
func heatColor(ratio float64) color.Color {
	t := ratio / 100
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return heatEmpty.BlendLuv(heatFull, t).Clamped()
}

// drawRect outlines the rectangle (x1, y1)-(x2, y2), corners inclusive,
// clipped to the canvas.
func drawRect(img *image.RGBA, x1, y1, x2, y2 int, c color.Color) {
	for x := x1; x <= x2; x++ {
		setClipped(img, x, y1, c)
		setClipped(img, x, y2, c)
	}
	for y := y1; y <= y2; y++ {
		setClipped(img, x1, y, c)
		setClipped(img, x2, y, c)
	}
}

func setClipped(img *image.RGBA, x, y int, c color.Color) {
	b := img.Bounds()
	if x >= b.Min.X && x < b.Max.X && y >= b.Min.Y && y < b.Max.Y {
		img.Set(x, y, c)
	}
}

// drawLabel draws a small numeric label on a contrasting background using a
// 3x5 pixel digit font.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
	}

	bounds := img.Bounds()
	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			px, py := x+dx, y+dy
			if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
				img.Set(px, py, bg)
			}
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					px, py := cx+col, y+row
					if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
						img.Set(px, py, fg)
					}
				}
			}
		}
		cx += charWidth
	}
}
