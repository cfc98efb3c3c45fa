package grading

import (
	"math"

	"github.com/omrscan/omr/internal/detection"
	"github.com/omrscan/omr/internal/imaging"
)

// Answer values for questions that did not resolve to a single option.
const (
	// Unmarked means no bubble in the row reached the fill threshold.
	Unmarked = "unmarked"

	// Ambiguous means two or more bubbles reached the fill threshold. The
	// row's fill ratios are retained for diagnostics instead of guessing a
	// winner by highest ratio.
	Ambiguous = "ambiguous"
)

// FillScore pairs an option letter with the measured fill percentage of its
// bubble.
type FillScore struct {
	Option string  `json:"option"`
	Ratio  float64 `json:"ratio"` // 0-100
}

// QuestionResult is the per-question outcome of fill classification.
type QuestionResult struct {
	// Question is the 1-based question number, assigned by Resolve.
	Question int `json:"question"`

	// Answer is an option letter, Unmarked, or Ambiguous.
	Answer string `json:"answer"`

	// Fills holds one score per bubble in option order, kept for threshold
	// troubleshooting and overlay rendering.
	Fills []FillScore `json:"fills"`
}

// OptionLetter maps an option index to its letter: 0 is "A", 1 is "B", and
// so on.
func OptionLetter(i int) string {
	return string(rune('A' + i))
}

// FillRatio measures how much of a bubble's bounding region is ink: the
// percentage of dark mask pixels relative to all pixels in the region,
// always in [0, 100].
func FillRatio(mask *imaging.BinaryMask, b detection.Bubble) float64 {
	dark, total := mask.CountDark(b.Bounds.X1, b.Bounds.Y1, b.Bounds.X2, b.Bounds.Y2)
	if total == 0 {
		return 0
	}
	ratio := float64(dark) / float64(total) * 100
	return math.Round(ratio*100) / 100
}

// Classify decides which bubble of a row, if any, is marked.
//
// Every bubble whose fill ratio reaches fillThreshold is a fill candidate.
// Exactly one candidate resolves to that bubble's option letter; zero
// candidates resolve to Unmarked; two or more resolve to Ambiguous. The
// threshold comparison is inclusive, so a ratio exactly at the threshold
// counts as filled.
//
// The caller assigns the question number; Classify leaves it zero.
func Classify(mask *imaging.BinaryMask, row detection.Row, fillThreshold float64) QuestionResult {
	fills := make([]FillScore, len(row.Bubbles))

	marked := -1
	markedCount := 0
	for i, b := range row.Bubbles {
		ratio := FillRatio(mask, b)
		fills[i] = FillScore{Option: OptionLetter(i), Ratio: ratio}
		if ratio >= fillThreshold {
			marked = i
			markedCount++
		}
	}

	answer := Unmarked
	switch markedCount {
	case 0:
	case 1:
		answer = OptionLetter(marked)
	default:
		answer = Ambiguous
	}

	return QuestionResult{Answer: answer, Fills: fills}
}
