// Package omr detects and scores answers on photographed or scanned
// bubble sheets.
//
// The pipeline is a pure, synchronous chain per image: binarize the scan,
// extract bubble-shaped connected components, cluster them into question
// rows, classify each row's fill state, and optionally compare the resolved
// answers against a key. A Detector carries only immutable configuration and
// a read-only image cache, so one instance may serve concurrent detections.
package omr

import (
	"fmt"
	"image"

	"github.com/omrscan/omr/internal/detection"
	"github.com/omrscan/omr/internal/grading"
	"github.com/omrscan/omr/internal/imaging"
)

// Detector runs the detection pipeline with a fixed configuration. Create
// one with New and reuse it across sheets; it is safe for concurrent use.
type Detector struct {
	cfg   Config
	cache *imaging.ImageCache
}

// New validates the configuration and returns a ready Detector.
func New(cfg Config) (*Detector, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid detector config: %w", err)
	}
	return &Detector{
		cfg:   cfg,
		cache: imaging.NewImageCache(),
	}, nil
}

// pipelineOut is everything one pass over a sheet produces: the surviving
// rows and their classification.
type pipelineOut struct {
	rows  []detection.Row
	sheet *grading.Sheet
}

// run executes the detection stages in order. Every structure it builds is
// local to the call; nothing is shared or mutated across invocations.
func (d *Detector) run(img image.Image, expectedOptions int) (*pipelineOut, error) {
	if expectedOptions < 2 {
		return nil, fmt.Errorf("expected options must be at least 2, got %d", expectedOptions)
	}

	mask, err := imaging.Preprocess(img, imaging.PreprocessOptions{
		BlurRadius:     d.cfg.BlurRadius,
		MaxDimension:   d.cfg.MaxDimension,
		MinSpeckleArea: d.cfg.MinSpeckleArea,
	})
	if err != nil {
		return nil, err
	}
	d.cfg.Logger.Debug().
		Int("width", mask.Width).
		Int("height", mask.Height).
		Msg("sheet binarized")

	candidates := detection.FindCandidates(mask, d.cfg.BubbleAreaRange, d.cfg.AspectRatioRange)
	rows := detection.ClusterRows(candidates, d.cfg.RowThreshold)
	valid := detection.CompleteRows(rows, expectedOptions)
	d.cfg.Logger.Debug().
		Int("candidates", len(candidates)).
		Int("rows", len(rows)).
		Int("valid_rows", len(valid)).
		Msg("bubble grid assembled")

	sheet := grading.Resolve(mask, valid, d.cfg.FillThreshold)

	return &pipelineOut{rows: valid, sheet: sheet}, nil
}

// Detect locates answer bubbles on an already-decoded sheet image and
// resolves the marked option for every question found.
//
// expectedOptions is the number of bubbles printed per question; rows with
// any other bubble count are dropped rather than partially interpreted.
// Finding nothing is not an error: the result then reports zero questions.
func (d *Detector) Detect(img image.Image, expectedOptions int) (*DetectionResult, error) {
	out, err := d.run(img, expectedOptions)
	if err != nil {
		return nil, err
	}

	result := &DetectionResult{
		Status:          StatusSuccess,
		TotalQuestions:  out.sheet.TotalQuestions,
		DetectedAnswers: out.sheet.Answers(),
	}
	if err := d.attachDebug(result, img, out); err != nil {
		return nil, err
	}
	return result, nil
}

// DetectFile is Detect for an image file on disk. PNG, JPEG, and GIF are
// supported; decoded images are cached, so re-running with different
// thresholds does not reread the file.
func (d *Detector) DetectFile(path string, expectedOptions int) (*DetectionResult, error) {
	img, err := d.cache.Load(path)
	if err != nil {
		return nil, err
	}
	return d.Detect(img, expectedOptions)
}

// Evaluate detects answers on a sheet and scores them against key, a
// mapping from 1-based question number to the correct option letter.
// An empty key returns ErrEmptyAnswerKey.
func (d *Detector) Evaluate(img image.Image, key map[int]string, expectedOptions int) (*EvaluationResult, error) {
	if len(key) == 0 {
		return nil, ErrEmptyAnswerKey
	}

	out, err := d.run(img, expectedOptions)
	if err != nil {
		return nil, err
	}

	ev, err := grading.Evaluate(out.sheet, key)
	if err != nil {
		return nil, err
	}
	d.cfg.Logger.Debug().
		Int("score", ev.Score).
		Int("total", ev.Total).
		Float64("percentage", ev.Percentage).
		Msg("sheet evaluated")

	result := &EvaluationResult{
		DetectionResult: DetectionResult{
			Status:          StatusSuccess,
			TotalQuestions:  out.sheet.TotalQuestions,
			DetectedAnswers: out.sheet.Answers(),
		},
		Score:      ev.Score,
		Total:      ev.Total,
		Percentage: ev.Percentage,
		Correct:    ev.Correct,
		Wrong:      ev.Wrong,
		Unmarked:   ev.Unmarked,
	}
	if err := d.attachDebug(&result.DetectionResult, img, out); err != nil {
		return nil, err
	}
	return result, nil
}

// EvaluateFile is Evaluate for an image file on disk.
func (d *Detector) EvaluateFile(path string, key map[int]string, expectedOptions int) (*EvaluationResult, error) {
	img, err := d.cache.Load(path)
	if err != nil {
		return nil, err
	}
	return d.Evaluate(img, key, expectedOptions)
}

// EvictCached drops a previously loaded file from the detector's image
// cache. Long-lived detectors processing many sheets should evict paths once
// they are done with them.
func (d *Detector) EvictCached(path string) { d.cache.Evict(path) }

// attachDebug populates fill details and the annotated overlay when the
// detector runs in debug mode.
func (d *Detector) attachDebug(result *DetectionResult, img image.Image, out *pipelineOut) error {
	if !d.cfg.Debug {
		return nil
	}
	result.FillDetails = fillDetails(out.sheet)

	overlay, err := imaging.RenderOverlay(img, overlayMarks(out.rows, out.sheet))
	if err != nil {
		return fmt.Errorf("render debug overlay: %w", err)
	}
	result.OverlayPNG = overlay.ImageBase64
	return nil
}

// fillDetails flattens per-question fill scores into the letter-to-ratio
// maps exposed on debug results.
func fillDetails(sheet *grading.Sheet) map[int]map[string]float64 {
	details := make(map[int]map[string]float64, len(sheet.Results))
	for q, res := range sheet.Results {
		fills := make(map[string]float64, len(res.Fills))
		for _, f := range res.Fills {
			fills[f.Option] = f.Ratio
		}
		details[q] = fills
	}
	return details
}

// overlayMarks pairs row geometry with classification outcomes for the
// debug overlay renderer.
func overlayMarks(rows []detection.Row, sheet *grading.Sheet) []imaging.OverlayMark {
	marks := make([]imaging.OverlayMark, 0, len(rows)*4)
	for i, row := range rows {
		res := sheet.Results[i+1]
		for j, b := range row.Bubbles {
			mark := imaging.OverlayMark{
				X1: b.Bounds.X1,
				Y1: b.Bounds.Y1,
				X2: b.Bounds.X2,
				Y2: b.Bounds.Y2,
			}
			if j < len(res.Fills) {
				mark.FillRatio = res.Fills[j].Ratio
				mark.Chosen = res.Answer == res.Fills[j].Option
			}
			if j == 0 {
				mark.Question = res.Question
			}
			marks = append(marks, mark)
		}
	}
	return marks
}

// DetectAnswers is a one-shot convenience around Detector.DetectFile using
// default geometry thresholds.
func DetectAnswers(path string, expectedOptions int, fillThreshold float64, debug bool) (*DetectionResult, error) {
	cfg := DefaultConfig()
	cfg.FillThreshold = fillThreshold
	cfg.Debug = debug
	d, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return d.DetectFile(path, expectedOptions)
}

// EvaluateSheet is a one-shot convenience around Detector.EvaluateFile using
// default geometry thresholds.
func EvaluateSheet(path string, key map[int]string, expectedOptions int, fillThreshold float64, debug bool) (*EvaluationResult, error) {
	cfg := DefaultConfig()
	cfg.FillThreshold = fillThreshold
	cfg.Debug = debug
	d, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return d.EvaluateFile(path, key, expectedOptions)
}
