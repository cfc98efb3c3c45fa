package omr

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// Sheet geometry used by the synthetic fixtures: 4-option rows of bubbles
// with radius 14, spaced well beyond the default row threshold.
const (
	testRadius   = 14
	testSpacing  = 45
	testMarginX  = 40
	testMarginY  = 40
	testOptions  = 4
)

// renderSheet draws a synthetic bubble sheet: every question gets a ring
// outline per option, and the listed option indexes are filled solid.
func renderSheet(t *testing.T, questions int, marks map[int][]int) *image.RGBA {
	t.Helper()
	width := testMarginX*2 + (testOptions-1)*testSpacing + testRadius*2
	height := testMarginY*2 + (questions-1)*testSpacing + testRadius*2

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}

	for q := 1; q <= questions; q++ {
		cy := testMarginY + (q-1)*testSpacing
		filled := marks[q]
		for opt := 0; opt < testOptions; opt++ {
			cx := testMarginX + opt*testSpacing
			isFilled := false
			for _, f := range filled {
				if f == opt {
					isFilled = true
				}
			}
			drawBubble(img, cx, cy, testRadius, isFilled)
		}
	}
	return img
}

// drawBubble draws a filled disk or a 3px ring outline. The ring is wide
// enough to survive the default blur pass intact.
func drawBubble(img *image.RGBA, cx, cy, radius int, filled bool) {
	inner := (radius - 3) * (radius - 3)
	outer := radius * radius
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			dx, dy := x-cx, y-cy
			d := dx*dx + dy*dy
			if d > outer {
				continue
			}
			if filled || d >= inner {
				img.Set(x, y, color.Black)
			}
		}
	}
}

// newTestDetector builds a detector tuned for the crisp synthetic sheets:
// no blur, otherwise default thresholds.
func newTestDetector(t *testing.T, debug bool) *Detector {
	t.Helper()
	cfg := DefaultConfig()
	cfg.BlurRadius = 0
	cfg.Debug = debug
	d, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return d
}

// scenarioAMarks marks one option per question for ten questions:
// B A C B D B C A D B.
func scenarioAMarks() (map[int][]int, map[int]string) {
	letters := map[int]string{
		1: "B", 2: "A", 3: "C", 4: "B", 5: "D",
		6: "B", 7: "C", 8: "A", 9: "D", 10: "B",
	}
	marks := make(map[int][]int, len(letters))
	for q, l := range letters {
		marks[q] = []int{int(l[0] - 'A')}
	}
	return marks, letters
}

func TestDetect_ScenarioA(t *testing.T) {
	marks, letters := scenarioAMarks()
	img := renderSheet(t, 10, marks)
	d := newTestDetector(t, false)

	result, err := d.Detect(img, testOptions)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if result.Status != StatusSuccess {
		t.Errorf("status: got %q", result.Status)
	}
	if result.TotalQuestions != 10 {
		t.Fatalf("total questions: got %d, want 10", result.TotalQuestions)
	}
	for q, want := range letters {
		if got := result.DetectedAnswers[q]; got != want {
			t.Errorf("question %d: got %q, want %q", q, got, want)
		}
	}
	if result.FillDetails != nil {
		t.Error("fill details should be absent without debug")
	}
}

func TestDetect_ScenarioB_DoubleMarkIsAmbiguous(t *testing.T) {
	marks, letters := scenarioAMarks()
	marks[3] = []int{1, 2} // second mark on question 3

	img := renderSheet(t, 10, marks)
	d := newTestDetector(t, false)

	result, err := d.Detect(img, testOptions)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.DetectedAnswers[3] != AnswerAmbiguous {
		t.Errorf("question 3: got %q, want %q", result.DetectedAnswers[3], AnswerAmbiguous)
	}
	// The rest of the sheet is unaffected.
	for q, want := range letters {
		if q == 3 {
			continue
		}
		if got := result.DetectedAnswers[q]; got != want {
			t.Errorf("question %d: got %q, want %q", q, got, want)
		}
	}
}

func TestEvaluate_ScenarioC(t *testing.T) {
	marks, letters := scenarioAMarks()
	delete(marks, 5) // question 5 left blank on the sheet

	img := renderSheet(t, 10, marks)
	d := newTestDetector(t, false)

	result, err := d.Evaluate(img, letters, testOptions)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if result.Score != 9 {
		t.Errorf("score: got %d, want 9", result.Score)
	}
	if result.Total != 10 {
		t.Errorf("total: got %d, want 10", result.Total)
	}
	if result.Percentage != 90.00 {
		t.Errorf("percentage: got %v, want 90.00", result.Percentage)
	}
	if len(result.Unmarked) != 1 || result.Unmarked[0] != 5 {
		t.Errorf("unmarked: got %v, want [5]", result.Unmarked)
	}
	if len(result.Wrong) != 0 {
		t.Errorf("wrong: got %v, want none", result.Wrong)
	}
}

func TestEvaluate_ScenarioD_EmptyKey(t *testing.T) {
	marks, _ := scenarioAMarks()
	img := renderSheet(t, 10, marks)
	d := newTestDetector(t, false)

	_, err := d.Evaluate(img, map[int]string{}, testOptions)
	if !errors.Is(err, ErrEmptyAnswerKey) {
		t.Fatalf("expected ErrEmptyAnswerKey, got %v", err)
	}
}

func TestDetect_Idempotent(t *testing.T) {
	marks, _ := scenarioAMarks()
	img := renderSheet(t, 10, marks)
	d := newTestDetector(t, false)

	first, err := d.Detect(img, testOptions)
	if err != nil {
		t.Fatalf("first Detect failed: %v", err)
	}
	second, err := d.Detect(img, testOptions)
	if err != nil {
		t.Fatalf("second Detect failed: %v", err)
	}

	if !reflect.DeepEqual(first.DetectedAnswers, second.DetectedAnswers) {
		t.Errorf("detection is not idempotent:\n%v\n%v",
			first.DetectedAnswers, second.DetectedAnswers)
	}
}

func TestDetect_BlankSheetIsDegenerateSuccess(t *testing.T) {
	blank := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			blank.Set(x, y, color.White)
		}
	}

	d := newTestDetector(t, false)
	result, err := d.Detect(blank, testOptions)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.Status != StatusSuccess || result.TotalQuestions != 0 {
		t.Errorf("blank sheet: status %q, %d questions; want success with 0",
			result.Status, result.TotalQuestions)
	}
}

func TestDetect_DebugOutputs(t *testing.T) {
	marks, _ := scenarioAMarks()
	img := renderSheet(t, 10, marks)
	d := newTestDetector(t, true)

	result, err := d.Detect(img, testOptions)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if len(result.FillDetails) != 10 {
		t.Fatalf("fill details: got %d questions, want 10", len(result.FillDetails))
	}
	for q, fills := range result.FillDetails {
		if len(fills) != testOptions {
			t.Errorf("question %d: %d fill entries, want %d", q, len(fills), testOptions)
		}
		for letter, ratio := range fills {
			if ratio < 0 || ratio > 100 {
				t.Errorf("question %d option %s: ratio %v out of [0,100]", q, letter, ratio)
			}
		}
	}

	if result.OverlayPNG == "" {
		t.Fatal("debug result should carry an overlay")
	}
	raw, err := base64.StdEncoding.DecodeString(result.OverlayPNG)
	if err != nil {
		t.Fatalf("overlay is not valid base64: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(raw)); err != nil {
		t.Fatalf("overlay is not valid PNG: %v", err)
	}
}

func TestDetect_MalformedRowDropped(t *testing.T) {
	marks, _ := scenarioAMarks()
	img := renderSheet(t, 10, marks)

	// Paint over the last bubble of row 4, leaving 3 bubbles in that row.
	cy := testMarginY + 3*testSpacing
	cx := testMarginX + 3*testSpacing
	for y := cy - testRadius - 2; y <= cy+testRadius+2; y++ {
		for x := cx - testRadius - 2; x <= cx+testRadius+2; x++ {
			img.Set(x, y, color.White)
		}
	}

	d := newTestDetector(t, false)
	result, err := d.Detect(img, testOptions)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.TotalQuestions != 9 {
		t.Errorf("total questions: got %d, want 9 after dropping malformed row",
			result.TotalQuestions)
	}
}

func TestDetect_InvalidExpectedOptions(t *testing.T) {
	d := newTestDetector(t, false)
	img := renderSheet(t, 1, nil)

	if _, err := d.Detect(img, 1); err == nil {
		t.Fatal("expected error for expectedOptions < 2")
	}
}

func TestDetect_NilImage(t *testing.T) {
	d := newTestDetector(t, false)

	_, err := d.Detect(nil, testOptions)
	if err == nil {
		t.Fatal("expected error for nil image")
	}
	var loadErr *ImageLoadError
	if !errors.As(err, &loadErr) {
		t.Errorf("expected *ImageLoadError, got %T", err)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	bad := []Config{
		func() Config { c := DefaultConfig(); c.FillThreshold = -1; return c }(),
		func() Config { c := DefaultConfig(); c.FillThreshold = 101; return c }(),
		func() Config { c := DefaultConfig(); c.BubbleAreaRange.Max = 10; return c }(),
		func() Config { c := DefaultConfig(); c.AspectRatioRange.Min = 0; return c }(),
		func() Config { c := DefaultConfig(); c.RowThreshold = -2; return c }(),
		func() Config { c := DefaultConfig(); c.BlurRadius = -0.5; return c }(),
		func() Config { c := DefaultConfig(); c.MaxDimension = -1; return c }(),
		func() Config { c := DefaultConfig(); c.MinSpeckleArea = -1; return c }(),
	}
	for i, cfg := range bad {
		if _, err := New(cfg); err == nil {
			t.Errorf("config %d should be rejected", i)
		}
	}
}

func TestErrorResult(t *testing.T) {
	res := ErrorResult(errors.New("boom"))
	if res.Status != StatusError {
		t.Errorf("status: got %q, want %q", res.Status, StatusError)
	}
	if res.Error != "boom" {
		t.Errorf("error message: got %q", res.Error)
	}
}

// writeSheetPNG renders a sheet and writes it to a temp PNG file.
func writeSheetPNG(t *testing.T, questions int, marks map[int][]int) string {
	t.Helper()
	img := renderSheet(t, questions, marks)
	path := filepath.Join(t.TempDir(), "sheet.png")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create sheet file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode sheet: %v", err)
	}
	return path
}

func TestDetectFile(t *testing.T) {
	marks, letters := scenarioAMarks()
	path := writeSheetPNG(t, 10, marks)
	d := newTestDetector(t, false)

	result, err := d.DetectFile(path, testOptions)
	if err != nil {
		t.Fatalf("DetectFile failed: %v", err)
	}
	if result.DetectedAnswers[1] != letters[1] {
		t.Errorf("question 1: got %q, want %q", result.DetectedAnswers[1], letters[1])
	}

	d.EvictCached(path)
}

func TestDetectFile_Missing(t *testing.T) {
	d := newTestDetector(t, false)

	_, err := d.DetectFile("/no/such/sheet.png", testOptions)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	var loadErr *ImageLoadError
	if !errors.As(err, &loadErr) {
		t.Errorf("expected *ImageLoadError, got %T", err)
	}
}

func TestDetectAnswers_Convenience(t *testing.T) {
	marks, letters := scenarioAMarks()
	path := writeSheetPNG(t, 10, marks)

	cfgless, err := DetectAnswers(path, testOptions, 50.0, false)
	if err != nil {
		t.Fatalf("DetectAnswers failed: %v", err)
	}
	if cfgless.DetectedAnswers[2] != letters[2] {
		t.Errorf("question 2: got %q, want %q", cfgless.DetectedAnswers[2], letters[2])
	}
}

func TestEvaluateSheet_Convenience(t *testing.T) {
	marks, letters := scenarioAMarks()
	path := writeSheetPNG(t, 10, marks)

	result, err := EvaluateSheet(path, letters, testOptions, 50.0, false)
	if err != nil {
		t.Fatalf("EvaluateSheet failed: %v", err)
	}
	if result.Score != 10 || result.Percentage != 100.00 {
		t.Errorf("perfect sheet: got %d/%d (%v%%)", result.Score, result.Total, result.Percentage)
	}
}

func TestEvaluateBatch(t *testing.T) {
	marks, letters := scenarioAMarks()
	paths := []string{
		writeSheetPNG(t, 10, marks),
		writeSheetPNG(t, 10, marks),
		"/no/such/sheet.png",
	}
	d := newTestDetector(t, false)

	items := d.EvaluateBatch(context.Background(), paths, letters, testOptions, 2)
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	for i := 0; i < 2; i++ {
		if items[i].Err != nil {
			t.Errorf("sheet %d failed: %v", i, items[i].Err)
			continue
		}
		if items[i].Result.Score != 10 {
			t.Errorf("sheet %d score: got %d, want 10", i, items[i].Result.Score)
		}
		if items[i].Path != paths[i] {
			t.Errorf("item %d path: got %q, want %q", i, items[i].Path, paths[i])
		}
	}

	if items[2].Err == nil {
		t.Error("missing sheet should carry an error")
	}
}

func TestEvaluateBatch_Cancelled(t *testing.T) {
	marks, letters := scenarioAMarks()
	paths := []string{writeSheetPNG(t, 10, marks)}
	d := newTestDetector(t, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := d.EvaluateBatch(ctx, paths, letters, testOptions, 1)
	if !errors.Is(items[0].Err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", items[0].Err)
	}
}

func TestEvaluateBatch_Empty(t *testing.T) {
	d := newTestDetector(t, false)

	items := d.EvaluateBatch(context.Background(), nil, map[int]string{1: "A"}, testOptions, 0)
	if len(items) != 0 {
		t.Errorf("expected no items, got %d", len(items))
	}
}
