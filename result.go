package omr

// Result status values. Library methods report failures through Go errors;
// the status field exists so transport layers can serialize results without
// inspecting error types (see ErrorResult).
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Answer values for questions that did not resolve to a single option
// letter, re-exported from the grading stage.
const (
	AnswerUnmarked  = "unmarked"
	AnswerAmbiguous = "ambiguous"
)

// DetectionResult is the outcome of detecting answers on one sheet.
type DetectionResult struct {
	// Status is StatusSuccess for every result returned with a nil error.
	Status string `json:"status"`

	// TotalQuestions is the number of geometrically valid rows found. Zero
	// is a valid degenerate outcome, not an error.
	TotalQuestions int `json:"total_questions"`

	// DetectedAnswers maps 1-based question numbers to an option letter,
	// AnswerUnmarked, or AnswerAmbiguous.
	DetectedAnswers map[int]string `json:"detected_answers"`

	// FillDetails maps question numbers to per-option fill percentages.
	// Populated only when Config.Debug is set.
	FillDetails map[int]map[string]float64 `json:"fill_details,omitempty"`

	// OverlayPNG is a base64-encoded PNG of the sheet annotated with
	// per-bubble fill heat colors and question numbers. Populated only when
	// Config.Debug is set.
	OverlayPNG string `json:"overlay_png,omitempty"`

	// Error carries the human-readable failure message on error-shaped
	// results produced by ErrorResult.
	Error string `json:"error,omitempty"`
}

// EvaluationResult extends a detection with scoring against an answer key.
type EvaluationResult struct {
	DetectionResult

	// Score is the number of correct answers.
	Score int `json:"score"`

	// Total is the number of questions in the answer key.
	Total int `json:"total"`

	// Percentage is Score/Total*100, rounded to two decimal places.
	Percentage float64 `json:"percentage"`

	// Correct, Wrong, and Unmarked partition the key's question numbers,
	// sorted ascending. Ambiguous detections count as wrong.
	Correct  []int `json:"correct"`
	Wrong    []int `json:"wrong"`
	Unmarked []int `json:"unmarked"`
}

// ErrorResult shapes a pipeline error into the structured form transport
// layers return to clients, so internal error types never leak past the
// library boundary.
func ErrorResult(err error) *DetectionResult {
	return &DetectionResult{
		Status: StatusError,
		Error:  err.Error(),
	}
}
