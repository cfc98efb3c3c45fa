package grading

import (
	"github.com/omrscan/omr/internal/detection"
	"github.com/omrscan/omr/internal/imaging"
)

// Sheet is the full detection outcome for one scanned page.
type Sheet struct {
	// TotalQuestions is the number of valid rows found.
	TotalQuestions int `json:"total_questions"`

	// Results maps 1-based question numbers to their classification.
	Results map[int]QuestionResult `json:"results"`
}

// Answers flattens the sheet into the question number to answer mapping that
// callers compare against keys.
func (s *Sheet) Answers() map[int]string {
	answers := make(map[int]string, len(s.Results))
	for q, r := range s.Results {
		answers[q] = r.Answer
	}
	return answers
}

// Resolve classifies every row and assembles the per-question answer
// mapping. Rows must already be complete (bubble count equal to the option
// count) and ordered top to bottom; they are numbered sequentially from 1 in
// that order, which assumes every expected question has a geometrically
// valid row.
//
// A sheet with zero rows is a valid degenerate result, not an error, so
// callers can tell "nothing found" apart from "could not process".
func Resolve(mask *imaging.BinaryMask, rows []detection.Row, fillThreshold float64) *Sheet {
	results := make(map[int]QuestionResult, len(rows))
	for i, row := range rows {
		qr := Classify(mask, row, fillThreshold)
		qr.Question = i + 1
		results[qr.Question] = qr
	}
	return &Sheet{
		TotalQuestions: len(rows),
		Results:        results,
	}
}
