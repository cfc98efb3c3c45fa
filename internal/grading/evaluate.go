package grading

import (
	"errors"
	"math"
	"sort"
	"strings"
)

// ErrEmptyAnswerKey is returned by Evaluate when the supplied key has no
// entries; a zero denominator makes scoring meaningless.
var ErrEmptyAnswerKey = errors.New("answer key is empty")

// Evaluation is the result of scoring a detected sheet against a key.
type Evaluation struct {
	// Score is the number of correctly answered questions.
	Score int `json:"score"`

	// Total is the number of questions in the answer key.
	Total int `json:"total"`

	// Percentage is Score/Total*100 rounded to two decimal places.
	Percentage float64 `json:"percentage"`

	// Correct, Wrong, and Unmarked partition the key's question numbers,
	// each sorted ascending. Ambiguous answers count as wrong.
	Correct  []int `json:"correct"`
	Wrong    []int `json:"wrong"`
	Unmarked []int `json:"unmarked"`
}

// Evaluate compares a detected sheet against an answer key.
//
// For every question in the key: a missing or unmarked detection counts as
// unmarked; an ambiguous detection or a letter differing from the key counts
// as wrong; a matching letter counts as correct. Key letters are compared
// case-insensitively. Questions detected on the sheet but absent from the
// key are ignored — they affect neither score nor total.
func Evaluate(sheet *Sheet, key map[int]string) (*Evaluation, error) {
	if len(key) == 0 {
		return nil, ErrEmptyAnswerKey
	}

	questions := make([]int, 0, len(key))
	for q := range key {
		questions = append(questions, q)
	}
	sort.Ints(questions)

	ev := &Evaluation{
		Total:    len(key),
		Correct:  make([]int, 0, len(key)),
		Wrong:    make([]int, 0),
		Unmarked: make([]int, 0),
	}

	for _, q := range questions {
		want := strings.ToUpper(strings.TrimSpace(key[q]))
		res, ok := sheet.Results[q]
		switch {
		case !ok || res.Answer == Unmarked:
			ev.Unmarked = append(ev.Unmarked, q)
		case res.Answer == want:
			ev.Correct = append(ev.Correct, q)
		default:
			ev.Wrong = append(ev.Wrong, q)
		}
	}

	ev.Score = len(ev.Correct)
	ev.Percentage = math.Round(float64(ev.Score)/float64(ev.Total)*100*100) / 100

	return ev, nil
}
