package detection

import "sort"

// Row is one question's worth of bubbles, ordered left to right. The
// position of a bubble within the slice defines its option index: 0 is A,
// 1 is B, and so on.
type Row struct {
	// Bubbles are the row members sorted by x-centroid.
	Bubbles []Bubble

	// MeanY is the mean y-centroid of the members.
	MeanY float64
}

// ClusterRows groups candidates into horizontal rows by vertical proximity.
//
// Candidates are sorted by y-centroid and swept once: a candidate whose
// y-centroid sits more than rowThreshold away from the current row's running
// mean starts a new row, otherwise it joins the row and the mean is updated.
// The comparison is strict, so a candidate exactly at the threshold joins
// the current row. This greedy sweep assumes rows do not overlap vertically,
// which holds for sheets printed with adequate row spacing.
//
// Within each row, bubbles are sorted by x-centroid. Rows are returned top
// to bottom.
func ClusterRows(candidates []Bubble, rowThreshold float64) []Row {
	if len(candidates) == 0 {
		return nil
	}

	sorted := make([]Bubble, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CenterY < sorted[j].CenterY
	})

	rows := make([]Row, 0)
	current := Row{Bubbles: []Bubble{sorted[0]}, MeanY: sorted[0].CenterY}

	for _, b := range sorted[1:] {
		dist := b.CenterY - current.MeanY
		if dist < 0 {
			dist = -dist
		}
		if dist > rowThreshold {
			rows = append(rows, finishRow(current))
			current = Row{Bubbles: []Bubble{b}, MeanY: b.CenterY}
			continue
		}
		current.Bubbles = append(current.Bubbles, b)
		current.MeanY += (b.CenterY - current.MeanY) / float64(len(current.Bubbles))
	}
	rows = append(rows, finishRow(current))

	return rows
}

// finishRow orders a completed row's bubbles by horizontal position.
func finishRow(r Row) Row {
	sort.Slice(r.Bubbles, func(i, j int) bool {
		return r.Bubbles[i].CenterX < r.Bubbles[j].CenterX
	})
	return r
}

// CompleteRows keeps only rows whose bubble count matches expectedOptions.
//
// A malformed row (missing or extra bubble) is excluded rather than
// partially interpreted; guessing at option positions in such a row would
// misalign every letter after the defect. The survivors keep their top to
// bottom order and are what question numbering is assigned against.
func CompleteRows(rows []Row, expectedOptions int) []Row {
	complete := make([]Row, 0, len(rows))
	for _, r := range rows {
		if len(r.Bubbles) == expectedOptions {
			complete = append(complete, r)
		}
	}
	return complete
}
