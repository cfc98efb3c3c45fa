// Package detection finds answer-bubble candidates in a binary ink mask and
// organizes them into a question/option grid.
//
// Detection is purely geometric. Connected dark components are extracted
// with a flood fill and filtered by bounding-box area and aspect ratio: a
// circle's bounding box is square, so a width/height ratio near 1.0 serves
// as a cheap circularity proxy that rejects text glyphs, ruled lines, and
// stray marks. Survivors are clustered into horizontal rows by y-centroid
// proximity and ordered left to right within each row, which fixes the
// option lettering.
//
// The package never looks at fill levels; whether a bubble is marked is the
// grading package's concern.
package detection
