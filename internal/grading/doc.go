// Package grading decides which bubbles are marked and scores the outcome.
//
// Classification is threshold-based: a bubble's fill ratio is the
// percentage of dark mask pixels within its bounding region, and a row
// resolves to a single option letter only when exactly one bubble reaches
// the threshold. Zero candidates yield "unmarked", two or more yield
// "ambiguous" — anomalies with a safe interpretation are represented as
// data, never as errors.
//
// Evaluation compares the resolved sheet against a caller-supplied answer
// key and partitions the key's questions into correct, wrong, and unmarked.
package grading
