package model

import "fmt"

// ProcessorStat is the tally returned by a single processor run.
type ProcessorStat struct {
	// Link counts every candidate URL examined.
	Link int

	// Skip counts candidates that were already known.
	Skip int

	// Page counts pages created or updated.
	Page int

	// Enqueue counts queue entries created.
	Enqueue int

	// Download counts resources saved to disk.
	Download int
}

// Merge adds other into s.
func (s *ProcessorStat) Merge(other ProcessorStat) {
	s.Link += other.Link
	s.Skip += other.Skip
	s.Page += other.Page
	s.Enqueue += other.Enqueue
	s.Download += other.Download
}

// String returns a compact one-line summary.
func (s ProcessorStat) String() string {
	return fmt.Sprintf("{ link: %d, enque: %d, page: %d, dl: %d, skip: %d }",
		s.Link, s.Enqueue, s.Page, s.Download, s.Skip)
}

// WalkerStat aggregates one or more dispatch passes.
type WalkerStat struct {
	// Extract and Image count matched rules per processor kind.
	Extract int
	Image   int

	// Processor is the merged tally of every processor run.
	Processor ProcessorStat
}

// Count records one matched rule of the given kind.
func (s *WalkerStat) Count(kind ProcessorKind) {
	switch kind {
	case ProcessorExtract:
		s.Extract++
	case ProcessorImage:
		s.Image++
	}
}

// Workers returns the number of matched rules.
func (s WalkerStat) Workers() int {
	return s.Extract + s.Image
}

// Merge adds other into s.
func (s *WalkerStat) Merge(other WalkerStat) {
	s.Extract += other.Extract
	s.Image += other.Image
	s.Processor.Merge(other.Processor)
}

// MergeProcessor adds a single processor result into s.
func (s *WalkerStat) MergeProcessor(stat ProcessorStat) {
	s.Processor.Merge(stat)
}

// String returns a compact one-line summary.
func (s WalkerStat) String() string {
	return fmt.Sprintf("{ worker: %d, extract: %d, image: %d } %s",
		s.Workers(), s.Extract, s.Image, s.Processor)
}
