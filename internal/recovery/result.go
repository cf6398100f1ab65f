// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package recovery

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Result is a per-invocation counter record. Its fields are only ever
// mutated through the inc* methods, which are safe for concurrent use
// from the per-file worker pool — the only mutable state shared across
// files during a recovery run.
type Result struct {
	mu sync.Mutex

	Recovered           int
	ReproducedPerFormat map[string]int
	Skipped             int
	Missing             int
}

// NewResult returns a zeroed Result ready for concurrent use.
func NewResult() *Result {
	return &Result{ReproducedPerFormat: make(map[string]int)}
}

func (r *Result) incRecovered() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Recovered++
}

func (r *Result) incReproduced(format string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ReproducedPerFormat[format]++
}

func (r *Result) incSkipped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Skipped++
}

func (r *Result) incMissing() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Missing++
}

// Reproduced returns the sum of ReproducedPerFormat across every format,
// i.e. the total count of files reconstructed from raw input rather than
// recovered verbatim from a partial.
func (r *Result) Reproduced() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int
	for _, n := range r.ReproducedPerFormat {
		total += n
	}
	return total
}

// Total returns the sum of all counters, which equals the count of files
// in the torrent (padding files are counted as skipped).
func (r *Result) Total() int {
	return r.Recovered + r.Reproduced() + r.Skipped + r.Missing
}

// LogSummary emits the structured summary line external collaborators
// observe, with stable field keys: recovered_from_partial,
// compressed_from_raw, skipped_existing, missing.
func (r *Result) LogSummary(logger *zerolog.Logger) {
	if logger == nil {
		logger = &log.Logger
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	logger.Info().
		Int("recovered_from_partial", r.Recovered).
		Int("compressed_from_raw", r.sumLocked()).
		Int("skipped_existing", r.Skipped).
		Int("missing", r.Missing).
		Msg("recovery complete")
}

func (r *Result) sumLocked() int {
	var total int
	for _, n := range r.ReproducedPerFormat {
		total += n
	}
	return total
}
