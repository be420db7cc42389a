// Package amanalyze implements the AM analyzer of SPEC_FULL.md §C.1: a
// read-only observer attachable to the pulse detector's sink that
// histograms pulse/gap widths and guesses nominal short/long/sync
// timings via k-means, mirroring rtl_433's "analyze" developer mode.
package amanalyze

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/jlmayfield/rfsense/pulse"
)

// Guess holds the clustered timing estimate in microseconds. Sync is
// zero when k < 3 or no third cluster was requested.
type Guess struct {
	Short int
	Long  int
	Sync  int
}

// Analyzer collects pulse_us and gap_us samples from every packet
// delivered to it and clusters them on demand. It implements
// pulse.PacketSink so it can be attached alongside the dispatcher
// without altering detector internals (SPEC_FULL.md §C.3).
type Analyzer struct {
	k       int
	samples []float64
}

// NewAnalyzer creates an analyzer targeting k clusters. Per
// SPEC_FULL.md §D.4, k defaults to 2 (short/long); pass 3 when a sync
// symbol is expected to be present and distinct.
func NewAnalyzer(k int) *Analyzer {
	if k < 2 {
		k = 2
	}
	return &Analyzer{k: k}
}

// Deliver implements pulse.PacketSink: every pulse and gap width in
// the packet becomes one sample in the histogram.
func (a *Analyzer) Deliver(pd pulse.PulseData) {
	for i := 0; i < pd.NumPulses; i++ {
		if pd.PulseUS[i] > 0 {
			a.samples = append(a.samples, float64(pd.PulseUS[i]))
		}
		if pd.GapUS[i] > 0 {
			a.samples = append(a.samples, float64(pd.GapUS[i]))
		}
	}
}

// Reset discards all collected samples.
func (a *Analyzer) Reset() { a.samples = a.samples[:0] }

// NumSamples reports how many pulse/gap widths have been collected.
func (a *Analyzer) NumSamples() int { return len(a.samples) }

// Guess runs a small centroid k-means over the collected widths and
// returns the cluster centers sorted ascending as Short/Long(/Sync).
// The heuristic is intentionally unsophisticated (no outlier
// trimming, no restart-from-best-of-N) per SPEC_FULL.md §C.1: it is a
// developer aid for discovering nominal timings from a capture, not a
// production classifier.
func (a *Analyzer) Guess() Guess {
	if len(a.samples) == 0 {
		return Guess{}
	}
	centers := kmeans(a.samples, a.k)
	sort.Float64s(centers)

	g := Guess{}
	switch len(centers) {
	case 1:
		g.Short = int(centers[0])
		g.Long = int(centers[0])
	case 2:
		g.Short = int(centers[0])
		g.Long = int(centers[1])
	default:
		g.Short = int(centers[0])
		g.Long = int(centers[1])
		g.Sync = int(centers[len(centers)-1])
	}
	return g
}

// kmeans runs Lloyd's algorithm on 1-D data, seeding centroids from
// evenly spaced order statistics of the sorted samples and iterating
// mean-reassignment (via gonum/stat.Mean) until convergence or a
// fixed iteration cap.
func kmeans(samples []float64, k int) []float64 {
	if k > len(samples) {
		k = len(samples)
	}
	sorted := append([]float64{}, samples...)
	sort.Float64s(sorted)

	centers := make([]float64, k)
	for i := 0; i < k; i++ {
		idx := (i * (len(sorted) - 1)) / maxInt(k-1, 1)
		centers[i] = sorted[idx]
	}

	assignments := make([]int, len(samples))
	buckets := make([][]float64, k)

	const maxIterations = 25
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, v := range samples {
			best, bestDist := 0, distSq(v, centers[0])
			for c := 1; c < k; c++ {
				if d := distSq(v, centers[c]); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assignments[i] != best {
				changed = true
			}
			assignments[i] = best
		}
		if !changed && iter > 0 {
			break
		}
		for c := range buckets {
			buckets[c] = buckets[c][:0]
		}
		for i, v := range samples {
			c := assignments[i]
			buckets[c] = append(buckets[c], v)
		}
		for c := range centers {
			if len(buckets[c]) == 0 {
				continue
			}
			centers[c] = stat.Mean(buckets[c], nil)
		}
	}
	return centers
}

func distSq(a, b float64) float64 {
	d := a - b
	return d * d
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
