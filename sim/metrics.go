// Computes the line's Availability/Performance/Quality efficiency metrics.

package sim

import (
	"fmt"
	"io"
)

// OEEInputs is the line state an OEE sample is derived from.
type OEEInputs struct {
	Elapsed              float64 // virtual time since the start of the run
	DownTime             float64 // time spent in Low/High repairs
	IdealCycleTime       float64 // time per batch at the nominal line speed
	TotalBatchesProduced int
	BadBatchesOutput     int
}

// OEE is one computed efficiency sample.
type OEE struct {
	Availability    float64
	Performance     float64
	Quality         float64
	OEE             float64
	PotentialOutput float64
}

// ComputeOEE derives availability, performance and quality:
//
//	availability    = (elapsed - downTime) / elapsed
//	potentialOutput = (elapsed - downTime) / idealCycleTime
//	performance     = total / potentialOutput, or 1 while potentialOutput <= 1
//	quality         = (total - bad) / total, or 1 while nothing was produced
//
// Before any time has elapsed availability is 1. Only a non-positive ideal
// cycle time, which is a configuration error, is rejected.
func ComputeOEE(in OEEInputs) (OEE, error) {
	if in.IdealCycleTime <= 0 {
		return OEE{}, fmt.Errorf("ideal cycle time must be positive, got %v", in.IdealCycleTime)
	}
	uptime := max(in.Elapsed-in.DownTime, 0)
	out := OEE{
		Availability:    1.0,
		PotentialOutput: uptime / in.IdealCycleTime,
		Performance:     1.0,
		Quality:         1.0,
	}
	if in.Elapsed > 0 {
		out.Availability = uptime / in.Elapsed
	}
	if out.PotentialOutput > 1 {
		out.Performance = float64(in.TotalBatchesProduced) / out.PotentialOutput
	}
	if in.TotalBatchesProduced > 0 {
		out.Quality = float64(in.TotalBatchesProduced-in.BadBatchesOutput) / float64(in.TotalBatchesProduced)
	}
	out.OEE = out.Availability * out.Performance * out.Quality
	return out, nil
}

// Summary is the end-of-run view of a line.
type Summary struct {
	LineID               string
	Elapsed              float64
	DownTime             float64
	TotalBatchesProduced int
	BadBatchesOutput     int
	UnitBatches          map[string]int
	OEE                  OEE
}

// Print writes the end-of-run summary.
func (s Summary) Print(w io.Writer, order []string) {
	fmt.Fprintln(w, "=== Simulation Summary ===")
	fmt.Fprintf(w, "Line                 : %s\n", s.LineID)
	fmt.Fprintf(w, "Elapsed              : %.3f\n", s.Elapsed)
	fmt.Fprintf(w, "Down Time            : %.3f\n", s.DownTime)
	fmt.Fprintf(w, "Batches Produced     : %d\n", s.TotalBatchesProduced)
	fmt.Fprintf(w, "Bad Batches          : %d\n", s.BadBatchesOutput)
	fmt.Fprintf(w, "Availability         : %.4f\n", s.OEE.Availability)
	fmt.Fprintf(w, "Performance          : %.4f\n", s.OEE.Performance)
	fmt.Fprintf(w, "Quality              : %.4f\n", s.OEE.Quality)
	fmt.Fprintf(w, "OEE                  : %.4f\n", s.OEE.OEE)
	for _, id := range order {
		fmt.Fprintf(w, "  %-60s %d batches\n", id, s.UnitBatches[id])
	}
}
