// sim/line.go
package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cookiefactory/line-sim/sim/record"
)

// Line is a production line: the ordered chain of units, the line-scoped
// counters they update and the scheduler that drives them.
//
// Line-scoped state (DownTime, the batch counters and Repairing) is mutated
// only by the process holding the scheduler's execution token. A
// reimplementation on real threads would need to guard these fields.
type Line struct {
	ID    string
	Units []*Unit // physical chain order; the line owns every unit

	DownTime             float64 // cumulative time spent in Low/High repairs
	TotalBatchesProduced int     // batches completed by terminal units
	BadBatchesOutput     int     // spoiled batches among TotalBatchesProduced
	Repairing            bool    // a Low/High repair is in progress; gates failure injection

	cfg        LineConfig
	sched      *Scheduler
	rng        *PartitionedRNG
	sink       record.Sink
	byID       map[string]*Unit
	clockTicks int
	err        error
}

// NewLine validates cfg, assembles its units and registers every process
// with a fresh scheduler. Records are written to sink; pass record.Discard
// to drop them.
func NewLine(cfg LineConfig, sink record.Sink) (*Line, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = record.Discard
	}
	l := &Line{
		ID:    cfg.ID,
		Units: make([]*Unit, 0, len(cfg.Units)),
		cfg:   cfg,
		sched: NewScheduler(),
		rng:   NewPartitionedRNG(NewSimulationKey(cfg.Seed)),
		sink:  sink,
		byID:  make(map[string]*Unit, len(cfg.Units)),
	}
	for _, uc := range cfg.Units {
		role := uc.Role
		if role == "" {
			role = RoleStandard
		}
		u := &Unit{
			ID:             uc.ID,
			Role:           role,
			Speed:          cfg.Speed,
			Temperature:    uc.Temperature,
			SpeedThreshold: uc.SpeedThreshold,
			line:           l,
		}
		l.Units = append(l.Units, u)
		l.byID[u.ID] = u
	}
	for i, uc := range cfg.Units {
		if uc.Downstream != "" {
			l.Units[i].downstream = l.byID[uc.Downstream]
		}
	}

	fc := cfg.Failures
	for _, u := range l.Units {
		u.proc = l.sched.Spawn("batch/"+u.ID, u)
		switch u.Role {
		case RoleStandard:
			if fc.SlowdownMTTF > 0 {
				l.sched.Spawn(SubsystemSlowdown(u.ID), &slowdownInjector{
					unit: u, rng: l.rng.ForSubsystem(SubsystemSlowdown(u.ID)), mttf: fc.SlowdownMTTF,
				})
			}
		case RoleFreezer:
			if fc.CoolantLeakMTTF > 0 {
				l.sched.Spawn(SubsystemCoolantLeak(u.ID), &coolantLeakInjector{
					unit: u, rng: l.rng.ForSubsystem(SubsystemCoolantLeak(u.ID)), mttf: fc.CoolantLeakMTTF,
				})
			}
		}
	}
	l.sched.Spawn("sampler/telemetry", &telemetrySampler{line: l})
	l.sched.Spawn("sampler/oee", &oeeSampler{line: l})

	logrus.Infof("Assembled line %s with %d units, seed=%d", l.ID, len(l.Units), cfg.Seed)
	return l, nil
}

// Run simulates up to the configured horizon. It returns the first sink
// error, if any; the simulation itself cannot fail.
func (l *Line) Run() error {
	return l.RunUntil(l.cfg.Horizon)
}

// RunUntil simulates every event scheduled at or before t.
func (l *Line) RunUntil(t float64) error {
	l.sched.RunUntil(t)
	logrus.Infof("[t=%.4f] Simulation ended", l.sched.Now())
	return l.err
}

// Now returns the current virtual time.
func (l *Line) Now() float64 { return l.sched.Now() }

// Scheduler exposes the line's scheduler.
func (l *Line) Scheduler() *Scheduler { return l.sched }

// Unit returns the unit with the given id, or nil.
func (l *Line) Unit(id string) *Unit { return l.byID[id] }

// Err returns the first error reported by the sink.
func (l *Line) Err() error { return l.err }

// IdealCycleTime is the time per batch at the line's nominal speed.
func (l *Line) IdealCycleTime() float64 {
	return TimePerBatch(l.cfg.BatchTime, l.cfg.Speed)
}

// OEE computes the efficiency metrics at the current virtual time.
func (l *Line) OEE() (OEE, error) {
	return ComputeOEE(OEEInputs{
		Elapsed:              l.sched.Now(),
		DownTime:             l.DownTime,
		IdealCycleTime:       l.IdealCycleTime(),
		TotalBatchesProduced: l.TotalBatchesProduced,
		BadBatchesOutput:     l.BadBatchesOutput,
	})
}

// Summary reports the line counters and OEE at the current virtual time.
func (l *Line) Summary() Summary {
	s := Summary{
		LineID:               l.ID,
		Elapsed:              l.sched.Now(),
		DownTime:             l.DownTime,
		TotalBatchesProduced: l.TotalBatchesProduced,
		BadBatchesOutput:     l.BadBatchesOutput,
		UnitBatches:          make(map[string]int, len(l.Units)),
	}
	for _, u := range l.Units {
		s.UnitBatches[u.ID] = u.BatchesProcessed
	}
	if oee, err := l.OEE(); err == nil {
		s.OEE = oee
	}
	return s
}

// UnitIDs returns unit ids in chain order.
func (l *Line) UnitIDs() []string {
	ids := make([]string, len(l.Units))
	for i, u := range l.Units {
		ids[i] = u.ID
	}
	return ids
}

// Clock returns the sampling clock: the telemetry period times the number of
// completed telemetry ticks, rounded to the microsecond.
func (l *Line) Clock() time.Duration {
	minutes := float64(l.clockTicks) * l.cfg.Sampling.TelemetryPeriod
	return time.Duration(math.Round(minutes*float64(time.Minute/time.Microsecond))) * time.Microsecond
}

func (l *Line) recordOutput(bad bool) {
	l.TotalBatchesProduced++
	if bad {
		l.BadBatchesOutput++
	}
}

func (l *Line) fail(err error) {
	if l.err == nil {
		l.err = fmt.Errorf("line %s at t=%.4f: %w", l.ID, l.sched.Now(), err)
		logrus.Errorf("Recording stopped: %v", err)
	}
}
