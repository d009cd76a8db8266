package sim

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/cookiefactory/line-sim/sim/record"
)

// telemetrySampler emits one snapshot per unit each telemetry period and
// advances the line's sampling clock between ticks.
type telemetrySampler struct {
	line *Line
}

func (s *telemetrySampler) Resume(p *Proc, w Wakeup) {
	l := s.line
	if w.Cause == WakeTimeout {
		l.clockTicks++
	}
	if l.err == nil {
		stamp := record.FormatClock(l.Clock())
		for _, u := range l.Units {
			if err := l.sink.WriteTelemetry(TelemetryRecord(u, stamp)); err != nil {
				l.fail(err)
				break
			}
		}
	}
	p.Wait(l.cfg.Sampling.TelemetryPeriod)
}

// oeeSampler emits one OEE record each OEE period. Its first sample is one
// period after the start, so elapsed time is never zero.
type oeeSampler struct {
	line *Line
}

func (s *oeeSampler) Resume(p *Proc, w Wakeup) {
	l := s.line
	if w.Cause == WakeTimeout && l.err == nil {
		oee, err := l.OEE()
		if err != nil {
			logrus.Warnf("[t=%.4f] skipping OEE sample: %v", p.Now(), err)
		} else if err := l.sink.WriteOEE(OEERecord(l.ID, oee, record.FormatClock(l.Clock()))); err != nil {
			l.fail(err)
		}
	}
	p.Wait(l.cfg.Sampling.OEEPeriod)
}

// TelemetryRecord snapshots a unit.
func TelemetryRecord(u *Unit, stamp string) record.Telemetry {
	return record.Telemetry{
		Speed:         u.Speed,
		Temperature:   u.Temperature,
		AlarmSeverity: u.AlarmState.String(),
		AlarmMessage:  encodeAlarmMessage(u.AlarmMessage),
		Time:          stamp,
		Alarming:      u.Alarming,
		EntityID:      u.ID,
	}
}

// OEERecord converts a computed OEE sample into its stream record.
func OEERecord(lineID string, oee OEE, stamp string) record.OEE {
	return record.OEE{
		OEE:          oee.OEE,
		Availability: oee.Availability,
		Performance:  oee.Performance,
		Quality:      oee.Quality,
		Time:         stamp,
		EntityID:     lineID,
	}
}

func encodeAlarmMessage(m *AlarmMessage) *string {
	if m == nil {
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	s := string(data)
	return &s
}
