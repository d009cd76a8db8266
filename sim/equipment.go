package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// AlarmSeverity is the categorical fault state of a unit.
type AlarmSeverity int

const (
	AlarmNormal AlarmSeverity = iota
	AlarmLow                  // speed loss
	AlarmMedium               // blocked by an upstream repair
	AlarmHigh                 // coolant leak, freezer only
)

func (s AlarmSeverity) String() string {
	switch s {
	case AlarmNormal:
		return "Normal"
	case AlarmLow:
		return "Low"
	case AlarmMedium:
		return "Medium"
	case AlarmHigh:
		return "High"
	}
	return fmt.Sprintf("AlarmSeverity(%d)", int(s))
}

// AlarmMessage is the structured message a unit carries while alarming.
type AlarmMessage struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// MinBatchSpeed bounds the speed used for batch timing. Unit speed itself is
// never clamped and may go to zero or below; only the derived batch time is.
const MinBatchSpeed = 0.1

// TimePerBatch returns the processing time of one batch at the given speed.
func TimePerBatch(batchTime, speed float64) float64 {
	return batchTime / max(speed, MinBatchSpeed)
}

type unitPhase int

const (
	phaseWorking unitPhase = iota
	phaseRepairing
)

// Unit is one piece of equipment: a single-stage state machine whose batch
// loop is resumed by the scheduler. Exported fields are the observable state
// sampled by the telemetry recorder.
type Unit struct {
	ID               string
	Role             UnitRole
	Speed            float64
	Temperature      float64
	SpeedThreshold   float64
	AlarmState       AlarmSeverity
	Alarming         bool
	AlarmMessage     *AlarmMessage
	BatchesProcessed int

	downstream *Unit // non-owning; the line owns every unit
	line       *Line
	proc       *Proc

	// Batch-loop state carried across suspensions.
	phase      unitPhase
	remaining  float64       // unconsumed time of the in-flight batch
	repairing  AlarmSeverity // severity being repaired while phase == phaseRepairing
	repairLeft float64       // unconsumed repair time
	badBatch   bool          // in-flight batch was spoiled here
	tainted    int           // spoiled batches received from upstream, not yet passed on
}

// Downstream returns the next unit in the chain, or nil for a terminal unit.
func (u *Unit) Downstream() *Unit { return u.downstream }

// Terminal reports whether the unit feeds the line's final output.
func (u *Unit) Terminal() bool { return u.downstream == nil }

// Repairing reports whether the unit's batch loop is waiting out a repair.
func (u *Unit) Repairing() bool { return u.phase == phaseRepairing }

// Resume advances the batch loop.
func (u *Unit) Resume(p *Proc, w Wakeup) {
	switch w.Cause {
	case WakeStart:
		u.remaining = TimePerBatch(u.line.cfg.BatchTime, u.Speed)
		if u.Alarming {
			u.handleAlarm(p)
			return
		}
		p.Wait(u.remaining)

	case WakeTimeout:
		if u.phase == phaseRepairing {
			u.finishRepair()
			p.Wait(u.remaining)
			return
		}
		u.completeBatch()
		u.remaining = TimePerBatch(u.line.cfg.BatchTime, u.Speed)
		p.Wait(u.remaining)

	case WakeInterrupt:
		if u.phase == phaseRepairing {
			// A fault raised mid-repair does not restart the repair.
			u.repairLeft = max(u.repairLeft-w.Elapsed, 0)
			logrus.Debugf("[t=%.4f] %s interrupted during repair, %.4f left", p.Now(), u.ID, u.repairLeft)
			if u.repairing == AlarmMedium && u.AlarmState != AlarmMedium {
				u.escalateRepair(p.Now())
			}
			p.Wait(u.repairLeft)
			return
		}
		u.remaining = max(u.remaining-w.Elapsed, 0)
		u.handleAlarm(p)
	}
}

func (u *Unit) completeBatch() {
	u.BatchesProcessed++
	bad := u.badBatch
	u.badBatch = false
	if u.tainted > 0 {
		u.tainted--
		bad = true
	}
	if u.downstream != nil {
		if bad {
			u.downstream.tainted++
		}
		return
	}
	u.line.recordOutput(bad)
}

func (u *Unit) handleAlarm(p *Proc) {
	now := p.Now()
	switch u.AlarmState {
	case AlarmLow:
		u.AlarmMessage = u.alarmMessage()
		logrus.Warnf("[t=%.4f] %s abnormal speed reduction (speed=%.1f)", now, u.ID, u.Speed)
		u.cascade()
		u.beginRepair(p, true)

	case AlarmHigh:
		u.AlarmMessage = u.alarmMessage()
		logrus.Errorf("[t=%.4f] %s has a COOLANT LEAK", now, u.ID)
		u.badBatch = true
		u.cascade()
		u.beginRepair(p, true)

	case AlarmMedium:
		u.AlarmMessage = u.alarmMessage()
		logrus.Infof("[t=%.4f] %s is down for upstream repairs", now, u.ID)
		u.cascade()
		u.beginRepair(p, false)

	default:
		logrus.Debugf("[t=%.4f] %s interrupted without an alarm", now, u.ID)
		p.Wait(u.remaining)
	}
}

// alarmMessage returns the message for the unit's current severity.
func (u *Unit) alarmMessage() *AlarmMessage {
	switch u.AlarmState {
	case AlarmLow:
		return &AlarmMessage{
			Subject: "Abnormal speed reduction",
			Body:    fmt.Sprintf("[Warning] Speed slowed abnormally on %s", u.ID),
		}
	case AlarmHigh:
		return &AlarmMessage{
			Subject: "LN2 vapor flowing over exhaust troughs",
			Body:    "[Critical] Clogged exhaust pipe or full blast gate in piping",
		}
	case AlarmMedium:
		return &AlarmMessage{
			Subject: "Scheduled repair",
			Body:    fmt.Sprintf("[Warning] %s is blocked for repairs", u.ID),
		}
	}
	return nil
}

// escalateRepair turns a Medium wait into a repair of the Low or High fault
// raised during it. The remaining wait is kept; finishing it applies that
// fault's resets and down time. The downstream is already blocked.
func (u *Unit) escalateRepair(now float64) {
	u.repairing = u.AlarmState
	u.AlarmMessage = u.alarmMessage()
	u.line.Repairing = true
	if u.AlarmState == AlarmHigh {
		u.badBatch = true
	}
	logrus.Warnf("[t=%.4f] %s raised %s while blocked, repairing it", now, u.ID, u.AlarmState)
}

// cascade blocks the downstream unit for repairs. A unit that is already
// alarming keeps its current severity and is not interrupted again.
func (u *Unit) cascade() {
	d := u.downstream
	if d == nil || d.Alarming {
		return
	}
	d.AlarmState = AlarmMedium
	d.Alarming = true
	d.proc.Interrupt()
}

// beginRepair suspends the batch loop for the repair time. Low and High
// repairs hold the line repair flag and accrue down time; Medium waits do not.
func (u *Unit) beginRepair(p *Proc, holdsLine bool) {
	u.phase = phaseRepairing
	u.repairing = u.AlarmState
	u.repairLeft = u.line.cfg.Repair.RepairTime
	if holdsLine {
		u.line.Repairing = true
	}
	p.Wait(u.repairLeft)
}

func (u *Unit) finishRepair() {
	rc := u.line.cfg.Repair
	switch u.repairing {
	case AlarmLow:
		u.line.Repairing = false
		u.line.DownTime += rc.RepairTime
		u.Speed = rc.ResetSpeed
		u.Temperature = rc.ResetTemperature
	case AlarmHigh:
		u.line.Repairing = false
		u.line.DownTime += rc.RepairTime
		u.Temperature = rc.FreezerTemperature
	}
	u.phase = phaseWorking
	u.repairing = AlarmNormal
	u.repairLeft = 0
	u.clearAlarm()
	logrus.Infof("[t=%.4f] %s is back up", u.proc.Now(), u.ID)
}

func (u *Unit) clearAlarm() {
	u.AlarmState = AlarmNormal
	u.Alarming = false
	u.AlarmMessage = nil
}

// raise puts the unit into the given alarm and interrupts its batch loop.
func (u *Unit) raise(severity AlarmSeverity) {
	u.AlarmState = severity
	u.Alarming = true
	u.proc.Interrupt()
}
