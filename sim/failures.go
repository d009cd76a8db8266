package sim

import (
	"math/rand"

	"github.com/sirupsen/logrus"
)

// slowdownInjector periodically degrades a standard unit. Each failure
// removes speed and adds heat; once speed reaches the unit's threshold the
// unit raises a Low alarm.
type slowdownInjector struct {
	unit *Unit
	rng  *rand.Rand
	mttf float64
}

func (s *slowdownInjector) Resume(p *Proc, w Wakeup) {
	if w.Cause == WakeTimeout {
		s.inject(p.Now())
	}
	p.Wait(timeToFailure(s.rng, s.mttf))
}

func (s *slowdownInjector) inject(now float64) {
	u := s.unit
	if u.line.Repairing {
		logrus.Debugf("[t=%.4f] %s slowdown skipped, line repairing", now, u.ID)
		return
	}
	fc := u.line.cfg.Failures
	u.Speed -= fc.SpeedLoss
	u.Temperature += fc.SlowdownHeat
	logrus.Debugf("[t=%.4f] %s slowed to %.1f", now, u.ID, u.Speed)
	if u.Speed <= u.SpeedThreshold {
		u.raise(AlarmLow)
	}
}

// coolantLeakInjector periodically starts a coolant leak on the freezer and
// warms it one degree per warming interval until the alarm clears.
type coolantLeakInjector struct {
	unit    *Unit
	rng     *rand.Rand
	mttf    float64
	warming bool
}

func (c *coolantLeakInjector) Resume(p *Proc, w Wakeup) {
	switch {
	case w.Cause == WakeStart:
		p.Wait(timeToFailure(c.rng, c.mttf))
	case c.warming:
		c.warm(p)
	default:
		u := c.unit
		if u.line.Repairing {
			logrus.Debugf("[t=%.4f] %s coolant leak skipped, line repairing", p.Now(), u.ID)
			p.Wait(timeToFailure(c.rng, c.mttf))
			return
		}
		u.Temperature = u.line.cfg.Failures.LeakTemperature
		u.raise(AlarmHigh)
		c.warm(p)
	}
}

func (c *coolantLeakInjector) warm(p *Proc) {
	if !c.unit.Alarming {
		c.warming = false
		p.Wait(timeToFailure(c.rng, c.mttf))
		return
	}
	c.warming = true
	c.unit.Temperature++
	p.Wait(c.unit.line.cfg.Failures.WarmingInterval)
}
