// sim/scheduler.go
package sim

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// WakeCause tells a process why the scheduler resumed it.
type WakeCause int

const (
	// WakeStart is delivered once, when a spawned process first runs.
	WakeStart WakeCause = iota
	// WakeTimeout is delivered when the process's pending wait completes.
	WakeTimeout
	// WakeInterrupt is delivered when another process interrupts the pending wait.
	WakeInterrupt
)

func (c WakeCause) String() string {
	switch c {
	case WakeStart:
		return "start"
	case WakeTimeout:
		return "timeout"
	case WakeInterrupt:
		return "interrupt"
	}
	return fmt.Sprintf("WakeCause(%d)", int(c))
}

// Wakeup is handed to Process.Resume. Elapsed is the virtual time that passed
// between the process suspending and this resume; for an interrupt it is the
// portion of the wait actually consumed.
type Wakeup struct {
	Cause   WakeCause
	Elapsed float64
}

// Process is a cooperative simulation process written as an explicit state
// machine. Resume runs with the execution token; before returning it either
// calls Proc.Wait to suspend again or returns without waiting, which ends the
// process.
type Process interface {
	Resume(p *Proc, w Wakeup)
}

// wakeEvent is a pending resume of a process. Cancelled events stay in the
// heap and are discarded when popped.
type wakeEvent struct {
	time      float64
	seq       uint64
	proc      *Proc
	cause     WakeCause
	cancelled bool
}

// EventQueue implements heap.Interface and orders wakeups by time, breaking
// ties by scheduling order so that same-instant wakeups run reproducibly.
type EventQueue []*wakeEvent

func (eq EventQueue) Len() int { return len(eq) }
func (eq EventQueue) Less(i, j int) bool {
	if eq[i].time != eq[j].time {
		return eq[i].time < eq[j].time
	}
	return eq[i].seq < eq[j].seq
}
func (eq EventQueue) Swap(i, j int) { eq[i], eq[j] = eq[j], eq[i] }

func (eq *EventQueue) Push(x any) {
	*eq = append(*eq, x.(*wakeEvent))
}

func (eq *EventQueue) Pop() any {
	old := *eq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*eq = old[0 : n-1]
	return item
}

// Scheduler owns virtual time and the set of suspended processes. Exactly one
// process holds the execution token at any instant; all state mutation happens
// inside Resume.
//
// Thread-safety: NOT thread-safe. Must be driven from a single goroutine.
type Scheduler struct {
	now    float64
	seq    uint64
	queue  EventQueue
	active *Proc
	procs  []*Proc
}

// NewScheduler returns a scheduler positioned at virtual time zero.
func NewScheduler() *Scheduler {
	return &Scheduler{queue: make(EventQueue, 0)}
}

// Now returns the current virtual time.
func (s *Scheduler) Now() float64 { return s.now }

// Spawn registers a process and schedules its first resume at the current
// instant. Processes spawned at the same instant start in registration order.
func (s *Scheduler) Spawn(name string, proc Process) *Proc {
	p := &Proc{sched: s, name: name, proc: proc, waitStart: s.now}
	s.procs = append(s.procs, p)
	p.pending = s.push(s.now, p, WakeStart)
	return p
}

func (s *Scheduler) push(at float64, p *Proc, cause WakeCause) *wakeEvent {
	ev := &wakeEvent{time: at, seq: s.seq, proc: p, cause: cause}
	s.seq++
	heap.Push(&s.queue, ev)
	return ev
}

// RunUntil processes wakeups in time order until the queue is empty or the
// next wakeup is beyond until. Wakeups at exactly until still run. Processes
// still suspended at the horizon stay queued and resume on the next call.
func (s *Scheduler) RunUntil(until float64) {
	for len(s.queue) > 0 {
		if s.queue[0].time > until {
			break
		}
		ev := heap.Pop(&s.queue).(*wakeEvent)
		if ev.cancelled {
			continue
		}
		s.now = ev.time
		p := ev.proc
		p.pending = nil
		logrus.Tracef("[t=%.4f] resume %s (%s)", s.now, p.name, ev.cause)
		s.dispatch(p, Wakeup{Cause: ev.cause, Elapsed: s.now - p.waitStart})
	}
	if s.now < until && !math.IsInf(until, 1) {
		s.now = until
	}
}

// dispatch hands the execution token to p and restores the previous holder
// when p suspends or finishes. Interrupts nest through this path.
func (s *Scheduler) dispatch(p *Proc, w Wakeup) {
	prev := s.active
	s.active = p
	p.running = true
	p.proc.Resume(p, w)
	p.running = false
	s.active = prev
	if p.pending == nil {
		p.done = true
		logrus.Debugf("[t=%.4f] process %s finished", s.now, p.name)
	}
}

// Pending returns the number of live (non-cancelled) wakeups.
func (s *Scheduler) Pending() int {
	n := 0
	for _, ev := range s.queue {
		if !ev.cancelled {
			n++
		}
	}
	return n
}

// Proc is the scheduler's handle on a spawned process.
type Proc struct {
	sched     *Scheduler
	name      string
	proc      Process
	pending   *wakeEvent
	waitStart float64
	running   bool
	done      bool
}

// Now returns the current virtual time.
func (p *Proc) Now() float64 { return p.sched.now }

// Waiting reports whether the process is suspended on a wait.
func (p *Proc) Waiting() bool { return p.pending != nil }

// Done reports whether the process has finished.
func (p *Proc) Done() bool { return p.done }

// Wait suspends the process for d units of virtual time. It must be called at
// most once per Resume, by the process that currently holds the token.
func (p *Proc) Wait(d float64) {
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		panic(fmt.Sprintf("sim: process %s cannot wait %v", p.name, d))
	}
	if p.pending != nil {
		panic(fmt.Sprintf("sim: process %s is already waiting", p.name))
	}
	p.waitStart = p.sched.now
	p.pending = p.sched.push(p.sched.now+d, p, WakeTimeout)
}

// Interrupt cancels p's pending wait and resumes it immediately with
// WakeInterrupt; control returns to the caller once p suspends again. It
// returns false, doing nothing, when p has no pending wait.
func (p *Proc) Interrupt() bool {
	if p.running {
		panic(fmt.Sprintf("sim: process %s is running and cannot be interrupted", p.name))
	}
	if p.pending == nil {
		return false
	}
	if p.pending.cause == WakeStart {
		// Not started yet: the start wakeup still runs first.
		return false
	}
	p.pending.cancelled = true
	p.pending = nil
	logrus.Tracef("[t=%.4f] interrupt %s", p.sched.now, p.name)
	p.sched.dispatch(p, Wakeup{Cause: WakeInterrupt, Elapsed: p.sched.now - p.waitStart})
	return true
}
