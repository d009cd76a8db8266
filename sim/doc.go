// Package sim provides the discrete-event simulation engine for a production
// line of sequential equipment units.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - scheduler.go: virtual time, cooperative processes, waits and interrupts
//   - equipment.go: the per-unit batch loop and its alarm/repair state machine
//   - failures.go: the stochastic slowdown and coolant-leak injectors
//   - line.go: line assembly, line-scoped counters and the sampling clock
//
// # Process Model
//
// Every unit runs one batch-loop process plus its failure injectors; the line
// adds a telemetry sampler and an OEE sampler. Processes are explicit state
// machines implementing Process. Exactly one holds the execution token at a
// time. A process suspends with Proc.Wait and may be woken early by another
// process calling Proc.Interrupt, which runs the interrupted process's
// handler before the caller continues. Wakeups at the same instant run in the
// order they were scheduled, so a run is fully determined by its LineConfig
// and seed.
//
// # Alarm Cascade
//
// A unit entering Low (speed loss) or High (coolant leak) blocks its
// downstream neighbour with a Medium alarm, which forwards it further down
// the chain. Low and High repairs hold the line's Repairing flag and add to
// its down time; Medium waits do neither.
//
// # Sub-packages
//   - sim/record/: record types and sinks (JSONL streams, SQLite, memory)
//   - sim/replay/: cyclic replay of recorded streams for the query service
package sim
