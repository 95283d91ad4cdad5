package jobs

import (
	"fmt"
	"syscall"
)

type State int

const (
	Undefined State = iota
	Foreground
	Background
	Stopped
)

// String returns the word used in job listings.
func (s State) String() string {
	switch s {
	case Foreground:
		return "Foreground"
	case Background:
		return "Running"
	case Stopped:
		return "Stopped"
	}
	return "Undefined"
}

type Job struct {
	Pid     int
	Pgid    int
	Jid     int
	State   State
	Cmdline string
}

func FormatListing(job Job) string {
	return fmt.Sprintf("[%d] (%d) %s %s", job.Jid, job.Pid, job.State, job.Cmdline)
}

func FormatLaunch(job Job) string {
	return fmt.Sprintf("[%d] (%d) %s", job.Jid, job.Pid, job.Cmdline)
}

type EventKind int

const (
	Exited EventKind = iota + 1
	Signaled
	Suspended
	Continued
)

func (k EventKind) String() string {
	switch k {
	case Exited:
		return "exited"
	case Signaled:
		return "signaled"
	case Suspended:
		return "stopped"
	case Continued:
		return "continued"
	}
	return "unknown"
}

// Event is a single child state change observed by the reaper.
type Event struct {
	Pid    int
	Kind   EventKind
	Status int
	Signal syscall.Signal
}

// Terminated reports whether the process no longer exists.
func (ev Event) Terminated() bool {
	return ev.Kind == Exited || ev.Kind == Signaled
}

// ExitCode folds the event into a shell-style status: the exit status for
// normal termination, 128+signal otherwise.
func (ev Event) ExitCode() int {
	switch ev.Kind {
	case Exited:
		return ev.Status
	case Signaled, Suspended:
		return 128 + int(ev.Signal)
	}
	return 0
}
