package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"syscall"

	"github.com/fatih/color"
	"golang.org/x/sys/unix"
)

var (
	ErrNoSuchJob    = errors.New("no such job")
	ErrInvalidState = errors.New("invalid target state")
	ErrEventsClosed = errors.New("event stream closed")
)

var warnColor = color.New(color.FgYellow)

// JobManager owns the job table. Child state changes arrive on Events from the
// reaper and are applied only by the goroutine calling Drain or
// WaitForForeground, so the table needs no lock.
type JobManager struct {
	Table   *Table
	Events  <-chan Event
	Signals <-chan os.Signal

	Out io.Writer
	Err io.Writer
	Log *slog.Logger

	notices []string
}

func (jm *JobManager) logger() *slog.Logger {
	if jm.Log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return jm.Log
}

func (jm *JobManager) out() io.Writer {
	if jm.Out == nil {
		return os.Stdout
	}
	return jm.Out
}

func (jm *JobManager) errOut() io.Writer {
	if jm.Err == nil {
		return os.Stderr
	}
	return jm.Err
}

// Register records a freshly forked process. On ErrTableFull a warning is
// printed and the process keeps running untracked.
func (jm *JobManager) Register(pid, pgid int, state State, cmdline string) (Job, error) {
	jid, err := jm.Table.Add(pid, pgid, state, cmdline)
	if err != nil {
		if errors.Is(err, ErrTableFull) {
			warnColor.Fprintf(jm.errOut(), "jobsh: %v (%d jobs), pid %d runs untracked\n", err, jm.Table.Cap(), pid)
		}
		jm.logger().Warn("register failed", "pid", pid, "err", err)
		return Job{}, err
	}

	job := Job{Pid: pid, Pgid: pgid, Jid: jid, State: state, Cmdline: cmdline}
	jm.logger().Debug("registered", "pid", pid, "pgid", pgid, "jid", jid, "state", state)
	return job, nil
}

// Announce prints the background launch line for job.
func (jm *JobManager) Announce(job Job) {
	fmt.Fprintln(jm.out(), FormatLaunch(job))
}

// Apply folds one event into the table. It returns the job as it was before
// the event and whether the pid was tracked.
func (jm *JobManager) Apply(ev Event) (Job, bool) {
	job, ok := jm.Table.FindByPid(ev.Pid)
	if !ok {
		jm.logger().Debug("untracked child", "pid", ev.Pid, "kind", ev.Kind)
		return Job{}, false
	}

	switch ev.Kind {
	case Exited, Signaled:
		jm.Table.Remove(ev.Pid)
	case Suspended:
		jm.Table.SetState(ev.Pid, Stopped)
	case Continued:
		if job.State == Stopped {
			jm.Table.SetState(ev.Pid, Background)
		}
	}

	jm.logger().Debug("applied", "pid", ev.Pid, "jid", job.Jid, "kind", ev.Kind, "status", ev.ExitCode())
	return job, true
}

// Drain applies every queued event without blocking and prints the notices
// collected since the last call.
func (jm *JobManager) Drain() {
	for {
		select {
		case ev, ok := <-jm.Events:
			if !ok {
				jm.flushNotices()
				return
			}
			if job, tracked := jm.Apply(ev); tracked {
				jm.queueNotice(job, ev)
			}
		default:
			jm.flushNotices()
			return
		}
	}
}

// WaitForForeground blocks until each of pids has terminated or stopped.
// Interrupt signals received meanwhile are forwarded to the process group
// pgid. Events for other children are applied as they arrive and their
// notices are held for the next Drain.
func (jm *JobManager) WaitForForeground(ctx context.Context, pgid int, pids ...int) (map[int]Event, error) {
	pending := make(map[int]bool, len(pids))
	for _, pid := range pids {
		pending[pid] = true
	}
	done := make(map[int]Event, len(pids))

	jm.discardSignals()

	for len(pending) > 0 {
		select {
		case ev, ok := <-jm.Events:
			if !ok {
				return done, ErrEventsClosed
			}

			job, tracked := jm.Apply(ev)
			if !pending[ev.Pid] {
				if tracked {
					jm.queueNotice(job, ev)
				}
				continue
			}

			switch ev.Kind {
			case Exited, Signaled:
				delete(pending, ev.Pid)
				done[ev.Pid] = ev
			case Suspended:
				delete(pending, ev.Pid)
				done[ev.Pid] = ev
				if tracked {
					job.State = Stopped
					fmt.Fprintln(jm.out(), FormatListing(job))
				}
			}
		case sig := <-jm.Signals:
			jm.forward(pgid, sig)
		case <-ctx.Done():
			return done, ctx.Err()
		}
	}

	return done, nil
}

// Continue resumes the process group of a tracked job and records the new
// state on every job in that group. Waiting for a job continued into the foreground is up to the caller.
func (jm *JobManager) Continue(pid int, state State) error {
	if state != Foreground && state != Background {
		return fmt.Errorf("continue %d as %s: %w", pid, state, ErrInvalidState)
	}

	job, ok := jm.Table.FindByPid(pid)
	if !ok {
		return fmt.Errorf("continue %d: %w", pid, ErrNoSuchJob)
	}

	target := -job.Pgid
	if job.Pgid <= 0 {
		target = job.Pid
	}
	if err := unix.Kill(target, unix.SIGCONT); err != nil {
		return fmt.Errorf("continue %d: %w", pid, err)
	}

	n := 1
	if job.Pgid > 0 {
		n = jm.Table.SetGroupState(job.Pgid, state)
	} else {
		jm.Table.SetState(pid, state)
	}
	jm.logger().Debug("continued", "pid", pid, "jid", job.Jid, "pgid", job.Pgid, "jobs", n, "state", state)
	return nil
}

func (jm *JobManager) Find(pid int) (Job, bool) {
	return jm.Table.FindByPid(pid)
}

func (jm *JobManager) FindJob(jid int) (Job, bool) {
	return jm.Table.FindByJid(jid)
}

func (jm *JobManager) Jobs() []Job {
	return jm.Table.List()
}

// WriteJobs prints the job listing in table order.
func (jm *JobManager) WriteJobs(w io.Writer) error {
	for _, job := range jm.Table.List() {
		if _, err := fmt.Fprintln(w, FormatListing(job)); err != nil {
			return err
		}
	}
	return nil
}

func (jm *JobManager) queueNotice(job Job, ev Event) {
	switch ev.Kind {
	case Exited:
		jm.notices = append(jm.notices, fmt.Sprintf("[%d] (%d) Done %s", job.Jid, job.Pid, job.Cmdline))
	case Signaled:
		jm.notices = append(jm.notices, fmt.Sprintf("[%d] (%d) Terminated %s", job.Jid, job.Pid, job.Cmdline))
	case Suspended:
		job.State = Stopped
		jm.notices = append(jm.notices, FormatListing(job))
	}
}

func (jm *JobManager) flushNotices() {
	for _, n := range jm.notices {
		fmt.Fprintln(jm.out(), n)
	}
	jm.notices = jm.notices[:0]
}

func (jm *JobManager) discardSignals() {
	for {
		select {
		case <-jm.Signals:
		default:
			return
		}
	}
}

func (jm *JobManager) forward(pgid int, sig os.Signal) {
	s, ok := sig.(syscall.Signal)
	if !ok || pgid <= 0 {
		return
	}
	if err := unix.Kill(-pgid, s); err != nil {
		jm.logger().Warn("forward signal", "pgid", pgid, "signal", s, "err", err)
	}
}
