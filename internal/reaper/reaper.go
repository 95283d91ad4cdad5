// Package reaper collects child state changes after SIGCHLD and publishes them
// as job events. It never touches the job table.
package reaper

import (
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"

	"jobsh/internal/jobs"
)

type Reaper struct {
	events chan<- jobs.Event
	log    *slog.Logger

	// hold keeps children unreaped while a launch is in progress, so a
	// pipeline's group leader stays joinable even if it already exited.
	hold sync.Mutex

	sigs chan os.Signal
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func New(events chan<- jobs.Event, log *slog.Logger) *Reaper {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reaper{
		events: events,
		log:    log,
		sigs:   make(chan os.Signal, 1),
		done:   make(chan struct{}),
	}
}

// Start subscribes to SIGCHLD and begins draining. It must run before the
// first child is created.
func (r *Reaper) Start() {
	signal.Notify(r.sigs, unix.SIGCHLD)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.loop()
	}()
}

// Block defers reaping until Unblock. Launchers bracket fork and register
// with it.
func (r *Reaper) Block() { r.hold.Lock() }

func (r *Reaper) Unblock() { r.hold.Unlock() }

// Stop unsubscribes and waits for the drain goroutine to exit.
func (r *Reaper) Stop() {
	r.once.Do(func() {
		signal.Stop(r.sigs)
		close(r.done)
	})
	r.wg.Wait()
}

func (r *Reaper) loop() {
	// Children that changed state before Notify took effect.
	if !r.Poll() {
		return
	}

	for {
		select {
		case <-r.sigs:
			if !r.Poll() {
				return
			}
		case <-r.done:
			return
		}
	}
}

// Poll reaps every child whose state change is already available without
// waiting for the others. SIGCHLD does not queue per child, so one
// notification may stand for several changes. It returns false if the reaper
// was stopped while handing off an event.
func (r *Reaper) Poll() bool {
	for {
		var ws unix.WaitStatus
		r.hold.Lock()
		pid, err := unix.Wait4(-1, &ws, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED, nil)
		r.hold.Unlock()

		switch {
		case err == unix.EINTR:
			continue
		case err == unix.ECHILD:
			return true
		case err != nil:
			r.log.Warn("wait4", "err", err)
			return true
		case pid <= 0:
			return true
		}

		ev, ok := toEvent(pid, ws)
		if !ok {
			continue
		}

		r.log.Debug("reaped", "pid", pid, "kind", ev.Kind, "status", ev.ExitCode())

		select {
		case r.events <- ev:
		case <-r.done:
			return false
		}
	}
}

func toEvent(pid int, ws unix.WaitStatus) (jobs.Event, bool) {
	switch {
	case ws.Exited():
		return jobs.Event{Pid: pid, Kind: jobs.Exited, Status: ws.ExitStatus()}, true
	case ws.Signaled():
		return jobs.Event{Pid: pid, Kind: jobs.Signaled, Signal: ws.Signal()}, true
	case ws.Stopped():
		return jobs.Event{Pid: pid, Kind: jobs.Suspended, Signal: ws.StopSignal()}, true
	case ws.Continued():
		return jobs.Event{Pid: pid, Kind: jobs.Continued}, true
	}
	return jobs.Event{}, false
}
