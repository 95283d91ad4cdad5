package reaper

import (
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobsh/internal/jobs"
)

func spawn(t *testing.T, argv ...string) int {
	t.Helper()
	path, err := exec.LookPath(argv[0])
	require.NoError(t, err)

	pid, err := syscall.ForkExec(path, argv, &syscall.ProcAttr{
		Env:   os.Environ(),
		Files: []uintptr{os.Stdin.Fd(), os.Stdout.Fd(), os.Stderr.Fd()},
		Sys:   &syscall.SysProcAttr{Setpgid: true},
	})
	require.NoError(t, err)
	return pid
}

func next(t *testing.T, events <-chan jobs.Event) jobs.Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(10 * time.Second):
		t.Fatal("no event from reaper")
	}
	return jobs.Event{}
}

func startReaper(t *testing.T) chan jobs.Event {
	t.Helper()
	events := make(chan jobs.Event, 16)
	r := New(events, nil)
	r.Start()
	t.Cleanup(r.Stop)
	return events
}

func TestReapExitStatus(t *testing.T) {
	events := startReaper(t)

	pid := spawn(t, "sh", "-c", "exit 3")

	ev := next(t, events)
	assert.Equal(t, pid, ev.Pid)
	assert.Equal(t, jobs.Exited, ev.Kind)
	assert.Equal(t, 3, ev.Status)
	assert.True(t, ev.Terminated())
}

func TestReapStopContinueKill(t *testing.T) {
	events := startReaper(t)

	pid := spawn(t, "sleep", "30")

	require.NoError(t, syscall.Kill(pid, syscall.SIGSTOP))
	ev := next(t, events)
	assert.Equal(t, pid, ev.Pid)
	assert.Equal(t, jobs.Suspended, ev.Kind)
	assert.Equal(t, syscall.SIGSTOP, ev.Signal)

	require.NoError(t, syscall.Kill(pid, syscall.SIGCONT))
	ev = next(t, events)
	assert.Equal(t, jobs.Continued, ev.Kind)

	require.NoError(t, syscall.Kill(pid, syscall.SIGKILL))
	ev = next(t, events)
	assert.Equal(t, jobs.Signaled, ev.Kind)
	assert.Equal(t, syscall.SIGKILL, ev.Signal)
	assert.Equal(t, 128+9, ev.ExitCode())
}

func TestReapCoalescedChildren(t *testing.T) {
	events := startReaper(t)

	want := map[int]bool{}
	for i := 0; i < 4; i++ {
		want[spawn(t, "true")] = true
	}

	for len(want) > 0 {
		ev := next(t, events)
		require.True(t, want[ev.Pid], "unexpected pid %d", ev.Pid)
		assert.Equal(t, jobs.Exited, ev.Kind)
		delete(want, ev.Pid)
	}
}

func TestPollWithoutChildren(t *testing.T) {
	events := make(chan jobs.Event, 1)
	r := New(events, nil)

	assert.True(t, r.Poll())
	assert.Empty(t, events)
}

func TestStopIsIdempotent(t *testing.T) {
	r := New(make(chan jobs.Event), nil)
	r.Start()
	r.Stop()
	r.Stop()
}

func TestBlockDefersReaping(t *testing.T) {
	events := make(chan jobs.Event, 16)
	r := New(events, nil)
	r.Start()
	t.Cleanup(r.Stop)

	r.Block()
	pid := spawn(t, "true")

	// The child is a zombie until Unblock; its pid stays valid.
	time.Sleep(50 * time.Millisecond)
	assert.NoError(t, syscall.Kill(pid, 0))
	r.Unblock()

	ev := next(t, events)
	assert.Equal(t, pid, ev.Pid)
}
