package exec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"

	"github.com/fatih/color"

	"jobsh/internal/jobs"
)

// DefaultNotFoundStatus is the status of a command whose program cannot be
// executed.
const DefaultNotFoundStatus = 127

var (
	ErrEmptyPipeline = errors.New("empty pipeline")
	ErrNotFound      = errors.New("command not found")
	ErrForkFailed    = errors.New("cannot create process")
)

var errColor = color.New(color.FgRed)

// Hold brackets process creation and registration so that no child is reaped
// in between.
type Hold interface {
	Block()
	Unblock()
}

// Outcome describes what Launch did with one pipeline.
type Outcome struct {
	Pids       []int
	Jids       []int
	Background bool
	Stopped    bool
	Status     int
	Err        error
}

type Launcher struct {
	Jobs *jobs.JobManager
	Hold Hold

	NotFoundStatus int
	OutputMode     os.FileMode

	Stdin, Stdout, Stderr *os.File
	Log                   *slog.Logger
}

// Launch runs p in the foreground or, when it is marked with '&', in the
// background. Failures stay local to the pipeline and are reported in the
// outcome.
func (l *Launcher) Launch(ctx context.Context, p Pipeline) Outcome {
	if len(p.Commands) == 0 {
		return Outcome{Status: 1, Err: ErrEmptyPipeline}
	}

	state := jobs.Foreground
	if p.InBackground() {
		state = jobs.Background
	}

	if len(p.Commands) == 1 {
		return l.launchOne(ctx, p.Commands[0], state)
	}
	return l.launchPipeline(ctx, p, state)
}

func (l *Launcher) launchOne(ctx context.Context, cmd Command, state jobs.State) Outcome {
	out := Outcome{Background: state == jobs.Background}

	l.block()
	pid, err := l.start(cmd, l.stdin(), l.stdout(), 0)
	if err != nil {
		l.unblock()
		out.Status, out.Err = l.statusFor(err), err
		return out
	}
	job, regErr := l.Jobs.Register(pid, pid, state, cmd.String())
	l.unblock()

	out.Pids = []int{pid}
	if regErr == nil {
		out.Jids = []int{job.Jid}
	}

	if state == jobs.Background {
		if regErr == nil {
			l.Jobs.Announce(job)
		}
		return out
	}

	done, err := l.Jobs.WaitForForeground(ctx, pid, pid)
	if err != nil {
		out.Err = err
	}
	l.collect(&out, done, pid)
	return out
}

// start opens cmd's redirections, resolves its program and forks it into process
// group pgid, or into a new group led by the child when pgid is 0.
func (l *Launcher) start(cmd Command, stdin, stdout *os.File, pgid int) (int, error) {
	if len(cmd.CmdArgs) == 0 {
		return 0, ErrEmptyPipeline
	}
	name := cmd.CmdArgs[0]

	// Redirections take effect even when the program turns out to be missing.
	r, err := openRedirections(cmd, stdin, stdout, l.outputMode())
	if err != nil {
		errColor.Fprintf(l.stderr(), "jobsh: %v\n", err)
		return 0, err
	}
	defer r.Close()

	binary, err := exec.LookPath(name)
	if err != nil {
		errColor.Fprintf(l.stderr(), "%s: command not found\n", name)
		return 0, fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	pid, err := syscall.ForkExec(binary, cmd.CmdArgs, &syscall.ProcAttr{
		Env:   os.Environ(),
		Files: []uintptr{r.stdin.Fd(), r.stdout.Fd(), l.stderr().Fd()},
		Sys: &syscall.SysProcAttr{
			Setpgid: true,
			Pgid:    pgid,
		},
	})
	if err != nil {
		var errno syscall.Errno
		if errors.As(err, &errno) && (errno == syscall.EAGAIN || errno == syscall.ENOMEM) {
			errColor.Fprintf(l.stderr(), "jobsh: %s: %v\n", name, err)
			return 0, fmt.Errorf("%s: %w: %v", name, ErrForkFailed, err)
		}
		errColor.Fprintf(l.stderr(), "%s: %v\n", name, err)
		return 0, fmt.Errorf("%s: %w: %v", name, ErrNotFound, err)
	}

	l.logger().Debug("forked", "pid", pid, "pgid", pgid, "cmd", name)
	return pid, nil
}

func (l *Launcher) collect(out *Outcome, done map[int]jobs.Event, last int) {
	for _, ev := range done {
		if ev.Kind == jobs.Suspended {
			out.Stopped = true
		}
	}
	if ev, ok := done[last]; ok {
		out.Status = ev.ExitCode()
	}
}

func (l *Launcher) statusFor(err error) int {
	if errors.Is(err, ErrNotFound) {
		if l.NotFoundStatus > 0 {
			return l.NotFoundStatus
		}
		return DefaultNotFoundStatus
	}
	return 1
}

func (l *Launcher) block() {
	if l.Hold != nil {
		l.Hold.Block()
	}
}

func (l *Launcher) unblock() {
	if l.Hold != nil {
		l.Hold.Unblock()
	}
}

func (l *Launcher) outputMode() os.FileMode {
	if l.OutputMode == 0 {
		return DefaultOutputMode
	}
	return l.OutputMode
}

func (l *Launcher) stdin() *os.File {
	if l.Stdin == nil {
		return os.Stdin
	}
	return l.Stdin
}

func (l *Launcher) stdout() *os.File {
	if l.Stdout == nil {
		return os.Stdout
	}
	return l.Stdout
}

func (l *Launcher) stderr() *os.File {
	if l.Stderr == nil {
		return os.Stderr
	}
	return l.Stderr
}

func (l *Launcher) logger() *slog.Logger {
	if l.Log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l.Log
}
