package exec

import (
	"context"
	"fmt"
	"os"

	"jobsh/internal/jobs"
)

// launchPipeline starts every stage before waiting on any of them. Stage i
// reads the pipe written by stage i-1; the parent drops each pipe end as soon
// as the stage that uses it has been forked, so readers see end of stream once
// their writer exits. Every stage joins the group of the first one started.
func (l *Launcher) launchPipeline(ctx context.Context, p Pipeline, state jobs.State) Outcome {
	out := Outcome{Background: state == jobs.Background, Status: 1}

	n := len(p.Commands)
	pids := make([]int, n)
	status := make([]int, n)
	var registered []jobs.Job
	var prevRead *os.File
	pgid := 0

	l.block()
	for i, cmd := range p.Commands {
		var r, w *os.File
		if i < n-1 {
			var err error
			r, w, err = os.Pipe()
			if err != nil {
				errColor.Fprintf(l.stderr(), "jobsh: pipe: %v\n", err)
				out.Err = fmt.Errorf("%w: pipe: %v", ErrForkFailed, err)
				for j := i; j < n; j++ {
					status[j] = 1
				}
				if prevRead != nil {
					_ = prevRead.Close()
				}
				break
			}
		}

		stdin, stdout := l.stdin(), l.stdout()
		if prevRead != nil {
			stdin = prevRead
		}
		if w != nil {
			stdout = w
		}

		pid, err := l.start(cmd, stdin, stdout, pgid)

		if prevRead != nil {
			_ = prevRead.Close()
		}
		if w != nil {
			_ = w.Close()
		}
		prevRead = r

		if err != nil {
			status[i] = l.statusFor(err)
			if out.Err == nil {
				out.Err = err
			}
			continue
		}

		if pgid == 0 {
			pgid = pid
		}
		pids[i] = pid
		out.Pids = append(out.Pids, pid)

		if job, err := l.Jobs.Register(pid, pgid, state, cmd.String()); err == nil {
			registered = append(registered, job)
			out.Jids = append(out.Jids, job.Jid)
		}
	}
	l.unblock()

	if len(out.Pids) == 0 {
		out.Status = status[n-1]
		return out
	}

	if state == jobs.Background {
		for _, job := range registered {
			l.Jobs.Announce(job)
		}
		out.Status = 0
		return out
	}

	done, err := l.Jobs.WaitForForeground(ctx, pgid, out.Pids...)
	if err != nil && out.Err == nil {
		out.Err = err
	}

	last := pids[n-1]
	if last == 0 {
		out.Status = status[n-1]
		l.collect(&out, done, 0)
		return out
	}
	l.collect(&out, done, last)
	return out
}
