// Package shell wires the job table, reaper, launcher and built-ins into the
// interactive read-eval loop.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"jobsh/internal/builtin"
	"jobsh/internal/config"
	exec "jobsh/internal/execute"
	"jobsh/internal/jobs"
	"jobsh/internal/parser"
	"jobsh/internal/prompt"
	"jobsh/internal/reaper"
)

// SyntaxErrorStatus is the status of a line that fails to parse.
const SyntaxErrorStatus = 2

var errColor = color.New(color.FgRed)

type Shell struct {
	Config   *config.Configuration
	Jobs     *jobs.JobManager
	Launcher *exec.Launcher
	Builtins *builtin.Builtins
	History  *builtin.History

	stdin, stdout, stderr *os.File
	log                   *slog.Logger

	reaper  *reaper.Reaper
	signals chan os.Signal
	status  int
}

func New(cfg *config.Configuration, stdin, stdout, stderr *os.File, log *slog.Logger) *Shell {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	events := make(chan jobs.Event, cfg.EventQueue)
	signals := make(chan os.Signal, 1)

	jm := &jobs.JobManager{
		Table:   jobs.NewTable(cfg.MaxJobs),
		Events:  events,
		Signals: signals,
		Out:     stdout,
		Err:     stderr,
		Log:     log.With("component", "jobs"),
	}
	r := reaper.New(events, log.With("component", "reaper"))
	history := &builtin.History{Limit: cfg.HistoryLimit}

	return &Shell{
		Config: cfg,
		Jobs:   jm,
		Launcher: &exec.Launcher{
			Jobs:           jm,
			Hold:           r,
			NotFoundStatus: cfg.NotFoundStatus,
			OutputMode:     cfg.FileMode(),
			Stdin:          stdin,
			Stdout:         stdout,
			Stderr:         stderr,
			Log:            log.With("component", "launcher"),
		},
		Builtins: &builtin.Builtins{Jobs: jm, History: history, Err: stderr},
		History:  history,
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		log:      log,
		reaper:   r,
		signals:  signals,
	}
}

// Start begins reaping children and catching the keyboard signals that are
// forwarded to foreground jobs. It must be called before the first launch.
func (s *Shell) Start() {
	s.reaper.Start()
	signal.Notify(s.signals, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTSTP)
}

// Close stops reaping. Jobs still running are left alone.
func (s *Shell) Close() {
	signal.Stop(s.signals)
	s.reaper.Stop()
}

// Status is the status of the last pipeline run.
func (s *Shell) Status() int { return s.status }

// Run reads and executes lines until end of input or quit.
func (s *Shell) Run(ctx context.Context, reader parser.LineSource) error {
	for !s.Builtins.Exit {
		s.Jobs.Drain()

		line, err := parser.Read(reader, prompt.Text(s.Config.Prompt))
		switch {
		case errors.Is(err, io.EOF):
			fmt.Fprintln(s.stdout, "exit")
			return nil
		case errors.Is(err, prompt.ErrInterrupt):
			continue
		case err != nil:
			return err
		}

		s.History.Add(string(line))
		s.Execute(ctx, line)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

// Execute parses line and runs each of its pipelines in order. It returns the
// status of the last one.
func (s *Shell) Execute(ctx context.Context, line []byte) int {
	pipelines, err := parser.Parse(line)
	if err != nil {
		errColor.Fprintf(s.stderr, "jobsh: %v\n", err)
		s.status = SyntaxErrorStatus
		return s.status
	}

	for _, p := range pipelines {
		if s.Builtins.Exit {
			break
		}
		s.status = s.run(ctx, p)
	}
	return s.status
}

func (s *Shell) run(ctx context.Context, p exec.Pipeline) int {
	if len(p.Commands) == 1 && !p.InBackground() {
		cmd := p.Commands[0]
		if f, ok := builtin.Lookup(cmd.CmdArgs[0]); ok {
			return s.runBuiltin(f, cmd)
		}
	}

	// Built-ins only run as a lone foreground command.
	for _, cmd := range p.Commands {
		if _, ok := builtin.Lookup(cmd.CmdArgs[0]); ok {
			errColor.Fprintf(s.stderr, "jobsh: %s: built-in cannot run in a pipeline or in the background\n", cmd.CmdArgs[0])
			return 1
		}
	}

	out := s.Launcher.Launch(ctx, p)
	if out.Err != nil {
		s.log.Debug("launch", "pipeline", p.String(), "status", out.Status, "err", out.Err)
	}
	return out.Status
}

func (s *Shell) runBuiltin(f builtin.Func, cmd exec.Command) int {
	var out io.Writer = s.stdout
	if cmd.OutFile != "" {
		flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if cmd.Append {
			flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		}
		file, err := os.OpenFile(cmd.OutFile, flags, s.Config.FileMode())
		if err != nil {
			errColor.Fprintf(s.stderr, "jobsh: %v\n", err)
			return 1
		}
		defer file.Close()
		out = file
	}
	return f(s.Builtins, cmd.CmdArgs, out)
}
