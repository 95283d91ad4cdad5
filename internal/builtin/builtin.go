// Package builtin implements the commands the shell runs in-process.
package builtin

import (
	"fmt"
	"io"
	"os"
	"sort"

	"jobsh/internal/jobs"
)

// Func runs a built-in with its full argument vector and returns its status.
type Func func(b *Builtins, args []string, out io.Writer) int

type Builtins struct {
	Jobs    *jobs.JobManager
	History *History
	Err     io.Writer

	// Exit is set once quit or exit has run.
	Exit bool
}

var table map[string]Func

func init() {
	// help reads the table through Names.
	table = map[string]Func{
		"cd":      cd,
		"help":    help,
		"history": history,
		"jobs":    listJobs,
		"quit":    quit,
		"exit":    quit,
	}
}

func Lookup(name string) (Func, bool) {
	f, ok := table[name]
	return f, ok
}

func Names() []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *Builtins) errOut() io.Writer {
	if b.Err == nil {
		return os.Stderr
	}
	return b.Err
}

func cd(b *Builtins, args []string, out io.Writer) int {
	var dir string
	switch len(args) {
	case 1:
		dir = os.Getenv("HOME")
		if dir == "" {
			fmt.Fprintln(b.errOut(), "cd: HOME not set")
			return 1
		}
	case 2:
		dir = args[1]
	default:
		fmt.Fprintln(b.errOut(), "cd: too many arguments")
		return 1
	}

	if err := os.Chdir(dir); err != nil {
		fmt.Fprintln(b.errOut(), "cd: no such file or directory:", dir)
		return 1
	}
	return 0
}

func help(b *Builtins, args []string, out io.Writer) int {
	fmt.Fprintln(out, "jobsh: a small job-control shell")
	fmt.Fprintln(out, "Type program names and arguments, and hit enter.")
	fmt.Fprintln(out, "Pipelines (|), sequences (;), background jobs (&) and redirection (<, >, >>) are supported.")
	fmt.Fprintln(out, "The following are built in:")
	for _, name := range Names() {
		fmt.Fprintln(out, " ", name)
	}
	return 0
}

func history(b *Builtins, args []string, out io.Writer) int {
	if b.History == nil {
		return 0
	}
	if err := b.History.Write(out); err != nil {
		return 1
	}
	return 0
}

func listJobs(b *Builtins, args []string, out io.Writer) int {
	if b.Jobs == nil {
		return 0
	}
	if len(args) == 1 {
		if err := b.Jobs.WriteJobs(out); err != nil {
			return 1
		}
		return 0
	}

	status := 0
	for _, arg := range args[1:] {
		var jid int
		if _, err := fmt.Sscanf(arg, "%d", &jid); err != nil {
			fmt.Fprintln(b.errOut(), "jobs: no such job:", arg)
			status = 1
			continue
		}
		job, ok := b.Jobs.FindJob(jid)
		if !ok {
			fmt.Fprintln(b.errOut(), "jobs: no such job:", arg)
			status = 1
			continue
		}
		fmt.Fprintln(out, jobs.FormatListing(job))
	}
	return status
}

func quit(b *Builtins, args []string, out io.Writer) int {
	b.Exit = true
	return 0
}
