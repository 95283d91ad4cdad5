package builtin

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobsh/internal/jobs"
)

func run(t *testing.T, b *Builtins, args ...string) (int, string) {
	t.Helper()
	f, ok := Lookup(args[0])
	require.True(t, ok, "no builtin %q", args[0])

	var out bytes.Buffer
	status := f(b, args, &out)
	return status, out.String()
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"cd", "help", "history", "jobs", "quit", "exit"} {
		_, ok := Lookup(name)
		assert.True(t, ok, name)
	}
	_, ok := Lookup("fg")
	assert.False(t, ok)
}

func TestHistory(t *testing.T) {
	h := &History{Limit: 2}
	h.Add("ls")
	h.Add("   ")
	h.Add("pwd")
	h.Add("date")

	status, out := run(t, &Builtins{History: h}, "history")
	assert.Zero(t, status)
	assert.Equal(t, "2 pwd\n3 date\n", out)
	assert.Equal(t, 2, h.Len())
}

func TestJobs(t *testing.T) {
	jm := &jobs.JobManager{Table: jobs.NewTable(4)}
	_, err := jm.Register(321, 321, jobs.Background, "sleep 9")
	require.NoError(t, err)

	var errOut bytes.Buffer
	b := &Builtins{Jobs: jm, Err: &errOut}

	status, out := run(t, b, "jobs")
	assert.Zero(t, status)
	assert.Equal(t, "[1] (321) Running sleep 9\n", out)

	status, out = run(t, b, "jobs", "1", "7", "x")
	assert.Equal(t, 1, status)
	assert.Equal(t, "[1] (321) Running sleep 9\n", out)
	assert.Equal(t, "jobs: no such job: 7\njobs: no such job: x\n", errOut.String())
}

func TestCd(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(wd) }()

	var errOut bytes.Buffer
	b := &Builtins{Err: &errOut}

	dir := t.TempDir()
	status, _ := run(t, b, "cd", dir)
	assert.Zero(t, status)

	status, _ = run(t, b, "cd", dir+"/missing")
	assert.Equal(t, 1, status)
	assert.Contains(t, errOut.String(), "no such file or directory")

	status, _ = run(t, b, "cd", "a", "b")
	assert.Equal(t, 1, status)

	t.Setenv("HOME", dir)
	status, _ = run(t, b, "cd")
	assert.Zero(t, status)
}

func TestQuitAndHelp(t *testing.T) {
	b := &Builtins{}

	_, out := run(t, b, "help")
	assert.Contains(t, out, "history")
	assert.False(t, b.Exit)

	run(t, b, "quit")
	assert.True(t, b.Exit)
}
