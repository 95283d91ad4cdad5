package exec

import (
	"fmt"
	"os"
)

// DefaultOutputMode is the permission used when creating output files.
const DefaultOutputMode os.FileMode = 0644

type RedirectError struct {
	Path string
	Err  error
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *RedirectError) Unwrap() error { return e.Err }

// redirection holds the descriptors a stage starts with. Files opened here are
// the parent's copies and are closed once the child has been created.
type redirection struct {
	stdin, stdout *os.File
	opened        []*os.File
}

// openRedirections binds cmd's input and output files over the given stream
// defaults, which are the terminal or the pipe ends of a pipeline. An explicit
// redirect wins over a pipe.
func openRedirections(cmd Command, stdin, stdout *os.File, mode os.FileMode) (*redirection, error) {
	r := &redirection{stdin: stdin, stdout: stdout}

	if cmd.InFile != "" {
		f, err := os.Open(cmd.InFile)
		if err != nil {
			return nil, &RedirectError{Path: cmd.InFile, Err: unwrapPath(err)}
		}
		r.stdin = f
		r.opened = append(r.opened, f)
	}

	if cmd.OutFile != "" {
		flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if cmd.Append {
			flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		}
		f, err := os.OpenFile(cmd.OutFile, flags, mode)
		if err != nil {
			r.Close()
			return nil, &RedirectError{Path: cmd.OutFile, Err: unwrapPath(err)}
		}
		r.stdout = f
		r.opened = append(r.opened, f)
	}

	return r, nil
}

func (r *redirection) Close() {
	for _, f := range r.opened {
		_ = f.Close()
	}
	r.opened = nil
}

func unwrapPath(err error) error {
	if pe, ok := err.(*os.PathError); ok {
		return pe.Err
	}
	return err
}
