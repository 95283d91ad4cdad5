package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/abiosoft/readline"
	"golang.org/x/term"
)

// ErrInterrupt is returned by ReadLine when the user hits ^C at the prompt.
var ErrInterrupt = errors.New("interrupt")

type Reader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// NewReader uses line editing when in is a terminal and a plain scanner
// otherwise.
func NewReader(in *os.File, out io.Writer, historyLimit int) (Reader, error) {
	if !term.IsTerminal(int(in.Fd())) {
		return NewScanner(in, out), nil
	}

	rl, err := readline.NewEx(&readline.Config{
		Stdin:        in,
		Stdout:       out,
		HistoryLimit: historyLimit,
	})
	if err != nil {
		return nil, err
	}
	return &lineEditor{rl: rl}, nil
}

type lineEditor struct {
	rl *readline.Instance
}

func (l *lineEditor) ReadLine(prompt string) (string, error) {
	l.rl.SetPrompt(prompt)
	line, err := l.rl.Readline()
	if err == readline.ErrInterrupt {
		return "", ErrInterrupt
	}
	return line, err
}

func (l *lineEditor) Close() error {
	return l.rl.Close()
}

// Scanner reads lines from a non-interactive source. Prompts are still
// printed so piped sessions look like typed ones.
type Scanner struct {
	s   *bufio.Scanner
	out io.Writer
}

func NewScanner(in io.Reader, out io.Writer) *Scanner {
	return &Scanner{s: bufio.NewScanner(in), out: out}
}

func (s *Scanner) ReadLine(prompt string) (string, error) {
	if s.out != nil && prompt != "" {
		fmt.Fprint(s.out, prompt)
	}
	if !s.s.Scan() {
		if err := s.s.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.s.Text(), nil
}

func (s *Scanner) Close() error { return nil }
