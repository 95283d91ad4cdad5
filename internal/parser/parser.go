package parser

import (
	"fmt"
	"io"
	"slices"
	"strings"

	exec "jobsh/internal/execute"
	"jobsh/internal/slice"
)

// ContinuationPrompt is shown while a quote or a trailing backslash keeps the
// line open.
const ContinuationPrompt = "> "

type SyntaxError struct {
	Msg string
}

func (e *SyntaxError) Error() string {
	return "syntax error: " + e.Msg
}

func syntaxErrorf(format string, a ...any) error {
	return &SyntaxError{Msg: fmt.Sprintf(format, a...)}
}

// LineSource yields raw input lines without their trailing newline.
type LineSource interface {
	ReadLine(prompt string) (string, error)
}

// Read returns one logical command line, joining physical lines while a quote
// is open or the line ends in a backslash. It returns io.EOF when the input is
// exhausted before anything was read.
func Read(src LineSource, prompt string) ([]byte, error) {
	var line []byte
	started := false

	for {
		next, err := src.ReadLine(prompt)
		if err != nil {
			if err == io.EOF && started {
				return line, nil
			}
			return nil, err
		}
		started = true
		line = append(line, next...)

		var quote byte
		for i := 0; i < len(line); i++ {
			switch {
			case line[i] == '\\' && (quote == 0 || (quote == '"' && i+1 < len(line) && (line[i+1] == '"' || line[i+1] == '\\'))):
				i++
			case (line[i] == '\'' || line[i] == '"') && quote == 0:
				quote = line[i]
			case line[i] == quote:
				quote = 0
			}
		}

		prompt = ContinuationPrompt

		if quote != 0 {
			line = append(line, '\n')
			continue
		}

		if len(line) >= 1 && line[len(line)-1] == '\\' && !escaped(line, len(line)-1) {
			line = slice.Remove(line, len(line)-1, len(line))
			continue
		}

		return line, nil
	}
}

// escaped reports whether the byte at id is itself escaped by an odd run of
// backslashes before it.
func escaped(line []byte, id int) bool {
	n := 0
	for i := id - 1; i >= 0 && line[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// QuotesHandle reads one word starting at id, removing quotes and escapes.
// It returns the word and the index just past it.
func QuotesHandle(line []byte, id int) (string, int) {
	var res strings.Builder

	for quote := byte(0); id < len(line) && (quote != 0 || !(slice.IsBlank(line[id]) || slices.Contains([]byte{'|', '&', '<', '>', ';'}, line[id]))); id++ {
		switch {
		case line[id] == '\\' && (quote == 0 || (quote == '"' && id+1 < len(line) && (line[id+1] == '"' || line[id+1] == '\\'))):
			id++
			if id == len(line) {
				return res.String(), id
			}
		case (line[id] == '\'' || line[id] == '"') && quote == 0:
			quote = line[id]
			continue
		case line[id] == quote:
			quote = 0
			continue
		}

		res.WriteByte(line[id])
	}

	return res.String(), id
}

// Parse splits a command line into pipelines. ';' and '&' end a pipeline,
// '|' joins commands inside one, '<', '>' and '>>' attach redirections to the
// current command.
func Parse(line []byte) ([]exec.Pipeline, error) {
	var res []exec.Pipeline
	var pipe exec.Pipeline
	var cmd exec.Command
	var str string
	piped := false

	flush := func(background bool) {
		cmd.Background = background
		pipe.Commands = append(pipe.Commands, cmd)
		pipe.Background = background
		res = append(res, pipe)
		pipe = exec.Pipeline{}
		cmd = exec.Command{}
		piped = false
	}

	for i := 0; i < len(line); i++ {
		i = slice.TrimSpaces(line, i)
		if i == len(line) {
			break
		}

		switch line[i] {
		case '&':
			if len(cmd.CmdArgs) == 0 {
				return nil, syntaxErrorf("missing command before '&'")
			}
			flush(true)
		case '|':
			if len(cmd.CmdArgs) == 0 {
				return nil, syntaxErrorf("missing command before '|'")
			}
			pipe.Commands = append(pipe.Commands, cmd)
			cmd = exec.Command{}
			piped = true
		case '<':
			i = slice.TrimSpaces(line, i+1)
			if i == len(line) || isOperator(line[i]) {
				return nil, syntaxErrorf("missing input file name after '<'")
			}
			cmd.InFile, i = QuotesHandle(line, i)
			i--
		case '>':
			appendFlag := false
			if i+1 < len(line) && line[i+1] == '>' {
				appendFlag = true
				i++
			}
			i = slice.TrimSpaces(line, i+1)
			if i == len(line) || isOperator(line[i]) {
				return nil, syntaxErrorf("missing output file name after '>'")
			}
			cmd.OutFile, i = QuotesHandle(line, i)
			cmd.Append = appendFlag
			i--
		case ';':
			if len(cmd.CmdArgs) == 0 {
				return nil, syntaxErrorf("missing command before ';'")
			}
			flush(false)
		default:
			str, i = QuotesHandle(line, i)
			cmd.CmdArgs = append(cmd.CmdArgs, str)
			i--
		}
	}

	if len(cmd.CmdArgs) != 0 {
		flush(false)
	} else if piped {
		return nil, syntaxErrorf("missing command after '|'")
	} else if cmd.InFile != "" || cmd.OutFile != "" {
		return nil, syntaxErrorf("redirection without a command")
	}

	return res, nil
}

func isOperator(b byte) bool {
	return slices.Contains([]byte{'|', '&', '<', '>', ';'}, b)
}
