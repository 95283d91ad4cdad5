package exec

import "strings"

type Command struct {
	CmdArgs         []string
	InFile, OutFile string
	Append          bool
	Background      bool
}

// String renders the command the way it is shown in job listings.
func (cmd Command) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(cmd.CmdArgs, " "))
	if cmd.InFile != "" {
		b.WriteString(" < ")
		b.WriteString(cmd.InFile)
	}
	if cmd.OutFile != "" {
		if cmd.Append {
			b.WriteString(" >> ")
		} else {
			b.WriteString(" > ")
		}
		b.WriteString(cmd.OutFile)
	}
	return b.String()
}

// Pipeline is one or more commands joined stdout to stdin.
type Pipeline struct {
	Commands   []Command
	Background bool
}

// InBackground reports whether the pipeline was marked with '&' as a whole or
// on any of its stages.
func (p Pipeline) InBackground() bool {
	if p.Background {
		return true
	}
	for _, cmd := range p.Commands {
		if cmd.Background {
			return true
		}
	}
	return false
}

func (p Pipeline) String() string {
	parts := make([]string, len(p.Commands))
	for i, cmd := range p.Commands {
		parts[i] = cmd.String()
	}
	return strings.Join(parts, " | ")
}
