package builtin

import (
	"fmt"
	"io"
	"strings"
)

// History keeps the most recent non-blank command lines.
type History struct {
	Limit int

	lines []string
	first int
}

func (h *History) Add(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	h.lines = append(h.lines, line)
	if h.Limit > 0 && len(h.lines) > h.Limit {
		drop := len(h.lines) - h.Limit
		h.lines = append(h.lines[:0], h.lines[drop:]...)
		h.first += drop
	}
}

func (h *History) Len() int { return len(h.lines) }

// Write prints the entries numbered from the start of the session.
func (h *History) Write(w io.Writer) error {
	for i, line := range h.lines {
		if _, err := fmt.Fprintf(w, "%d %s\n", h.first+i+1, line); err != nil {
			return err
		}
	}
	return nil
}
