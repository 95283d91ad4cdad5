package slice

// Remove returns a copy of s without the elements in [from, to).
func Remove[T any](s []T, from, to int) []T {
	out := make([]T, 0, len(s)-(to-from))
	out = append(out, s[:from]...)
	return append(out, s[to:]...)
}

// TrimSpaces returns the index of the first non-blank byte at or after id.
func TrimSpaces(line []byte, id int) int {
	for id < len(line) && IsBlank(line[id]) {
		id++
	}
	return id
}

func IsBlank(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '\a':
		return true
	}
	return false
}
