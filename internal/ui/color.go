package ui

// ANSI SGR codes.
const (
	reset   = "\033[0m"
	bold    = "\033[1m"
	dim     = "\033[2m"
	blue    = "\033[34m"
	yellow  = "\033[33m"
	green   = "\033[32m"
	red     = "\033[31m"
	cyan    = "\033[36m"
	magenta = "\033[35m"
)

// paint wraps text in the given codes when on is set.
func paint(on bool, code, text string) string {
	if !on {
		return text
	}
	return code + text + reset
}

// visibleLen returns the number of runes of s outside ANSI escapes.
func visibleLen(s string) int {
	n := 0
	inEscape := false
	for _, c := range s {
		switch {
		case c == '\033':
			inEscape = true
		case inEscape:
			if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
				inEscape = false
			}
		default:
			n++
		}
	}
	return n
}
