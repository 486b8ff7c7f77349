// Package envfile implements the minimal subset of a ".env" text model the
// core cryptographic pipeline needs: splitting text into ordered comment,
// blank, and KEY=VALUE entries, counting variables, and rendering entries
// back to text (comment and blank lines byte-for-byte; keys are written
// without surrounding whitespace and every line, including the last, ends
// with a newline). It is intentionally not the full parser named
// in spec.md's Non-goals — no interpolation, no schema validation, no
// multi-line values, no quoting rules beyond a literal value string.
package envfile

import (
	"strings"
)

// Kind identifies the kind of line in a parsed .env file.
type Kind int

const (
	KindBlank Kind = iota
	KindComment
	KindVar
)

// Entry is one line of a parsed .env file.
type Entry struct {
	Kind  Kind
	Raw   string // the original line, used verbatim for Blank and Comment
	Key   string // set when Kind == KindVar
	Value string // set when Kind == KindVar
}

// Parse splits text into ordered entries. A line is a variable line if it
// contains "=" and is not a pure comment ("#..."); everything else is
// blank or comment, passed through unchanged.
func Parse(text string) []Entry {
	lines := strings.Split(text, "\n")
	// strings.Split on a trailing newline yields a final empty string;
	// drop it so Render reproduces the exact input below.
	trailingNewline := strings.HasSuffix(text, "\n")
	if trailingNewline && len(lines) > 0 {
		lines = lines[:len(lines)-1]
	}

	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			entries = append(entries, Entry{Kind: KindBlank, Raw: line})
		case strings.HasPrefix(trimmed, "#"):
			entries = append(entries, Entry{Kind: KindComment, Raw: line})
		default:
			if idx := strings.Index(line, "="); idx >= 0 {
				key := strings.TrimSpace(line[:idx])
				value := line[idx+1:]
				entries = append(entries, Entry{Kind: KindVar, Key: key, Value: value})
			} else {
				entries = append(entries, Entry{Kind: KindComment, Raw: line})
			}
		}
	}
	return entries
}

// Render reassembles entries into .env text, preserving comments and
// blank lines byte-for-byte and always terminating with a trailing
// newline.
func Render(entries []Entry) string {
	var sb strings.Builder
	for _, e := range entries {
		switch e.Kind {
		case KindVar:
			sb.WriteString(e.Key)
			sb.WriteByte('=')
			sb.WriteString(e.Value)
		default:
			sb.WriteString(e.Raw)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// CountVars returns the number of KEY=VALUE entries.
func CountVars(entries []Entry) int {
	n := 0
	for _, e := range entries {
		if e.Kind == KindVar {
			n++
		}
	}
	return n
}

// CountEqualsLines counts lines containing "=" in raw, unparsed text —
// used for the "kv" envelope format, which is a single KEY=VALUE line
// rather than a full .env document.
func CountEqualsLines(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, "=") {
			n++
		}
	}
	return n
}

// Vars returns the key/value pairs of all variable entries, in order.
func Vars(entries []Entry) []KV {
	out := make([]KV, 0, len(entries))
	for _, e := range entries {
		if e.Kind == KindVar {
			out = append(out, KV{Key: e.Key, Value: e.Value})
		}
	}
	return out
}

// KV is a single key/value pair.
type KV struct {
	Key   string
	Value string
}
