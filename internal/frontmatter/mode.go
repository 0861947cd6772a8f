package frontmatter

import "strings"

// Mode tracks how a value continues across header lines. It only lives for
// the duration of one parse.
type Mode uint8

// Mode values.
const (
	// ModeScanning means no multi-line value is pending.
	ModeScanning Mode = iota
	// ModeFolded accumulates a ">" or ">-" block.
	ModeFolded
	// ModeLiteral accumulates a "|" or "|-" block.
	ModeLiteral
	// ModeQuoted accumulates a quoted string opened on an earlier line.
	ModeQuoted
)

func (m Mode) String() string {
	switch m {
	case ModeFolded:
		return "folded"
	case ModeLiteral:
		return "literal"
	case ModeQuoted:
		return "quoted"
	default:
		return "scanning"
	}
}

// pending is a multi-line value under construction. Fields beyond key and
// indent are only meaningful for the mode that owns them: strip for the
// block modes, quote for ModeQuoted.
type pending struct {
	mode   Mode
	key    string
	indent int
	strip  bool
	quote  byte
	lines  []string
}

// startMultiline returns a pending value when value opens a multi-line
// scalar, nil otherwise.
func startMultiline(key, value string, indent int) *pending {
	switch value {
	case ">", ">-":
		return &pending{mode: ModeFolded, key: key, indent: indent, strip: value == ">-"}
	case "|", "|-":
		return &pending{mode: ModeLiteral, key: key, indent: indent, strip: value == "|-"}
	}
	if value == "" {
		return nil
	}
	q := value[0]
	if q != '"' && q != '\'' {
		return nil
	}
	if len(value) > 1 && value[len(value)-1] == q {
		return nil
	}
	return &pending{mode: ModeQuoted, key: key, indent: indent, quote: q, lines: []string{value}}
}

// continues reports whether line belongs to the pending value: blank lines,
// lines without a colon, and lines indented past the key line.
func (p *pending) continues(line, trimmed string) bool {
	return trimmed == "" || !strings.Contains(trimmed, ":") || indentOf(line) > p.indent
}

// add appends a continuation line and reports whether it closed a quoted value.
func (p *pending) add(line, trimmed string) bool {
	if p.mode != ModeQuoted {
		p.lines = append(p.lines, line)
		return false
	}
	p.lines = append(p.lines, trimmed)
	return trimmed != "" && trimmed[len(trimmed)-1] == p.quote
}

// closeQuoted assembles a quoted value whose closing quote was seen.
func (p *pending) closeQuoted() string {
	s := strings.Join(p.lines, "\n")
	return s[1 : len(s)-1]
}

// value assembles the pending value when it ends without an explicit close.
// ok is false for a quoted value that never saw its closing quote.
func (p *pending) value() (s string, ok bool) {
	switch p.mode {
	case ModeFolded:
		return fold(dedent(p.lines)), true
	case ModeLiteral:
		return literal(dedent(p.lines), p.strip), true
	default:
		s = strings.Join(p.lines, "\n")
		s = strings.TrimPrefix(s, string(p.quote))
		s = strings.TrimSuffix(s, string(p.quote))
		return strings.TrimSpace(s), false
	}
}

// dedent removes the indentation of the first non-blank line from every line.
func dedent(lines []string) []string {
	n := -1
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			n = indentOf(l)
			break
		}
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		cut := min(n, indentOf(l))
		out[i] = l[cut:]
	}
	return out
}

// fold joins lines within a paragraph with spaces and separates paragraphs
// (runs of blank lines) with a single blank line.
func fold(lines []string) string {
	var (
		paras []string
		cur   []string
	)
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if t == "" {
			if len(cur) > 0 {
				paras = append(paras, strings.Join(cur, " "))
				cur = nil
			}
			continue
		}
		cur = append(cur, t)
	}
	if len(cur) > 0 {
		paras = append(paras, strings.Join(cur, " "))
	}
	return strings.Join(paras, "\n\n")
}

// literal keeps every line break. Trailing blank lines are dropped; the
// clip indicator "|" keeps one final newline, "|-" keeps none.
func literal(lines []string, strip bool) string {
	end := len(lines)
	for end > 0 && lines[end-1] == "" {
		end--
	}
	s := strings.Join(lines[:end], "\n")
	if !strip && s != "" {
		s += "\n"
	}
	return s
}
