// Package frontmatter splits markdown content files into a header block and
// a body, and parses the header into typed scalars.
//
// Only the subset of YAML that content editors actually produce is
// understood:
//
//	---
//	title: "Example Title"
//	order: 3
//	published: false
//	summary: >-
//	  First paragraph line one
//	  still first paragraph
//
//	  Second paragraph after blank line
//	---
//	Body text follows here, preserved verbatim.
//
// Values coerce to bool, number or string. Multi-line values are supported
// through the folded (">", ">-") and literal ("|", "|-") block indicators and
// through quoted strings that close on a later line. Lists, maps, anchors and
// flow collections are not supported; their lines are skipped.
//
// Parsing never fails. Recovered conditions are reported in Document.Issues
// and logged.
package frontmatter

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/starford/cmsloader/internal/apperr"
)

const delimiter = "---"

var numberRe = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?$`)

// Document is the result of parsing one content file.
type Document struct {
	Header Header
	Body   string
	// Issues lists recovered conditions. Each wraps an apperr sentinel.
	Issues []error
}

// Parser parses documents and logs recovered conditions.
type Parser struct {
	logger *slog.Logger
}

// New returns a Parser that logs to logger. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse parses doc with a parser logging to slog.Default().
func Parse(doc string) Document {
	return New(nil).Parse(doc)
}

// Parse splits doc into header and body and coerces the header values.
// A leading byte order mark is ignored when locating the header, but bodies
// that fall back to the whole document keep it.
func (p *Parser) Parse(doc string) Document {
	block, body, state := splitDocument(strings.TrimPrefix(doc, "\uFEFF"))
	switch state {
	case noHeader:
		return Document{Body: doc}

	case unclosed:
		issue := fmt.Errorf("frontmatter: %w", apperr.ErrMissingClosingDelimiter)
		p.log().Warn("frontmatter: closing delimiter not found, parsing remainder as header")
		h, issues := p.parseHeader(block)
		issues = append([]error{issue}, issues...)
		if h.Len() == 0 {
			return Document{Body: doc, Issues: issues}
		}
		return Document{Header: h, Issues: issues}

	default:
		h, issues := p.parseHeader(block)
		return Document{Header: h, Body: body, Issues: issues}
	}
}

func (p *Parser) log() *slog.Logger {
	if p.logger == nil {
		return slog.Default()
	}
	return p.logger
}

type splitState uint8

const (
	noHeader splitState = iota
	closed
	unclosed
)

// splitDocument returns the header block between the opening and closing
// delimiter lines and the verbatim body after the closing line.
func splitDocument(doc string) (block, body string, state splitState) {
	first, rest, _ := strings.Cut(doc, "\n")
	if !isDelimiter(first) {
		return "", doc, noHeader
	}

	var lines []string
	for rest != "" {
		line, after, found := strings.Cut(rest, "\n")
		if isDelimiter(line) {
			return strings.Join(lines, "\n"), after, closed
		}
		lines = append(lines, line)
		if !found {
			break
		}
		rest = after
	}
	return strings.Join(lines, "\n"), "", unclosed
}

func isDelimiter(line string) bool {
	return strings.TrimRight(line, " \t\r") == delimiter
}

// parseHeader runs the line state machine over a header block.
func (p *Parser) parseHeader(block string) (Header, []error) {
	var (
		h      Header
		issues []error
		cur    *pending
	)

	flush := func() {
		if cur == nil {
			return
		}
		v, ok := cur.value()
		if !ok {
			err := fmt.Errorf("frontmatter: %w: unterminated quoted value for %q", apperr.ErrMalformedHeaderLine, cur.key)
			issues = append(issues, err)
			p.log().Debug("frontmatter: unterminated quoted value", slog.String("key", cur.key))
		}
		h.set(cur.key, StringValue(v))
		cur = nil
	}

	for n, raw := range strings.Split(block, "\n") {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)

		if cur != nil {
			if cur.continues(line, trimmed) {
				if cur.add(line, trimmed) {
					h.set(cur.key, StringValue(cur.closeQuoted()))
					cur = nil
				}
				continue
			}
			flush()
		}

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		key, value, ok := splitKeyValue(trimmed)
		if !ok {
			err := fmt.Errorf("frontmatter: %w: line %d", apperr.ErrMalformedHeaderLine, n+1)
			issues = append(issues, err)
			p.log().Debug("frontmatter: skipping malformed line",
				slog.Int("line", n+1),
				slog.String("content", trimmed))
			continue
		}

		if next := startMultiline(key, value, indentOf(line)); next != nil {
			cur = next
			continue
		}
		h.set(key, coerce(value))
	}
	flush()

	return h, issues
}

func splitKeyValue(trimmed string) (key, value string, ok bool) {
	k, v, found := strings.Cut(trimmed, ":")
	if !found {
		return "", "", false
	}
	k = strings.TrimSpace(k)
	if k == "" {
		return "", "", false
	}
	return k, strings.TrimSpace(v), true
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

// coerce applies scalar coercion to a single-line value.
func coerce(raw string) Value {
	switch raw {
	case "true":
		return BoolValue(true)
	case "false":
		return BoolValue(false)
	}
	if numberRe.MatchString(raw) {
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return NumberValue(n)
		}
	}
	if s, ok := unquote(raw); ok {
		return StringValue(s)
	}
	return StringValue(raw)
}

// unquote strips matching surrounding quotes when the inner text holds no
// unescaped quote of the same kind.
func unquote(raw string) (string, bool) {
	if len(raw) < 2 {
		return "", false
	}
	q := raw[0]
	if (q != '"' && q != '\'') || raw[len(raw)-1] != q {
		return "", false
	}
	inner := raw[1 : len(raw)-1]

	if q == '"' {
		for i := 0; i < len(inner); i++ {
			switch inner[i] {
			case '\\':
				i++
			case '"':
				return "", false
			}
		}
		return strings.ReplaceAll(inner, `\"`, `"`), true
	}

	for i := 0; i < len(inner); i++ {
		if inner[i] != '\'' {
			continue
		}
		if i+1 < len(inner) && inner[i+1] == '\'' {
			i++
			continue
		}
		return "", false
	}
	return strings.ReplaceAll(inner, "''", "'"), true
}
