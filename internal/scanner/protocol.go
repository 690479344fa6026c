// Package scanner drives the external symbol scanner subprocess and
// parses its line-oriented event stream.
package scanner

import (
	"fmt"
	"strconv"
	"strings"

	"gotosym/internal/symbols"
)

// EventKind discriminates the two event shapes the scanner emits.
type EventKind int

const (
	// EventProgress is a percent-complete update: progress(42)
	EventProgress EventKind = iota
	// EventSymbol is one discovered symbol:
	// symbol(name="foo", type="function", filename="a.py", line=3)
	EventSymbol
)

// Event is one parsed line of scanner output.
type Event struct {
	Kind    EventKind
	Percent int            // valid for EventProgress
	Symbol  symbols.Symbol // valid for EventSymbol
}

// ParseEvent parses a single line of scanner output. The protocol
// allows exactly two shapes; anything else is a parse error and the
// caller is expected to skip the line and keep reading. Lines are
// never evaluated as code.
func ParseEvent(line string) (Event, error) {
	line = strings.TrimSpace(line)

	switch {
	case strings.HasPrefix(line, "progress(") && strings.HasSuffix(line, ")"):
		inner := strings.TrimSpace(line[len("progress(") : len(line)-1])
		pct, err := strconv.Atoi(inner)
		if err != nil {
			return Event{}, fmt.Errorf("progress event: %q is not an integer", inner)
		}
		if pct < 0 || pct > 100 {
			return Event{}, fmt.Errorf("progress event: %d out of range", pct)
		}
		return Event{Kind: EventProgress, Percent: pct}, nil

	case strings.HasPrefix(line, "symbol(") && strings.HasSuffix(line, ")"):
		args, err := parseArgs(line[len("symbol(") : len(line)-1])
		if err != nil {
			return Event{}, fmt.Errorf("symbol event: %w", err)
		}
		sym, err := symbolFromArgs(args)
		if err != nil {
			return Event{}, fmt.Errorf("symbol event: %w", err)
		}
		return Event{Kind: EventSymbol, Symbol: sym}, nil
	}

	return Event{}, fmt.Errorf("unrecognized event line: %q", line)
}

// argValue is a parsed named argument: either a string or an integer.
type argValue struct {
	str   string
	num   int
	isStr bool
}

// symbolFromArgs builds a Symbol from parsed named arguments, requiring
// exactly the four documented keys with the right types.
func symbolFromArgs(args map[string]argValue) (symbols.Symbol, error) {
	if len(args) != 4 {
		return symbols.Symbol{}, fmt.Errorf("want 4 arguments, got %d", len(args))
	}

	str := func(key string) (string, error) {
		v, ok := args[key]
		if !ok || !v.isStr {
			return "", fmt.Errorf("missing or non-string argument %q", key)
		}
		return v.str, nil
	}

	name, err := str("name")
	if err != nil {
		return symbols.Symbol{}, err
	}
	kind, err := str("type")
	if err != nil {
		return symbols.Symbol{}, err
	}
	filename, err := str("filename")
	if err != nil {
		return symbols.Symbol{}, err
	}
	lineArg, ok := args["line"]
	if !ok || lineArg.isStr {
		return symbols.Symbol{}, fmt.Errorf("missing or non-integer argument %q", "line")
	}

	return symbols.Symbol{Name: name, Kind: kind, Path: filename, Line: lineArg.num}, nil
}

// parseArgs parses a comma-separated list of key=value pairs. Values
// are quoted strings (single or double quotes, backslash escapes) or
// decimal integers.
func parseArgs(s string) (map[string]argValue, error) {
	p := &argParser{src: s}
	args := make(map[string]argValue)

	for {
		p.skipSpace()
		if p.done() {
			return args, nil
		}

		key, err := p.ident()
		if err != nil {
			return nil, err
		}
		if _, dup := args[key]; dup {
			return nil, fmt.Errorf("duplicate argument %q", key)
		}

		p.skipSpace()
		if !p.accept('=') {
			return nil, fmt.Errorf("expected '=' after %q", key)
		}

		p.skipSpace()
		val, err := p.value()
		if err != nil {
			return nil, err
		}
		args[key] = val

		p.skipSpace()
		if p.done() {
			return args, nil
		}
		if !p.accept(',') {
			return nil, fmt.Errorf("expected ',' at offset %d", p.pos)
		}
	}
}

type argParser struct {
	src string
	pos int
}

func (p *argParser) done() bool {
	return p.pos >= len(p.src)
}

func (p *argParser) skipSpace() {
	for !p.done() && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *argParser) accept(ch byte) bool {
	if !p.done() && p.src[p.pos] == ch {
		p.pos++
		return true
	}
	return false
}

func (p *argParser) ident() (string, error) {
	start := p.pos
	for !p.done() {
		c := p.src[p.pos]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || (p.pos > start && c >= '0' && c <= '9') {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return "", fmt.Errorf("expected identifier at offset %d", start)
	}
	return p.src[start:p.pos], nil
}

func (p *argParser) value() (argValue, error) {
	if p.done() {
		return argValue{}, fmt.Errorf("expected value at offset %d", p.pos)
	}

	switch c := p.src[p.pos]; {
	case c == '\'' || c == '"':
		s, err := p.quotedString(c)
		if err != nil {
			return argValue{}, err
		}
		return argValue{str: s, isStr: true}, nil

	case c == '-' || c >= '0' && c <= '9':
		start := p.pos
		if c == '-' {
			p.pos++
		}
		for !p.done() && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
			p.pos++
		}
		n, err := strconv.Atoi(p.src[start:p.pos])
		if err != nil {
			return argValue{}, fmt.Errorf("bad integer at offset %d", start)
		}
		return argValue{num: n}, nil
	}

	return argValue{}, fmt.Errorf("expected quoted string or integer at offset %d", p.pos)
}

func (p *argParser) quotedString(quote byte) (string, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for !p.done() {
		c := p.src[p.pos]
		switch c {
		case quote:
			p.pos++
			return b.String(), nil
		case '\\':
			p.pos++
			if p.done() {
				return "", fmt.Errorf("dangling escape at end of string")
			}
			switch e := p.src[p.pos]; e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				// \", \', \\ and anything else map to the raw byte
				b.WriteByte(e)
			}
			p.pos++
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", fmt.Errorf("unterminated string")
}
