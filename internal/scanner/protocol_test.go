package scanner

import (
	"testing"

	"gotosym/internal/symbols"
)

func TestParseEventProgress(t *testing.T) {
	tests := []struct {
		line    string
		percent int
	}{
		{"progress(0)", 0},
		{"progress(50)", 50},
		{"progress(100)", 100},
		{"  progress( 42 )  ", 42},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			ev, err := ParseEvent(tt.line)
			if err != nil {
				t.Fatalf("ParseEvent(%q) error = %v", tt.line, err)
			}
			if ev.Kind != EventProgress || ev.Percent != tt.percent {
				t.Errorf("ParseEvent(%q) = %+v, want progress %d", tt.line, ev, tt.percent)
			}
		})
	}
}

func TestParseEventSymbol(t *testing.T) {
	tests := []struct {
		name string
		line string
		want symbols.Symbol
	}{
		{
			name: "double quotes",
			line: `symbol(name="foo", type="def", filename="a.py", line=3)`,
			want: symbols.Symbol{Name: "foo", Kind: "def", Path: "a.py", Line: 3},
		},
		{
			name: "single quotes",
			line: `symbol(name='Bar', type='class', filename='/src/b.py', line=120)`,
			want: symbols.Symbol{Name: "Bar", Kind: "class", Path: "/src/b.py", Line: 120},
		},
		{
			name: "reordered arguments",
			line: `symbol(line=7, filename="c.py", type="function", name="baz")`,
			want: symbols.Symbol{Name: "baz", Kind: "function", Path: "c.py", Line: 7},
		},
		{
			name: "escaped quote in name",
			line: `symbol(name="say \"hi\"", type="def", filename="a.py", line=1)`,
			want: symbols.Symbol{Name: `say "hi"`, Kind: "def", Path: "a.py", Line: 1},
		},
		{
			name: "comma inside string",
			line: `symbol(name="f", type="def", filename="weird, name.py", line=2)`,
			want: symbols.Symbol{Name: "f", Kind: "def", Path: "weird, name.py", Line: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent(tt.line)
			if err != nil {
				t.Fatalf("ParseEvent(%q) error = %v", tt.line, err)
			}
			if ev.Kind != EventSymbol {
				t.Fatalf("ParseEvent(%q) kind = %v, want EventSymbol", tt.line, ev.Kind)
			}
			if ev.Symbol != tt.want {
				t.Errorf("ParseEvent(%q) = %+v, want %+v", tt.line, ev.Symbol, tt.want)
			}
		})
	}
}

func TestParseEventMalformed(t *testing.T) {
	lines := []string{
		"",
		"garbage",
		"progress()",
		"progress(abc)",
		"progress(101)",
		"progress(-1)",
		"symbol()",
		`symbol(name="foo")`,
		`symbol(name="foo", type="def", filename="a.py", line="3")`,
		`symbol(name=foo, type="def", filename="a.py", line=3)`,
		`symbol(name="foo", type="def", filename="a.py", line=3, extra=1)`,
		`symbol(name="foo", name="bar", type="def", filename="a.py", line=3)`,
		`symbol(name="unterminated, type="def", filename="a.py", line=3`,
		`__import__("os").system("rm -rf /")`,
	}

	for _, line := range lines {
		if _, err := ParseEvent(line); err == nil {
			t.Errorf("ParseEvent(%q) = nil error, want parse failure", line)
		}
	}
}
