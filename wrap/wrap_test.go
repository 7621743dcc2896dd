package wrap

import (
	"strings"
	"testing"

	"github.com/charmbracelet/folio/width"
	"github.com/google/go-cmp/cmp"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		width int
		want  []string
	}{
		{
			name:  "empty line",
			line:  "",
			width: 10,
			want:  []string{""},
		},
		{
			name:  "exact fit",
			line:  "abcdefghij",
			width: 10,
			want:  []string{"abcdefghij"},
		},
		{
			name:  "eleventh half-width rune breaks",
			line:  "abcdefghijk",
			width: 10,
			want:  []string{"abcdefghij", "k"},
		},
		{
			name:  "five wide runes fill ten columns",
			line:  "一二三四五六",
			width: 10,
			want:  []string{"一二三四五", "六"},
		},
		{
			name:  "mixed widths",
			line:  "ab中文cd",
			width: 5,
			want:  []string{"ab中", "文cd"},
		},
		{
			name:  "closing punctuation stays on the full line",
			line:  "一二三四五。六",
			width: 10,
			want:  []string{"一二三四五。", "六"},
		},
		{
			name:  "ascii terminal punctuation stays too",
			line:  "abcdefghij.k",
			width: 10,
			want:  []string{"abcdefghij.", "k"},
		},
		{
			name:  "opening bracket moves to next line",
			line:  "一二三四（五）",
			width: 10,
			want:  []string{"一二三四", "（五）"},
		},
		{
			name:  "wide rune wider than budget",
			line:  "中",
			width: 1,
			want:  []string{"中"},
		},
		{
			name:  "each wide rune alone on a narrow budget",
			line:  "中文",
			width: 1,
			want:  []string{"中", "文"},
		},
		{
			name:  "zero width treated as one",
			line:  "ab",
			width: 0,
			want:  []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.line, tt.width)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Split(%q, %d) mismatch (-want +got):\n%s", tt.line, tt.width, diff)
			}
		})
	}
}

func TestSplitPreservesText(t *testing.T) {
	line := "天地玄黄，宇宙洪荒。日月盈昃，辰宿列张。the quick brown fox jumps over the lazy dog"
	for w := 1; w <= 30; w++ {
		lines := Split(line, w)
		if got := strings.Join(lines, ""); got != line {
			t.Fatalf("width %d: joined output %q does not match input", w, got)
		}
		for i, l := range lines {
			if l == "" {
				t.Fatalf("width %d: line %d is empty", w, i)
			}
		}
	}
}

func TestSplitNeverStartsWithClosingPunctuation(t *testing.T) {
	line := "一，二，三，四，五，六，七，八，九，十。"
	for w := 2; w <= 12; w++ {
		for i, l := range Split(line, w) {
			first := []rune(l)[0]
			if i > 0 && width.NoLineStart(first) {
				t.Errorf("width %d: line %d %q starts with %q", w, i, l, first)
			}
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "abc", "abc"},
		{"tab", "a\tb", "a    b"},
		{"ideographic space", "　段落", "  段落"},
		{"decomposed accent", "e\u0301", "\u00e9"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Fatalf("Normalize(%q)=%q want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeOrigins(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		origins []Origin
	}{
		{"plain", "ab", "ab", []Origin{{0, 1}, {1, 2}}},
		{
			name:    "tab columns after the first are empty",
			in:      "a\tb",
			want:    "a    b",
			origins: []Origin{{0, 1}, {1, 2}, {2, 2}, {2, 2}, {2, 2}, {2, 3}},
		},
		{
			name:    "ideographic space",
			in:      "　段",
			want:    "  段",
			origins: []Origin{{0, 1}, {1, 1}, {1, 2}},
		},
		{
			name:    "composed accent covers its source",
			in:      "e\u0301x",
			want:    "\u00e9x",
			origins: []Origin{{0, 2}, {2, 3}},
		},
		{
			name:    "mark left after composition",
			in:      "e\u0301\u0302",
			want:    "\u00e9\u0302",
			origins: []Origin{{0, 3}, {3, 3}},
		},
		{"empty", "", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, origins := NormalizeOrigins(tt.in)
			if got != tt.want {
				t.Fatalf("NormalizeOrigins(%q)=%q want %q", tt.in, got, tt.want)
			}
			if got != Normalize(tt.in) {
				t.Errorf("NormalizeOrigins(%q) disagrees with Normalize", tt.in)
			}
			if diff := cmp.Diff(tt.origins, origins); diff != "" {
				t.Errorf("origins mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLine(t *testing.T) {
	got := Line("\tabcdefgh", 10)
	want := []string{"    abcdef", "gh"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Line mismatch (-want +got):\n%s", diff)
	}
}
