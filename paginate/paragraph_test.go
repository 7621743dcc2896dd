package paginate

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

func TestSplitParagraphs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []Paragraph
	}{
		{
			name:    "empty",
			content: "",
			want:    nil,
		},
		{
			name:    "only whitespace",
			content: " \n\t\n  \n",
			want:    nil,
		},
		{
			name:    "single line",
			content: "hello",
			want:    []Paragraph{{Text: "hello", Offset: 0}},
		},
		{
			name:    "trimmed with offsets",
			content: "  Hello\nworld  \n\n\n  Second  ",
			want: []Paragraph{
				{Text: "Hello\nworld", Offset: 2},
				{Text: "Second", Offset: 20},
			},
		},
		{
			name:    "whitespace-only separator line",
			content: "one\n   \ntwo",
			want: []Paragraph{
				{Text: "one", Offset: 0},
				{Text: "two", Offset: 8},
			},
		},
		{
			name:    "crlf line endings",
			content: "one\r\n\r\ntwo\r\n",
			want: []Paragraph{
				{Text: "one", Offset: 0},
				{Text: "two", Offset: 7},
			},
		},
		{
			name:    "offsets count runes",
			content: "第一章\n\n正文",
			want: []Paragraph{
				{Text: "第一章", Offset: 0},
				{Text: "正文", Offset: 5},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitParagraphs(tt.content)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("SplitParagraphs() mismatch (-want +got):\n%s", diff)
			}
			assertOffsets(t, tt.content, got)
		})
	}
}

func TestSplitParagraphsLongFallback(t *testing.T) {
	sentence := "这是一个测试句子。"
	content := "  " + strings.Repeat(sentence, 60)

	got := SplitParagraphs(content)
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}
	var joined strings.Builder
	for i, p := range got {
		if !strings.HasSuffix(p.Text, "。") {
			t.Errorf("chunk %d does not end on a sentence terminator: %q", i, p.Text)
		}
		if i < len(got)-1 && utf8.RuneCountInString(p.Text) < chunkRunes {
			t.Errorf("chunk %d is shorter than %d runes", i, chunkRunes)
		}
		joined.WriteString(p.Text)
	}
	if joined.String() != strings.TrimSpace(content) {
		t.Fatalf("chunks do not reassemble the paragraph")
	}
	assertOffsets(t, content, got)
}

func TestSplitParagraphsKeepsClosersWithSentence(t *testing.T) {
	sentence := "他说：“好的。”然后离开了"
	content := strings.Repeat(sentence, 50)

	got := SplitParagraphs(content)
	if len(got) < 2 {
		t.Fatalf("expected the paragraph to be split, got %d chunk(s)", len(got))
	}
	for i, p := range got[1:] {
		if strings.HasPrefix(p.Text, "”") {
			t.Errorf("chunk %d starts with a closing quote: %q", i+1, p.Text)
		}
	}
	assertOffsets(t, content, got)
}

func TestSplitParagraphsShortSingleParagraph(t *testing.T) {
	content := strings.Repeat("句子。", 100) // 300 runes
	got := SplitParagraphs(content)
	if len(got) != 1 {
		t.Fatalf("expected a short paragraph to stay whole, got %d chunks", len(got))
	}
}

func assertOffsets(t *testing.T, content string, paras []Paragraph) {
	t.Helper()
	runes := []rune(content)
	for i, p := range paras {
		n := utf8.RuneCountInString(p.Text)
		if p.Offset < 0 || p.Offset+n > len(runes) {
			t.Fatalf("paragraph %d offset %d out of range", i, p.Offset)
		}
		if got := string(runes[p.Offset : p.Offset+n]); got != p.Text {
			t.Fatalf("paragraph %d: content at offset %d is %q want %q", i, p.Offset, got, p.Text)
		}
	}
}
