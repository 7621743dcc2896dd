package paginate

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// A lone paragraph longer than this is re-split on sentence boundaries.
	longParagraphRunes = 500
	// Target size of the chunks produced by the sentence-level fallback.
	chunkRunes = 200
)

// Paragraph is a trimmed, non-empty block of text and its position in the
// source content.
type Paragraph struct {
	Text string
	// Offset is the rune offset of Text in the source content.
	Offset int
}

// SplitParagraphs splits content into paragraphs on runs of blank lines. A
// line is blank when it holds nothing but whitespace.
//
// When the whole content is a single paragraph longer than 500 runes, it is
// cut after CJK sentence terminators into chunks of roughly 200 runes so one
// pathological block cannot defeat pagination.
func SplitParagraphs(content string) []Paragraph {
	var (
		paras      []Paragraph
		runes      runeCounter
		start      = -1
		end        int
		pos        int
		contentLen = len(content)
	)
	for pos <= contentLen {
		lineEnd, next := contentLen, contentLen+1
		if nl := strings.IndexByte(content[pos:], '\n'); nl >= 0 {
			lineEnd, next = pos+nl, pos+nl+1
		}

		if strings.TrimSpace(content[pos:lineEnd]) == "" {
			if start >= 0 {
				paras = appendTrimmed(paras, content[start:end], start, &runes, content)
				start = -1
			}
		} else {
			if start < 0 {
				start = pos
			}
			end = lineEnd
		}
		pos = next
	}
	if start >= 0 {
		paras = appendTrimmed(paras, content[start:end], start, &runes, content)
	}

	if len(paras) == 1 && utf8.RuneCountInString(paras[0].Text) > longParagraphRunes {
		return splitSentences(paras[0])
	}
	return paras
}

// runeCounter converts increasing byte offsets into rune offsets without
// rescanning the content from the start every time.
type runeCounter struct {
	byteOff int
	runeOff int
}

func (c *runeCounter) at(s string, byteOff int) int {
	c.runeOff += utf8.RuneCountInString(s[c.byteOff:byteOff])
	c.byteOff = byteOff
	return c.runeOff
}

func appendTrimmed(paras []Paragraph, block string, byteStart int, runes *runeCounter, content string) []Paragraph {
	lead := len(block) - len(strings.TrimLeftFunc(block, unicode.IsSpace))
	text := strings.TrimSpace(block)
	if text == "" {
		return paras
	}
	return append(paras, Paragraph{
		Text:   text,
		Offset: runes.at(content, byteStart+lead),
	})
}

func isSentenceTerminator(r rune) bool {
	switch r {
	case '。', '！', '？', '；', '：', '…':
		return true
	}
	return false
}

func isSentenceCloser(r rune) bool {
	switch r {
	case '”', '’', '」', '』', '）', '】', '》', '〕', '"', '\'':
		return true
	}
	return false
}

// splitSentences accumulates sentences of p into chunks of at least
// chunkRunes runes. Chunk boundaries fall right after a terminator cluster.
func splitSentences(p Paragraph) []Paragraph {
	var (
		out        []Paragraph
		text       = p.Text
		chunkStart int // byte offset
		chunkRune  int // rune offset of chunkStart
		n          int // runes in the current chunk
		ri         int // rune index of the current rune
		inCluster  bool
	)
	for i, r := range text {
		switch {
		case isSentenceTerminator(r):
			inCluster = true
		case inCluster && isSentenceCloser(r):
		default:
			if inCluster && n >= chunkRunes {
				out = appendChunk(out, text[chunkStart:i], p.Offset+chunkRune)
				chunkStart, chunkRune, n = i, ri, 0
			}
			inCluster = false
		}
		n++
		ri++
	}
	out = appendChunk(out, text[chunkStart:], p.Offset+chunkRune)
	if len(out) == 0 {
		return []Paragraph{p}
	}
	return out
}

func appendChunk(out []Paragraph, chunk string, offset int) []Paragraph {
	trimmedLeft := strings.TrimLeftFunc(chunk, unicode.IsSpace)
	text := strings.TrimRightFunc(trimmedLeft, unicode.IsSpace)
	if text == "" {
		return out
	}
	lead := utf8.RuneCountInString(chunk[:len(chunk)-len(trimmedLeft)])
	return append(out, Paragraph{Text: text, Offset: offset + lead})
}
