// Package width classifies runes by the number of terminal columns they
// occupy and by where they may be placed on a wrapped line.
package width

import (
	"github.com/mattn/go-runewidth"
)

// The default runewidth condition reads the locale from the environment,
// which would make page boundaries depend on LANG. Ambiguous-width runes are
// always narrow here.
var cond = func() *runewidth.Condition {
	c := runewidth.NewCondition()
	c.EastAsianWidth = false
	c.StrictEmojiNeutral = true
	return c
}()

// Rune returns the display width of r: 2 for East Asian wide and fullwidth
// runes, 1 for everything else.
func Rune(r rune) int {
	// Fast path for ASCII.
	if r < 0x80 {
		return 1
	}
	if r == '　' {
		return 2
	}
	if cond.RuneWidth(r) >= 2 {
		return 2
	}
	return 1
}

// String returns the display width of s.
func String(s string) int {
	w := 0
	for _, r := range s {
		w += Rune(r)
	}
	return w
}

var noLineStart = setOf(
	// CJK fullwidth closing and terminal punctuation.
	"，。、；：？！）」』】〉》〕｝］〗〙〛”’…‥—～・·％",
	// Halfwidth forms.
	",.;:?!)]}%",
)

var noLineEnd = setOf(
	"（「『【〈《〔｛［〖〘〚“‘",
	"([{",
)

// NoLineStart reports whether r may never begin a physical line.
func NoLineStart(r rune) bool {
	_, ok := noLineStart[r]
	return ok
}

// NoLineEnd reports whether r may never end a physical line.
func NoLineEnd(r rune) bool {
	_, ok := noLineEnd[r]
	return ok
}

func setOf(groups ...string) map[rune]struct{} {
	m := make(map[rune]struct{})
	for _, g := range groups {
		for _, r := range g {
			m[r] = struct{}{}
		}
	}
	return m
}
