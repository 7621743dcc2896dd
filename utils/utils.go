package utils

import (
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mitchellh/go-homedir"

	"github.com/charmbracelet/folio/pipeline"
)

// RemoveFrontmatter removes a YAML front matter header from the content.
func RemoveFrontmatter(content []byte) []byte {
	if frontmatterBoundaries := detectFrontmatter(content); frontmatterBoundaries[0] == 0 {
		return content[frontmatterBoundaries[1]:]
	}
	return content
}

var yamlPattern = regexp.MustCompile(`(?m)^---\r?\n(\s*\r?\n)?`)

func detectFrontmatter(c []byte) []int {
	if matches := yamlPattern.FindAllIndex(c, 2); len(matches) > 1 {
		return []int{matches[0][0], matches[1][1]}
	}
	return []int{-1, -1}
}

// Expands tilde and all environment variables from the given path.
func ExpandPath(path string) string {
	s, err := homedir.Expand(path)
	if err == nil {
		return os.ExpandEnv(s)
	}
	return os.ExpandEnv(path)
}

// Headings longer than this are prose, not chapter titles.
const maxHeadingRunes = 60

var chapterPattern = regexp.MustCompile(`(?i)^(?:` +
	`第[0-9０-９零〇一二两三四五六七八九十百千万]+[章节回卷部篇集]` +
	`|(?:chapter|part|book)\s+(?:[0-9]+|[ivxlcdm]+|` + numberWords + `)\b` +
	`|(?:prologue|epilogue|preface|introduction|afterword)\b` +
	`|序[章言]|楔子|尾声|后记` +
	`)`)

const numberWords = `one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|` +
	`thirteen|fourteen|fifteen|sixteen|seventeen|eighteen|nineteen|twenty|` +
	`first|second|third|last`

// DetectChapters finds chapter headings in plain text: short lines such as
// "Chapter 3", "PART ONE" or "第十二章 归来". Offsets are in runes.
func DetectChapters(content string) []pipeline.Chapter {
	var (
		chapters []pipeline.Chapter
		offset   int
	)
	for line := range strings.Lines(content) {
		title := strings.TrimSpace(line)
		if title != "" && utf8.RuneCountInString(title) <= maxHeadingRunes && chapterPattern.MatchString(title) {
			lead := utf8.RuneCountInString(line[:strings.Index(line, title)])
			chapters = append(chapters, pipeline.Chapter{
				Title: title,
				Start: offset + lead,
			})
		}
		offset += utf8.RuneCountInString(line)
	}
	return chapters
}

// GetPagerCommand returns the pager command line held by envVar, or
// "less -r" when it is unset. A value that looks like a path to an
// executable is not split, so paths may contain spaces.
func GetPagerCommand(envVar string) []string {
	cmd := strings.TrimSpace(os.Getenv(envVar))
	if cmd == "" {
		return []string{"less", "-r"}
	}
	if strings.ContainsAny(cmd, `/\`) && !strings.Contains(cmd, " -") {
		return []string{cmd}
	}
	return strings.Fields(cmd)
}
