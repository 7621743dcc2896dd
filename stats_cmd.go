package main

import (
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/charmbracelet/folio/paginate"
	"github.com/charmbracelet/folio/pipeline"
)

var statsCmd = &cobra.Command{
	Use:     "stats [SOURCE]",
	Short:   "Show how a text paginates",
	Long:    paragraph(fmt.Sprintf("\n%s the page layout, page count and chapters of a text without opening it.", keyword("Show"))),
	Example: paragraph("folio stats book.txt\nfolio stats --width 60 --height 30 book.txt"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		arg := "-"
		if len(args) == 1 {
			arg = args[0]
		}
		src, err := sourceFromArg(arg)
		if err != nil {
			return err
		}
		defer src.reader.Close() //nolint:errcheck

		content, chapters, err := readSource(src)
		if err != nil {
			return err
		}
		return writeStats(os.Stdout, content, chapters)
	},
}

func writeStats(w io.Writer, content string, chapters []pipeline.Chapter) error {
	cfg := manager.Get()
	width, height := printSize(cfg)

	p := newPipeline(cfg, width, height, nil)
	defer func() { _ = p.Shutdown() }()
	p.SetContent(content, chapters...)

	m := p.Metrics()
	rows := []struct{ label, value string }{
		{"Size", humanize.Bytes(uint64(len(content)))},
		{"Characters", humanize.Comma(int64(utf8.RuneCountInString(content)))},
		{"Paragraphs", humanize.Comma(int64(len(paginate.SplitParagraphs(content))))},
		{"Chapters", humanize.Comma(int64(len(p.Chapters())))},
		{"Layout", fmt.Sprintf("%d×%d cells, %d×%d text", m.ContainerWidth, m.ContainerHeight, m.CharsPerLine, m.LinesPerPage)},
		{"Strategy", p.Settings().Strategy.String()},
		{"Pages", humanize.Comma(int64(p.TotalPages()))},
	}
	for _, r := range rows {
		if _, err := fmt.Fprintln(w, statLabel.Render(r.label)+keyword(r.value)); err != nil {
			return err
		}
	}

	for i, ch := range p.Chapters() {
		page, _ := p.PageForChapter(i)
		if _, err := fmt.Fprintf(w, "  %s %s\n", statLabel.Render(fmt.Sprintf("p. %d", page+1)), ch.Title); err != nil {
			return err
		}
	}
	return nil
}
