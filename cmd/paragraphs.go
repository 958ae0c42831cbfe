package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/penflow/penflow/internal/api"
	"github.com/penflow/penflow/internal/textpatch"
	"github.com/spf13/cobra"
)

var paragraphsOffline bool

var paragraphsCmd = &cobra.Command{
	Use:   "paragraphs <chapter-file>",
	Short: "List a chapter's paragraphs with the indexes used by --paragraphs",
	Long: `Paragraphs shows how the chapter splits into paragraphs and which
1-based index each one gets, so you can build a selection like "1-5, 9".
By default the analysis service does the segmentation; --offline segments
locally with the same rules.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read chapter file: %w", err)
		}

		preview, err := paragraphPreview(cmd, string(data))
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"#", "Preview", "Length"})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, WidthMax: 60, WidthMaxEnforcer: text.Trim},
		})
		for _, p := range preview.Paragraphs {
			t.AppendRow(table.Row{p.Index + 1, p.Preview, p.Length})
		}
		t.AppendFooter(table.Row{"", "paragraphs", preview.TotalParagraphs})
		t.SetStyle(table.StyleLight)
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(paragraphsCmd)
	paragraphsCmd.Flags().BoolVar(&paragraphsOffline, "offline", false, "segment locally instead of asking the service")
}

func paragraphPreview(cmd *cobra.Command, content string) (*api.ParagraphPreview, error) {
	if !paragraphsOffline {
		preview, err := NewServiceClient().PreviewParagraphs(cmd.Context(), content)
		if err == nil {
			return preview, nil
		}
		fmt.Fprintln(os.Stderr, "service unavailable, segmenting locally:", err)
	}

	paragraphs := textpatch.Segment(content)
	preview := &api.ParagraphPreview{TotalParagraphs: len(paragraphs)}
	for _, p := range paragraphs {
		preview.Paragraphs = append(preview.Paragraphs, api.ParagraphInfo{
			Index:   p.Index,
			Preview: snippet(p.Text, 60),
			Length:  len([]rune(p.Text)),
		})
	}
	return preview, nil
}

func snippet(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
