package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/mmcdole/vkaudio/internal/search"
	"github.com/mmcdole/vkaudio/internal/service"
	"github.com/mmcdole/vkaudio/internal/tui/styles"
)

// RenderOutcome writes a one-operation summary
func RenderOutcome(w io.Writer, out service.Outcome) {
	switch {
	case out.Abandoned():
		fmt.Fprintln(w, styles.DimStyle.Render("Captcha skipped, nothing imported."))
		return
	case out.Notice != "":
		fmt.Fprintln(w, styles.WarnStyle.Render(out.Notice))
		return
	}

	r := out.Report
	parts := []string{styles.SuccessStyle.Render(fmt.Sprintf("%d imported", r.Imported))}
	if r.Existing > 0 {
		parts = append(parts, fmt.Sprintf("%d already in library", r.Existing))
	}
	if r.Duplicates > 0 {
		parts = append(parts, fmt.Sprintf("%d duplicates", r.Duplicates))
	}
	if r.Malformed > 0 {
		parts = append(parts, styles.WarnStyle.Render(fmt.Sprintf("%d malformed", r.Malformed)))
	}
	if r.Failed > 0 {
		parts = append(parts, styles.ErrorStyle.Render(fmt.Sprintf("%d failed", r.Failed)))
	}

	fmt.Fprintf(w, "%s %s\n", styles.TitleStyle.Render(fmt.Sprintf("%d results:", len(out.Results))), strings.Join(parts, ", "))
}

// RenderRecords writes one line per filtered record, highlighting matches
func RenderRecords(w io.Writer, results []search.Result, width int) {
	if len(results) == 0 {
		fmt.Fprintln(w, styles.DimStyle.Render("No records."))
		return
	}

	for _, r := range results {
		label := r.Label
		if width > 10 && len([]rune(label)) > width-8 {
			// truncation would shift highlight offsets
			label = styles.Truncate(label, width-8)
		} else {
			label = styles.Highlight(label, r.MatchedIndexes)
		}
		fmt.Fprintf(w, "%s  %s\n", styles.DimStyle.Render(fmt.Sprintf("%6s", r.Record.FormattedDuration())), label)
	}
}
