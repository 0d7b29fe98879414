package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/starford/kenaz-migrate/internal/migrate"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// renderReport formats a run summary, followed by the most referenced
// missing link targets when there are any.
func renderReport(rep *migrate.Report) string {
	status := string(rep.Phase)
	if rep.DryRun {
		status += " (dry run)"
	}
	snapshot := rep.Snapshot
	if snapshot == "" {
		snapshot = "-"
	}

	rows := [][]string{
		{"Status", status},
		{"Documents", itoa(rep.Documents)},
		{"Written", itoa(rep.Written)},
		{"Skipped", itoa(rep.Skipped)},
		{"Shared basenames", itoa(rep.Collisions)},
		{"Links resolved", itoa(rep.Resolved)},
		{"Links ambiguous", itoa(rep.Ambiguous)},
		{"Links missing", itoa(rep.Missing)},
		{"Assets copied", itoa(rep.Assets.Copied)},
		{"Asset duplicates", itoa(rep.Assets.Duplicates)},
		{"Asset collisions", itoa(rep.Assets.Collisions)},
		{"Asset failures", itoa(rep.Assets.Failed)},
		{"Embeds without asset", itoa(len(rep.MissingAssets))},
		{"Bytes copied", humanize.Bytes(uint64(rep.Assets.Bytes))},
		{"Backup", snapshot},
		{"Elapsed", rep.Duration().Round(time.Millisecond).String()},
	}
	out := renderTable([]string{"Migration", "Value"}, rows, []columnAlignment{alignLeft, alignRight})

	if len(rep.Dangling) == 0 {
		return out
	}
	dangling := make([][]string, 0, len(rep.Dangling))
	for _, d := range rep.Dangling {
		dangling = append(dangling, []string{d.Target, itoa(len(d.Sources)), strings.Join(d.Sources, ", ")})
	}
	return out + "\n" + renderTable(
		[]string{"Missing target", "Refs", "Referenced from"},
		dangling,
		[]columnAlignment{alignLeft, alignRight, alignLeft},
	)
}

// renderFindings formats verify results. A clean tree renders a one-line
// note instead of an empty table.
func renderFindings(rep *migrate.VerifyReport) string {
	if len(rep.Findings) == 0 {
		return fmt.Sprintf("%d documents checked, all headers valid", rep.Checked)
	}
	var rows [][]string
	for _, f := range rep.Findings {
		for _, e := range f.Errors {
			rows = append(rows, []string{f.Path, f.Category.String(), e.Path, e.Message})
		}
	}
	return renderTable([]string{"Document", "Category", "Field", "Problem"}, rows, nil)
}

func itoa(n int) string {
	return humanize.Comma(int64(n))
}
