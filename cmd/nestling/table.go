package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"nestling/internal/queue"
	"nestling/internal/textutil"
)

// errorColumnWidth caps the Error column so a long backend message wraps
// instead of blowing out the terminal width.
const errorColumnWidth = 48

func renderRetryQueue(entries []queue.StoredEntry) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Task", "File", "Resumes At", "Outcome", "Stored", "Error"})

	for _, entry := range entries {
		outcome := "failed"
		if entry.Cancelled {
			outcome = "cancelled"
		}
		tw.AppendRow(table.Row{
			entry.TaskID,
			entry.FileName,
			entry.ResumeStage.Label(),
			outcome,
			entry.CreatedAt.Local().Format("Jan _2 15:04"),
			textutil.DisplayLabel(entry.ErrorMessage),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Error", WidthMax: errorColumnWidth, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
