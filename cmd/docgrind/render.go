package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	storagedto "docgrind/internal/modules/storage/dto"
	trackingdto "docgrind/internal/modules/tracking/dto"
	"docgrind/internal/platform/clock"
	"docgrind/internal/platform/report"
	"docgrind/internal/ui/theme"
)

const barWidth = 30

func duration(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(time.Second).String()
}

func percent(p float64) string {
	return fmt.Sprintf("%s %.1f%%", theme.Bar(p, barWidth), p)
}

func words(read, total int) string {
	return fmt.Sprintf("%s / %s", humanize.Comma(int64(read)), humanize.Comma(int64(total)))
}

func renderScan(title string, elements int, s trackingdto.StatusOutput) string {
	lines := []string{
		theme.Title.Render(title),
		theme.Row("document", s.DocumentID),
		theme.Row("elements", humanize.Comma(int64(elements))),
		theme.Row("words", humanize.Comma(int64(s.TotalWords))),
		theme.Row("estimate", fmt.Sprintf("%s (confidence %.0f%%)", duration(s.TotalMs), s.Confidence*100)),
	}
	if s.CanResume {
		lines = append(lines, theme.Row("progress", percent(s.Progress)))
	}
	return theme.Report.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderSession(title string, session trackingdto.SessionOutput, s trackingdto.StatusOutput) string {
	lines := []string{
		theme.Title.Render(title),
		theme.Row("session", theme.Muted.Render(session.SessionID)),
		theme.Row("active time", duration(session.TotalTime)),
		theme.Row("session words", humanize.Comma(int64(session.WordsRead))),
		theme.Row("speed", fmt.Sprintf("%.0f wpm (%s)", s.Speed, s.Trend)),
		theme.Row("progress", percent(s.Progress)),
		theme.Row("words", words(s.WordsRead, s.TotalWords)),
		theme.Row("remaining", duration(s.RemainingMs)),
		theme.Row("bookmarks", humanize.Comma(int64(s.Bookmarks))),
	}
	if s.Chapter != "" {
		lines = append(lines, theme.Row("chapter", s.Chapter))
	}
	for _, rec := range s.Recommendations {
		lines = append(lines, theme.Muted.Render("• "+rec))
	}
	return theme.Report.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderDocument(d storagedto.DocumentOutput) string {
	lines := []string{theme.Title.Render(d.DocumentID)}
	if d.HasProgress {
		lines = append(lines,
			theme.Row("progress", percent(d.Progress)),
			theme.Row("words", words(d.WordsRead, d.TotalWords)),
			theme.Row("remaining", duration(d.RemainingMs)),
		)
		if d.Chapter != "" {
			lines = append(lines, theme.Row("chapter", d.Chapter))
		}
		lines = append(lines, theme.Row("updated", humanize.Time(clock.FromMillis(d.LastUpdated))))
	} else {
		lines = append(lines, theme.Muted.Render("no progress recorded"))
	}
	lines = append(lines,
		theme.Row("sessions", humanize.Comma(int64(d.Sessions))),
		theme.Row("bookmarks", humanize.Comma(int64(d.Bookmarks))),
	)
	return theme.Report.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderDocumentLine(d storagedto.DocumentOutput) string {
	progress := theme.Muted.Render("no progress")
	if d.HasProgress {
		progress = percent(d.Progress)
	}
	return fmt.Sprintf("%-24s %s  %d sessions  %d bookmarks", d.DocumentID, progress, d.Sessions, d.Bookmarks)
}

func renderBookmark(b storagedto.BookmarkOutput) string {
	title := b.Title
	if b.Auto {
		title = theme.Muted.Render(title + " (auto)")
	}
	line := fmt.Sprintf("%5.1f%%  %s  %s", b.Percentage, title, theme.Muted.Render(humanize.Time(clock.FromMillis(b.CreatedAt))))
	if len(b.Tags) > 0 {
		line += "  " + theme.Hot.Render(strings.Join(b.Tags, ","))
	}
	return line
}

func renderUsage(u storagedto.UsageOutput) string {
	lines := []string{
		theme.Title.Render("storage"),
		theme.Row("used", fmt.Sprintf("%s of %s", humanize.Bytes(uint64(u.Used)), humanize.Bytes(uint64(u.Total)))),
		theme.Row("quota", percent(u.Percentage)),
	}
	for _, doc := range u.Documents {
		lines = append(lines, theme.Row(doc.DocumentID, humanize.Bytes(uint64(doc.Bytes))))
	}
	return theme.Report.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderReports(reports []report.Report) string {
	lines := make([]string, 0, len(reports)+1)
	lines = append(lines, theme.Bad.Render(fmt.Sprintf("%d unresolved errors", len(reports))))
	for _, r := range reports {
		lines = append(lines, fmt.Sprintf("[%s] %s", r.Severity, r.Message()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
