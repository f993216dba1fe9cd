package theme

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nhle/trackmate/internal/model"
)

var (
	headerCell = lipgloss.NewStyle().Bold(true).Foreground(ColorBlue).Padding(0, 1)
	cell       = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorBorder)).
		Headers(headers...)
}

// JobsTable renders job applications as a table, one row per application.
func JobsTable(jobs []model.JobApplication) string {
	t := newTable("ID", "COMPANY", "POSITION", "STATUS", "APPLIED", "LOCATION")

	for _, j := range jobs {
		location := ""
		if j.Location != nil {
			location = *j.Location
		}
		t.Row(
			Truncate(j.ID, 8),
			Truncate(j.CompanyName, 24),
			Truncate(j.PositionTitle, 28),
			string(j.Status),
			j.ApplicationDate,
			Truncate(location, 18),
		)
	}

	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerCell
		}
		if col == 3 && row >= 0 && row < len(jobs) {
			return StatusStyle(jobs[row].Status).Padding(0, 1)
		}
		return cell
	})
	return t.String()
}

// EmailsTable renders email summaries, marking unread messages with "●".
func EmailsTable(emails []model.Email) string {
	t := newTable("", "DATE", "FROM", "SUBJECT", "SOURCE")

	for _, e := range emails {
		marker := " "
		if e.IsUnread {
			marker = "●"
		}
		date := ""
		if !e.Date.IsZero() {
			date = e.Date.Local().Format("Jan 02 15:04")
		}
		t.Row(marker, date, Truncate(e.Sender, 28), Truncate(e.Subject, 48), string(e.Source))
	}

	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerCell
		}
		if row < 0 || row >= len(emails) {
			return cell
		}
		switch col {
		case 0:
			return cell.Foreground(ColorYellow)
		case 4:
			return SourceLabelStyle(emails[row].Source).Padding(0, 1)
		}
		return cell
	})
	return t.String()
}
