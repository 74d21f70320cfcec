package export

import (
	"github.com/Spok95/school-portal/internal/models"
	"github.com/Spok95/school-portal/internal/stats"
)

// AttendanceReport writes the raw records and a per-student summary.
func AttendanceReport(class models.Class, records []models.Attendance, from, to string) (*Workbook, error) {
	type agg struct {
		name                  string
		present, absent, late int
	}
	var order []int64
	byChild := map[int64]*agg{}

	raw := make([][]string, 0, len(records))
	for _, a := range records {
		raw = append(raw, []string{a.Date.Format("2006-01-02"), a.ChildName, string(a.Status), a.Remarks})

		g, ok := byChild[a.ChildID]
		if !ok {
			g = &agg{name: a.ChildName}
			byChild[a.ChildID] = g
			order = append(order, a.ChildID)
		}
		switch a.Status {
		case models.Present:
			g.present++
		case models.Absent:
			g.absent++
		case models.Late:
			g.late++
		}
	}

	summary := make([][]string, 0, len(order))
	for _, id := range order {
		g := byChild[id]
		s := stats.NewSummary(g.present, g.absent, g.late)
		summary = append(summary, []string{
			g.name, itoa(s.Present), itoa(s.Absent), itoa(s.Late), itoa(s.Total), ftoa1(s.Rate),
		})
	}

	return NewWorkbook(AttendanceReportFilename(class.Name, from, to), []SheetSpec{
		{Title: "Summary", Header: []string{"Student", "Present", "Absent", "Late", "Total", "Rate %"}, Rows: summary},
		{Title: "Records", Header: []string{"Date", "Student", "Status", "Remarks"}, Rows: raw},
	})
}
