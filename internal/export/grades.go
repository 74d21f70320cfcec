package export

import (
	"fmt"
	"sort"

	"github.com/Spok95/school-portal/internal/models"
)

var gradeItemHeader = []string{"Student ID", "Student", "Quarter", "Category", "Title", "Score", "Max score"}

// GradeTemplate is an empty grade entry sheet with one row per enrolled student
// plus a sheet listing allowed categories.
func GradeTemplate(class models.Class, enrollments []models.Enrollment, q models.Quarter) (*Workbook, error) {
	rows := make([][]string, 0, len(enrollments))
	for _, e := range enrollments {
		name := ""
		if e.Child != nil {
			name = e.Child.FullName()
		}
		rows = append(rows, []string{fmt.Sprint(e.ChildID), name, fmt.Sprint(int(q)), "", "", "", ""})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i][1] < rows[j][1] })

	return NewWorkbook(GradeTemplateFilename(class.Name), []SheetSpec{
		{Title: class.Name, Header: gradeItemHeader, Rows: rows},
		{Title: "Categories", Header: []string{"Category"}, Rows: [][]string{
			{string(models.WrittenWork)},
			{string(models.PerformanceTask)},
			{string(models.QuarterlyAssessment)},
		}},
	})
}

// ClassGradeReport lists final grades and the underlying items of a class.
func ClassGradeReport(class models.Class, finals []models.FinalGrade, items []models.GradeItem, q models.Quarter) (*Workbook, error) {
	finalRows := make([][]string, 0, len(finals))
	for _, f := range finals {
		if q != 0 && f.Quarter != q {
			continue
		}
		finalRows = append(finalRows, []string{
			f.ChildName, f.Quarter.String(), f.Grade.StringFixed(2), f.Remarks, f.UpdatedAt.Format("2006-01-02"),
		})
	}

	itemRows := make([][]string, 0, len(items))
	for _, it := range items {
		itemRows = append(itemRows, []string{
			fmt.Sprint(it.ChildID), it.ChildName, fmt.Sprint(int(it.Quarter)), string(it.Category), it.Title,
			it.Score.String(), it.MaxScore.String(),
		})
	}

	return NewWorkbook(GradeReportFilename(class.Name, int(q)), []SheetSpec{
		{Title: "Final grades", Header: []string{"Student", "Quarter", "Grade", "Remarks", "Updated"}, Rows: finalRows},
		{Title: "Items", Header: gradeItemHeader, Rows: itemRows},
	})
}
