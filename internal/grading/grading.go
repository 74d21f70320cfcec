// Package grading computes quarterly final grades from scored items.
package grading

import (
	"github.com/shopspring/decimal"

	"github.com/Spok95/school-portal/internal/models"
)

// PassingGrade is the lowest final grade with remarks "Passed".
var PassingGrade = decimal.NewFromInt(75)

const (
	RemarkPassed = "Passed"
	RemarkFailed = "Failed"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// Result is a computed final grade.
type Result struct {
	Grade   decimal.Decimal
	Remarks string
}

// Percent returns score/max_score*100 for one item. Items with max_score <= 0 yield zero.
func Percent(it models.GradeItem) decimal.Decimal {
	if !it.MaxScore.IsPositive() {
		return zero
	}
	return it.Score.Div(it.MaxScore).Mul(hundred)
}

// Compute returns the final grade for the items of one (child, class, quarter).
// ok is false when there are no items.
//
// When weights cover every category present among the items the grade is the
// weighted mean of per-category means, normalised by the weights of present
// categories. Otherwise it is the plain mean of item percentages.
func Compute(items []models.GradeItem, weights []models.GradeWeight) (Result, bool) {
	if len(items) == 0 {
		return Result{}, false
	}

	byCat := make(map[models.GradeCategory][]decimal.Decimal)
	var order []models.GradeCategory
	all := make([]decimal.Decimal, 0, len(items))
	for _, it := range items {
		p := Percent(it)
		if _, seen := byCat[it.Category]; !seen {
			order = append(order, it.Category)
		}
		byCat[it.Category] = append(byCat[it.Category], p)
		all = append(all, p)
	}

	w := make(map[models.GradeCategory]decimal.Decimal, len(weights))
	for _, gw := range weights {
		if gw.Weight.IsPositive() {
			w[gw.Category] = gw.Weight
		}
	}

	var grade decimal.Decimal
	if covers(w, order) {
		sum, denom := zero, zero
		for _, c := range order {
			sum = sum.Add(w[c].Mul(mean(byCat[c])))
			denom = denom.Add(w[c])
		}
		grade = sum.Div(denom)
	} else {
		grade = mean(all)
	}

	grade = clamp(grade).Round(2)
	return Result{Grade: grade, Remarks: Remarks(grade)}, true
}

// Remarks maps a final grade to its pass/fail label.
func Remarks(grade decimal.Decimal) string {
	if grade.GreaterThanOrEqual(PassingGrade) {
		return RemarkPassed
	}
	return RemarkFailed
}

func covers(w map[models.GradeCategory]decimal.Decimal, cats []models.GradeCategory) bool {
	if len(w) == 0 {
		return false
	}
	for _, c := range cats {
		if _, ok := w[c]; !ok {
			return false
		}
	}
	return true
}

func mean(xs []decimal.Decimal) decimal.Decimal {
	return decimal.Sum(zero, xs...).Div(decimal.NewFromInt(int64(len(xs))))
}

func clamp(d decimal.Decimal) decimal.Decimal {
	if d.LessThan(zero) {
		return zero
	}
	if d.GreaterThan(hundred) {
		return hundred
	}
	return d
}
