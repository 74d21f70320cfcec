package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Spok95/school-portal/internal/access"
	"github.com/Spok95/school-portal/internal/apperr"
	"github.com/Spok95/school-portal/internal/db"
	"github.com/Spok95/school-portal/internal/export"
	"github.com/Spok95/school-portal/internal/grading"
	"github.com/Spok95/school-portal/internal/models"
	"github.com/Spok95/school-portal/internal/stats"
)

// ListClasses: учитель видит свои классы, родитель — классы своих детей, админ — все.
func (a *App) ListClasses(ctx context.Context, id access.Identity) ([]models.Class, error) {
	switch v := id.(type) {
	case access.TeacherIdentity:
		return db.ListClassesByTeacher(ctx, a.db, v.TeacherID)
	case access.AdminIdentity:
		return db.ListAllClasses(ctx, a.db)
	case access.ParentIdentity:
		children, err := db.ListChildrenForParent(ctx, a.db, v.ParentID)
		if err != nil {
			return nil, err
		}
		seen := map[int64]bool{}
		var out []models.Class
		for _, c := range children {
			classes, err := db.ListClassesForChild(ctx, a.db, c.ID)
			if err != nil {
				return nil, err
			}
			for _, cl := range classes {
				if !seen[cl.ID] {
					seen[cl.ID] = true
					out = append(out, cl)
				}
			}
		}
		return out, nil
	}
	return nil, apperr.ErrUnauthenticated
}

type ClassDetail struct {
	Class    *models.Class        `json:"class"`
	Students []models.Enrollment  `json:"students"`
	Weights  []models.GradeWeight `json:"weights"`
}

func (a *App) ClassDetail(ctx context.Context, id access.Identity, classID int64) (*ClassDetail, error) {
	if err := access.RequireStaff(id); err != nil {
		return nil, err
	}
	if err := a.gate.Class(ctx, id, classID, false); err != nil {
		return nil, err
	}
	class, err := db.GetClass(ctx, a.db, classID)
	if err != nil {
		return nil, err
	}
	students, err := db.ListEnrollments(ctx, a.db, classID)
	if err != nil {
		return nil, err
	}
	weights, err := db.ListGradeWeights(ctx, a.db, classID)
	if err != nil {
		return nil, err
	}
	class.Enrollments = len(students)
	return &ClassDetail{Class: class, Students: students, Weights: weights}, nil
}

func (a *App) ClassStudents(ctx context.Context, id access.Identity, classID int64) ([]models.Enrollment, error) {
	if err := a.staffClass(ctx, id, classID, false); err != nil {
		return nil, err
	}
	return db.ListEnrollments(ctx, a.db, classID)
}

// ClassFinalGrades ordered by quarter then student last name.
func (a *App) ClassFinalGrades(ctx context.Context, id access.Identity, classID int64) ([]models.FinalGrade, error) {
	if err := a.staffClass(ctx, id, classID, false); err != nil {
		return nil, err
	}
	return db.ListFinalGradesByClass(ctx, a.db, classID)
}

// StudentFinalGrades returns a child's final grades; a teacher sees only their own classes.
func (a *App) StudentFinalGrades(ctx context.Context, id access.Identity, childID int64) ([]models.FinalGrade, error) {
	if err := a.gate.Child(ctx, id, childID); err != nil {
		return nil, err
	}
	var teacherID int64
	if t, ok := id.(access.TeacherIdentity); ok {
		teacherID = t.TeacherID
	}
	return db.ListFinalGradesForChild(ctx, a.db, childID, teacherID)
}

func (a *App) ListGradeItems(ctx context.Context, id access.Identity, classID int64, q models.Quarter) ([]models.GradeItem, error) {
	if q != 0 && !q.Valid() {
		return nil, apperr.Invalid("quarter", "Quarter must be between 1 and 4")
	}
	if err := a.staffClass(ctx, id, classID, false); err != nil {
		return nil, err
	}
	return db.ListGradeItemsByClass(ctx, a.db, classID, q)
}

func (a *App) staffClass(ctx context.Context, id access.Identity, classID int64, write bool) error {
	if err := access.RequireStaff(id); err != nil {
		return err
	}
	return a.gate.Class(ctx, id, classID, write)
}

type GradeItemInput struct {
	ClassID  int64           `json:"class_id" validate:"required"`
	ChildID  int64           `json:"child_id" validate:"required"`
	Quarter  int             `json:"quarter" validate:"required,gte=1,lte=4"`
	Category string          `json:"category" validate:"required,oneof=written_work performance_task quarterly_assessment"`
	Title    string          `json:"title" validate:"required,max=200"`
	Score    decimal.Decimal `json:"score"`
	MaxScore decimal.Decimal `json:"max_score"`
}

func (a *App) checkGradeItem(in *GradeItemInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if err := a.check(in); err != nil {
		return err
	}
	if !in.MaxScore.IsPositive() {
		return apperr.Invalid("max_score", "Max score must be greater than 0")
	}
	if in.Score.IsNegative() {
		return apperr.Invalid("score", "Score cannot be negative")
	}
	if in.Score.GreaterThan(in.MaxScore) {
		return apperr.Invalid("score", "Score cannot exceed max score")
	}
	return nil
}

// CreateGradeItem stores a score and recomputes the affected final grade.
func (a *App) CreateGradeItem(ctx context.Context, id access.Identity, in GradeItemInput) (*models.GradeItem, error) {
	if err := a.checkGradeItem(&in); err != nil {
		return nil, err
	}
	if err := a.staffClass(ctx, id, in.ClassID, true); err != nil {
		return nil, err
	}
	ok, err := db.IsEnrolled(ctx, a.db, in.ClassID, in.ChildID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Invalid("child_id", "Student is not enrolled in this class")
	}
	it := models.GradeItem{
		ClassID:  in.ClassID,
		ChildID:  in.ChildID,
		Quarter:  models.Quarter(in.Quarter),
		Category: models.GradeCategory(in.Category),
		Title:    in.Title,
		Score:    in.Score,
		MaxScore: in.MaxScore,
	}
	if it.ID, err = db.CreateGradeItem(ctx, a.db, it); err != nil {
		return nil, err
	}
	if _, err := a.recompute(ctx, it.ChildID, it.ClassID, it.Quarter); err != nil {
		return nil, err
	}
	return &it, nil
}

// UpdateGradeItem may move the item to another quarter; both quarters are recomputed.
func (a *App) UpdateGradeItem(ctx context.Context, id access.Identity, itemID int64, in GradeItemInput) (*models.GradeItem, error) {
	it, err := db.GetGradeItem(ctx, a.db, itemID)
	if err != nil {
		return nil, err
	}
	in.ClassID, in.ChildID = it.ClassID, it.ChildID
	if err := a.checkGradeItem(&in); err != nil {
		return nil, err
	}
	if err := a.staffClass(ctx, id, it.ClassID, true); err != nil {
		return nil, err
	}
	prev := it.Quarter
	it.Quarter = models.Quarter(in.Quarter)
	it.Category = models.GradeCategory(in.Category)
	it.Title, it.Score, it.MaxScore = in.Title, in.Score, in.MaxScore
	if err := db.UpdateGradeItem(ctx, a.db, *it); err != nil {
		return nil, err
	}
	if _, err := a.recompute(ctx, it.ChildID, it.ClassID, it.Quarter); err != nil {
		return nil, err
	}
	if prev != it.Quarter {
		if _, err := a.recompute(ctx, it.ChildID, it.ClassID, prev); err != nil {
			return nil, err
		}
	}
	return it, nil
}

func (a *App) DeleteGradeItem(ctx context.Context, id access.Identity, itemID int64) error {
	it, err := db.GetGradeItem(ctx, a.db, itemID)
	if err != nil {
		return err
	}
	if err := a.staffClass(ctx, id, it.ClassID, true); err != nil {
		return err
	}
	if err := db.DeleteGradeItem(ctx, a.db, itemID); err != nil {
		return err
	}
	_, err = a.recompute(ctx, it.ChildID, it.ClassID, it.Quarter)
	return err
}

// RecomputeFinalGrades recomputes every enrolled student of a class for one quarter
// (0 means the current one) and returns the resulting final grades.
func (a *App) RecomputeFinalGrades(ctx context.Context, id access.Identity, classID int64, q models.Quarter) ([]models.FinalGrade, error) {
	if q == 0 {
		q = a.currentQuarter()
	}
	if !q.Valid() {
		return nil, apperr.Invalid("quarter", "Quarter must be between 1 and 4")
	}
	if err := a.staffClass(ctx, id, classID, true); err != nil {
		return nil, err
	}
	return a.recomputeClass(ctx, classID, []models.Quarter{q})
}

func (a *App) recomputeClass(ctx context.Context, classID int64, quarters []models.Quarter) ([]models.FinalGrade, error) {
	students, err := db.ListEnrollments(ctx, a.db, classID)
	if err != nil {
		return nil, err
	}
	var out []models.FinalGrade
	for _, q := range quarters {
		for _, s := range students {
			fg, err := a.recompute(ctx, s.ChildID, classID, q)
			if err != nil {
				return nil, err
			}
			if fg != nil {
				out = append(out, *fg)
			}
		}
	}
	return out, nil
}

// recompute derives and persists one final grade. With no items the row is removed and nil returned.
func (a *App) recompute(ctx context.Context, childID, classID int64, q models.Quarter) (*models.FinalGrade, error) {
	items, err := db.ListGradeItemsForScope(ctx, a.db, childID, classID, q)
	if err != nil {
		return nil, err
	}
	weights, err := db.ListGradeWeights(ctx, a.db, classID)
	if err != nil {
		return nil, err
	}
	res, ok := grading.Compute(items, weights)
	if !ok {
		if err := db.DeleteFinalGrade(ctx, a.db, childID, classID, q); err != nil {
			return nil, err
		}
		return nil, nil
	}
	fg, changed, err := db.UpsertFinalGrade(ctx, a.db, childID, classID, q, res.Grade, res.Remarks)
	if err != nil {
		return nil, err
	}
	if !changed {
		return fg, nil
	}

	guardians, err := db.GuardianUserIDs(ctx, a.db, childID)
	if err != nil {
		a.log.Warn("guardians lookup failed", zap.Int64("child_id", childID), zap.Error(err))
		return fg, nil
	}
	a.notify(ctx, guardians, models.Notification{
		Type:    models.GradePosted,
		Title:   "Grade posted",
		Message: fmt.Sprintf("%s final grade: %s (%s)", q, res.Grade.StringFixed(2), res.Remarks),
		LinkURL: fmt.Sprintf("/children/%d", childID),
	})
	return fg, nil
}

type WeightInput struct {
	Category string          `json:"category" validate:"required,oneof=written_work performance_task quarterly_assessment"`
	Weight   decimal.Decimal `json:"weight"`
}

var maxWeight = decimal.NewFromInt(100)

// SetGradeWeights replaces a class's category weights and recomputes every quarter.
// An empty list falls back to plain averaging.
func (a *App) SetGradeWeights(ctx context.Context, id access.Identity, classID int64, in []WeightInput) ([]models.GradeWeight, error) {
	if err := a.staffClass(ctx, id, classID, true); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	weights := make([]models.GradeWeight, 0, len(in))
	for _, w := range in {
		if err := a.check(w); err != nil {
			return nil, err
		}
		if seen[w.Category] {
			return nil, apperr.Invalid("category", "Duplicate category "+w.Category)
		}
		seen[w.Category] = true
		if !w.Weight.IsPositive() || w.Weight.GreaterThan(maxWeight) {
			return nil, apperr.Invalid("weight", "Weight must be between 0 and 100")
		}
		weights = append(weights, models.GradeWeight{ClassID: classID, Category: models.GradeCategory(w.Category), Weight: w.Weight})
	}
	if err := db.ReplaceGradeWeights(ctx, a.db, classID, weights); err != nil {
		return nil, err
	}
	if _, err := a.recomputeClass(ctx, classID, models.AllQuarters()); err != nil {
		return nil, err
	}
	return weights, nil
}

type ClassInput struct {
	TeacherID  int64  `json:"teacher_id" validate:"required"`
	Name       string `json:"name" validate:"required,max=100"`
	Subject    string `json:"subject" validate:"required,max=100"`
	GradeLevel int    `json:"grade_level" validate:"gte=1,lte=12"`
	Section    string `json:"section" validate:"max=20"`
	SchoolYear string `json:"school_year" validate:"max=9"`
}

func (a *App) CreateClass(ctx context.Context, id access.Identity, in ClassInput) (*models.Class, error) {
	if _, err := access.RequireAdmin(id); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := a.check(in); err != nil {
		return nil, err
	}
	if _, err := db.GetTeacher(ctx, a.db, in.TeacherID); err != nil {
		return nil, err
	}
	if in.SchoolYear == "" {
		in.SchoolYear = stats.SchoolYearLabel(a.now().In(a.loc))
	}
	c := models.Class{
		TeacherID:  in.TeacherID,
		Name:       in.Name,
		Subject:    in.Subject,
		GradeLevel: in.GradeLevel,
		Section:    in.Section,
		SchoolYear: in.SchoolYear,
	}
	var err error
	if c.ID, err = db.CreateClass(ctx, a.db, c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (a *App) Enroll(ctx context.Context, id access.Identity, classID, childID int64) (int64, error) {
	if _, err := access.RequireAdmin(id); err != nil {
		return 0, err
	}
	if _, err := db.GetClass(ctx, a.db, classID); err != nil {
		return 0, err
	}
	if _, err := db.GetChild(ctx, a.db, childID); err != nil {
		return 0, err
	}
	return db.Enroll(ctx, a.db, classID, childID)
}

func (a *App) Unenroll(ctx context.Context, id access.Identity, classID, childID int64) error {
	if _, err := access.RequireAdmin(id); err != nil {
		return err
	}
	return db.Unenroll(ctx, a.db, classID, childID)
}

// GradeTemplate builds the grade entry workbook for a class roster.
func (a *App) GradeTemplate(ctx context.Context, id access.Identity, classID int64, q models.Quarter) (*export.Workbook, error) {
	if q == 0 {
		q = a.currentQuarter()
	}
	if !q.Valid() {
		return nil, apperr.Invalid("quarter", "Quarter must be between 1 and 4")
	}
	if err := a.staffClass(ctx, id, classID, false); err != nil {
		return nil, err
	}
	class, err := db.GetClass(ctx, a.db, classID)
	if err != nil {
		return nil, err
	}
	students, err := db.ListEnrollments(ctx, a.db, classID)
	if err != nil {
		return nil, err
	}
	return export.GradeTemplate(*class, students, q)
}

// GradeReport builds the final grade workbook; q == 0 covers all quarters.
func (a *App) GradeReport(ctx context.Context, id access.Identity, classID int64, q models.Quarter) (*export.Workbook, error) {
	if q != 0 && !q.Valid() {
		return nil, apperr.Invalid("quarter", "Quarter must be between 1 and 4")
	}
	if err := a.staffClass(ctx, id, classID, false); err != nil {
		return nil, err
	}
	class, err := db.GetClass(ctx, a.db, classID)
	if err != nil {
		return nil, err
	}
	finals, err := db.ListFinalGradesByClass(ctx, a.db, classID)
	if err != nil {
		return nil, err
	}
	items, err := db.ListGradeItemsByClass(ctx, a.db, classID, q)
	if err != nil {
		return nil, err
	}
	return export.ClassGradeReport(*class, finals, items, q)
}
