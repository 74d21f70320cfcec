package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Spok95/school-portal/internal/apperr"
	"github.com/Spok95/school-portal/internal/ctxutil"
	"github.com/Spok95/school-portal/internal/models"
)

const gradeItemColumns = `g.id, g.class_id, g.child_id, g.quarter, g.category, g.title, g.score, g.max_score, g.created_at, g.updated_at`

func scanGradeItem(row interface{ Scan(...any) error }, extra ...any) (*models.GradeItem, error) {
	var g models.GradeItem
	dest := append([]any{&g.ID, &g.ClassID, &g.ChildID, &g.Quarter, &g.Category, &g.Title, &g.Score, &g.MaxScore, &g.CreatedAt, &g.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

func CreateGradeItem(ctx context.Context, database *sql.DB, g models.GradeItem) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO grade_items (class_id, child_id, quarter, category, title, score, max_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, g.ClassID, g.ChildID, int(g.Quarter), string(g.Category), g.Title, g.Score, g.MaxScore).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert grade item: %w", err)
	}
	return id, nil
}

// UpdateGradeItem меняет оценку внутри того же класса; ребёнок и класс неизменны.
func UpdateGradeItem(ctx context.Context, database *sql.DB, g models.GradeItem) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	res, err := database.ExecContext(ctx, `
		UPDATE grade_items
		SET quarter = $1, category = $2, title = $3, score = $4, max_score = $5, updated_at = now()
		WHERE id = $6
	`, int(g.Quarter), string(g.Category), g.Title, g.Score, g.MaxScore, g.ID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func DeleteGradeItem(ctx context.Context, database *sql.DB, id int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	res, err := database.ExecContext(ctx, `DELETE FROM grade_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func GetGradeItem(ctx context.Context, database *sql.DB, id int64) (*models.GradeItem, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return scanGradeItem(database.QueryRowContext(ctx, `SELECT `+gradeItemColumns+` FROM grade_items g WHERE g.id = $1`, id))
}

// ListGradeItemsForScope — оценки ребёнка в классе за четверть.
func ListGradeItemsForScope(ctx context.Context, database *sql.DB, childID, classID int64, q models.Quarter) ([]models.GradeItem, error) {
	return listGradeItems(ctx, database, `
		SELECT `+gradeItemColumns+`, '', ''
		FROM grade_items g
		WHERE g.child_id = $1 AND g.class_id = $2 AND g.quarter = $3
		ORDER BY g.created_at, g.id
	`, childID, classID, int(q))
}

// ListGradeItemsByClass — все оценки класса; quarter=0 означает все четверти.
func ListGradeItemsByClass(ctx context.Context, database *sql.DB, classID int64, q models.Quarter) ([]models.GradeItem, error) {
	return listGradeItems(ctx, database, `
		SELECT `+gradeItemColumns+`, c.last_name || ' ' || c.first_name, cl.name
		FROM grade_items g
		JOIN children c ON c.id = g.child_id
		JOIN classes cl ON cl.id = g.class_id
		WHERE g.class_id = $1 AND ($2 = 0 OR g.quarter = $2)
		ORDER BY g.quarter, c.last_name, c.first_name, g.created_at
	`, classID, int(q))
}

// RecentGradeItemsByTeacher — последние выставленные оценки по классам учителя.
func RecentGradeItemsByTeacher(ctx context.Context, database *sql.DB, teacherID int64, limit int) ([]models.GradeItem, error) {
	return listGradeItems(ctx, database, `
		SELECT `+gradeItemColumns+`, c.last_name || ' ' || c.first_name, cl.name
		FROM grade_items g
		JOIN classes cl ON cl.id = g.class_id
		JOIN children c ON c.id = g.child_id
		WHERE cl.teacher_id = $1
		ORDER BY g.created_at DESC, g.id DESC
		LIMIT $2
	`, teacherID, limit)
}

func listGradeItems(ctx context.Context, database *sql.DB, q string, args ...any) ([]models.GradeItem, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.GradeItem
	for rows.Next() {
		var childName, className string
		g, err := scanGradeItem(rows, &childName, &className)
		if err != nil {
			return nil, err
		}
		g.ChildName, g.ClassName = childName, className
		out = append(out, *g)
	}
	return out, rows.Err()
}

func ListGradeWeights(ctx context.Context, database *sql.DB, classID int64) ([]models.GradeWeight, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, `
		SELECT class_id, category, weight FROM grade_weights WHERE class_id = $1 ORDER BY category
	`, classID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.GradeWeight
	for rows.Next() {
		var w models.GradeWeight
		if err := rows.Scan(&w.ClassID, &w.Category, &w.Weight); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ReplaceGradeWeights заменяет веса класса целиком в одной транзакции.
func ReplaceGradeWeights(ctx context.Context, database *sql.DB, classID int64, weights []models.GradeWeight) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM grade_weights WHERE class_id = $1`, classID); err != nil {
		return err
	}
	for _, w := range weights {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO grade_weights (class_id, category, weight) VALUES ($1, $2, $3)
		`, classID, string(w.Category), w.Weight); err != nil {
			return fmt.Errorf("insert weight %s: %w", w.Category, err)
		}
	}
	return tx.Commit()
}

// UpsertFinalGrade сохраняет итог за (ребёнок, класс, четверть), перезаписывая прежний.
// changed=false, если прежний итог был тем же числом.
func UpsertFinalGrade(ctx context.Context, database *sql.DB, childID, classID int64, q models.Quarter, grade decimal.Decimal, remarks string) (*models.FinalGrade, bool, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	fg := models.FinalGrade{ChildID: childID, ClassID: classID, Quarter: q, Grade: grade, Remarks: remarks}
	var prev decimal.NullDecimal
	err := database.QueryRowContext(ctx, `
		WITH prev AS (
			SELECT grade FROM final_grades WHERE child_id = $1 AND class_id = $2 AND quarter = $3
		)
		INSERT INTO final_grades (child_id, class_id, quarter, grade, remarks)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (child_id, class_id, quarter)
		DO UPDATE SET grade = EXCLUDED.grade, remarks = EXCLUDED.remarks, updated_at = now()
		RETURNING id, updated_at, (SELECT grade FROM prev)
	`, childID, classID, int(q), grade, remarks).Scan(&fg.ID, &fg.UpdatedAt, &prev)
	if err != nil {
		return nil, false, fmt.Errorf("upsert final grade: %w", err)
	}
	return &fg, !prev.Valid || !prev.Decimal.Equal(grade), nil
}

// DeleteFinalGrade убирает итог, когда в четверти не осталось оценок.
func DeleteFinalGrade(ctx context.Context, database *sql.DB, childID, classID int64, q models.Quarter) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	_, err := database.ExecContext(ctx, `
		DELETE FROM final_grades WHERE child_id = $1 AND class_id = $2 AND quarter = $3
	`, childID, classID, int(q))
	return err
}

const finalGradeSelect = `
	SELECT f.id, f.child_id, f.class_id, f.quarter, f.grade, f.remarks, f.updated_at,
	       c.last_name || ' ' || c.first_name, cl.name
	FROM final_grades f
	JOIN children c ON c.id = f.child_id
	JOIN classes cl ON cl.id = f.class_id`

func GetFinalGrade(ctx context.Context, database *sql.DB, id int64) (*models.FinalGrade, error) {
	grades, err := listFinalGrades(ctx, database, finalGradeSelect+` WHERE f.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(grades) == 0 {
		return nil, apperr.ErrNotFound
	}
	return &grades[0], nil
}

// ListFinalGradesByClass — итоги класса по четвертям и фамилиям.
func ListFinalGradesByClass(ctx context.Context, database *sql.DB, classID int64) ([]models.FinalGrade, error) {
	return listFinalGrades(ctx, database, finalGradeSelect+`
		WHERE f.class_id = $1
		ORDER BY f.quarter, c.last_name, c.first_name
	`, classID)
}

// ListFinalGradesForChild — итоги ребёнка; teacherID>0 ограничивает классами учителя.
func ListFinalGradesForChild(ctx context.Context, database *sql.DB, childID, teacherID int64) ([]models.FinalGrade, error) {
	return listFinalGrades(ctx, database, finalGradeSelect+`
		WHERE f.child_id = $1 AND ($2 = 0 OR cl.teacher_id = $2)
		ORDER BY cl.name, f.quarter
	`, childID, teacherID)
}

// LatestFinalGradesForChild — последние итоги ребёнка для панели родителя.
func LatestFinalGradesForChild(ctx context.Context, database *sql.DB, childID int64, limit int) ([]models.FinalGrade, error) {
	return listFinalGrades(ctx, database, finalGradeSelect+`
		WHERE f.child_id = $1
		ORDER BY f.quarter DESC, f.updated_at DESC
		LIMIT $2
	`, childID, limit)
}

func listFinalGrades(ctx context.Context, database *sql.DB, q string, args ...any) ([]models.FinalGrade, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.FinalGrade
	for rows.Next() {
		var f models.FinalGrade
		if err := rows.Scan(&f.ID, &f.ChildID, &f.ClassID, &f.Quarter, &f.Grade, &f.Remarks, &f.UpdatedAt, &f.ChildName, &f.ClassName); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
