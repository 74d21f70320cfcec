package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Spok95/school-portal/internal/apperr"
	"github.com/Spok95/school-portal/internal/ctxutil"
	"github.com/Spok95/school-portal/internal/models"
)

const classColumns = `cl.id, cl.teacher_id, cl.name, cl.subject, cl.grade_level, cl.section, cl.school_year, cl.created_at`

func scanClass(row interface{ Scan(...any) error }, extra ...any) (*models.Class, error) {
	var c models.Class
	dest := append([]any{&c.ID, &c.TeacherID, &c.Name, &c.Subject, &c.GradeLevel, &c.Section, &c.SchoolYear, &c.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func CreateClass(ctx context.Context, database *sql.DB, c models.Class) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO classes (teacher_id, name, subject, grade_level, section, school_year)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, c.TeacherID, c.Name, c.Subject, c.GradeLevel, c.Section, c.SchoolYear).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert class: %w", err)
	}
	return id, nil
}

func GetClass(ctx context.Context, database *sql.DB, classID int64) (*models.Class, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var n int
	c, err := scanClass(database.QueryRowContext(ctx, `
		SELECT `+classColumns+`, (SELECT COUNT(*) FROM enrollments e WHERE e.class_id = cl.id)
		FROM classes cl WHERE cl.id = $1
	`, classID), &n)
	if err != nil {
		return nil, err
	}
	c.Enrollments = n
	return c, nil
}

// ListClassesByTeacher — классы учителя с числом зачисленных.
func ListClassesByTeacher(ctx context.Context, database *sql.DB, teacherID int64) ([]models.Class, error) {
	return listClasses(ctx, database, `
		SELECT `+classColumns+`, COUNT(e.id)
		FROM classes cl
		LEFT JOIN enrollments e ON e.class_id = cl.id
		WHERE cl.teacher_id = $1
		GROUP BY cl.id
		ORDER BY cl.grade_level, cl.section, cl.name
	`, teacherID)
}

// ListClassesForChild — классы, в которые зачислен ребёнок.
func ListClassesForChild(ctx context.Context, database *sql.DB, childID int64) ([]models.Class, error) {
	return listClasses(ctx, database, `
		SELECT `+classColumns+`, (SELECT COUNT(*) FROM enrollments x WHERE x.class_id = cl.id)
		FROM classes cl
		JOIN enrollments e ON e.class_id = cl.id
		WHERE e.child_id = $1
		ORDER BY cl.name
	`, childID)
}

func ListAllClasses(ctx context.Context, database *sql.DB) ([]models.Class, error) {
	return listClasses(ctx, database, `
		SELECT `+classColumns+`, COUNT(e.id)
		FROM classes cl
		LEFT JOIN enrollments e ON e.class_id = cl.id
		GROUP BY cl.id
		ORDER BY cl.grade_level, cl.section, cl.name
	`)
}

func listClasses(ctx context.Context, database *sql.DB, q string, args ...any) ([]models.Class, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Class
	for rows.Next() {
		var n int
		c, err := scanClass(rows, &n)
		if err != nil {
			return nil, err
		}
		c.Enrollments = n
		out = append(out, *c)
	}
	return out, rows.Err()
}

func TeacherOwnsClass(ctx context.Context, database *sql.DB, teacherID, classID int64) (bool, error) {
	return exists(ctx, database, `SELECT EXISTS(SELECT 1 FROM classes WHERE id = $1 AND teacher_id = $2)`, classID, teacherID)
}

// TeacherTeachesChild — ребёнок зачислен хотя бы в один класс учителя.
func TeacherTeachesChild(ctx context.Context, database *sql.DB, teacherID, childID int64) (bool, error) {
	return exists(ctx, database, `
		SELECT EXISTS(
			SELECT 1 FROM enrollments e
			JOIN classes cl ON cl.id = e.class_id
			WHERE e.child_id = $1 AND cl.teacher_id = $2
		)`, childID, teacherID)
}

// ParentHasChildInClass — хотя бы один ребёнок родителя зачислен в класс.
func ParentHasChildInClass(ctx context.Context, database *sql.DB, parentID, classID int64) (bool, error) {
	return exists(ctx, database, `
		SELECT EXISTS(
			SELECT 1 FROM enrollments e
			JOIN parents_children pc ON pc.child_id = e.child_id
			WHERE e.class_id = $1 AND pc.parent_id = $2
		)`, classID, parentID)
}

func IsEnrolled(ctx context.Context, database *sql.DB, classID, childID int64) (bool, error) {
	return exists(ctx, database, `SELECT EXISTS(SELECT 1 FROM enrollments WHERE class_id = $1 AND child_id = $2)`, classID, childID)
}

// Enroll зачисляет ребёнка в класс; повторный вызов возвращает ту же запись.
func Enroll(ctx context.Context, database *sql.DB, classID, childID int64) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO enrollments (class_id, child_id) VALUES ($1, $2)
		ON CONFLICT (class_id, child_id) DO UPDATE SET class_id = EXCLUDED.class_id
		RETURNING id
	`, classID, childID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("enroll: %w", err)
	}
	return id, nil
}

func Unenroll(ctx context.Context, database *sql.DB, classID, childID int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	res, err := database.ExecContext(ctx, `DELETE FROM enrollments WHERE class_id = $1 AND child_id = $2`, classID, childID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// ListEnrollments — состав класса по фамилии.
func ListEnrollments(ctx context.Context, database *sql.DB, classID int64) ([]models.Enrollment, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, `
		SELECT e.id, e.class_id, e.child_id, e.enrolled_at, `+childColumns+`
		FROM enrollments e
		JOIN children c ON c.id = e.child_id
		WHERE e.class_id = $1
		ORDER BY c.last_name, c.first_name
	`, classID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Enrollment
	for rows.Next() {
		var e models.Enrollment
		var c models.Child
		var birth sql.NullTime
		if err := rows.Scan(&e.ID, &e.ClassID, &e.ChildID, &e.EnrolledAt,
			&c.ID, &c.FirstName, &c.LastName, &c.GradeLevel, &c.Section, &birth, &c.CreatedAt); err != nil {
			return nil, err
		}
		if birth.Valid {
			c.BirthDate = &birth.Time
		}
		e.Child = &c
		out = append(out, e)
	}
	return out, rows.Err()
}

func CountClasses(ctx context.Context, database *sql.DB) (int, error) {
	return count(ctx, database, `SELECT COUNT(*) FROM classes`)
}

// CountStudentsByTeacher — число различных учеников во всех классах учителя.
func CountStudentsByTeacher(ctx context.Context, database *sql.DB, teacherID int64) (int, error) {
	return count(ctx, database, `
		SELECT COUNT(DISTINCT e.child_id)
		FROM enrollments e
		JOIN classes cl ON cl.id = e.class_id
		WHERE cl.teacher_id = $1
	`, teacherID)
}

func count(ctx context.Context, database *sql.DB, q string, args ...any) (int, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	var n int
	if err := database.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
