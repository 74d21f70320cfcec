package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Spok95/school-portal/internal/apperr"
	"github.com/Spok95/school-portal/internal/ctxutil"
	"github.com/Spok95/school-portal/internal/models"
)

const childColumns = `c.id, c.first_name, c.last_name, c.grade_level, c.section, c.birth_date, c.created_at`

func scanChild(row interface{ Scan(...any) error }) (*models.Child, error) {
	var c models.Child
	var birth sql.NullTime
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.GradeLevel, &c.Section, &birth, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if birth.Valid {
		c.BirthDate = &birth.Time
	}
	return &c, nil
}

func listChildren(ctx context.Context, database *sql.DB, q string, args ...any) ([]models.Child, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func CreateChild(ctx context.Context, database *sql.DB, c models.Child) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var birth any
	if c.BirthDate != nil {
		birth = *c.BirthDate
	}
	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO children (first_name, last_name, grade_level, section, birth_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, c.FirstName, c.LastName, c.GradeLevel, c.Section, birth).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert child: %w", err)
	}
	return id, nil
}

func GetChild(ctx context.Context, database *sql.DB, childID int64) (*models.Child, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return scanChild(database.QueryRowContext(ctx, `SELECT `+childColumns+` FROM children c WHERE c.id = $1`, childID))
}

// LinkGuardian добавляет родителя в список опекунов ребёнка (идемпотентно).
func LinkGuardian(ctx context.Context, database *sql.DB, parentID, childID int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	_, err := database.ExecContext(ctx, `
		INSERT INTO parents_children (parent_id, child_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, parentID, childID)
	return err
}

func UnlinkGuardian(ctx context.Context, database *sql.DB, parentID, childID int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	res, err := database.ExecContext(ctx, `DELETE FROM parents_children WHERE parent_id = $1 AND child_id = $2`, parentID, childID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// ListChildrenForParent Дети родителя через parents_children
func ListChildrenForParent(ctx context.Context, database *sql.DB, parentID int64) ([]models.Child, error) {
	return listChildren(ctx, database, `
		SELECT `+childColumns+`
		FROM children c
		JOIN parents_children pc ON pc.child_id = c.id
		WHERE pc.parent_id = $1
		ORDER BY c.last_name, c.first_name
	`, parentID)
}

func ParentHasChild(ctx context.Context, database *sql.DB, parentID, childID int64) (bool, error) {
	return exists(ctx, database, `SELECT EXISTS(SELECT 1 FROM parents_children WHERE parent_id = $1 AND child_id = $2)`, parentID, childID)
}

// GuardianUserIDs — users.id всех опекунов ребёнка (для уведомлений).
func GuardianUserIDs(ctx context.Context, database *sql.DB, childID int64) ([]int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, `
		SELECT p.user_id
		FROM parents_children pc
		JOIN parents p ON p.id = pc.parent_id
		WHERE pc.child_id = $1
		ORDER BY p.user_id
	`, childID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GradeLevelsForParent — параллели детей родителя, для фильтра объявлений по grade:N.
func GradeLevelsForParent(ctx context.Context, database *sql.DB, parentID int64) ([]int, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, `
		SELECT DISTINCT c.grade_level
		FROM children c
		JOIN parents_children pc ON pc.child_id = c.id
		WHERE pc.parent_id = $1
		ORDER BY c.grade_level
	`, parentID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []int
	for rows.Next() {
		var g int
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func exists(ctx context.Context, database *sql.DB, q string, args ...any) (bool, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	var ok bool
	if err := database.QueryRowContext(ctx, q, args...).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
