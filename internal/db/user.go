package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Spok95/school-portal/internal/apperr"
	"github.com/Spok95/school-portal/internal/ctxutil"
	"github.com/Spok95/school-portal/internal/models"
)

const userColumns = `id, username, password_hash, first_name, last_name, email, role, telegram_chat_id, is_active, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var chatID sql.NullInt64
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Email, &u.Role, &chatID, &u.IsActive, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if chatID.Valid {
		u.TelegramChatID = &chatID.Int64
	}
	return &u, nil
}

// CreateUser создаёт пользователя вместе с профилем роли в одной транзакции.
// Для admin профиля нет; возвращает id пользователя и id профиля (0 для admin).
func CreateUser(ctx context.Context, database *sql.DB, u models.User, teacher *models.TeacherProfile, parent *models.ParentProfile) (int64, int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var userID int64
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, first_name, last_name, email, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING id
	`, u.Username, u.PasswordHash, u.FirstName, u.LastName, u.Email, string(u.Role)).Scan(&userID); err != nil {
		if isUniqueViolation(err) {
			return 0, 0, apperr.Invalid("username", "Username already exists")
		}
		return 0, 0, fmt.Errorf("insert user: %w", err)
	}

	var profileID int64
	switch u.Role {
	case models.Teacher:
		if teacher == nil {
			teacher = &models.TeacherProfile{}
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO teachers (user_id, employee_id, department, phone)
			VALUES ($1, $2, $3, $4) RETURNING id
		`, userID, teacher.EmployeeID, teacher.Department, teacher.Phone).Scan(&profileID)
	case models.Parent:
		if parent == nil {
			parent = &models.ParentProfile{}
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO parents (user_id, phone, address)
			VALUES ($1, $2, $3) RETURNING id
		`, userID, parent.Phone, parent.Address).Scan(&profileID)
	case models.Admin:
	default:
		return 0, 0, apperr.Invalid("role", "unknown role")
	}
	if err != nil {
		return 0, 0, fmt.Errorf("insert %s profile: %w", u.Role, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return userID, profileID, nil
}

func GetUserByID(ctx context.Context, database *sql.DB, id int64) (*models.User, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return scanUser(database.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func GetUserByUsername(ctx context.Context, database *sql.DB, username string) (*models.User, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return scanUser(database.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

// TeacherIDByUserID возвращает id профиля учителя пользователя.
func TeacherIDByUserID(ctx context.Context, database *sql.DB, userID int64) (int64, error) {
	return profileID(ctx, database, `SELECT id FROM teachers WHERE user_id = $1`, userID)
}

// ParentIDByUserID возвращает id профиля родителя пользователя.
func ParentIDByUserID(ctx context.Context, database *sql.DB, userID int64) (int64, error) {
	return profileID(ctx, database, `SELECT id FROM parents WHERE user_id = $1`, userID)
}

func profileID(ctx context.Context, database *sql.DB, q string, userID int64) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	var id int64
	if err := database.QueryRowContext(ctx, q, userID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperr.ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

func GetTeacher(ctx context.Context, database *sql.DB, teacherID int64) (*models.TeacherProfile, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var t models.TeacherProfile
	var first, last string
	err := database.QueryRowContext(ctx, `
		SELECT t.id, t.user_id, t.employee_id, t.department, t.phone, u.first_name, u.last_name
		FROM teachers t
		JOIN users u ON u.id = t.user_id
		WHERE t.id = $1 AND u.is_active = TRUE
	`, teacherID).Scan(&t.ID, &t.UserID, &t.EmployeeID, &t.Department, &t.Phone, &first, &last)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	t.FullName = models.User{FirstName: first, LastName: last}.FullName()
	return &t, nil
}

func GetParent(ctx context.Context, database *sql.DB, parentID int64) (*models.ParentProfile, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var p models.ParentProfile
	var first, last string
	err := database.QueryRowContext(ctx, `
		SELECT p.id, p.user_id, p.phone, p.address, u.first_name, u.last_name
		FROM parents p
		JOIN users u ON u.id = p.user_id
		WHERE p.id = $1
	`, parentID).Scan(&p.ID, &p.UserID, &p.Phone, &p.Address, &first, &last)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	p.FullName = models.User{FirstName: first, LastName: last}.FullName()
	return &p, nil
}

func UpdateParentProfile(ctx context.Context, database *sql.DB, parentID int64, phone, address string) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	res, err := database.ExecContext(ctx, `UPDATE parents SET phone = $1, address = $2 WHERE id = $3`, phone, address, parentID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// SetTelegramChatID привязывает (или отвязывает при nil) чат Telegram к пользователю.
func SetTelegramChatID(ctx context.Context, database *sql.DB, userID int64, chatID *int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	res, err := database.ExecContext(ctx, `UPDATE users SET telegram_chat_id = $1 WHERE id = $2`, chatID, userID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// CountUsersByRole — сводка для админской панели (только активные).
func CountUsersByRole(ctx context.Context, database *sql.DB) (map[models.Role]int, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, `SELECT role, COUNT(*) FROM users WHERE is_active = TRUE GROUP BY role`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := map[models.Role]int{models.Teacher: 0, models.Parent: 0, models.Admin: 0}
	for rows.Next() {
		var role models.Role
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		out[role] = n
	}
	return out, rows.Err()
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ListUserIDsByRole — активные пользователи роли, для рассылок.
func ListUserIDsByRole(ctx context.Context, database *sql.DB, role models.Role) ([]int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, `SELECT id FROM users WHERE role = $1 AND is_active ORDER BY id`, string(role))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
