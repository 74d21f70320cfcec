package models

import "time"

type Role string

const (
	Teacher Role = "teacher"
	Parent  Role = "parent"
	Admin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case Teacher, Parent, Admin:
		return true
	}
	return false
}

type User struct {
	ID             int64     `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	Email          string    `db:"email" json:"email"`
	Role           Role      `db:"role" json:"role"`
	TelegramChatID *int64    `db:"telegram_chat_id" json:"-"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

func (u User) FullName() string {
	switch {
	case u.FirstName == "" && u.LastName == "":
		return u.Username
	case u.LastName == "":
		return u.FirstName
	case u.FirstName == "":
		return u.LastName
	}
	return u.FirstName + " " + u.LastName
}

// TeacherProfile is the one-to-one profile of a user with role teacher.
type TeacherProfile struct {
	ID         int64  `db:"id" json:"id"`
	UserID     int64  `db:"user_id" json:"user_id"`
	EmployeeID string `db:"employee_id" json:"employee_id"`
	Department string `db:"department" json:"department"`
	Phone      string `db:"phone" json:"phone"`
	FullName   string `db:"-" json:"full_name"`
}

// ParentProfile is the one-to-one profile of a user with role parent.
type ParentProfile struct {
	ID       int64  `db:"id" json:"id"`
	UserID   int64  `db:"user_id" json:"user_id"`
	Phone    string `db:"phone" json:"phone"`
	Address  string `db:"address" json:"address"`
	FullName string `db:"-" json:"full_name"`
}

type Child struct {
	ID         int64      `db:"id" json:"id"`
	FirstName  string     `db:"first_name" json:"first_name"`
	LastName   string     `db:"last_name" json:"last_name"`
	GradeLevel int        `db:"grade_level" json:"grade_level"`
	Section    string     `db:"section" json:"section"`
	BirthDate  *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

func (c Child) FullName() string { return c.FirstName + " " + c.LastName }
