package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Spok95/school-portal/internal/access"
	"github.com/Spok95/school-portal/internal/apperr"
	"github.com/Spok95/school-portal/internal/auth"
	"github.com/Spok95/school-portal/internal/db"
	"github.com/Spok95/school-portal/internal/models"
	"github.com/Spok95/school-portal/internal/stats"
)

type LoginInput struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=teacher parent admin"`
}

// ErrBadLogin is returned for unknown users, wrong passwords, inactive accounts
// and role mismatches alike.
var ErrBadLogin = fmt.Errorf("%w: %w", apperr.ErrUnauthenticated, auth.ErrBadCredentials)

// Login exchanges credentials for a bearer token; the account must carry the expected role.
func (a *App) Login(ctx context.Context, in LoginInput) (*auth.Token, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := a.check(in); err != nil {
		return nil, err
	}
	u, err := db.GetUserByUsername(ctx, a.db, in.Username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrBadLogin
		}
		return nil, err
	}
	if err := auth.CheckPassword(u.PasswordHash, in.Password); err != nil {
		return nil, ErrBadLogin
	}
	if !u.IsActive || u.Role != models.Role(in.Role) {
		return nil, ErrBadLogin
	}
	// профиль должен существовать, иначе токен бесполезен
	if _, err := access.Resolve(ctx, a.db, u.ID, u.Role); err != nil {
		if errors.Is(err, apperr.ErrUnauthenticated) {
			return nil, ErrBadLogin
		}
		return nil, err
	}
	return a.tokens.Issue(*u)
}

type Me struct {
	User    *models.User           `json:"user"`
	Teacher *models.TeacherProfile `json:"teacher,omitempty"`
	Parent  *models.ParentProfile  `json:"parent,omitempty"`
}

func (a *App) Me(ctx context.Context, id access.Identity) (*Me, error) {
	u, err := db.GetUserByID(ctx, a.db, id.User())
	if err != nil {
		return nil, err
	}
	me := &Me{User: u}
	switch v := id.(type) {
	case access.TeacherIdentity:
		me.Teacher, err = db.GetTeacher(ctx, a.db, v.TeacherID)
	case access.ParentIdentity:
		me.Parent, err = db.GetParent(ctx, a.db, v.ParentID)
	}
	if err != nil {
		return nil, err
	}
	return me, nil
}

func (a *App) ParentProfile(ctx context.Context, id access.Identity) (*models.ParentProfile, error) {
	p, err := access.RequireParent(id)
	if err != nil {
		return nil, err
	}
	return db.GetParent(ctx, a.db, p.ParentID)
}

type ProfileInput struct {
	Phone   string `json:"phone" validate:"max=20"`
	Address string `json:"address" validate:"max=500"`
}

func (a *App) UpdateParentProfile(ctx context.Context, id access.Identity, in ProfileInput) (*models.ParentProfile, error) {
	p, err := access.RequireParent(id)
	if err != nil {
		return nil, err
	}
	in.Phone, in.Address = strings.TrimSpace(in.Phone), strings.TrimSpace(in.Address)
	if err := a.check(in); err != nil {
		return nil, err
	}
	if err := db.UpdateParentProfile(ctx, a.db, p.ParentID, in.Phone, in.Address); err != nil {
		return nil, err
	}
	return db.GetParent(ctx, a.db, p.ParentID)
}

func (a *App) ListChildren(ctx context.Context, id access.Identity) ([]models.Child, error) {
	p, err := access.RequireParent(id)
	if err != nil {
		return nil, err
	}
	return db.ListChildrenForParent(ctx, a.db, p.ParentID)
}

type ChildDetail struct {
	Child      *models.Child                          `json:"child"`
	Classes    []models.Class                         `json:"classes"`
	Grades     map[models.Quarter][]models.FinalGrade `json:"grades_by_quarter"`
	Attendance []models.Attendance                    `json:"attendance"`
	Summary    stats.Summary                          `json:"attendance_summary"`
}

// ChildDetail is visible to guardians, teachers of the child and admins.
func (a *App) ChildDetail(ctx context.Context, id access.Identity, childID int64) (*ChildDetail, error) {
	if err := a.gate.Child(ctx, id, childID); err != nil {
		return nil, err
	}
	child, err := db.GetChild(ctx, a.db, childID)
	if err != nil {
		return nil, err
	}
	classes, err := db.ListClassesForChild(ctx, a.db, childID)
	if err != nil {
		return nil, err
	}
	finals, err := db.ListFinalGradesForChild(ctx, a.db, childID, 0)
	if err != nil {
		return nil, err
	}
	att, err := db.ListAttendanceForChild(ctx, a.db, childID, attendanceHistory)
	if err != nil {
		return nil, err
	}
	sum, err := a.attendanceSummary(ctx, childID, stats.Trailing30)
	if err != nil {
		return nil, err
	}
	return &ChildDetail{
		Child:      child,
		Classes:    classes,
		Grades:     groupByQuarter(finals),
		Attendance: att,
		Summary:    sum,
	}, nil
}

func groupByQuarter(finals []models.FinalGrade) map[models.Quarter][]models.FinalGrade {
	out := make(map[models.Quarter][]models.FinalGrade, 4)
	for _, f := range finals {
		out[f.Quarter] = append(out[f.Quarter], f)
	}
	return out
}

// --- admin ---

type UserInput struct {
	Username   string `json:"username" validate:"required,max=150"`
	Password   string `json:"password" validate:"required,min=8"`
	FirstName  string `json:"first_name" validate:"max=150"`
	LastName   string `json:"last_name" validate:"max=150"`
	Email      string `json:"email" validate:"omitempty,email"`
	Role       string `json:"role" validate:"required,oneof=teacher parent admin"`
	EmployeeID string `json:"employee_id" validate:"max=20"`
	Department string `json:"department" validate:"max=100"`
	Phone      string `json:"phone" validate:"max=20"`
	Address    string `json:"address" validate:"max=500"`
}

type CreatedUser struct {
	UserID    int64       `json:"user_id"`
	ProfileID int64       `json:"profile_id,omitempty"`
	Role      models.Role `json:"role"`
}

func (a *App) CreateUser(ctx context.Context, id access.Identity, in UserInput) (*CreatedUser, error) {
	if _, err := access.RequireAdmin(id); err != nil {
		return nil, err
	}
	in.Username = strings.TrimSpace(in.Username)
	if err := a.check(in); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := models.User{
		Username:     in.Username,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		Role:         models.Role(in.Role),
	}
	var (
		teacher *models.TeacherProfile
		parent  *models.ParentProfile
	)
	switch u.Role {
	case models.Teacher:
		teacher = &models.TeacherProfile{EmployeeID: in.EmployeeID, Department: in.Department, Phone: in.Phone}
	case models.Parent:
		parent = &models.ParentProfile{Phone: in.Phone, Address: in.Address}
	}
	uid, pid, err := db.CreateUser(ctx, a.db, u, teacher, parent)
	if err != nil {
		return nil, err
	}
	return &CreatedUser{UserID: uid, ProfileID: pid, Role: u.Role}, nil
}

type ChildInput struct {
	FirstName  string     `json:"first_name" validate:"required,max=100"`
	LastName   string     `json:"last_name" validate:"required,max=100"`
	GradeLevel int        `json:"grade_level" validate:"gte=1,lte=12"`
	Section    string     `json:"section" validate:"max=20"`
	BirthDate  *time.Time `json:"birth_date"`
	ParentIDs  []int64    `json:"parent_ids"`
}

// CreateChild registers a child and links the given guardians.
func (a *App) CreateChild(ctx context.Context, id access.Identity, in ChildInput) (*models.Child, error) {
	if _, err := access.RequireAdmin(id); err != nil {
		return nil, err
	}
	in.FirstName, in.LastName = strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if err := a.check(in); err != nil {
		return nil, err
	}
	for _, pid := range in.ParentIDs {
		if _, err := db.GetParent(ctx, a.db, pid); err != nil {
			return nil, err
		}
	}
	c := models.Child{
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		GradeLevel: in.GradeLevel,
		Section:    in.Section,
		BirthDate:  in.BirthDate,
	}
	var err error
	if c.ID, err = db.CreateChild(ctx, a.db, c); err != nil {
		return nil, err
	}
	for _, pid := range in.ParentIDs {
		if err := db.LinkGuardian(ctx, a.db, pid, c.ID); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func (a *App) LinkGuardian(ctx context.Context, id access.Identity, parentID, childID int64) error {
	if _, err := access.RequireAdmin(id); err != nil {
		return err
	}
	if _, err := db.GetParent(ctx, a.db, parentID); err != nil {
		return err
	}
	if _, err := db.GetChild(ctx, a.db, childID); err != nil {
		return err
	}
	return db.LinkGuardian(ctx, a.db, parentID, childID)
}

func (a *App) UnlinkGuardian(ctx context.Context, id access.Identity, parentID, childID int64) error {
	if _, err := access.RequireAdmin(id); err != nil {
		return err
	}
	return db.UnlinkGuardian(ctx, a.db, parentID, childID)
}
