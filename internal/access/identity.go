// Package access resolves who is calling and what records they may see.
package access

import (
	"github.com/Spok95/school-portal/internal/apperr"
	"github.com/Spok95/school-portal/internal/models"
)

// Identity is one of TeacherIdentity, ParentIdentity or AdminIdentity.
type Identity interface {
	User() int64
	Role() models.Role
	identity()
}

type TeacherIdentity struct {
	UserID    int64
	TeacherID int64
}

type ParentIdentity struct {
	UserID   int64
	ParentID int64
}

type AdminIdentity struct {
	UserID int64
}

func (t TeacherIdentity) User() int64       { return t.UserID }
func (t TeacherIdentity) Role() models.Role { return models.Teacher }
func (TeacherIdentity) identity()           {}

func (p ParentIdentity) User() int64       { return p.UserID }
func (p ParentIdentity) Role() models.Role { return models.Parent }
func (ParentIdentity) identity()           {}

func (a AdminIdentity) User() int64       { return a.UserID }
func (a AdminIdentity) Role() models.Role { return models.Admin }
func (AdminIdentity) identity()           {}

func RequireTeacher(id Identity) (TeacherIdentity, error) {
	t, ok := id.(TeacherIdentity)
	if !ok {
		return TeacherIdentity{}, apperr.ErrForbidden
	}
	return t, nil
}

func RequireParent(id Identity) (ParentIdentity, error) {
	p, ok := id.(ParentIdentity)
	if !ok {
		return ParentIdentity{}, apperr.ErrForbidden
	}
	return p, nil
}

func RequireAdmin(id Identity) (AdminIdentity, error) {
	a, ok := id.(AdminIdentity)
	if !ok {
		return AdminIdentity{}, apperr.ErrForbidden
	}
	return a, nil
}

// RequireStaff admits teachers and admins.
func RequireStaff(id Identity) error {
	switch id.(type) {
	case TeacherIdentity, AdminIdentity:
		return nil
	case ParentIdentity:
		return apperr.ErrForbidden
	}
	return apperr.ErrUnauthenticated
}
