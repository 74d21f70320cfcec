package access

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Spok95/school-portal/internal/apperr"
	"github.com/Spok95/school-portal/internal/db"
	"github.com/Spok95/school-portal/internal/models"
)

// Scope answers membership questions for the gate.
type Scope interface {
	ParentHasChild(ctx context.Context, parentID, childID int64) (bool, error)
	TeacherTeachesChild(ctx context.Context, teacherID, childID int64) (bool, error)
	TeacherOwnsClass(ctx context.Context, teacherID, classID int64) (bool, error)
	ParentHasChildInClass(ctx context.Context, parentID, classID int64) (bool, error)
	Room(ctx context.Context, roomID int64) (*models.ChatRoom, error)
}

type Gate struct {
	scope Scope
}

func NewGate(s Scope) *Gate { return &Gate{scope: s} }

// Child allows guardians, teachers of the child and admins. Anything else is ErrNotFound.
func (g *Gate) Child(ctx context.Context, id Identity, childID int64) error {
	var (
		ok  bool
		err error
	)
	switch v := id.(type) {
	case ParentIdentity:
		ok, err = g.scope.ParentHasChild(ctx, v.ParentID, childID)
	case TeacherIdentity:
		ok, err = g.scope.TeacherTeachesChild(ctx, v.TeacherID, childID)
	case AdminIdentity:
		return nil
	default:
		return apperr.ErrUnauthenticated
	}
	return verdict(ok, err)
}

// Class allows the owning teacher, admins and parents with an enrolled child.
// Write access is teacher/admin only.
func (g *Gate) Class(ctx context.Context, id Identity, classID int64, write bool) error {
	var (
		ok  bool
		err error
	)
	switch v := id.(type) {
	case TeacherIdentity:
		ok, err = g.scope.TeacherOwnsClass(ctx, v.TeacherID, classID)
	case ParentIdentity:
		if write {
			return apperr.ErrForbidden
		}
		ok, err = g.scope.ParentHasChildInClass(ctx, v.ParentID, classID)
	case AdminIdentity:
		return nil
	default:
		return apperr.ErrUnauthenticated
	}
	return verdict(ok, err)
}

// Room returns the room when id is one of its two participants.
func (g *Gate) Room(ctx context.Context, id Identity, roomID int64) (*models.ChatRoom, error) {
	room, err := g.scope.Room(ctx, roomID)
	if err != nil {
		return nil, err
	}
	switch v := id.(type) {
	case ParentIdentity:
		if room.ParentID == v.ParentID {
			return room, nil
		}
	case TeacherIdentity:
		if room.TeacherID == v.TeacherID {
			return room, nil
		}
	case AdminIdentity:
		return nil, apperr.ErrForbidden
	default:
		return nil, apperr.ErrUnauthenticated
	}
	return nil, apperr.ErrNotFound
}

func verdict(ok bool, err error) error {
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrNotFound
	}
	return nil
}

// SQLScope is the Scope backed by the relational store.
type SQLScope struct{ DB *sql.DB }

func (s SQLScope) ParentHasChild(ctx context.Context, parentID, childID int64) (bool, error) {
	return db.ParentHasChild(ctx, s.DB, parentID, childID)
}

func (s SQLScope) TeacherTeachesChild(ctx context.Context, teacherID, childID int64) (bool, error) {
	return db.TeacherTeachesChild(ctx, s.DB, teacherID, childID)
}

func (s SQLScope) TeacherOwnsClass(ctx context.Context, teacherID, classID int64) (bool, error) {
	return db.TeacherOwnsClass(ctx, s.DB, teacherID, classID)
}

func (s SQLScope) ParentHasChildInClass(ctx context.Context, parentID, classID int64) (bool, error) {
	return db.ParentHasChildInClass(ctx, s.DB, parentID, classID)
}

func (s SQLScope) Room(ctx context.Context, roomID int64) (*models.ChatRoom, error) {
	return db.GetRoom(ctx, s.DB, roomID)
}

// Resolve builds the Identity of a user from its role and profile row.
func Resolve(ctx context.Context, database *sql.DB, userID int64, role models.Role) (Identity, error) {
	switch role {
	case models.Teacher:
		tid, err := db.TeacherIDByUserID(ctx, database, userID)
		if err != nil {
			return nil, profileErr(err)
		}
		return TeacherIdentity{UserID: userID, TeacherID: tid}, nil
	case models.Parent:
		pid, err := db.ParentIDByUserID(ctx, database, userID)
		if err != nil {
			return nil, profileErr(err)
		}
		return ParentIdentity{UserID: userID, ParentID: pid}, nil
	case models.Admin:
		return AdminIdentity{UserID: userID}, nil
	}
	return nil, apperr.ErrUnauthenticated
}

// profile row missing for a token's role means the token no longer describes a valid user
func profileErr(err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.ErrUnauthenticated
	}
	return err
}
