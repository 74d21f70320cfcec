//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/Spok95/school-portal/internal/db"
	"github.com/Spok95/school-portal/internal/models"
)

var userSeq atomic.Int64

func mustSeedUser(t testing.TB, dbx *sql.DB, role models.Role) (userID, profileID int64) {
	t.Helper()
	n := userSeq.Add(1)
	userID, profileID, err := db.CreateUser(context.Background(), dbx, models.User{
		Username:     fmt.Sprintf("%s%d", role, n),
		PasswordHash: "x",
		FirstName:    "Имя",
		LastName:     fmt.Sprintf("Фамилия%d", n),
		Role:         role,
	}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return userID, profileID
}

func mustSeedChild(t testing.TB, dbx *sql.DB, grade int) int64 {
	t.Helper()
	id, err := db.CreateChild(context.Background(), dbx, models.Child{FirstName: "Ученик", LastName: "Тестов", GradeLevel: grade, Section: "A"})
	if err != nil {
		t.Fatal(err)
	}
	return id
}
