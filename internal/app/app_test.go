package app

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Spok95/school-portal/internal/access"
	"github.com/Spok95/school-portal/internal/apperr"
	"github.com/Spok95/school-portal/internal/auth"
	"github.com/Spok95/school-portal/internal/chatbot"
	"github.com/Spok95/school-portal/internal/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestApp(t *testing.T, opts ...func(*Deps)) (*App, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	d := Deps{DB: conn, Tokens: auth.NewIssuer(testSecret, "test", time.Hour)}
	for _, o := range opts {
		o(&d)
	}
	a := New(d)
	a.now = func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }
	return a, mock
}

var roomColumns = []string{"id", "parent_id", "teacher_id", "subject", "is_active", "is_archived", "last_message_at", "created_at", "parent_user", "teacher_user"}

func roomRow(id, parentID, teacherID, parentUser, teacherUser int64) *sqlmock.Rows {
	return sqlmock.NewRows(roomColumns).
		AddRow(id, parentID, teacherID, "", true, false, nil, time.Now(), parentUser, teacherUser)
}

func TestSendMessage_EmptyContentSkipsStore(t *testing.T) {
	a, mock := newTestApp(t)

	_, err := a.SendMessage(context.Background(), access.ParentIdentity{UserID: 100, ParentID: 1}, 5, "   \n\t ")
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Message cannot be empty", ve.Message)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSendMessage_Participant(t *testing.T) {
	a, mock := newTestApp(t)
	created := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM chat_rooms r`).WithArgs(int64(5)).WillReturnRows(roomRow(5, 1, 2, 100, 200))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO chat_messages`).
		WithArgs(int64(5), int64(100), "text", "Hello", "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(77), created))
	mock.ExpectExec(`UPDATE chat_rooms SET last_message_at`).
		WithArgs(created, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`INSERT INTO notifications`).
		WithArgs(int64(200), "new_message", "New message", "Hello", "/chat/5").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	msg, err := a.SendMessage(context.Background(), access.ParentIdentity{UserID: 100, ParentID: 1}, 5, "  Hello  ")
	require.NoError(t, err)
	assert.Equal(t, int64(77), msg.ID)
	assert.Equal(t, "Hello", msg.Content)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSendMessage_Outsider(t *testing.T) {
	a, mock := newTestApp(t)
	mock.ExpectQuery(`FROM chat_rooms r`).WithArgs(int64(5)).WillReturnRows(roomRow(5, 1, 2, 100, 200))

	_, err := a.SendMessage(context.Background(), access.ParentIdentity{UserID: 300, ParentID: 9}, 5, "hi")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSendMessage_AdminForbidden(t *testing.T) {
	a, mock := newTestApp(t)
	mock.ExpectQuery(`FROM chat_rooms r`).WithArgs(int64(5)).WillReturnRows(roomRow(5, 1, 2, 100, 200))

	_, err := a.SendMessage(context.Background(), access.AdminIdentity{UserID: 1}, 5, "hi")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestSendMessage_UnknownRoom(t *testing.T) {
	a, mock := newTestApp(t)
	mock.ExpectQuery(`FROM chat_rooms r`).WithArgs(int64(5)).WillReturnError(sql.ErrNoRows)

	_, err := a.SendMessage(context.Background(), access.TeacherIdentity{UserID: 200, TeacherID: 2}, 5, "hi")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short", 10))
	assert.Equal(t, "привет…", preview("привет мир", 6))
}

func TestAudienceTokens(t *testing.T) {
	assert.Equal(t, []string{"all", "parents", "grade:3", "grade:5"},
		AudienceTokens(access.ParentIdentity{UserID: 1, ParentID: 1}, []int{3, 5}))
	assert.Equal(t, []string{"all", "teachers"}, AudienceTokens(access.TeacherIdentity{UserID: 2, TeacherID: 2}, nil))
	assert.Nil(t, AudienceTokens(access.AdminIdentity{UserID: 3}, nil))
}

func TestAudienceMatch(t *testing.T) {
	tokens := []string{"all", "parents", "grade:4"}
	assert.True(t, audienceMatch("Teachers, Grade:4", tokens))
	assert.True(t, audienceMatch("parents", tokens))
	assert.False(t, audienceMatch("teachers,grade:5", tokens))
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func recurrence(r models.Recurrence) *models.Recurrence { return &r }

func occurrenceDates(occ []Occurrence) []time.Time {
	out := make([]time.Time, 0, len(occ))
	for _, o := range occ {
		out = append(out, o.Date)
	}
	return out
}

func TestOccurrences_Single(t *testing.T) {
	e := models.Event{ID: 1, Title: "Fair", StartDate: date(2025, 3, 1), EndDate: date(2025, 3, 3)}

	got := Occurrences(e, date(2025, 3, 2), date(2025, 3, 31))
	require.Len(t, got, 1)
	assert.Equal(t, date(2025, 3, 1), got[0].Date)
	assert.Equal(t, date(2025, 3, 3), got[0].EndDate)

	assert.Empty(t, Occurrences(e, date(2025, 3, 4), date(2025, 3, 31)))
}

func TestOccurrences_Weekly(t *testing.T) {
	e := models.Event{
		ID: 2, Title: "Club", StartDate: date(2025, 3, 3), EndDate: date(2025, 3, 3),
		RecurrencePattern: recurrence(models.Weekly),
	}
	got := Occurrences(e, date(2025, 3, 5), date(2025, 3, 31))
	assert.Equal(t, []time.Time{date(2025, 3, 10), date(2025, 3, 17), date(2025, 3, 24), date(2025, 3, 31)}, occurrenceDates(got))
}

func TestOccurrences_MonthlySkipsShortMonths(t *testing.T) {
	e := models.Event{
		ID: 3, Title: "Payday", StartDate: date(2025, 1, 31), EndDate: date(2025, 1, 31),
		RecurrencePattern: recurrence(models.Monthly),
	}
	got := Occurrences(e, date(2025, 1, 1), date(2025, 6, 30))
	assert.Equal(t, []time.Time{date(2025, 1, 31), date(2025, 3, 31), date(2025, 5, 31)}, occurrenceDates(got))
}

func TestOccurrences_StopsAtRecurrenceEnd(t *testing.T) {
	end := date(2025, 3, 4)
	e := models.Event{
		ID: 4, Title: "Camp", StartDate: date(2025, 3, 1), EndDate: date(2025, 3, 1),
		RecurrencePattern: recurrence(models.Daily), RecurrenceEndDate: &end,
	}
	got := Occurrences(e, date(2025, 2, 1), date(2025, 12, 31))
	assert.Len(t, got, 4)
	assert.Equal(t, end, got[len(got)-1].Date)
}

func TestCalendar_RangeChecks(t *testing.T) {
	a, mock := newTestApp(t)
	parent := access.ParentIdentity{UserID: 1, ParentID: 1}

	_, err := a.Calendar(context.Background(), parent, date(2025, 3, 10), date(2025, 3, 1))
	assert.True(t, apperr.IsValidation(err))

	_, err = a.Calendar(context.Background(), parent, date(2025, 1, 1), date(2026, 6, 1))
	assert.True(t, apperr.IsValidation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

type memBotStore struct {
	msgs []models.BotMessage
	used []int64
}

func (s *memBotStore) ActiveMessages(context.Context) ([]models.BotMessage, error) { return s.msgs, nil }

func (s *memBotStore) IncrementUsage(_ context.Context, id int64) error {
	s.used = append(s.used, id)
	return nil
}

func TestAsk(t *testing.T) {
	store := &memBotStore{msgs: []models.BotMessage{
		{ID: 1, Keywords: "hello", ResponseText: "Hi there", Priority: 10, IsActive: true},
		{ID: 2, Keywords: "grade,grades", ResponseText: "Grades are in the portal", Priority: 5, IsActive: true},
	}}
	a, _ := newTestApp(t, func(d *Deps) { d.Chatbot = chatbot.New(store, nil, nil) })
	parent := access.ParentIdentity{UserID: 1, ParentID: 1}

	r, err := a.Ask(context.Background(), parent, "What is my child's GRADE?")
	require.NoError(t, err)
	assert.True(t, r.Matched)
	assert.Equal(t, "Grades are in the portal", r.Text)
	assert.Equal(t, []int64{2}, store.used)

	r, err = a.Ask(context.Background(), parent, "weather tomorrow")
	require.NoError(t, err)
	assert.False(t, r.Matched)
	assert.Equal(t, chatbot.Fallback, r.Text)

	_, err = a.Ask(context.Background(), parent, "   ")
	assert.True(t, apperr.IsValidation(err))
}

func TestCreateGradeItem_ScoreAboveMax(t *testing.T) {
	a, mock := newTestApp(t)

	_, err := a.CreateGradeItem(context.Background(), access.TeacherIdentity{UserID: 2, TeacherID: 2}, GradeItemInput{
		ClassID: 1, ChildID: 1, Quarter: 1, Category: "written_work", Title: "Quiz",
		Score: decimal.NewFromInt(12), MaxScore: decimal.NewFromInt(10),
	})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "score", ve.Field)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGradeItem_BadQuarter(t *testing.T) {
	a, _ := newTestApp(t)

	_, err := a.CreateGradeItem(context.Background(), access.TeacherIdentity{UserID: 2, TeacherID: 2}, GradeItemInput{
		ClassID: 1, ChildID: 1, Quarter: 5, Category: "written_work", Title: "Quiz",
		Score: decimal.NewFromInt(5), MaxScore: decimal.NewFromInt(10),
	})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "quarter", ve.Field)
}

func TestDeleteGradeItem_LastItemDropsFinalGrade(t *testing.T) {
	a, mock := newTestApp(t)
	now := time.Now()

	mock.ExpectQuery(`FROM grade_items g WHERE g.id`).WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "class_id", "child_id", "quarter", "category", "title", "score", "max_score", "created_at", "updated_at"}).
			AddRow(int64(9), int64(4), int64(6), 2, "written_work", "Quiz", "8", "10", now, now))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM classes`).WithArgs(int64(4), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(`DELETE FROM grade_items`).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM grade_items g`).WithArgs(int64(6), int64(4), 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "class_id", "child_id", "quarter", "category", "title", "score", "max_score", "created_at", "updated_at", "student", "class"}))
	mock.ExpectQuery(`FROM grade_weights`).WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"class_id", "category", "weight"}))
	mock.ExpectExec(`DELETE FROM final_grades`).WithArgs(int64(6), int64(4), 2).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, a.DeleteGradeItem(context.Background(), access.TeacherIdentity{UserID: 20, TeacherID: 2}, 9))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteGradeItem_ParentForbidden(t *testing.T) {
	a, mock := newTestApp(t)
	now := time.Now()
	mock.ExpectQuery(`FROM grade_items g WHERE g.id`).WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "class_id", "child_id", "quarter", "category", "title", "score", "max_score", "created_at", "updated_at"}).
			AddRow(int64(9), int64(4), int64(6), 2, "written_work", "Quiz", "8", "10", now, now))

	err := a.DeleteGradeItem(context.Background(), access.ParentIdentity{UserID: 1, ParentID: 1}, 9)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

var userColumns = []string{"id", "username", "password_hash", "first_name", "last_name", "email", "role", "telegram_chat_id", "is_active", "created_at"}

func TestLogin(t *testing.T) {
	hash, err := auth.HashPassword("secret123")
	require.NoError(t, err)
	userRow := func(role string, active bool) *sqlmock.Rows {
		return sqlmock.NewRows(userColumns).AddRow(int64(1), "root", hash, "Ada", "Admin", "", role, nil, active, time.Now())
	}

	t.Run("wrong role", func(t *testing.T) {
		a, mock := newTestApp(t)
		mock.ExpectQuery(`FROM users WHERE username`).WithArgs("root").WillReturnRows(userRow("admin", true))

		_, err := a.Login(context.Background(), LoginInput{Username: "root", Password: "secret123", Role: "teacher"})
		assert.ErrorIs(t, err, ErrBadLogin)
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	})

	t.Run("wrong password", func(t *testing.T) {
		a, mock := newTestApp(t)
		mock.ExpectQuery(`FROM users WHERE username`).WithArgs("root").WillReturnRows(userRow("admin", true))

		_, err := a.Login(context.Background(), LoginInput{Username: "root", Password: "nope", Role: "admin"})
		assert.ErrorIs(t, err, auth.ErrBadCredentials)
	})

	t.Run("inactive", func(t *testing.T) {
		a, mock := newTestApp(t)
		mock.ExpectQuery(`FROM users WHERE username`).WithArgs("root").WillReturnRows(userRow("admin", false))

		_, err := a.Login(context.Background(), LoginInput{Username: "root", Password: "secret123", Role: "admin"})
		assert.ErrorIs(t, err, ErrBadLogin)
	})

	t.Run("unknown user", func(t *testing.T) {
		a, mock := newTestApp(t)
		mock.ExpectQuery(`FROM users WHERE username`).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

		_, err := a.Login(context.Background(), LoginInput{Username: "ghost", Password: "secret123", Role: "admin"})
		assert.ErrorIs(t, err, ErrBadLogin)
	})

	t.Run("admin ok", func(t *testing.T) {
		a, mock := newTestApp(t)
		mock.ExpectQuery(`FROM users WHERE username`).WithArgs("root").WillReturnRows(userRow("admin", true))

		tok, err := a.Login(context.Background(), LoginInput{Username: " root ", Password: "secret123", Role: "admin"})
		require.NoError(t, err)
		claims, err := a.tokens.Validate(tok.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, models.Admin, claims.Role)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAdminOnlyOperations(t *testing.T) {
	a, mock := newTestApp(t)
	teacher := access.TeacherIdentity{UserID: 2, TeacherID: 2}

	_, err := a.CreateClass(context.Background(), teacher, ClassInput{TeacherID: 2, Name: "Math 5A"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = a.Enroll(context.Background(), teacher, 1, 1)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = a.TriggerBackup(context.Background(), teacher)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTriggerBackup_Disabled(t *testing.T) {
	a, _ := newTestApp(t)
	_, err := a.TriggerBackup(context.Background(), access.AdminIdentity{UserID: 1})
	assert.ErrorIs(t, err, ErrBackupDisabled)
}

type fakeBackup struct{ restored bool }

func (f *fakeBackup) Trigger(context.Context) (string, error) { return "dump-1.sql.gz", nil }

func (f *fakeBackup) RestoreLatest(context.Context) (string, error) {
	f.restored = true
	return "dump-1.sql.gz", nil
}

func TestRestoreBackup(t *testing.T) {
	b := &fakeBackup{}
	a, _ := newTestApp(t, func(d *Deps) { d.Backup = b })

	name, err := a.RestoreBackup(context.Background(), access.AdminIdentity{UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, "dump-1.sql.gz", name)
	assert.True(t, b.restored)
}

type recordingStore struct {
	deleted []string
	failOn  string
}

func (s *recordingStore) URL(context.Context, string) (string, error) { return "", nil }

func (s *recordingStore) Delete(_ context.Context, ref string) error {
	s.deleted = append(s.deleted, ref)
	if ref == s.failOn {
		return errors.New("s3 unavailable")
	}
	return nil
}

var announcementCols = []string{"id", "title", "content", "category", "priority", "target_audience", "posted_by",
	"attachment_ref", "is_published", "publish_date", "expiry_date", "views_count", "created_at", "updated_at"}

func announcementRow(ref string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(announcementCols).
		AddRow(int64(3), "Trip", "Museum trip", "general", "normal", "all", int64(2), ref, true, now, nil, 0, now, now)
}

func TestDeleteAnnouncement_RemovesAttachment(t *testing.T) {
	store := &recordingStore{}
	a, mock := newTestApp(t, func(d *Deps) { d.Storage = store })

	mock.ExpectQuery(`FROM announcements a WHERE a.id`).WithArgs(int64(3)).WillReturnRows(announcementRow("announcements/3/plan.pdf"))
	mock.ExpectExec(`DELETE FROM announcements`).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, a.DeleteAnnouncement(context.Background(), access.AdminIdentity{UserID: 1}, 3))
	assert.Equal(t, []string{"announcements/3/plan.pdf"}, store.deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAnnouncement_StoreFailureIsNotReturned(t *testing.T) {
	store := &recordingStore{failOn: "announcements/3/plan.pdf"}
	a, mock := newTestApp(t, func(d *Deps) { d.Storage = store })

	mock.ExpectQuery(`FROM announcements a WHERE a.id`).WithArgs(int64(3)).WillReturnRows(announcementRow("announcements/3/plan.pdf"))
	mock.ExpectExec(`DELETE FROM announcements`).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, a.DeleteAnnouncement(context.Background(), access.TeacherIdentity{UserID: 20, TeacherID: 2}, 3))
	assert.Len(t, store.deleted, 1)
}

func TestUpdateAnnouncement_ReplacedAttachmentIsRemoved(t *testing.T) {
	store := &recordingStore{}
	a, mock := newTestApp(t, func(d *Deps) { d.Storage = store })
	teacher := access.TeacherIdentity{UserID: 20, TeacherID: 2}
	in := AnnouncementInput{Title: "Trip", Content: "Museum trip", AttachmentRef: "announcements/3/plan-v2.pdf"}

	mock.ExpectQuery(`FROM announcements a WHERE a.id`).WithArgs(int64(3)).WillReturnRows(announcementRow("announcements/3/plan.pdf"))
	mock.ExpectExec(`UPDATE announcements`).WillReturnResult(sqlmock.NewResult(0, 1))
	_, err := a.UpdateAnnouncement(context.Background(), teacher, 3, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"announcements/3/plan.pdf"}, store.deleted)

	// та же ссылка — ничего не удаляется
	store.deleted = nil
	mock.ExpectQuery(`FROM announcements a WHERE a.id`).WithArgs(int64(3)).WillReturnRows(announcementRow("announcements/3/plan-v2.pdf"))
	mock.ExpectExec(`UPDATE announcements`).WillReturnResult(sqlmock.NewResult(0, 1))
	_, err = a.UpdateAnnouncement(context.Background(), teacher, 3, in)
	require.NoError(t, err)
	assert.Empty(t, store.deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDropObjects_SkipsEmptyAndAbsolute(t *testing.T) {
	store := &recordingStore{}
	a, _ := newTestApp(t, func(d *Deps) { d.Storage = store })

	a.dropObjects(context.Background(), "", "https://cdn.example.org/x.png", "events/1/a.png")
	assert.Equal(t, []string{"events/1/a.png"}, store.deleted)
}

func TestRecordAttendance_DuplicateChild(t *testing.T) {
	a, mock := newTestApp(t)

	_, err := a.RecordAttendance(context.Background(), access.TeacherIdentity{UserID: 20, TeacherID: 2}, AttendanceInput{
		ClassID: 4,
		Entries: []AttendanceMark{
			{ChildID: 6, Status: "absent"},
			{ChildID: 7, Status: "present"},
			{ChildID: 6, Status: "absent"},
		},
	})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "child_id", ve.Field)
	require.NoError(t, mock.ExpectationsWereMet())
}

var (
	enrollmentCols = []string{"id", "class_id", "child_id", "enrolled_at", "c_id", "first_name", "last_name", "grade_level", "section", "birth_date", "created_at"}
	itemCols       = []string{"id", "class_id", "child_id", "quarter", "category", "title", "score", "max_score", "created_at", "updated_at", "student", "class"}
)

// expectRecompute primes one student's recompute in class 4 for quarter 3 up to the upsert.
func expectRecompute(mock sqlmock.Sqlmock, prev any) {
	now := time.Now()
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM classes`).WithArgs(int64(4), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`FROM enrollments e`).WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(enrollmentCols).
			AddRow(int64(1), int64(4), int64(6), now, int64(6), "Ann", "Lee", 5, "A", nil, now))
	mock.ExpectQuery(`FROM grade_items g`).WithArgs(int64(6), int64(4), 3).
		WillReturnRows(sqlmock.NewRows(itemCols).
			AddRow(int64(9), int64(4), int64(6), 3, "written_work", "Quiz", "8", "10", now, now, "", ""))
	mock.ExpectQuery(`FROM grade_weights`).WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"class_id", "category", "weight"}))
	mock.ExpectQuery(`INSERT INTO final_grades`).WithArgs(int64(6), int64(4), 3, sqlmock.AnyArg(), "Passed").
		WillReturnRows(sqlmock.NewRows([]string{"id", "updated_at", "prev"}).AddRow(int64(11), now, prev))
}

func TestRecomputeFinalGrades_DefaultsToCurrentQuarter(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	a, mock := newTestApp(t, func(d *Deps) { d.Log = zap.New(core) })
	teacher := access.TeacherIdentity{UserID: 20, TeacherID: 2}

	// 10 марта — третья четверть; прежний итог тот же, уведомлений нет
	expectRecompute(mock, "80.00")
	list, err := a.RecomputeFinalGrades(context.Background(), teacher, 4, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.Q3, list[0].Quarter)
	assert.True(t, list[0].Grade.Equal(decimal.NewFromInt(80)))
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Zero(t, logs.Len())
}

func TestRecomputeFinalGrades_ChangedGradeNotifiesGuardians(t *testing.T) {
	a, mock := newTestApp(t)
	teacher := access.TeacherIdentity{UserID: 20, TeacherID: 2}

	expectRecompute(mock, "70.00")
	mock.ExpectQuery(`FROM parents_children pc`).WithArgs(int64(6)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(100)))
	mock.ExpectQuery(`INSERT INTO notifications`).
		WithArgs(int64(100), "grade_posted", "Grade posted", sqlmock.AnyArg(), "/children/6").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	_, err := a.RecomputeFinalGrades(context.Background(), teacher, 4, 3)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
