package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/school-portal/internal/apperr"
	"github.com/Spok95/school-portal/internal/models"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, mock
}

func TestGetOrCreateRoom(t *testing.T) {
	conn, mock := newMock(t)

	mock.ExpectQuery(`INSERT INTO chat_rooms .* ON CONFLICT \(parent_id, teacher_id\)`).
		WithArgs(int64(3), int64(7), "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created"}).AddRow(int64(11), true))
	mock.ExpectQuery(`INSERT INTO chat_rooms`).
		WithArgs(int64(3), int64(7), "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created"}).AddRow(int64(11), false))

	id1, created1, err := GetOrCreateRoom(context.Background(), conn, 3, 7, "")
	require.NoError(t, err)
	id2, created2, err := GetOrCreateRoom(context.Background(), conn, 3, 7, "")
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.True(t, created1)
	assert.False(t, created2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRoomRead_OnlyUnreadFromOthers(t *testing.T) {
	conn, mock := newMock(t)

	mock.ExpectExec(`UPDATE chat_messages SET is_read = TRUE, read_at = now\(\) WHERE chat_room_id = \$1 AND sender_id <> \$2 AND is_read = FALSE`).
		WithArgs(int64(5), int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`UPDATE chat_messages`).
		WithArgs(int64(5), int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := MarkRoomRead(context.Background(), conn, 5, 42)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	n, err = MarkRoomRead(context.Background(), conn, 5, 42)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertMessage_TouchesRoom(t *testing.T) {
	conn, mock := newMock(t)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO chat_messages`).
		WithArgs(int64(5), int64(42), "text", "hello", "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(100), now))
	mock.ExpectExec(`UPDATE chat_rooms SET last_message_at = \$1`).
		WithArgs(now, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	m, err := InsertMessage(context.Background(), conn, models.ChatMessage{ChatRoomID: 5, SenderID: 42, Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, int64(100), m.ID)
	assert.Equal(t, now, m.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertMessage_RollbackOnError(t *testing.T) {
	conn, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO chat_messages`).WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := InsertMessage(context.Background(), conn, models.ChatMessage{ChatRoomID: 5, SenderID: 42, Content: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRoom_NotFound(t *testing.T) {
	conn, mock := newMock(t)
	mock.ExpectQuery(`FROM chat_rooms r`).WithArgs(int64(9)).WillReturnError(sql.ErrNoRows)

	_, err := GetRoom(context.Background(), conn, 9)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMarkNotificationRead(t *testing.T) {
	t.Run("other recipient is not found", func(t *testing.T) {
		conn, mock := newMock(t)
		mock.ExpectQuery(`SELECT EXISTS`).WithArgs(int64(1), int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		err := MarkNotificationRead(context.Background(), conn, 1, 2)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already read is a no-op", func(t *testing.T) {
		conn, mock := newMock(t)
		mock.ExpectQuery(`SELECT EXISTS`).WithArgs(int64(1), int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectExec(`UPDATE notifications SET is_read = TRUE, read_at = now\(\) WHERE id = \$1 AND recipient_id = \$2 AND is_read = FALSE`).
			WithArgs(int64(1), int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, MarkNotificationRead(context.Background(), conn, 1, 2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListActiveBotMessages_Order(t *testing.T) {
	conn, mock := newMock(t)
	now := time.Now()
	cols := []string{"id", "category", "keywords", "response_text", "priority", "usage_count", "is_active", "created_at", "updated_at"}

	mock.ExpectQuery(`FROM bot_messages WHERE is_active ORDER BY priority DESC, id ASC`).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(2), "grades", "grade", "G", 5, 0, true, now, now).
			AddRow(int64(1), "greeting", "hello", "H", 1, 3, true, now, now))

	got, err := ListActiveBotMessages(context.Background(), conn)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, 3, got[1].UsageCount)
}

func TestRecordAttendance_Upsert(t *testing.T) {
	conn, mock := newMock(t)
	day := time.Date(2026, 9, 1, 15, 30, 0, 0, time.UTC)
	want := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO attendance .* ON CONFLICT \(child_id, date\)`)
	prep.ExpectExec().WithArgs(int64(1), want, "present", "", int64(9)).WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs(int64(2), want, "absent", "sick", int64(9)).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := RecordAttendance(context.Background(), conn, 9, day, []AttendanceEntry{
		{ChildID: 1, Status: models.Present},
		{ChildID: 2, Status: models.Absent, Remarks: "sick"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordAttendance_Empty(t *testing.T) {
	conn, mock := newMock(t)
	require.NoError(t, RecordAttendance(context.Background(), conn, 9, time.Now(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountAttendance(t *testing.T) {
	conn, mock := newMock(t)
	mock.ExpectQuery(`COUNT\(\*\) FILTER \(WHERE status = 'present'\)`).
		WillReturnRows(sqlmock.NewRows([]string{"p", "a", "l"}).AddRow(8, 1, 1))

	c, err := CountAttendance(context.Background(), conn, 1, time.Now().AddDate(0, 0, -30), time.Now())
	require.NoError(t, err)
	assert.Equal(t, AttendanceCounts{Present: 8, Absent: 1, Late: 1}, c)
	assert.Equal(t, 10, c.Total())
}

func TestListVisibleAnnouncements(t *testing.T) {
	cols := []string{"id", "title", "content", "category", "priority", "target_audience", "posted_by",
		"attachment_ref", "is_published", "publish_date", "expiry_date", "views_count", "created_at", "updated_at"}
	now := time.Now()

	t.Run("audience filter", func(t *testing.T) {
		conn, mock := newMock(t)
		mock.ExpectQuery(`string_to_array\(replace\(lower\(a.target_audience\), ' ', ''\), ','\) && \$1::text\[\]`).
			WithArgs(sqlmock.AnyArg(), now, 20).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow(int64(1), "T", "C", "general", "normal", "parents, grade:5", int64(4), "", true, now, nil, 0, now, now))

		got, err := ListVisibleAnnouncements(context.Background(), conn, []string{"all", "parents", "grade:5"}, now, 20)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Nil(t, got[0].ExpiryDate)
		require.NotNil(t, got[0].PostedBy)
		assert.Equal(t, int64(4), *got[0].PostedBy)
	})

	t.Run("no tokens lists everything", func(t *testing.T) {
		conn, mock := newMock(t)
		mock.ExpectQuery(`FROM announcements a ORDER BY a.created_at DESC`).
			WithArgs(20).
			WillReturnRows(sqlmock.NewRows(cols))

		got, err := ListVisibleAnnouncements(context.Background(), conn, nil, now, 20)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpsertFinalGrade(t *testing.T) {
	conn, mock := newMock(t)
	now := time.Now()
	grade := decimal.RequireFromString("87.50")
	cols := []string{"id", "updated_at", "prev"}

	mock.ExpectQuery(`INSERT INTO final_grades .* ON CONFLICT \(child_id, class_id, quarter\)`).
		WithArgs(int64(1), int64(2), 3, sqlmock.AnyArg(), "Passed").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(8), now, nil))
	mock.ExpectQuery(`INSERT INTO final_grades`).
		WithArgs(int64(1), int64(2), 3, sqlmock.AnyArg(), "Passed").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(8), now, "87.50"))
	mock.ExpectQuery(`INSERT INTO final_grades`).
		WithArgs(int64(1), int64(2), 3, sqlmock.AnyArg(), "Passed").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(8), now, "80.00"))

	fg, changed, err := UpsertFinalGrade(context.Background(), conn, 1, 2, models.Q3, grade, "Passed")
	require.NoError(t, err)
	assert.Equal(t, int64(8), fg.ID)
	assert.True(t, fg.Grade.Equal(grade))
	assert.True(t, changed, "first grade counts as a change")

	_, changed, err = UpsertFinalGrade(context.Background(), conn, 1, 2, models.Q3, grade, "Passed")
	require.NoError(t, err)
	assert.False(t, changed)

	_, changed, err = UpsertFinalGrade(context.Background(), conn, 1, 2, models.Q3, grade, "Passed")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListGradeItemsForScope_ScansDecimals(t *testing.T) {
	conn, mock := newMock(t)
	now := time.Now()
	cols := []string{"id", "class_id", "child_id", "quarter", "category", "title", "score", "max_score", "created_at", "updated_at", "child", "class"}

	mock.ExpectQuery(`FROM grade_items g WHERE g.child_id = \$1 AND g.class_id = \$2 AND g.quarter = \$3`).
		WithArgs(int64(1), int64(2), 1).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(10), int64(2), int64(1), 1, "written_work", "Quiz", "45", "50", now, now, "", ""))

	items, err := ListGradeItemsForScope(context.Background(), conn, 1, 2, models.Q1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "45", items[0].Score.String())
	assert.Equal(t, models.WrittenWork, items[0].Category)
}

func TestDeleteGradeItem_NotFound(t *testing.T) {
	conn, mock := newMock(t)
	mock.ExpectExec(`DELETE FROM grade_items`).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, DeleteGradeItem(context.Background(), conn, 5), apperr.ErrNotFound)
}

func TestEditMessage_ForeignMessage(t *testing.T) {
	conn, mock := newMock(t)
	mock.ExpectExec(`UPDATE chat_messages SET content = \$1, is_edited = TRUE`).
		WithArgs("new", int64(3), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, EditMessage(context.Background(), conn, 3, 4, "new"), apperr.ErrNotFound)
}

func TestSeedBotMessages_SkipsWhenPresent(t *testing.T) {
	conn, mock := newMock(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bot_messages`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := SeedBotMessages(context.Background(), conn)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedBotMessages_Inserts(t *testing.T) {
	conn, mock := newMock(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bot_messages`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	for range DefaultBotMessages {
		mock.ExpectExec(`INSERT INTO bot_messages`).WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	n, err := SeedBotMessages(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultBotMessages), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
