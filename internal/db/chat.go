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

// GetOrCreateRoom возвращает единственную комнату пары (родитель, учитель).
// created=true, если комната была создана этим вызовом.
func GetOrCreateRoom(ctx context.Context, database *sql.DB, parentID, teacherID int64, subject string) (roomID int64, created bool, err error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	err = database.QueryRowContext(ctx, `
		INSERT INTO chat_rooms (parent_id, teacher_id, subject)
		VALUES ($1, $2, $3)
		ON CONFLICT (parent_id, teacher_id)
		DO UPDATE SET is_archived = FALSE, updated_at = now()
		RETURNING id, (xmax = 0) AS created
	`, parentID, teacherID, subject).Scan(&roomID, &created)
	if err != nil {
		return 0, false, fmt.Errorf("get or create room: %w", err)
	}
	return roomID, created, nil
}

// GetRoom возвращает комнату вместе с user id обоих участников.
func GetRoom(ctx context.Context, database *sql.DB, roomID int64) (*models.ChatRoom, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var r models.ChatRoom
	var last sql.NullTime
	err := database.QueryRowContext(ctx, `
		SELECT r.id, r.parent_id, r.teacher_id, r.subject, r.is_active, r.is_archived, r.last_message_at, r.created_at,
		       p.user_id, t.user_id
		FROM chat_rooms r
		JOIN parents p ON p.id = r.parent_id
		JOIN teachers t ON t.id = r.teacher_id
		WHERE r.id = $1
	`, roomID).Scan(&r.ID, &r.ParentID, &r.TeacherID, &r.Subject, &r.IsActive, &r.IsArchived, &last, &r.CreatedAt,
		&r.ParentUserID, &r.TeacherUserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if last.Valid {
		r.LastMessageAt = &last.Time
	}
	return &r, nil
}

// ListRoomsForParent — комнаты родителя с именем учителя и числом непрочитанных.
func ListRoomsForParent(ctx context.Context, database *sql.DB, parentID, userID int64) ([]models.ChatRoom, error) {
	return listRooms(ctx, database, `
		SELECT r.id, r.parent_id, r.teacher_id, r.subject, r.is_active, r.is_archived, r.last_message_at, r.created_at,
		       u.first_name || ' ' || u.last_name,
		       (SELECT COUNT(*) FROM chat_messages m WHERE m.chat_room_id = r.id AND NOT m.is_read AND m.sender_id <> $2)
		FROM chat_rooms r
		JOIN teachers t ON t.id = r.teacher_id
		JOIN users u ON u.id = t.user_id
		WHERE r.parent_id = $1 AND NOT r.is_archived
		ORDER BY r.last_message_at DESC NULLS LAST, r.id DESC
	`, parentID, userID)
}

// ListRoomsForTeacher — комнаты учителя с именем родителя и числом непрочитанных.
func ListRoomsForTeacher(ctx context.Context, database *sql.DB, teacherID, userID int64) ([]models.ChatRoom, error) {
	return listRooms(ctx, database, `
		SELECT r.id, r.parent_id, r.teacher_id, r.subject, r.is_active, r.is_archived, r.last_message_at, r.created_at,
		       u.first_name || ' ' || u.last_name,
		       (SELECT COUNT(*) FROM chat_messages m WHERE m.chat_room_id = r.id AND NOT m.is_read AND m.sender_id <> $2)
		FROM chat_rooms r
		JOIN parents p ON p.id = r.parent_id
		JOIN users u ON u.id = p.user_id
		WHERE r.teacher_id = $1 AND NOT r.is_archived
		ORDER BY r.last_message_at DESC NULLS LAST, r.id DESC
	`, teacherID, userID)
}

func listRooms(ctx context.Context, database *sql.DB, q string, args ...any) ([]models.ChatRoom, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.ChatRoom
	for rows.Next() {
		var r models.ChatRoom
		var last sql.NullTime
		if err := rows.Scan(&r.ID, &r.ParentID, &r.TeacherID, &r.Subject, &r.IsActive, &r.IsArchived, &last, &r.CreatedAt,
			&r.Counterpart, &r.UnreadCount); err != nil {
			return nil, err
		}
		if last.Valid {
			r.LastMessageAt = &last.Time
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertMessage добавляет сообщение и сдвигает last_message_at комнаты в одной транзакции.
func InsertMessage(ctx context.Context, database *sql.DB, m models.ChatMessage) (*models.ChatMessage, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	if m.MessageType == "" {
		m.MessageType = "text"
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.QueryRowContext(ctx, `
		INSERT INTO chat_messages (chat_room_id, sender_id, message_type, content, attachment_ref)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, m.ChatRoomID, m.SenderID, m.MessageType, m.Content, m.AttachmentRef).Scan(&m.ID, &m.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE chat_rooms SET last_message_at = $1, updated_at = now() WHERE id = $2
	`, m.CreatedAt, m.ChatRoomID); err != nil {
		return nil, fmt.Errorf("touch room: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessages — сообщения комнаты в порядке отправки.
func ListMessages(ctx context.Context, database *sql.DB, roomID int64) ([]models.ChatMessage, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, `
		SELECT id, chat_room_id, sender_id, message_type, content, attachment_ref,
		       is_read, read_at, is_edited, edited_at, created_at
		FROM chat_messages
		WHERE chat_room_id = $1
		ORDER BY created_at, id
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		var readAt, editedAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.ChatRoomID, &m.SenderID, &m.MessageType, &m.Content, &m.AttachmentRef,
			&m.IsRead, &readAt, &m.IsEdited, &editedAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		if readAt.Valid {
			m.ReadAt = &readAt.Time
		}
		if editedAt.Valid {
			m.EditedAt = &editedAt.Time
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkRoomRead отмечает прочитанными чужие непрочитанные сообщения.
// Уже прочитанные не трогаются, поэтому повторный вызов возвращает 0 и сохраняет read_at.
func MarkRoomRead(ctx context.Context, database *sql.DB, roomID, readerUserID int64) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	res, err := database.ExecContext(ctx, `
		UPDATE chat_messages
		SET is_read = TRUE, read_at = now()
		WHERE chat_room_id = $1 AND sender_id <> $2 AND is_read = FALSE
	`, roomID, readerUserID)
	if err != nil {
		return 0, fmt.Errorf("mark room read: %w", err)
	}
	return res.RowsAffected()
}

// EditMessage меняет текст собственного сообщения; чужое сообщение — ErrNotFound.
func EditMessage(ctx context.Context, database *sql.DB, messageID, senderID int64, content string) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	res, err := database.ExecContext(ctx, `
		UPDATE chat_messages
		SET content = $1, is_edited = TRUE, edited_at = now()
		WHERE id = $2 AND sender_id = $3
	`, content, messageID, senderID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// GetMessageRoomID — комната, в которой лежит сообщение.
func GetMessageRoomID(ctx context.Context, database *sql.DB, messageID int64) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	var roomID int64
	err := database.QueryRowContext(ctx, `SELECT chat_room_id FROM chat_messages WHERE id = $1`, messageID).Scan(&roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.ErrNotFound
	}
	return roomID, err
}

func ArchiveRoom(ctx context.Context, database *sql.DB, roomID int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	res, err := database.ExecContext(ctx, `
		UPDATE chat_rooms SET is_archived = TRUE, updated_at = now() WHERE id = $1
	`, roomID)
	if err != nil {
		return err
	}
	return expectOne(res)
}
