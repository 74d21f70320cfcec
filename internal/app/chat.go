package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/Spok95/school-portal/internal/access"
	"github.com/Spok95/school-portal/internal/apperr"
	"github.com/Spok95/school-portal/internal/db"
	"github.com/Spok95/school-portal/internal/models"
)

const maxMessageLen = 5000

// StartChat returns the parent's room with a teacher, creating it on first use.
func (a *App) StartChat(ctx context.Context, id access.Identity, teacherID int64) (int64, error) {
	p, err := access.RequireParent(id)
	if err != nil {
		return 0, err
	}
	if _, err := db.GetTeacher(ctx, a.db, teacherID); err != nil {
		return 0, err
	}
	roomID, _, err := db.GetOrCreateRoom(ctx, a.db, p.ParentID, teacherID, "")
	return roomID, err
}

func (a *App) ListRooms(ctx context.Context, id access.Identity) ([]models.ChatRoom, error) {
	switch v := id.(type) {
	case access.ParentIdentity:
		return db.ListRoomsForParent(ctx, a.db, v.ParentID, v.UserID)
	case access.TeacherIdentity:
		return db.ListRoomsForTeacher(ctx, a.db, v.TeacherID, v.UserID)
	case access.AdminIdentity:
		return nil, apperr.ErrForbidden
	}
	return nil, apperr.ErrUnauthenticated
}

type RoomView struct {
	Room     *models.ChatRoom     `json:"room"`
	Messages []models.ChatMessage `json:"messages"`
}

// ViewRoom returns the conversation and marks the counterpart's messages read.
func (a *App) ViewRoom(ctx context.Context, id access.Identity, roomID int64) (*RoomView, error) {
	room, err := a.gate.Room(ctx, id, roomID)
	if err != nil {
		return nil, err
	}
	if _, err := db.MarkRoomRead(ctx, a.db, room.ID, id.User()); err != nil {
		return nil, err
	}
	msgs, err := db.ListMessages(ctx, a.db, room.ID)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		msgs[i].AttachmentURL = a.attachmentURL(ctx, msgs[i].AttachmentRef)
	}
	return &RoomView{Room: room, Messages: msgs}, nil
}

// SendMessage stores a text message from a room participant and notifies the other side.
func (a *App) SendMessage(ctx context.Context, id access.Identity, roomID int64, content string) (*models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Invalid("content", "Message cannot be empty")
	}
	if len(content) > maxMessageLen {
		return nil, apperr.Invalid("content", fmt.Sprintf("Message is longer than %d characters", maxMessageLen))
	}

	room, err := a.gate.Room(ctx, id, roomID)
	if err != nil {
		return nil, err
	}
	msg, err := db.InsertMessage(ctx, a.db, models.ChatMessage{
		ChatRoomID:  room.ID,
		SenderID:    id.User(),
		MessageType: "text",
		Content:     content,
	})
	if err != nil {
		return nil, err
	}

	recipient := room.TeacherUserID
	if id.User() == room.TeacherUserID {
		recipient = room.ParentUserID
	}
	a.notify(ctx, []int64{recipient}, models.Notification{
		Type:    models.NewMessage,
		Title:   "New message",
		Message: preview(content, 120),
		LinkURL: fmt.Sprintf("/chat/%d", room.ID),
	})
	return msg, nil
}

// MarkRoomRead returns how many messages changed state; repeated calls return 0.
func (a *App) MarkRoomRead(ctx context.Context, id access.Identity, roomID int64) (int64, error) {
	room, err := a.gate.Room(ctx, id, roomID)
	if err != nil {
		return 0, err
	}
	return db.MarkRoomRead(ctx, a.db, room.ID, id.User())
}

func (a *App) EditMessage(ctx context.Context, id access.Identity, messageID int64, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return apperr.Invalid("content", "Message cannot be empty")
	}
	roomID, err := db.GetMessageRoomID(ctx, a.db, messageID)
	if err != nil {
		return err
	}
	if _, err := a.gate.Room(ctx, id, roomID); err != nil {
		return err
	}
	return db.EditMessage(ctx, a.db, messageID, id.User(), content)
}

func (a *App) ArchiveRoom(ctx context.Context, id access.Identity, roomID int64) error {
	room, err := a.gate.Room(ctx, id, roomID)
	if err != nil {
		return err
	}
	return db.ArchiveRoom(ctx, a.db, room.ID)
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
