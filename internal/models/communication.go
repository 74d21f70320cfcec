package models

import "time"

type Announcement struct {
	ID             int64      `db:"id" json:"id"`
	Title          string     `db:"title" json:"title"`
	Content        string     `db:"content" json:"content"`
	Category       string     `db:"category" json:"category"`
	Priority       string     `db:"priority" json:"priority"`
	TargetAudience string     `db:"target_audience" json:"target_audience"`
	PostedBy       *int64     `db:"posted_by" json:"posted_by,omitempty"`
	AttachmentRef  string     `db:"attachment_ref" json:"-"`
	AttachmentURL  string     `db:"-" json:"attachment_url,omitempty"`
	IsPublished    bool       `db:"is_published" json:"is_published"`
	PublishDate    time.Time  `db:"publish_date" json:"publish_date"`
	ExpiryDate     *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	ViewsCount     int        `db:"views_count" json:"views_count"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

func (a Announcement) Expired(now time.Time) bool {
	return a.ExpiryDate != nil && now.After(*a.ExpiryDate)
}

type Recurrence string

const (
	Daily   Recurrence = "daily"
	Weekly  Recurrence = "weekly"
	Monthly Recurrence = "monthly"
	Yearly  Recurrence = "yearly"
)

func (r Recurrence) Valid() bool {
	switch r {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

type Event struct {
	ID                int64       `db:"id" json:"id"`
	Title             string      `db:"title" json:"title"`
	Description       string      `db:"description" json:"description"`
	EventType         string      `db:"event_type" json:"event_type"`
	StartDate         time.Time   `db:"start_date" json:"start_date"`
	EndDate           time.Time   `db:"end_date" json:"end_date"`
	StartTime         *string     `db:"start_time" json:"start_time,omitempty"`
	EndTime           *string     `db:"end_time" json:"end_time,omitempty"`
	RecurrencePattern *Recurrence `db:"recurrence_pattern" json:"recurrence_pattern,omitempty"`
	RecurrenceEndDate *time.Time  `db:"recurrence_end_date" json:"recurrence_end_date,omitempty"`
	Location          string      `db:"location" json:"location"`
	VenueDetails      string      `db:"venue_details" json:"venue_details"`
	IsPublic          bool        `db:"is_public" json:"is_public"`
	TargetGrades      string      `db:"target_grades" json:"target_grades"`
	CreatedBy         *int64      `db:"created_by" json:"created_by,omitempty"`
	ImageRef          string      `db:"image_ref" json:"-"`
	AttachmentRef     string      `db:"attachment_ref" json:"-"`
	ImageURL          string      `db:"-" json:"image_url,omitempty"`
	AttachmentURL     string      `db:"-" json:"attachment_url,omitempty"`
	IsActive          bool        `db:"is_active" json:"is_active"`
	IsCancelled       bool        `db:"is_cancelled" json:"is_cancelled"`
	CreatedAt         time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at" json:"updated_at"`
}

func (e Event) Upcoming(today time.Time) bool {
	return !e.IsCancelled && !e.StartDate.Before(today)
}

type ChatRoom struct {
	ID            int64      `db:"id" json:"id"`
	ParentID      int64      `db:"parent_id" json:"parent_id"`
	TeacherID     int64      `db:"teacher_id" json:"teacher_id"`
	Subject       string     `db:"subject" json:"subject"`
	IsActive      bool       `db:"is_active" json:"is_active"`
	IsArchived    bool       `db:"is_archived" json:"is_archived"`
	LastMessageAt *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`

	ParentUserID  int64  `db:"-" json:"-"`
	TeacherUserID int64  `db:"-" json:"-"`
	Counterpart   string `db:"-" json:"counterpart"`
	UnreadCount   int    `db:"-" json:"unread_count"`
}

type ChatMessage struct {
	ID            int64      `db:"id" json:"id"`
	ChatRoomID    int64      `db:"chat_room_id" json:"chat_room_id"`
	SenderID      int64      `db:"sender_id" json:"sender_id"`
	MessageType   string     `db:"message_type" json:"message_type"`
	Content       string     `db:"content" json:"content"`
	AttachmentRef string     `db:"attachment_ref" json:"-"`
	AttachmentURL string     `db:"-" json:"attachment_url,omitempty"`
	IsRead        bool       `db:"is_read" json:"is_read"`
	ReadAt        *time.Time `db:"read_at" json:"read_at,omitempty"`
	IsEdited      bool       `db:"is_edited" json:"is_edited"`
	EditedAt      *time.Time `db:"edited_at" json:"edited_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

type NotificationType string

const (
	GradePosted     NotificationType = "grade_posted"
	AttendanceAlert NotificationType = "attendance_alert"
	NewAnnouncement NotificationType = "new_announcement"
	NewEvent        NotificationType = "new_event"
	NewMessage      NotificationType = "new_message"
	PaymentReminder NotificationType = "payment_reminder"
	GeneralNotice   NotificationType = "general"
)

type Notification struct {
	ID          int64            `db:"id" json:"id"`
	RecipientID int64            `db:"recipient_id" json:"recipient_id"`
	Type        NotificationType `db:"notification_type" json:"notification_type"`
	Title       string           `db:"title" json:"title"`
	Message     string           `db:"message" json:"message"`
	LinkURL     string           `db:"link_url" json:"link_url"`
	IsRead      bool             `db:"is_read" json:"is_read"`
	ReadAt      *time.Time       `db:"read_at" json:"read_at,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

// BotMessage is a canned chatbot answer triggered by any of its keywords.
type BotMessage struct {
	ID           int64     `db:"id" json:"id"`
	Category     string    `db:"category" json:"category"`
	Keywords     string    `db:"keywords" json:"keywords"`
	ResponseText string    `db:"response_text" json:"response_text"`
	Priority     int       `db:"priority" json:"priority"`
	UsageCount   int       `db:"usage_count" json:"usage_count"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
