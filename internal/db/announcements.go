package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Spok95/school-portal/internal/apperr"
	"github.com/Spok95/school-portal/internal/ctxutil"
	"github.com/Spok95/school-portal/internal/models"
)

const announcementColumns = `a.id, a.title, a.content, a.category, a.priority, a.target_audience, a.posted_by,
	a.attachment_ref, a.is_published, a.publish_date, a.expiry_date, a.views_count, a.created_at, a.updated_at`

func scanAnnouncement(row interface{ Scan(...any) error }) (*models.Announcement, error) {
	var a models.Announcement
	var postedBy sql.NullInt64
	var expiry sql.NullTime
	err := row.Scan(&a.ID, &a.Title, &a.Content, &a.Category, &a.Priority, &a.TargetAudience, &postedBy,
		&a.AttachmentRef, &a.IsPublished, &a.PublishDate, &expiry, &a.ViewsCount, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if postedBy.Valid {
		a.PostedBy = &postedBy.Int64
	}
	if expiry.Valid {
		a.ExpiryDate = &expiry.Time
	}
	return &a, nil
}

func CreateAnnouncement(ctx context.Context, database *sql.DB, a models.Announcement) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO announcements (title, content, category, priority, target_audience, posted_by,
			attachment_ref, is_published, publish_date, expiry_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, a.Title, a.Content, a.Category, a.Priority, a.TargetAudience, a.PostedBy,
		a.AttachmentRef, a.IsPublished, a.PublishDate, a.ExpiryDate).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert announcement: %w", err)
	}
	return id, nil
}

func UpdateAnnouncement(ctx context.Context, database *sql.DB, a models.Announcement) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	res, err := database.ExecContext(ctx, `
		UPDATE announcements
		SET title = $1, content = $2, category = $3, priority = $4, target_audience = $5,
		    attachment_ref = $6, is_published = $7, expiry_date = $8, updated_at = now()
		WHERE id = $9
	`, a.Title, a.Content, a.Category, a.Priority, a.TargetAudience, a.AttachmentRef, a.IsPublished, a.ExpiryDate, a.ID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func DeleteAnnouncement(ctx context.Context, database *sql.DB, id int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	res, err := database.ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func GetAnnouncement(ctx context.Context, database *sql.DB, id int64) (*models.Announcement, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return scanAnnouncement(database.QueryRowContext(ctx, `SELECT `+announcementColumns+` FROM announcements a WHERE a.id = $1`, id))
}

// ListVisibleAnnouncements возвращает опубликованные и не истёкшие объявления,
// у которых аудитория пересекается с tokens. Пустой tokens — без фильтра по аудитории.
func ListVisibleAnnouncements(ctx context.Context, database *sql.DB, tokens []string, now time.Time, limit int) ([]models.Announcement, error) {
	if len(tokens) == 0 {
		return listAnnouncements(ctx, database, `
			SELECT `+announcementColumns+`
			FROM announcements a
			ORDER BY a.created_at DESC, a.id DESC
			LIMIT $1
		`, limit)
	}
	return listAnnouncements(ctx, database, `
		SELECT `+announcementColumns+`
		FROM announcements a
		WHERE a.is_published
		  AND a.publish_date <= $2
		  AND (a.expiry_date IS NULL OR a.expiry_date > $2)
		  AND string_to_array(replace(lower(a.target_audience), ' ', ''), ',') && $1::text[]
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT $3
	`, pq.Array(tokens), now, limit)
}

// ListAnnouncementsByTeacher — объявления автора, включая черновики.
func ListAnnouncementsByTeacher(ctx context.Context, database *sql.DB, teacherID int64, limit int) ([]models.Announcement, error) {
	return listAnnouncements(ctx, database, `
		SELECT `+announcementColumns+`
		FROM announcements a
		WHERE a.posted_by = $1
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT $2
	`, teacherID, limit)
}

func listAnnouncements(ctx context.Context, database *sql.DB, q string, args ...any) ([]models.Announcement, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// RecordAnnouncementView фиксирует прочтение пользователем (один раз) и увеличивает счётчик просмотров.
func RecordAnnouncementView(ctx context.Context, database *sql.DB, announcementID, userID int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO announcement_reads (announcement_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (announcement_id, user_id) DO NOTHING
	`, announcementID, userID); err != nil {
		return fmt.Errorf("announcement read: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE announcements SET views_count = views_count + 1 WHERE id = $1
	`, announcementID); err != nil {
		return fmt.Errorf("announcement views: %w", err)
	}
	return tx.Commit()
}
