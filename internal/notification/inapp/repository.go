package inapp

import (
	"context"
	"fmt"

	"admissions_crm/internal/leads/domain"
	"admissions_crm/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreate      = "notification.inapp.repository.create"
	opList        = "notification.inapp.repository.list"
	opCountUnread = "notification.inapp.repository.count_unread"
	opMarkRead    = "notification.inapp.repository.mark_read"
	opMarkAllRead = "notification.inapp.repository.mark_all_read"
	opDelete      = "notification.inapp.repository.delete"

	errRepoNotConfigured = "in-app notification repository not configured"
	errUserIDRequired    = "userId is required"

	notificationColumns = "id, audience, recipient_user_id, message, is_read, created_at"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, audience domain.Audience, recipient uuid.UUID, message string) (domain.Notification, error) {
	if r == nil || r.pool == nil {
		return domain.Notification{}, apperr.Internal(errRepoNotConfigured).WithOp(opCreate)
	}

	var n domain.Notification
	err := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (audience, recipient_user_id, message)
		VALUES ($1, $2, $3)
		RETURNING `+notificationColumns,
		audience, recipient, message,
	).Scan(&n.ID, &n.Audience, &n.RecipientUserID, &n.Message, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return domain.Notification{}, apperr.Internal(fmt.Sprintf("create in-app notification failed: %v", err)).WithOp(opCreate)
	}
	return n, nil
}

// List returns the recipient's notifications newest first, plus the total
// matching f before paging.
func (r *Repository) List(ctx context.Context, userID uuid.UUID, f Filter, limit, offset int) ([]domain.Notification, int, error) {
	if r == nil || r.pool == nil {
		return nil, 0, apperr.Internal(errRepoNotConfigured).WithOp(opList)
	}
	if userID == uuid.Nil {
		return nil, 0, apperr.Validation(errUserIDRequired).WithOp(opList)
	}

	where := "recipient_user_id = $1"
	args := []any{userID}
	if f.UnreadOnly {
		where += " AND is_read = FALSE"
	}
	if f.Audience != "" {
		args = append(args, f.Audience)
		where += fmt.Sprintf(" AND audience = $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("count notifications failed: %v", err)).WithOp(opList)
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM notifications
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, notificationColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("list notifications query failed: %v", err)).WithOp(opList)
	}
	defer rows.Close()

	items := make([]domain.Notification, 0, limit)
	for rows.Next() {
		var n domain.Notification
		if scanErr := rows.Scan(&n.ID, &n.Audience, &n.RecipientUserID, &n.Message, &n.IsRead, &n.CreatedAt); scanErr != nil {
			return nil, 0, apperr.Internal(fmt.Sprintf("scan notifications failed: %v", scanErr)).WithOp(opList)
		}
		items = append(items, n)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("iterate notifications failed: %v", rowsErr)).WithOp(opList)
	}
	return items, total, nil
}

func (r *Repository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	if r == nil || r.pool == nil {
		return 0, apperr.Internal(errRepoNotConfigured).WithOp(opCountUnread)
	}
	if userID == uuid.Nil {
		return 0, apperr.Validation(errUserIDRequired).WithOp(opCountUnread)
	}

	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE recipient_user_id = $1 AND is_read = FALSE
	`, userID).Scan(&count)
	if err != nil {
		return 0, apperr.Internal(fmt.Sprintf("count unread notifications failed: %v", err)).WithOp(opCountUnread)
	}
	return count, nil
}

// MarkRead reports NotFound when the notification does not belong to userID.
func (r *Repository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opMarkRead)
	}
	if userID == uuid.Nil || notificationID == uuid.Nil {
		return apperr.Validation("userId and notificationId are required").WithOp(opMarkRead)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE, read_at = COALESCE(read_at, now())
		WHERE id = $1 AND recipient_user_id = $2
	`, notificationID, userID)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("mark notification read failed: %v", err)).WithOp(opMarkRead)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notification not found").WithOp(opMarkRead)
	}
	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opMarkAllRead)
	}
	if userID == uuid.Nil {
		return apperr.Validation(errUserIDRequired).WithOp(opMarkAllRead)
	}

	_, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE, read_at = now()
		WHERE recipient_user_id = $1 AND is_read = FALSE
	`, userID)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("mark all notifications read failed: %v", err)).WithOp(opMarkAllRead)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, userID, notificationID uuid.UUID) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opDelete)
	}
	if userID == uuid.Nil || notificationID == uuid.Nil {
		return apperr.Validation("userId and notificationId are required").WithOp(opDelete)
	}

	_, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1 AND recipient_user_id = $2`, notificationID, userID)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("delete notification failed: %v", err)).WithOp(opDelete)
	}
	return nil
}
