package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/minhvh/teacher-hub-api/internal/models"
)

const messageColumns = `m.id, m.sender_id, u.full_name AS sender_name, u.email AS sender_email,
	m.subject, m.content, m.message_type, m.priority, m.is_broadcast, m.created_at`

const messageJoins = `FROM messages m
	JOIN users u ON u.id = m.sender_id`

// MessageRepository manages persistence for messages and their recipients.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository constructs a MessageRepository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a message together with its recipient rows in one
// transaction.
func (r *MessageRepository) Create(ctx context.Context, m *models.Message, recipientIDs []int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin message tx: %w", err)
	}
	defer tx.Rollback()

	const insertMessage = `
		INSERT INTO messages (sender_id, subject, content, message_type, priority, is_broadcast, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at`
	row := tx.QueryRowxContext(ctx, insertMessage,
		m.SenderID, m.Subject, m.Content, m.MessageType, m.Priority, m.IsBroadcast)
	if err := row.Scan(&m.ID, &m.CreatedAt); err != nil {
		return fmt.Errorf("create message: %w", err)
	}

	const insertRecipient = `
		INSERT INTO message_recipients (message_id, recipient_id, is_read, created_at)
		VALUES ($1, $2, FALSE, NOW())`
	for _, recipientID := range recipientIDs {
		if _, err := tx.ExecContext(ctx, insertRecipient, m.ID, recipientID); err != nil {
			return fmt.Errorf("create message recipient: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit message tx: %w", err)
	}
	return nil
}

// FindByID fetches a message by ID without recipient rows.
func (r *MessageRepository) FindByID(ctx context.Context, id int64) (*models.Message, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE m.id = $1", messageColumns, messageJoins)
	var message models.Message
	if err := r.db.GetContext(ctx, &message, query, id); err != nil {
		return nil, err
	}
	return &message, nil
}

// ListRecipients returns the recipient rows of a message.
func (r *MessageRepository) ListRecipients(ctx context.Context, messageID int64) ([]models.MessageRecipient, error) {
	const query = `
		SELECT mr.id, mr.message_id, mr.recipient_id, u.full_name AS recipient_name,
			u.email AS recipient_email, mr.is_read, mr.read_at, mr.created_at
		FROM message_recipients mr
		JOIN users u ON u.id = mr.recipient_id
		WHERE mr.message_id = $1
		ORDER BY u.full_name ASC`
	var recipients []models.MessageRecipient
	if err := r.db.SelectContext(ctx, &recipients, query, messageID); err != nil {
		return nil, fmt.Errorf("list message recipients: %w", err)
	}
	return recipients, nil
}

// ListInbox returns the messages delivered to a user, newest first, including
// the user's read state.
func (r *MessageRepository) ListInbox(ctx context.Context, userID int64, f models.ListFilter) ([]models.Message, int, error) {
	f.Normalize()

	var total int
	if err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM message_recipients WHERE recipient_id = $1", userID); err != nil {
		return nil, 0, fmt.Errorf("count inbox: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s, mr.is_read, mr.read_at %s
		JOIN message_recipients mr ON mr.message_id = m.id
		WHERE mr.recipient_id = $1
		ORDER BY m.created_at DESC`, messageColumns, messageJoins)
	args := []interface{}{userID}
	if f.Paged() {
		query += " LIMIT $2 OFFSET $3"
		args = append(args, f.PageSize, (f.Page-1)*f.PageSize)
	}

	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list inbox: %w", err)
	}
	return messages, total, nil
}

// ListSent returns the messages a user has sent, newest first.
func (r *MessageRepository) ListSent(ctx context.Context, userID int64, f models.ListFilter) ([]models.Message, int, error) {
	f.Normalize()

	var total int
	if err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM messages WHERE sender_id = $1", userID); err != nil {
		return nil, 0, fmt.Errorf("count sent messages: %w", err)
	}

	query := fmt.Sprintf("SELECT %s %s WHERE m.sender_id = $1 ORDER BY m.created_at DESC", messageColumns, messageJoins)
	args := []interface{}{userID}
	if f.Paged() {
		query += " LIMIT $2 OFFSET $3"
		args = append(args, f.PageSize, (f.Page-1)*f.PageSize)
	}

	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sent messages: %w", err)
	}
	return messages, total, nil
}

// ListBroadcasts returns announcement-style broadcast messages, newest first.
func (r *MessageRepository) ListBroadcasts(ctx context.Context, f models.ListFilter) ([]models.Message, int, error) {
	f.Normalize()

	var total int
	if err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM messages WHERE is_broadcast"); err != nil {
		return nil, 0, fmt.Errorf("count broadcasts: %w", err)
	}

	query := fmt.Sprintf("SELECT %s %s WHERE m.is_broadcast ORDER BY m.created_at DESC", messageColumns, messageJoins)
	args := []interface{}{}
	if f.Paged() {
		query += " LIMIT $1 OFFSET $2"
		args = append(args, f.PageSize, (f.Page-1)*f.PageSize)
	}

	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list broadcasts: %w", err)
	}
	return messages, total, nil
}

// MarkRead sets a recipient's read flag on a message. Marking twice keeps the
// first read timestamp.
func (r *MessageRepository) MarkRead(ctx context.Context, messageID, recipientID int64) (bool, error) {
	const query = `
		UPDATE message_recipients
		SET is_read = TRUE, read_at = NOW()
		WHERE message_id = $1 AND recipient_id = $2 AND NOT is_read`
	res, err := r.db.ExecContext(ctx, query, messageID, recipientID)
	if err != nil {
		return false, fmt.Errorf("mark message read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark message read: %w", err)
	}
	return affected > 0, nil
}

// IsRecipient reports whether a user is a recipient of a message.
func (r *MessageRepository) IsRecipient(ctx context.Context, messageID, userID int64) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM message_recipients WHERE message_id = $1 AND recipient_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, messageID, userID); err != nil {
		return false, fmt.Errorf("check message recipient: %w", err)
	}
	return exists, nil
}

// CountUnread returns a user's unread message count.
func (r *MessageRepository) CountUnread(ctx context.Context, userID int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM message_recipients WHERE recipient_id = $1 AND NOT is_read", userID); err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return count, nil
}

// Delete removes a message and its recipient rows.
func (r *MessageRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin message delete tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM message_recipients WHERE message_id = $1", id); err != nil {
		return fmt.Errorf("delete message recipients: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit message delete tx: %w", err)
	}
	return nil
}
