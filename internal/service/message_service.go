package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/minhvh/teacher-hub-api/internal/models"
	appErrors "github.com/minhvh/teacher-hub-api/pkg/errors"
)

type messageRepository interface {
	Create(ctx context.Context, m *models.Message, recipientIDs []int64) error
	FindByID(ctx context.Context, id int64) (*models.Message, error)
	ListRecipients(ctx context.Context, messageID int64) ([]models.MessageRecipient, error)
	ListInbox(ctx context.Context, userID int64, f models.ListFilter) ([]models.Message, int, error)
	ListSent(ctx context.Context, userID int64, f models.ListFilter) ([]models.Message, int, error)
	ListBroadcasts(ctx context.Context, f models.ListFilter) ([]models.Message, int, error)
	MarkRead(ctx context.Context, messageID, recipientID int64) (bool, error)
	IsRecipient(ctx context.Context, messageID, userID int64) (bool, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	Delete(ctx context.Context, id int64) error
}

type messageUserLookup interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	ListAll(ctx context.Context) ([]models.User, error)
}

// MessageService provides internal messaging use cases.
type MessageService struct {
	repo       messageRepository
	users      messageUserLookup
	dashboards dashboardInvalidator
	validator  *validator.Validate
	logger     *zap.Logger
}

// UseDashboard registers a dashboard cache to drop when unread counts move.
func (s *MessageService) UseDashboard(d dashboardInvalidator) {
	s.dashboards = d
}

func (s *MessageService) invalidateDashboard(ctx context.Context, userID int64) {
	if s.dashboards != nil {
		s.dashboards.InvalidateTeacher(ctx, userID)
	}
}

// NewMessageService constructs a MessageService instance.
func NewMessageService(repo messageRepository, users messageUserLookup, validate *validator.Validate, logger *zap.Logger) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MessageService{repo: repo, users: users, validator: validate, logger: logger}
}

// Send stores a message and fans it out to its recipients. Broadcast messages
// reach every enabled account except the sender.
func (s *MessageService) Send(ctx context.Context, req models.SendMessageRequest, senderID int64) (*models.Message, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid message payload")
	}
	if !req.MessageType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown message type")
	}
	if !req.Priority.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown priority")
	}

	var recipientIDs []int64
	if req.Broadcast {
		all, err := s.users.ListAll(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve recipients")
		}
		for _, u := range all {
			if u.ID != senderID && u.Enabled {
				recipientIDs = append(recipientIDs, u.ID)
			}
		}
	} else {
		if len(req.RecipientIDs) == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "message requires at least one recipient")
		}
		seen := make(map[int64]bool, len(req.RecipientIDs))
		for _, id := range req.RecipientIDs {
			if id == senderID || seen[id] {
				continue
			}
			if _, err := s.users.FindByID(ctx, id); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, appErrors.Clone(appErrors.ErrValidation, "recipient does not exist")
				}
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve recipient")
			}
			seen[id] = true
			recipientIDs = append(recipientIDs, id)
		}
		if len(recipientIDs) == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "message requires at least one recipient")
		}
	}

	message := &models.Message{
		SenderID:    senderID,
		Subject:     req.Subject,
		Content:     req.Content,
		MessageType: req.MessageType,
		Priority:    req.Priority,
		IsBroadcast: req.Broadcast,
	}
	if err := s.repo.Create(ctx, message, recipientIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send message")
	}

	s.logger.Info("message sent",
		zap.Int64("message_id", message.ID),
		zap.Int64("sender_id", senderID),
		zap.Int("recipients", len(recipientIDs)),
		zap.Bool("broadcast", req.Broadcast))

	for _, id := range recipientIDs {
		s.invalidateDashboard(ctx, id)
	}
	return message, nil
}

// Get returns a message. Only the sender or a recipient may read it; reading
// as a recipient marks it read.
func (s *MessageService) Get(ctx context.Context, id int64, viewerID int64) (*models.Message, error) {
	message, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "message not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load message")
	}

	if message.SenderID == viewerID {
		recipients, err := s.repo.ListRecipients(ctx, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recipients")
		}
		message.Recipients = recipients
		return message, nil
	}

	isRecipient, err := s.repo.IsRecipient(ctx, id, viewerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check recipient")
	}
	if !isRecipient {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "message is not addressed to you")
	}

	if _, err := s.repo.MarkRead(ctx, id, viewerID); err != nil {
		s.logger.Warn("failed to mark message read", zap.Error(err), zap.Int64("message_id", id))
	}
	return message, nil
}

// Inbox returns the messages delivered to a user.
func (s *MessageService) Inbox(ctx context.Context, userID int64, f models.ListFilter) ([]models.Message, *models.Pagination, error) {
	messages, total, err := s.repo.ListInbox(ctx, userID, f)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load inbox")
	}

	f.Normalize()
	return messages, &models.Pagination{Page: f.Page, PageSize: f.PageSize, TotalCount: total}, nil
}

// Sent returns the messages a user has sent.
func (s *MessageService) Sent(ctx context.Context, userID int64, f models.ListFilter) ([]models.Message, *models.Pagination, error) {
	messages, total, err := s.repo.ListSent(ctx, userID, f)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sent messages")
	}

	f.Normalize()
	return messages, &models.Pagination{Page: f.Page, PageSize: f.PageSize, TotalCount: total}, nil
}

// Broadcasts returns the announcement feed visible to every user.
func (s *MessageService) Broadcasts(ctx context.Context, f models.ListFilter) ([]models.Message, *models.Pagination, error) {
	messages, total, err := s.repo.ListBroadcasts(ctx, f)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load broadcasts")
	}

	f.Normalize()
	return messages, &models.Pagination{Page: f.Page, PageSize: f.PageSize, TotalCount: total}, nil
}

// MarkRead flags a delivered message as read for the viewer.
func (s *MessageService) MarkRead(ctx context.Context, messageID, viewerID int64) error {
	isRecipient, err := s.repo.IsRecipient(ctx, messageID, viewerID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check recipient")
	}
	if !isRecipient {
		return appErrors.Clone(appErrors.ErrForbidden, "message is not addressed to you")
	}
	if _, err := s.repo.MarkRead(ctx, messageID, viewerID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark message read")
	}
	s.invalidateDashboard(ctx, viewerID)
	return nil
}

// UnreadCount returns a user's unread message count.
func (s *MessageService) UnreadCount(ctx context.Context, userID int64) (int, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread messages")
	}
	return count, nil
}

// Delete removes a message. Only the sender or an admin may delete.
func (s *MessageService) Delete(ctx context.Context, id int64, actorID int64, actorRole models.UserRole) error {
	message, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "message not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load message")
	}
	if actorRole != models.RoleAdmin && message.SenderID != actorID {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot delete another user's message")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete message")
	}
	return nil
}
