package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhvh/teacher-hub-api/internal/models"
)

type mockMessageRepo struct {
	messages   map[int64]*models.Message
	recipients map[int64][]int64
	read       map[int64]map[int64]bool
	nextID     int64
	deleted    []int64
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{
		messages:   map[int64]*models.Message{},
		recipients: map[int64][]int64{},
		read:       map[int64]map[int64]bool{},
		nextID:     1,
	}
}

func (r *mockMessageRepo) Create(ctx context.Context, m *models.Message, recipientIDs []int64) error {
	m.ID = r.nextID
	r.nextID++
	copied := *m
	r.messages[m.ID] = &copied
	r.recipients[m.ID] = append([]int64(nil), recipientIDs...)
	r.read[m.ID] = map[int64]bool{}
	return nil
}

func (r *mockMessageRepo) FindByID(ctx context.Context, id int64) (*models.Message, error) {
	m, ok := r.messages[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *m
	return &copied, nil
}

func (r *mockMessageRepo) ListRecipients(ctx context.Context, messageID int64) ([]models.MessageRecipient, error) {
	var out []models.MessageRecipient
	for _, id := range r.recipients[messageID] {
		out = append(out, models.MessageRecipient{MessageID: messageID, RecipientID: id, IsRead: r.read[messageID][id]})
	}
	return out, nil
}

func (r *mockMessageRepo) ListInbox(ctx context.Context, userID int64, f models.ListFilter) ([]models.Message, int, error) {
	var out []models.Message
	for id, recips := range r.recipients {
		for _, rid := range recips {
			if rid == userID {
				out = append(out, *r.messages[id])
			}
		}
	}
	return out, len(out), nil
}

func (r *mockMessageRepo) ListSent(ctx context.Context, userID int64, f models.ListFilter) ([]models.Message, int, error) {
	var out []models.Message
	for _, m := range r.messages {
		if m.SenderID == userID {
			out = append(out, *m)
		}
	}
	return out, len(out), nil
}

func (r *mockMessageRepo) ListBroadcasts(ctx context.Context, f models.ListFilter) ([]models.Message, int, error) {
	var out []models.Message
	for _, m := range r.messages {
		if m.IsBroadcast {
			out = append(out, *m)
		}
	}
	return out, len(out), nil
}

func (r *mockMessageRepo) MarkRead(ctx context.Context, messageID, recipientID int64) (bool, error) {
	reads, ok := r.read[messageID]
	if !ok {
		return false, nil
	}
	already := reads[recipientID]
	reads[recipientID] = true
	return !already, nil
}

func (r *mockMessageRepo) IsRecipient(ctx context.Context, messageID, userID int64) (bool, error) {
	for _, rid := range r.recipients[messageID] {
		if rid == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *mockMessageRepo) CountUnread(ctx context.Context, userID int64) (int, error) {
	count := 0
	for id, recips := range r.recipients {
		for _, rid := range recips {
			if rid == userID && !r.read[id][rid] {
				count++
			}
		}
	}
	return count, nil
}

func (r *mockMessageRepo) Delete(ctx context.Context, id int64) error {
	delete(r.messages, id)
	delete(r.recipients, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func messageFixture() (*MessageService, *mockMessageRepo, *mockUserLookup) {
	repo := newMockMessageRepo()
	users := &mockUserLookup{users: map[int64]*models.User{
		1: {ID: 1, Username: "boss", Role: models.RoleAdmin, Enabled: true},
		7: {ID: 7, Username: "t1", Role: models.RoleTeacher, Enabled: true},
		8: {ID: 8, Username: "t2", Role: models.RoleTeacher, Enabled: true},
		9: {ID: 9, Username: "t3", Role: models.RoleTeacher, Enabled: false},
	}}
	return NewMessageService(repo, users, nil, nil), repo, users
}

func sendRequest(recipients ...int64) models.SendMessageRequest {
	return models.SendMessageRequest{
		Subject:      "Staff meeting",
		Content:      "Friday at 15:00 in room B2.",
		MessageType:  models.MessageGeneral,
		Priority:     models.PriorityNormal,
		RecipientIDs: recipients,
	}
}

func TestMessageServiceSend(t *testing.T) {
	svc, repo, _ := messageFixture()

	msg, err := svc.Send(context.Background(), sendRequest(7, 8), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), msg.SenderID)
	assert.ElementsMatch(t, []int64{7, 8}, repo.recipients[msg.ID])
}

func TestMessageServiceSendDedupesAndSkipsSender(t *testing.T) {
	svc, repo, _ := messageFixture()

	msg, err := svc.Send(context.Background(), sendRequest(7, 7, 1, 8), 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{7, 8}, repo.recipients[msg.ID])
}

func TestMessageServiceSendUnknownRecipient(t *testing.T) {
	svc, _, _ := messageFixture()

	_, err := svc.Send(context.Background(), sendRequest(404), 1)
	assert.Error(t, err)
}

func TestMessageServiceSendNoRecipients(t *testing.T) {
	svc, _, _ := messageFixture()

	_, err := svc.Send(context.Background(), sendRequest(), 1)
	assert.Error(t, err)

	// Every listed recipient collapses to the sender.
	_, err = svc.Send(context.Background(), sendRequest(1), 1)
	assert.Error(t, err)
}

func TestMessageServiceSendBroadcast(t *testing.T) {
	svc, repo, _ := messageFixture()

	req := sendRequest()
	req.Broadcast = true
	req.MessageType = models.MessageAnnouncement
	req.Priority = models.PriorityHigh

	msg, err := svc.Send(context.Background(), req, 1)
	require.NoError(t, err)
	assert.True(t, repo.messages[msg.ID].IsBroadcast)
	// Disabled accounts and the sender are excluded.
	assert.ElementsMatch(t, []int64{7, 8}, repo.recipients[msg.ID])
}

func TestMessageServiceSendBadKind(t *testing.T) {
	svc, _, _ := messageFixture()

	req := sendRequest(7)
	req.MessageType = models.MessageType("TELEGRAM")
	_, err := svc.Send(context.Background(), req, 1)
	assert.Error(t, err)
}

func TestMessageServiceGetAsRecipientMarksRead(t *testing.T) {
	svc, repo, _ := messageFixture()

	msg, err := svc.Send(context.Background(), sendRequest(7), 1)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), msg.ID, 7)
	require.NoError(t, err)
	assert.True(t, repo.read[msg.ID][7])
}

func TestMessageServiceGetAsSenderListsRecipients(t *testing.T) {
	svc, _, _ := messageFixture()

	msg, err := svc.Send(context.Background(), sendRequest(7, 8), 1)
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), msg.ID, 1)
	require.NoError(t, err)
	assert.Len(t, got.Recipients, 2)
}

func TestMessageServiceGetStrangerForbidden(t *testing.T) {
	svc, _, _ := messageFixture()

	msg, err := svc.Send(context.Background(), sendRequest(7), 1)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), msg.ID, 8)
	assert.Error(t, err)
}

func TestMessageServiceUnreadCount(t *testing.T) {
	svc, _, _ := messageFixture()

	first, err := svc.Send(context.Background(), sendRequest(7), 1)
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), sendRequest(7), 1)
	require.NoError(t, err)

	count, err := svc.UnreadCount(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, svc.MarkRead(context.Background(), first.ID, 7))

	count, err = svc.UnreadCount(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMessageServiceMarkReadNotRecipient(t *testing.T) {
	svc, _, _ := messageFixture()

	msg, err := svc.Send(context.Background(), sendRequest(7), 1)
	require.NoError(t, err)

	err = svc.MarkRead(context.Background(), msg.ID, 8)
	assert.Error(t, err)
}

func TestMessageServiceInboxAndSent(t *testing.T) {
	svc, _, _ := messageFixture()

	_, err := svc.Send(context.Background(), sendRequest(7), 1)
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), sendRequest(8), 1)
	require.NoError(t, err)

	inbox, pagination, err := svc.Inbox(context.Background(), 7, models.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, inbox, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 1, pagination.Page)

	sent, pagination, err := svc.Sent(context.Background(), 1, models.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, sent, 2)
	assert.Equal(t, 2, pagination.TotalCount)
}

func TestMessageServiceBroadcasts(t *testing.T) {
	svc, _, _ := messageFixture()

	_, err := svc.Send(context.Background(), sendRequest(7), 1)
	require.NoError(t, err)

	req := sendRequest()
	req.Broadcast = true
	_, err = svc.Send(context.Background(), req, 1)
	require.NoError(t, err)

	broadcasts, pagination, err := svc.Broadcasts(context.Background(), models.ListFilter{})
	require.NoError(t, err)
	require.Len(t, broadcasts, 1)
	assert.True(t, broadcasts[0].IsBroadcast)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestMessageServiceDelete(t *testing.T) {
	svc, repo, _ := messageFixture()

	msg, err := svc.Send(context.Background(), sendRequest(8), 7)
	require.NoError(t, err)

	err = svc.Delete(context.Background(), msg.ID, 8, models.RoleTeacher)
	assert.Error(t, err)

	require.NoError(t, svc.Delete(context.Background(), msg.ID, 7, models.RoleTeacher))
	assert.Equal(t, []int64{msg.ID}, repo.deleted)

	// Admins may delete anyone's message.
	other, err := svc.Send(context.Background(), sendRequest(8), 7)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), other.ID, 1, models.RoleAdmin))
}
