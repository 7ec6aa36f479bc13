package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/coachhub/coach-chat/internal/domain"
	"github.com/coachhub/coach-chat/pkg/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.New(&database.Config{
		Driver:       "sqlite",
		FilePath:     ":memory:",
		MaxOpenConns: 1,
		LogLevel:     "silent",
	}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, domain.Models()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedParticipant(t *testing.T, repo *GormParticipantRepository, name string) *domain.Participant {
	t.Helper()
	p := &domain.Participant{ID: uuid.New().String(), Name: name, Role: domain.RoleClient}
	require.NoError(t, repo.Upsert(context.Background(), p))
	return p
}

func TestParticipantUpsertKeepsLists(t *testing.T) {
	ctx := context.Background()
	repo := NewGormParticipantRepository(newTestDB(t))

	p := seedParticipant(t, repo, "Ann")
	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
	assert.Empty(t, got.Conversations)
	assert.Empty(t, got.UnreadConversationIDs)

	got.Conversations = []string{"c1", "c2"}
	got.UnreadConversationIDs = []string{"c2"}
	require.NoError(t, repo.SaveLists(ctx, got))

	require.NoError(t, repo.Upsert(ctx, &domain.Participant{ID: p.ID, Name: "Annie", Role: domain.RoleCoach}))

	got, err = repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Annie", got.Name)
	assert.Equal(t, domain.RoleCoach, got.Role)
	assert.Equal(t, []string{"c1", "c2"}, got.Conversations)
	assert.Equal(t, []string{"c2"}, got.UnreadConversationIDs)
}

func TestParticipantGetMany(t *testing.T) {
	repo := NewGormParticipantRepository(newTestDB(t))
	a := seedParticipant(t, repo, "Ann")
	b := seedParticipant(t, repo, "Bob")

	got, err := repo.GetMany(context.Background(), []string{a.ID, b.ID, uuid.New().String()})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "Bob", got[b.ID].Name)
}

func TestParticipantNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewGormParticipantRepository(newTestDB(t))

	_, err := repo.GetByID(ctx, uuid.New().String())
	assert.ErrorIs(t, err, ErrParticipantNotFound)

	err = repo.SaveLists(ctx, &domain.Participant{ID: uuid.New().String()})
	assert.ErrorIs(t, err, ErrParticipantNotFound)
}

func TestConversationCreateGetDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewGormConversationRepository(newTestDB(t))

	c := &domain.Conversation{Participants: []string{"a", "b"}}
	require.NoError(t, repo.Create(ctx, c))
	require.NotEmpty(t, c.ID)

	ok, err := repo.Exists(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Participants)
	assert.Empty(t, got.Messages)
	assert.Nil(t, got.LastMessageAt)

	// Same id again is reported, not duplicated.
	err = repo.Create(ctx, &domain.Conversation{ID: c.ID, Participants: []string{"x"}})
	assert.ErrorIs(t, err, ErrConversationExists)

	require.NoError(t, repo.Delete(ctx, c.ID))
	_, err = repo.GetByID(ctx, c.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, c.ID), ErrConversationNotFound)
}

func TestAppendMessageMovesLastMessage(t *testing.T) {
	ctx := context.Background()
	repo := NewGormConversationRepository(newTestDB(t))

	c := &domain.Conversation{Participants: []string{"a", "b"}}
	require.NoError(t, repo.Create(ctx, c))

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		msg := &domain.Message{ID: uuid.New().String(), ConversationID: c.ID, Timestamp: base.Add(time.Duration(i) * time.Minute)}
		updated, err := repo.AppendMessage(ctx, c.ID, msg)
		require.NoError(t, err)
		assert.Len(t, updated.Messages, i+1)
		assert.Equal(t, msg.ID, updated.LastMessageID)

		stored, err := repo.GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Len(t, stored.Messages, i+1)
		assert.Equal(t, msg.ID, stored.LastMessageID)
		require.NotNil(t, stored.LastMessageAt)
		assert.True(t, msg.Timestamp.Equal(*stored.LastMessageAt))
	}

	_, err := repo.AppendMessage(ctx, uuid.New().String(), &domain.Message{ID: "m"})
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestAppendMessageConcurrentKeepsEveryID(t *testing.T) {
	ctx := context.Background()
	repo := NewGormConversationRepository(newTestDB(t))

	c := &domain.Conversation{Participants: []string{"a"}}
	require.NoError(t, repo.Create(ctx, c))

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AppendMessage(ctx, c.ID, &domain.Message{ID: uuid.New().String(), Timestamp: time.Now()})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, n)
	assert.Equal(t, got.Messages[n-1], got.LastMessageID)
}

func TestConversationGetManySkipsMissing(t *testing.T) {
	ctx := context.Background()
	repo := NewGormConversationRepository(newTestDB(t))

	c := &domain.Conversation{Participants: []string{"a"}}
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.GetMany(ctx, []string{c.ID, uuid.New().String()})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, got, c.ID)

	got, err = repo.GetMany(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMessagesOrderedAndDeletedByConversation(t *testing.T) {
	ctx := context.Background()
	repo := NewGormMessageRepository(newTestDB(t))

	var ids []string
	for i := 0; i < 3; i++ {
		msg := &domain.Message{ConversationID: "c1", AuthorID: "a", Text: "hi", Timestamp: time.Now()}
		require.NoError(t, repo.Create(ctx, msg))
		ids = append(ids, msg.ID)
	}
	other := &domain.Message{ConversationID: "c2", AuthorID: "a", Text: "yo", Timestamp: time.Now()}
	require.NoError(t, repo.Create(ctx, other))

	reversed := []string{ids[2], "missing", ids[0], ids[1]}
	got, err := repo.GetByIDs(ctx, reversed)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, ids[2], got[0].ID)
	assert.Equal(t, ids[0], got[1].ID)
	assert.Equal(t, ids[1], got[2].ID)
	assert.False(t, got[0].Edited)

	n, err := repo.DeleteByConversation(ctx, "c1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	got, err = repo.GetByIDs(ctx, append(ids, other.ID))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, other.ID, got[0].ID)

	require.NoError(t, repo.Delete(ctx, other.ID))
	assert.ErrorIs(t, repo.Delete(ctx, other.ID), ErrMessageNotFound)
}
