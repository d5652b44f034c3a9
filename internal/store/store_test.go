package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatrelay/chatrelay/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestCreateAndGetUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice", user.Username)

	byID, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, byID.Username)
	assert.Equal(t, "hash", byID.PasswordHash)

	byName, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	_, err = s.GetUser(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "bob", "h1")
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, "bob", "h2")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestListUsers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"u1", "u2", "u3"} {
		_, err := s.CreateUser(ctx, name, "h")
		require.NoError(t, err)
	}

	users, err := s.ListUsers(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u1", users[0].Username)

	users, err = s.ListUsers(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u3", users[0].Username)
}

func TestConversationOwnershipScoping(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	owner, err := s.CreateUser(ctx, "owner", "h")
	require.NoError(t, err)
	other, err := s.CreateUser(ctx, "other", "h")
	require.NoError(t, err)

	conv, err := s.CreateConversation(ctx, owner.ID, "greetings")
	require.NoError(t, err)

	got, err := s.GetConversation(ctx, conv.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "greetings", got.Title)

	// Another user's lookup is indistinguishable from absence.
	_, err = s.GetConversation(ctx, conv.ID, other.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetConversation(ctx, 424242, owner.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListConversationsOnlyOwn(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, err := s.CreateUser(ctx, "a", "h")
	require.NoError(t, err)
	b, err := s.CreateUser(ctx, "b", "h")
	require.NoError(t, err)

	_, err = s.CreateConversation(ctx, a.ID, "a1")
	require.NoError(t, err)
	_, err = s.CreateConversation(ctx, b.ID, "b1")
	require.NoError(t, err)
	_, err = s.CreateConversation(ctx, a.ID, "a2")
	require.NoError(t, err)

	convs, err := s.ListConversations(ctx, a.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "a1", convs[0].Title)
	assert.Equal(t, "a2", convs[1].Title)
}

func TestMessageRoundTripChronological(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "alice", "h")
	require.NoError(t, err)
	conv, err := s.CreateConversation(ctx, user.ID, "t")
	require.NoError(t, err)

	_, err = s.AppendMessage(ctx, conv.ID, types.RoleUser, "hello")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, conv.ID, types.RoleAssistant, "hi there")
	require.NoError(t, err)

	msgs, err := s.ListMessages(ctx, conv.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, types.RoleUser, msgs[0].Role)
	assert.Equal(t, types.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "hi there", msgs[1].Content)
}

func TestListRecentMessagesNewestFirstWithLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "alice", "h")
	require.NoError(t, err)
	conv, err := s.CreateConversation(ctx, user.ID, "t")
	require.NoError(t, err)

	contents := []string{"one", "two", "three", "four"}
	for _, c := range contents {
		_, err := s.AppendMessage(ctx, conv.ID, types.RoleUser, c)
		require.NoError(t, err)
	}

	recent, err := s.ListRecentMessages(ctx, conv.ID, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "four", recent[0].Content)
	assert.Equal(t, "three", recent[1].Content)
	assert.Equal(t, "two", recent[2].Content)
}

func TestPing(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
