package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMongoStore opens a throwaway database when TODO_TEST_MONGO_URI is set.
func setupMongoStore(t *testing.T) *MongoStore {
	t.Helper()
	uri := os.Getenv("TODO_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TODO_TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	name := "todo_test_" + uuid.NewString()[:8]
	s, err := OpenMongo(ctx, uri, name)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.items.Database().Drop(context.Background())
		s.Close()
	})
	return s
}

func TestMongoStore_Items(t *testing.T) {
	itemStoreContract(t, func(t *testing.T) fullStore {
		return setupMongoStore(t)
	})
}

func TestMongoStore_Sessions(t *testing.T) {
	s := setupMongoStore(t)
	account := createTestAccount(t, s, "alice")
	sessionStoreContract(t, s, account.ID)
}

func TestMongoStore_CreateAccount_DuplicateUsername(t *testing.T) {
	s := setupMongoStore(t)
	ctx := context.Background()

	first := createTestAccount(t, s, "taken")
	err := s.CreateAccount(ctx, &Account{ID: uuid.NewString(), Username: "taken", PasswordHash: "other"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	got, err := s.GetAccountByUsername(ctx, "taken")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, first.PasswordHash, got.PasswordHash)
}

func TestMongoStore_ItemIDsIncrease(t *testing.T) {
	s := setupMongoStore(t)
	ctx := context.Background()

	first, err := s.nextItemID(ctx)
	require.NoError(t, err)
	second, err := s.nextItemID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first+1, second)
}
