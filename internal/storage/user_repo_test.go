// internal/storage/user_repo_test.go
package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateAndFindUser(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	assert := assert.New(t)

	err := CreateUser(ctx, db, "alice", "hashed_pw", 10, false)
	assert.NoError(err)

	user, err := FindUserByUsername(ctx, db, "alice")
	assert.NoError(err)
	assert.Equal("alice", user.Username)
	assert.Equal("hashed_pw", user.PasswordHash)
	assert.Equal(10, user.Credits)
	assert.False(user.IsAdmin)
	assert.Equal(0, user.TotalRequests)
}

func TestCreateUserDuplicate(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	assert.NoError(t, CreateUser(ctx, db, "alice", "pw1", 10, false))
	err := CreateUser(ctx, db, "alice", "pw2", 10, false)
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func TestFindUserNotFound(t *testing.T) {
	db := testDB(t)

	_, err := FindUserByUsername(context.Background(), db, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestListUsers(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	assert := assert.New(t)

	assert.NoError(CreateUser(ctx, db, "charlie", "pw", 5, false))
	assert.NoError(CreateUser(ctx, db, "alice", "pw", 10, true))
	assert.NoError(CreateUser(ctx, db, "bob", "pw", 0, false))

	users, err := ListUsers(ctx, db)
	assert.NoError(err)
	assert.Len(users, 3)
	// Ordered by username.
	assert.Equal("alice", users[0].Username)
	assert.Equal("bob", users[1].Username)
	assert.Equal("charlie", users[2].Username)
	assert.True(users[0].IsAdmin)
}

func TestAdjustCredits(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	assert := assert.New(t)

	assert.NoError(CreateUser(ctx, db, "alice", "pw", 10, false))

	assert.NoError(AdjustCredits(ctx, db, "alice", -3))
	user, _ := FindUserByUsername(ctx, db, "alice")
	assert.Equal(7, user.Credits)

	assert.NoError(AdjustCredits(ctx, db, "alice", 5))
	user, _ = FindUserByUsername(ctx, db, "alice")
	assert.Equal(12, user.Credits)
}

func TestAdjustCreditsGuardsNegativeBalance(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	assert := assert.New(t)

	assert.NoError(CreateUser(ctx, db, "alice", "pw", 2, false))

	err := AdjustCredits(ctx, db, "alice", -3)
	assert.ErrorIs(err, ErrInsufficientCredits)

	// Balance untouched after the refused decrement.
	user, _ := FindUserByUsername(ctx, db, "alice")
	assert.Equal(2, user.Credits)

	// Draining to exactly zero is allowed.
	assert.NoError(AdjustCredits(ctx, db, "alice", -2))
	user, _ = FindUserByUsername(ctx, db, "alice")
	assert.Equal(0, user.Credits)
}

func TestAdjustCreditsUserNotFound(t *testing.T) {
	db := testDB(t)

	err := AdjustCredits(context.Background(), db, "ghost", -1)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSetCredits(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	assert := assert.New(t)

	assert.NoError(CreateUser(ctx, db, "alice", "pw", 10, false))
	assert.NoError(SetCredits(ctx, db, "alice", 42))

	user, _ := FindUserByUsername(ctx, db, "alice")
	assert.Equal(42, user.Credits)

	assert.ErrorIs(SetCredits(ctx, db, "ghost", 1), ErrUserNotFound)
}

func TestIncrementTotalRequestsConcurrent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	assert := assert.New(t)

	assert.NoError(CreateUser(ctx, db, "alice", "pw", 10, false))

	// Concurrent increments must not lose updates: the addition runs
	// inside the UPDATE statement, not in application code.
	const goroutines = 20
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := IncrementTotalRequests(ctx, db, "alice", 3); err != nil {
				t.Errorf("IncrementTotalRequests failed: %v", err)
			}
		}()
	}
	wg.Wait()

	user, err := FindUserByUsername(ctx, db, "alice")
	assert.NoError(err)
	assert.Equal(goroutines*3, user.TotalRequests)
}

func TestDeleteUserRemovesHistory(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	assert := assert.New(t)

	assert.NoError(CreateUser(ctx, db, "alice", "pw", 10, false))
	assert.NoError(CreateUser(ctx, db, "bob", "pw", 10, false))

	searchID := recordTestSearch(t, db, "alice", "downtown")
	pharmacyID, err := UpsertPharmacy(ctx, db, "Central Pharmacy", "1 Main St", 37.98, 23.73)
	assert.NoError(err)
	assert.NoError(LinkSearchPharmacy(ctx, db, searchID, pharmacyID))

	otherSearchID := recordTestSearch(t, db, "bob", "uptown")
	assert.NoError(LinkSearchPharmacy(ctx, db, otherSearchID, pharmacyID))

	assert.NoError(DeleteUser(ctx, db, "alice"))

	_, err = FindUserByUsername(ctx, db, "alice")
	assert.ErrorIs(err, ErrUserNotFound)
	_, err = GetSearch(ctx, db, searchID)
	assert.ErrorIs(err, ErrSearchNotFound)

	// Shared pharmacy rows survive, as does the other user's history.
	_, err = GetPharmacy(ctx, db, pharmacyID)
	assert.NoError(err)
	remaining, err := GetSearch(ctx, db, otherSearchID)
	assert.NoError(err)
	assert.Len(remaining.Pharmacies, 1)
}

func TestDeleteUserNotFound(t *testing.T) {
	db := testDB(t)

	err := DeleteUser(context.Background(), db, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
