// internal/storage/migrate_test.go
package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func legacyFixturePaths(t *testing.T) (usersPath, searchesPath, countsPath string) {
	t.Helper()
	dir := t.TempDir()

	usersPath = writeTestFile(t, dir, "users.json", `{
		"admin": {"password": "hash_admin", "credits": 0, "is_admin": true},
		"alice": {"password": "hash_alice", "credits": 7, "is_admin": false}
	}`)

	// Naive ISO timestamp, as the Python exporter wrote them.
	searchesPath = writeTestFile(t, dir, "searches.json", `[
		{
			"name": "downtown",
			"user_id": "alice",
			"bounds": {"lat_min": 37.97, "lat_max": 37.99, "lon_min": 23.72, "lon_max": 23.74},
			"search_type": "quick",
			"subarea_step": 0.01,
			"subarea_radius": 1000,
			"total_requests": 4,
			"map_html": "<html>map</html>",
			"center_lat": 37.98,
			"center_lon": 23.73,
			"zoom": 14,
			"timestamp": "2025-11-03T09:15:27.123456",
			"pharmacies": [
				{"name": "Central Pharmacy", "address": "1 Main St", "latitude": 37.98, "longitude": 23.73},
				{"name": "Central Pharmacy", "address": "1 Main St", "latitude": 37.98, "longitude": 23.73}
			]
		},
		{
			"name": "orphaned",
			"user_id": "",
			"timestamp": "2025-11-03T09:15:27"
		}
	]`)

	countsPath = writeTestFile(t, dir, "request_count.json", `{
		"admin": {"total_requests": 999},
		"alice": {"total_requests": 12},
		"vanished": {"total_requests": 5}
	}`)
	return
}

func TestMigrateLegacyJSON(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	assert := assert.New(t)

	usersPath, searchesPath, countsPath := legacyFixturePaths(t)

	assert.NoError(MigrateLegacyJSON(ctx, db, usersPath, searchesPath, countsPath))

	alice, err := FindUserByUsername(ctx, db, "alice")
	assert.NoError(err)
	assert.Equal("hash_alice", alice.PasswordHash)
	assert.Equal(7, alice.Credits)
	assert.Equal(12, alice.TotalRequests)

	// Admin request counts are intentionally not imported.
	admin, err := FindUserByUsername(ctx, db, "admin")
	assert.NoError(err)
	assert.True(admin.IsAdmin)
	assert.Equal(0, admin.TotalRequests)

	searches, err := ListSearches(ctx, db, "alice")
	assert.NoError(err)
	assert.Len(searches, 1)
	assert.Equal("downtown", searches[0].Name)
	assert.Equal(2025, searches[0].Timestamp.Year())
	// Duplicate pharmacies in the export collapse to one linked row.
	assert.Len(searches[0].Pharmacies, 1)

	// The search without a user was skipped.
	all, err := ListSearches(ctx, db, "")
	assert.NoError(err)
	assert.Len(all, 1)

	pending, err := MigrationPending(ctx, db)
	assert.NoError(err)
	assert.False(pending)
}

func TestMigrateLegacyJSONIdempotent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	assert := assert.New(t)

	usersPath, searchesPath, countsPath := legacyFixturePaths(t)

	assert.NoError(MigrateLegacyJSON(ctx, db, usersPath, searchesPath, countsPath))
	err := MigrateLegacyJSON(ctx, db, usersPath, searchesPath, countsPath)
	assert.ErrorIs(err, ErrMigrationDone)

	// Nothing was duplicated by the second call.
	alice, err := FindUserByUsername(ctx, db, "alice")
	assert.NoError(err)
	assert.Equal(12, alice.TotalRequests)

	searches, err := ListSearches(ctx, db, "alice")
	assert.NoError(err)
	assert.Len(searches, 1)
}

func TestMigrateLegacyJSONMissingCountsFile(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	assert := assert.New(t)

	usersPath, searchesPath, _ := legacyFixturePaths(t)

	// A deployment that never produced a request count file still imports.
	err := MigrateLegacyJSON(ctx, db, usersPath, searchesPath, filepath.Join(t.TempDir(), "nope.json"))
	assert.NoError(err)

	alice, err := FindUserByUsername(ctx, db, "alice")
	assert.NoError(err)
	assert.Equal(0, alice.TotalRequests)
}

func TestMigrationPendingInitializes(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	assert := assert.New(t)

	pending, err := MigrationPending(ctx, db)
	assert.NoError(err)
	assert.True(pending, "fresh database starts pending")

	// Asking again does not reset a completed run.
	pending, err = MigrationPending(ctx, db)
	assert.NoError(err)
	assert.True(pending)
}

func TestParseLegacyTimestamp(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		wantOk bool
	}{
		{"rfc3339", "2025-11-03T09:15:27Z", true},
		{"naive with micros", "2025-11-03T09:15:27.123456", true},
		{"naive seconds", "2025-11-03T09:15:27", true},
		{"space separated", "2025-11-03 09:15:27", true},
		{"garbage", "yesterday", false},
		{"empty", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parseLegacyTimestamp(tc.input)
			if ok != tc.wantOk {
				t.Errorf("parseLegacyTimestamp(%q): ok = %v; want %v", tc.input, ok, tc.wantOk)
			}
			if ok && got.Year() != 2025 {
				t.Errorf("parseLegacyTimestamp(%q) = %v; wrong year", tc.input, got)
			}
		})
	}
}
