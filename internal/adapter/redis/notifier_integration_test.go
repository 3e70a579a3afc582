package redis

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/pestpro/pestpro/internal/domain"
)

var testClient *Client

func TestMain(m *testing.M) {
	flag.Parse()

	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	redisContainer, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start redis container: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to terminate redis container: %v\n", err)
		}
	}()

	connStr, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get connection string: %v\n", err)
		os.Exit(1)
	}

	testClient, err = NewClient(connStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to test redis: %v\n", err)
		os.Exit(1)
	}
	defer testClient.Close()

	os.Exit(m.Run())
}

func setupTestRedis(t *testing.T) *Client {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	t.Cleanup(func() {
		if err := testClient.Underlying().FlushDB(context.Background()).Err(); err != nil {
			t.Logf("Failed to flush test redis: %v", err)
		}
	})
	return testClient
}

func TestNotifier_HistoryNewestFirst(t *testing.T) {
	client := setupTestRedis(t)
	notifier := NewNotifier(client)
	ctx := context.Background()

	first := domain.Notification{ID: uuid.New(), Title: "first", Level: domain.LevelInfo, CreatedAt: time.Now().UTC()}
	second := domain.Notification{ID: uuid.New(), Title: "second", Level: domain.LevelSuccess, CreatedAt: time.Now().UTC()}
	notifier.Notify(ctx, first)
	notifier.Notify(ctx, second)

	recent, err := notifier.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "second", recent[0].Title)
	assert.Equal(t, second.ID, recent[0].ID)
}

func TestNotifier_HistoryCapped(t *testing.T) {
	client := setupTestRedis(t)
	notifier := NewNotifier(client)
	ctx := context.Background()

	for i := 0; i < notificationHistory+10; i++ {
		notifier.Notify(ctx, domain.Notification{ID: uuid.New(), Title: "n", Level: domain.LevelInfo})
	}

	recent, err := notifier.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recent, notificationHistory)
}

func TestNotifier_Subscribe(t *testing.T) {
	client := setupTestRedis(t)
	notifier := NewNotifier(client)
	ctx := context.Background()

	ch, cancel := notifier.Subscribe(ctx)
	defer cancel()

	// Give the pub/sub subscription a moment to establish.
	time.Sleep(100 * time.Millisecond)

	sent := domain.Notification{ID: uuid.New(), Title: "live", Level: domain.LevelWarning}
	notifier.Notify(ctx, sent)

	select {
	case got := <-ch:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, "live", got.Title)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published notification")
	}
}

func TestReminderLedger_ClaimOnce(t *testing.T) {
	client := setupTestRedis(t)
	ledger := NewReminderLedger(client)
	ctx := context.Background()

	ok, err := ledger.Claim(ctx, "contract-1:2024-05-24", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ledger.Claim(ctx, "contract-1:2024-05-24", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ledger.Claim(ctx, "contract-2:2024-05-24", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
