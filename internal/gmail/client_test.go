package gmail

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchBoundsAndOrdersResults(t *testing.T) {
	fake := newFakeGmail()
	rng := rand.New(rand.NewPCG(1, 2))
	// The fake ignores maxResults and returns every message it has.
	for i := range 15 {
		fake.add(textMessage(
			fmt.Sprintf("id-%02d", i),
			1_700_000_000_000+rng.Int64N(1_000_000_000),
			fmt.Sprintf("subject %d", i),
			"Your Poe verification code is: 123456",
		))
	}
	svc, _ := newTestService(t, fake)
	client := NewClient(svc)

	messages, stats := client.Fetch(context.Background(), "from:noreply@poe.com", 10)
	require.NoError(t, stats.Err)
	require.Len(t, messages, 10)
	assert.Equal(t, 10, stats.Listed)
	for i := 1; i < len(messages); i++ {
		assert.GreaterOrEqual(t, messages[i-1].InternalDate, messages[i].InternalDate,
			"messages not sorted newest first at %d", i)
	}

	assert.Equal(t, "from:noreply@poe.com", fake.lastList["q"])
	assert.Equal(t, "10", fake.lastList["maxResults"])
	assert.Equal(t, "false", fake.lastList["includeSpamTrash"])
	assert.Equal(t, 1, fake.listCalls)
	assert.Len(t, fake.getCalls, 10)
}

func TestFetchSkipsFailedMessages(t *testing.T) {
	fake := newFakeGmail()
	fake.add(textMessage("a", 3, "first", "one"))
	fake.add(textMessage("b", 2, "second", "two"))
	fake.add(textMessage("c", 1, "third", "three"))
	fake.failGet["b"] = true
	svc, _ := newTestService(t, fake)

	messages, stats := NewClient(svc).Fetch(context.Background(), "", 20)
	require.NoError(t, stats.Err)
	require.Len(t, messages, 2)
	assert.Equal(t, MessageID("a"), messages[0].ID)
	assert.Equal(t, MessageID("c"), messages[1].ID)
	assert.Equal(t, 3, stats.Listed)
	assert.Equal(t, 1, stats.Skipped)
	assert.True(t, stats.Partial())
}

func TestFetchListFailureYieldsEmptyBatch(t *testing.T) {
	fake := newFakeGmail()
	fake.add(textMessage("a", 1, "s", "b"))
	fake.listStatus = http.StatusInternalServerError
	svc, _ := newTestService(t, fake)

	messages, stats := NewClient(svc).Fetch(context.Background(), "anything", 5)
	assert.Empty(t, messages)
	require.Error(t, stats.Err)
	assert.Empty(t, fake.getCalls)
}

func TestFetchCountsBadDates(t *testing.T) {
	fake := newFakeGmail()
	msg := textMessage("a", 1, "s", "body")
	msg.Payload.Headers[2].Value = "yesterday-ish"
	fake.add(msg)
	svc, _ := newTestService(t, fake)

	messages, stats := NewClient(svc).Fetch(context.Background(), "", 5)
	require.Len(t, messages, 1)
	assert.Equal(t, 1, stats.BadDates)
	assert.Equal(t, "yesterday-ish", messages[0].FormattedDate)
}

func TestFetchStopsWhenContextCanceled(t *testing.T) {
	fake := newFakeGmail()
	fake.add(textMessage("a", 1, "s", "b"))
	svc, _ := newTestService(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	messages, stats := NewClient(svc).Fetch(ctx, "", 5)
	assert.Empty(t, messages)
	assert.Error(t, stats.Err)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, clampLimit(0))
	assert.Equal(t, DefaultLimit, clampLimit(-3))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, MaxLimit, clampLimit(10_000))
}
