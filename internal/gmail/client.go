package gmail

import (
	"context"
	"fmt"

	"google.golang.org/api/gmail/v1"

	"go.withmatt.com/otpwatch/internal/log"
	"go.withmatt.com/otpwatch/internal/mailtext"
	"go.withmatt.com/otpwatch/internal/rate"
)

const (
	DefaultLimit = 20
	// MaxLimit is the largest page messages.list will return.
	MaxLimit = 500
)

// Client wraps Gmail API service
type Client struct {
	srv *gmail.Service

	// Limiter paces the per-message lookups of a fetch.
	Limiter rate.Limiter
	// Content selects how decoded bodies are presented.
	Content mailtext.Mode
}

// NewClient creates a new Gmail client
func NewClient(srv *gmail.Service) *Client {
	return &Client{
		srv:     srv,
		Limiter: rate.Unlimited{},
		Content: mailtext.ModeClean,
	}
}

// ListMessageIDs returns up to limit ids matching query, excluding spam and
// trash. Only the first page is read.
func (c *Client) ListMessageIDs(ctx context.Context, query string, limit int) ([]MessageID, error) {
	res, err := c.srv.Users.Messages.List("me").
		Q(query).
		MaxResults(int64(limit)).
		IncludeSpamTrash(false).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	ids := make([]MessageID, 0, len(res.Messages))
	for _, m := range res.Messages {
		if m == nil || m.Id == "" {
			continue
		}
		ids = append(ids, MessageID(m.Id))
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// GetMessage fetches a single message with full body. The bool reports
// whether its Date header parsed.
func (c *Client) GetMessage(ctx context.Context, id MessageID) (Message, bool, error) {
	msg, err := c.srv.Users.Messages.Get("me", string(id)).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return Message{}, false, err
	}
	message, dateOK := GmailToMessage(msg, c.Content)
	return message, dateOK, nil
}

// Fetch lists messages matching query and loads each one in turn, newest
// first. A failed lookup skips that message; a failed listing yields an
// empty batch with stats.Err set. Callers must not treat an empty batch as
// proof that nothing matched without checking stats.
func (c *Client) Fetch(ctx context.Context, query string, limit int) ([]Message, FetchStats) {
	var stats FetchStats
	limit = clampLimit(limit)

	ids, err := c.ListMessageIDs(ctx, query, limit)
	if err != nil {
		log.Warnf("unable to list messages for %q: %v", query, err)
		stats.Err = fmt.Errorf("list messages: %w", err)
		return nil, stats
	}
	stats.Listed = len(ids)
	log.Printf("Listed %d messages for %q", len(ids), query)

	messages := make([]Message, 0, len(ids))
	for _, id := range ids {
		if err := c.Limiter.Wait(ctx); err != nil {
			stats.Err = err
			stats.Skipped = len(ids) - len(messages)
			break
		}
		message, dateOK, err := c.GetMessage(ctx, id)
		if err != nil {
			log.Warnf("unable to fetch message %s: %v", id, err)
			stats.Skipped++
			continue
		}
		if !dateOK {
			log.Printf("Unparseable date on %s: %q", id, message.Date)
			stats.BadDates++
		}
		messages = append(messages, message)
	}

	SortByReceipt(messages)
	return messages, stats
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}
