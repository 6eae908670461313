package gmail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	gmailapi "google.golang.org/api/gmail/v1"

	"go.withmatt.com/otpwatch/internal/mailtext"
)

func TestHeaderValue(t *testing.T) {
	headers := []*gmailapi.MessagePartHeader{
		header("Subject", "Hi"),
		header("FROM", "someone@example.com"),
		nil,
		header("subject", "second"),
	}

	assert.Equal(t, "Hi", HeaderValue(headers, "Subject", NoSubject))
	assert.Equal(t, "Hi", HeaderValue(headers, "subject", NoSubject))
	assert.Equal(t, "someone@example.com", HeaderValue(headers, "From", NoSender))
	assert.Equal(t, NoDate, HeaderValue(headers, "Date", NoDate))
	assert.Equal(t, NoSubject, HeaderValue(nil, "Subject", NoSubject))
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{
			name:   "rfc5322",
			raw:    "Tue, 14 Nov 2023 22:13:20 +0000",
			want:   "2023-11-14 22:13:20",
			wantOK: true,
		},
		{
			name:   "keeps the header zone",
			raw:    "Wed, 15 Nov 2023 06:13:20 +0800",
			want:   "2023-11-15 06:13:20",
			wantOK: true,
		},
		{
			name:   "trailing zone comment",
			raw:    "Tue, 14 Nov 2023 22:13:20 +0000 (UTC)",
			want:   "2023-11-14 22:13:20",
			wantOK: true,
		},
		{
			name:   "broken zone falls back to wall clock",
			raw:    "Tue, 14 Nov 2023 22:13:20 +9999 (bogus)",
			want:   "2023-11-14 22:13:20",
			wantOK: true,
		},
		{
			name:   "unparseable kept verbatim",
			raw:    "sometime last week",
			want:   "sometime last week",
			wantOK: false,
		},
		{
			name:   "placeholder kept verbatim",
			raw:    NoDate,
			want:   NoDate,
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FormatDate(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestGmailToMessage(t *testing.T) {
	t.Run("multipart html body is cleaned", func(t *testing.T) {
		msg := &gmailapi.Message{
			Id:           "m1",
			InternalDate: 1700000000000,
			Payload: &gmailapi.MessagePart{
				MimeType: "multipart/alternative",
				Headers: []*gmailapi.MessagePartHeader{
					header("subject", "Your code"),
					header("from", "Poe <noreply@poe.com>"),
					header("date", "Tue, 14 Nov 2023 22:13:20 +0000"),
				},
				Parts: []*gmailapi.MessagePart{
					{
						MimeType: "text/html",
						Body: &gmailapi.MessagePartBody{
							Data: b64("<style>b{}</style><p>Your Poe verification code is:</p><p>123456</p>"),
						},
					},
				},
			},
		}

		got, dateOK := GmailToMessage(msg, mailtext.ModeClean)
		assert.True(t, dateOK)
		assert.Equal(t, Message{
			ID:            "m1",
			Subject:       "Your code",
			From:          "Poe <noreply@poe.com>",
			Date:          "Tue, 14 Nov 2023 22:13:20 +0000",
			FormattedDate: "2023-11-14 22:13:20",
			Content:       "Your Poe verification code is:\n123456",
			InternalDate:  1700000000000,
		}, got)
	})

	t.Run("raw mode keeps markup", func(t *testing.T) {
		msg := textMessage("m2", 1, "s", "<p>hi</p>")
		got, _ := GmailToMessage(msg, mailtext.ModeRaw)
		assert.Equal(t, "<p>hi</p>", got.Content)
	})

	t.Run("missing headers and body use placeholders", func(t *testing.T) {
		msg := &gmailapi.Message{Id: "m3", Payload: &gmailapi.MessagePart{}}
		got, dateOK := GmailToMessage(msg, mailtext.ModeClean)
		assert.True(t, dateOK, "absent date is not a parse failure")
		assert.Equal(t, NoSubject, got.Subject)
		assert.Equal(t, NoSender, got.From)
		assert.Equal(t, NoDate, got.Date)
		assert.Equal(t, NoDate, got.FormattedDate)
		assert.Equal(t, NoContent, got.Content)
	})

	t.Run("nil payload", func(t *testing.T) {
		got, _ := GmailToMessage(&gmailapi.Message{Id: "m4"}, mailtext.ModeClean)
		assert.Equal(t, NoContent, got.Content)
		assert.Equal(t, NoSubject, got.Subject)
	})

	t.Run("unparseable date reported", func(t *testing.T) {
		msg := textMessage("m5", 1, "s", "body")
		msg.Payload.Headers[2].Value = "not a date"
		got, dateOK := GmailToMessage(msg, mailtext.ModeClean)
		assert.False(t, dateOK)
		assert.Equal(t, "not a date", got.FormattedDate)
	})
}

func TestSortByReceipt(t *testing.T) {
	messages := []Message{
		{ID: "a", InternalDate: 1},
		{ID: "b", InternalDate: 3},
		{ID: "c", InternalDate: 2},
		{ID: "d", InternalDate: 3},
	}
	SortByReceipt(messages)

	ids := make([]MessageID, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []MessageID{"b", "d", "c", "a"}, ids)
}
