package gmail

import (
	"cmp"
	"net/mail"
	"regexp"
	"slices"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"

	"go.withmatt.com/otpwatch/internal/mailtext"
)

// GmailToPart converts the API's MIME tree into our Part tree. A part with
// children is a branch and its own body data is ignored.
func GmailToPart(p *gmail.MessagePart) *Part {
	if p == nil {
		return nil
	}
	part := &Part{MimeType: p.MimeType}
	if len(p.Parts) == 0 {
		if p.Body != nil {
			part.Data = p.Body.Data
		}
		return part
	}
	part.Parts = make([]*Part, 0, len(p.Parts))
	for _, child := range p.Parts {
		if child == nil {
			continue
		}
		part.Parts = append(part.Parts, GmailToPart(child))
	}
	return part
}

// GmailToMessage converts a full-format Gmail API message. The second return
// reports whether the Date header parsed.
func GmailToMessage(msg *gmail.Message, mode mailtext.Mode) (Message, bool) {
	message := Message{
		ID:           MessageID(msg.Id),
		Subject:      NoSubject,
		From:         NoSender,
		Date:         NoDate,
		InternalDate: msg.InternalDate,
	}

	var body string
	if msg.Payload != nil {
		message.Subject = HeaderValue(msg.Payload.Headers, "Subject", NoSubject)
		message.From = HeaderValue(msg.Payload.Headers, "From", NoSender)
		message.Date = HeaderValue(msg.Payload.Headers, "Date", NoDate)
		body = DecodeBody(GmailToPart(msg.Payload))
	}

	formatted, ok := FormatDate(message.Date)
	message.FormattedDate = formatted

	message.Content = mailtext.Render(mode, body)
	if strings.TrimSpace(message.Content) == "" {
		message.Content = NoContent
	}
	return message, ok || message.Date == NoDate
}

// HeaderValue returns the first header named name, compared
// case-insensitively, or fallback when there is none.
func HeaderValue(headers []*gmail.MessagePartHeader, name string, fallback string) string {
	for _, h := range headers {
		if h != nil && strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return fallback
}

var (
	tzOffsetRe  = regexp.MustCompile(`\s[+-]\d{4}.*$`)
	dateLayouts = []string{
		"Mon, 2 Jan 2006 15:04:05",
		"2 Jan 2006 15:04:05",
		"Mon, 2 Jan 2006 15:04",
		"2 Jan 2006 15:04",
	}
)

// ParseDate parses an RFC 5322 Date header, tolerating a few malformed
// forms seen in the wild.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := mail.ParseDate(raw); err == nil {
		return t, true
	}
	// Fall back to the wall clock part when the zone is garbage.
	noTZ := strings.TrimSpace(tzOffsetRe.ReplaceAllString(raw, ""))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, noTZ); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders raw in DateLayout using the header's own zone. When raw
// does not parse it is returned unchanged.
func FormatDate(raw string) (string, bool) {
	t, ok := ParseDate(raw)
	if !ok {
		return raw, false
	}
	return t.Format(DateLayout), true
}

// SortByReceipt orders messages newest first by InternalDate.
func SortByReceipt(messages []Message) {
	slices.SortStableFunc(messages, func(a, b Message) int {
		return cmp.Compare(b.InternalDate, a.InternalDate)
	})
}
