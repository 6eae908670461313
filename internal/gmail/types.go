package gmail

import "time"

const (
	NoSubject = "(no subject)"
	NoDate    = "(no date)"
	NoSender  = "(no sender)"
	NoContent = "(no content)"
)

// DateLayout is the normalized form of a parsed Date header.
const DateLayout = "2006-01-02 15:04:05"

type MessageID string

// Message is one normalized email. It is rebuilt on every fetch and never
// cached.
type Message struct {
	ID      MessageID `json:"id"`
	Subject string    `json:"subject"`
	From    string    `json:"from"`
	// Date is the Date header as sent.
	Date string `json:"date"`
	// FormattedDate is Date normalized to DateLayout, or Date verbatim when
	// it could not be parsed.
	FormattedDate string `json:"formatted_date"`
	Content       string `json:"content"`
	// InternalDate is the provider's receipt time in ms since epoch. Only
	// used for ordering.
	InternalDate int64 `json:"internal_date"`
}

// Received returns InternalDate as a time.
func (m Message) Received() time.Time {
	return time.UnixMilli(m.InternalDate)
}

// Part is a node of a message's MIME tree: a leaf carrying base64url data,
// or a branch with ordered children.
type Part struct {
	MimeType string
	Data     string
	Parts    []*Part
}

func (p *Part) IsLeaf() bool {
	return len(p.Parts) == 0
}

// FetchStats reports what a fetch had to skip so callers can tell an empty
// mailbox apart from a failed listing.
type FetchStats struct {
	Listed   int
	Skipped  int
	BadDates int
	// Err is set when the listing call itself failed; the batch is empty.
	Err error
}

func (s FetchStats) Partial() bool {
	return s.Skipped > 0 || s.Err != nil
}
