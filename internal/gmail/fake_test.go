package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// fakeGmail serves the slice of the Gmail REST API the client uses.
type fakeGmail struct {
	mu sync.Mutex

	messages map[string]*gmailapi.Message
	// order is the id order returned by list, regardless of maxResults.
	order []string

	listStatus int
	failGet    map[string]bool

	listCalls   int
	getCalls    []string
	profileHits int
	lastList    map[string]string
}

func newFakeGmail() *fakeGmail {
	return &fakeGmail{
		messages: map[string]*gmailapi.Message{},
		failGet:  map[string]bool{},
	}
}

func (f *fakeGmail) add(msg *gmailapi.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[msg.Id] = msg
	f.order = append(f.order, msg.Id)
}

func (f *fakeGmail) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const prefix = "/gmail/v1/users/me/"
	path := strings.TrimPrefix(r.URL.Path, prefix)
	switch {
	case path == "profile":
		f.profileHits++
		writeJSON(w, map[string]any{"emailAddress": "me@example.com"})
	case path == "messages":
		f.listCalls++
		q := r.URL.Query()
		f.lastList = map[string]string{
			"q":                q.Get("q"),
			"maxResults":       q.Get("maxResults"),
			"includeSpamTrash": q.Get("includeSpamTrash"),
		}
		if f.listStatus != 0 {
			http.Error(w, `{"error":{"code":500,"message":"backend error"}}`, f.listStatus)
			return
		}
		refs := make([]map[string]string, 0, len(f.order))
		for _, id := range f.order {
			refs = append(refs, map[string]string{"id": id, "threadId": id})
		}
		writeJSON(w, map[string]any{"messages": refs})
	case strings.HasPrefix(path, "messages/"):
		id := strings.TrimPrefix(path, "messages/")
		f.getCalls = append(f.getCalls, id)
		msg, ok := f.messages[id]
		if !ok || f.failGet[id] {
			http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
			return
		}
		writeJSON(w, msg)
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestService(t *testing.T, h http.Handler) (*gmailapi.Service, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	svc, err := gmailapi.NewService(
		context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)
	return svc, srv
}

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func header(name, value string) *gmailapi.MessagePartHeader {
	return &gmailapi.MessagePartHeader{Name: name, Value: value}
}

func textMessage(id string, internalDate int64, subject, body string) *gmailapi.Message {
	return &gmailapi.Message{
		Id:           id,
		InternalDate: internalDate,
		Payload: &gmailapi.MessagePart{
			MimeType: "text/plain",
			Headers: []*gmailapi.MessagePartHeader{
				header("Subject", subject),
				header("From", "Poe <noreply@poe.com>"),
				header("Date", "Tue, 14 Nov 2023 22:13:20 +0000"),
			},
			Body: &gmailapi.MessagePartBody{Data: b64(body)},
		},
	}
}
