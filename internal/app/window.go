package app

import (
	"fmt"
	"strings"
	"time"
)

// Window narrows a query to recently received mail.
type Window string

const (
	WindowAll   Window = "all"
	WindowToday Window = "today"
	Window3d    Window = "3d"
	Window7d    Window = "7d"
	Window30d   Window = "30d"
)

// Windows lists every window in the order the dashboard cycles through them.
var Windows = []Window{WindowAll, WindowToday, Window3d, Window7d, Window30d}

func ParseWindow(s string) (Window, error) {
	switch w := Window(strings.ToLower(strings.TrimSpace(s))); w {
	case "", WindowAll:
		return WindowAll, nil
	case WindowToday, Window3d, Window7d, Window30d:
		return w, nil
	case "1d":
		return WindowToday, nil
	default:
		return "", fmt.Errorf("unknown time window %q (want all, today, 3d, 7d or 30d)", s)
	}
}

// Days is how far back the window reaches. Zero means unbounded.
func (w Window) Days() int {
	switch w {
	case WindowToday:
		return 1
	case Window3d:
		return 3
	case Window7d:
		return 7
	case Window30d:
		return 30
	default:
		return 0
	}
}

// Next returns the window after w, wrapping around.
func (w Window) Next() Window {
	for i, candidate := range Windows {
		if candidate == w {
			return Windows[(i+1)%len(Windows)]
		}
	}
	return WindowAll
}

func (w Window) String() string {
	if w == "" {
		return string(WindowAll)
	}
	return string(w)
}

// BuildQuery appends an after: clause for w to query. Gmail interprets the
// date in the mailbox's time zone, so day granularity is the best we get.
func BuildQuery(query string, w Window, now time.Time) string {
	query = strings.TrimSpace(query)
	days := w.Days()
	if days == 0 {
		return query
	}
	clause := "after:" + now.AddDate(0, 0, -days).Format("2006/01/02")
	if query == "" {
		return clause
	}
	return query + " " + clause
}
