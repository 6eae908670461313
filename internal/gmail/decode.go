package gmail

import (
	"encoding/base64"
	"strings"
)

// DecodeBody concatenates the decoded text of every leaf under p in
// pre-order. Branch nodes contribute only through their children.
func DecodeBody(p *Part) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	decodeInto(&b, p)
	return b.String()
}

func decodeInto(b *strings.Builder, p *Part) {
	if p.IsLeaf() {
		b.WriteString(decodeData(p.Data))
		return
	}
	for _, child := range p.Parts {
		if child != nil {
			decodeInto(b, child)
		}
	}
}

// decodeData is deliberately lossy: characters outside the base64 alphabets
// are discarded, a dangling sextet is dropped, and invalid UTF-8 is replaced
// with U+FFFD. It never fails.
func decodeData(data string) string {
	if data == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(data))
	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteByte(c)
		case c == '+':
			b.WriteByte('-')
		case c == '/':
			b.WriteByte('_')
		}
	}
	normalized := b.String()
	if len(normalized)%4 == 1 {
		normalized = normalized[:len(normalized)-1]
	}

	decoded, err := base64.RawURLEncoding.DecodeString(normalized)
	if err != nil {
		return ""
	}
	return strings.ToValidUTF8(string(decoded), "\uFFFD")
}
