package publicshare

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"
)

// ivdPattern captures the single-quoted JavaScript string assigned to
// window['_DRIVE_ivd'] on a folder page.
var ivdPattern = regexp.MustCompile(`window\['_DRIVE_ivd'\]\s*=\s*'([^']*)'`)

// node is one entry of a folder listing.
type node struct {
	ID           string
	Name         string
	MIMEType     string
	ModifiedTime time.Time
}

// Payload entry positions.
const (
	idxID       = 0
	idxName     = 2
	idxMIMEType = 3
	idxModified = 9
	minEntryLen = 4
)

// parseFolderPage extracts the folder's children from page. A page with
// no payload is an empty folder.
func parseFolderPage(page []byte) ([]node, error) {
	m := ivdPattern.FindSubmatch(page)
	if m == nil {
		return nil, nil
	}

	decoded, err := unescapeJS(string(m[1]))
	if err != nil {
		return nil, fmt.Errorf("decode listing payload: %w", err)
	}

	var payload []json.RawMessage
	if err := json.Unmarshal([]byte(decoded), &payload); err != nil {
		return nil, fmt.Errorf("parse listing payload: %w", err)
	}

	// Current pages wrap the entries in an outer list.
	if len(payload) > 0 {
		var inner []json.RawMessage
		if json.Unmarshal(payload[0], &inner) == nil && len(inner) > 0 && isArray(inner[0]) {
			payload = inner
		}
	}

	nodes := make([]node, 0, len(payload))
	for _, raw := range payload {
		var entry []json.RawMessage
		if json.Unmarshal(raw, &entry) != nil || len(entry) < minEntryLen {
			continue
		}
		n := node{
			ID:       stringAt(entry, idxID),
			Name:     stringAt(entry, idxName),
			MIMEType: stringAt(entry, idxMIMEType),
		}
		if n.ID == "" || n.Name == "" || n.MIMEType == "" {
			continue
		}
		if len(entry) > idxModified {
			n.ModifiedTime = timeAt(entry[idxModified])
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func stringAt(entry []json.RawMessage, i int) string {
	var s string
	if json.Unmarshal(entry[i], &s) != nil {
		return ""
	}
	return s
}

// timeAt accepts an RFC 3339 string or Unix milliseconds.
func timeAt(raw json.RawMessage) time.Time {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC()
		}
		return time.Time{}
	}
	var ms int64
	if json.Unmarshal(raw, &ms) == nil && ms > 0 {
		return time.UnixMilli(ms).UTC()
	}
	return time.Time{}
}

var errBadEscape = errors.New("bad escape sequence")

// unescapeJS resolves the escapes used in a JavaScript string literal.
func unescapeJS(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", errBadEscape
		}
		switch s[i] {
		case 'x':
			v, err := hexAt(s, i+1, 2)
			if err != nil {
				return "", err
			}
			b.WriteRune(rune(v))
			i += 2
		case 'u':
			v, err := hexAt(s, i+1, 4)
			if err != nil {
				return "", err
			}
			r := rune(v)
			i += 4
			if utf16.IsSurrogate(r) && strings.HasPrefix(s[i+1:], `\u`) {
				if lo, err := hexAt(s, i+3, 4); err == nil {
					if pair := utf16.DecodeRune(r, rune(lo)); pair != utf8.RuneError {
						r = pair
						i += 6
					}
				}
			}
			b.WriteRune(r)
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String(), nil
}

func hexAt(s string, start, n int) (uint64, error) {
	if start+n > len(s) {
		return 0, errBadEscape
	}
	v, err := strconv.ParseUint(s[start:start+n], 16, 32)
	if err != nil {
		return 0, errBadEscape
	}
	return v, nil
}
