package chat

import (
	"strings"
	"unicode"
)

// DefaultAddressSuffix is appended to bare phone numbers.
const DefaultAddressSuffix = "@c.us"

// AllowList admits messages from a fixed set of sender addresses.
// An empty list admits nobody.
type AllowList struct {
	suffix  string
	allowed map[string]struct{}
}

// NewAllowList normalizes ids and returns the resulting list.
func NewAllowList(ids []string, suffix string) *AllowList {
	if strings.TrimSpace(suffix) == "" {
		suffix = DefaultAddressSuffix
	}
	list := &AllowList{suffix: suffix, allowed: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if normalized := list.Normalize(id); normalized != "" {
			list.allowed[normalized] = struct{}{}
		}
	}
	return list
}

// Normalize turns a bare phone number into a full address. Addresses that
// already carry a domain are returned trimmed and unchanged.
func (l *AllowList) Normalize(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if strings.Contains(id, "@") {
		return id
	}
	id = strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, id)
	if id == "" {
		return ""
	}
	return id + l.suffix
}

// Allows reports whether from is on the list.
func (l *AllowList) Allows(from string) bool {
	if l == nil {
		return false
	}
	_, ok := l.allowed[l.Normalize(from)]
	return ok
}

// Len reports the number of admitted addresses.
func (l *AllowList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.allowed)
}
