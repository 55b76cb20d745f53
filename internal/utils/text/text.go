package text

import (
	"strconv"
	"strings"
	"time"
)

var delayUnits = []struct {
	suffix     string
	multiplier time.Duration
}{
	{"sec", time.Second},
	{"сек", time.Second},
	{"s", time.Second},
	{"min", time.Minute},
	{"мин", time.Minute},
	{"m", time.Minute},
	{"hour", time.Hour},
	{"h", time.Hour},
	{"ч", time.Hour},
}

// LookupDelay accepts "30", "30s", "5m", "1h" and their long and Russian spellings.
// ok is false for anything else.
func LookupDelay(raw string) (time.Duration, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if n, ok := parseUint(raw); ok {
		return time.Duration(n) * time.Second, true
	}
	for _, unit := range delayUnits {
		if !strings.HasSuffix(raw, unit.suffix) {
			continue
		}
		if n, ok := parseUint(strings.TrimSpace(strings.TrimSuffix(raw, unit.suffix))); ok {
			return time.Duration(n) * unit.multiplier, true
		}
	}
	return 0, false
}

func parseUint(s string) (int64, bool) {
	if s == "" || strings.HasPrefix(s, "+") {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return int64(n), true
}

// FormatUser prefers @username, then the first name, then fallback.
func FormatUser(username, firstName, fallback string) string {
	if username = strings.TrimSpace(username); username != "" {
		return "@" + strings.TrimPrefix(username, "@")
	}
	if firstName = strings.TrimSpace(firstName); firstName != "" {
		return firstName
	}
	return fallback
}

// NormalizeUsername strips whitespace and a leading "@".
func NormalizeUsername(username string) string {
	return strings.TrimPrefix(strings.TrimSpace(username), "@")
}
