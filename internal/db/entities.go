package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Scope tells whether a stop word applies to every group or to a single one.
type Scope int

const (
	ScopeGlobal Scope = iota
	ScopeGroup
)

func (s Scope) String() string {
	if s == ScopeGlobal {
		return "global"
	}
	return "group"
}

type (
	GroupSettings struct {
		GroupID             int64    `db:"group_id"`
		GroupName           string   `db:"group_name"`
		RequireSubscription bool     `db:"require_subscription"`
		TargetChannels      Channels `db:"target_channels"`
		SlowModeDelay       int64    `db:"slow_mode_delay"`
	}

	// StopWord is stored lower-cased. GroupID is zero for global words.
	StopWord struct {
		Word    string
		Scope   Scope
		GroupID int64
	}

	ViolationRecord struct {
		UserID            int64
		GroupID           int64
		Username          string
		FirstName         string
		Banned            bool
		ViolationsCount   int
		LastViolationTime time.Time
	}

	LastMessage struct {
		UserID          int64
		GroupID         int64
		LastMessageTime time.Time
	}

	UserProfile struct {
		UserID    int64
		Username  string
		FirstName string
		LastName  string
		LastSeen  time.Time
	}

	// Channels is an ordered list of channel references kept as a JSON array.
	Channels []string
)

func (c Channels) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	raw, err := json.Marshal([]string(c))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (c *Channels) Scan(v any) error {
	if v == nil {
		*c = Channels{}
		return nil
	}
	var data []byte
	switch value := v.(type) {
	case string:
		data = []byte(value)
	case []byte:
		data = value
	default:
		return fmt.Errorf("cannot scan type %T into Channels", v)
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*c = list
	return nil
}

// Contains reports whether channel is present, ignoring a leading "@" and case.
func (c Channels) Contains(channel string) bool {
	return c.indexOf(channel) >= 0
}

func (c Channels) indexOf(channel string) int {
	needle := NormalizeChannel(channel)
	for i, existing := range c {
		if NormalizeChannel(existing) == needle {
			return i
		}
	}
	return -1
}

// Delay returns SlowModeDelay as a duration.
func (s *GroupSettings) Delay() time.Duration {
	return time.Duration(s.SlowModeDelay) * time.Second
}

// HasViolationsAtLeast is safe to call on a nil record.
func (r *ViolationRecord) HasViolationsAtLeast(threshold int) bool {
	return r != nil && r.ViolationsCount >= threshold
}

func (r *ViolationRecord) IsBanned() bool {
	return r != nil && r.Banned
}
