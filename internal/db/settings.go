package db

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	ngerrors "github.com/iamwavecut/ngguard/internal/errors"
)

// DefaultGroupSettings is what a group gets on its first observed message.
func DefaultGroupSettings(groupID int64, groupName string, slowModeDelay time.Duration) *GroupSettings {
	return &GroupSettings{
		GroupID:             groupID,
		GroupName:           groupName,
		RequireSubscription: true,
		TargetChannels:      Channels{},
		SlowModeDelay:       int64(slowModeDelay / time.Second),
	}
}

// NormalizeChannel turns "@Name", "name" and " @name " into "@name".
// Numeric chat ids such as "-1001234567890" are kept as they are.
func NormalizeChannel(channel string) string {
	channel = strings.TrimSpace(channel)
	if _, err := strconv.ParseInt(channel, 10, 64); err == nil {
		return channel
	}
	channel = strings.TrimPrefix(channel, "@")
	if channel == "" {
		return ""
	}
	return "@" + strings.ToLower(channel)
}

func (s *GroupSettings) SetRequireSubscription(required bool) {
	s.RequireSubscription = required
}

func (s *GroupSettings) SetSlowModeDelay(seconds int64) error {
	if seconds < 0 {
		return errors.Wrapf(ngerrors.ErrInvalidInput, "negative slow mode delay %d", seconds)
	}
	s.SlowModeDelay = seconds
	return nil
}

func (s *GroupSettings) SetGroupName(name string) {
	s.GroupName = name
}

// AddTargetChannel appends channel unless it is already present; reports whether it was added.
func (s *GroupSettings) AddTargetChannel(channel string) (bool, error) {
	normalized := NormalizeChannel(channel)
	if normalized == "" {
		return false, errors.Wrap(ngerrors.ErrInvalidInput, "empty channel")
	}
	if s.TargetChannels.Contains(normalized) {
		return false, nil
	}
	s.TargetChannels = append(s.TargetChannels, normalized)
	return true, nil
}

// RemoveTargetChannel keeps the order of the remaining channels.
func (s *GroupSettings) RemoveTargetChannel(channel string) bool {
	idx := s.TargetChannels.indexOf(channel)
	if idx < 0 {
		return false
	}
	channels := make(Channels, 0, len(s.TargetChannels)-1)
	channels = append(channels, s.TargetChannels[:idx]...)
	channels = append(channels, s.TargetChannels[idx+1:]...)
	s.TargetChannels = channels
	return true
}
