package core

import (
	"errors"
	"strings"
)

// TimeFrame selects which transactions a view aggregates.
type TimeFrame string

const (
	FrameDay   TimeFrame = "day"
	FrameMonth TimeFrame = "month"
	FrameAll   TimeFrame = "all"
)

var ErrInvalidTimeFrame = errors.New("invalid time frame")

// ParseTimeFrame accepts day, month or all. An empty string means all.
func ParseTimeFrame(s string) (TimeFrame, error) {
	switch f := TimeFrame(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FrameAll, nil
	case FrameDay, FrameMonth, FrameAll:
		return f, nil
	default:
		return "", ErrInvalidTimeFrame
	}
}

func (f TimeFrame) Valid() bool {
	return f == FrameDay || f == FrameMonth || f == FrameAll
}
