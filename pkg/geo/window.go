package geo

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Window is a daily time-of-day range such as a pickup or drop-off slot.
// From is inclusive, To exclusive, both minutes past midnight.
type Window struct {
	From int
	To   int
}

// Contains reports whether the clock time of t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	return m >= w.From && m < w.To
}

func (w Window) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.From/60, w.From%60, w.To/60, w.To%60)
}

// WindowSet is the set of daily ranges during which location sharing is
// permitted. Outside every window, positions stay on the device.
type WindowSet []Window

// Contains reports whether t falls inside any window of the set.
func (ws WindowSet) Contains(t time.Time) bool {
	for _, w := range ws {
		if w.Contains(t) {
			return true
		}
	}
	return false
}

// ParseWindows parses ranges in "HH:MM-HH:MM" form.
func ParseWindows(specs []string) (WindowSet, error) {
	var ws WindowSet
	for _, s := range specs {
		w, err := parseWindow(s)
		if err != nil {
			return nil, err
		}
		ws = append(ws, w)
	}
	return ws, nil
}

func parseWindow(s string) (Window, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("invalid time window %q, want HH:MM-HH:MM", s)
	}

	from, err := parseClock(parts[0])
	if err != nil {
		return Window{}, fmt.Errorf("invalid time window %q: %w", s, err)
	}
	to, err := parseClock(parts[1])
	if err != nil {
		return Window{}, fmt.Errorf("invalid time window %q: %w", s, err)
	}
	if to <= from {
		return Window{}, fmt.Errorf("invalid time window %q: end not after start", s)
	}

	return Window{From: from, To: to}, nil
}

func parseClock(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}
