package calendar

import (
	"encoding/json"
	"fmt"
	"time"

	"fincal/pkg/errors"
)

// Window is the inclusive date range a sync run requests from a provider
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// NewWindow builds a window from two dates, truncated to UTC days
func NewWindow(from, to time.Time) Window {
	return Window{From: truncateDay(from), To: truncateDay(to)}
}

// ParseWindow builds a window from two DateLayout strings
func ParseWindow(from, to string) (Window, error) {
	f, err := time.Parse(DateLayout, from)
	if err != nil {
		return Window{}, errors.NewValidationError("from", "expected YYYY-MM-DD", from)
	}
	t, err := time.Parse(DateLayout, to)
	if err != nil {
		return Window{}, errors.NewValidationError("to", "expected YYYY-MM-DD", to)
	}
	w := NewWindow(f, t)
	return w, w.Validate()
}

// Validate checks window ordering
func (w Window) Validate() error {
	if w.From.IsZero() || w.To.IsZero() {
		return errors.NewValidationError("window", "bounds must be set", w.String())
	}
	if w.To.Before(w.From) {
		return errors.NewValidationError("window", "to is before from", w.String())
	}
	return nil
}

// Contains reports whether day falls inside the window
func (w Window) Contains(day time.Time) bool {
	d := truncateDay(day)
	return !d.Before(w.From) && !d.After(w.To)
}

// Days returns the number of calendar days covered
func (w Window) Days() int {
	return int(w.To.Sub(w.From).Hours()/24) + 1
}

// Split cuts the window into consecutive windows of at most maxDays days
func (w Window) Split(maxDays int) []Window {
	if maxDays <= 0 || w.Days() <= maxDays {
		return []Window{w}
	}

	var parts []Window
	for start := w.From; !start.After(w.To); start = start.AddDate(0, 0, maxDays) {
		end := start.AddDate(0, 0, maxDays-1)
		if end.After(w.To) {
			end = w.To
		}
		parts = append(parts, Window{From: start, To: end})
	}
	return parts
}

func (w Window) String() string {
	return fmt.Sprintf("%s..%s", w.From.Format(DateLayout), w.To.Format(DateLayout))
}

// WindowPolicy computes a sliding window relative to now
type WindowPolicy struct {
	BackDays      int `yaml:"back_days" json:"backDays"`
	ForwardDays   int `yaml:"forward_days" json:"forwardDays"`
	ForwardMonths int `yaml:"forward_months" json:"forwardMonths"`
}

// Resolve returns the window for now
func (p WindowPolicy) Resolve(now time.Time) Window {
	today := truncateDay(now)
	return Window{
		From: today.AddDate(0, 0, -p.BackDays),
		To:   today.AddDate(0, p.ForwardMonths, p.ForwardDays),
	}
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type windowJSON struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// MarshalJSON renders bounds as plain dates
func (w Window) MarshalJSON() ([]byte, error) {
	return json.Marshal(windowJSON{From: w.From.Format(DateLayout), To: w.To.Format(DateLayout)})
}

// UnmarshalJSON accepts plain-date bounds
func (w *Window) UnmarshalJSON(data []byte) error {
	var raw windowJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseWindow(raw.From, raw.To)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}
