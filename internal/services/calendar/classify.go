package calendar

import (
	"os"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"fincal/internal/domain/calendar"
	"fincal/pkg/errors"
)

// matcher tests normalized text (see normalizeText)
type matcher func(text string) bool

// rule pairs a matcher with the value it assigns
type rule[T any] struct {
	name   string
	match  matcher
	result T
}

// firstMatch evaluates rules in order and returns the first hit, or fallback
func firstMatch[T any](rules []rule[T], text string, fallback T) T {
	for _, r := range rules {
		if r.match(text) {
			return r.result
		}
	}
	return fallback
}

// anyOf matches when any phrase occurs in the text on word boundaries
func anyOf(phrases ...string) matcher {
	padded := make([]string, 0, len(phrases))
	for _, p := range phrases {
		padded = append(padded, " "+normalizeText(p)+" ")
	}
	return func(text string) bool {
		t := " " + text + " "
		for _, p := range padded {
			if strings.Contains(t, p) {
				return true
			}
		}
		return false
	}
}

// normalizeText lower-cases and collapses every non-alphanumeric run into one space
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Classification is the classifier verdict for one title
type Classification struct {
	Importance calendar.Importance
	Category   calendar.Category
	Title      string
}

// Classifier assigns importance, category and display title from rule tables.
// It holds no mutable state after construction.
type Classifier struct {
	importance   []rule[calendar.Importance]
	categories   []rule[calendar.Category]
	translations map[string]string
	// substring candidates, longest key first
	translationKeys []string
}

// NewClassifier builds a classifier with the built-in rules and the given
// translations merged over the defaults
func NewClassifier(translations map[string]string) *Classifier {
	merged := make(map[string]string, len(defaultTranslations)+len(translations))
	for k, v := range defaultTranslations {
		merged[strings.ToLower(strings.TrimSpace(k))] = v
	}
	for k, v := range translations {
		merged[strings.ToLower(strings.TrimSpace(k))] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	return &Classifier{
		importance:      importanceRules,
		categories:      categoryRules,
		translations:    merged,
		translationKeys: keys,
	}
}

// Classify maps a provider title or type string to importance, category and display title.
// Unknown input yields Medium / General and the title unchanged.
func (c *Classifier) Classify(titleOrType string) Classification {
	text := normalizeText(titleOrType)
	return Classification{
		Importance: firstMatch(c.importance, text, calendar.ImportanceMedium),
		Category:   firstMatch(c.categories, text, calendar.CategoryGeneral),
		Title:      c.Translate(titleOrType),
	}
}

// Translate looks the title up exactly, then by substring; a miss returns the title as is
func (c *Classifier) Translate(title string) string {
	key := strings.ToLower(strings.TrimSpace(title))
	if key == "" {
		return title
	}
	if v, ok := c.translations[key]; ok {
		return v
	}
	for _, k := range c.translationKeys {
		if strings.Contains(key, k) {
			return c.translations[k]
		}
	}
	return title
}

// Apply returns a copy of e with importance, category and title assigned.
// Earnings reports always land in the Earnings category.
func (c *Classifier) Apply(e calendar.CalendarEvent) calendar.CalendarEvent {
	verdict := c.Classify(e.Title)
	e.Importance = verdict.Importance
	e.Category = verdict.Category
	e.Title = verdict.Title
	if e.Kind == calendar.KindEarningsReport {
		e.Category = calendar.CategoryEarnings
	}
	return e
}

// LoadTranslations reads a YAML map of lower-cased provider title to display title.
// An empty path yields no overrides.
func LoadTranslations(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read translations %s", path)
	}
	var out map[string]string
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "parse translations: "+err.Error())
	}
	return out, nil
}
