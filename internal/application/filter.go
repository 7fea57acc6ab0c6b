package application

import (
	"sort"
	"strings"
	"time"

	"share2care/internal/domain"
	"share2care/internal/domain/entities"
	"share2care/pkg/eventtime"
)

// Query is the board's filter state.
type Query struct {
	Search   string
	Category string
	Location string
	SortBy   string
}

// DefaultQuery shows everything sorted by date.
func DefaultQuery() Query {
	return Query{Category: domain.FilterAll, Location: domain.FilterAll, SortBy: domain.SortByDate}
}

// Normalize fills blank selectors with their defaults and drops unknown sort keys.
func (q Query) Normalize() Query {
	q.Search = strings.TrimSpace(q.Search)
	if strings.TrimSpace(q.Category) == "" {
		q.Category = domain.FilterAll
	}
	if strings.TrimSpace(q.Location) == "" {
		q.Location = domain.FilterAll
	}
	switch q.SortBy {
	case domain.SortByDate, domain.SortByLocation, domain.SortByCategory, domain.SortByAvailability:
	default:
		q.SortBy = domain.SortByDate
	}
	return q
}

// FilterAndSort returns the events matching q in q's order. Ties keep their
// input order. Dates are read as calendar days in loc. events is not modified.
func FilterAndSort(events []entities.Event, q Query, loc *time.Location) []entities.Event {
	q = q.Normalize()
	term := strings.ToLower(q.Search)

	out := make([]entities.Event, 0, len(events))
	for _, e := range events {
		if term != "" && !matchesSearch(&e, term) {
			continue
		}
		if !isAll(q.Category) && !strings.EqualFold(strings.TrimSpace(e.Category), strings.TrimSpace(q.Category)) {
			continue
		}
		if !isAll(q.Location) && !strings.Contains(strings.ToLower(e.Location), strings.ToLower(strings.TrimSpace(q.Location))) {
			continue
		}
		out = append(out, e)
	}

	sortEvents(out, q.SortBy, loc)
	return out
}

func matchesSearch(e *entities.Event, term string) bool {
	for _, field := range []string{e.Title, e.Description, e.Location, e.OrganizerName} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func isAll(selector string) bool {
	s := strings.TrimSpace(selector)
	return s == "" || strings.EqualFold(s, domain.FilterAll)
}

func sortEvents(events []entities.Event, key string, loc *time.Location) {
	switch key {
	case domain.SortByLocation:
		sort.SliceStable(events, func(i, j int) bool { return events[i].Location < events[j].Location })
	case domain.SortByCategory:
		sort.SliceStable(events, func(i, j int) bool { return events[i].Category < events[j].Category })
	case domain.SortByAvailability:
		sort.SliceStable(events, func(i, j int) bool { return events[i].Available() > events[j].Available() })
	default:
		// The date is parsed once per event; unreadable dates go last.
		if loc == nil {
			loc = time.Local
		}
		keys := make([]time.Time, len(events))
		for i := range events {
			d, err := eventtime.ParseDate(events[i].EventDate, loc)
			if err == nil {
				keys[i] = d
			}
		}
		sort.Stable(byDate{events: events, keys: keys})
	}
}

type byDate struct {
	events []entities.Event
	keys   []time.Time
}

func (b byDate) Len() int { return len(b.events) }

func (b byDate) Swap(i, j int) {
	b.events[i], b.events[j] = b.events[j], b.events[i]
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
}

func (b byDate) Less(i, j int) bool {
	ki, kj := b.keys[i], b.keys[j]
	switch {
	case ki.IsZero():
		return false
	case kj.IsZero():
		return true
	}
	return ki.Before(kj)
}

// ActiveCategoryNames lists active categories once per name (case-insensitive),
// keeping the first spelling and order seen.
func ActiveCategoryNames(categories []entities.Category) []string {
	seen := make(map[string]struct{}, len(categories))
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		if !c.IsActive() {
			continue
		}
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		k := strings.ToLower(name)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		names = append(names, name)
	}
	return names
}

// DistinctLocations lists the locations offered by the location selector.
func DistinctLocations(events []entities.Event) []string {
	seen := make(map[string]struct{}, len(events))
	out := make([]string, 0, len(events))
	for _, e := range events {
		loc := strings.TrimSpace(e.Location)
		if loc == "" {
			continue
		}
		k := strings.ToLower(loc)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}
