package seriesorder

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/openshelf/openshelf/pkg/models"
)

var orderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)#(\d+)`),
	regexp.MustCompile(`(?i)Book\s+(\d+)`),
	regexp.MustCompile(`(?i)Vol\.?\s+(\d+)`),
}

var yearRE = regexp.MustCompile(`^\d{4}$`)

var dateLayouts = []string{time.RFC3339, "2006-01-02", "2006-01"}

// ExtractOrder pulls a series position out of a title such as
// "The Final Empire (Mistborn #1)", "Book 2" or "Vol. 3".
func ExtractOrder(title string) (int, bool) {
	for _, re := range orderPatterns {
		m := re.FindStringSubmatch(title)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return n, true
	}
	return 0, false
}

// ParseDate understands the date shapes catalogs return. ok is false for
// anything it can't read.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if yearRE.MatchString(s) {
		year, _ := strconv.Atoi(s)
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Resolve assigns SeriesOrder to every item. Orders found in titles replace
// whatever the item had. When the orders don't give every item a distinct
// positive position, they're all discarded and the items are numbered 1..N
// by published date instead, with unreadable dates last. It reports whether
// that date fallback ran. The slice itself is not reordered.
func Resolve(items []*models.RecommendationItem) bool {
	for _, item := range items {
		if n, ok := ExtractOrder(item.Title); ok {
			order := n
			item.SeriesOrder = &order
		}
	}

	positive := 0
	distinct := map[int]bool{}
	for _, item := range items {
		if item.SeriesOrder != nil && *item.SeriesOrder > 0 {
			positive++
			distinct[*item.SeriesOrder] = true
		}
	}
	if positive == len(items) && len(distinct) == positive {
		return false
	}

	byDate := make([]*models.RecommendationItem, len(items))
	copy(byDate, items)
	sort.SliceStable(byDate, func(i, j int) bool {
		ti, iok := ParseDate(byDate[i].PublishedDate)
		tj, jok := ParseDate(byDate[j].PublishedDate)
		switch {
		case iok && jok:
			return ti.Before(tj)
		case iok:
			return true
		default:
			return false
		}
	})
	for i, item := range byDate {
		order := i + 1
		item.SeriesOrder = &order
	}
	return true
}

// Sort orders items by SeriesOrder, unordered items last, ties by ID.
func Sort(items []*models.RecommendationItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].SeriesOrder, items[j].SeriesOrder
		switch {
		case a != nil && b != nil && *a != *b:
			return *a < *b
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		default:
			return items[i].ID < items[j].ID
		}
	})
}
