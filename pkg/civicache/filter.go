package civicache

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// DiscriminatorAll is the opaque discriminator that matches every entity.
const DiscriminatorAll = "all"

// Filter distinguishes one list view's query from another.
//
// Discriminator is the opaque form: "all" or a "north,south,east,west"
// bounding box (the map tile the list was fetched for). The structured fields
// narrow further; zero values mean "not filtered on". Center is only
// considered when RadiusMeters > 0.
//
// Filter is comparable so it can be part of a [Key].
type Filter struct {
	Discriminator string
	Category      string
	Status        string
	Zone          string
	Center        LatLng
	RadiusMeters  float64
	SearchTerm    string
}

// IsZero reports whether the filter constrains nothing.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Matches reports whether r belongs to a list fetched with f.
//
// All supplied conditions must hold. A discriminator that is neither "all"
// nor a parseable bounding box matches everything.
//
// This mirrors the server's list filtering on a best-effort basis only. If
// the two drift, a created report can appear in a list that a refetch would
// not return, or the other way round.
func Matches(r Report, f Filter) bool {
	if f.Discriminator != "" && f.Discriminator != DiscriminatorAll {
		if b, ok := ParseBounds(f.Discriminator); ok && !b.Contains(r.Lat, r.Lng) {
			return false
		}
	}

	if f.Category != "" && r.Category != f.Category {
		return false
	}

	if f.Status != "" && r.Status != f.Status {
		return false
	}

	if f.Zone != "" && r.Zone != f.Zone {
		return false
	}

	if f.RadiusMeters > 0 && Distance(r.Lat, r.Lng, f.Center.Lat, f.Center.Lng) > f.RadiusMeters {
		return false
	}

	if f.SearchTerm != "" {
		haystack := strings.ToLower(r.Title + " " + r.Description)
		if !strings.Contains(haystack, strings.ToLower(f.SearchTerm)) {
			return false
		}
	}

	return true
}

// matchesComment decides comment list membership: a comment list holds the
// comments of exactly one report.
func matchesComment(c Comment, key Key) bool {
	return c.ReportID == key.ID
}

// String renders the filter as a query string with keys in fixed order.
// The zero filter renders as "".
func (f Filter) String() string {
	var parts []string

	add := func(k, v string) {
		parts = append(parts, k+"="+url.QueryEscape(v))
	}

	if f.Discriminator != "" {
		add("d", f.Discriminator)
	}

	if f.Category != "" {
		add("category", f.Category)
	}

	if f.Status != "" {
		add("status", f.Status)
	}

	if f.Zone != "" {
		add("zone", f.Zone)
	}

	if f.RadiusMeters > 0 {
		add("near", formatFloat(f.Center.Lat)+","+formatFloat(f.Center.Lng))
		add("radius", formatFloat(f.RadiusMeters))
	}

	if f.SearchTerm != "" {
		add("q", f.SearchTerm)
	}

	return strings.Join(parts, "&")
}

// ParseFilter parses the form produced by [Filter.String]. A string without
// '=' is taken as a bare discriminator ("all", or a bounding box).
func ParseFilter(s string) (Filter, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Filter{}, nil
	}

	if !strings.Contains(s, "=") {
		return Filter{Discriminator: s}, nil
	}

	values, err := url.ParseQuery(s)
	if err != nil {
		return Filter{}, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}

	f := Filter{
		Discriminator: values.Get("d"),
		Category:      values.Get("category"),
		Status:        values.Get("status"),
		Zone:          values.Get("zone"),
		SearchTerm:    values.Get("q"),
	}

	near, radius := values.Get("near"), values.Get("radius")
	if (near == "") != (radius == "") {
		return Filter{}, fmt.Errorf("%w: near and radius must be given together", ErrInvalidFilter)
	}

	if near != "" {
		center, ok := parseLatLng(near)
		if !ok {
			return Filter{}, fmt.Errorf("%w: near=%q", ErrInvalidFilter, near)
		}

		meters, parseErr := strconv.ParseFloat(radius, 64)
		if parseErr != nil || meters <= 0 || math.IsInf(meters, 0) || math.IsNaN(meters) {
			return Filter{}, fmt.Errorf("%w: radius=%q", ErrInvalidFilter, radius)
		}

		f.Center = center
		f.RadiusMeters = meters
	}

	return f, nil
}

func parseLatLng(s string) (LatLng, bool) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return LatLng{}, false
	}

	lat, ok := parseFinite(latStr)
	if !ok {
		return LatLng{}, false
	}

	lng, ok := parseFinite(lngStr)
	if !ok {
		return LatLng{}, false
	}

	return LatLng{Lat: lat, Lng: lng}, true
}

func parseFinite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return f, true
}
