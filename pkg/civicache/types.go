package civicache

import (
	"maps"
	"strconv"
	"time"
)

// Kind names an entity kind.
type Kind string

// Entity kinds.
const (
	KindReport  Kind = "report"
	KindComment Kind = "comment"
	KindStats   Kind = "stats"
)

// Report statuses as sent by the server.
const (
	StatusPending    = "pendiente"
	StatusInProgress = "en_progreso"
	StatusResolved   = "resuelto"
	StatusArchived   = "archivado"
)

// Counter fields that accept deltas.
const (
	FieldUpvotes  = "upvotes_count"
	FieldComments = "comments_count"
)

// Key identifies one observable slot in the [Store].
//
// Detail keys carry the entity ID. List keys carry the query discriminator in
// ID (for comment lists, the parent report ID) plus the list's [Filter].
type Key struct {
	Kind   Kind
	List   bool
	ID     string
	Filter Filter
}

// DetailKey returns the key of a single entity's detail record.
func DetailKey(kind Kind, id string) Key {
	return Key{Kind: kind, ID: id}
}

// ReportListKey returns the key of a report list view.
func ReportListKey(query string, filter Filter) Key {
	return Key{Kind: KindReport, List: true, ID: query, Filter: filter}
}

// CommentListKey returns the key of the comment list under a report.
func CommentListKey(reportID string) Key {
	return Key{Kind: KindComment, List: true, ID: reportID}
}

// StatsKey returns the key of the global stats aggregate.
func StatsKey() Key {
	return Key{Kind: KindStats}
}

// String renders the key for logs and snapshots.
func (k Key) String() string {
	if k.Kind == KindStats {
		return "stats"
	}

	if !k.List {
		return string(k.Kind) + ":" + k.ID
	}

	s := string(k.Kind) + "s:" + k.ID

	if f := k.Filter.String(); f != "" {
		s += "?" + f
	}

	return s
}

// Presence reports what the cache knows about a key.
type Presence int

// Presence values.
const (
	// Unknown means never fetched, or physically removed.
	Unknown Presence = iota
	// Present means a live value is cached.
	Present
	// Gone means the key was tombstoned: known deleted, must not be refetched.
	Gone
)

func (p Presence) String() string {
	switch p {
	case Unknown:
		return "unknown"
	case Present:
		return "present"
	case Gone:
		return "gone"
	default:
		return "presence(" + strconv.Itoa(int(p)) + ")"
	}
}

// LatLng is a WGS84 coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Report is one civic incident.
type Report struct {
	ID            string    `json:"id"`
	AuthorID      string    `json:"author_id,omitempty"`
	AuthorName    string    `json:"author_name,omitempty"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Category      string    `json:"category,omitempty"`
	Status        string    `json:"status,omitempty"`
	Zone          string    `json:"zone,omitempty"`
	Lat           float64   `json:"lat"`
	Lng           float64   `json:"lng"`
	UpvotesCount  int       `json:"upvotes_count"`
	CommentsCount int       `json:"comments_count"`
	CreatedAt     time.Time `json:"created_at"`
	Optimistic    bool      `json:"is_optimistic,omitempty"`

	// Derived by the [Normalizer]; never sent by the server.
	AuthorLabel string `json:"author_label,omitempty"`
	CreatedDay  string `json:"created_day,omitempty"`
}

// Comment is a comment under a report.
type Comment struct {
	ID           string    `json:"id"`
	ReportID     string    `json:"report_id"`
	AuthorID     string    `json:"author_id,omitempty"`
	AuthorName   string    `json:"author_name,omitempty"`
	Body         string    `json:"body"`
	UpvotesCount int       `json:"upvotes_count"`
	CreatedAt    time.Time `json:"created_at"`
	Optimistic   bool      `json:"is_optimistic,omitempty"`

	AuthorLabel string `json:"author_label,omitempty"`
	CreatedDay  string `json:"created_day,omitempty"`
}

// Stats is the process-wide aggregate shown on the dashboard.
//
// It is maintained by deltas tied to lifecycle events and never recomputed
// by scanning cached entities.
type Stats struct {
	TotalReports    int            `json:"total_reports"`
	ResolvedReports int            `json:"resolved_reports"`
	TotalUsers      int            `json:"total_users"`
	ByCategory      map[string]int `json:"by_category,omitempty"`
}

// StatsDelta is a signed adjustment of [Stats].
type StatsDelta struct {
	TotalReports    int
	ResolvedReports int
	TotalUsers      int
	Category        string
	CategoryDelta   int
}

func (s Stats) clone() Stats {
	out := s
	out.ByCategory = maps.Clone(s.ByCategory)

	return out
}

func (s Stats) apply(d StatsDelta) Stats {
	out := s.clone()
	out.TotalReports = clampAdd(out.TotalReports, d.TotalReports)
	out.ResolvedReports = clampAdd(out.ResolvedReports, d.ResolvedReports)
	out.TotalUsers = clampAdd(out.TotalUsers, d.TotalUsers)

	if d.Category != "" && d.CategoryDelta != 0 {
		if out.ByCategory == nil {
			out.ByCategory = make(map[string]int)
		}

		out.ByCategory[d.Category] = clampAdd(out.ByCategory[d.Category], d.CategoryDelta)
	}

	return out
}

// clampAdd adds delta to v and floors the result at zero.
func clampAdd(v, delta int) int {
	v += delta
	if v < 0 {
		return 0
	}

	return v
}

func (r Report) counter(field string) (int, bool) {
	switch field {
	case FieldUpvotes:
		return r.UpvotesCount, true
	case FieldComments:
		return r.CommentsCount, true
	default:
		return 0, false
	}
}

func (r Report) withCounter(field string, v int) Report {
	switch field {
	case FieldUpvotes:
		r.UpvotesCount = v
	case FieldComments:
		r.CommentsCount = v
	}

	return r
}

func (c Comment) counter(field string) (int, bool) {
	if field == FieldUpvotes {
		return c.UpvotesCount, true
	}

	return 0, false
}

func (c Comment) withCounter(field string, v int) Comment {
	if field == FieldUpvotes {
		c.UpvotesCount = v
	}

	return c
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
