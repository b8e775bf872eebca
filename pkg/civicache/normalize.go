package civicache

// AnonymousLabel is the author label of entities without an author name.
const AnonymousLabel = "Anónimo"

// Normalizer recomputes derived display fields. It must be pure.
//
// The cache runs it when an entity is stored and again after a patch that
// changed the author or the creation time.
type Normalizer interface {
	NormalizeReport(r Report) Report
	NormalizeComment(c Comment) Comment
}

// DefaultNormalizer fills AuthorLabel and CreatedDay (UTC, YYYY-MM-DD).
type DefaultNormalizer struct{}

// NormalizeReport implements [Normalizer].
func (DefaultNormalizer) NormalizeReport(r Report) Report {
	r.AuthorLabel = authorLabel(r.AuthorName)
	r.CreatedDay = ""

	if !r.CreatedAt.IsZero() {
		r.CreatedDay = r.CreatedAt.UTC().Format("2006-01-02")
	}

	return r
}

// NormalizeComment implements [Normalizer].
func (DefaultNormalizer) NormalizeComment(c Comment) Comment {
	c.AuthorLabel = authorLabel(c.AuthorName)
	c.CreatedDay = ""

	if !c.CreatedAt.IsZero() {
		c.CreatedDay = c.CreatedAt.UTC().Format("2006-01-02")
	}

	return c
}

func authorLabel(name string) string {
	if name == "" {
		return AnonymousLabel
	}

	return name
}

func reportNeedsNormalize(before, after Report) bool {
	return before.AuthorID != after.AuthorID ||
		before.AuthorName != after.AuthorName ||
		!before.CreatedAt.Equal(after.CreatedAt)
}

func commentNeedsNormalize(before, after Comment) bool {
	return before.AuthorID != after.AuthorID ||
		before.AuthorName != after.AuthorName ||
		!before.CreatedAt.Equal(after.CreatedAt)
}
