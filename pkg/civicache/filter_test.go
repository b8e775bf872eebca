package civicache_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/civicache/pkg/civicache"
)

func Test_Matches_Filters_By_Bounding_Box_When_Discriminator_Is_Bounds(t *testing.T) {
	t.Parallel()

	r := newReport("r-1", 10, 10)

	assert.True(t, civicache.Matches(r, civicache.Filter{Discriminator: "20,0,20,0"}))
	assert.False(t, civicache.Matches(r, civicache.Filter{Discriminator: "5,0,5,0"}))
}

func Test_Matches_Includes_Edges_When_Point_Is_On_Boundary(t *testing.T) {
	t.Parallel()

	r := newReport("r-1", 20, 0)

	assert.True(t, civicache.Matches(r, civicache.Filter{Discriminator: "20,0,20,0"}))
}

func Test_Matches_Fails_Open_When_Discriminator_Is_Malformed(t *testing.T) {
	t.Parallel()

	r := newReport("r-1", 89, 179)

	for _, d := range []string{"", "all", "garbage", "1,2,3", "a,b,c,d", "NaN,0,0,0"} {
		assert.Truef(t, civicache.Matches(r, civicache.Filter{Discriminator: d}), "discriminator %q", d)
	}
}

func Test_Matches_Requires_All_Conditions_When_Several_Are_Set(t *testing.T) {
	t.Parallel()

	r := newReport("r-1", 19.43, -99.13)
	r.Zone = "centro"
	r.Title = "Fuga de AGUA"
	r.Description = "en la esquina"

	f := civicache.Filter{
		Discriminator: "all",
		Category:      "baches",
		Status:        civicache.StatusPending,
		Zone:          "centro",
		SearchTerm:    "agua",
	}

	assert.True(t, civicache.Matches(r, f))

	other := f
	other.Category = "alumbrado"
	assert.False(t, civicache.Matches(r, other))

	other = f
	other.Status = civicache.StatusResolved
	assert.False(t, civicache.Matches(r, other))

	other = f
	other.Zone = "norte"
	assert.False(t, civicache.Matches(r, other))

	other = f
	other.SearchTerm = "ESQUINA"
	assert.True(t, civicache.Matches(r, other), "search covers description, case-insensitively")

	other.SearchTerm = "semaforo"
	assert.False(t, civicache.Matches(r, other))
}

func Test_Matches_Uses_Radius_When_Radius_Is_Positive(t *testing.T) {
	t.Parallel()

	r := newReport("r-1", 0, 0.01) // ~1.1km east of the origin

	near := civicache.Filter{Center: civicache.LatLng{}, RadiusMeters: 2000}
	far := civicache.Filter{Center: civicache.LatLng{}, RadiusMeters: 500}

	assert.True(t, civicache.Matches(r, near))
	assert.False(t, civicache.Matches(r, far))
}

func Test_Distance_Returns_Haversine_Meters(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 111194.93, civicache.Distance(0, 0, 0, 1), 1)
	assert.InDelta(t, 0, civicache.Distance(19.4, -99.1, 19.4, -99.1), 1e-9)
}

func Test_ParseBounds_Returns_False_When_Not_Four_Finite_Numbers(t *testing.T) {
	t.Parallel()

	b, ok := civicache.ParseBounds(" 20, 0 ,20,0")
	require.True(t, ok)
	assert.Equal(t, civicache.Bounds{North: 20, South: 0, East: 20, West: 0}, b)
	assert.Equal(t, "20,0,20,0", b.String())

	for _, s := range []string{"", "1,2,3", "1,2,3,4,5", "a,b,c,d", "Inf,0,0,0"} {
		_, ok := civicache.ParseBounds(s)
		assert.Falsef(t, ok, "input %q", s)
	}
}

func Test_ParseFilter_Round_Trips_When_Filter_Is_Rendered(t *testing.T) {
	t.Parallel()

	want := civicache.Filter{
		Discriminator: "all",
		Category:      "baches",
		Status:        civicache.StatusInProgress,
		Center:        civicache.LatLng{Lat: 19.4, Lng: -99.1},
		RadiusMeters:  500,
		SearchTerm:    "fuga de agua",
	}

	s := want.String()
	assert.Equal(t, "d=all&category=baches&status=en_progreso&near=19.4%2C-99.1&radius=500&q=fuga+de+agua", s)

	got, err := civicache.ParseFilter(s)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("filter mismatch (-want +got):\n%s", diff)
	}
}

func Test_ParseFilter_Returns_Discriminator_When_Input_Has_No_Equals(t *testing.T) {
	t.Parallel()

	f, err := civicache.ParseFilter("20,0,20,0")
	require.NoError(t, err)
	assert.Equal(t, civicache.Filter{Discriminator: "20,0,20,0"}, f)

	f, err = civicache.ParseFilter("  ")
	require.NoError(t, err)
	assert.True(t, f.IsZero())
}

func Test_ParseFilter_Returns_ErrInvalidFilter_When_Input_Is_Malformed(t *testing.T) {
	t.Parallel()

	for _, s := range []string{
		"near=1,2",
		"radius=10",
		"near=x,2&radius=10",
		"near=1,2&radius=-5",
		"near=1,2&radius=abc",
		"d=%zz",
	} {
		_, err := civicache.ParseFilter(s)
		assert.ErrorIsf(t, err, civicache.ErrInvalidFilter, "input %q", s)
	}
}

func Test_Key_String_Renders_Readable_Form(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "report:r-1", civicache.DetailKey(civicache.KindReport, "r-1").String())
	assert.Equal(t, "comments:r-42", civicache.CommentListKey("r-42").String())
	assert.Equal(t, "stats", civicache.StatsKey().String())
	assert.Equal(t, "reports:map?d=all&zone=centro",
		civicache.ReportListKey("map", civicache.Filter{Discriminator: "all", Zone: "centro"}).String())
}

func FuzzParseFilter_String_Round_Trips(f *testing.F) {
	for _, seed := range []string{
		"",
		"all",
		"20,0,20,0",
		"d=all&category=baches&status=en_progreso&near=19.4%2C-99.1&radius=500&q=fuga+de+agua",
		"zone=centro",
		"near=1,2&radius=0.5",
		"d=a%26b",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, s string) {
		parsed, err := civicache.ParseFilter(s)
		if err != nil {
			return
		}

		again, err := civicache.ParseFilter(parsed.String())
		if err != nil {
			t.Fatalf("ParseFilter(%q) of rendered %q: %v", s, parsed.String(), err)
		}

		if again != parsed {
			t.Fatalf("round trip of %q: got %+v, want %+v", s, again, parsed)
		}

		_ = civicache.Matches(civicache.Report{ID: "r-1", Lat: 19.4, Lng: -99.1}, parsed)
	})
}
