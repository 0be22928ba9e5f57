package matching

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internavi/schoolfinder/internal/entities"
)

func ptr[T any](v T) *T {
	return &v
}

func neutralPrefs() Preferences {
	return Preferences{
		StudyLevel:          "none",
		PreferredLocation:   Any,
		BudgetRange:         "",
		ProgramInterest:     Any,
		AdmissionPreference: "none",
	}
}

func TestScore_Scenario(t *testing.T) {
	school := entities.School{
		DegreeType:     ptr("4"),
		State:          ptr("CA"),
		TuitionInState: ptr(20000.0),
		AdmissionRate:  ptr(0.4),
	}
	prefs := Preferences{
		StudyLevel:          "undergraduate",
		PreferredLocation:   "CA",
		BudgetRange:         "medium",
		ProgramInterest:     Any,
		AdmissionPreference: "selective",
	}

	m := Score(school, prefs)
	assert.Equal(t, 85, m.Score)
	assert.Equal(t, []string{
		"4-year program available",
		"Located in CA",
		"Tuition: $20,000",
		"Selective: 40.0% acceptance",
	}, m.Reasons)
}

func TestScore_OutcomeBonuses(t *testing.T) {
	school := entities.School{
		CompletionRate:     ptr(0.93),
		EarningsAfter10Yrs: ptr(80300.0),
	}

	m := Score(school, neutralPrefs())
	assert.Equal(t, 10, m.Score)
	assert.Len(t, m.Reasons, 2)

	school.CompletionRate = ptr(0.7)
	school.EarningsAfter10Yrs = ptr(50000.0)
	assert.Zero(t, Score(school, neutralPrefs()).Score, "thresholds are strict")
}

func TestScore_StudyLevel(t *testing.T) {
	fourYear := entities.School{DegreeType: ptr("4")}
	twoYear := entities.School{DegreeType: ptr("2")}
	noDegree := entities.School{}

	tests := []struct {
		level  string
		school entities.School
		want   int
	}{
		{"undergraduate", fourYear, 20},
		{"Undergrad", fourYear, 20},
		{"GRADUATE", fourYear, 20},
		{"undergraduate", twoYear, 0},
		{"graduate", noDegree, 0},
		{"high school", noDegree, 10},
		{"High School", twoYear, 10},
		{"postdoc", fourYear, 0},
	}

	for _, tt := range tests {
		prefs := neutralPrefs()
		prefs.StudyLevel = tt.level
		assert.Equal(t, tt.want, Score(tt.school, prefs).Score, "level %q", tt.level)
	}
}

func TestScore_Location(t *testing.T) {
	tests := []struct {
		name   string
		pref   string
		school entities.School
		want   int
	}{
		{"state match", "ca", entities.School{State: ptr("CA")}, 25},
		{"state substring", "C", entities.School{State: ptr("CA")}, 25},
		{"state wins over locale", "CA", entities.School{State: ptr("CA"), Locale: ptr("City")}, 25},
		{"urban", "urban", entities.School{State: ptr("NY"), Locale: ptr("City")}, 15},
		{"suburban", "Suburban", entities.School{Locale: ptr("Suburban")}, 15},
		{"rural accepts town", "rural", entities.School{Locale: ptr("Town")}, 15},
		{"rural accepts rural", "rural", entities.School{Locale: ptr("Rural")}, 15},
		{"locale mismatch", "urban", entities.School{Locale: ptr("Rural")}, 0},
		{"unknown bucket", "coastal", entities.School{Locale: ptr("City")}, 0},
		{"any", "any", entities.School{State: ptr("ANY")}, 0},
		{"blank", "  ", entities.School{State: ptr("CA")}, 0},
		{"no data", "CA", entities.School{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefs := neutralPrefs()
			prefs.PreferredLocation = tt.pref
			assert.Equal(t, tt.want, Score(tt.school, prefs).Score)
		})
	}
}

func TestScore_Budget(t *testing.T) {
	tests := []struct {
		name    string
		budget  string
		tuition *float64
		want    int
	}{
		{"low within", "low", ptr(0.0), 25},
		{"low upper bound excluded", "low", ptr(15000.0), 0},
		{"medium lower bound included", "medium", ptr(15000.0), 25},
		{"medium below", "medium", ptr(9000.0), 15},
		{"medium above", "medium", ptr(35000.0), 0},
		{"high within", "High", ptr(60000.0), 25},
		{"high below", "high", ptr(34999.0), 15},
		{"unknown label accepts anything", "luxury", ptr(90000.0), 25},
		{"unknown tuition", "low", nil, 0},
		{"no budget", "", ptr(1000.0), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefs := neutralPrefs()
			prefs.BudgetRange = tt.budget
			school := entities.School{TuitionInState: tt.tuition}
			assert.Equal(t, tt.want, Score(school, prefs).Score)
		})
	}
}

func TestScore_ProgramInterest(t *testing.T) {
	prefs := neutralPrefs()
	prefs.ProgramInterest = "engineering"

	assert.Equal(t, 5, Score(entities.School{}, prefs).Score)
	assert.Equal(t, 15, Score(entities.School{ProgramsOffered: ptr("Engineering, Biology")}, prefs).Score)

	prefs.ProgramInterest = "ANY"
	assert.Zero(t, Score(entities.School{ProgramsOffered: ptr("Engineering")}, prefs).Score)
}

func TestScore_Admission(t *testing.T) {
	tests := []struct {
		pref string
		rate *float64
		want int
	}{
		{"selective", ptr(0.49), 15},
		{"selective", ptr(0.5), 0},
		{"moderate", ptr(0.3), 15},
		{"moderate", ptr(0.7), 15},
		{"moderate", ptr(0.71), 0},
		{"moderate", ptr(0.29), 0},
		{"open", ptr(0.71), 15},
		{"open", ptr(0.7), 0},
		{"any", ptr(0.05), 10},
		{"any", nil, 0},
		{"selective", nil, 0},
	}

	for _, tt := range tests {
		prefs := neutralPrefs()
		prefs.AdmissionPreference = tt.pref
		school := entities.School{AdmissionRate: tt.rate}
		assert.Equal(t, tt.want, Score(school, prefs).Score, "pref %q rate %v", tt.pref, tt.rate)
	}
}

func TestScore_OrderIndependent(t *testing.T) {
	school := entities.School{
		DegreeType:         ptr("4"),
		State:              ptr("NY"),
		Locale:             ptr("City"),
		TuitionInState:     ptr(12000.0),
		AdmissionRate:      ptr(0.8),
		CompletionRate:     ptr(0.75),
		EarningsAfter10Yrs: ptr(61000.0),
	}
	prefs := Preferences{
		StudyLevel:          "graduate",
		PreferredLocation:   "urban",
		BudgetRange:         "medium",
		ProgramInterest:     "biology",
		AdmissionPreference: "open",
	}

	expected := Score(school, prefs).Score
	assert.Equal(t, 20+15+15+5+15+5+5, expected)

	original := rules
	defer func() { rules = original }()

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]rule(nil), original...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		rules = shuffled
		assert.Equal(t, expected, Score(school, prefs).Score)
	}
}

func TestRank_Empty(t *testing.T) {
	matches, err := Rank(nil, neutralPrefs())
	assert.ErrorIs(t, err, ErrNoSchools)
	assert.Nil(t, matches)
}

func TestRank_AllZero(t *testing.T) {
	schools := []entities.School{{ID: 1}, {ID: 2}, {ID: 3}}

	matches, err := Rank(schools, neutralPrefs())
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.NotErrorIs(t, err, ErrNoSchools)
	assert.Nil(t, matches)
}

func TestRank_OrderAndStableTies(t *testing.T) {
	prefs := neutralPrefs()
	prefs.PreferredLocation = "CA"
	prefs.AdmissionPreference = Any

	schools := []entities.School{
		{ID: 1, State: ptr("NY"), AdmissionRate: ptr(0.5)},
		{ID: 2, State: ptr("CA")},
		{ID: 3, State: ptr("CA"), AdmissionRate: ptr(0.5)},
		{ID: 4, State: ptr("CA")},
	}

	matches, err := Rank(schools, prefs)
	require.NoError(t, err)

	var ids []uint
	for _, m := range matches {
		ids = append(ids, m.School.ID)
	}
	assert.Equal(t, []uint{3, 2, 4, 1}, ids)
	assert.Equal(t, 35, matches[0].Score)
	assert.Equal(t, 10, matches[3].Score)
}

func TestRank_TopFiveThenDropZeros(t *testing.T) {
	prefs := neutralPrefs()
	prefs.PreferredLocation = "CA"

	schools := []entities.School{
		{ID: 1, State: ptr("NY")},
		{ID: 2, State: ptr("CA")},
		{ID: 3, State: ptr("TX")},
		{ID: 4, State: ptr("CA")},
		{ID: 5, State: ptr("WA")},
		{ID: 6, State: ptr("OR")},
		{ID: 7, State: ptr("FL")},
	}

	matches, err := Rank(schools, prefs)
	require.NoError(t, err)
	require.Len(t, matches, 2, "zero scores inside the top five are dropped, not backfilled")
	assert.Equal(t, uint(2), matches[0].School.ID)
	assert.Equal(t, uint(4), matches[1].School.ID)
}

func TestRank_LimitsToTopN(t *testing.T) {
	prefs := neutralPrefs()
	prefs.PreferredLocation = "CA"

	schools := make([]entities.School, 0, 8)
	for i := 1; i <= 8; i++ {
		schools = append(schools, entities.School{ID: uint(i), State: ptr("CA")})
	}

	matches, err := Rank(schools, prefs)
	require.NoError(t, err)
	require.Len(t, matches, TopN)
	assert.Equal(t, uint(1), matches[0].School.ID)
	assert.Equal(t, uint(5), matches[4].School.ID)
}

func TestFormatDollars(t *testing.T) {
	assert.Equal(t, "$0", formatDollars(0))
	assert.Equal(t, "$950", formatDollars(950))
	assert.Equal(t, "$14,226", formatDollars(14226))
	assert.Equal(t, "$100,000", formatDollars(99999.6))
	assert.Equal(t, "$1,234,567", formatDollars(1234567))
	assert.Equal(t, "-$1,500", formatDollars(-1500))
}
