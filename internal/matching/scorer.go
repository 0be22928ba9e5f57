// Package matching ranks schools against quiz preferences.
//
// Scoring is additive: each rule looks at one criterion, contributes points
// and a reason, and never depends on the outcome of another rule.
package matching

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/internavi/schoolfinder/internal/entities"
)

// TopN is the maximum number of matches returned by Rank.
const TopN = 5

// Points awarded per rule.
const (
	pointsDegree         = 20
	pointsHighSchool     = 10
	pointsState          = 25
	pointsLocale         = 15
	pointsWithinBudget   = 25
	pointsBelowBudget    = 15
	pointsPrograms       = 15
	pointsNoProgramData  = 5
	pointsAdmission      = 15
	pointsAnyAdmission   = 10
	pointsCompletion     = 5
	pointsEarnings       = 5
	completionThreshold  = 0.7
	earningsThreshold    = 50000
	selectiveRateCeiling = 0.5
	openRateFloor        = 0.7
)

// Preference value meaning "no preference".
const Any = "any"

var (
	ErrNoSchools = errors.New("no schools found in database")
	ErrNoMatch   = errors.New("no schools matched your criteria")
)

// Preferences are the answers to the matching quiz.
type Preferences struct {
	StudyLevel          string
	PreferredLocation   string
	BudgetRange         string
	ProgramInterest     string
	AdmissionPreference string
}

// Match is a scored school.
type Match struct {
	School  entities.School
	Score   int
	Reasons []string
}

type budget struct {
	min, max float64
}

// Half-open ranges: [min, max).
var budgets = map[string]budget{
	"low":    {0, 15000},
	"medium": {15000, 35000},
	"high":   {35000, math.Inf(1)},
}

var localeBuckets = map[string][]string{
	"urban":    {"City"},
	"suburban": {"Suburban"},
	"rural":    {"Rural", "Town"},
}

// rule scores a single criterion. A zero result adds no reason.
type rule func(s *entities.School, p Preferences) (int, string)

var rules = []rule{
	studyLevelRule,
	locationRule,
	budgetRule,
	programRule,
	admissionRule,
	completionRule,
	earningsRule,
}

// Score evaluates every rule against school.
func Score(school entities.School, prefs Preferences) Match {
	m := Match{School: school, Reasons: []string{}}
	for _, r := range rules {
		points, reason := r(&school, prefs)
		if points == 0 {
			continue
		}
		m.Score += points
		if reason != "" {
			m.Reasons = append(m.Reasons, reason)
		}
	}
	return m
}

// Rank scores schools, keeps the TopN highest (ties in input order) and then
// drops zero scores from that set. Dropped entries are not backfilled.
func Rank(schools []entities.School, prefs Preferences) ([]Match, error) {
	if len(schools) == 0 {
		return nil, ErrNoSchools
	}

	matches := make([]Match, len(schools))
	for i := range schools {
		matches[i] = Score(schools[i], prefs)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > TopN {
		matches = matches[:TopN]
	}

	ranked := make([]Match, 0, len(matches))
	for _, m := range matches {
		if m.Score > 0 {
			ranked = append(ranked, m)
		}
	}
	if len(ranked) == 0 {
		return nil, ErrNoMatch
	}
	return ranked, nil
}

func studyLevelRule(s *entities.School, p Preferences) (int, string) {
	fourYear := s.DegreeType != nil && strings.Contains(*s.DegreeType, "4")

	switch normalize(p.StudyLevel) {
	case "undergraduate", "undergrad":
		if fourYear {
			return pointsDegree, "4-year program available"
		}
	case "graduate":
		if fourYear {
			return pointsDegree, "Graduate programs available"
		}
	case "high school":
		return pointsHighSchool, "Open to high school students exploring options"
	}
	return 0, ""
}

func locationRule(s *entities.School, p Preferences) (int, string) {
	pref := strings.TrimSpace(p.PreferredLocation)
	if pref == "" || strings.EqualFold(pref, Any) {
		return 0, ""
	}

	if s.State != nil && strings.Contains(strings.ToUpper(*s.State), strings.ToUpper(pref)) {
		return pointsState, "Located in " + *s.State
	}

	if s.Locale != nil {
		for _, locale := range localeBuckets[strings.ToLower(pref)] {
			if *s.Locale == locale {
				return pointsLocale, *s.Locale + " setting"
			}
		}
	}
	return 0, ""
}

func budgetRule(s *entities.School, p Preferences) (int, string) {
	if s.TuitionInState == nil || strings.TrimSpace(p.BudgetRange) == "" {
		return 0, ""
	}

	b, ok := budgets[normalize(p.BudgetRange)]
	if !ok {
		b = budget{0, math.Inf(1)}
	}

	tuition := *s.TuitionInState
	switch {
	case tuition >= b.min && tuition < b.max:
		return pointsWithinBudget, "Tuition: " + formatDollars(tuition)
	case tuition < b.min:
		return pointsBelowBudget, "Below budget: " + formatDollars(tuition)
	}
	return 0, ""
}

func programRule(s *entities.School, p Preferences) (int, string) {
	if normalize(p.ProgramInterest) == Any {
		return 0, ""
	}
	if s.ProgramsOffered != nil && *s.ProgramsOffered != "" {
		return pointsPrograms, "Programs available"
	}
	return pointsNoProgramData, "Program data not yet available"
}

func admissionRule(s *entities.School, p Preferences) (int, string) {
	if s.AdmissionRate == nil {
		return 0, ""
	}
	rate := *s.AdmissionRate

	switch normalize(p.AdmissionPreference) {
	case "selective":
		if rate < selectiveRateCeiling {
			return pointsAdmission, "Selective: " + formatPercent(rate) + " acceptance"
		}
	case "moderate":
		if rate >= 0.3 && rate <= 0.7 {
			return pointsAdmission, "Moderate: " + formatPercent(rate) + " acceptance"
		}
	case "open":
		if rate > openRateFloor {
			return pointsAdmission, "Open: " + formatPercent(rate) + " acceptance"
		}
	case Any:
		return pointsAnyAdmission, formatPercent(rate) + " acceptance"
	}
	return 0, ""
}

func completionRule(s *entities.School, _ Preferences) (int, string) {
	if s.CompletionRate != nil && *s.CompletionRate > completionThreshold {
		return pointsCompletion, "Strong completion rate: " + formatPercent(*s.CompletionRate)
	}
	return 0, ""
}

func earningsRule(s *entities.School, _ Preferences) (int, string) {
	if s.EarningsAfter10Yrs != nil && *s.EarningsAfter10Yrs > earningsThreshold {
		return pointsEarnings, "Median earnings after 10 years: " + formatDollars(*s.EarningsAfter10Yrs)
	}
	return 0, ""
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func formatPercent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate*100)
}

// formatDollars renders whole dollars with thousands separators, e.g. $14,226.
func formatDollars(amount float64) string {
	digits := strconv.FormatInt(int64(math.Round(amount)), 10)
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return sign + "$" + b.String()
}
