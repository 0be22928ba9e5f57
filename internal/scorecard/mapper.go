package scorecard

import (
	"strings"

	"github.com/internavi/schoolfinder/internal/entities"
)

// UnknownSchoolName is stored when the payload carries no school name.
const UnknownSchoolName = "Unknown"

// Dotted field paths requested from the API and read back by MapSchool.
const (
	FieldID                = "id"
	FieldSchoolID          = "school.id"
	FieldName              = "school.name"
	FieldCity              = "school.city"
	FieldState             = "school.state"
	FieldZip               = "school.zip"
	FieldWebsite           = "school.school_url"
	FieldOwnership         = "school.ownership"
	FieldDegreePredominant = "school.degrees_awarded.predominant"
	FieldLocale            = "school.locale"
	FieldOpeID             = "school.ope6_id"
	FieldAdmissionRate     = "latest.admissions.admission_rate.overall"
	FieldSATAvg            = "latest.admissions.sat_scores.average.overall"
	FieldACTAvg            = "latest.admissions.act_scores.midpoint.cumulative"
	FieldTuitionInState    = "latest.cost.tuition.in_state"
	FieldTuitionOutOfState = "latest.cost.tuition.out_of_state"
	FieldStudentSize       = "latest.student.size"
	FieldUndergradSize     = "latest.student.enrollment.undergrad_12_month"
	FieldCompletionRate    = "latest.completion.completion_rate_4yr_150nt"
	FieldEarnings          = "latest.earnings.10_yrs_after_entry.median"

	// Some API releases publish the earnings median under this key instead.
	FieldEarningsAlt = "latest.earnings.10_yrs_after_entry.median_earnings"
)

// DefaultFields is the field selection sent with every page request.
var DefaultFields = []string{
	FieldID,
	FieldName,
	FieldCity,
	FieldState,
	FieldZip,
	FieldWebsite,
	FieldOwnership,
	FieldDegreePredominant,
	FieldLocale,
	FieldAdmissionRate,
	FieldSATAvg,
	FieldACTAvg,
	FieldTuitionInState,
	FieldTuitionOutOfState,
	FieldStudentSize,
	FieldUndergradSize,
	FieldCompletionRate,
	FieldEarnings,
	FieldOpeID,
}

var localeCategories = map[int]string{
	11: "City", 12: "City", 13: "City",
	21: "Suburban", 22: "Suburban", 23: "Suburban",
	31: "Rural", 32: "Rural", 33: "Rural",
	41: "Town", 42: "Town", 43: "Town",
}

var ownershipLabels = map[int]string{
	1: "Public",
	2: "Private nonprofit",
	3: "Private for-profit",
}

// MapSchool builds a School from one item of the API "results" array.
// It performs no I/O and does not touch storage.
func MapSchool(raw any) (*entities.School, error) {
	payload, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrNotAnObject
	}

	name := UnknownSchoolName
	if s := ToString(Lookup(payload, FieldName)); s != nil {
		name = *s
	}

	school := &entities.School{
		Name:       name,
		City:       ToString(Lookup(payload, FieldCity)),
		State:      normalizeState(ToString(Lookup(payload, FieldState))),
		Zip:        ToString(Lookup(payload, FieldZip)),
		Website:    ToString(Lookup(payload, FieldWebsite)),
		SchoolType: MapOwnership(Lookup(payload, FieldOwnership)),
		DegreeType: ToString(Lookup(payload, FieldDegreePredominant)),
		Locale:     MapLocale(Lookup(payload, FieldLocale)),

		AdmissionRate: ToFloat(Lookup(payload, FieldAdmissionRate)),
		SATAvg:        ToInt(Lookup(payload, FieldSATAvg)),
		ACTAvg:        ToInt(Lookup(payload, FieldACTAvg)),

		TuitionInState:    ToFloat(Lookup(payload, FieldTuitionInState)),
		TuitionOutOfState: ToFloat(Lookup(payload, FieldTuitionOutOfState)),

		StudentSize:   ToInt(Lookup(payload, FieldStudentSize)),
		UndergradSize: ToInt(Lookup(payload, FieldUndergradSize)),

		CompletionRate:     ToFloat(Lookup(payload, FieldCompletionRate)),
		EarningsAfter10Yrs: ToFloat(LookupFirst(payload, FieldEarnings, FieldEarningsAlt)),

		// TODO: populate from latest.programs.cip_4_digit once program filtering lands in the matcher.
		ProgramsOffered: nil,

		UnitID: ToString(LookupFirst(payload, FieldID, FieldSchoolID)),
		OpeID:  ToString(Lookup(payload, FieldOpeID)),
	}

	return school, nil
}

// MapLocale converts a census locale code (11-43) to its coarse category.
func MapLocale(v any) *string {
	code := ToInt(v)
	if code == nil {
		return nil
	}
	category, ok := localeCategories[*code]
	if !ok {
		return nil
	}
	return &category
}

// MapOwnership converts the ownership code to a label. Unknown codes keep
// their string form.
func MapOwnership(v any) *string {
	if code := ToInt(v); code != nil {
		if label, ok := ownershipLabels[*code]; ok {
			return &label
		}
	}
	return ToString(v)
}

func normalizeState(s *string) *string {
	if s == nil {
		return nil
	}
	upper := strings.ToUpper(*s)
	return &upper
}
