package entities

import "time"

// School is one institution ingested from the College Scorecard API.
// Numeric fields are pointers: a value missing upstream is stored as NULL,
// never as zero.
type School struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Name    string  `gorm:"index;size:512;not null" json:"name"`
	City    *string `gorm:"size:256" json:"city"`
	State   *string `gorm:"index;size:8" json:"state"`
	Zip     *string `gorm:"size:16" json:"zip"`
	Website *string `gorm:"size:2048" json:"website"`

	SchoolType *string `gorm:"index;size:64" json:"school_type"` // Public, Private nonprofit, ...
	DegreeType *string `gorm:"size:16" json:"degree_type"`       // predominant degree code, "4" = bachelor's
	Locale     *string `gorm:"index;size:32" json:"locale"`      // City, Suburban, Rural, Town

	AdmissionRate *float64 `json:"admission_rate"`
	SATAvg        *int     `gorm:"column:sat_avg" json:"sat_avg"`
	ACTAvg        *int     `gorm:"column:act_avg" json:"act_avg"`

	TuitionInState    *float64 `gorm:"index" json:"tuition_in_state"`
	TuitionOutOfState *float64 `json:"tuition_out_of_state"`

	StudentSize   *int `json:"student_size"`
	UndergradSize *int `json:"undergrad_size"`

	CompletionRate     *float64 `json:"completion_rate"`
	EarningsAfter10Yrs *float64 `gorm:"column:earnings_after_10yrs" json:"earnings_after_10yrs"`

	// ProgramsOffered is not populated by ingestion yet.
	ProgramsOffered *string `gorm:"type:text" json:"programs_offered"`

	UnitID *string `gorm:"uniqueIndex;size:32" json:"unit_id"`
	OpeID  *string `gorm:"size:32" json:"ope_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
