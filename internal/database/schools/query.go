package schools

import (
	"math"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/internavi/schoolfinder/internal/entities"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
	DefaultSortBy   = "name"

	// MaxPage keeps the row offset far from integer overflow.
	MaxPage = 1_000_000
)

// sortableColumns maps the JSON name of each School field to its column.
var sortableColumns = map[string]string{
	"id":                   "id",
	"name":                 "name",
	"city":                 "city",
	"state":                "state",
	"zip":                  "zip",
	"website":              "website",
	"school_type":          "school_type",
	"degree_type":          "degree_type",
	"locale":               "locale",
	"admission_rate":       "admission_rate",
	"sat_avg":              "sat_avg",
	"act_avg":              "act_avg",
	"tuition_in_state":     "tuition_in_state",
	"tuition_out_of_state": "tuition_out_of_state",
	"student_size":         "student_size",
	"undergrad_size":       "undergrad_size",
	"completion_rate":      "completion_rate",
	"earnings_after_10yrs": "earnings_after_10yrs",
	"programs_offered":     "programs_offered",
	"unit_id":              "unit_id",
	"ope_id":               "ope_id",
	"created_at":           "created_at",
	"updated_at":           "updated_at",
}

// ListQuery selects a page of schools. Empty filters are ignored.
type ListQuery struct {
	State      string
	SchoolType string
	Locale     string
	MinTuition *float64
	MaxTuition *float64

	SortBy    string
	SortOrder string

	Page     int
	PageSize int
}

// ListResult is one page of schools plus the size of the whole filtered set.
type ListResult struct {
	Schools    []entities.School `json:"schools"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

// Normalize clamps paging values into [1, MaxPage] and [1, MaxPageSize] and
// resolves the sort column.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	switch {
	case q.PageSize == 0:
		q.PageSize = DefaultPageSize
	case q.PageSize < 1:
		q.PageSize = 1
	case q.PageSize > MaxPageSize:
		q.PageSize = MaxPageSize
	}
	if !IsSortable(q.SortBy) {
		q.SortBy = DefaultSortBy
	}
	if strings.EqualFold(q.SortOrder, "desc") {
		q.SortOrder = "desc"
	} else {
		q.SortOrder = "asc"
	}
	return q
}

// IsSortable reports whether name is a School field that List can sort by.
func IsSortable(name string) bool {
	_, ok := sortableColumns[name]
	return ok
}

// List returns the requested page of schools matching every filter in q.
func (r *Repository) List(q ListQuery) (*ListResult, error) {
	q = q.Normalize()

	filtered := r.applyFilters(r.db.Model(&entities.School{}), q)

	var total int64
	if err := filtered.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	schools := make([]entities.School, 0, q.PageSize)
	err := filtered.Session(&gorm.Session{}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: sortableColumns[q.SortBy]}, Desc: q.SortOrder == "desc"}).
		Order("id ASC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&schools).Error
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Schools:    schools,
		Total:      total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(q.PageSize))),
	}, nil
}

func (r *Repository) applyFilters(db *gorm.DB, q ListQuery) *gorm.DB {
	if state := strings.TrimSpace(q.State); state != "" {
		db = db.Where("state = ?", strings.ToUpper(state))
	}
	if q.SchoolType != "" {
		db = db.Where("school_type = ?", q.SchoolType)
	}
	if q.Locale != "" {
		db = db.Where("locale = ?", q.Locale)
	}
	if q.MinTuition != nil {
		db = db.Where("tuition_in_state >= ?", *q.MinTuition)
	}
	if q.MaxTuition != nil {
		db = db.Where("tuition_in_state <= ?", *q.MaxTuition)
	}
	return db
}
