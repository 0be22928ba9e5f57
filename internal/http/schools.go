package http

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/internavi/schoolfinder/internal/database/schools"
)

// SchoolsController serves the school listing.
type SchoolsController struct {
	store SchoolLister
}

func NewSchoolsController(store SchoolLister) *SchoolsController {
	return &SchoolsController{store: store}
}

// List handles GET /api/schools
// Query params: state, school_type, locale, min_tuition, max_tuition,
// sort_by, sort_order, page, page_size.
func (sc *SchoolsController) List(c *gin.Context) {
	q, ok := parseListQuery(c)
	if !ok {
		return
	}

	result, err := sc.store.List(q)
	if err != nil {
		respondInternalError(c, err, "list schools")
		return
	}

	c.JSON(http.StatusOK, result)
}

// parseListQuery reads the listing parameters, responding with 400 on
// malformed numbers or out-of-range paging.
func parseListQuery(c *gin.Context) (schools.ListQuery, bool) {
	q := schools.ListQuery{
		State:      strings.TrimSpace(c.Query("state")),
		SchoolType: c.Query("school_type"),
		Locale:     c.Query("locale"),
		SortBy:     c.DefaultQuery("sort_by", schools.DefaultSortBy),
		SortOrder:  c.DefaultQuery("sort_order", "asc"),
		Page:       1,
		PageSize:   schools.DefaultPageSize,
	}

	var ok bool
	if q.MinTuition, ok = parseFloatQuery(c, "min_tuition"); !ok {
		return q, false
	}
	if q.MaxTuition, ok = parseFloatQuery(c, "max_tuition"); !ok {
		return q, false
	}

	if raw, present := c.GetQuery("page"); present {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 || page > schools.MaxPage {
			respondBadRequest(c, "page must be an integer between 1 and "+strconv.Itoa(schools.MaxPage))
			return q, false
		}
		q.Page = page
	}

	if raw, present := c.GetQuery("page_size"); present {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 || size > schools.MaxPageSize {
			respondBadRequest(c, "page_size must be an integer between 1 and "+strconv.Itoa(schools.MaxPageSize))
			return q, false
		}
		q.PageSize = size
	}

	return q, true
}

// parseFloatQuery returns nil for an absent or empty parameter.
func parseFloatQuery(c *gin.Context, name string) (*float64, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		respondBadRequest(c, "invalid "+name)
		return nil, false
	}
	return &v, true
}
