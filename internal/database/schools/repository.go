// Package schools provides database operations for ingested schools.
//
// It is the storage collaborator of the ingestion pipeline (existence checks
// and skip-on-conflict inserts by unit ID) and the query side of the listing
// endpoint (filtered, sorted, paginated reads).
//
// # Interface Implementation
//
//	var _ ingest.Store = (*Repository)(nil)
//	var _ http.SchoolStore = (*Repository)(nil)
//
// # Usage
//
//	repo := schools.NewRepository(db.DB)
//	result, err := repo.List(schools.ListQuery{State: "ca", SortBy: "tuition_in_state"})
package schools

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/internavi/schoolfinder/internal/entities"
)

// Repository handles all school database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new schools repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ExistsByUnitID reports whether a school with the given external unit ID is stored.
func (r *Repository) ExistsByUnitID(unitID string) (bool, error) {
	var count int64
	err := r.db.Model(&entities.School{}).Where("unit_id = ?", unitID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateBatch inserts schools in one transaction. Rows whose unit_id already
// exists are skipped, never updated. Returns the number of rows inserted.
func (r *Repository) CreateBatch(schools []*entities.School) (int, error) {
	if len(schools) == 0 {
		return 0, nil
	}

	var inserted int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "unit_id"}},
			DoNothing: true,
		}).Create(schools)
		if result.Error != nil {
			return result.Error
		}
		inserted = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(inserted), nil
}

// All returns every school in storage order.
func (r *Repository) All() ([]entities.School, error) {
	var schools []entities.School
	err := r.db.Order("id ASC").Find(&schools).Error
	return schools, err
}

// Count returns the total number of stored schools.
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entities.School{}).Count(&count).Error
	return count, err
}
