package repository

import (
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Abstract  AbstractRepository
	Reference ReferenceRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Abstract:  NewAbstractRepository(db),
		Reference: NewReferenceRepository(db),
	}
}
