package models

import (
	"time"
)

// Program is the reference entity a thesis abstract points at
type Program struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Initials  string    `gorm:"size:20;not null" json:"initials"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Program
func (Program) TableName() string {
	return "programs"
}

// Department is the reference entity a dissertation abstract points at
type Department struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Initials  string    `gorm:"size:20;not null" json:"initials"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Department
func (Department) TableName() string {
	return "departments"
}
