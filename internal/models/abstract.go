package models

import (
	"path/filepath"
	"time"
)

// Abstract kind discriminator values
const (
	KindThesis       = "Thesis"
	KindDissertation = "Dissertation"
)

// Abstract is the base record for a thesis or dissertation summary.
// Exactly one of ThesisDetail / DissertationDetail exists per abstract,
// selected by Kind; the repository enforces this on every write.
type Abstract struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:500;not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Researchers string    `gorm:"type:text;not null" json:"researchers"`
	Citation    string    `gorm:"size:1000;not null" json:"citation"`
	Kind        string    `gorm:"size:20;not null;index" json:"kind"` // Thesis or Dissertation
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Associations (at most one of the two details is present)
	ThesisDetail       *ThesisDetail       `gorm:"foreignKey:AbstractID;constraint:OnDelete:CASCADE" json:"-"`
	DissertationDetail *DissertationDetail `gorm:"foreignKey:AbstractID;constraint:OnDelete:CASCADE" json:"-"`
	FileDetail         *FileDetail         `gorm:"foreignKey:AbstractID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Abstract
func (Abstract) TableName() string {
	return "abstracts"
}

// IsThesis returns true for thesis-linked abstracts
func (a *Abstract) IsThesis() bool {
	return a.Kind == KindThesis
}

// ValidKind reports whether s is a recognized kind discriminator
func ValidKind(s string) bool {
	return s == KindThesis || s == KindDissertation
}

// ThesisDetail is the subtype extension for thesis abstracts (1:1 with Abstract)
type ThesisDetail struct {
	AbstractID uint `gorm:"primaryKey" json:"abstract_id"`
	ProgramID  uint `gorm:"not null;index" json:"program_id"`

	Program Program `gorm:"foreignKey:ProgramID" json:"-"`
}

// TableName specifies the table name for ThesisDetail
func (ThesisDetail) TableName() string {
	return "thesis_details"
}

// DissertationDetail is the subtype extension for dissertation abstracts (1:1 with Abstract)
type DissertationDetail struct {
	AbstractID   uint `gorm:"primaryKey" json:"abstract_id"`
	DepartmentID uint `gorm:"not null;index" json:"department_id"`

	Department Department `gorm:"foreignKey:DepartmentID" json:"-"`
}

// TableName specifies the table name for DissertationDetail
func (DissertationDetail) TableName() string {
	return "dissertation_details"
}

// FileDetail records the single attachment of an abstract. A replacement
// upload fully supersedes the previous row; the abstract owns the file.
type FileDetail struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	AbstractID uint      `gorm:"not null;uniqueIndex" json:"abstract_id"`
	Location   string    `gorm:"size:1000;not null" json:"location"`
	Size       int64     `gorm:"not null" json:"size"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for FileDetail
func (FileDetail) TableName() string {
	return "file_details"
}

// AbstractView is the denormalized read model: base row joined with
// whichever subtype detail exists plus the attachment, if any.
type AbstractView struct {
	ID             uint    `json:"id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Researchers    string  `json:"researchers"`
	Citation       string  `json:"citation"`
	Kind           string  `json:"kind"`
	ProgramID      *uint   `json:"program_id,omitempty"`
	DepartmentID   *uint   `json:"department_id,omitempty"`
	RelatedName    string  `json:"related_name,omitempty"`     // program or department name
	RelatedInitial string  `json:"related_initials,omitempty"` // program or department initials
	FileLocation   *string `json:"-"`
	FileName       *string `json:"file_name,omitempty"`
	FileSize       *int64  `json:"file_size,omitempty"`
}

// ToView flattens an abstract with preloaded associations into a view record
func (a *Abstract) ToView() AbstractView {
	v := AbstractView{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Researchers: a.Researchers,
		Citation:    a.Citation,
		Kind:        a.Kind,
	}
	if a.ThesisDetail != nil {
		v.ProgramID = &a.ThesisDetail.ProgramID
		v.RelatedName = a.ThesisDetail.Program.Name
		v.RelatedInitial = a.ThesisDetail.Program.Initials
	}
	if a.DissertationDetail != nil {
		v.DepartmentID = &a.DissertationDetail.DepartmentID
		v.RelatedName = a.DissertationDetail.Department.Name
		v.RelatedInitial = a.DissertationDetail.Department.Initials
	}
	if a.FileDetail != nil {
		loc := a.FileDetail.Location
		name := filepath.Base(loc)
		v.FileLocation = &loc
		v.FileName = &name
		v.FileSize = &a.FileDetail.Size
	}
	return v
}
