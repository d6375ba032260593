package models

import (
	"time"
)

// Audit action types. Each combines a verb with the entity category it acts on.
const (
	ActionCreateAbstract   = "CREATE_ABSTRACT"
	ActionUpdateAbstract   = "UPDATE_ABSTRACT"
	ActionDeleteAbstract   = "DELETE_ABSTRACT"
	ActionViewAbstract     = "VIEW_ABSTRACT"
	ActionDownloadAbstract = "DOWNLOAD_ABSTRACT"

	ActionCreateProgram = "CREATE_PROGRAM"
	ActionUpdateProgram = "UPDATE_PROGRAM"
	ActionDeleteProgram = "DELETE_PROGRAM"

	ActionCreateDepartment = "CREATE_DEPARTMENT"
	ActionUpdateDepartment = "UPDATE_DEPARTMENT"
	ActionDeleteDepartment = "DELETE_DEPARTMENT"

	ActionUpdateAccount = "UPDATE_ACCOUNT"
	ActionDeleteAccount = "DELETE_ACCOUNT"
)

// Audit entity categories. Closed set: each category has exactly one
// detail table with a fixed shape.
const (
	CategoryAbstract   = "ABSTRACT"
	CategoryProgram    = "PROGRAM"
	CategoryDepartment = "DEPARTMENT"
	CategoryAccount    = "ACCOUNT"
)

// LogEntry is the base audit record. One detail row in the table matching
// Category accompanies every entry.
type LogEntry struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ActorAccountID uint      `gorm:"not null;index" json:"actor_account_id"`
	ActionType     string    `gorm:"size:50;not null" json:"action_type"`
	Category       string    `gorm:"size:20;not null;index" json:"category"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`

	Actor Account `gorm:"foreignKey:ActorAccountID" json:"actor,omitempty"`
}

// TableName specifies the table name for LogEntry
func (LogEntry) TableName() string {
	return "logs"
}

// LogAbstract is the ABSTRACT-category detail row. AbstractID is a plain
// column, not an FK: the audit row must outlive the abstract it documents.
// Deletions write their audit detail before removing the abstract by
// coordinator convention, not schema constraint.
type LogAbstract struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	LogID      uint `gorm:"not null;uniqueIndex" json:"log_id"`
	AbstractID uint `gorm:"not null;index" json:"abstract_id"`
	AccountID  uint `gorm:"not null" json:"account_id"`
}

// TableName specifies the table name for LogAbstract
func (LogAbstract) TableName() string {
	return "log_abstracts"
}

// LogProgram is the PROGRAM-category detail row
type LogProgram struct {
	ID             uint `gorm:"primaryKey" json:"id"`
	LogID          uint `gorm:"not null;uniqueIndex" json:"log_id"`
	ProgramID      uint `gorm:"not null;index" json:"program_id"`
	AdminAccountID uint `gorm:"not null" json:"admin_account_id"`
}

// TableName specifies the table name for LogProgram
func (LogProgram) TableName() string {
	return "log_programs"
}

// LogDepartment is the DEPARTMENT-category detail row
type LogDepartment struct {
	ID             uint `gorm:"primaryKey" json:"id"`
	LogID          uint `gorm:"not null;uniqueIndex" json:"log_id"`
	DepartmentID   uint `gorm:"not null;index" json:"department_id"`
	AdminAccountID uint `gorm:"not null" json:"admin_account_id"`
}

// TableName specifies the table name for LogDepartment
func (LogDepartment) TableName() string {
	return "log_departments"
}

// LogAccount is the ACCOUNT-category detail row
type LogAccount struct {
	ID              uint `gorm:"primaryKey" json:"id"`
	LogID           uint `gorm:"not null;uniqueIndex" json:"log_id"`
	TargetAccountID uint `gorm:"not null;index" json:"target_account_id"`
	AdminAccountID  uint `gorm:"not null" json:"admin_account_id"`
}

// TableName specifies the table name for LogAccount
func (LogAccount) TableName() string {
	return "log_accounts"
}
