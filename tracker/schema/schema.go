package schema

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin    = "admin"
	RoleForeman  = "foreman"
	RoleWorker   = "worker"
	RoleEmployee = "employee"
)

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusFulfilled = "fulfilled"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

var Units = []string{"pieces", "kg", "bags", "m", "m2", "m3", "liters"}

var Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

var Statuses = []string{StatusPending, StatusApproved, StatusRejected, StatusFulfilled}

var Roles = []string{RoleAdmin, RoleForeman, RoleWorker, RoleEmployee}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func CheckValidStatus(status string) error {
	if !contains(Statuses, status) {
		return fmt.Errorf("invalid request status '%v'", status)
	}
	return nil
}

func CheckValidPriority(priority string) error {
	if !contains(Priorities, priority) {
		return fmt.Errorf("invalid priority '%v'", priority)
	}
	return nil
}

func CheckValidUnit(unit string) error {
	if !contains(Units, unit) {
		return fmt.Errorf("invalid unit '%v'", unit)
	}
	return nil
}

func CheckValidRole(role string) error {
	if !contains(Roles, role) {
		return fmt.Errorf("invalid role '%v'", role)
	}
	return nil
}

// DemoCompanyId is the reserved shared demo workspace. It is seeded at startup
// and must never be deleted.
var DemoCompanyId = uuid.MustParse("00000000-0000-0000-0000-000000000001")

type User struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Email    string `gorm:"unique;size:254;not null"`
	Password []byte

	IsAdmin bool `gorm:"not null;default:false"`

	Profile *Profile `gorm:"foreignKey:Id;constraint:OnDelete:CASCADE"`
}

// Profile shares its primary key with the owning User row. CompanyId is nil
// until the user picks or creates a workspace.
type Profile struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	FullName *string `gorm:"size:100"`
	Role     string  `gorm:"size:50;not null;default:'worker'"`

	CompanyId *uuid.UUID `gorm:"type:uuid"`
	Company   *Company   `gorm:"constraint:OnDelete:SET NULL"`

	UpdatedAt time.Time
}

type Company struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Name string `gorm:"size:100;not null"`

	CreatedBy *uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time
}

type MaterialRequest struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	CompanyId uuid.UUID `gorm:"type:uuid;not null;index"`
	Company   *Company  `gorm:"constraint:OnDelete:CASCADE"`

	RequestedBy uuid.UUID `gorm:"type:uuid;not null"`
	Requester   *Profile  `gorm:"foreignKey:RequestedBy"`

	MaterialName string  `gorm:"size:200;not null"`
	Quantity     float64 `gorm:"not null"`
	Unit         string  `gorm:"size:50;not null;default:'pieces'"`
	Priority     string  `gorm:"size:50;not null;default:'medium'"`
	Status       string  `gorm:"size:50;not null;default:'pending'"`

	Notes    *string
	ImageUrl *string `gorm:"size:500"`

	RequestedAt time.Time `gorm:"index"`
	UpdatedAt   time.Time
}
