package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RegionCode is the fixed enumeration of regions the system operates in.
// Membership is immutable: ResolveRegion rejects any code outside this set.
type RegionCode string

const (
	RegionTamilNadu     RegionCode = "TAMIL_NADU"
	RegionAndhraPradesh RegionCode = "ANDHRA_PRADESH"
	RegionTelangana     RegionCode = "TELANGANA"
	RegionOdisha        RegionCode = "ODISHA"
)

// RegionCodes lists the enumeration in display order.
var RegionCodes = []RegionCode{
	RegionTamilNadu,
	RegionAndhraPradesh,
	RegionTelangana,
	RegionOdisha,
}

// Valid reports whether c is a member of the fixed enumeration.
func (c RegionCode) Valid() bool {
	switch c {
	case RegionTamilNadu, RegionAndhraPradesh, RegionTelangana, RegionOdisha:
		return true
	}
	return false
}

// DisplayName returns the human-readable name for a region code.
func (c RegionCode) DisplayName() string {
	switch c {
	case RegionTamilNadu:
		return "Tamil Nadu"
	case RegionAndhraPradesh:
		return "Andhra Pradesh"
	case RegionTelangana:
		return "Telangana"
	case RegionOdisha:
		return "Odisha"
	}
	return string(c)
}

// Region is reference data: one row per enumeration member. Only the
// description is editable after seeding.
type Region struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Code        RegionCode `gorm:"type:varchar(20);uniqueIndex;not null" json:"code"`
	Description string     `gorm:"type:text" json:"description"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (r *Region) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RegionAssignment binds one admin to one region. Both columns carry unique
// indexes, so the binding is 1:1 in both directions.
type RegionAssignment struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AdminID    uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"admin_id"`
	Admin      User      `gorm:"foreignKey:AdminID;constraint:OnDelete:CASCADE;" json:"-"`
	RegionID   uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"region_id"`
	Region     Region    `gorm:"foreignKey:RegionID;constraint:OnDelete:CASCADE;" json:"region"`
	AssignedAt time.Time `gorm:"autoCreateTime" json:"assigned_at"`
}

func (a *RegionAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
