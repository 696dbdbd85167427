package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelfwise/pkg/money"
)

type MembershipType struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	Name          string       `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	MaxBorrowDays int          `gorm:"not null" json:"max_borrow_days"`
	MaxBooks      int          `gorm:"not null" json:"max_books"`
	Fee           money.Amount `gorm:"column:fee_cents;not null;default:0" json:"fee"`
	Active        bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null" json:"updated_at"`
}

func (MembershipType) TableName() string { return "membership_types" }

type Member struct {
	ID                   snowflake.ID  `gorm:"primaryKey" json:"id"`
	Name                 string        `gorm:"type:varchar(255);not null" json:"name"`
	Email                string        `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	MembershipTypeID     *snowflake.ID `gorm:"index" json:"membership_type_id,omitempty"`
	MembershipAssignedAt *time.Time    `json:"membership_assigned_at,omitempty"`
	CreatedAt            time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time     `gorm:"not null" json:"updated_at"`

	MembershipType *MembershipType `gorm:"-" json:"membership_type,omitempty"`
}

func (Member) TableName() string { return "members" }

// HasActiveMembership reports whether the member may borrow.
func (m Member) HasActiveMembership() bool {
	return m.MembershipType != nil && m.MembershipType.Active
}

func Models() []any {
	return []any{&MembershipType{}, &Member{}}
}
