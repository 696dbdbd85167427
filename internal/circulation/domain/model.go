package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelfwise/pkg/money"
)

type Status string

const (
	StatusBorrowed Status = "borrowed"
	StatusReturned Status = "returned"
	StatusDelayed  Status = "delayed"
	StatusLost     Status = "lost"
	StatusDamaged  Status = "damaged"
)

type Lifecycle string

const (
	LifecycleActive    Lifecycle = "active"
	LifecycleCompleted Lifecycle = "completed"
	LifecycleCancelled Lifecycle = "cancelled"
	LifecycleArchived  Lifecycle = "archived"
)

// CanMoveTo reports whether the lifecycle may advance to next. Lifecycles
// never move backwards.
func (l Lifecycle) CanMoveTo(next Lifecycle) bool {
	switch l {
	case LifecycleActive:
		return next == LifecycleCompleted || next == LifecycleCancelled || next == LifecycleArchived
	case LifecycleCompleted:
		return next == LifecycleArchived
	default:
		return false
	}
}

type ItemStatus string

const (
	ItemBorrowed ItemStatus = "borrowed"
	ItemReturned ItemStatus = "returned"
	ItemLost     ItemStatus = "lost"
	ItemDamaged  ItemStatus = "damaged"
)

type Transaction struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	MemberID        snowflake.ID `gorm:"not null;index" json:"member_id"`
	BorrowedDate    time.Time    `gorm:"not null" json:"borrowed_date"`
	DueDate         time.Time    `gorm:"not null;index" json:"due_date"`
	ReturnedDate    *time.Time   `json:"returned_date,omitempty"`
	Status          Status       `gorm:"type:varchar(16);not null;index" json:"status"`
	LifecycleStatus Lifecycle    `gorm:"type:varchar(16);not null;index" json:"lifecycle_status"`
	Notes           string       `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt       time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null" json:"updated_at"`

	Items []TransactionItem `gorm:"-" json:"items"`
}

func (Transaction) TableName() string { return "transactions" }

// Locked reports whether the transaction can no longer be edited or deleted.
func (t Transaction) Locked() bool {
	return t.ReturnedDate != nil
}

// TotalFine sums the fines of every item.
func (t Transaction) TotalFine() money.Amount {
	var total money.Amount
	for _, item := range t.Items {
		total += item.TotalFine
	}
	return total
}

type TransactionItem struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	TransactionID  snowflake.ID `gorm:"not null;index" json:"transaction_id"`
	BookID         snowflake.ID `gorm:"not null;index" json:"book_id"`
	BorrowedFor    int          `gorm:"not null" json:"borrowed_for"`
	ItemStatus     ItemStatus   `gorm:"type:varchar(16);not null" json:"item_status"`
	DamageSeverity *string      `gorm:"type:varchar(16)" json:"damage_severity,omitempty"`
	OverdueFine    money.Amount `gorm:"column:overdue_fine_cents;not null;default:0" json:"overdue_fine"`
	LostFine       money.Amount `gorm:"column:lost_fine_cents;not null;default:0" json:"lost_fine"`
	DamageFine     money.Amount `gorm:"column:damage_fine_cents;not null;default:0" json:"damage_fine"`
	TotalFine      money.Amount `gorm:"column:total_fine_cents;not null;default:0" json:"total_fine"`

	Title string `gorm:"-" json:"title,omitempty"`
}

func (TransactionItem) TableName() string { return "transaction_items" }

// StatusFor derives the transaction status from its items after return:
// lost beats damaged, damaged beats late, late beats on time.
func StatusFor(items []TransactionItem, late bool) Status {
	var lost, damaged bool
	for _, item := range items {
		switch item.ItemStatus {
		case ItemLost:
			lost = true
		case ItemDamaged:
			damaged = true
		}
	}
	switch {
	case lost:
		return StatusLost
	case damaged:
		return StatusDamaged
	case late:
		return StatusDelayed
	default:
		return StatusReturned
	}
}

// OverdueLoan is one borrowed item on an active transaction past its due date.
type OverdueLoan struct {
	TransactionID snowflake.ID
	ItemID        snowflake.ID
	MemberID      snowflake.ID
	MemberName    string
	MemberEmail   string
	DueDate       time.Time
	BookID        snowflake.ID
	Title         string
	Price         money.Amount
}

// OverdueCursor resumes an overdue scan after the given member and item.
type OverdueCursor struct {
	MemberID snowflake.ID
	ItemID   snowflake.ID
}

// MemberOverdue groups a member's overdue loans.
type MemberOverdue struct {
	MemberID    snowflake.ID  `json:"member_id"`
	MemberName  string        `json:"member_name"`
	MemberEmail string        `json:"member_email"`
	Loans       []OverdueLoan `json:"loans"`
}

func Models() []any {
	return []any{&Transaction{}, &TransactionItem{}}
}
