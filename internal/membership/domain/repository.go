package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertType(ctx context.Context, db *gorm.DB, t *MembershipType) error
	FindTypeByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*MembershipType, error)
	FindTypeByName(ctx context.Context, db *gorm.DB, name string) (*MembershipType, error)
	ListTypes(ctx context.Context, db *gorm.DB, activeOnly bool) ([]MembershipType, error)

	InsertMember(ctx context.Context, db *gorm.DB, m *Member) error
	// FindMemberByID loads the member with its membership type attached.
	FindMemberByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Member, error)
	FindMemberByEmail(ctx context.Context, db *gorm.DB, email string) (*Member, error)
	AssignType(ctx context.Context, db *gorm.DB, memberID, typeID snowflake.ID, at time.Time) error
}
