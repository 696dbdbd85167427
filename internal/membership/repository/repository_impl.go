package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelfwise/internal/membership/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const typeColumns = `id, name, max_borrow_days, max_books, fee_cents, active, created_at, updated_at`

const memberColumns = `id, name, email, membership_type_id, membership_assigned_at, created_at, updated_at`

func (r *repo) InsertType(ctx context.Context, db *gorm.DB, t *domain.MembershipType) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO membership_types (`+typeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.Name,
		t.MaxBorrowDays,
		t.MaxBooks,
		t.Fee,
		t.Active,
		t.CreatedAt,
		t.UpdatedAt,
	).Error
}

func (r *repo) FindTypeByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.MembershipType, error) {
	return r.findType(ctx, db, `id = ?`, id)
}

func (r *repo) FindTypeByName(ctx context.Context, db *gorm.DB, name string) (*domain.MembershipType, error) {
	return r.findType(ctx, db, `LOWER(name) = LOWER(?)`, name)
}

func (r *repo) findType(ctx context.Context, db *gorm.DB, where string, arg any) (*domain.MembershipType, error) {
	var t domain.MembershipType
	err := db.WithContext(ctx).Raw(
		`SELECT `+typeColumns+` FROM membership_types WHERE `+where,
		arg,
	).Scan(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == 0 {
		return nil, nil
	}
	return &t, nil
}

func (r *repo) ListTypes(ctx context.Context, db *gorm.DB, activeOnly bool) ([]domain.MembershipType, error) {
	query := `SELECT ` + typeColumns + ` FROM membership_types`
	args := []any{}
	if activeOnly {
		query += ` WHERE active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY name`

	var types []domain.MembershipType
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

func (r *repo) InsertMember(ctx context.Context, db *gorm.DB, m *domain.Member) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO members (`+memberColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		m.Name,
		m.Email,
		m.MembershipTypeID,
		m.MembershipAssignedAt,
		m.CreatedAt,
		m.UpdatedAt,
	).Error
}

func (r *repo) FindMemberByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Member, error) {
	m, err := r.findMember(ctx, db, `id = ?`, id)
	if err != nil || m == nil {
		return m, err
	}
	if m.MembershipTypeID != nil {
		t, err := r.FindTypeByID(ctx, db, *m.MembershipTypeID)
		if err != nil {
			return nil, err
		}
		m.MembershipType = t
	}
	return m, nil
}

func (r *repo) FindMemberByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Member, error) {
	return r.findMember(ctx, db, `LOWER(email) = LOWER(?)`, email)
}

func (r *repo) findMember(ctx context.Context, db *gorm.DB, where string, arg any) (*domain.Member, error) {
	var m domain.Member
	err := db.WithContext(ctx).Raw(
		`SELECT `+memberColumns+` FROM members WHERE `+where,
		arg,
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	return &m, nil
}

func (r *repo) AssignType(ctx context.Context, db *gorm.DB, memberID, typeID snowflake.ID, at time.Time) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE members SET membership_type_id = ?, membership_assigned_at = ?, updated_at = ? WHERE id = ?`,
		typeID,
		at,
		at,
		memberID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
