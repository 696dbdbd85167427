package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/shelfwise/internal/clock"
	"github.com/smallbiznis/shelfwise/internal/events"
	invoicedomain "github.com/smallbiznis/shelfwise/internal/invoice/domain"
	"github.com/smallbiznis/shelfwise/internal/membership/domain"
	"github.com/smallbiznis/shelfwise/internal/validation"
	"github.com/smallbiznis/shelfwise/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Invoices invoicedomain.Service
	Clock    clock.Clock
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	invoices invoicedomain.Service
	clock    clock.Clock
	validate *validator.Validate
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("membership.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		invoices: p.Invoices,
		clock:    p.Clock,
		validate: validation.New(),
	}
}

func (s *Service) CreateType(ctx context.Context, req domain.CreateTypeRequest) (domain.MembershipType, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate.Struct(req); err != nil {
		return domain.MembershipType{}, fieldError(err)
	}

	now := s.clock.Now()
	t := domain.MembershipType{
		ID:            s.genID.Generate(),
		Name:          req.Name,
		MaxBorrowDays: req.MaxBorrowDays,
		MaxBooks:      req.MaxBooks,
		Fee:           req.Fee,
		Active:        req.Active == nil || *req.Active,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindTypeByName(ctx, tx, t.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicateTypeName
		}
		return s.repo.InsertType(ctx, tx, &t)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.MembershipType{}, domain.ErrDuplicateTypeName
		}
		return domain.MembershipType{}, err
	}

	s.log.Info("membership type created",
		zap.String("membership_type_id", t.ID.String()),
		zap.Int64("fee_cents", t.Fee.Cents()),
	)
	return t, nil
}

func (s *Service) ListTypes(ctx context.Context, activeOnly bool) ([]domain.MembershipType, error) {
	return s.repo.ListTypes(ctx, s.db, activeOnly)
}

func (s *Service) CreateMember(ctx context.Context, req domain.CreateMemberRequest) (domain.AssignResult, []events.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validate.Struct(req); err != nil {
		return domain.AssignResult{}, nil, fieldError(err)
	}

	var typeID *snowflake.ID
	if raw := strings.TrimSpace(req.MembershipTypeID); raw != "" {
		id, err := parseID(raw, domain.ErrInvalidType)
		if err != nil {
			return domain.AssignResult{}, nil, err
		}
		typeID = &id
	}

	now := s.clock.Now()
	member := domain.Member{
		ID:        s.genID.Generate(),
		Name:      req.Name,
		Email:     req.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var (
		result domain.AssignResult
		evts   []events.Event
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindMemberByEmail(ctx, tx, member.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicateEmail
		}
		if err := s.repo.InsertMember(ctx, tx, &member); err != nil {
			return err
		}
		if typeID == nil {
			result.Member = member
			return nil
		}
		result, evts, err = s.assign(ctx, tx, member.ID, *typeID)
		return err
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.AssignResult{}, nil, domain.ErrDuplicateEmail
		}
		return domain.AssignResult{}, nil, err
	}

	s.log.Info("member created", zap.String("member_id", member.ID.String()))
	return result, evts, nil
}

func (s *Service) GetMember(ctx context.Context, id string) (domain.Member, error) {
	memberID, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return domain.Member{}, err
	}
	m, err := s.repo.FindMemberByID(ctx, s.db, memberID)
	if err != nil {
		return domain.Member{}, err
	}
	if m == nil {
		return domain.Member{}, domain.ErrNotFound
	}
	return *m, nil
}

func (s *Service) AssignMembership(ctx context.Context, req domain.AssignMembershipRequest) (domain.AssignResult, []events.Event, error) {
	memberID, err := parseID(req.MemberID, domain.ErrInvalidID)
	if err != nil {
		return domain.AssignResult{}, nil, err
	}
	typeID, err := parseID(req.MembershipTypeID, domain.ErrInvalidType)
	if err != nil {
		return domain.AssignResult{}, nil, err
	}

	var (
		result domain.AssignResult
		evts   []events.Event
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, evts, err = s.assign(ctx, tx, memberID, typeID)
		return err
	})
	if err != nil {
		return domain.AssignResult{}, nil, err
	}
	return result, evts, nil
}

// assign sets the member's type and issues the fee invoice in the same
// transaction, so an assignment never exists without its invoice.
func (s *Service) assign(ctx context.Context, tx *gorm.DB, memberID, typeID snowflake.ID) (domain.AssignResult, []events.Event, error) {
	t, err := s.repo.FindTypeByID(ctx, tx, typeID)
	if err != nil {
		return domain.AssignResult{}, nil, err
	}
	if t == nil {
		return domain.AssignResult{}, nil, domain.ErrTypeNotFound
	}
	if !t.Active {
		return domain.AssignResult{}, nil, domain.ErrInactiveType
	}

	member, err := s.repo.FindMemberByID(ctx, tx, memberID)
	if err != nil {
		return domain.AssignResult{}, nil, err
	}
	if member == nil {
		return domain.AssignResult{}, nil, domain.ErrNotFound
	}

	if member.MembershipTypeID != nil && *member.MembershipTypeID == t.ID {
		member.MembershipType = t
		s.log.Info("membership already assigned",
			zap.String("member_id", member.ID.String()),
			zap.String("membership_type_id", t.ID.String()),
		)
		return domain.AssignResult{Member: *member}, nil, nil
	}

	now := s.clock.Now()
	if err := s.repo.AssignType(ctx, tx, member.ID, t.ID, now); err != nil {
		return domain.AssignResult{}, nil, err
	}
	member.MembershipTypeID = &t.ID
	member.MembershipAssignedAt = &now
	member.UpdatedAt = now
	member.MembershipType = t

	inv, evts, err := s.invoices.GenerateForMembership(ctx, tx, invoicedomain.MembershipInput{
		MemberID:   member.ID,
		MemberName: member.Name,
		TypeName:   t.Name,
		Fee:        t.Fee,
	})
	if err != nil {
		return domain.AssignResult{}, nil, err
	}

	evts = append([]events.Event{
		events.New(events.MembershipAssigned, now, "member", member.ID.String(), map[string]any{
			events.AttrType:   t.Name,
			events.AttrAmount: t.Fee.Cents(),
		}),
	}, evts...)

	s.log.Info("membership assigned",
		zap.String("member_id", member.ID.String()),
		zap.String("membership_type_id", t.ID.String()),
		zap.Bool("invoiced", inv != nil),
	)
	return domain.AssignResult{Member: *member, Invoice: inv}, evts, nil
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, invalid
	}
	id, err := snowflake.ParseString(trimmed)
	if err != nil || id <= 0 {
		return 0, invalid
	}
	return id, nil
}

func fieldError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	switch verrs[0].StructField() {
	case "Name":
		return domain.ErrInvalidName
	case "Email":
		return domain.ErrInvalidEmail
	case "MaxBorrowDays":
		return domain.ErrInvalidBorrowDays
	case "MaxBooks":
		return domain.ErrInvalidMaxBooks
	case "Fee":
		return domain.ErrInvalidFee
	default:
		return err
	}
}
