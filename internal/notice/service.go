// Package notice emails members about loans that are past due.
package notice

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	circulationdomain "github.com/smallbiznis/shelfwise/internal/circulation/domain"
	"github.com/smallbiznis/shelfwise/internal/config"
	"github.com/smallbiznis/shelfwise/internal/events"
	"github.com/smallbiznis/shelfwise/internal/fee/calculator"
	feedomain "github.com/smallbiznis/shelfwise/internal/fee/domain"
	"github.com/smallbiznis/shelfwise/internal/providers/email"
	"github.com/smallbiznis/shelfwise/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const dateLayout = "2006-01-02"

var ErrMissingEmail = errors.New("member_email_missing")

// OverdueSource lists active overdue loans grouped by member.
type OverdueSource interface {
	ListOverdue(ctx context.Context, now time.Time) ([]circulationdomain.MemberOverdue, error)
}

type Result struct {
	BatchID  string `json:"batch_id"`
	Disabled bool   `json:"disabled"`
	Members  int    `json:"members"`
	Sent     int    `json:"sent"`
	Failed   int    `json:"failed"`
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Loans    circulationdomain.Service
	Mailer   email.Provider
	Settings feedomain.SettingsProvider
	Config   config.Config
}

type Sender struct {
	log      *zap.Logger
	loans    OverdueSource
	mailer   email.Provider
	settings feedomain.SettingsProvider
	limiter  *rate.Limiter
	library  string
	replyTo  string
}

func New(p Params) *Sender {
	return NewSender(p.Log, p.Loans, p.Mailer, p.Settings, p.Config)
}

func NewSender(log *zap.Logger, loans OverdueSource, mailer email.Provider, settings feedomain.SettingsProvider, cfg config.Config) *Sender {
	limit := rate.Inf
	if cfg.Email.SendsPerSecond > 0 {
		limit = rate.Limit(cfg.Email.SendsPerSecond)
	}
	return &Sender{
		log:      log.Named("notice.sender"),
		loans:    loans,
		mailer:   mailer,
		settings: settings,
		limiter:  rate.NewLimiter(limit, 1),
		library:  cfg.LibraryName,
		replyTo:  cfg.LibraryEmail,
	}
}

// SendOverdueNotices sends one email per member with overdue loans.
// Failures for a single member are counted and the batch moves on.
func (s *Sender) SendOverdueNotices(ctx context.Context, now time.Time) (Result, []events.Event, error) {
	settings := s.settings.Get()
	result := Result{BatchID: ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()}
	if !settings.OverdueNotices {
		result.Disabled = true
		return result, nil, nil
	}

	calc, err := calculator.New(settings)
	if err != nil {
		return result, nil, err
	}

	groups, err := s.loans.ListOverdue(ctx, now)
	if err != nil {
		return result, nil, err
	}
	result.Members = len(groups)

	log := s.log.With(zap.String("batch_id", result.BatchID))
	var evts []events.Event
	for _, group := range groups {
		if err := s.limiter.Wait(ctx); err != nil {
			return result, evts, err
		}

		target := group.MemberID.String()
		if err := s.send(ctx, calc, group, now); err != nil {
			result.Failed++
			log.Warn("overdue notice failed",
				zap.String("member_id", target),
				zap.Error(err),
			)
			evts = append(evts, events.New(events.OverdueNoticeFailed, now, "member", target, map[string]any{
				events.AttrMemberID: target,
				"error":             err.Error(),
			}))
			continue
		}
		result.Sent++
		evts = append(evts, events.New(events.OverdueNoticeSent, now, "member", target, map[string]any{
			events.AttrMemberID: target,
			"loans":             len(group.Loans),
		}))
	}

	log.Info("overdue notices processed",
		zap.Int("members", result.Members),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
	)
	return result, evts, nil
}

func (s *Sender) send(ctx context.Context, calc *calculator.Calculator, group circulationdomain.MemberOverdue, now time.Time) error {
	to := strings.TrimSpace(group.MemberEmail)
	if to == "" {
		return ErrMissingEmail
	}

	data := email.OverdueNoticeData{
		LibraryName:  s.library,
		LibraryEmail: s.replyTo,
		MemberName:   group.MemberName,
	}
	var total money.Amount
	for _, loan := range group.Loans {
		days := calculator.DaysLate(loan.DueDate, now)
		fine := calc.OverdueFineForDays(days)
		total += fine
		data.Items = append(data.Items, email.OverdueLine{
			Title:    loan.Title,
			DueDate:  loan.DueDate.UTC().Format(dateLayout),
			DaysLate: days,
			Fine:     calc.FormatFine(fine),
		})
	}
	data.TotalFine = calc.FormatFine(total)

	body, err := email.Render(email.TemplateOverdueNotice, data)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("%s: %d overdue item(s)", s.library, len(group.Loans))
	return s.mailer.Send(ctx, email.Message{To: []string{to}, Subject: subject, HTMLBody: body})
}
