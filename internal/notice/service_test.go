package notice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	circulationdomain "github.com/smallbiznis/shelfwise/internal/circulation/domain"
	"github.com/smallbiznis/shelfwise/internal/config"
	"github.com/smallbiznis/shelfwise/internal/events"
	feedomain "github.com/smallbiznis/shelfwise/internal/fee/domain"
	"github.com/smallbiznis/shelfwise/internal/providers/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticSource []circulationdomain.MemberOverdue

func (s staticSource) ListOverdue(context.Context, time.Time) ([]circulationdomain.MemberOverdue, error) {
	return s, nil
}

type recordingMailer struct {
	sent   []email.Message
	failTo string
}

func (m *recordingMailer) Send(_ context.Context, msg email.Message) error {
	if msg.To[0] == m.failTo {
		return errors.New("smtp: 550 mailbox unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

var now = time.Date(2024, 4, 5, 9, 0, 0, 0, time.UTC)

func overdueFixture() staticSource {
	due := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	return staticSource{
		{
			MemberID:    snowflake.ID(11),
			MemberName:  "Ada",
			MemberEmail: "ada@example.org",
			Loans: []circulationdomain.OverdueLoan{
				{MemberID: 11, Title: "Dune", DueDate: due},
				{MemberID: 11, Title: "Emma", DueDate: due.AddDate(0, 0, 2)},
			},
		},
		{
			MemberID:    snowflake.ID(12),
			MemberName:  "Brook",
			MemberEmail: "brook@example.org",
			Loans:       []circulationdomain.OverdueLoan{{MemberID: 12, Title: "Ulysses", DueDate: due}},
		},
		{
			MemberID:   snowflake.ID(13),
			MemberName: "Cy",
			Loans:      []circulationdomain.OverdueLoan{{MemberID: 13, Title: "Beloved", DueDate: due}},
		},
	}
}

func newTestSender(source OverdueSource, mailer email.Provider, settings feedomain.Settings) *Sender {
	cfg := config.Config{LibraryName: "Shelfwise Library"}
	return NewSender(zap.NewNop(), source, mailer, feedomain.StaticSettings(settings), cfg)
}

func TestSendOverdueNoticesCountsFailuresAndContinues(t *testing.T) {
	mailer := &recordingMailer{failTo: "brook@example.org"}
	sender := newTestSender(overdueFixture(), mailer, feedomain.DefaultSettings())

	result, evts, err := sender.SendOverdueNotices(context.Background(), now)
	require.NoError(t, err)

	assert.False(t, result.Disabled)
	assert.NotEmpty(t, result.BatchID)
	assert.Equal(t, 3, result.Members)
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 2, result.Failed)

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, []string{"ada@example.org"}, msg.To)
	assert.Equal(t, "Shelfwise Library: 2 overdue item(s)", msg.Subject)
	// 4 days at $0.25 and 2 days at $0.25.
	assert.Contains(t, msg.HTMLBody, "$1.00")
	assert.Contains(t, msg.HTMLBody, "$0.50")
	assert.Contains(t, msg.HTMLBody, "$1.50")
	assert.Contains(t, msg.HTMLBody, "2024-04-01")

	require.Len(t, evts, 3)
	assert.Equal(t, events.OverdueNoticeSent, evts[0].Type)
	assert.Equal(t, events.OverdueNoticeFailed, evts[1].Type)
	assert.Equal(t, events.OverdueNoticeFailed, evts[2].Type)
	assert.Equal(t, ErrMissingEmail.Error(), evts[2].String("error"))
}

func TestSendOverdueNoticesDisabled(t *testing.T) {
	settings := feedomain.DefaultSettings()
	settings.OverdueNotices = false
	mailer := &recordingMailer{}
	sender := newTestSender(overdueFixture(), mailer, settings)

	result, evts, err := sender.SendOverdueNotices(context.Background(), now)
	require.NoError(t, err)
	assert.True(t, result.Disabled)
	assert.Zero(t, result.Members)
	assert.Empty(t, evts)
	assert.Empty(t, mailer.sent)
}

func TestSendOverdueNoticesStopsOnCancelledContext(t *testing.T) {
	sender := NewSender(zap.NewNop(), overdueFixture(), &recordingMailer{}, feedomain.StaticSettings(feedomain.DefaultSettings()),
		config.Config{Email: config.EmailConfig{SendsPerSecond: 0.001}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := sender.SendOverdueNotices(ctx, now)
	assert.ErrorIs(t, err, context.Canceled)
}
