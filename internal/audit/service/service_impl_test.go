package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/shelfwise/internal/audit/domain"
	"github.com/smallbiznis/shelfwise/internal/audit/repository"
	obscontext "github.com/smallbiznis/shelfwise/internal/observability/context"
	"github.com/smallbiznis/shelfwise/pkg/db/dbtest"
	"github.com/smallbiznis/shelfwise/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) auditdomain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewService(Params{
		DB:    dbtest.Open(t, &auditdomain.AuditLog{}),
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestAuditLogResolvesActorFromContext(t *testing.T) {
	svc := newTestService(t)
	ctx := obscontext.WithActor(context.Background(), "staff", "librarian-7")
	ctx = obscontext.WithRequestID(ctx, "req-1")

	target := "123"
	require.NoError(t, svc.AuditLog(ctx, "", nil, "stock.adjusted", "book", &target, map[string]any{
		"member_email": "reader@example.org",
		"quantity":     2,
	}))

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{TargetType: "book"})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	assert.Equal(t, "staff", entry.ActorType)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "librarian-7", *entry.ActorID)
	assert.Equal(t, "req-1", entry.Metadata["request_id"])
	assert.Equal(t, "r****@example.org", entry.Metadata["member_email"])
}

func TestAuditLogDefaultsToSystemActor(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.AuditLog(context.Background(), "", nil, "notice.sent", "", nil, nil))

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, "system", resp.AuditLogs[0].ActorType)
	assert.Equal(t, "unknown", resp.AuditLogs[0].TargetType)
}

func TestAuditLogRejectsEmptyAction(t *testing.T) {
	svc := newTestService(t)
	assert.ErrorIs(t, svc.AuditLog(context.Background(), "", nil, " ", "book", nil, nil), auditdomain.ErrInvalidAction)
}

func TestListPaginates(t *testing.T) {
	svc := newTestService(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.AuditLog(context.Background(), "system", nil, "invoice.issued", "invoice", nil, nil))
	}

	first, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	assert.Len(t, first.AuditLogs, 3)
	assert.False(t, first.HasMore)

	_, err = svc.List(context.Background(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageToken: "not-a-token"},
	})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}
