package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/gymdesk/internal/actor"
	auditdomain "github.com/smallbiznis/gymdesk/internal/audit/domain"
	"github.com/smallbiznis/gymdesk/internal/audit/repository"
	"github.com/smallbiznis/gymdesk/internal/clock"
	"github.com/smallbiznis/gymdesk/internal/storetest"
	"github.com/smallbiznis/gymdesk/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (auditdomain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()
	db := storetest.Open(t)
	fake := clock.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: storetest.Node(t),
		Clock: fake,
		Repo:  repository.Provide(),
	})
	return svc, db, fake
}

func TestRecordMasksPhoneMetadata(t *testing.T) {
	svc, db, _ := newTestService(t)

	err := svc.Record(context.Background(), nil, auditdomain.Entry{
		Actor:       "desk",
		Action:      auditdomain.ActionMemberRegistered,
		TargetType:  "member",
		TargetID:    "17",
		Description: "Member registered",
		Metadata:    map[string]any{"phone": "5551234567", "shift": "morning"},
	})
	require.NoError(t, err)

	var entry auditdomain.ActivityEntry
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, "****4567", entry.Metadata["phone"])
	assert.Equal(t, "morning", entry.Metadata["shift"])
	require.NotNil(t, entry.TargetID)
	assert.Equal(t, "17", *entry.TargetID)
}

func TestRecordRejectsMissingActorOrAction(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	err := svc.Record(ctx, nil, auditdomain.Entry{Action: auditdomain.ActionLogin})
	assert.ErrorIs(t, err, actor.ErrUnauthenticated)

	err = svc.Record(ctx, nil, auditdomain.Entry{Actor: "desk"})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestRecordRollsBackWithCallerTransaction(t *testing.T) {
	svc, db, _ := newTestService(t)

	sentinel := assert.AnError
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := svc.Record(context.Background(), tx, auditdomain.Entry{
			Actor:  "desk",
			Action: auditdomain.ActionStockAdjusted,
		}); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	var count int64
	require.NoError(t, db.Model(&auditdomain.ActivityEntry{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRecordSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.RecordSession(ctx, auditdomain.SessionRequest{Actor: "ana", Action: auditdomain.ActionLogin}))
	require.NoError(t, svc.RecordSession(ctx, auditdomain.SessionRequest{Actor: "ana", Action: auditdomain.ActionLogout}))

	err := svc.RecordSession(ctx, auditdomain.SessionRequest{Actor: "ana", Action: auditdomain.ActionSaleCreated})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)

	resp, err := svc.List(ctx, auditdomain.ListRequest{Actor: "ana"})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "Session ended", resp.Entries[0].Description)
	assert.Equal(t, "Session started", resp.Entries[1].Description)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	svc, _, fake := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Record(ctx, nil, auditdomain.Entry{Actor: "desk", Action: auditdomain.ActionCheckIn}))
		fake.Advance(time.Minute)
	}

	first, err := svc.List(ctx, auditdomain.ListRequest{Pagination: pagination.Pagination{PageSize: 3}})
	require.NoError(t, err)
	require.Len(t, first.Entries, 3)
	assert.True(t, first.HasMore)
	require.NotEmpty(t, first.NextPageToken)
	assert.True(t, first.Entries[0].OccurredAt.After(first.Entries[2].OccurredAt))

	second, err := svc.List(ctx, auditdomain.ListRequest{Pagination: pagination.Pagination{PageSize: 3, PageToken: first.NextPageToken}})
	require.NoError(t, err)
	require.Len(t, second.Entries, 2)
	assert.False(t, second.HasMore)
	assert.True(t, first.Entries[2].OccurredAt.After(second.Entries[0].OccurredAt))

	_, err = svc.List(ctx, auditdomain.ListRequest{Pagination: pagination.Pagination{PageToken: "%%%"}})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}

func TestListRejectsInvertedRange(t *testing.T) {
	svc, _, _ := newTestService(t)
	start := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)

	_, err := svc.List(context.Background(), auditdomain.ListRequest{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)
}

func TestPurgeRemovesOldEntries(t *testing.T) {
	svc, _, fake := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, nil, auditdomain.Entry{Actor: "desk", Action: auditdomain.ActionLogin}))
	fake.Advance(48 * time.Hour)
	require.NoError(t, svc.Record(ctx, nil, auditdomain.Entry{Actor: "desk", Action: auditdomain.ActionLogout}))

	removed, err := svc.Purge(ctx, fake.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	resp, err := svc.List(ctx, auditdomain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, auditdomain.ActionLogout, resp.Entries[0].Action)
}
