package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Axees-0/axeesBE-sub017/internal/domain"
)

func TestApproveEarning(t *testing.T) {
	admin := Actor{SubjectID: "admin-1", Role: "admin"}

	t.Run("admin approves an escrowed earning", func(t *testing.T) {
		e := newTestEngine(t, nil)
		seedStandardDeal(e, "deal-1", "earn-1", 6000, 5)

		earning, err := e.svc.ApproveEarning(context.Background(), admin, "earn-1")
		require.NoError(t, err)
		require.NotNil(t, earning.ApprovedAt)
		assert.Equal(t, testNow, *earning.ApprovedAt)
		assert.Equal(t, "admin-1", earning.ApprovedBy)
	})

	t.Run("missing subject is unauthorized", func(t *testing.T) {
		e := newTestEngine(t, nil)
		_, err := e.svc.ApproveEarning(context.Background(), Actor{}, "earn-1")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		e := newTestEngine(t, nil)
		_, err := e.svc.ApproveEarning(context.Background(), Actor{SubjectID: "user-1", Role: "marketer"}, "earn-1")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("unknown earning", func(t *testing.T) {
		e := newTestEngine(t, nil)
		_, err := e.svc.ApproveEarning(context.Background(), admin, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("already released earning is a conflict", func(t *testing.T) {
		e := newTestEngine(t, nil)
		seedStandardDeal(e, "deal-1", "earn-1", 100, 35)
		_, err := e.svc.RunOnce(context.Background(), "manual")
		require.NoError(t, err)

		_, err = e.svc.ApproveEarning(context.Background(), admin, "earn-1")
		assert.ErrorIs(t, err, domain.ErrEarningNotEscrowed)
	})
}

func TestScheduleRelease(t *testing.T) {
	releaseAt := testNow.Add(48 * time.Hour)

	t.Run("deal marketer schedules a release", func(t *testing.T) {
		e := newTestEngine(t, nil)
		seedStandardDeal(e, "deal-1", "earn-1", 100, 5)

		actor := Actor{SubjectID: "marketer-1", Role: "marketer"}
		earning, err := e.svc.ScheduleRelease(context.Background(), actor, "earn-1", releaseAt)
		require.NoError(t, err)
		require.NotNil(t, earning.ScheduledReleaseDate)
		assert.Equal(t, releaseAt.UTC(), *earning.ScheduledReleaseDate)
	})

	t.Run("admin may schedule on any deal", func(t *testing.T) {
		e := newTestEngine(t, nil)
		seedStandardDeal(e, "deal-1", "earn-1", 100, 5)

		_, err := e.svc.ScheduleRelease(context.Background(), Actor{SubjectID: "admin-1", Role: "admin"}, "earn-1", releaseAt)
		require.NoError(t, err)
	})

	t.Run("other marketer is forbidden", func(t *testing.T) {
		e := newTestEngine(t, nil)
		seedStandardDeal(e, "deal-1", "earn-1", 100, 5)

		actor := Actor{SubjectID: "marketer-2", Role: "marketer"}
		_, err := e.svc.ScheduleRelease(context.Background(), actor, "earn-1", releaseAt)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("zero release date is invalid", func(t *testing.T) {
		e := newTestEngine(t, nil)
		actor := Actor{SubjectID: "marketer-1", Role: "marketer"}
		_, err := e.svc.ScheduleRelease(context.Background(), actor, "earn-1", time.Time{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("released earning is a conflict", func(t *testing.T) {
		e := newTestEngine(t, nil)
		seedStandardDeal(e, "deal-1", "earn-1", 100, 35)
		_, err := e.svc.RunOnce(context.Background(), "manual")
		require.NoError(t, err)

		actor := Actor{SubjectID: "marketer-1", Role: "marketer"}
		_, err = e.svc.ScheduleRelease(context.Background(), actor, "earn-1", releaseAt)
		assert.ErrorIs(t, err, domain.ErrEarningNotEscrowed)
	})
}

func TestLatestRunSummary(t *testing.T) {
	e := newTestEngine(t, nil)

	_, err := e.svc.LatestRunSummary(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ran, err := e.svc.RunOnce(context.Background(), "manual")
	require.NoError(t, err)

	latest, err := e.svc.LatestRunSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ran.RunID, latest.RunID)
	assert.Equal(t, "manual", latest.Trigger)
}

func TestGetEarning(t *testing.T) {
	e := newTestEngine(t, nil)
	seedStandardDeal(e, "deal-1", "earn-1", 100, 5)

	earning, err := e.svc.GetEarning(context.Background(), "earn-1")
	require.NoError(t, err)
	assert.Equal(t, "deal-1", earning.DealID)

	_, err = e.svc.GetEarning(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
