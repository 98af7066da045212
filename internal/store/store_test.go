package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outlierx/internal/models"
	"outlierx/internal/validator"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "db", "outlierx.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func testRun(id string, started time.Time) Run {
	return Run{
		ID:         id,
		Status:     "invalid",
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		Duplicates: 2,
		Report: validator.BatchReport{
			TotalRecords:   5,
			ValidRecords:   3,
			InvalidRecords: 2,
			SampleCap:      10,
			ErrorsByField: []validator.FieldCount{
				{Field: "sport", Count: 1},
				{Field: "odds", Count: 2},
			},
			ErrorSamples: []validator.Violation{
				{Row: 1, Field: "odds", Rule: models.RuleMinValue, Value: 0.5, Message: "below minimum"},
				{Row: 4, Field: "sport", Rule: models.RuleEnum, Value: "cricket", Message: "not allowed"},
			},
			Warnings: []validator.Violation{
				{Row: 2, Field: "timestamp", Rule: models.RuleFreshness, Message: "30.0 hours old"},
			},
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	started := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveRun(ctx, testRun("run-1", started)))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, "invalid", got.Status)
	assert.True(t, got.StartedAt.Equal(started))
	assert.Equal(t, 1500*time.Millisecond, got.Duration())
	assert.Equal(t, 2, got.Duplicates)
	assert.Equal(t, 1, got.WarningCount)
	assert.Equal(t, []validator.FieldCount{{Field: "sport", Count: 1}, {Field: "odds", Count: 2}}, got.Report.ErrorsByField)

	require.Len(t, got.Report.ErrorSamples, 2)
	assert.Equal(t, 0.5, got.Report.ErrorSamples[0].Value)
	assert.Equal(t, "cricket", got.Report.ErrorSamples[1].Value)
	assert.Equal(t, models.RuleEnum, got.Report.ErrorSamples[1].Rule)

	require.Len(t, got.Report.Warnings, 1)
	assert.Nil(t, got.Report.Warnings[0].Value)
}

func TestGetRun_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetRun(context.Background(), "missing")
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestSaveRun_DuplicateID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	run := testRun("run-1", time.Now())

	require.NoError(t, s.SaveRun(ctx, run))
	require.Error(t, s.SaveRun(ctx, run))

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestListRuns_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveRun(ctx, testRun(id, base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
	assert.Equal(t, 1, runs[0].WarningCount)
	assert.Empty(t, runs[0].Report.ErrorSamples)

	all, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
