package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/apisuite/packages/logging"
	"github.com/abdul-hamid-achik/apisuite/packages/model"
	"github.com/abdul-hamid-achik/apisuite/packages/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memReports struct {
	reports   map[int64]*model.Report
	records   []model.Record
	failWrite bool
	failRead  bool
}

func newMemReports() *memReports {
	return &memReports{reports: make(map[int64]*model.Report)}
}

func (m *memReports) CreateReport(_ context.Context, r *model.Report) (int64, error) {
	if m.failWrite {
		return 0, errors.New("disk full")
	}
	r.ID = int64(len(m.reports) + 1)
	cp := *r
	m.reports[r.ID] = &cp
	return r.ID, nil
}

func (m *memReports) GetReport(_ context.Context, id int64) (*model.Report, error) {
	r, ok := m.reports[id]
	if !ok || m.failRead {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memReports) UpdateReport(_ context.Context, id int64, p model.ReportPatch) error {
	if m.failWrite {
		return errors.New("disk full")
	}
	r, ok := m.reports[id]
	if !ok {
		return store.ErrNotFound
	}
	r.EndTime = p.EndTime
	r.Duration = *p.Duration
	r.Total, r.Pass, r.Fail, r.Error = *p.Total, *p.Pass, *p.Fail, *p.Error
	r.Status = *p.Status
	r.Latency = p.Latency
	return nil
}

func (m *memReports) CreateRecord(_ context.Context, rec *model.Record) (int64, error) {
	if m.failWrite {
		return 0, errors.New("disk full")
	}
	m.records = append(m.records, *rec)
	return int64(len(m.records)), nil
}

func results(statuses ...model.Status) []*model.Result {
	out := make([]*model.Result, len(statuses))
	for i, s := range statuses {
		out[i] = &model.Result{CaseID: int64(i + 1), Name: string(s), Status: s, Duration: time.Duration(i+1) * 100 * time.Millisecond}
	}
	return out
}

func TestSummarize(t *testing.T) {
	s := Summarize(results(model.StatusSuccess, model.StatusFail, model.StatusError))
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Pass)
	assert.Equal(t, 1, s.Fail)
	assert.Equal(t, 1, s.Error)
	assert.Equal(t, model.ReportFailed, s.Status)
	assert.False(t, s.Passed())
	assert.Equal(t, 600*time.Millisecond, s.Duration)

	ok := Summarize(results(model.StatusSuccess, model.StatusSuccess))
	assert.Equal(t, model.ReportSuccess, ok.Status)
	assert.True(t, ok.Passed())

	empty := Summarize(nil)
	assert.Equal(t, 0, empty.Total)
	assert.Equal(t, model.ReportSuccess, empty.Status)
}

func TestAggregator_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newMemReports()
	agg := NewAggregator(repo, nil)

	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return start }

	id, err := agg.Open(ctx, &model.TestSuite{ID: 3, Name: "smoke"})
	require.NoError(t, err)
	r := repo.reports[id]
	assert.Equal(t, model.ReportRunning, r.Status)
	assert.Equal(t, "smoke", r.SuiteName)
	assert.Equal(t, 0, r.Total)

	rs := results(model.StatusSuccess, model.StatusFail, model.StatusError)
	for _, res := range rs {
		agg.Record(ctx, id, res)
	}
	assert.Len(t, repo.records, 3)

	agg.now = func() time.Time { return start.Add(90 * time.Second) }
	summary := agg.Finalize(ctx, id, rs)

	assert.Equal(t, 90*time.Second, summary.Duration)
	r = repo.reports[id]
	assert.Equal(t, model.ReportFailed, r.Status)
	assert.Equal(t, 3, r.Total)
	assert.Equal(t, 1, r.Pass)
	assert.Equal(t, 1, r.Fail)
	assert.Equal(t, 1, r.Error)
	assert.Equal(t, 90.0, r.Duration)
	require.NotNil(t, r.EndTime)
	require.NotNil(t, r.Latency)
	assert.InDelta(t, 300, r.Latency.Max, 1)
}

func TestAggregator_FinalizeFallsBackToCaseDurations(t *testing.T) {
	ctx := context.Background()
	repo := newMemReports()
	agg := NewAggregator(repo, nil)

	id, err := agg.Open(ctx, &model.TestSuite{ID: 1, Name: "s"})
	require.NoError(t, err)
	repo.failRead = true

	summary := agg.Finalize(ctx, id, results(model.StatusSuccess, model.StatusSuccess))
	assert.Equal(t, 300*time.Millisecond, summary.Duration)
	assert.Equal(t, model.ReportSuccess, repo.reports[id].Status)
}

func TestAggregator_WriteFailuresAreLogged(t *testing.T) {
	ctx := context.Background()
	repo := newMemReports()
	log := logging.NewCapturingLogger(nil)
	agg := NewAggregator(repo, log)

	id, err := agg.Open(ctx, &model.TestSuite{ID: 1, Name: "s"})
	require.NoError(t, err)

	repo.failWrite = true
	agg.Record(ctx, id, results(model.StatusSuccess)[0])
	summary := agg.Finalize(ctx, id, results(model.StatusSuccess))

	assert.Equal(t, 1, summary.Total)
	assert.True(t, log.HasMessageContaining("failed to record"))
	assert.True(t, log.HasMessageContaining("failed to finalize"))

	_, err = agg.Open(ctx, &model.TestSuite{ID: 2})
	assert.Error(t, err)
}

func TestLatency(t *testing.T) {
	assert.Equal(t, model.LatencySummary{}, Latency(nil))

	var ds []time.Duration
	for i := 1; i <= 100; i++ {
		ds = append(ds, time.Duration(i)*time.Millisecond)
	}
	l := Latency(ds)
	assert.InDelta(t, 50, l.P50, 1)
	assert.InDelta(t, 95, l.P95, 1)
	assert.InDelta(t, 100, l.Max, 1)
	assert.InDelta(t, 50.5, l.Mean, 1)
}

func TestLatency_LongDurations(t *testing.T) {
	l := Latency([]time.Duration{10 * time.Millisecond, 90 * time.Second})
	assert.InEpsilon(t, 90_000, l.Max, 0.01)
	assert.InEpsilon(t, 90_000, l.P99, 0.01)

	clamped := Latency([]time.Duration{2 * time.Hour})
	assert.InEpsilon(t, float64(time.Hour/time.Millisecond), clamped.Max, 0.01)
}
