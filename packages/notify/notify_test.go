package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/apisuite/packages/model"
	"github.com/abdul-hamid-achik/apisuite/packages/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	name  string
	err   error
	calls []*RunSummary
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Notify(_ context.Context, s *RunSummary) error {
	r.calls = append(r.calls, s)
	return r.err
}

func summaryWith(failed int) *RunSummary {
	return &RunSummary{Suite: "smoke", Total: 3, Passed: 3 - failed, Failed: failed}
}

func TestNewRunSummary(t *testing.T) {
	results := []*model.Result{
		{Name: "ok", Status: model.StatusSuccess},
		{Name: "bad status", Status: model.StatusFail, Assertions: model.AssertionOutcome{
			Result: model.StatusFail,
			Details: []model.AssertionDetail{
				{Check: "json.ok", Comparator: "equals", Expect: "true", Actual: "true", Result: model.StatusSuccess},
				{Check: "status_code", Comparator: "equals", Expect: "200", Actual: "500", Result: model.StatusFail},
			},
		}},
		{Name: "down", Status: model.StatusError, Error: "request failed: connection refused"},
	}

	s := NewRunSummary("smoke", 4, "uat", results, report.Summarize(results))
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Passed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Errors)
	assert.False(t, s.Succeeded())
	assert.Equal(t, []FailedCase{
		{Name: "bad status", Status: model.StatusFail, Reason: "status_code equals 200: got 500"},
		{Name: "down", Status: model.StatusError, Reason: "request failed: connection refused"},
	}, s.FailedCases)
	assert.Equal(t, "smoke: 1 failed, 1 errors of 3 cases", s.Headline())
}

func TestManager_Policies(t *testing.T) {
	tests := []struct {
		on      NotifyOn
		runs    []int // failures per run
		want    []bool
		recover []bool
	}{
		{on: NotifyAlways, runs: []int{0, 1}, want: []bool{true, true}},
		{on: NotifyFailure, runs: []int{0, 1}, want: []bool{false, true}},
		{on: NotifySuccess, runs: []int{0, 1}, want: []bool{true, false}},
		{on: NotifyRecovery, runs: []int{0, 1, 0, 0}, want: []bool{false, true, true, false}, recover: []bool{false, false, true, false}},
	}

	for _, tt := range tests {
		t.Run(string(tt.on), func(t *testing.T) {
			n := &recordingNotifier{name: "rec"}
			m := NewManager(tt.on, n)
			for i, failed := range tt.runs {
				before := len(n.calls)
				s := summaryWith(failed)
				require.NoError(t, m.Notify(context.Background(), s))
				assert.Equal(t, tt.want[i], len(n.calls) > before, "run %d", i)
				if tt.recover != nil {
					assert.Equal(t, tt.recover[i], s.IsRecovery, "run %d", i)
				}
			}
		})
	}
}

func TestManager_JoinsErrors(t *testing.T) {
	a := &recordingNotifier{name: "a", err: errors.New("boom")}
	b := &recordingNotifier{name: "b"}
	err := NewManager(NotifyAlways, a, b).Notify(context.Background(), summaryWith(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a: boom")
	assert.Len(t, b.calls, 1)
}

func TestParseNotifyOn(t *testing.T) {
	on, err := ParseNotifyOn("recovery")
	require.NoError(t, err)
	assert.Equal(t, NotifyRecovery, on)

	_, err = ParseNotifyOn("sometimes")
	assert.Error(t, err)
}

type capture struct {
	mu     sync.Mutex
	bodies [][]byte
}

func (c *capture) server(t *testing.T, status int) *httptest.Server {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.bodies = append(c.bodies, body)
		c.mu.Unlock()
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSlackNotifier(t *testing.T) {
	c := &capture{}
	srv := c.server(t, nethttp.StatusOK)

	s := summaryWith(1)
	s.ReportID = 12
	s.Duration = 1500 * time.Millisecond
	s.FailedCases = []FailedCase{{Name: "login", Status: model.StatusFail, Reason: "status_code equals 200: got 401"}}

	n := NewSlackNotifier(srv.URL, WithSlackChannel("#api"))
	require.NoError(t, n.Notify(context.Background(), s))

	require.Len(t, c.bodies, 1)
	var msg slackMessage
	require.NoError(t, json.Unmarshal(c.bodies[0], &msg))
	assert.Equal(t, "#api", msg.Channel)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "danger", msg.Attachments[0].Color)
	assert.Equal(t, "smoke: 1 failed, 0 errors of 3 cases", msg.Attachments[0].Title)
	assert.Contains(t, msg.Attachments[0].Text, "`login` fail: status_code equals 200: got 401")
	assert.Equal(t, "apisuite report #12", msg.Attachments[0].Footer)
}

func TestWebhookNotifier(t *testing.T) {
	c := &capture{}
	srv := c.server(t, nethttp.StatusAccepted)

	require.NoError(t, NewWebhookNotifier(srv.URL, nil).Notify(context.Background(), summaryWith(0)))
	var got RunSummary
	require.NoError(t, json.Unmarshal(c.bodies[0], &got))
	assert.Equal(t, "smoke", got.Suite)
	assert.Equal(t, 3, got.Passed)

	failing := (&capture{}).server(t, nethttp.StatusInternalServerError)
	err := NewWebhookNotifier(failing.URL, nil).Notify(context.Background(), summaryWith(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
