package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/apisuite/packages/core/vars"
	"github.com/abdul-hamid-achik/apisuite/packages/logging"
	"github.com/abdul-hamid-achik/apisuite/packages/model"
	"github.com/abdul-hamid-achik/apisuite/packages/store"
)

// RunCase executes a single case in a fresh session. Nothing is persisted.
func (e *Engine) RunCase(ctx context.Context, tc *model.TestCase, seed map[string]any) *model.Result {
	return e.ExecuteCase(ctx, e.NewSession(seed), tc)
}

// RunCases executes the given cases in order in one shared session, so
// variables extracted by one case are visible to the next. Unknown ids
// yield placeholder results. The final variables are returned alongside.
func (e *Engine) RunCases(ctx context.Context, ids []int64, seed map[string]any) ([]*model.Result, map[string]any, error) {
	if err := e.requireRepo(); err != nil {
		return nil, nil, err
	}

	sess := e.NewSession(seed)
	results := make([]*model.Result, 0, len(ids))
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		tc, err := e.repo.GetCase(ctx, id)
		if err != nil {
			msg := fmt.Sprintf("test case with id %d not found", id)
			if !errors.Is(err, store.ErrNotFound) {
				msg = fmt.Sprintf("loading test case %d: %v", id, err)
			}
			results = append(results, model.NewErrorResult(id, "Unknown", msg))
			continue
		}
		results = append(results, e.ExecuteCase(ctx, sess, tc))
	}
	return results, sess.Vars.Snapshot(), nil
}

// DebugResult is a case result together with everything logged while it
// ran and the variables it left behind.
type DebugResult struct {
	Result    *model.Result  `json:"result"`
	Log       []string       `json:"log"`
	Variables map[string]any `json:"variables"`
}

// DebugCase runs an unsaved case definition and captures its diagnostics:
// interpolation warnings, hook output, the equivalent curl command,
// extraction outcomes and failing assertions.
func (e *Engine) DebugCase(ctx context.Context, tc *model.TestCase, seed map[string]any) *DebugResult {
	capture := logging.NewCapturingLogger(nil)
	sess := e.newSession(seed, capture)

	for _, name := range vars.Unresolved([]any{tc.URL, tc.Headers, tc.Body}, sess.Vars) {
		capture.Printf("variable %q is not set", name)
	}

	res := e.ExecuteCase(ctx, sess, tc)
	capture.Printf("case %q: %s (%s)", tc.Name, res.Status, res.Duration.Round(time.Millisecond))

	return &DebugResult{
		Result:    res,
		Log:       capture.Lines(),
		Variables: sess.Vars.Snapshot(),
	}
}

// SuiteDebug is the flat, non-persisted run of one suite's own items.
type SuiteDebug struct {
	SuiteID       int64           `json:"suite_id"`
	SuiteName     string          `json:"suite_name"`
	Results       []*model.Result `json:"results"`
	TotalDuration time.Duration   `json:"total_duration"`
}

// DebugSuite runs the cases a suite owns directly, through case and module
// items; child suites are skipped. When include is non-empty only cases
// whose id is listed run. No report is written.
func (e *Engine) DebugSuite(ctx context.Context, suiteID int64, include []int64, seed map[string]any) (*SuiteDebug, error) {
	if err := e.requireRepo(); err != nil {
		return nil, err
	}
	suite, err := e.repo.GetSuite(ctx, suiteID)
	if err != nil {
		return nil, fmt.Errorf("loading suite %d: %w", suiteID, err)
	}

	wanted := make(map[int64]bool, len(include))
	for _, id := range include {
		wanted[id] = true
	}
	selected := func(id int64) bool {
		return len(wanted) == 0 || wanted[id]
	}

	start := time.Now()
	sess := e.NewSession(seed)
	out := &SuiteDebug{SuiteID: suite.ID, SuiteName: suite.Name, Results: []*model.Result{}}

	items := append([]model.SuiteItem(nil), suite.Items...)
	model.SortItems(items)
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		switch item.Type {
		case model.ItemCase:
			if item.TestCaseID == nil || !selected(*item.TestCaseID) {
				continue
			}
			tc, err := e.repo.GetCase(ctx, *item.TestCaseID)
			if err != nil {
				out.Results = append(out.Results, missing(*item.TestCaseID, *item.TestCaseID, "Missing Case", "test case", err))
				continue
			}
			out.Results = append(out.Results, e.ExecuteCase(ctx, sess, tc))
		case model.ItemModule:
			if item.ModuleID == nil {
				continue
			}
			cases, err := e.repo.ListCasesByModule(ctx, *item.ModuleID)
			if err != nil {
				out.Results = append(out.Results, missing(0, *item.ModuleID, "Missing Module", "module", err))
				continue
			}
			for _, tc := range cases {
				if selected(tc.ID) {
					out.Results = append(out.Results, e.ExecuteCase(ctx, sess, tc))
				}
			}
		}
	}

	out.TotalDuration = time.Since(start)
	return out, nil
}
