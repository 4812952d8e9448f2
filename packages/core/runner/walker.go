package runner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/apisuite/packages/model"
	"github.com/abdul-hamid-achik/apisuite/packages/report"
	"github.com/abdul-hamid-achik/apisuite/packages/store"
)

// SuiteRun is the outcome of a top-level suite run. ReportID is 0 when no
// report was written.
type SuiteRun struct {
	SuiteID  int64           `json:"suite_id"`
	ReportID int64           `json:"report_id"`
	Results  []*model.Result `json:"results"`
	Summary  report.Summary  `json:"summary"`
}

// walk is the state shared by every level of one suite run. Report writes
// use persist, which outlives cancellation of the run itself.
type walk struct {
	sess     *Session
	reports  *report.Aggregator
	persist  context.Context
	reportID int64
	results  []*model.Result
}

func (w *walk) add(r *model.Result) {
	w.results = append(w.results, r)
	if w.reports != nil {
		w.reports.Record(w.persist, w.reportID, r)
	}
}

// RunSuite walks a suite tree with a fresh session and seed variables.
// Business failures never surface as an error: a missing suite yields a
// single placeholder result.
func (e *Engine) RunSuite(ctx context.Context, suiteID int64, seed map[string]any) (*SuiteRun, error) {
	return e.RunSuiteInSession(ctx, e.NewSession(seed), suiteID)
}

// RunSuiteInSession walks a suite tree in an existing session. It opens a
// report before walking and finalizes it afterwards, also when ctx is
// cancelled part way.
func (e *Engine) RunSuiteInSession(ctx context.Context, sess *Session, suiteID int64) (*SuiteRun, error) {
	if err := e.requireRepo(); err != nil {
		return nil, err
	}

	run := &SuiteRun{SuiteID: suiteID}
	suite, err := e.repo.GetSuite(ctx, suiteID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			sess.Log.Printf("suite %d: %v", suiteID, err)
		}
		run.Results = []*model.Result{
			model.NewErrorResult(0, "Unknown Suite", fmt.Sprintf("test suite with id %d not found", suiteID)),
		}
		run.Summary = report.Summarize(run.Results)
		return run, nil
	}

	w := &walk{sess: sess, reports: e.reports, persist: context.WithoutCancel(ctx)}
	if e.reports != nil {
		id, err := e.reports.Open(w.persist, suite)
		if err != nil {
			sess.Log.Printf("%v", err)
		}
		w.reportID = id
	}

	sess.Log.Printf("suite %q: started", suite.Name)
	e.walkSuite(ctx, w, suite, []int64{suite.ID})

	run.ReportID = w.reportID
	run.Results = w.results
	if e.reports != nil {
		run.Summary = e.reports.Finalize(w.persist, w.reportID, w.results)
	} else {
		run.Summary = report.Summarize(w.results)
	}
	sess.Log.Printf("suite %q: %d total, %d passed, %d failed, %d errors",
		suite.Name, run.Summary.Total, run.Summary.Pass, run.Summary.Fail, run.Summary.Error)
	return run, nil
}

// walkSuite processes the items of suite in sort order. path is the chain of
// suite ids from the root down to and including suite.
func (e *Engine) walkSuite(ctx context.Context, w *walk, suite *model.TestSuite, path []int64) {
	items := append([]model.SuiteItem(nil), suite.Items...)
	model.SortItems(items)

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			w.sess.Log.Printf("suite %q: stopping, %v", suite.Name, err)
			return
		}
		e.walkItem(ctx, w, item, path)
	}
}

func (e *Engine) walkItem(ctx context.Context, w *walk, item model.SuiteItem, path []int64) {
	defer func() {
		if r := recover(); r != nil {
			w.sess.Log.Printf("item %d (%s %d): panic: %v", item.ID, item.Type, item.TargetID(), r)
			w.add(model.NewErrorResult(itemCaseID(item), fmt.Sprintf("Error executing item %d", item.ID), fmt.Sprint(r)))
		}
	}()

	if err := item.Validate(); err != nil {
		w.add(model.NewErrorResult(itemCaseID(item), fmt.Sprintf("Error executing item %d", item.ID), err.Error()))
		return
	}

	switch item.Type {
	case model.ItemCase:
		id := *item.TestCaseID
		tc, err := e.repo.GetCase(ctx, id)
		if err != nil {
			w.add(missing(id, id, "Missing Case", "test case", err))
			return
		}
		w.add(e.ExecuteCase(ctx, w.sess, tc))

	case model.ItemModule:
		id := *item.ModuleID
		if _, err := e.repo.GetModule(ctx, id); err != nil {
			w.add(missing(0, id, "Missing Module", "module", err))
			return
		}
		cases, err := e.repo.ListCasesByModule(ctx, id)
		if err != nil {
			w.add(model.NewErrorResult(0, fmt.Sprintf("Error executing item %d", item.ID), err.Error()))
			return
		}
		for _, tc := range cases {
			if ctx.Err() != nil {
				return
			}
			w.add(e.ExecuteCase(ctx, w.sess, tc))
		}

	case model.ItemSuite:
		id := *item.ChildSuiteID
		if containsID(path, id) {
			w.add(model.NewErrorResult(0, "Cyclic Suite", "cyclic suite reference: "+formatPath(append(path, id))))
			return
		}
		if limit := e.cfg.MaxSuiteDepth; limit > 0 && len(path) >= limit {
			w.add(model.NewErrorResult(0, "Suite Too Deep", fmt.Sprintf("suite nesting exceeds max depth %d", limit)))
			return
		}
		child, err := e.repo.GetSuite(ctx, id)
		if err != nil {
			w.add(missing(0, id, "Missing Suite", "test suite", err))
			return
		}
		w.sess.Log.Printf("suite %q: entering", child.Name)
		e.walkSuite(ctx, w, child, append(path[:len(path):len(path)], id))
	}
}

// missing builds the placeholder for an unresolvable reference. caseID is
// non-zero only when the reference itself is a case, so the stored record
// never points at an unrelated case.
func missing(caseID, id int64, name, kind string, err error) *model.Result {
	if errors.Is(err, store.ErrNotFound) {
		return model.NewErrorResult(caseID, name, fmt.Sprintf("%s ID %d not found", kind, id))
	}
	return model.NewErrorResult(caseID, name, fmt.Sprintf("loading %s ID %d: %v", kind, id, err))
}

// itemCaseID is the case an item refers to, or 0 for module and suite items.
func itemCaseID(item model.SuiteItem) int64 {
	if item.Type == model.ItemCase && item.TestCaseID != nil {
		return *item.TestCaseID
	}
	return 0
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func formatPath(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, " -> ")
}
