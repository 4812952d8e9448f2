package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/apisuite/packages/assertions"
	"github.com/abdul-hamid-achik/apisuite/packages/capture"
	"github.com/abdul-hamid-achik/apisuite/packages/core/vars"
	"github.com/abdul-hamid-achik/apisuite/packages/http"
	"github.com/abdul-hamid-achik/apisuite/packages/model"
)

// Phase is a step of case execution. A failed result records the phase it
// stopped in.
type Phase string

const (
	PhasePending       Phase = "pending"
	PhaseInterpolating Phase = "interpolating"
	PhaseSetup         Phase = "setup"
	PhaseDispatching   Phase = "dispatching"
	PhaseTeardown      Phase = "teardown"
	PhaseExtracting    Phase = "extracting"
	PhaseAsserting     Phase = "asserting"
	PhaseDone          Phase = "done"
)

const defaultAccept = "application/json, */*"

// ExecuteCase runs one case in sess. It never returns nil and never panics
// on bad input: every failure is reported through the Result.
func (e *Engine) ExecuteCase(ctx context.Context, sess *Session, tc *model.TestCase) *model.Result {
	start := time.Now()
	res := &model.Result{
		CaseID:     tc.ID,
		Name:       tc.Name,
		StartTime:  start,
		Phase:      string(PhasePending),
		Assertions: model.AssertionOutcome{Result: model.StatusSuccess, Details: []model.AssertionDetail{}},
	}
	defer func() {
		res.Duration = time.Since(start)
	}()

	fail := func(phase Phase, format string, args ...any) *model.Result {
		res.Status = model.StatusError
		res.Phase = string(phase)
		res.Error = fmt.Sprintf(format, args...)
		sess.Log.Printf("case %q: %s error: %s", tc.Name, phase, res.Error)
		return res
	}

	sess.Log.Printf("case %q: %s", tc.Name, PhaseInterpolating)
	res.Phase = string(PhaseInterpolating)
	req := e.prepare(sess, tc)

	if strings.TrimSpace(tc.SetupScript) != "" {
		res.Phase = string(PhaseSetup)
		if err := e.executeSetupHook(ctx, sess, tc.SetupScript, req); err != nil {
			res.Request = snapshotRequest(req, nil)
			return fail(PhaseSetup, "%v", err)
		}
	}

	res.Phase = string(PhaseDispatching)
	headers := stringHeaders(req.Headers)
	res.Request = snapshotRequest(req, headers)

	data, contentType, err := http.EncodeBody(req.Body, headerValue(headers, "Content-Type"))
	if err != nil {
		return fail(PhaseDispatching, "%v", err)
	}
	if contentType != "" && headerValue(headers, "Content-Type") == "" {
		headers["Content-Type"] = contentType
	}

	if err := ctx.Err(); err != nil {
		return fail(PhaseDispatching, "cancelled: %v", err)
	}

	httpReq := &http.Request{
		Method:  req.Method,
		URL:     req.URL,
		Headers: headers,
		Body:    data,
	}
	sess.Log.Printf("%s", http.Curl(httpReq))

	resp, err := sess.Client.Do(ctx, httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return fail(PhaseDispatching, "cancelled: %v", err)
		}
		return fail(PhaseDispatching, "request failed: %v", err)
	}

	body, isJSON := resp.JSON()
	res.StatusCode = resp.StatusCode
	res.Response = &model.ResponseSnapshot{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.BodyString(),
		JSON:       body,
	}
	sess.Log.Printf("case %q: %s in %s", tc.Name, resp.Status, resp.Duration.Round(time.Millisecond))
	if !isJSON && len(resp.Body) > 0 {
		sess.Log.Printf("case %q: response is not JSON, keeping raw text", tc.Name)
	}

	if strings.TrimSpace(tc.TeardownScript) != "" {
		res.Phase = string(PhaseTeardown)
		if err := e.executeTeardownHook(ctx, sess, tc.TeardownScript, resp.StatusCode, resp.BodyString(), body); err != nil {
			return fail(PhaseTeardown, "%v", err)
		}
	}

	res.Phase = string(PhaseExtracting)
	res.Extractions = capture.Extract(body, tc.ExtractRules, sess.Vars, sess.Log)

	res.Phase = string(PhaseAsserting)
	res.Assertions = assertions.Evaluate(body, resp.StatusCode, tc.Assertions)
	for _, d := range res.Assertions.Details {
		if d.Result != model.StatusSuccess {
			sess.Log.Printf("case %q: assertion %s %s %s failed: %s", tc.Name, d.Check, d.Comparator, d.Expect, d.Message)
		}
	}

	res.Status = res.Assertions.Result
	res.Phase = string(PhaseDone)
	return res
}

// prepare interpolates the case against the session variables, resolves the
// URL against the base and merges the default headers.
func (e *Engine) prepare(sess *Session, tc *model.TestCase) *outgoing {
	ip := vars.NewInterpolator(sess.Vars, vars.WithWarn(sess.Log.Printf))

	method := strings.ToUpper(strings.TrimSpace(ip.Text(tc.Method)))
	if method == "" {
		method = "GET"
	}

	headers := map[string]any{
		"Accept":     defaultAccept,
		"User-Agent": e.userAgent(),
	}
	for k, v := range e.cfg.Headers {
		setHeader(headers, k, ip.Text(v))
	}
	if caseHeaders, ok := ip.Value(tc.Headers).(map[string]any); ok {
		for k, v := range caseHeaders {
			setHeader(headers, k, v)
		}
	}
	if ct := http.ContentTypeFor(tc.ContentType); ct != "" && anyHeader(headers, "Content-Type") == nil {
		headers["Content-Type"] = ct
	}

	return &outgoing{
		URL:     http.JoinURL(sess.BaseURL, vars.Stringify(ip.Value(tc.URL))),
		Method:  method,
		Headers: headers,
		Body:    ip.Value(tc.Body),
	}
}

// setHeader replaces any existing header whose name matches key
// case-insensitively.
func setHeader(headers map[string]any, key string, value any) {
	for k := range headers {
		if strings.EqualFold(k, key) {
			delete(headers, k)
		}
	}
	headers[key] = value
}

func anyHeader(headers map[string]any, key string) any {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return nil
}

func headerValue(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func stringHeaders(headers map[string]any) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if v == nil {
			continue
		}
		out[k] = vars.Stringify(v)
	}
	return out
}

func snapshotRequest(req *outgoing, headers map[string]string) *model.RequestSnapshot {
	if headers == nil {
		headers = stringHeaders(req.Headers)
	}
	return &model.RequestSnapshot{
		Method:  req.Method,
		URL:     req.URL,
		Headers: headers,
		Body:    req.Body,
	}
}
