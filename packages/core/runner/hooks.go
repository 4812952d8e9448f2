package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/apisuite/packages/script"
)

// outgoing is the request as it stands before dispatch. Setup hooks may
// rewrite any of its fields.
type outgoing struct {
	URL     string
	Method  string
	Headers map[string]any
	Body    any
}

// executeSetupHook runs the case's setup script and reads the request fields
// back from the scope.
func (e *Engine) executeSetupHook(ctx context.Context, sess *Session, src string, req *outgoing) error {
	if strings.TrimSpace(src) == "" {
		return nil
	}

	scope := script.SetupScope(sess.Vars, req.URL, req.Method, req.Headers, req.Body)
	err := e.scripts.Execute(ctx, src, scope)
	logHookOutput(sess, scope)
	if err != nil {
		return fmt.Errorf("setup script failed: %w", err)
	}

	req.URL = scope.String("url")
	req.Method = strings.ToUpper(scope.String("method"))
	if h, ok := scope.Get("headers").(map[string]any); ok {
		req.Headers = h
	} else if scope.Get("headers") == nil {
		req.Headers = map[string]any{}
	}
	req.Body = scope.Get("body")
	return nil
}

// executeTeardownHook runs the case's teardown script against the response.
func (e *Engine) executeTeardownHook(ctx context.Context, sess *Session, src string, statusCode int, text string, body any) error {
	if strings.TrimSpace(src) == "" {
		return nil
	}

	scope := script.TeardownScope(sess.Vars, statusCode, text, body)
	err := e.scripts.Execute(ctx, src, scope)
	logHookOutput(sess, scope)
	if err != nil {
		return fmt.Errorf("teardown script failed: %w", err)
	}
	return nil
}

func logHookOutput(sess *Session, scope *script.Scope) {
	for _, line := range scope.Output() {
		sess.Log.Printf("[%s] %s", scope.Hook, line)
	}
}
