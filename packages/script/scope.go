package script

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/abdul-hamid-achik/apisuite/packages/core/vars"
)

// Hook names a script phase.
type Hook string

const (
	HookSetup    Hook = "setup"
	HookTeardown Hook = "teardown"
)

// Scope is everything a script may touch: the run's variable store and the
// hook context. Context values may be replaced with setField, but no key may
// be added.
type Scope struct {
	Hook    Hook
	Vars    *vars.Store
	Context map[string]any

	mu     sync.Mutex
	output []string
	closed atomic.Bool
}

func NewScope(hook Hook, store *vars.Store, context map[string]any) *Scope {
	if context == nil {
		context = make(map[string]any)
	}
	return &Scope{Hook: hook, Vars: store, Context: context}
}

// SetupScope builds the request-side context.
func SetupScope(store *vars.Store, url, method string, headers map[string]any, body any) *Scope {
	return NewScope(HookSetup, store, map[string]any{
		"url":     url,
		"method":  method,
		"headers": headers,
		"body":    body,
	})
}

// TeardownScope builds the response-side context.
func TeardownScope(store *vars.Store, statusCode int, response string, responseJSON any) *Scope {
	return NewScope(HookTeardown, store, map[string]any{
		"status_code":   statusCode,
		"response":      response,
		"response_json": responseJSON,
	})
}

// Output returns the lines written with log().
func (s *Scope) Output() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.output))
	copy(out, s.output)
	return out
}

func (s *Scope) String(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return vars.Stringify(s.Context[key])
}

func (s *Scope) Get(key string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Context[key]
}

func (s *Scope) print(args ...any) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = vars.Stringify(a)
	}
	s.mu.Lock()
	s.output = append(s.output, strings.Join(parts, " "))
	s.mu.Unlock()
}

func (s *Scope) setField(key string, value any) bool {
	if s.closed.Load() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Context[key]; !ok {
		return false
	}
	s.Context[key] = value
	return true
}

func (s *Scope) snapshotContext() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.Context))
	for k, v := range s.Context {
		out[k] = v
	}
	return out
}

// close stops a timed-out script from writing anything further.
func (s *Scope) close() {
	s.closed.Store(true)
}
