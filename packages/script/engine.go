package script

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/apisuite/packages/builtin"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
)

const DefaultTimeout = 2 * time.Second

// DefaultMaxNodes caps the syntax tree of a single statement.
const DefaultMaxNodes = 1000

// Engine executes hook scripts against a Scope.
type Engine interface {
	Execute(ctx context.Context, script string, scope *Scope) error
}

// ExprEngine interprets scripts with expr. A script is a list of expressions,
// one per line; lines starting with # or // are comments.
type ExprEngine struct {
	timeout  time.Duration
	maxNodes int
	registry *builtin.Registry
	extra    map[string]any
}

type Option func(*ExprEngine)

func WithTimeout(d time.Duration) Option {
	return func(e *ExprEngine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithMaxNodes bounds the number of syntax tree nodes per statement.
func WithMaxNodes(n int) Option {
	return func(e *ExprEngine) {
		if n > 0 {
			e.maxNodes = n
		}
	}
}

// WithFunction exposes an additional function to scripts.
func WithFunction(name string, fn any) Option {
	return func(e *ExprEngine) {
		e.extra[name] = fn
	}
}

func NewExprEngine(opts ...Option) *ExprEngine {
	e := &ExprEngine{
		timeout:  DefaultTimeout,
		maxNodes: DefaultMaxNodes,
		registry: builtin.NewRegistry(),
		extra:    make(map[string]any),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Statements splits a script into its executable lines.
func Statements(script string) []string {
	var out []string
	for _, line := range strings.Split(script, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// Execute runs the statements of script in order under the engine timeout.
// On timeout or cancellation the scope is closed: the statement in flight
// finishes in the background with its writes dropped and no further
// statement starts.
func (e *ExprEngine) Execute(ctx context.Context, script string, scope *Scope) error {
	stmts := Statements(script)
	if len(stmts) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- e.run(ctx, stmts, scope)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		scope.close()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s script timed out after %s", scope.Hook, e.timeout)
		}
		return fmt.Errorf("%s script cancelled: %w", scope.Hook, ctx.Err())
	}
}

func (e *ExprEngine) run(ctx context.Context, stmts []string, scope *Scope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s script panicked: %v", scope.Hook, r)
		}
	}()

	for i, stmt := range stmts {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		env := e.env(scope)
		nodes := &nodeCounter{}
		program, err := expr.Compile(stmt, expr.Env(env), expr.Patch(nodes))
		if err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
		if nodes.count > e.maxNodes {
			return fmt.Errorf("statement %d: expression has %d nodes, limit is %d", i+1, nodes.count, e.maxNodes)
		}
		if _, err := expr.Run(program, env); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	return nil
}

// nodeCounter counts the nodes of a parsed statement.
type nodeCounter struct {
	count int
}

func (c *nodeCounter) Visit(*ast.Node) {
	c.count++
}

func (e *ExprEngine) env(scope *Scope) map[string]any {
	env := e.registry.Env()
	for name, fn := range e.extra {
		env[name] = fn
	}
	for k, v := range scope.snapshotContext() {
		env[k] = v
	}

	env["vars"] = scope.Vars.Snapshot()
	env["getVar"] = func(name string) any {
		v, _ := scope.Vars.Get(name)
		return v
	}
	env["setVar"] = func(name string, value any) any {
		if !scope.closed.Load() {
			scope.Vars.Set(name, value)
		}
		return value
	}
	env["unsetVar"] = func(name string) bool {
		if scope.closed.Load() {
			return false
		}
		had := scope.Vars.Has(name)
		scope.Vars.Delete(name)
		return had
	}
	env["setField"] = func(name string, value any) bool {
		return scope.setField(name, value)
	}
	env["log"] = func(args ...any) bool {
		scope.print(args...)
		return true
	}
	return env
}
