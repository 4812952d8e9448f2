package runner

import (
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/apisuite/packages/core/config"
	"github.com/abdul-hamid-achik/apisuite/packages/core/vars"
	"github.com/abdul-hamid-achik/apisuite/packages/http"
	"github.com/abdul-hamid-achik/apisuite/packages/logging"
	"github.com/abdul-hamid-achik/apisuite/packages/report"
	"github.com/abdul-hamid-achik/apisuite/packages/script"
	"github.com/abdul-hamid-achik/apisuite/packages/store"
)

// DefaultVersion is sent in the User-Agent header when no version is set.
const DefaultVersion = "dev"

// Engine runs cases, modules and suites. It holds no per-run state; every
// run gets its own Session.
type Engine struct {
	cfg     *config.Config
	repo    store.Reader
	reports *report.Aggregator
	scripts script.Engine
	log     logging.Logger
	version string
}

type Option func(*Engine)

// WithRepository sets where cases, modules and suites are read from.
func WithRepository(repo store.Reader) Option {
	return func(e *Engine) {
		e.repo = repo
	}
}

// WithAggregator enables report persistence for suite runs.
func WithAggregator(a *report.Aggregator) Option {
	return func(e *Engine) {
		e.reports = a
	}
}

func WithScriptEngine(s script.Engine) Option {
	return func(e *Engine) {
		e.scripts = s
	}
}

func WithLogger(l logging.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

func WithVersion(v string) Option {
	return func(e *Engine) {
		if v != "" {
			e.version = v
		}
	}
}

// NewEngine validates cfg and builds an engine. A nil cfg means defaults.
func NewEngine(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	e := &Engine{
		cfg:     cfg,
		version: DefaultVersion,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.log = logging.OrDiscard(e.log)
	if e.scripts == nil {
		e.scripts = script.NewExprEngine(
			script.WithTimeout(cfg.ScriptTimeout()),
			script.WithMaxNodes(cfg.HookMaxNodes),
		)
	}
	return e, nil
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

var errNoRepository = errors.New("engine has no repository")

func (e *Engine) requireRepo() error {
	if e.repo == nil {
		return errNoRepository
	}
	return nil
}

// Session is the state one run carries from case to case: the variable
// store, the HTTP client with its cookie jar, and where diagnostics go.
type Session struct {
	Vars    *vars.Store
	Client  *http.Client
	BaseURL string
	Log     logging.Logger
}

// NewSession starts a run with seed copied into a fresh variable store.
func (e *Engine) NewSession(seed map[string]any) *Session {
	return e.newSession(seed, e.log)
}

func (e *Engine) newSession(seed map[string]any, log logging.Logger) *Session {
	timeout := e.cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = http.DefaultTimeout
	}
	opts := []http.ClientOption{
		http.WithTimeout(timeout),
		http.WithFollowRedirects(e.cfg.GetFollowRedirects()),
		http.WithValidateSSL(e.cfg.GetValidateSSL()),
	}
	if e.cfg.MaxRedirects > 0 {
		opts = append(opts, http.WithMaxRedirects(e.cfg.MaxRedirects))
	}
	if e.cfg.Proxy != "" {
		opts = append(opts, http.WithProxy(e.cfg.Proxy))
	}
	if e.cfg.RateLimit > 0 {
		opts = append(opts, http.WithRateLimit(e.cfg.RateLimit))
	}

	return &Session{
		Vars:    vars.NewStoreFrom(seed),
		Client:  http.NewSessionClient(opts...),
		BaseURL: e.cfg.ResolveBaseURL(),
		Log:     logging.OrDiscard(log),
	}
}

func (e *Engine) userAgent() string {
	if e.cfg.UserAgent != "" {
		return e.cfg.UserAgent
	}
	return "apisuite/" + e.version
}
