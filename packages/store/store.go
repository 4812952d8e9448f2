package store

import (
	"context"
	"errors"

	"github.com/abdul-hamid-achik/apisuite/packages/model"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Reader is the read side the execution engine depends on.
type Reader interface {
	GetCase(ctx context.Context, id int64) (*model.TestCase, error)
	// ListCasesByModule returns the module's cases by priority ascending,
	// then newest first.
	ListCasesByModule(ctx context.Context, moduleID int64) ([]*model.TestCase, error)
	GetModule(ctx context.Context, id int64) (*model.TestModule, error)
	// GetSuite returns the suite with its items sorted by sort order.
	GetSuite(ctx context.Context, id int64) (*model.TestSuite, error)
}

// ReportWriter persists reports and their records.
type ReportWriter interface {
	CreateReport(ctx context.Context, r *model.Report) (int64, error)
	GetReport(ctx context.Context, id int64) (*model.Report, error)
	UpdateReport(ctx context.Context, id int64, patch model.ReportPatch) error
	CreateRecord(ctx context.Context, rec *model.Record) (int64, error)
}

// Repository is the full management surface.
type Repository interface {
	Reader
	ReportWriter

	ListCases(ctx context.Context, skip, limit int) ([]*model.TestCase, error)
	CreateCase(ctx context.Context, c *model.TestCase) (int64, error)
	UpdateCase(ctx context.Context, c *model.TestCase) error
	DeleteCase(ctx context.Context, id int64) error
	DeleteCases(ctx context.Context, ids []int64) (int, error)
	CopyCase(ctx context.Context, id int64) (*model.TestCase, error)
	ReorderCases(ctx context.Context, ids []int64) error

	CreateModule(ctx context.Context, m *model.TestModule) (int64, error)
	ListModules(ctx context.Context) ([]*model.TestModule, error)
	DeleteModule(ctx context.Context, id int64) error

	CreateSuite(ctx context.Context, s *model.TestSuite) (int64, error)
	UpdateSuite(ctx context.Context, s *model.TestSuite) error
	DeleteSuite(ctx context.Context, id int64) error
	ListSuites(ctx context.Context) ([]*model.TestSuite, error)

	ListReports(ctx context.Context, skip, limit int) ([]*model.Report, error)

	Close() error
}
