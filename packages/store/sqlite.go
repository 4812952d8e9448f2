package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/apisuite/packages/model"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS test_modules (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	parent_id   INTEGER
);
CREATE TABLE IF NOT EXISTS test_cases (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	module_id       INTEGER,
	name            TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	url             TEXT NOT NULL,
	method          TEXT NOT NULL,
	content_type    TEXT NOT NULL DEFAULT '',
	headers         TEXT,
	body            TEXT,
	extract_rules   TEXT,
	assertions      TEXT,
	setup_script    TEXT NOT NULL DEFAULT '',
	teardown_script TEXT NOT NULL DEFAULT '',
	priority        INTEGER NOT NULL DEFAULT 0,
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_test_cases_module ON test_cases(module_id);
CREATE TABLE IF NOT EXISTS test_suites (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	parent_id   INTEGER,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS suite_items (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	suite_id       INTEGER NOT NULL,
	item_type      TEXT NOT NULL,
	test_case_id   INTEGER,
	module_id      INTEGER,
	child_suite_id INTEGER,
	sort_order     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_suite_items_suite ON suite_items(suite_id);
CREATE TABLE IF NOT EXISTS test_reports (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	suite_id    INTEGER,
	suite_name  TEXT NOT NULL,
	start_time  INTEGER NOT NULL,
	end_time    INTEGER,
	duration    REAL NOT NULL DEFAULT 0,
	total_cases INTEGER NOT NULL DEFAULT 0,
	pass_count  INTEGER NOT NULL DEFAULT 0,
	fail_count  INTEGER NOT NULL DEFAULT 0,
	error_count INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	latency     TEXT
);
CREATE TABLE IF NOT EXISTS test_records (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	report_id         INTEGER NOT NULL,
	test_case_id      INTEGER,
	case_name         TEXT NOT NULL,
	start_time        INTEGER NOT NULL,
	duration          REAL NOT NULL DEFAULT 0,
	status            TEXT NOT NULL,
	url               TEXT NOT NULL DEFAULT '',
	method            TEXT NOT NULL DEFAULT '',
	status_code       INTEGER NOT NULL DEFAULT 0,
	request_headers   TEXT,
	request_body      TEXT,
	response_headers  TEXT,
	response_body     TEXT NOT NULL DEFAULT '',
	error_message     TEXT NOT NULL DEFAULT '',
	assertion_results TEXT
);
CREATE INDEX IF NOT EXISTS idx_test_records_report ON test_records(report_id);
`

const caseColumns = `id, module_id, name, description, url, method, content_type, headers, body,
	extract_rules, assertions, setup_script, teardown_script, priority, created_at, updated_at`

// SQLite is a Repository backed by a SQLite database.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

var _ Repository = (*SQLite)(nil)

// Open connects to the database named by connStr and applies the schema.
// Supported formats:
// - sqlite://path/to/db.sqlite
// - sqlite:./test.db
// - sqlite://:memory:
func Open(connStr string) (*SQLite, error) {
	driver, dsn, err := parseConnectionString(connStr)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps :memory: databases alive and serialises writers
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func parseConnectionString(connStr string) (driver string, dsn string, err error) {
	connStr = strings.TrimSpace(connStr)

	if strings.HasPrefix(connStr, "sqlite://") {
		return "sqlite3", strings.TrimPrefix(connStr, "sqlite://"), nil
	}
	if strings.HasPrefix(connStr, "sqlite:") {
		return "sqlite3", strings.TrimPrefix(connStr, "sqlite:"), nil
	}
	if scheme, _, ok := strings.Cut(connStr, "://"); ok {
		return "", "", fmt.Errorf("unsupported database scheme: %s", scheme)
	}
	if connStr == "" {
		return "", "", fmt.Errorf("empty connection string")
	}
	// bare path
	return "sqlite3", connStr, nil
}

// Cases

func (s *SQLite) GetCase(ctx context.Context, id int64) (*model.TestCase, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM test_cases WHERE id = ?`, id)
	c, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("test case %d: %w", id, ErrNotFound)
	}
	return c, err
}

func (s *SQLite) ListCases(ctx context.Context, skip, limit int) ([]*model.TestCase, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+caseColumns+` FROM test_cases ORDER BY priority ASC, created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, skip)
	if err != nil {
		return nil, fmt.Errorf("listing cases: %w", err)
	}
	return collectCases(rows)
}

func (s *SQLite) ListCasesByModule(ctx context.Context, moduleID int64) ([]*model.TestCase, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+caseColumns+` FROM test_cases WHERE module_id = ? ORDER BY priority ASC, created_at DESC, id DESC`,
		moduleID)
	if err != nil {
		return nil, fmt.Errorf("listing cases of module %d: %w", moduleID, err)
	}
	return collectCases(rows)
}

func (s *SQLite) CreateCase(ctx context.Context, c *model.TestCase) (int64, error) {
	cols, err := caseValues(c)
	if err != nil {
		return 0, err
	}
	now := s.now()
	res, err := s.db.ExecContext(ctx, `INSERT INTO test_cases (module_id, name, description, url, method,
		content_type, headers, body, extract_rules, assertions, setup_script, teardown_script, priority,
		created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		append(cols, now.UnixNano(), now.UnixNano())...)
	if err != nil {
		return 0, fmt.Errorf("creating case: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now
	return id, nil
}

func (s *SQLite) UpdateCase(ctx context.Context, c *model.TestCase) error {
	cols, err := caseValues(c)
	if err != nil {
		return err
	}
	now := s.now()
	res, err := s.db.ExecContext(ctx, `UPDATE test_cases SET module_id = ?, name = ?, description = ?, url = ?,
		method = ?, content_type = ?, headers = ?, body = ?, extract_rules = ?, assertions = ?,
		setup_script = ?, teardown_script = ?, priority = ?, updated_at = ? WHERE id = ?`,
		append(cols, now.UnixNano(), c.ID)...)
	if err != nil {
		return fmt.Errorf("updating case %d: %w", c.ID, err)
	}
	if err := expectRow(res, "test case", c.ID); err != nil {
		return err
	}
	c.UpdatedAt = now
	return nil
}

func (s *SQLite) DeleteCase(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM test_cases WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting case %d: %w", id, err)
	}
	return expectRow(res, "test case", id)
}

// DeleteCases removes every listed case and reports how many existed.
func (s *SQLite) DeleteCases(ctx context.Context, ids []int64) (int, error) {
	deleted := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			res, err := tx.ExecContext(ctx, `DELETE FROM test_cases WHERE id = ?`, id)
			if err != nil {
				return fmt.Errorf("deleting case %d: %w", id, err)
			}
			n, _ := res.RowsAffected()
			deleted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (s *SQLite) CopyCase(ctx context.Context, id int64) (*model.TestCase, error) {
	src, err := s.GetCase(ctx, id)
	if err != nil {
		return nil, err
	}
	dup := src.Copy()
	if _, err := s.CreateCase(ctx, dup); err != nil {
		return nil, err
	}
	return dup, nil
}

// ReorderCases sets each case's priority to its index in ids.
func (s *SQLite) ReorderCases(ctx context.Context, ids []int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for i, id := range ids {
			if _, err := tx.ExecContext(ctx, `UPDATE test_cases SET priority = ? WHERE id = ?`, i, id); err != nil {
				return fmt.Errorf("reordering case %d: %w", id, err)
			}
		}
		return nil
	})
}

// Modules

func (s *SQLite) GetModule(ctx context.Context, id int64) (*model.TestModule, error) {
	m := &model.TestModule{}
	var parent sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT id, name, description, parent_id FROM test_modules WHERE id = ?`, id).
		Scan(&m.ID, &m.Name, &m.Description, &parent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("module %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading module %d: %w", id, err)
	}
	m.ParentID = int64Ptr(parent)
	return m, nil
}

func (s *SQLite) CreateModule(ctx context.Context, m *model.TestModule) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO test_modules (name, description, parent_id) VALUES (?, ?, ?)`,
		m.Name, m.Description, nullInt(m.ParentID))
	if err != nil {
		return 0, fmt.Errorf("creating module: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	m.ID = id
	return id, nil
}

func (s *SQLite) ListModules(ctx context.Context) ([]*model.TestModule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description, parent_id FROM test_modules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing modules: %w", err)
	}
	defer rows.Close()

	var out []*model.TestModule
	for rows.Next() {
		m := &model.TestModule{}
		var parent sql.NullInt64
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &parent); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		m.ParentID = int64Ptr(parent)
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteModule removes the module. Its cases survive with module_id cleared.
func (s *SQLite) DeleteModule(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE test_cases SET module_id = NULL WHERE module_id = ?`, id); err != nil {
			return fmt.Errorf("detaching cases of module %d: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM test_modules WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("deleting module %d: %w", id, err)
		}
		return expectRow(res, "module", id)
	})
}

// Suites

func (s *SQLite) GetSuite(ctx context.Context, id int64) (*model.TestSuite, error) {
	suite := &model.TestSuite{}
	var parent sql.NullInt64
	var created, updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, parent_id, created_at, updated_at FROM test_suites WHERE id = ?`, id).
		Scan(&suite.ID, &suite.Name, &suite.Description, &parent, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("suite %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading suite %d: %w", id, err)
	}
	suite.ParentID = int64Ptr(parent)
	suite.CreatedAt = time.Unix(0, created)
	suite.UpdatedAt = time.Unix(0, updated)

	items, err := s.suiteItems(ctx, id)
	if err != nil {
		return nil, err
	}
	suite.Items = items
	return suite, nil
}

func (s *SQLite) suiteItems(ctx context.Context, suiteID int64) ([]model.SuiteItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, suite_id, item_type, test_case_id, module_id, child_suite_id,
		sort_order FROM suite_items WHERE suite_id = ? ORDER BY sort_order ASC, id ASC`, suiteID)
	if err != nil {
		return nil, fmt.Errorf("listing items of suite %d: %w", suiteID, err)
	}
	defer rows.Close()

	items := make([]model.SuiteItem, 0)
	for rows.Next() {
		var it model.SuiteItem
		var itemType string
		var caseID, moduleID, childID sql.NullInt64
		if err := rows.Scan(&it.ID, &it.SuiteID, &itemType, &caseID, &moduleID, &childID, &it.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		it.Type = model.ItemType(itemType)
		it.TestCaseID = int64Ptr(caseID)
		it.ModuleID = int64Ptr(moduleID)
		it.ChildSuiteID = int64Ptr(childID)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SQLite) CreateSuite(ctx context.Context, suite *model.TestSuite) (int64, error) {
	if err := validateItems(suite.Items); err != nil {
		return 0, err
	}
	now := s.now()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO test_suites (name, description, parent_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`, suite.Name, suite.Description, nullInt(suite.ParentID), now.UnixNano(), now.UnixNano())
		if err != nil {
			return fmt.Errorf("creating suite: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		suite.ID = id
		return insertItems(ctx, tx, id, suite.Items)
	})
	if err != nil {
		return 0, err
	}
	suite.CreatedAt = now
	suite.UpdatedAt = now
	return suite.ID, nil
}

// UpdateSuite saves the suite's own fields. Items are replaced when
// suite.Items is non-nil.
func (s *SQLite) UpdateSuite(ctx context.Context, suite *model.TestSuite) error {
	if err := validateItems(suite.Items); err != nil {
		return err
	}
	now := s.now()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE test_suites SET name = ?, description = ?, parent_id = ?, updated_at = ?
			WHERE id = ?`, suite.Name, suite.Description, nullInt(suite.ParentID), now.UnixNano(), suite.ID)
		if err != nil {
			return fmt.Errorf("updating suite %d: %w", suite.ID, err)
		}
		if err := expectRow(res, "suite", suite.ID); err != nil {
			return err
		}
		suite.UpdatedAt = now
		if suite.Items == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM suite_items WHERE suite_id = ?`, suite.ID); err != nil {
			return fmt.Errorf("clearing items of suite %d: %w", suite.ID, err)
		}
		return insertItems(ctx, tx, suite.ID, suite.Items)
	})
}

// DeleteSuite removes the suite, its items and any items that embed it.
func (s *SQLite) DeleteSuite(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM suite_items WHERE suite_id = ? OR child_suite_id = ?`, id, id); err != nil {
			return fmt.Errorf("deleting items of suite %d: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM test_suites WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("deleting suite %d: %w", id, err)
		}
		return expectRow(res, "suite", id)
	})
}

func (s *SQLite) ListSuites(ctx context.Context) ([]*model.TestSuite, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM test_suites ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing suites: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*model.TestSuite, 0, len(ids))
	for _, id := range ids {
		suite, err := s.GetSuite(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, suite)
	}
	return out, nil
}

func validateItems(items []model.SuiteItem) error {
	for i, it := range items {
		if err := it.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

func insertItems(ctx context.Context, tx *sql.Tx, suiteID int64, items []model.SuiteItem) error {
	for i := range items {
		it := &items[i]
		res, err := tx.ExecContext(ctx, `INSERT INTO suite_items (suite_id, item_type, test_case_id, module_id,
			child_suite_id, sort_order) VALUES (?, ?, ?, ?, ?, ?)`,
			suiteID, string(it.Type), nullInt(it.TestCaseID), nullInt(it.ModuleID), nullInt(it.ChildSuiteID), it.SortOrder)
		if err != nil {
			return fmt.Errorf("creating suite item: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		it.ID = id
		it.SuiteID = suiteID
	}
	return nil
}

// Reports

func (s *SQLite) CreateReport(ctx context.Context, r *model.Report) (int64, error) {
	latency, err := marshalJSON(r.Latency)
	if err != nil {
		return 0, err
	}
	if r.Status == "" {
		r.Status = model.ReportRunning
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO test_reports (suite_id, suite_name, start_time, end_time, duration,
		total_cases, pass_count, fail_count, error_count, status, latency) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullInt(r.SuiteID), r.SuiteName, r.StartTime.UnixNano(), nullTime(r.EndTime), r.Duration,
		r.Total, r.Pass, r.Fail, r.Error, string(r.Status), latency)
	if err != nil {
		return 0, fmt.Errorf("creating report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	r.ID = id
	return id, nil
}

const reportColumns = `id, suite_id, suite_name, start_time, end_time, duration, total_cases, pass_count,
	fail_count, error_count, status, latency`

func (s *SQLite) GetReport(ctx context.Context, id int64) (*model.Report, error) {
	r, err := scanReport(s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM test_reports WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	records, err := s.records(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Records = records
	return r, nil
}

func (s *SQLite) ListReports(ctx context.Context, skip, limit int) ([]*model.Report, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reportColumns+` FROM test_reports ORDER BY start_time DESC, id DESC LIMIT ? OFFSET ?`, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close()

	var out []*model.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) UpdateReport(ctx context.Context, id int64, patch model.ReportPatch) error {
	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.EndTime != nil {
		add("end_time", patch.EndTime.UnixNano())
	}
	if patch.Duration != nil {
		add("duration", *patch.Duration)
	}
	if patch.Total != nil {
		add("total_cases", *patch.Total)
	}
	if patch.Pass != nil {
		add("pass_count", *patch.Pass)
	}
	if patch.Fail != nil {
		add("fail_count", *patch.Fail)
	}
	if patch.Error != nil {
		add("error_count", *patch.Error)
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.Latency != nil {
		latency, err := marshalJSON(patch.Latency)
		if err != nil {
			return err
		}
		add("latency", latency)
	}
	if len(sets) == 0 {
		return nil
	}

	res, err := s.db.ExecContext(ctx, `UPDATE test_reports SET `+strings.Join(sets, ", ")+` WHERE id = ?`,
		append(args, id)...)
	if err != nil {
		return fmt.Errorf("updating report %d: %w", id, err)
	}
	return expectRow(res, "report", id)
}

func (s *SQLite) CreateRecord(ctx context.Context, rec *model.Record) (int64, error) {
	reqHeaders, err := marshalJSON(rec.RequestHeaders)
	if err != nil {
		return 0, err
	}
	reqBody, err := marshalJSON(rec.RequestBody)
	if err != nil {
		return 0, err
	}
	respHeaders, err := marshalJSON(rec.ResponseHeaders)
	if err != nil {
		return 0, err
	}
	details, err := marshalJSON(rec.AssertionResults)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO test_records (report_id, test_case_id, case_name, start_time,
		duration, status, url, method, status_code, request_headers, request_body, response_headers, response_body,
		error_message, assertion_results) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ReportID, nullInt(rec.TestCaseID), rec.CaseName, rec.StartTime.UnixNano(), rec.Duration,
		string(rec.Status), rec.URL, rec.Method, rec.StatusCode, reqHeaders, reqBody, respHeaders,
		rec.ResponseBody, rec.ErrorMessage, details)
	if err != nil {
		return 0, fmt.Errorf("creating record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	rec.ID = id
	return id, nil
}

func (s *SQLite) records(ctx context.Context, reportID int64) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, report_id, test_case_id, case_name, start_time, duration,
		status, url, method, status_code, request_headers, request_body, response_headers, response_body,
		error_message, assertion_results FROM test_records WHERE report_id = ? ORDER BY id`, reportID)
	if err != nil {
		return nil, fmt.Errorf("listing records of report %d: %w", reportID, err)
	}
	defer rows.Close()

	out := make([]model.Record, 0)
	for rows.Next() {
		var rec model.Record
		var caseID sql.NullInt64
		var start int64
		var status string
		var reqHeaders, reqBody, respHeaders, details sql.NullString
		if err := rows.Scan(&rec.ID, &rec.ReportID, &caseID, &rec.CaseName, &start, &rec.Duration, &status,
			&rec.URL, &rec.Method, &rec.StatusCode, &reqHeaders, &reqBody, &respHeaders, &rec.ResponseBody,
			&rec.ErrorMessage, &details); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec.TestCaseID = int64Ptr(caseID)
		rec.StartTime = time.Unix(0, start)
		rec.Status = model.Status(status)
		if err := unmarshalJSON(reqHeaders, &rec.RequestHeaders); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(reqBody, &rec.RequestBody); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(respHeaders, &rec.ResponseHeaders); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(details, &rec.AssertionResults); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// helpers

type scanner interface {
	Scan(dest ...any) error
}

func scanCase(row scanner) (*model.TestCase, error) {
	c := &model.TestCase{}
	var moduleID sql.NullInt64
	var headers, body, rules, asserts sql.NullString
	var created, updated int64
	err := row.Scan(&c.ID, &moduleID, &c.Name, &c.Description, &c.URL, &c.Method, &c.ContentType,
		&headers, &body, &rules, &asserts, &c.SetupScript, &c.TeardownScript, &c.Priority, &created, &updated)
	if err != nil {
		return nil, err
	}
	c.ModuleID = int64Ptr(moduleID)
	c.CreatedAt = time.Unix(0, created)
	c.UpdatedAt = time.Unix(0, updated)

	if err := unmarshalJSON(headers, &c.Headers); err != nil {
		return nil, fmt.Errorf("case %d headers: %w", c.ID, err)
	}
	if err := unmarshalJSON(body, &c.Body); err != nil {
		return nil, fmt.Errorf("case %d body: %w", c.ID, err)
	}
	if err := unmarshalJSON(rules, &c.ExtractRules); err != nil {
		return nil, fmt.Errorf("case %d extract rules: %w", c.ID, err)
	}
	if err := unmarshalJSON(asserts, &c.Assertions); err != nil {
		return nil, fmt.Errorf("case %d assertions: %w", c.ID, err)
	}
	return c, nil
}

func collectCases(rows *sql.Rows) ([]*model.TestCase, error) {
	defer rows.Close()
	out := make([]*model.TestCase, 0)
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

func caseValues(c *model.TestCase) ([]any, error) {
	headers, err := marshalJSON(c.Headers)
	if err != nil {
		return nil, fmt.Errorf("encoding headers: %w", err)
	}
	body, err := marshalJSON(c.Body)
	if err != nil {
		return nil, fmt.Errorf("encoding body: %w", err)
	}
	var rules any
	if len(c.ExtractRules) > 0 {
		if rules, err = marshalJSON(c.ExtractRules); err != nil {
			return nil, fmt.Errorf("encoding extract rules: %w", err)
		}
	}
	asserts, err := marshalJSON(c.Assertions)
	if err != nil {
		return nil, fmt.Errorf("encoding assertions: %w", err)
	}
	return []any{nullInt(c.ModuleID), c.Name, c.Description, c.URL, c.Method, c.ContentType,
		headers, body, rules, asserts, c.SetupScript, c.TeardownScript, c.Priority}, nil
}

func scanReport(row scanner) (*model.Report, error) {
	r := &model.Report{}
	var suiteID, end sql.NullInt64
	var start int64
	var status string
	var latency sql.NullString
	if err := row.Scan(&r.ID, &suiteID, &r.SuiteName, &start, &end, &r.Duration, &r.Total, &r.Pass,
		&r.Fail, &r.Error, &status, &latency); err != nil {
		return nil, err
	}
	r.SuiteID = int64Ptr(suiteID)
	r.StartTime = time.Unix(0, start)
	if end.Valid {
		t := time.Unix(0, end.Int64)
		r.EndTime = &t
	}
	r.Status = model.ReportStatus(status)
	if err := unmarshalJSON(latency, &r.Latency); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *SQLite) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func expectRow(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return nil
}

// marshalJSON encodes v for a TEXT column; nil values become NULL.
func marshalJSON(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	return string(b), nil
}

func unmarshalJSON(s sql.NullString, dst any) error {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(s.String), dst)
}

func nullInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
