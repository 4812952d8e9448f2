package model

import "time"

// Status is the terminal state of one case execution.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
	StatusError   Status = "error"
)

// RequestSnapshot is the request as sent, after interpolation.
type RequestSnapshot struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    any               `json:"body,omitempty"`
}

// ResponseSnapshot is the raw response. JSON is nil when the body is not JSON.
type ResponseSnapshot struct {
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body"`
	JSON       any               `json:"json,omitempty"`
}

// AssertionDetail records the outcome of one assertion. Expect and Actual are
// always string renderings so consumers never handle arbitrary nested values.
type AssertionDetail struct {
	Check      string `json:"check"`
	Comparator string `json:"comparator"`
	Expect     string `json:"expect"`
	Actual     string `json:"actual"`
	Result     Status `json:"result"`
	Message    string `json:"message,omitempty"`
}

// AssertionOutcome is the verdict of an assertion batch.
type AssertionOutcome struct {
	Result  Status            `json:"result"`
	Details []AssertionDetail `json:"details"`
}

// Passed reports whether every assertion succeeded.
func (o AssertionOutcome) Passed() bool {
	return o.Result == StatusSuccess
}

// Extraction is the outcome of one extraction rule.
type Extraction struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
	Found bool   `json:"found"`
	Error string `json:"error,omitempty"`
}

// Result is the transient record of one case execution.
type Result struct {
	CaseID      int64             `json:"id"`
	Name        string            `json:"name"`
	Status      Status            `json:"status"`
	StatusCode  int               `json:"status_code,omitempty"`
	StartTime   time.Time         `json:"start_time"`
	Duration    time.Duration     `json:"duration"`
	Request     *RequestSnapshot  `json:"request,omitempty"`
	Response    *ResponseSnapshot `json:"response,omitempty"`
	Assertions  AssertionOutcome  `json:"assertions"`
	Extractions []Extraction      `json:"extractions,omitempty"`
	Phase       string            `json:"phase,omitempty"`
	Error       string            `json:"error_message,omitempty"`
}

// NewErrorResult builds the placeholder used when an item cannot be executed
// at all, e.g. because its reference no longer exists.
func NewErrorResult(caseID int64, name, message string) *Result {
	return &Result{
		CaseID:    caseID,
		Name:      name,
		Status:    StatusError,
		StartTime: time.Now(),
		Error:     message,
	}
}
