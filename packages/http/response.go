package http

import (
	"encoding/json"
	"strings"
	"time"
)

type Response struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

// JSON decodes the body. The second result is false when the body is empty
// or not valid JSON, whatever the declared content type.
func (r *Response) JSON() (any, bool) {
	if len(strings.TrimSpace(string(r.Body))) == 0 {
		return nil, false
	}
	var result any
	if err := json.Unmarshal(r.Body, &result); err != nil {
		return nil, false
	}
	return result, true
}

func (r *Response) Header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
