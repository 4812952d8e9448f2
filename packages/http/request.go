package http

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
	ContentTypeText = "text/plain"
	ContentTypeXML  = "application/xml"
)

type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
	Timeout time.Duration
}

func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method:  method,
		URL:     requestURL,
		Headers: make(map[string]string),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

func (r *Request) SetBody(body []byte) *Request {
	r.Body = body
	return r
}

func (r *Request) SetTimeout(d time.Duration) *Request {
	r.Timeout = d
	return r
}

// Header looks up a request header case-insensitively.
func (r *Request) Header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// ContentTypeFor maps a short content type hint to a MIME type. Values that
// already look like a MIME type are returned as is.
func ContentTypeFor(hint string) string {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "":
		return ""
	case "json":
		return ContentTypeJSON
	case "form", "urlencoded", "x-www-form-urlencoded":
		return ContentTypeForm
	case "text", "plain":
		return ContentTypeText
	case "xml":
		return ContentTypeXML
	default:
		return hint
	}
}

// JoinURL resolves path against base. Absolute http(s) URLs are returned
// unchanged; anything else is joined with exactly one slash.
func JoinURL(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if base == "" {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// EncodeBody serializes a case body for the wire. The body is JSON encoded
// when contentType names JSON; mappings are form encoded otherwise. The
// returned content type is the one to send, or empty when the caller
// should leave the header alone.
func EncodeBody(body any, contentType string) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, contentType, nil
	case []byte:
		return b, contentType, nil
	case string:
		return []byte(b), contentType, nil
	}

	if strings.Contains(strings.ToLower(contentType), "json") {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("encoding JSON body: %w", err)
		}
		return data, contentType, nil
	}

	if m, ok := body.(map[string]any); ok {
		if contentType == "" {
			contentType = ContentTypeForm
		}
		return []byte(EncodeForm(m)), contentType, nil
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("encoding body: %w", err)
	}
	if contentType == "" {
		contentType = ContentTypeJSON
	}
	return data, contentType, nil
}

// EncodeForm renders m as application/x-www-form-urlencoded. List values
// repeat the key.
func EncodeForm(m map[string]any) string {
	values := url.Values{}
	for k, v := range m {
		if list, ok := v.([]any); ok {
			for _, item := range list {
				values.Add(k, formValue(item))
			}
			continue
		}
		values.Set(k, formValue(v))
	}
	return values.Encode()
}

func formValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool, int, int64:
		return fmt.Sprintf("%v", val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}

// Curl renders req as an equivalent curl command line.
func Curl(req *Request) string {
	var b strings.Builder
	b.WriteString("curl -X ")
	b.WriteString(req.Method)
	b.WriteString(" ")
	b.WriteString(shellQuote(req.URL))

	keys := make([]string, 0, len(req.Headers))
	for k := range req.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(" -H ")
		b.WriteString(shellQuote(k + ": " + req.Headers[k]))
	}

	if len(req.Body) > 0 {
		b.WriteString(" --data-raw ")
		b.WriteString(shellQuote(string(req.Body)))
	}
	return b.String()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
