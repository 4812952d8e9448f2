package fixtures

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/apisuite/packages/model"
	"github.com/spf13/afero"
)

var (
	curlPathPattern = regexp.MustCompile(`https?://[^/]+(/[^?#]*)?`)
	curlNamePattern = regexp.MustCompile(`[^a-zA-Z0-9]+`)
)

// ParseCurl turns a curl command line into a case definition. A body that
// decodes as a JSON object or array is stored structured with a json
// content type; anything else is kept as raw text. The case checks for a
// 2xx or 3xx status.
func ParseCurl(command string) (*CaseDef, error) {
	command = strings.TrimSpace(command)
	if command == "curl" {
		return nil, fmt.Errorf("no URL specified")
	}
	command = strings.TrimPrefix(command, "curl ")

	def := &CaseDef{}
	def.Method = "GET"
	headers := make(map[string]any)
	var body string

	tokens := tokenize(command)
	value := func(i int) (string, error) {
		if i+1 >= len(tokens) {
			return "", fmt.Errorf("missing value for %s", tokens[i])
		}
		return tokens[i+1], nil
	}

	for i := 0; i < len(tokens); {
		token := tokens[i]
		switch token {
		case "-X", "--request":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			def.Method = strings.ToUpper(v)
			i += 2

		case "-H", "--header":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			if key, val, ok := strings.Cut(v, ":"); ok {
				headers[strings.TrimSpace(key)] = strings.TrimSpace(val)
			}
			i += 2

		case "-d", "--data", "--data-raw", "--data-binary":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			body = v
			if def.Method == "GET" {
				def.Method = "POST"
			}
			i += 2

		case "-u", "--user":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			headers["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(v))
			i += 2

		case "-A", "--user-agent":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			headers["User-Agent"] = v
			i += 2

		case "-e", "--referer":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			headers["Referer"] = v
			i += 2

		case "-b", "--cookie":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			headers["Cookie"] = v
			i += 2

		default:
			switch {
			case strings.HasPrefix(token, "-"):
				// unknown flags may carry a value
				if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") && !isURL(tokens[i+1]) {
					i += 2
				} else {
					i++
				}
			default:
				if def.URL == "" && isURL(token) {
					def.URL = token
				}
				i++
			}
		}
	}

	if def.URL == "" {
		return nil, fmt.Errorf("no URL found in curl command")
	}

	if body != "" {
		var decoded any
		if err := json.Unmarshal([]byte(body), &decoded); err == nil {
			switch decoded.(type) {
			case map[string]any, []any:
				def.Body = decoded
				if !hasHeader(headers, "Content-Type") {
					def.ContentType = "json"
				}
			default:
				def.Body = body
			}
		} else {
			def.Body = body
		}
	}
	if len(headers) > 0 {
		def.Headers = headers
	}

	def.Name = curlCaseName(def.URL, def.Method)
	def.Assertions = []model.Assertion{
		{Check: "status_code", Comparator: ">=", Expect: 200},
		{Check: "status_code", Comparator: "<", Expect: 400},
	}
	return def, nil
}

// LoadCurl reads a file of curl commands, one per line with backslash
// continuations, into a document holding one case per command and a suite
// named after the file that runs them in order.
func LoadCurl(fs afero.Fs, path string) (*Document, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	commands, err := splitCommands(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}
	if len(commands) == 0 {
		return nil, fmt.Errorf("%s: no curl commands found", path)
	}

	base := filepath.Base(path)
	suite := SuiteDef{Name: strings.TrimSuffix(base, filepath.Ext(base))}
	doc := &Document{}
	seen := make(map[string]int)
	for i, cmd := range commands {
		def, err := ParseCurl(cmd)
		if err != nil {
			return nil, fmt.Errorf("failed to convert command %d: %w", i+1, err)
		}
		seen[def.Name]++
		if n := seen[def.Name]; n > 1 {
			def.Name += "_" + strconv.Itoa(n)
		}
		doc.Cases = append(doc.Cases, *def)
		suite.Items = append(suite.Items, ItemDef{Case: def.Name})
	}
	doc.Suites = []SuiteDef{suite}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

func splitCommands(data []byte) ([]string, error) {
	var commands []string
	var current strings.Builder
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasSuffix(line, "\\") {
			current.WriteString(strings.TrimSuffix(line, "\\"))
			current.WriteString(" ")
			continue
		}
		current.WriteString(line)
		commands = append(commands, current.String())
		current.Reset()
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if current.Len() > 0 {
		commands = append(commands, current.String())
	}
	return commands, nil
}

// tokenize splits a command into shell words, honouring quotes and
// backslash escapes.
func tokenize(cmd string) []string {
	var tokens []string
	var current strings.Builder
	inSingle, inDouble, escaped := false, false, false

	for _, r := range cmd {
		if escaped {
			current.WriteRune(r)
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '\'':
			if inDouble {
				current.WriteRune(r)
			} else {
				inSingle = !inSingle
			}
		case '"':
			if inSingle {
				current.WriteRune(r)
			} else {
				inDouble = !inDouble
			}
		case ' ', '\t':
			if inSingle || inDouble {
				current.WriteRune(r)
			} else if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "{{")
}

func hasHeader(headers map[string]any, key string) bool {
	for k := range headers {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

// curlCaseName derives a case name such as get_users_42 from the method
// and URL path.
func curlCaseName(rawURL, method string) string {
	path := "/"
	if m := curlPathPattern.FindStringSubmatch(rawURL); len(m) > 1 && m[1] != "" {
		path = m[1]
	}
	path = strings.Trim(path, "/")
	if path == "" {
		path = "root"
	}
	name := strings.ToLower(method) + "_" + curlNamePattern.ReplaceAllString(path, "_")
	return strings.Trim(name, "_")
}
