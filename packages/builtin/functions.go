package builtin

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Func is a helper callable from script hooks.
type Func func(args ...any) any

type Registry struct {
	funcs map[string]Func
}

func NewRegistry() *Registry {
	r := &Registry{
		funcs: make(map[string]Func),
	}
	r.registerDefaults()
	return r
}

func (r *Registry) registerDefaults() {
	r.funcs["isoNow"] = funcNow
	r.funcs["timestamp"] = funcTimestamp
	r.funcs["timestampMs"] = funcTimestampMs
	r.funcs["uuid"] = funcUUID
	r.funcs["random"] = funcRandom
	r.funcs["randomString"] = funcRandomString
	r.funcs["randomEmail"] = funcRandomEmail
	r.funcs["base64"] = funcBase64
	r.funcs["base64Decode"] = funcBase64Decode
	r.funcs["md5"] = funcMD5
	r.funcs["sha256"] = funcSHA256
	r.funcs["urlEncode"] = funcURLEncode
	r.funcs["urlDecode"] = funcURLDecode
	r.funcs["today"] = funcDate
	r.funcs["json"] = funcJSON
}

func (r *Registry) Register(name string, fn Func) {
	r.funcs[name] = fn
}

func (r *Registry) Lookup(name string) (Func, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// Call invokes the named function.
func (r *Registry) Call(name string, args ...any) (any, bool) {
	fn, ok := r.funcs[name]
	if !ok {
		return nil, false
	}
	return fn(args...), true
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Env returns the functions keyed by name, ready to merge into a script
// environment.
func (r *Registry) Env() map[string]any {
	env := make(map[string]any, len(r.funcs))
	for name, fn := range r.funcs {
		env[name] = (func(...any) any)(fn)
	}
	return env
}

func funcNow(_ ...any) any {
	return time.Now().UTC().Format(time.RFC3339)
}

func funcTimestamp(_ ...any) any {
	return time.Now().Unix()
}

func funcTimestampMs(_ ...any) any {
	return time.Now().UnixMilli()
}

func funcUUID(_ ...any) any {
	return uuid.New().String()
}

func funcRandom(args ...any) any {
	min, max := 0, 100
	if len(args) >= 2 {
		if v, ok := toInt(args[0]); ok {
			min = v
		}
		if v, ok := toInt(args[1]); ok {
			max = v
		}
	}
	if max < min {
		min, max = max, min
	}
	return rand.Intn(max-min+1) + min
}

func funcRandomString(args ...any) any {
	length := 16
	if len(args) >= 1 {
		if v, ok := toInt(args[0]); ok && v >= 0 {
			length = v
		}
	}
	return randomString(length, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
}

func funcRandomEmail(_ ...any) any {
	user := randomString(8, "abcdefghijklmnopqrstuvwxyz")
	domain := randomString(6, "abcdefghijklmnopqrstuvwxyz")
	return fmt.Sprintf("%s@%s.com", user, domain)
}

func funcBase64(args ...any) any {
	if len(args) < 1 {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(toString(args[0])))
}

func funcBase64Decode(args ...any) any {
	if len(args) < 1 {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(toString(args[0]))
	if err != nil {
		return ""
	}
	return string(decoded)
}

func funcMD5(args ...any) any {
	if len(args) < 1 {
		return ""
	}
	hash := md5.Sum([]byte(toString(args[0])))
	return hex.EncodeToString(hash[:])
}

func funcSHA256(args ...any) any {
	if len(args) < 1 {
		return ""
	}
	hash := sha256.Sum256([]byte(toString(args[0])))
	return hex.EncodeToString(hash[:])
}

func funcURLEncode(args ...any) any {
	if len(args) < 1 {
		return ""
	}
	return url.QueryEscape(toString(args[0]))
}

func funcURLDecode(args ...any) any {
	if len(args) < 1 {
		return ""
	}
	s := toString(args[0])
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

func funcDate(args ...any) any {
	format := "2006-01-02"
	if len(args) >= 1 {
		format = toString(args[0])
	}
	return time.Now().UTC().Format(format)
}

// funcJSON renders its argument as compact JSON.
func funcJSON(args ...any) any {
	if len(args) < 1 {
		return ""
	}
	b, err := json.Marshal(args[0])
	if err != nil {
		return ""
	}
	return string(b)
}

func randomString(length int, charset string) string {
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}

func toString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func toInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case string:
		n, err := strconv.Atoi(val)
		return n, err == nil
	default:
		return 0, false
	}
}
