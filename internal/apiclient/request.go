package apiclient

import (
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"github.com/oapi-codegen/runtime"

	clierrors "github.com/chazuruo/circli/internal/errors"
)

// ArrayStyle controls how slice-valued query parameters are serialized.
type ArrayStyle int

const (
	// Explode repeats the key: k=a&k=b.
	Explode ArrayStyle = iota
	// CommaJoined joins values under one key: k=a,b.
	CommaJoined
)

// Request is a declarative description of one API call.
type Request struct {
	// Op names the call in errors and logs (usually the endpoint ID).
	Op string

	Method string

	// Path is a URL template with {placeholder} segments.
	Path string

	// PathParams supplies a value for every placeholder in Path.
	PathParams map[string]any

	// Query maps keys to values. Nil values are dropped.
	Query map[string]any

	// QueryStyle overrides the array style per key. Default is Explode.
	QueryStyle map[string]ArrayStyle

	// Body is JSON-encoded when non-nil.
	Body any

	// MediaType is the Content-Type of Body. Default application/json.
	MediaType string

	// Errors maps HTTP status codes to human-readable messages.
	Errors map[int]string

	// Header is added to the request after the client defaults.
	Header http.Header
}

var validMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// ResolvePath substitutes every {name} in the template with the
// path-encoded value of PathParams[name].
func (r *Request) ResolvePath() (string, error) {
	var b strings.Builder
	used := make(map[string]bool, len(r.PathParams))

	rest := r.Path
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			if strings.IndexByte(rest, '}') >= 0 {
				return "", clierrors.Invalid(r.Op, "path", "unbalanced '}' in template %q", r.Path)
			}
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", clierrors.Invalid(r.Op, "path", "unterminated placeholder in template %q", r.Path)
		}
		end += open

		b.WriteString(rest[:open])
		name := rest[open+1 : end]
		value, ok := r.PathParams[name]
		if !ok || isUndefined(value) {
			return "", clierrors.Invalid(r.Op, name, "missing path parameter for template %q", r.Path)
		}
		encoded, err := runtime.StyleParamWithLocation("simple", false, name, runtime.ParamLocationPath, value)
		if err != nil {
			return "", &clierrors.ValidationError{Op: r.Op, Field: name, Err: err}
		}
		if encoded == "" {
			return "", clierrors.Invalid(r.Op, name, "path parameter cannot be empty")
		}
		b.WriteString(encoded)
		used[name] = true
		rest = rest[end+1:]
	}

	for name := range r.PathParams {
		if !used[name] {
			return "", clierrors.Invalid(r.Op, name, "no placeholder {%s} in template %q", name, r.Path)
		}
	}

	return b.String(), nil
}

// EncodeQuery renders Query in key order, dropping undefined values.
// The result has no leading '?'.
func (r *Request) EncodeQuery() (string, error) {
	keys := make([]string, 0, len(r.Query))
	for k, v := range r.Query {
		if isUndefined(v) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		explode := r.QueryStyle[k] != CommaJoined
		frag, err := runtime.StyleParamWithLocation("form", explode, k, runtime.ParamLocationQuery, r.Query[k])
		if err != nil {
			return "", &clierrors.ValidationError{Op: r.Op, Field: k, Err: err}
		}
		if frag != "" {
			parts = append(parts, frag)
		}
	}
	return strings.Join(parts, "&"), nil
}

// URL builds the absolute request URL against baseURL.
func (r *Request) URL(baseURL string) (string, error) {
	if !validMethods[r.Method] {
		return "", clierrors.Invalid(r.Op, "method", "unsupported HTTP method %q", r.Method)
	}
	path, err := r.ResolvePath()
	if err != nil {
		return "", err
	}
	query, err := r.EncodeQuery()
	if err != nil {
		return "", err
	}

	u := strings.TrimRight(baseURL, "/") + path
	if query != "" {
		u += "?" + query
	}
	return u, nil
}

func (r *Request) String() string {
	return fmt.Sprintf("%s %s", r.Method, r.Path)
}

// isUndefined reports whether v stands for an omitted parameter: a nil
// interface, a nil pointer, or an empty slice.
func isUndefined(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map:
		return rv.IsNil()
	case reflect.Slice, reflect.Array:
		return rv.Len() == 0
	}
	return false
}
