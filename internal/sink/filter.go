package sink

import (
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	logpkg "github.com/kireeti123/skyarclog/pkg/log"
)

// Filter wraps a compiled CEL program evaluated per entry. When disabled,
// Match always returns true.
//
// Available variables:
//
//	level      - numeric severity (0 debug .. 4 fatal)
//	level_name - "DEBUG", "INFO", ...
//	message    - the log message
//	fields     - the entry's structured fields
//	now_ms     - current time in milliseconds for windowed filters
type Filter struct {
	prog    cel.Program
	enabled bool
}

// NewFilter compiles expr. An empty or blank expression yields a disabled
// filter that matches everything.
func NewFilter(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("level", cel.IntType),
		cel.Variable("level_name", cel.StringType),
		cel.Variable("message", cel.StringType),
		cel.Variable("fields", cel.DynType),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return Filter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return Filter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return Filter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return Filter{}, err
	}
	return Filter{prog: prog, enabled: true}, nil
}

// Match evaluates the compiled expression against an entry. Evaluation
// errors and non-boolean results reject the entry.
func (f Filter) Match(e *logpkg.Entry) bool {
	if !f.enabled {
		return true
	}
	fields := map[string]any{}
	for k, v := range e.Fields {
		fields[k] = v
	}
	out, _, err := f.prog.Eval(map[string]any{
		"level":      int64(e.Level),
		"level_name": e.Level.String(),
		"message":    e.Message,
		"fields":     fields,
		"now_ms":     time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
