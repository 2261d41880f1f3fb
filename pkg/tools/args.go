package tools

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cohesivestack/valgo"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/theapemachine/mcp-wrappers/pkg/errors"
)

/*
arguments reads tool arguments and collects every problem with them, so a
caller sees all rejected fields at once instead of one per round trip.
*/
type arguments struct {
	req   mcp.CallToolRequest
	val   *valgo.Validation
	extra map[string][]string
}

func argsOf(req mcp.CallToolRequest) *arguments {
	return &arguments{req: req, val: valgo.New(), extra: map[string][]string{}}
}

func (args *arguments) has(name string) bool {
	value, ok := args.req.GetArguments()[name]
	return ok && value != nil
}

func (args *arguments) requiredString(name string) string {
	value := strings.TrimSpace(args.req.GetString(name, ""))
	args.val.Is(valgo.String(value, name).Not().Blank())
	return value
}

func (args *arguments) optionalString(name, def string) string {
	if value := strings.TrimSpace(args.req.GetString(name, "")); value != "" {
		return value
	}

	return def
}

func (args *arguments) oneOf(name, def string, allowed ...string) string {
	value := args.optionalString(name, def)
	args.val.Is(valgo.String(value, name).InSlice(allowed))
	return value
}

func (args *arguments) intBetween(name string, def, lo, hi int) int {
	if !args.has(name) {
		return def
	}

	value := args.req.GetInt(name, def)
	args.val.Is(valgo.Number(value, name).Between(lo, hi))

	return value
}

func (args *arguments) boolean(name string, def bool) bool {
	return args.req.GetBool(name, def)
}

/*
ids accepts work item ids as a JSON array of numbers or as a comma separated
string.
*/
func (args *arguments) ids(name string) []int {
	var (
		raw = args.req.GetArguments()[name]
		out []int
	)

	add := func(s string) {
		if s = strings.TrimSpace(s); s == "" {
			return
		}

		id, err := strconv.Atoi(s)

		if err != nil || id <= 0 {
			args.fail(name, fmt.Sprintf("%q is not a work item id", s))
			return
		}

		out = append(out, id)
	}

	switch v := raw.(type) {
	case string:
		for _, part := range strings.Split(v, ",") {
			add(part)
		}
	case []any:
		for _, item := range v {
			switch n := item.(type) {
			case float64:
				add(strconv.Itoa(int(n)))
			case string:
				add(n)
			default:
				args.fail(name, fmt.Sprintf("%v is not a work item id", item))
			}
		}
	}

	if len(out) == 0 && len(args.extra[name]) == 0 {
		args.fail(name, "at least one id is required")
	}

	return out
}

func (args *arguments) fail(name, message string) {
	args.extra[name] = append(args.extra[name], message)
}

// err returns a ValidationError describing every rejected field, or nil.
func (args *arguments) err() error {
	if args.val.Valid() && len(args.extra) == 0 {
		return nil
	}

	fields := map[string][]string{}

	var verr *valgo.Error

	if errors.As(args.val.Error(), &verr) {
		for name, ve := range verr.Errors() {
			fields[name] = append(fields[name], ve.Messages()...)
		}
	}

	for name, messages := range args.extra {
		fields[name] = append(fields[name], messages...)
	}

	return &errors.ValidationError{Fields: fields}
}
