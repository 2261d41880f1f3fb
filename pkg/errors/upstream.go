package errors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/theapemachine/mcp-wrappers/pkg/format"
)

// Upstream bodies are cut to this many runes in error messages.
const maxBodyInError = 2000

/*
UpstreamError is returned when a third-party API call fails, either at the
transport level (Err set) or with a non-2xx status (Status and Body set).
*/
type UpstreamError struct {
	Service string
	Op      string
	Status  int
	Body    string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %v", e.Service, e.Op, e.Err)
	}

	body := format.Truncate(strings.TrimSpace(e.Body), maxBodyInError)

	return fmt.Sprintf("%s %s returned status %d: %s", e.Service, e.Op, e.Status, body)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

/*
MissingCredentialError names the configuration keys or environment variables
that have to be set before a service can be used.
*/
type MissingCredentialError struct {
	Service string
	Keys    []string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf(
		"%s credentials not configured. Required: %s",
		e.Service, strings.Join(e.Keys, ", "),
	)
}

/*
ValidationError reports tool arguments that were rejected before any network
call was made.
*/
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))

	for k := range e.Fields {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	parts := make([]string, 0, len(keys))

	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], "; ")))
	}

	return "invalid arguments: " + strings.Join(parts, ", ")
}
