package errors

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	. "github.com/smartystreets/goconvey/convey"
)

func TestUpstreamError(t *testing.T) {
	Convey("Given a non-2xx response", t, func() {
		err := &UpstreamError{Service: "miro", Op: "GET /boards/b/items", Status: 404, Body: ` {"message":"not found"} `}

		So(err.Error(), ShouldEqual, `miro GET /boards/b/items returned status 404: {"message":"not found"}`)
	})

	Convey("Given an oversized multi-byte body", t, func() {
		err := &UpstreamError{Service: "graph", Op: "GET /me", Status: 500, Body: strings.Repeat("é", maxBodyInError+1)}
		msg := err.Error()
		body := strings.TrimPrefix(msg, "graph GET /me returned status 500: ")

		So(utf8.ValidString(msg), ShouldBeTrue)
		So(utf8.RuneCountInString(body), ShouldEqual, maxBodyInError)
		So(body, ShouldEndWith, "é…")
	})

	Convey("Given a transport failure", t, func() {
		cause := fmt.Errorf("connection refused")
		err := fmt.Errorf("listing items: %w", &UpstreamError{Service: "serpapi", Op: "GET /search.json", Err: cause})

		var upstream *UpstreamError

		So(As(err, &upstream), ShouldBeTrue)
		So(upstream.Service, ShouldEqual, "serpapi")
		So(Is(err, cause), ShouldBeTrue)
	})
}

func TestValidationError(t *testing.T) {
	Convey("Given several rejected fields", t, func() {
		err := &ValidationError{Fields: map[string][]string{
			"frame_id":  {"can't be blank"},
			"direction": {"must be one of LR, TB"},
		}}

		So(err.Error(), ShouldEqual, "invalid arguments: direction: must be one of LR, TB, frame_id: can't be blank")
	})
}

func TestNewError(t *testing.T) {
	Convey("Given errors and messages", t, func() {
		cause := fmt.Errorf("boom")
		err := NewError(cause, "while exporting")

		So(err.Error(), ShouldEqual, "boom\nwhile exporting")
		So(Is(err, cause), ShouldBeTrue)
	})
}

func TestMissingCredentialError(t *testing.T) {
	Convey("Given a missing token", t, func() {
		err := &MissingCredentialError{Service: "Miro", Keys: []string{"MIRO_TOKEN"}}
		So(err.Error(), ShouldEqual, "Miro credentials not configured. Required: MIRO_TOKEN")
	})
}
