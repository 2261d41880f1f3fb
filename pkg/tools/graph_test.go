package tools

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/theapemachine/mcp-wrappers/pkg/auth"
	"github.com/theapemachine/mcp-wrappers/pkg/graph"
	"github.com/theapemachine/mcp-wrappers/pkg/session"
)

type fakeGraph struct {
	query      graph.MessageQuery
	start, end time.Time
	top        int
}

func (fake *fakeGraph) Me(ctx context.Context) (graph.User, error) {
	return graph.User{ID: "u1", DisplayName: "Ada Lovelace", Mail: "ada@example.com", JobTitle: "Engineer"}, nil
}

func (fake *fakeGraph) ListMessages(ctx context.Context, q graph.MessageQuery) ([]graph.Message, error) {
	fake.query = q

	return []graph.Message{
		{
			Subject:          "Quarterly review",
			From:             &graph.Recipient{EmailAddress: graph.EmailAddress{Name: "Grace", Address: "grace@example.com"}},
			ReceivedDateTime: "2026-10-18T09:00:00Z",
			BodyPreview:      "Agenda &amp; notes",
		},
		{Subject: "", IsRead: true},
	}, nil
}

func (fake *fakeGraph) ListEvents(ctx context.Context, start, end time.Time, top int) ([]graph.Event, error) {
	fake.start, fake.end, fake.top = start, end, top

	return []graph.Event{{
		Subject:  "Planning",
		Start:    graph.DateTimeZone{DateTime: "2026-10-20T00:00:00.0000000"},
		End:      graph.DateTimeZone{DateTime: "2026-10-21T00:00:00.0000000"},
		IsAllDay: true,
		Location: graph.Location{DisplayName: "Room 1"},
	}}, nil
}

func (fake *fakeGraph) SearchFiles(ctx context.Context, query string, top int) ([]graph.DriveItem, error) {
	return []graph.DriveItem{{Name: "plan.docx", Size: 2048, WebURL: "https://onedrive/plan.docx"}}, nil
}

type fakeStatus struct {
	status graph.Status
}

func (fake fakeStatus) Status() (graph.Status, error) {
	return fake.status, nil
}

func TestGraphTools(t *testing.T) {
	Convey("Given a toolset with a fake Graph client", t, func() {
		now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
		fake := &fakeGraph{}

		ts := &Toolset{
			Defaults: session.NewDefaults(map[string]string{session.GraphFolder: "inbox"}),
			Graph:    fake,
			Now:      func() time.Time { return now },
		}

		Convey("It should render the profile", func() {
			_, text := call(ts.handleMe, nil)
			So(text, ShouldContainSubstring, "## Ada Lovelace")
			So(text, ShouldContainSubstring, "- **Mail**: ada@example.com")
			So(text, ShouldNotContainSubstring, "Office")
		})

		Convey("It should list messages using the default folder", func() {
			_, text := call(ts.handleListMessages, map[string]any{"top": 5, "unread_only": true})

			So(fake.query, ShouldResemble, graph.MessageQuery{Folder: "inbox", Top: 5, UnreadOnly: true})
			So(text, ShouldContainSubstring, "### Quarterly review (unread)")
			So(text, ShouldContainSubstring, "Grace <grace@example.com>")
			So(text, ShouldContainSubstring, "Agenda & notes")
			So(text, ShouldContainSubstring, "### (no subject)\n")
		})

		Convey("It should prefer an explicit folder", func() {
			_, _ = call(ts.handleListMessages, map[string]any{"folder": "sentitems"})
			So(fake.query.Folder, ShouldEqual, "sentitems")
			So(fake.query.Top, ShouldEqual, 10)
		})

		Convey("It should reject an out of range top", func() {
			result, text := call(ts.handleListMessages, map[string]any{"top": 1000})
			So(result.IsError, ShouldBeTrue)
			So(text, ShouldContainSubstring, "top")
		})

		Convey("It should look ahead the requested number of days", func() {
			_, text := call(ts.handleListEvents, map[string]any{"days": 3})

			So(fake.start, ShouldEqual, now)
			So(fake.end, ShouldEqual, now.Add(72*time.Hour))
			So(fake.top, ShouldEqual, 25)
			So(text, ShouldContainSubstring, "2026-10-20 (all day)")
			So(text, ShouldContainSubstring, "Room 1")
		})

		Convey("It should require a search query", func() {
			result, _ := call(ts.handleSearchFiles, map[string]any{})
			So(result.IsError, ShouldBeTrue)

			_, text := call(ts.handleSearchFiles, map[string]any{"query": "plan"})
			So(text, ShouldContainSubstring, "plan.docx")
			So(text, ShouldContainSubstring, "| 2048 |")
		})
	})

	Convey("Given the sign-in status", t, func() {
		expiry := time.Date(2026, 10, 19, 13, 0, 0, 0, time.UTC)

		Convey("When nobody signed in", func() {
			ts := &Toolset{GraphAuth: fakeStatus{}}
			_, text := call(ts.handleGraphAuthStatus, nil)

			So(text, ShouldContainSubstring, "Not signed in")
			So(text, ShouldContainSubstring, "auth graph")
		})

		Convey("When a token is cached", func() {
			ts := &Toolset{GraphAuth: fakeStatus{status: graph.Status{
				SignedIn:    true,
				TokenFile:   "/tmp/graph_token.json",
				Expiry:      expiry,
				Refreshable: true,
				Claims:      &auth.TokenClaims{User: "ada@example.com", Scopes: []string{"User.Read", "Mail.Read"}},
			}}}

			_, text := call(ts.handleGraphAuthStatus, nil)

			So(text, ShouldContainSubstring, "- **User**: ada@example.com")
			So(text, ShouldContainSubstring, "2026-10-19T13:00:00Z")
			So(text, ShouldContainSubstring, "User.Read Mail.Read")
		})
	})
}
