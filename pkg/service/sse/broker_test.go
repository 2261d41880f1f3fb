package sse

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/theapemachine/mcp-wrappers/pkg/metrics"
)

func TestBroker(t *testing.T) {
	Convey("Given a broker with a connected client", t, func() {
		broker := NewBroker(50 * time.Millisecond)
		srv := httptest.NewServer(http.HandlerFunc(broker.Subscribe))

		defer srv.Close()
		defer broker.Close()

		resp, err := http.Get(srv.URL)
		So(err, ShouldBeNil)

		defer resp.Body.Close()

		So(resp.Header.Get("Content-Type"), ShouldEqual, "text/event-stream")

		reader := bufio.NewReader(resp.Body)
		line, err := reader.ReadString('\n')
		So(err, ShouldBeNil)
		So(line, ShouldEqual, ": connected\n")

		Convey("When a call event is broadcast", func() {
			event := metrics.CallEvent{Tool: "miro_get_board", Millis: 12}
			So(broker.Broadcast("call", event), ShouldBeNil)

			Convey("It should arrive as a named event", func() {
				var name, data string

				for data == "" {
					line, err := reader.ReadString('\n')
					So(err, ShouldBeNil)

					switch line = strings.TrimSpace(line); {
					case strings.HasPrefix(line, "event: "):
						name = strings.TrimPrefix(line, "event: ")
					case strings.HasPrefix(line, "data: "):
						data = strings.TrimPrefix(line, "data: ")
					}
				}

				var got metrics.CallEvent
				So(json.Unmarshal([]byte(data), &got), ShouldBeNil)
				So(name, ShouldEqual, "call")
				So(got.Tool, ShouldEqual, "miro_get_board")
				So(got.Millis, ShouldEqual, int64(12))
			})
		})

		Convey("When the broker closes", func() {
			broker.Close()

			Convey("It should refuse new subscribers", func() {
				rec := httptest.NewRecorder()
				broker.Subscribe(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
				So(rec.Code, ShouldEqual, http.StatusGone)
				So(broker.Clients(), ShouldEqual, 0)
			})
		})
	})
}

func TestJoin(t *testing.T) {
	Convey("Given a joined subscriber", t, func() {
		broker := NewBroker(time.Minute)
		ch, leave, err := broker.Join()

		So(err, ShouldBeNil)
		So(broker.Clients(), ShouldEqual, 1)

		Convey("When it leaves", func() {
			leave()

			Convey("It should be removed and its channel closed", func() {
				_, open := <-ch
				So(open, ShouldBeFalse)
				So(broker.Clients(), ShouldEqual, 0)
			})

			Convey("It should tolerate the broker closing afterwards", func() {
				broker.Close()
				leave()
				So(broker.Clients(), ShouldEqual, 0)
			})
		})

		Convey("When the broker closes", func() {
			broker.Close()

			Convey("It should refuse to join", func() {
				_, _, err := broker.Join()
				So(err, ShouldEqual, ErrClosed)
			})
		})
	})
}
