package metrics

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewToolMetrics(t *testing.T) {
	Convey("When creating a new metrics instance", t, func() {
		m := NewToolMetrics()
		Convey("Then it should be empty", func() {
			So(m, ShouldNotBeNil)
			So(m.Snapshot(), ShouldBeEmpty)
		})
	})
}

func TestRecordCall(t *testing.T) {
	Convey("Given a metrics instance", t, func() {
		m := NewToolMetrics()
		m.RecordCall("miro_get_board", false, 100*time.Millisecond)
		m.RecordCall("miro_get_board", true, 300*time.Millisecond)

		Convey("Then call stats are recorded per tool", func() {
			stats, ok := m.Get("miro_get_board")
			So(ok, ShouldBeTrue)
			So(stats.Calls, ShouldEqual, 2)
			So(stats.Failures, ShouldEqual, 1)
			So(stats.Total, ShouldEqual, 400*time.Millisecond)
		})

		Convey("Then the snapshot averages the latency", func() {
			rows := m.Snapshot()
			So(rows, ShouldHaveLength, 1)
			So(rows[0].AvgMillis, ShouldEqual, 200)
		})
	})
}

func TestGetMetrics(t *testing.T) {
	Convey("Given a metrics instance with data", t, func() {
		m := NewToolMetrics()
		m.RecordCall("b", false, time.Millisecond)
		m.RecordCall("a", true, time.Millisecond)
		metrics := m.GetMetrics()

		Convey("Then returned metrics reflect counts", func() {
			So(metrics["total_calls"], ShouldEqual, int64(2))
			So(metrics["failed_calls"], ShouldEqual, int64(1))
			So(metrics["tools_used"], ShouldEqual, 2)
			So(m.Snapshot()[0].Tool, ShouldEqual, "a")
		})
	})
}

func TestReset(t *testing.T) {
	Convey("Given a populated metrics instance", t, func() {
		m := NewToolMetrics()
		m.RecordCall("a", false, time.Second)
		m.Reset()
		Convey("Then all values are cleared", func() {
			_, ok := m.Get("a")
			So(ok, ShouldBeFalse)
			So(m.GetMetrics()["total_calls"], ShouldEqual, int64(0))
		})
	})
}

func TestObserve(t *testing.T) {
	Convey("Given an observer", t, func() {
		var events []CallEvent

		m := NewToolMetrics()
		m.Observe(func(event CallEvent) { events = append(events, event) })

		Convey("When calls are recorded", func() {
			m.RecordCall("serpapi_search", false, 25*time.Millisecond)
			m.RecordCall("serpapi_search", true, 5*time.Millisecond)

			Convey("Then it sees each call in order", func() {
				So(events, ShouldHaveLength, 2)
				So(events[0].Tool, ShouldEqual, "serpapi_search")
				So(events[0].Millis, ShouldEqual, int64(25))
				So(events[1].Failed, ShouldBeTrue)
			})

			Convey("Then it may read the metrics without deadlocking", func() {
				m.Observe(func(CallEvent) { _ = m.Snapshot() })
				m.RecordCall("graph_me", false, time.Millisecond)
				So(events, ShouldHaveLength, 3)
			})
		})
	})
}
