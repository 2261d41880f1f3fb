package session

import (
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestResolve(t *testing.T) {
	Convey("Given defaults seeded with a board", t, func() {
		defaults := NewDefaults(map[string]string{MiroBoard: "board-1", AzureTeam: "  "})

		Convey("When no explicit value is given", func() {
			board, ok := defaults.Resolve(MiroBoard, "")

			Convey("Then the default is used", func() {
				So(ok, ShouldBeTrue)
				So(board, ShouldEqual, "board-1")
			})
		})

		Convey("When an explicit value is given", func() {
			board, ok := defaults.Resolve(MiroBoard, " board-2 ")

			Convey("Then it wins without touching the default", func() {
				So(ok, ShouldBeTrue)
				So(board, ShouldEqual, "board-2")

				stored, _ := defaults.Get(MiroBoard)
				So(stored, ShouldEqual, "board-1")
			})
		})

		Convey("When the key has no value", func() {
			_, ok := defaults.Resolve(AzureTeam, "")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestSet(t *testing.T) {
	Convey("Given empty defaults", t, func() {
		defaults := NewDefaults(nil)

		Convey("When setting and clearing a value", func() {
			defaults.Set(MiroBoard, "b")
			So(defaults.Snapshot(), ShouldResemble, map[string]string{MiroBoard: "b"})

			defaults.Set(MiroBoard, "")
			_, ok := defaults.Get(MiroBoard)
			So(ok, ShouldBeFalse)
		})

		Convey("When written concurrently", func() {
			var wg sync.WaitGroup

			for _, board := range []string{"a", "b", "c", "d"} {
				wg.Add(1)

				go func(board string) {
					defer wg.Done()
					defaults.Set(MiroBoard, board)
					defaults.Resolve(MiroBoard, "")
				}(board)
			}

			wg.Wait()

			value, ok := defaults.Get(MiroBoard)
			So(ok, ShouldBeTrue)
			So([]string{"a", "b", "c", "d"}, ShouldContain, value)
		})
	})
}
