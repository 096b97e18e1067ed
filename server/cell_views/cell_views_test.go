package cell_views

import (
	"html/template"
	"strings"
	"testing"

	"advent/calendar"
	"advent/server/fastview"

	. "github.com/smartystreets/goconvey/convey"
)

func TestConvert(t *testing.T) {
	Convey("When converting cells to boxes", t, func() {
		cells := calendar.Initialize()
		cells[2].IsOpen = true
		cells[2].Version = 3

		boxes := Convert("abc")(cells)
		So(len(boxes), ShouldEqual, calendar.Days)
		So(boxes[0], ShouldResemble, Box{Day: 1, Open: false, ImageSrc: "/sessions/abc/cells/1.png?v=0"})
		So(boxes[2], ShouldResemble, Box{Day: 3, Open: true, ImageSrc: "/sessions/abc/cells/3.png?v=3"})
	})
}

func TestCalendarGrid(t *testing.T) {
	Convey("When boxes are published to a calendar grid", t, func() {
		done := make(chan struct{})
		boxes := make(chan []Box)
		grid := NewCalendarGrid(done, boxes)
		Reset(func() { close(done) })

		go func() {
			boxes <- []Box{
				{Day: 1, Open: true, ImageSrc: "/a.png?v=1"},
				{Day: 2, Open: false, ImageSrc: "/b.png?v=0"},
			}
		}()
		updates := <-grid.Updates()

		Convey("Open boxes hide their overlay and label", func() {
			So(updates, ShouldHaveLength, 6)
			So(updates[0], ShouldResemble, fastview.EleUpdate{
				EleId: "1-overlay",
				Ops:   []fastview.Op{{Key: fastview.Hidden, Value: "true"}},
			})
			So(updates[1].EleId, ShouldEqual, "1-label")
			So(updates[1].Ops[0].Value, ShouldEqual, "true")
			So(updates[2], ShouldResemble, fastview.EleUpdate{
				EleId: "1-canvas",
				Ops:   []fastview.Op{{Key: "src", Value: "/a.png?v=1"}},
			})
		})

		Convey("Closed boxes show them", func() {
			So(updates[3].EleId, ShouldEqual, "2-overlay")
			So(updates[3].Ops[0].Value, ShouldEqual, "false")
			So(updates[4].Ops[0].Value, ShouldEqual, "false")
		})
	})
}

func TestCalendarGridTemplate(t *testing.T) {
	Convey("When the grid template is rendered", t, func() {
		done := make(chan struct{})
		close(done)
		grid := NewCalendarGrid(done, nil)
		root := template.New("root")
		name, err := grid.Parse(root)
		So(err, ShouldBeNil)
		_, err = root.Parse(`{{ template "` + name + `" . }}`)
		So(err, ShouldBeNil)

		cells := calendar.Initialize()
		cells[0].IsOpen = true
		var sb strings.Builder
		So(root.Execute(&sb, Convert("s1")(cells)), ShouldBeNil)
		page := sb.String()

		Convey("Every day has a surface, a label and an overlay", func() {
			So(strings.Count(page, `class="overlay"`), ShouldEqual, calendar.Days)
			So(page, ShouldContainSubstring, `id="24-canvas"`)
			So(page, ShouldContainSubstring, `id="24-label"`)
			So(page, ShouldContainSubstring, `src="/sessions/s1/cells/24.png?v=0"`)
		})

		Convey("Open days start with their overlay hidden", func() {
			So(page, ShouldContainSubstring, `id="1-overlay" class="overlay" data-day="1" hidden`)
			So(page, ShouldNotContainSubstring, `id="2-overlay" class="overlay" data-day="2" hidden`)
		})
	})
}
