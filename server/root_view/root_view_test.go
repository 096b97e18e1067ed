package root_view

import (
	"context"
	"html/template"
	"strings"
	"testing"
	"time"

	"advent/calendar"
	"advent/server/fastview"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBatchify(t *testing.T) {
	Convey("When updates are batched", t, func() {
		done := make(chan struct{})
		source := make(chan []fastview.EleUpdate)
		batches := batchify(done, source, time.Millisecond*200)
		Reset(func() { close(done) })

		update := func(id, value string) fastview.EleUpdate {
			return fastview.EleUpdate{EleId: id, Ops: []fastview.Op{{Key: "src", Value: value}}}
		}

		Convey("Later updates for an element replace earlier ones", func() {
			source <- []fastview.EleUpdate{update("a", "1"), update("b", "1")}
			source <- []fastview.EleUpdate{update("a", "2")}

			batch := <-batches
			So(batch, ShouldHaveLength, 2)
			So(batch[0], ShouldResemble, update("a", "2"))
			So(batch[1], ShouldResemble, update("b", "1"))
		})

		Convey("The last batch is flushed when the source closes", func() {
			source <- []fastview.EleUpdate{update("c", "1")}
			close(source)

			var got []fastview.EleUpdate
			for batch := range batches {
				got = append(got, batch...)
			}
			So(got, ShouldResemble, []fastview.EleUpdate{update("c", "1")})
		})
	})
}

func TestRootView(t *testing.T) {
	Convey("When a root view is built for a session", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		snapshots := make(chan []calendar.Cell)
		rv, err := NewRootView(ctx, "feed", snapshots)
		So(err, ShouldBeNil)
		Reset(cancel)

		Convey("Snapshots become element updates", func() {
			cells := calendar.Initialize()
			cells[9].IsOpen = true
			cells[9].Version = 1
			snapshots <- cells

			updates := <-rv.Updates()
			So(updates, ShouldHaveLength, 3*calendar.Days)
			byID := map[string]fastview.EleUpdate{}
			for _, u := range updates {
				byID[u.EleId] = u
			}
			So(byID["10-overlay"].Ops, ShouldResemble, []fastview.Op{fastview.HiddenOp(true)})
			So(byID["11-overlay"].Ops, ShouldResemble, []fastview.Op{fastview.HiddenOp(false)})
			So(byID["10-canvas"].Ops[0].Value, ShouldEqual, "/sessions/feed/cells/10.png?v=1")
		})

		Convey("The page bootstraps the session's websocket", func() {
			root := template.New("index.html")
			name, err := rv.Parse(root)
			So(err, ShouldBeNil)
			_, err = root.Parse(`{{ template "` + name + `" . }}`)
			So(err, ShouldBeNil)

			var sb strings.Builder
			So(root.Execute(&sb, rv.Data(calendar.Initialize())), ShouldBeNil)
			page := sb.String()
			So(page, ShouldContainSubstring, `const sessionID = "feed";`)
			So(page, ShouldContainSubstring, `id="calendargrid"`)
			So(strings.Count(page, `class="overlay"`), ShouldEqual, calendar.Days)
		})
	})

	Convey("When the snapshot source is missing", t, func() {
		_, err := NewRootView(context.Background(), "x", nil)
		So(err, ShouldNotBeNil)
	})
}
