package log

import (
	"bytes"
	"errors"
	"os"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLog(t *testing.T) {
	Convey("When logging", t, func() {
		buf := &bytes.Buffer{}
		SetOutput(buf)
		SetLevel(LevelInfo)
		Reset(func() {
			SetOutput(os.Stderr)
			SetLevel(LevelInfo)
		})

		Convey("Key-value pairs follow the message", func() {
			Info("cell opened", "day", 5, "drawn", 2)
			So(buf.String(), ShouldContainSubstring, "[INFO] cell opened day=5 drawn=2")
		})

		Convey("Errors lead the pairs", func() {
			Error("draw skipped", errors.New("boom"), "day", 3)
			So(buf.String(), ShouldContainSubstring, "[ERROR] draw skipped err=boom day=3")
		})

		Convey("Lines below the minimum level are dropped", func() {
			Debug("hidden")
			So(buf.String(), ShouldBeEmpty)

			SetLevel(LevelError)
			Info("hidden too")
			So(buf.String(), ShouldBeEmpty)

			SetLevel(LevelDebug)
			Debug("shown")
			So(buf.String(), ShouldContainSubstring, "[DEBUG] shown")
		})

		Convey("Odd and non-string keys are skipped", func() {
			Info("msg", 1, "x", "k", "v", "dangling")
			So(buf.String(), ShouldContainSubstring, "msg k=v\n")
		})

		Convey("Levels parse case-insensitively", func() {
			l, err := ParseLevel("debug")
			So(err, ShouldBeNil)
			So(l, ShouldEqual, LevelDebug)
			l, err = ParseLevel("")
			So(err, ShouldBeNil)
			So(l, ShouldEqual, LevelInfo)
			_, err = ParseLevel("verbose")
			So(err, ShouldNotBeNil)
		})
	})
}
