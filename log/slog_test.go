package log

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewSLogWithOptions(t *testing.T) {
	Convey("测试 SLog 初始化", t, func() {
		Convey("缺省配置", func() {
			logger, err := NewSLogWithOptions(&SLogOptions{})
			So(err, ShouldBeNil)
			So(logger, ShouldNotBeNil)
		})

		Convey("json 格式", func() {
			logger, err := NewSLogWithOptions(&SLogOptions{Level: "debug", Format: "json", Target: "stderr"})
			So(err, ShouldBeNil)
			So(logger, ShouldNotBeNil)
		})

		Convey("非法级别", func() {
			_, err := NewSLogWithOptions(&SLogOptions{Level: "verbose"})
			So(err, ShouldNotBeNil)
		})

		Convey("非法目标", func() {
			_, err := NewSLogWithOptions(&SLogOptions{Target: "file"})
			So(err, ShouldNotBeNil)
		})

		Convey("nil 选项", func() {
			_, err := NewSLogWithOptions(nil)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestDefault(t *testing.T) {
	Convey("测试默认日志器", t, func() {
		So(Default(), ShouldNotBeNil)
		So(Default().With("component", "test"), ShouldNotBeNil)
	})
}
