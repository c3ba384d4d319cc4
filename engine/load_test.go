package engine

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/TMSolution/ast-mongo/realtime"
)

func loadDoc(catMetric float64, category, varName, varVal string) bson.Raw {
	return mustRaw(bson.D{
		{Key: "cat_metric", Value: catMetric},
		{Key: "category", Value: category},
		{Key: "var_name", Value: varName},
		{Key: "var_val", Value: varVal},
	})
}

func TestLoad(t *testing.T) {
	Convey("测试文件加载", t, func() {
		ctx := context.Background()

		Convey("category 或 cat_metric 变化时开启新分组", func() {
			exec := &fakeExecutor{findDocs: []bson.Raw{
				loadDoc(1, "general", "bindaddr", "0.0.0.0"),
				loadDoc(1, "general", "bindport", "5060"),
				loadDoc(1, "queues", "strategy", "ringall"),
				loadDoc(0, "queues", "timeout", "15"),
			}}
			e := newTestEngine(exec)

			cfg, err := e.Load(ctx, "asterisk", "config", "sip.conf", realtime.NewConfig(), "chan_sip")
			So(err, ShouldBeNil)
			So(len(cfg.Categories), ShouldEqual, 3)
			So(cfg.Categories[0].Name, ShouldEqual, "general")
			So(cfg.Categories[0].Variables, ShouldResemble, realtimeVars(
				"bindaddr", "0.0.0.0",
				"bindport", "5060",
			))
			So(cfg.Categories[1].Name, ShouldEqual, "queues")
			So(cfg.Categories[2].Name, ShouldEqual, "queues")
			So(cfg.Categories[2].Variables, ShouldResemble, realtimeVars("timeout", "15"))
		})

		Convey("过滤器限定 filename、commented 和作用域", func() {
			oid, _ := primitive.ObjectIDFromHex("0123456789abcdef01234567")
			exec := &fakeExecutor{}
			e, err := NewEngine(exec, &Options{ServerID: "0123456789abcdef01234567"})
			So(err, ShouldBeNil)

			_, err = e.Load(ctx, "asterisk", "config", "sip.conf", realtime.NewConfig(), "chan_sip")
			So(err, ShouldBeNil)
			So(exec.lastFilter, ShouldResemble, bson.D{
				{Key: "serverid", Value: oid},
				{Key: "filename", Value: "sip.conf"},
				{Key: "commented", Value: float64(0)},
			})
		})

		Convey("排序和投影在后端完成", func() {
			exec := &fakeExecutor{}
			e := newTestEngine(exec)

			_, err := e.Load(ctx, "asterisk", "config", "sip.conf", realtime.NewConfig(), "chan_sip")
			So(err, ShouldBeNil)
			So(exec.lastSort, ShouldResemble, bson.D{
				{Key: "cat_metric", Value: -1},
				{Key: "var_metric", Value: 1},
				{Key: "category", Value: 1},
				{Key: "var_name", Value: 1},
			})
			So(exec.lastProjection, ShouldResemble, bson.D{
				{Key: "cat_metric", Value: 1},
				{Key: "category", Value: 1},
				{Key: "var_name", Value: 1},
				{Key: "var_val", Value: 1},
			})
		})

		Convey("拒绝加载引擎自身的配置文件", func() {
			exec := &fakeExecutor{}
			e, err := NewEngine(exec, &Options{ConfigFile: "ast_mongo.conf"})
			So(err, ShouldBeNil)

			cfg, err := e.Load(ctx, "asterisk", "config", "ast_mongo.conf", realtime.NewConfig(), "core")
			So(err, ShouldBeNil)
			So(cfg, ShouldBeNil)
			So(exec.findCalls, ShouldEqual, 0)
		})

		Convey("缺少必要字段时中止扫描", func() {
			exec := &fakeExecutor{findDocs: []bson.Raw{
				loadDoc(1, "general", "bindaddr", "0.0.0.0"),
				mustRaw(bson.D{{Key: "category", Value: "broken"}}),
				loadDoc(1, "general", "bindport", "5060"),
			}}
			e := newTestEngine(exec)

			cfg, err := e.Load(ctx, "asterisk", "config", "sip.conf", realtime.NewConfig(), "chan_sip")
			So(err, ShouldBeNil)
			So(len(cfg.Categories), ShouldEqual, 1)
			So(cfg.Categories[0].Variables, ShouldResemble, realtimeVars("bindaddr", "0.0.0.0"))
		})
	})
}

func TestLoadInclude(t *testing.T) {
	Convey("测试嵌套包含委托", t, func() {
		ctx := context.Background()

		Convey("协作方报告完成时立即停止", func() {
			exec := &fakeExecutor{findDocs: []bson.Raw{
				loadDoc(1, "general", "bindaddr", "0.0.0.0"),
				loadDoc(1, "general", "exec", "#include"),
				loadDoc(1, "general", "bindport", "5060"),
			}}
			e := newTestEngine(exec)

			var included []string
			e.SetInclude(func(ctx context.Context, path string, cfg *realtime.Config, whoAsked string) bool {
				included = append(included, path)
				return true
			})

			cfg, err := e.Load(ctx, "asterisk", "config", "sip.conf", realtime.NewConfig(), "chan_sip")
			So(err, ShouldBeNil)
			So(included, ShouldResemble, []string{"#include"})
			So(cfg.Categories[0].Variables, ShouldResemble, realtimeVars("bindaddr", "0.0.0.0"))
		})

		Convey("协作方未完成时跳过该记录继续", func() {
			exec := &fakeExecutor{findDocs: []bson.Raw{
				loadDoc(1, "general", "exec", "#include"),
				loadDoc(1, "general", "bindport", "5060"),
			}}
			e := newTestEngine(exec)
			e.SetInclude(func(ctx context.Context, path string, cfg *realtime.Config, whoAsked string) bool {
				return false
			})

			cfg, err := e.Load(ctx, "asterisk", "config", "sip.conf", realtime.NewConfig(), "chan_sip")
			So(err, ShouldBeNil)
			So(len(cfg.Categories), ShouldEqual, 1)
			So(cfg.Categories[0].Variables, ShouldResemble, realtimeVars("bindport", "5060"))
		})

		Convey("没有注册协作方时跳过包含指令", func() {
			exec := &fakeExecutor{findDocs: []bson.Raw{
				loadDoc(1, "general", "exec", "#include"),
				loadDoc(1, "general", "bindport", "5060"),
			}}
			e := newTestEngine(exec)

			cfg, err := e.Load(ctx, "asterisk", "config", "sip.conf", realtime.NewConfig(), "chan_sip")
			So(err, ShouldBeNil)
			So(len(cfg.Categories), ShouldEqual, 1)
			So(cfg.Categories[0].Variables, ShouldResemble, realtimeVars("bindport", "5060"))
		})
	})
}
