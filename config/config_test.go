package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ast_mongo.conf")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	Convey("测试配置加载", t, func() {
		Convey("完整配置", func() {
			path := writeConfig(t, `
[mongodb]
uri = mongodb://localhost:27017
serverid = 0123456789abcdef01234567
timeout = 10s
maxPoolSize = 50
minPoolSize = 2
`)
			options, err := Load(path)
			So(err, ShouldBeNil)
			So(options.URI, ShouldEqual, "mongodb://localhost:27017")
			So(options.ServerID, ShouldEqual, "0123456789abcdef01234567")
			So(options.Timeout, ShouldEqual, 10*time.Second)
			So(options.MaxPoolSize, ShouldEqual, 50)
			So(options.MinPoolSize, ShouldEqual, 2)

			oid, err := options.ScopeID()
			So(err, ShouldBeNil)
			So(oid, ShouldNotBeNil)
			So(oid.Hex(), ShouldEqual, "0123456789abcdef01234567")
		})

		Convey("serverid 可选", func() {
			path := writeConfig(t, `
[mongodb]
uri = mongodb://localhost:27017
`)
			options, err := Load(path)
			So(err, ShouldBeNil)

			oid, err := options.ScopeID()
			So(err, ShouldBeNil)
			So(oid, ShouldBeNil)
		})

		Convey("缺省值", func() {
			path := writeConfig(t, `
[mongodb]
uri = mongodb://localhost:27017
`)
			options, err := Load(path)
			So(err, ShouldBeNil)
			So(options.Timeout, ShouldEqual, 30*time.Second)
			So(options.MaxPoolSize, ShouldEqual, 100)
		})

		Convey("缺少 uri 拒绝加载", func() {
			path := writeConfig(t, `
[mongodb]
serverid = 0123456789abcdef01234567
`)
			_, err := Load(path)
			So(err, ShouldNotBeNil)
		})

		Convey("非法 serverid 拒绝加载", func() {
			path := writeConfig(t, `
[mongodb]
uri = mongodb://localhost:27017
serverid = not-a-hex-id
`)
			_, err := Load(path)
			So(err, ShouldNotBeNil)
		})

		Convey("serverid 长度不足拒绝加载", func() {
			path := writeConfig(t, `
[mongodb]
uri = mongodb://localhost:27017
serverid = 0123456789abcdef
`)
			_, err := Load(path)
			So(err, ShouldNotBeNil)
		})

		Convey("缺少 mongodb 分组拒绝加载", func() {
			path := writeConfig(t, `
[other]
uri = mongodb://localhost:27017
`)
			_, err := Load(path)
			So(err, ShouldNotBeNil)
		})

		Convey("文件不存在拒绝加载", func() {
			_, err := Load(filepath.Join(t.TempDir(), "missing.conf"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestWatcher(t *testing.T) {
	Convey("测试配置变更监听", t, func() {
		path := writeConfig(t, `
[mongodb]
uri = mongodb://localhost:27017
`)

		watcher, err := NewWatcher(path, nil)
		So(err, ShouldBeNil)
		defer watcher.Close()

		changed := make(chan *Options, 1)
		watcher.OnChange(func(options *Options) error {
			select {
			case changed <- options:
			default:
			}
			return nil
		})
		So(watcher.Watch(), ShouldBeNil)

		Convey("重写后回调拿到新配置", func() {
			err := os.WriteFile(path, []byte(`
[mongodb]
uri = mongodb://db.example.com:27017
`), 0644)
			So(err, ShouldBeNil)

			select {
			case options := <-changed:
				So(options.URI, ShouldEqual, "mongodb://db.example.com:27017")
			case <-time.After(3 * time.Second):
				t.Fatal("no reload notification")
			}
		})

		Convey("重写为非法配置时不通知", func() {
			err := os.WriteFile(path, []byte(`
[mongodb]
serverid = broken
`), 0644)
			So(err, ShouldBeNil)

			select {
			case <-changed:
				t.Fatal("unexpected reload notification")
			case <-time.After(500 * time.Millisecond):
			}
		})
	})
}
