package engine

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/TMSolution/ast-mongo/backend"
	"github.com/TMSolution/ast-mongo/config"
	"github.com/TMSolution/ast-mongo/log"
	"github.com/TMSolution/ast-mongo/query"
	"github.com/TMSolution/ast-mongo/realtime"
	"github.com/TMSolution/ast-mongo/schema"
)

// IncludeFunc 文件加载时处理嵌套包含的外部协作方。
// 返回 true 表示本次加载不需要再处理后续记录
type IncludeFunc func(ctx context.Context, path string, cfg *realtime.Config, whoAsked string) bool

// Options 引擎初始化选项
type Options struct {
	Mongo backend.MongoOptions `cfg:"mongo"`

	// 作用域标识，24 位十六进制，可选
	ServerID string `cfg:"serverid" validate:"omitempty,len=24,hexadecimal"`

	// 引擎自身的配置文件名，拒绝加载它以避免自引用
	ConfigFile string `cfg:"configFile"`

	Log *log.SLogOptions `cfg:"log"`
}

// Engine 实时配置到 MongoDB 的翻译引擎。
// 自身不做缓存、不做重试，后端失败直接反馈给调用方
type Engine struct {
	exec       backend.Executor
	registry   *schema.Registry
	builder    *query.Builder
	scope      *primitive.ObjectID
	logger     log.Logger
	include    IncludeFunc
	configFile string
}

// NewEngineWithOptions 构建执行器并初始化引擎
func NewEngineWithOptions(options *Options) (*Engine, error) {
	if options == nil {
		return nil, errors.New("options cannot be nil")
	}
	exec, err := backend.NewMongoWithOptions(&options.Mongo)
	if err != nil {
		return nil, err
	}
	return NewEngine(exec, options)
}

// NewEngineFromConfigFile 从引擎配置文件构建。配置非法时拒绝加载
func NewEngineFromConfigFile(path string) (*Engine, error) {
	cfgOptions, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return NewEngineWithOptions(&Options{
		Mongo: backend.MongoOptions{
			URI:         cfgOptions.URI,
			Timeout:     cfgOptions.Timeout,
			MaxPoolSize: cfgOptions.MaxPoolSize,
			MinPoolSize: cfgOptions.MinPoolSize,
		},
		ServerID:   cfgOptions.ServerID,
		ConfigFile: filepath.Base(path),
	})
}

// NewEngine 用外部提供的执行器初始化引擎
func NewEngine(exec backend.Executor, options *Options) (*Engine, error) {
	if exec == nil {
		return nil, errors.New("executor cannot be nil")
	}
	if options == nil {
		options = &Options{}
	}

	logger := log.Default()
	if options.Log != nil {
		slog, err := log.NewSLogWithOptions(options.Log)
		if err != nil {
			return nil, err
		}
		logger = slog
	}

	var scope *primitive.ObjectID
	if options.ServerID != "" {
		oid, err := primitive.ObjectIDFromHex(options.ServerID)
		if err != nil {
			logger.Error("invalid server id specified", "serverid", options.ServerID)
			return nil, errors.Wrap(err, "invalid server id")
		}
		scope = &oid
	}

	configFile := options.ConfigFile
	if configFile == "" {
		configFile = config.DefaultConfigFile
	}

	return &Engine{
		exec:       exec,
		registry:   schema.NewRegistry(logger),
		builder:    query.NewBuilder(scope, logger),
		scope:      scope,
		logger:     logger,
		configFile: configFile,
	}, nil
}

// SetInclude 注册嵌套包含协作方
func (e *Engine) SetInclude(fn IncludeFunc) {
	e.include = fn
}

// DeclareSchema 登记集合的字段类型，必须先于该集合的任何更新
func (e *Engine) DeclareSchema(table string, fields []schema.Field) {
	e.registry.Declare(table, fields)
}

// UnloadCache 清除缓存。引擎没有缓存层，始终报告无可清除
func (e *Engine) UnloadCache(database, table string) bool {
	e.logger.Debug("unload cache", "database", database, "table", table)
	return false
}

func (e *Engine) Close(ctx context.Context) error {
	return e.exec.Close(ctx)
}

// Query 查询单条记录并解码为有序键值列表，无匹配时返回 nil
func (e *Engine) Query(ctx context.Context, database, table string, fields []query.Field) (realtime.Variables, error) {
	filter, sort, err := e.builder.Build(fields, "")
	if err != nil {
		e.logger.Error("cannot make a query to find", "error", err)
		return nil, err
	}
	e.logger.Debug("query", "filter", extJSON(filter), "database", database, "table", table)

	doc, err := e.exec.FindOne(ctx, database, table, filter, sortArg(sort))
	if err != nil {
		e.logger.Error("query failed", "filter", extJSON(filter), "database", database, "table", table, "error", err)
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return e.decodeRecord(doc), nil
}

// QueryMany 查询多条记录并按首个约束字段分组。
// 首个约束字段也是升序排序键；其取值变化时开启新分组
func (e *Engine) QueryMany(ctx context.Context, database, table string, fields []query.Field) (*realtime.Config, error) {
	if len(fields) == 0 {
		return nil, errors.New("not enough arguments")
	}

	initField := fields[0].Name
	if i := strings.IndexByte(initField, ' '); i >= 0 {
		initField = initField[:i]
	}

	filter, sort, err := e.builder.Build(fields, initField)
	if err != nil {
		e.logger.Error("cannot make a query to find", "error", err)
		return nil, err
	}
	e.logger.Debug("query", "filter", extJSON(filter), "database", database, "table", table)

	cursor, err := e.exec.Find(ctx, database, table, filter, sortArg(sort), nil)
	if err != nil {
		e.logger.Error("query failed", "filter", extJSON(filter), "database", database, "table", table, "error", err)
		return nil, err
	}
	defer cursor.Close(ctx)

	cfg := realtime.NewConfig()
	lastGroup := ""
	for cursor.Next(ctx) {
		vars := e.decodeRecord(cursor.Current())
		group := groupValue(vars, initField)
		category := cfg.CurrentCategory()
		if category == nil || group != lastGroup {
			category = realtime.NewCategory(group)
			cfg.AppendCategory(category)
			lastGroup = group
		}
		for _, v := range vars {
			category.Append(v.Name, v.Value)
		}
	}
	if err := cursor.Err(); err != nil {
		e.logger.Error("cursor failed", "filter", extJSON(filter), "database", database, "table", table, "error", err)
		return nil, err
	}
	return cfg, nil
}

// groupValue 取分组字段在该记录里的解码值，缺失时为空串
func groupValue(vars realtime.Variables, field string) string {
	for _, v := range vars {
		if v.Name == field {
			return v.Value
		}
	}
	return ""
}

func (e *Engine) scopedFilter() bson.D {
	filter := bson.D{}
	if e.scope != nil {
		filter = append(filter, bson.E{Key: query.ScopeKey, Value: *e.scope})
	}
	return filter
}

// sortArg 空排序传 nil，避免驱动收到空文档
func sortArg(sort bson.D) interface{} {
	if len(sort) == 0 {
		return nil
	}
	return sort
}

// extJSON 把过滤器序列化成 Extended JSON 供诊断日志使用
func extJSON(v interface{}) string {
	data, err := bson.MarshalExtJSON(v, false, false)
	if err != nil {
		return "<unserializable>"
	}
	return string(data)
}
