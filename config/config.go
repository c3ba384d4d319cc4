package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gopkg.in/ini.v1"
)

const (
	// DefaultConfigFile 引擎自身的配置文件名，加载请求指向它时被拒绝
	DefaultConfigFile = "ast_mongo.conf"
	// Section 配置文件里的引擎分组
	Section = "mongodb"
)

// Options 引擎配置。serverid 是 24 位十六进制的作用域标识，可选；
// 格式非法在启动时就失败
type Options struct {
	URI         string        `ini:"uri" validate:"required"`
	ServerID    string        `ini:"serverid" validate:"omitempty,len=24,hexadecimal"`
	Timeout     time.Duration `ini:"timeout"`
	MaxPoolSize uint64        `ini:"maxPoolSize"`
	MinPoolSize uint64        `ini:"minPoolSize"`
}

// ScopeID 解析作用域标识，未配置时返回 nil
func (o *Options) ScopeID() (*primitive.ObjectID, error) {
	if o.ServerID == "" {
		return nil, nil
	}
	oid, err := primitive.ObjectIDFromHex(o.ServerID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid server id")
	}
	return &oid, nil
}

// Load 从 INI 文件读取并校验引擎配置
func Load(path string) (*Options, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:         true,
		SpaceBeforeInlineComment: true,
	}, path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load %s", path)
	}

	section, err := file.GetSection(Section)
	if err != nil {
		return nil, errors.Wrapf(err, "no category %s specified", Section)
	}

	options := &Options{
		Timeout:     30 * time.Second,
		MaxPoolSize: 100,
	}
	if err := section.MapTo(options); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	if err := validator.New().Struct(options); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	// validator 只保证格式，这里再保证它确实是一个合法的 ObjectID
	if _, err := options.ScopeID(); err != nil {
		return nil, err
	}

	return options, nil
}
