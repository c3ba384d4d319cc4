package query

import "github.com/pkg/errors"

var (
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrUnsupportedPattern  = errors.New("unsupported pattern")
)

// ScopeKey 保存租户/服务器标识的内部字段名，不对调用方暴露
const ScopeKey = "serverid"

// Field 一个有序的 name/operator/value 约束。
// Name 里用空格携带操作符，比如 "age >"、"name LIKE"
type Field struct {
	Name  string
	Value string
}

// MongoKey 把调用方的主键名转换为 Mongo 的保留主键名
func MongoKey(key string) string {
	if key == "id" {
		return "_id"
	}
	return key
}

// PublicKey 把 Mongo 的保留主键名转换为调用方可见的名字
func PublicKey(key string) string {
	if key == "_id" {
		return "id"
	}
	return key
}
