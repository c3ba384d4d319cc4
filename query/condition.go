package query

import (
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
)

// 模式字面量的最大长度，超出部分截断并告警
const maxLiteralLen = 1019

// Condition 把 SQL LIKE 风格的模式编译为查询条件：
//
//	%          { $exists: true, $not: { $size: 0 } }
//	%patern%   { $regex: "patern" }
//	%patern    { $regex: "patern$" }
//	patern%    { $regex: "^patern" }
//	其他        不支持
func (b *Builder) Condition(pattern string) (bson.M, error) {
	if pattern == "%" {
		return bson.M{"$exists": true, "$not": bson.M{"$size": 0}}, nil
	}
	if pattern == "" {
		b.logger.Warn("not supported condition", "pattern", pattern)
		return nil, errors.Wrap(ErrUnsupportedPattern, "empty pattern")
	}

	head := pattern[0] == '%'
	tail := pattern[len(pattern)-1] == '%'

	switch {
	case head && tail:
		return bson.M{"$regex": b.copyLiteral(pattern[1:])}, nil
	case head:
		return bson.M{"$regex": b.copyLiteral(pattern[1:]) + "$"}, nil
	case tail:
		return bson.M{"$regex": "^" + b.copyLiteral(pattern)}, nil
	default:
		b.logger.Warn("not supported condition", "pattern", pattern)
		return nil, errors.Wrapf(ErrUnsupportedPattern, "pattern %q", pattern)
	}
}

// copyLiteral 去掉转义符拷贝字面量。反斜杠转义下一个字节，
// 遇到未转义的 % 停止拷贝（字面量内部不支持通配符）
func (b *Builder) copyLiteral(s string) string {
	var sb strings.Builder
	escaping := false
	for i := 0; i < len(s); i++ {
		if sb.Len() == maxLiteralLen {
			b.logger.Warn("pattern literal too long, truncated", "limit", maxLiteralLen)
			break
		}
		c := s[i]
		if escaping {
			sb.WriteByte(c)
			escaping = false
			continue
		}
		if c == '%' {
			break
		}
		if c == '\\' {
			escaping = true
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
