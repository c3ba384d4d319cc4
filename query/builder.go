package query

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/TMSolution/ast-mongo/log"
)

const (
	// 约束名最多拆出的 token 数
	maxTokens = 3
	// 约束名的最大长度，超出跳过该约束
	maxNameLen = 1022
)

// Builder 把有序约束编译为 filter/sort 文档。
// scope 配置后每个 filter 都带上 serverid 约束
type Builder struct {
	scope  *primitive.ObjectID
	logger log.Logger
}

func NewBuilder(scope *primitive.ObjectID, logger log.Logger) *Builder {
	if logger == nil {
		logger = log.Default()
	}
	return &Builder{scope: scope, logger: logger}
}

// Build 编译约束序列。orderBy 非空时产生单键升序排序。
// 不支持的操作符让整个查询失败；过长或 token 过多的约束名只跳过该约束
func (b *Builder) Build(fields []Field, orderBy string) (bson.D, bson.D, error) {
	filter := bson.D{}
	if b.scope != nil {
		filter = append(filter, bson.E{Key: ScopeKey, Value: *b.scope})
	}
	sort := bson.D{}
	if orderBy != "" {
		sort = append(sort, bson.E{Key: MongoKey(orderBy), Value: 1})
	}

	for _, field := range fields {
		if len(field.Name) > maxNameLen {
			b.logger.Warn("too long key", "name", field.Name)
			continue
		}

		tokens := splitName(field.Name)
		switch len(tokens) {
		case 1:
			filter = append(filter, bson.E{Key: MongoKey(field.Name), Value: field.Value})
		case 2:
			condition, err := b.compileOperator(tokens[1], field)
			if err != nil {
				return nil, nil, err
			}
			filter = append(filter, bson.E{Key: MongoKey(tokens[0]), Value: condition})
		default:
			b.logger.Warn("not handled", "name", field.Name, "value", field.Value)
		}
	}

	return filter, sort, nil
}

func (b *Builder) compileOperator(op string, field Field) (bson.M, error) {
	switch strings.ToUpper(op) {
	case "LIKE":
		return b.Condition(field.Value)
	case "!=":
		return bson.M{"$exists": true, "$ne": field.Value}, nil
	case ">":
		return bson.M{"$gt": numericOrText(field.Value)}, nil
	case "<=":
		return bson.M{"$lte": numericOrText(field.Value)}, nil
	default:
		b.logger.Warn("unexpected operator", "operator", op, "name", field.Name, "value", field.Value)
		return nil, errors.Wrapf(ErrUnsupportedOperator, "operator %q", op)
	}
}

// numericOrText 纯数字串按 int32 比较，其余按字符串比较。
// 负数、小数以及超出 int32 范围的值一律走字符串比较
func numericOrText(value string) interface{} {
	if !isAllDigits(value) {
		return value
	}
	number, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		return value
	}
	return int32(number)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// splitName 按空格拆分约束名，最多取 maxTokens 个
func splitName(name string) []string {
	var tokens []string
	for _, token := range strings.Split(name, " ") {
		if token == "" {
			continue
		}
		tokens = append(tokens, token)
		if len(tokens) == maxTokens {
			break
		}
	}
	return tokens
}
