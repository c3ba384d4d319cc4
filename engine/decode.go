package engine

import (
	"strconv"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"github.com/TMSolution/ast-mongo/query"
	"github.com/TMSolution/ast-mongo/realtime"
)

// decodeRecord 按元素顺序遍历记录并还原为有序键值列表。
// serverid 是内部字段，永远不出现在结果里；
// 不支持的类型和非法 UTF-8 只跳过该元素
func (e *Engine) decodeRecord(doc bson.Raw) realtime.Variables {
	elements, err := doc.Elements()
	if err != nil {
		e.logger.Error("unexpected bson error", "error", err)
		return nil
	}

	var vars realtime.Variables
	for _, element := range elements {
		key := element.Key()
		value := element.Value()

		switch value.Type {
		case bsontype.ObjectID:
			if key == query.ScopeKey {
				continue
			}
			vars = append(vars, realtime.Variable{Name: query.PublicKey(key), Value: value.ObjectID().Hex()})
		case bsontype.String:
			s := value.StringValue()
			if !utf8.ValidString(s) {
				e.logger.Warn("unexpected invalid bson found", "key", key)
				continue
			}
			vars = append(vars, realtime.Variable{Name: query.PublicKey(key), Value: s})
		case bsontype.Double:
			vars = append(vars, realtime.Variable{Name: query.PublicKey(key), Value: formatDouble(value.Double())})
		default:
			e.logger.Warn("unexpected bson type", "type", value.Type.String(), "key", key)
		}
	}
	return vars
}

// formatDouble 按 10 位有效数字渲染，保证常见配置值可以稳定往返
func formatDouble(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}
