package engine

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/TMSolution/ast-mongo/query"
	"github.com/TMSolution/ast-mongo/schema"
)

// ErrNoSchema 更新的目标集合没有声明过字段类型
var ErrNoSchema = errors.New("no reference model")

// Update 更新匹配 keyField=lookup（以及作用域约束）的记录。
// 集合必须先通过 DeclareSchema 声明，否则不会发起任何后端调用。
// 返回的是成功与否，不是受影响的行数
func (e *Engine) Update(ctx context.Context, database, table, keyField, lookup string, fields []query.Field) error {
	if table == "" || keyField == "" || lookup == "" {
		return errors.New("not enough arguments")
	}
	if !e.registry.Has(table) {
		e.logger.Error("no reference model", "table", table)
		return errors.Wrapf(ErrNoSchema, "table %q", table)
	}
	if len(fields) == 0 {
		e.logger.Info("no fields to update", "database", database, "table", table)
		return nil
	}

	// lookup 键原样使用，不做主键名转换
	filter := append(e.scopedFilter(), bson.E{Key: keyField, Value: lookup})
	data := e.coerceFields(database, table, fields)
	update := bson.M{"$set": data}

	e.logger.Debug("update", "filter", extJSON(filter), "update", extJSON(update))

	if err := e.exec.UpdateOne(ctx, database, table, filter, update); err != nil {
		e.logger.Error("update failed", "filter", extJSON(filter), "update", extJSON(update), "error", err)
		return err
	}
	return nil
}

// Store 插入一条按声明类型组装的记录，作用域标识一并写入
func (e *Engine) Store(ctx context.Context, database, table string, fields []query.Field) error {
	if table == "" || len(fields) == 0 {
		return errors.New("not enough arguments")
	}
	if !e.registry.Has(table) {
		e.logger.Error("no reference model", "table", table)
		return errors.Wrapf(ErrNoSchema, "table %q", table)
	}

	document := append(e.scopedFilter(), e.coerceFields(database, table, fields)...)

	e.logger.Debug("store", "document", extJSON(document), "database", database, "table", table)

	if err := e.exec.InsertOne(ctx, database, table, document); err != nil {
		e.logger.Error("store failed", "document", extJSON(document), "error", err)
		return err
	}
	return nil
}

// UpdateMatching 用多个等值查找条件定位记录并更新。
// 查找键原样使用，字段组装规则与 Update 一致
func (e *Engine) UpdateMatching(ctx context.Context, database, table string, lookup, fields []query.Field) error {
	if table == "" || len(lookup) == 0 {
		return errors.New("not enough arguments")
	}
	if !e.registry.Has(table) {
		e.logger.Error("no reference model", "table", table)
		return errors.Wrapf(ErrNoSchema, "table %q", table)
	}
	if len(fields) == 0 {
		e.logger.Info("no fields to update", "database", database, "table", table)
		return nil
	}

	filter := e.scopedFilter()
	for _, field := range lookup {
		filter = append(filter, bson.E{Key: field.Name, Value: field.Value})
	}
	update := bson.M{"$set": e.coerceFields(database, table, fields)}

	e.logger.Debug("update", "filter", extJSON(filter), "update", extJSON(update))

	if err := e.exec.UpdateOne(ctx, database, table, filter, update); err != nil {
		e.logger.Error("update failed", "filter", extJSON(filter), "update", extJSON(update), "error", err)
		return err
	}
	return nil
}

// Destroy 删除匹配 keyField=lookup 以及附加等值约束的记录。
// 和 Update 一样要求集合先声明
func (e *Engine) Destroy(ctx context.Context, database, table, keyField, lookup string, fields []query.Field) error {
	if table == "" || keyField == "" || lookup == "" {
		return errors.New("not enough arguments")
	}
	if !e.registry.Has(table) {
		e.logger.Error("no reference model", "table", table)
		return errors.Wrapf(ErrNoSchema, "table %q", table)
	}

	filter := append(e.scopedFilter(), bson.E{Key: keyField, Value: lookup})
	for _, field := range fields {
		filter = append(filter, bson.E{Key: field.Name, Value: field.Value})
	}

	e.logger.Debug("destroy", "filter", extJSON(filter), "database", database, "table", table)

	if err := e.exec.DeleteMany(ctx, database, table, filter); err != nil {
		e.logger.Error("destroy failed", "filter", extJSON(filter), "error", err)
		return err
	}
	return nil
}

// coerceFields 按声明类型组装写入文档。
// 空值视为无变更跳过；未声明的字段跳过并告警
func (e *Engine) coerceFields(database, table string, fields []query.Field) bson.D {
	data := bson.D{}
	for _, field := range fields {
		if field.Value == "" {
			continue
		}
		switch kind := e.registry.KindOf(table, field.Name); kind {
		case schema.KindText:
			data = append(data, bson.E{Key: field.Name, Value: field.Value})
		case schema.KindNumeric:
			data = append(data, bson.E{Key: field.Name, Value: e.looseFloat(field.Value)})
		default:
			e.logger.Warn("not supported kind",
				"kind", kind.String(), "database", database, "table", table, "field", field.Name)
		}
	}
	return data
}

// looseFloat 按 atof 的宽松语义解析：取最长可解析的数字前缀，
// 完全不可解析时为 0 并告警
func (e *Engine) looseFloat(s string) float64 {
	trimmed := strings.TrimLeft(s, " \t\n\v\f\r")
	end := 0
	for i := 1; i <= len(trimmed); i++ {
		if _, err := strconv.ParseFloat(trimmed[:i], 64); err == nil {
			end = i
		}
	}
	if end == 0 {
		e.logger.Warn("unparseable numeric value, defaulting to zero", "value", s)
		return 0
	}
	value, _ := strconv.ParseFloat(trimmed[:end], 64)
	return value
}
