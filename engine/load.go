package engine

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"github.com/TMSolution/ast-mongo/realtime"
)

// 变量值等于该指令时委托给包含协作方处理
const includeDirective = "#include"

// Load 从配置集合还原一个文件的有序分组。
// 记录按 (cat_metric 降序, var_metric 升序, category 升序, var_name 升序)
// 在后端排序；category 或 cat_metric 变化时开启新分组
func (e *Engine) Load(ctx context.Context, database, table, file string, cfg *realtime.Config, whoAsked string) (*realtime.Config, error) {
	if database == "" || table == "" || file == "" || cfg == nil || whoAsked == "" {
		return nil, errors.New("not enough arguments")
	}
	// 不能用自己的配置文件配置自己
	if file == e.configFile {
		return nil, nil
	}

	filter := append(e.scopedFilter(),
		bson.E{Key: "filename", Value: file},
		bson.E{Key: "commented", Value: float64(0)},
	)
	sort := bson.D{
		{Key: "cat_metric", Value: -1},
		{Key: "var_metric", Value: 1},
		{Key: "category", Value: 1},
		{Key: "var_name", Value: 1},
	}
	projection := bson.D{
		{Key: "cat_metric", Value: 1},
		{Key: "category", Value: 1},
		{Key: "var_name", Value: 1},
		{Key: "var_val", Value: 1},
	}

	e.logger.Debug("load", "filter", extJSON(filter), "database", database, "table", table, "file", file)

	cursor, err := e.exec.Find(ctx, database, table, filter, sort, projection)
	if err != nil {
		e.logger.Error("query failed", "filter", extJSON(filter), "database", database, "table", table, "error", err)
		return nil, err
	}
	defer cursor.Close(ctx)

	lastCategory := ""
	lastCatMetric := -1
	category := cfg.CurrentCategory()

	for cursor.Next(ctx) {
		doc := cursor.Current()

		catMetric, ok := lookupInt(doc, "cat_metric")
		if !ok {
			e.logger.Error("no cat_metric found", "file", file)
			break
		}
		categoryName, ok := lookupString(doc, "category")
		if !ok {
			e.logger.Error("no category found", "file", file)
			break
		}
		varName, ok := lookupString(doc, "var_name")
		if !ok {
			e.logger.Error("no var_name found", "file", file)
			break
		}
		varVal, ok := lookupString(doc, "var_val")
		if !ok {
			e.logger.Error("no var_val found", "file", file)
			break
		}

		if varVal == includeDirective {
			if e.include == nil {
				e.logger.Warn("no include delegate registered", "file", file, "who_asked", whoAsked)
				continue
			}
			if e.include(ctx, varVal, cfg, whoAsked) {
				e.logger.Debug("include ended processing", "who_asked", whoAsked)
				break
			}
			e.logger.Debug("include ignored", "who_asked", whoAsked)
			continue
		}

		if category == nil || categoryName != lastCategory || catMetric != lastCatMetric {
			category = realtime.NewCategory(categoryName)
			cfg.AppendCategory(category)
			lastCategory = categoryName
			lastCatMetric = catMetric
		}
		category.Append(varName, varVal)
	}
	if err := cursor.Err(); err != nil {
		e.logger.Error("cursor failed", "filter", extJSON(filter), "database", database, "table", table, "error", err)
		return nil, err
	}
	return cfg, nil
}

// lookupInt 读取数值字段，历史数据里既有 double 也有整型
func lookupInt(doc bson.Raw, key string) (int, bool) {
	value, err := doc.LookupErr(key)
	if err != nil {
		return 0, false
	}
	switch value.Type {
	case bsontype.Double:
		return int(value.Double()), true
	case bsontype.Int32:
		return int(value.Int32()), true
	case bsontype.Int64:
		return int(value.Int64()), true
	}
	return 0, false
}

func lookupString(doc bson.Raw, key string) (string, bool) {
	value, err := doc.LookupErr(key)
	if err != nil {
		return "", false
	}
	return value.StringValueOK()
}
