package schema

import (
	"sync"

	"github.com/TMSolution/ast-mongo/log"
)

// Registry 按集合名记录声明过的字段类别。
// 声明发生在启动阶段，查询发生在每次更新，读写都走同一把互斥锁
type Registry struct {
	mu     sync.Mutex
	tables map[string]map[string]Kind
	logger log.Logger
}

func NewRegistry(logger log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		tables: map[string]map[string]Kind{},
		logger: logger,
	}
}

// Declare 登记一个集合的字段类别。同一集合重复声明是无操作，不合并不覆盖
func (r *Registry) Declare(table string, fields []Field) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tables[table]; ok {
		r.logger.Debug("table already registered", "table", table)
		return
	}

	kinds := make(map[string]Kind, len(fields))
	for _, field := range fields {
		kind := field.Type.Kind()
		if kind == KindUnknown {
			r.logger.Error("unexpected field type", "table", table, "field", field.Name, "type", string(field.Type))
		}
		kinds[field.Name] = kind
	}
	r.tables[table] = kinds
	r.logger.Debug("table registered", "table", table, "fields", len(kinds))
}

// Has 检查集合是否已声明
func (r *Registry) Has(table string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.tables[table]
	return ok
}

// KindOf 查询字段的存储类别，集合或字段未声明时返回 KindUnknown
func (r *Registry) KindOf(table, field string) Kind {
	r.mu.Lock()
	defer r.mu.Unlock()

	kinds, ok := r.tables[table]
	if !ok {
		r.logger.Warn("table not registered", "table", table, "field", field)
		return KindUnknown
	}
	kind, ok := kinds[field]
	if !ok {
		r.logger.Warn("field not registered", "table", table, "field", field)
		return KindUnknown
	}
	return kind
}
