package backend

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// Cursor 多记录查询的结果流
type Cursor interface {
	Next(ctx context.Context) bool
	Current() bson.Raw
	Err() error
	Close(ctx context.Context) error
}

// Executor 后端执行接口。每次调用是一个完整的逻辑操作，
// 连接获取和超时取消由实现方负责，这里不做重试
type Executor interface {
	// FindOne 返回第一条匹配记录，没有匹配时返回 (nil, nil)
	FindOne(ctx context.Context, database, collection string, filter, sort interface{}) (bson.Raw, error)
	Find(ctx context.Context, database, collection string, filter, sort, projection interface{}) (Cursor, error)
	UpdateOne(ctx context.Context, database, collection string, filter, update interface{}) error
	InsertOne(ctx context.Context, database, collection string, document interface{}) error
	DeleteMany(ctx context.Context, database, collection string, filter interface{}) error
	Close(ctx context.Context) error
}
