package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoOptions MongoDB连接选项
type MongoOptions struct {
	URI         string        `cfg:"uri"`
	Host        string        `cfg:"host" def:"localhost"`
	Port        int           `cfg:"port" def:"27017"`
	Username    string        `cfg:"username"`
	Password    string        `cfg:"password"`
	AuthSource  string        `cfg:"authSource" def:"admin"`
	Timeout     time.Duration `cfg:"timeout" def:"30s"`
	MaxPoolSize uint64        `cfg:"maxPoolSize" def:"100"`
	MinPoolSize uint64        `cfg:"minPoolSize" def:"0"`
}

// BuildURI 没有显式 uri 时根据 host/port/认证信息拼接连接串
func (o *MongoOptions) BuildURI() string {
	if o.URI != "" {
		return o.URI
	}
	host := o.Host
	if host == "" {
		host = "localhost"
	}
	port := o.Port
	if port == 0 {
		port = 27017
	}
	if o.Username != "" && o.Password != "" {
		authSource := o.AuthSource
		if authSource == "" {
			authSource = "admin"
		}
		return fmt.Sprintf("mongodb://%s:%s@%s:%d/?authSource=%s", o.Username, o.Password, host, port, authSource)
	}
	return fmt.Sprintf("mongodb://%s:%d", host, port)
}

// Mongo 基于官方驱动的执行器。驱动内部维护连接池，
// 池耗尽时获取阻塞，取消与超时通过 context 传入
type Mongo struct {
	client *mongo.Client
}

func NewMongoWithOptions(opts *MongoOptions) (*Mongo, error) {
	if opts == nil {
		return nil, errors.New("options cannot be nil")
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(opts.BuildURI())
	if opts.MaxPoolSize > 0 {
		clientOptions.SetMaxPoolSize(opts.MaxPoolSize)
	}
	clientOptions.SetMinPoolSize(opts.MinPoolSize)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to mongodb")
	}

	// 测试连接
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, errors.Wrap(err, "failed to ping mongodb")
	}

	return &Mongo{client: client}, nil
}

func (m *Mongo) collection(database, collection string) *mongo.Collection {
	return m.client.Database(database).Collection(collection)
}

func (m *Mongo) FindOne(ctx context.Context, database, collection string, filter, sort interface{}) (bson.Raw, error) {
	findOptions := options.FindOne()
	if sort != nil {
		findOptions.SetSort(sort)
	}

	raw, err := m.collection(database, collection).FindOne(ctx, filter, findOptions).Raw()
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find one failed")
	}
	return raw, nil
}

func (m *Mongo) Find(ctx context.Context, database, collection string, filter, sort, projection interface{}) (Cursor, error) {
	findOptions := options.Find()
	if sort != nil {
		findOptions.SetSort(sort)
	}
	if projection != nil {
		findOptions.SetProjection(projection)
	}

	cursor, err := m.collection(database, collection).Find(ctx, filter, findOptions)
	if err != nil {
		return nil, errors.Wrap(err, "find failed")
	}
	return &mongoCursor{cursor: cursor}, nil
}

func (m *Mongo) UpdateOne(ctx context.Context, database, collection string, filter, update interface{}) error {
	if _, err := m.collection(database, collection).UpdateOne(ctx, filter, update); err != nil {
		return errors.Wrap(err, "update one failed")
	}
	return nil
}

func (m *Mongo) InsertOne(ctx context.Context, database, collection string, document interface{}) error {
	if _, err := m.collection(database, collection).InsertOne(ctx, document); err != nil {
		return errors.Wrap(err, "insert one failed")
	}
	return nil
}

func (m *Mongo) DeleteMany(ctx context.Context, database, collection string, filter interface{}) error {
	if _, err := m.collection(database, collection).DeleteMany(ctx, filter); err != nil {
		return errors.Wrap(err, "delete many failed")
	}
	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	if m.client != nil {
		return m.client.Disconnect(ctx)
	}
	return nil
}

type mongoCursor struct {
	cursor *mongo.Cursor
}

func (c *mongoCursor) Next(ctx context.Context) bool {
	return c.cursor.Next(ctx)
}

func (c *mongoCursor) Current() bson.Raw {
	return c.cursor.Current
}

func (c *mongoCursor) Err() error {
	return c.cursor.Err()
}

func (c *mongoCursor) Close(ctx context.Context) error {
	return c.cursor.Close(ctx)
}
