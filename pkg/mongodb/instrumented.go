package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/inbound-service/pkg/logging"
	"github.com/wms-platform/inbound-service/pkg/metrics"
)

// InstrumentedClient wraps a Client with metrics and tracing
type InstrumentedClient struct {
	client  *Client
	metrics *metrics.Metrics
	logger  *logging.Logger
	tracer  trace.Tracer
}

// NewInstrumentedClient creates a new instrumented MongoDB client
func NewInstrumentedClient(client *Client, m *metrics.Metrics, logger *logging.Logger) *InstrumentedClient {
	return &InstrumentedClient{
		client:  client,
		metrics: m,
		logger:  logger,
		tracer:  otel.Tracer("mongodb"),
	}
}

// Collection returns an instrumented collection
func (c *InstrumentedClient) Collection(name string) *InstrumentedCollection {
	return &InstrumentedCollection{
		collection: c.client.Database().Collection(name),
		name:       name,
		database:   c.client.config.Database,
		metrics:    c.metrics,
		logger:     c.logger,
		tracer:     c.tracer,
	}
}

// Close disconnects the client
func (c *InstrumentedClient) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// HealthCheck performs a traced ping
func (c *InstrumentedClient) HealthCheck(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "mongodb.ping",
		trace.WithAttributes(semconv.DBSystemMongoDB, semconv.DBNameKey.String(c.client.config.Database)),
	)
	defer span.End()

	err := c.client.HealthCheck(ctx)
	endSpan(span, err)
	return err
}

// WithTransaction executes fn within a traced transaction
func (c *InstrumentedClient) WithTransaction(ctx context.Context, fn func(sessCtx mongo.SessionContext) error) error {
	ctx, span := c.tracer.Start(ctx, "mongodb.transaction",
		trace.WithAttributes(semconv.DBSystemMongoDB, semconv.DBNameKey.String(c.client.config.Database)),
	)
	defer span.End()

	err := c.client.WithTransaction(ctx, fn)
	endSpan(span, err)
	return err
}

// InstrumentedCollection wraps a mongo.Collection with metrics and tracing
type InstrumentedCollection struct {
	collection *mongo.Collection
	name       string
	database   string
	metrics    *metrics.Metrics
	logger     *logging.Logger
	tracer     trace.Tracer
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// observe runs one collection operation inside a span and records its metrics.
// ErrNoDocuments is a normal outcome, not a failure.
func observe[T any](ctx context.Context, c *InstrumentedCollection, operation string, fn func(context.Context) (T, int64, error)) (T, error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "mongodb."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemMongoDB,
			semconv.DBNameKey.String(c.database),
			semconv.DBOperationKey.String(operation),
			attribute.String("db.collection", c.name),
		),
	)
	defer span.End()

	result, rows, err := fn(ctx)
	duration := time.Since(start)

	failed := err != nil && !errors.Is(err, mongo.ErrNoDocuments)
	c.metrics.RecordMongoDBOperation(c.name, operation, !failed, duration)
	if c.logger != nil {
		c.logger.DatabaseQuery(ctx, c.name, operation, duration, !failed, rows)
	}

	if failed {
		endSpan(span, err)
	} else {
		span.SetStatus(codes.Ok, "")
		span.SetAttributes(attribute.Int64("db.rows_affected", rows))
	}
	return result, err
}

// InsertOne inserts a single document
func (c *InstrumentedCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	return observe(ctx, c, "insertOne", func(ctx context.Context) (*mongo.InsertOneResult, int64, error) {
		res, err := c.collection.InsertOne(ctx, document, opts...)
		if err != nil {
			return nil, 0, err
		}
		return res, 1, nil
	})
}

// InsertMany inserts multiple documents
func (c *InstrumentedCollection) InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	return observe(ctx, c, "insertMany", func(ctx context.Context) (*mongo.InsertManyResult, int64, error) {
		res, err := c.collection.InsertMany(ctx, documents, opts...)
		if err != nil {
			return nil, 0, err
		}
		return res, int64(len(res.InsertedIDs)), nil
	})
}

// FindOne finds a single document. The returned result carries any error,
// including mongo.ErrNoDocuments.
func (c *InstrumentedCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	res, _ := observe(ctx, c, "findOne", func(ctx context.Context) (*mongo.SingleResult, int64, error) {
		res := c.collection.FindOne(ctx, filter, opts...)
		if res.Err() != nil {
			return res, 0, res.Err()
		}
		return res, 1, nil
	})
	return res
}

// Find finds multiple documents
func (c *InstrumentedCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	return observe(ctx, c, "find", func(ctx context.Context) (*mongo.Cursor, int64, error) {
		cur, err := c.collection.Find(ctx, filter, opts...)
		return cur, 0, err
	})
}

// UpdateOne updates a single document
func (c *InstrumentedCollection) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return observe(ctx, c, "updateOne", func(ctx context.Context) (*mongo.UpdateResult, int64, error) {
		res, err := c.collection.UpdateOne(ctx, filter, update, opts...)
		if err != nil {
			return nil, 0, err
		}
		return res, res.ModifiedCount + res.UpsertedCount, nil
	})
}

// ReplaceOne replaces a single document
func (c *InstrumentedCollection) ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	return observe(ctx, c, "replaceOne", func(ctx context.Context) (*mongo.UpdateResult, int64, error) {
		res, err := c.collection.ReplaceOne(ctx, filter, replacement, opts...)
		if err != nil {
			return nil, 0, err
		}
		return res, res.MatchedCount, nil
	})
}

// DeleteMany deletes matching documents
func (c *InstrumentedCollection) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	return observe(ctx, c, "deleteMany", func(ctx context.Context) (*mongo.DeleteResult, int64, error) {
		res, err := c.collection.DeleteMany(ctx, filter, opts...)
		if err != nil {
			return nil, 0, err
		}
		return res, res.DeletedCount, nil
	})
}

// CountDocuments counts matching documents
func (c *InstrumentedCollection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return observe(ctx, c, "countDocuments", func(ctx context.Context) (int64, int64, error) {
		n, err := c.collection.CountDocuments(ctx, filter, opts...)
		return n, 0, err
	})
}

// CreateIndexes creates the given indexes
func (c *InstrumentedCollection) CreateIndexes(ctx context.Context, models []mongo.IndexModel) error {
	_, err := observe(ctx, c, "createIndexes", func(ctx context.Context) ([]string, int64, error) {
		names, err := c.collection.Indexes().CreateMany(ctx, models)
		return names, 0, err
	})
	return err
}

// Name returns the collection name
func (c *InstrumentedCollection) Name() string {
	return c.name
}
