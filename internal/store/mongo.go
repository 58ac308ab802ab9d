package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/onnwee/newsbias/internal/cluster"
	"github.com/onnwee/newsbias/internal/query"
	"github.com/onnwee/newsbias/internal/tracing"
)

// Collection names in the news database.
const (
	ClustersCollection = "clusters"
	ArticlesCollection = "news_raw"
)

// ConnectMongo opens a client and verifies the deployment is reachable.
// The client is safe for concurrent use and should be created once per
// process.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

// MongoClusterStore implements ClusterStore over the clusters collection.
type MongoClusterStore struct {
	coll   *mongo.Collection
	logger *slog.Logger
}

// NewMongoClusterStore creates a MongoClusterStore on db.
func NewMongoClusterStore(db *mongo.Database, logger *slog.Logger) *MongoClusterStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoClusterStore{
		coll:   db.Collection(ClustersCollection),
		logger: logger,
	}
}

// Fields added by publishedStages. They never reach callers.
const (
	publishedField    = "_published"
	publishedKeyField = "_published_key"
)

// latestSort mirrors ranking.LessLatest.
var latestSort = bson.D{{Key: publishedKeyField, Value: -1}, {Key: "_id", Value: 1}}

// publishedStages derive the publish date the way cluster.Normalize does:
// the first of cluster.DateFields holding a BSON date or a non-blank string.
// publishedKeyField renders it as a sortable string, "" when absent.
func publishedStages() mongo.Pipeline {
	branches := make(bson.A, 0, 2*len(cluster.DateFields))
	for _, f := range cluster.DateFields {
		ref := "$" + f
		trimmed := bson.D{{Key: "$trim", Value: bson.D{{Key: "input", Value: ref}}}}
		branches = append(branches,
			bson.D{
				{Key: "case", Value: typeIs(ref, "date")},
				{Key: "then", Value: ref},
			},
			bson.D{
				{Key: "case", Value: bson.D{{Key: "$and", Value: bson.A{
					typeIs(ref, "string"),
					bson.D{{Key: "$ne", Value: bson.A{trimmed, ""}}},
				}}}},
				{Key: "then", Value: trimmed},
			},
		)
	}

	ref := "$" + publishedField
	key := bson.D{{Key: "$switch", Value: bson.D{
		{Key: "branches", Value: bson.A{
			bson.D{
				{Key: "case", Value: typeIs(ref, "date")},
				{Key: "then", Value: bson.D{{Key: "$dateToString", Value: bson.D{
					{Key: "format", Value: "%Y-%m-%dT%H:%M:%S"},
					{Key: "date", Value: ref},
				}}}},
			},
			bson.D{
				{Key: "case", Value: typeIs(ref, "string")},
				{Key: "then", Value: ref},
			},
		}},
		{Key: "default", Value: ""},
	}}}

	return mongo.Pipeline{
		{{Key: "$addFields", Value: bson.D{{Key: publishedField, Value: bson.D{{Key: "$switch", Value: bson.D{
			{Key: "branches", Value: branches},
			{Key: "default", Value: nil},
		}}}}}}},
		{{Key: "$addFields", Value: bson.D{{Key: publishedKeyField, Value: key}}}},
	}
}

func typeIs(ref, bsonType string) bson.D {
	return bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$type", Value: ref}}, bsonType}}}
}

// FindPipeline builds the listing aggregation for q.
func FindPipeline(q query.Descriptor) mongo.Pipeline {
	p := append(publishedStages(),
		bson.D{{Key: "$match", Value: ClusterFilter(q)}},
		bson.D{{Key: "$sort", Value: latestSort}},
	)
	if q.Skip > 0 {
		p = append(p, bson.D{{Key: "$skip", Value: int64(q.Skip)}})
	}
	if q.Limit > 0 {
		p = append(p, bson.D{{Key: "$limit", Value: int64(q.Limit)}})
	}
	return append(p, bson.D{{Key: "$project", Value: bson.D{
		{Key: publishedField, Value: 0},
		{Key: publishedKeyField, Value: 0},
	}}})
}

// CountPipeline counts the documents FindPipeline would return unpaged.
func CountPipeline(q query.Descriptor) mongo.Pipeline {
	return append(publishedStages(),
		bson.D{{Key: "$match", Value: ClusterFilter(q.Unpaged())}},
		bson.D{{Key: "$count", Value: "count"}},
	)
}

// Find implements ClusterStore.
func (s *MongoClusterStore) Find(ctx context.Context, q query.Descriptor) (docs []cluster.RawDocument, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, tracing.DBSystemMongoDB, ClustersCollection, tracing.DBOperationFind)
	defer func() { endSpan(err) }()

	cursor, err := s.coll.Aggregate(ctx, FindPipeline(q))
	if err != nil {
		s.logger.ErrorContext(ctx, "cluster find failed", slog.String("error", err.Error()))
		return nil, upstream(err)
	}

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, upstream(err)
	}

	docs = make([]cluster.RawDocument, 0, len(raw))
	for _, m := range raw {
		docs = append(docs, toRawDocument(m))
	}
	return docs, nil
}

// Count implements ClusterStore.
func (s *MongoClusterStore) Count(ctx context.Context, q query.Descriptor) (n int, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, tracing.DBSystemMongoDB, ClustersCollection, tracing.DBOperationCount)
	defer func() { endSpan(err) }()

	cursor, err := s.coll.Aggregate(ctx, CountPipeline(q))
	if err != nil {
		return 0, upstream(err)
	}

	var rows []struct {
		Count int `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, upstream(err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Count, nil
}

// FindByID implements ClusterStore. Hex ids are matched both as ObjectIDs
// and as plain strings.
func (s *MongoClusterStore) FindByID(ctx context.Context, id string) (doc cluster.RawDocument, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, tracing.DBSystemMongoDB, ClustersCollection, tracing.DBOperationGet)
	defer func() { endSpan(err) }()

	var m bson.M
	err = s.coll.FindOne(ctx, idFilter(id)).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, upstream(err)
	}
	return toRawDocument(m), nil
}

// Aggregate implements ClusterStore.
func (s *MongoClusterStore) Aggregate(ctx context.Context, p Pipeline) (groups []Group, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, tracing.DBSystemMongoDB, ClustersCollection, tracing.DBOperationAggregate)
	defer func() { endSpan(err) }()

	pipeline, err := GroupPipeline(p)
	if err != nil {
		return nil, err
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, upstream(err)
	}

	var rows []struct {
		Key   string `bson:"_id"`
		Count int    `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, upstream(err)
	}

	groups = make([]Group, 0, len(rows))
	for _, r := range rows {
		groups = append(groups, Group{Key: r.Key, Count: r.Count})
	}
	return groups, nil
}

// ClusterFilter translates a descriptor into a $match stage that runs after
// publishedStages. Documents without a usable title are excluded, as
// cluster.Normalize rejects them.
//
// Dates may be stored as BSON datetimes or as ISO strings, so the window is
// matched against both representations.
func ClusterFilter(q query.Descriptor) bson.D {
	var and bson.A

	if q.Category != "" {
		and = append(and, bson.D{{Key: "category", Value: primitive.Regex{
			Pattern: `^\s*` + regexp.QuoteMeta(q.Category) + `\s*$`,
		}}})
	}

	if q.From != nil || q.To != nil {
		asDate, asString := bson.D{}, bson.D{}
		if q.From != nil {
			asDate = append(asDate, bson.E{Key: "$gte", Value: *q.From})
			asString = append(asString, bson.E{Key: "$gte", Value: lowerBound(*q.From)})
		}
		if q.To != nil {
			asDate = append(asDate, bson.E{Key: "$lt", Value: *q.To})
			asString = append(asString, bson.E{Key: "$lt", Value: upperBound(*q.To)})
		}
		and = append(and, bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: publishedField, Value: asDate}},
			bson.D{{Key: publishedField, Value: asString}},
		}}})
	}

	if q.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		and = append(and, bson.D{{Key: "$or", Value: textFields(re, "title")}})
	}

	if q.ContentOnly {
		and = append(and, bson.D{{Key: "$or", Value: textFields(primitive.Regex{Pattern: `\S`})}})
	}

	and = append(and, bson.D{{Key: "title", Value: primitive.Regex{Pattern: `\S`}}})

	return bson.D{{Key: "$and", Value: and}}
}

// textFields builds one regex condition per summary plus any extra fields.
func textFields(re primitive.Regex, extra ...string) bson.A {
	fields := append(extra, "left.summary", "center.summary", "right.summary")
	out := make(bson.A, 0, len(fields))
	for _, f := range fields {
		out = append(out, bson.D{{Key: f, Value: re}})
	}
	return out
}

func lowerBound(t time.Time) string {
	if isMidnight(t) {
		return t.Format(query.DayLayout)
	}
	return t.Format("2006-01-02T15:04:05")
}

// upperBound renders an exclusive bound, rounded up to the next whole second
// so stored second-precision strings compare correctly.
func upperBound(t time.Time) string {
	if isMidnight(t) {
		return t.Format(query.DayLayout)
	}
	if t.Truncate(time.Second) != t {
		t = t.Truncate(time.Second).Add(time.Second)
	}
	return t.Format("2006-01-02T15:04:05")
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// GroupPipeline builds the aggregation for p.
func GroupPipeline(p Pipeline) (mongo.Pipeline, error) {
	var key bson.D
	switch p.GroupBy {
	case GroupByCategory:
		key = bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$type", Value: "$category"}}, "string"}}},
			bson.D{{Key: "$trim", Value: bson.D{{Key: "input", Value: "$category"}}}},
			"",
		}}}
	case GroupByDay:
		key = bson.D{{Key: "$substrCP", Value: bson.A{"$" + publishedKeyField, 0, 10}}}
	default:
		return nil, fmt.Errorf("unsupported group field %q", p.GroupBy)
	}

	sortStage := bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}
	if p.GroupBy == GroupByDay {
		sortStage = bson.D{{Key: "_id", Value: -1}}
	}

	return append(publishedStages(), mongo.Pipeline{
		{{Key: "$match", Value: ClusterFilter(p.Filter.Unpaged())}},
		{{Key: "$project", Value: bson.D{{Key: "key", Value: key}}}},
		{{Key: "$match", Value: bson.D{{Key: "key", Value: bson.D{{Key: "$ne", Value: ""}}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$key"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: sortStage}},
	}...), nil
}

// idFilter matches id as a string and, when it is valid hex, as an ObjectID.
func idFilter(id string) bson.D {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: bson.A{oid, id}}}}}
	}
	return bson.D{{Key: "_id", Value: id}}
}

// MongoArticleLookup implements ArticleLookup over the raw articles
// collection.
type MongoArticleLookup struct {
	coll   *mongo.Collection
	logger *slog.Logger
}

// NewMongoArticleLookup creates a MongoArticleLookup on db.
func NewMongoArticleLookup(db *mongo.Database, logger *slog.Logger) *MongoArticleLookup {
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoArticleLookup{
		coll:   db.Collection(ArticlesCollection),
		logger: logger,
	}
}

// FindImageID implements ArticleLookup.
func (l *MongoArticleLookup) FindImageID(ctx context.Context, articleID string) (imageID string, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, tracing.DBSystemMongoDB, ArticlesCollection, tracing.DBOperationGet)
	defer func() { endSpan(err) }()

	opts := options.FindOne().SetProjection(bson.D{{Key: "image_file_id", Value: 1}})

	var m bson.M
	err = l.coll.FindOne(ctx, idFilter(articleID), opts).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", upstream(err)
	}

	switch v := fromBSON(m["image_file_id"]).(type) {
	case string:
		return v, nil
	default:
		return "", nil
	}
}

// toRawDocument converts a decoded BSON document into plain Go values so the
// normalizer never sees driver types.
func toRawDocument(m bson.M) cluster.RawDocument {
	out, _ := fromBSON(m).(map[string]any)
	return cluster.RawDocument(out)
}

// fromBSON recursively converts driver values: documents become
// map[string]any, arrays []any, ObjectIDs hex strings and datetimes
// time.Time.
func fromBSON(v any) any {
	switch x := v.(type) {
	case primitive.M:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = fromBSON(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = fromBSON(val)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = fromBSON(e.Value)
		}
		return out
	case primitive.A:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = fromBSON(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = fromBSON(val)
		}
		return out
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.Null, primitive.Undefined:
		return nil
	}
	return v
}
