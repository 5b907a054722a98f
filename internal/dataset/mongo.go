package dataset

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/alfredjeanlab/gridq/internal/model"
)

// MongoSource snapshots every document of a collection.
type MongoSource struct {
	URI        string
	Database   string
	Collection string
	DateFields []string
}

func (m *MongoSource) Load(ctx context.Context) ([]model.Record, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(m.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()

	cur, err := client.Database(m.Database).Collection(m.Collection).Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find %s.%s: %w", m.Database, m.Collection, err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("read %s.%s: %w", m.Database, m.Collection, err)
	}

	rows := make([]model.Record, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, recordFromBSON(doc))
	}
	Normalize(rows, m.DateFields)
	return rows, nil
}

func (m *MongoSource) String() string {
	return "mongo://" + m.Database + "/" + m.Collection
}

func recordFromBSON(doc bson.M) model.Record {
	rec := make(model.Record, len(doc))
	for k, v := range doc {
		rec[k] = fromBSON(v)
	}
	return rec
}

// fromBSON converts driver value types into the plain Go values the query
// engine classifies: ObjectIDs become hex strings, datetimes become time.Time
// and 32-bit integers widen to int64.
func fromBSON(v any) any {
	switch x := v.(type) {
	case bson.ObjectID:
		return x.Hex()
	case bson.DateTime:
		return x.Time().UTC()
	case bson.Timestamp:
		return time.Unix(int64(x.T), 0).UTC()
	case bson.Decimal128:
		return x.String()
	case int32:
		return int64(x)
	case bson.M:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = fromBSON(vv)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = fromBSON(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(x))
		for i, vv := range x {
			out[i] = fromBSON(vv)
		}
		return out
	}
	return v
}
