// Package docstore implements the document-store Connector by feeding
// query text through the lexer/parser/plan pipeline and running the
// resulting command against a MongoDB-compatible server.
package docstore

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/dbshell/dbshell/internal/config"
	"github.com/dbshell/dbshell/internal/connector"
	"github.com/dbshell/dbshell/internal/parser"
	"github.com/dbshell/dbshell/internal/plan"
	"github.com/dbshell/dbshell/internal/value"
)

// maxRows bounds how many documents a single page ever collects.
const maxRows = 100

// Connector is the document-store implementation of connector.Connector.
type Connector struct {
	client *mongo.Client
	info   connector.Info
}

// Connect dials uri and verifies reachability with a ping.
func Connect(ctx context.Context, uri string) (*Connector, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to the database at %s", uri)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, errors.Wrapf(err, "failed to connect to the database at %s", uri)
	}

	cs, err := mongo.ParseConnString(uri)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid connection string %s", uri)
	}

	conn := &Connector{
		client: client,
		info: connector.Info{
			URI:      uri,
			Host:     cs.Hosts[0],
			Database: cs.Database,
			Kind:     connector.DocumentStore,
		},
	}
	conn.refreshCollectionsFile(ctx)
	return conn, nil
}

func (c *Connector) Info() connector.Info { return c.info }

func (c *Connector) SetDatabase(ctx context.Context, name string) error {
	// verify the database is reachable before switching, matching the
	// SetConnection ping contract.
	if err := c.client.Database(name).RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return errors.Wrapf(err, "failed to switch to database %s", name)
	}
	c.info.Database = name
	c.refreshCollectionsFile(ctx)
	return nil
}

func (c *Connector) SetConnection(ctx context.Context, uri string) (connector.Info, error) {
	next, err := Connect(ctx, uri)
	if err != nil {
		return connector.Info{}, err
	}
	_ = c.client.Disconnect(ctx)
	*c = *next
	return c.info, nil
}

// refreshCollectionsFile writes the active database's collection names
// to `.collections.txt`, one per line, for the language-server
// companion's completion (see internal/lsp). Best-effort: a failure
// here (no config dir, a transient list error) just leaves completion
// stale, not the query itself.
func (c *Connector) refreshCollectionsFile(ctx context.Context) {
	names, err := c.client.Database(c.info.Database).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return
	}
	path, err := config.CollectionsPath()
	if err != nil {
		return
	}
	_ = os.WriteFile(path, []byte(strings.Join(names, "\n")+"\n"), 0o600)
}

// GetData parses queryText, builds a plan, and executes it, returning at
// most page.Limit rows (capped at maxRows) in server-defined order.
func (c *Connector) GetData(ctx context.Context, queryText string, page connector.Pagination) ([]value.Object, error) {
	root, err := parser.Parse(queryText)
	if err != nil {
		return nil, err
	}
	if len(root.Body) == 0 {
		return nil, errors.New("empty query")
	}

	cmd, err := plan.Build(root.Body[len(root.Body)-1].Expression)
	if err != nil {
		return nil, err
	}

	limit := int64(page.Limit)
	if limit <= 0 || limit > maxRows {
		limit = maxRows
	}

	db := c.client.Database(c.info.Database)
	coll := db.Collection(cmd.Collection)

	switch cmd.Kind {
	case plan.Find:
		return c.runFind(ctx, coll, cmd, page.Start, limit)
	case plan.Count:
		return c.runCount(ctx, coll, cmd)
	case plan.Aggregate:
		return c.runAggregate(ctx, coll, cmd, page.Start, limit)
	case plan.Distinct:
		rows, err := c.runDistinct(ctx, coll, cmd)
		if int64(len(rows)) > limit {
			rows = rows[:limit]
		}
		return rows, err
	case plan.GetIndexes:
		rows, err := c.runGetIndexes(ctx, coll)
		if int64(len(rows)) > limit {
			rows = rows[:limit]
		}
		return rows, err
	default:
		return nil, errors.Newf("unsupported command kind %v", cmd.Kind)
	}
}

func (c *Connector) runFind(ctx context.Context, coll *mongo.Collection, cmd *plan.Command, start uint64, limit int64) ([]value.Object, error) {
	filter := toBSON(cmd.Filter)
	opts := options.Find().SetSkip(int64(start)).SetLimit(limit)
	if cmd.Projection != nil {
		opts.SetProjection(toBSON(cmd.Projection))
	}
	if cmd.Modifiers.Sort != nil {
		opts.SetSort(toBSON(cmd.Modifiers.Sort))
	}
	if cmd.Modifiers.Skip != nil {
		opts.SetSkip(int64(start) + *cmd.Modifiers.Skip)
	}
	if cmd.Modifiers.Limit != nil && *cmd.Modifiers.Limit < limit {
		opts.SetLimit(*cmd.Modifiers.Limit)
	}
	if cmd.Modifiers.Hint != nil {
		opts.SetHint(toBSON(cmd.Modifiers.Hint))
	}
	if cmd.Modifiers.AllowDiskUse {
		opts.SetAllowDiskUse(true)
	}

	if cmd.Modifiers.Explain {
		var out bson.M
		findCmd := bson.D{
			{Key: "find", Value: coll.Name()},
			{Key: "filter", Value: filter},
			{Key: "skip", Value: start},
			{Key: "limit", Value: limit},
		}
		if cmd.Modifiers.Sort != nil {
			findCmd = append(findCmd, bson.E{Key: "sort", Value: toBSON(cmd.Modifiers.Sort)})
		}
		if err := coll.Database().RunCommand(ctx, bson.D{
			{Key: "explain", Value: findCmd},
		}).Decode(&out); err != nil {
			return nil, err
		}
		return []value.Object{bsonMToValue(out)}, nil
	}

	if cmd.Modifiers.CountMode {
		n, err := coll.CountDocuments(ctx, filter)
		if err != nil {
			return nil, err
		}
		return []value.Object{value.NewObject().Set("count", value.Int64(n)).Build()}, nil
	}

	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	return drainCursor(ctx, cur)
}

func (c *Connector) runCount(ctx context.Context, coll *mongo.Collection, cmd *plan.Command) ([]value.Object, error) {
	filter := toBSON(cmd.Filter)
	n, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}
	return []value.Object{value.NewObject().Set("count", value.Int64(n)).Build()}, nil
}

func (c *Connector) runAggregate(ctx context.Context, coll *mongo.Collection, cmd *plan.Command, start uint64, limit int64) ([]value.Object, error) {
	pipeline := make(bson.A, 0, len(cmd.Pipeline)+2)
	for _, stage := range cmd.Pipeline {
		pipeline = append(pipeline, toBSONValue(stage))
	}
	if start > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$skip", Value: start}})
	}
	pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})

	opts := options.Aggregate()
	if cmd.Modifiers.AllowDiskUse {
		opts.SetAllowDiskUse(true)
	}

	if cmd.Modifiers.Explain {
		var out bson.M
		if err := coll.Database().RunCommand(ctx, bson.D{
			{Key: "explain", Value: bson.D{
				{Key: "aggregate", Value: coll.Name()},
				{Key: "pipeline", Value: pipeline},
			}},
		}).Decode(&out); err != nil {
			return nil, err
		}
		return []value.Object{bsonMToValue(out)}, nil
	}

	cur, err := coll.Aggregate(ctx, pipeline, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	return drainCursor(ctx, cur)
}

func (c *Connector) runDistinct(ctx context.Context, coll *mongo.Collection, cmd *plan.Command) ([]value.Object, error) {
	res := coll.Distinct(ctx, cmd.Field, toBSON(cmd.Filter))
	var raw []any
	if err := res.Decode(&raw); err != nil {
		return nil, err
	}
	out := make([]value.Object, len(raw))
	for i, v := range raw {
		out[i] = value.NewObject().Set(cmd.Field, fromBSONValue(v)).Build()
	}
	return out, nil
}

func (c *Connector) runGetIndexes(ctx context.Context, coll *mongo.Collection) ([]value.Object, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	return drainCursor(ctx, cur)
}

func drainCursor(ctx context.Context, cur *mongo.Cursor) ([]value.Object, error) {
	var out []value.Object
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, bsonMToValue(doc))
		if len(out) >= maxRows {
			break
		}
	}
	return out, cur.Err()
}

func toBSON(v *value.Value) bson.M {
	if v == nil {
		return bson.M{}
	}
	m, _ := toBSONValue(*v).(bson.M)
	if m == nil {
		return bson.M{}
	}
	return m
}

// toBSONValue converts a Plan Builder value (possibly carrying the
// outbound-only Regex variant) into its driver-native bson representation.
func toBSONValue(v value.Value) any {
	switch v.Kind {
	case value.KindNull:
		return nil
	case value.KindString:
		return v.Str
	case value.KindBool:
		return v.Bool
	case value.KindInt32:
		return v.I32
	case value.KindInt64:
		return v.I64
	case value.KindFloat64:
		return v.F64
	case value.KindDateTime:
		return v.Time
	case value.KindObjectID:
		return bson.ObjectID(v.ObjectID)
	case value.KindRegex:
		return bson.Regex{Pattern: v.Str, Options: v.RegexFlags}
	case value.KindArray:
		arr := make(bson.A, len(v.Array))
		for i, el := range v.Array {
			arr[i] = toBSONValue(el)
		}
		return arr
	case value.KindObject:
		m := bson.M{}
		for _, k := range v.Keys() {
			f, _ := v.Field(k)
			m[k] = toBSONValue(f)
		}
		return m
	default:
		return nil
	}
}

// bsonMToValue converts a decoded BSON document into the dynamic value
// model shared with the relational connector.
func bsonMToValue(m bson.M) value.Object {
	b := value.NewObject()
	for k, v := range m {
		b.Set(k, fromBSONValue(v))
	}
	return b.Build()
}

func fromBSONValue(v any) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Null
	case string:
		return value.String(t)
	case bool:
		return value.Bool_(t)
	case int32:
		return value.Int32(t)
	case int64:
		return value.Int64(t)
	case float64:
		return value.Float64(t)
	case time.Time:
		return value.DateTime(t)
	case bson.DateTime:
		return value.DateTime(t.Time())
	case bson.ObjectID:
		return value.ObjectIDValue(value.ObjectID(t))
	case bson.Timestamp:
		return value.DateTime(time.Unix(int64(t.T), 0).UTC())
	case bson.A:
		arr := make([]value.Value, len(t))
		for i, el := range t {
			arr[i] = fromBSONValue(el)
		}
		return value.ArrayValue(arr)
	case bson.M:
		return bsonMToValue(t)
	case bson.D:
		m := bson.M{}
		for _, e := range t {
			m[e.Key] = e.Value
		}
		return bsonMToValue(m)
	default:
		return value.String(fmt.Sprintf("%v", v))
	}
}
