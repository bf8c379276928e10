package connlog

import (
	"context"
	"time"

	errs "PPanel/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoArchive 连接日志的持久层：追加写集合，跨进程的事实来源。
type MongoArchive struct {
	db *mongo.Database
}

func NewMongoArchive(db *mongo.Database) *MongoArchive {
	return &MongoArchive{db: db}
}

func (m *MongoArchive) GetTableName() string {
	return "connection_log"
}

func (m *MongoArchive) Collection() *mongo.Collection {
	return m.db.Collection(m.GetTableName())
}

func (m *MongoArchive) Append(ctx context.Context, rec *ConnRecord) error {
	if _, err := m.Collection().InsertOne(ctx, rec); err != nil {
		return errs.WrapMsg(err, "append connection log", "account", rec.AccountID)
	}
	return nil
}

// QueryRecent 近窗口回查：只看 connect 结果。
func (m *MongoArchive) QueryRecent(ctx context.Context, accountID string, since time.Time) (RecentKeys, error) {
	out := emptyRecentKeys()
	filter := bson.M{
		"account_id":  accountID,
		"outcome":     OutcomeConnect,
		"create_time": bson.M{"$gte": since},
	}

	addrs, err := m.Collection().Distinct(ctx, "addr", filter)
	if err != nil {
		return out, errs.WrapMsg(err, "distinct addrs", "account", accountID)
	}
	for _, v := range addrs {
		if s, ok := v.(string); ok && s != "" {
			out.Addresses[s] = struct{}{}
		}
	}

	devs, err := m.Collection().Distinct(ctx, "device", filter)
	if err != nil {
		return out, errs.WrapMsg(err, "distinct devices", "account", accountID)
	}
	for _, v := range devs {
		if s, ok := v.(string); ok && s != "" {
			out.Devices[s] = struct{}{}
		}
	}
	return out, nil
}

// QualityByProtocol 按协议统计窗口内事件质量分：connect 计 +1，拒绝计 -1。
// 没有数据的协议自然缺席（调用方按 0 处理）。
func (m *MongoArchive) QualityByProtocol(ctx context.Context, accountID string, window time.Duration) (map[string]float64, error) {
	since := time.Now().Add(-window)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"account_id":  accountID,
			"protocol":    bson.M{"$ne": ""},
			"create_time": bson.M{"$gte": since},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"protocol": "$protocol", "outcome": "$outcome"},
			"count": bson.M{"$sum": 1},
		}}},
	}

	cur, err := m.Collection().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errs.WrapMsg(err, "quality aggregate", "account", accountID)
	}
	defer cur.Close(ctx)

	type row struct {
		ID struct {
			Protocol string  `bson:"protocol"`
			Outcome  Outcome `bson:"outcome"`
		} `bson:"_id"`
		Count int64 `bson:"count"`
	}

	scores := make(map[string]float64)
	for cur.Next(ctx) {
		var r row
		if err := cur.Decode(&r); err != nil {
			return nil, errs.WrapMsg(err, "quality decode")
		}
		switch r.ID.Outcome {
		case OutcomeConnect:
			scores[r.ID.Protocol] += float64(r.Count)
		case OutcomeRejectIP, OutcomeRejectDevice:
			scores[r.ID.Protocol] -= float64(r.Count)
		}
	}
	if err := cur.Err(); err != nil {
		return nil, errs.WrapMsg(err, "quality cursor")
	}
	return scores, nil
}
