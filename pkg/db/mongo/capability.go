package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// SupportsTransactions reports whether the connected deployment can run
// multi-document transactions. Standalone mongod cannot; only replica sets
// (setName present) and mongos routers (msg "isdbgrid") qualify. Probed once
// at startup so the reservation flow never discovers capability by failing.
func SupportsTransactions(ctx context.Context, client *mongo.Client) bool {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}

	res := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}})
	if res.Err() != nil {
		return false
	}
	if err := res.Decode(&hello); err != nil {
		return false
	}

	return hello.SetName != "" || hello.Msg == "isdbgrid"
}
