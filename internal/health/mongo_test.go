package health

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestMongoChecker_CancelledContext(t *testing.T) {
	// Connect does not dial; the ping below is what touches the network.
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI("mongodb://localhost:27017"))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Disconnect(context.Background())

	checker := NewMongoChecker(client)
	if checker.client != client {
		t.Error("expected checker client to match provided client")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := checker.HealthCheck(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}
