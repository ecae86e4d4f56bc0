// Package report persists computed cost reports in MongoDB as an append-only
// ledger. Reports are a side artifact of query handling: a failed append
// never fails the query, it only surfaces through logs and metrics.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"costwatch/internal/core"
)

var reportWriteFailures = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "costwatch_report_write_failures_total",
		Help: "Total number of failed cost report inserts",
	},
)

// Record is one persisted cost report.
type Record struct {
	ID           string           `bson:"_id"`
	Provider     string           `bson:"provider"`
	WorkspaceID  string           `bson:"workspace_id,omitempty"`
	ProjectID    string           `bson:"project_id,omitempty"`
	Start        time.Time        `bson:"start"`
	End          time.Time        `bson:"end"`
	TotalCostUSD float64          `bson:"total_cost_usd"`
	Breakdown    []core.ModelCost `bson:"breakdown"`
	CreatedAt    time.Time        `bson:"created_at"`
}

// Store is the MongoDB-backed report ledger.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewStore connects to MongoDB and prepares the reports collection. When
// retentionDays is positive a TTL index expires old reports automatically;
// otherwise created_at gets a plain descending index for listing.
func NewStore(ctx context.Context, uri, database string, retentionDays int) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("MongoDB URI is required")
	}
	if database == "" {
		database = "costwatch"
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	collection := client.Database(database).Collection("reports")

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "provider", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	if retentionDays > 0 {
		ttlSeconds := int32(int64(retentionDays) * 24 * 60 * 60)
		indexes = append(indexes, mongo.IndexModel{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetExpireAfterSeconds(ttlSeconds),
		})
	} else {
		indexes = append(indexes, mongo.IndexModel{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		})
	}

	idxCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := collection.Indexes().CreateMany(idxCtx, indexes); err != nil {
		// Indexes may already exist; the ledger still works without them.
		slog.Warn("failed to create some MongoDB indexes for reports", "error", err)
	}

	return &Store{client: client, collection: collection}, nil
}

// Append persists one computed report.
func (s *Store) Append(ctx context.Context, query core.CostQuery, result *core.CostResult) error {
	record := Record{
		ID:           uuid.NewString(),
		Provider:     query.Provider,
		WorkspaceID:  query.WorkspaceID,
		ProjectID:    query.ProjectID,
		Start:        query.Start,
		End:          query.End,
		TotalCostUSD: result.TotalCostUSD,
		Breakdown:    result.Breakdown,
		CreatedAt:    time.Now().UTC(),
	}

	if _, err := s.collection.InsertOne(ctx, record); err != nil {
		reportWriteFailures.Inc()
		return fmt.Errorf("failed to insert cost report: %w", err)
	}
	return nil
}

// Recent returns the newest reports, optionally filtered by provider.
func (s *Store) Recent(ctx context.Context, provider string, limit int64) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	filter := bson.D{}
	if provider != "" {
		filter = bson.D{{Key: "provider", Value: provider}}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query cost reports: %w", err)
	}
	defer cursor.Close(ctx)

	var records []Record
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("error decoding cost reports: %w", err)
	}
	return records, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
