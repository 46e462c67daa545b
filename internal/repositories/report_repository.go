package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/socialpulse/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ReportRepository defines the interface for fan-out delivery reports
type ReportRepository interface {
	SaveReport(ctx context.Context, report *models.FanoutReport) error
	GetReportByEventID(ctx context.Context, eventID string) (*models.FanoutReport, error)
}

// MongoReportRepository implements ReportRepository for MongoDB
type MongoReportRepository struct {
	collection *mongo.Collection
}

// NewMongoReportRepository creates a new MongoReportRepository
func NewMongoReportRepository(db *mongo.Database) *MongoReportRepository {
	return &MongoReportRepository{collection: db.Collection("fanout_reports")}
}

// SaveReport stores a fan-out delivery report in MongoDB
func (r *MongoReportRepository) SaveReport(ctx context.Context, report *models.FanoutReport) error {
	_, err := r.collection.InsertOne(ctx, report)
	return err
}

// GetReportByEventID retrieves a delivery report by the consumed event's ID
func (r *MongoReportRepository) GetReportByEventID(ctx context.Context, eventID string) (*models.FanoutReport, error) {
	var report models.FanoutReport
	err := r.collection.FindOne(ctx, bson.M{"event_id": eventID}).Decode(&report)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("report for event %s: %w", eventID, models.ErrNotFound)
		}
		return nil, err
	}
	return &report, nil
}
