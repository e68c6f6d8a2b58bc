// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"github.com/one-zero-eight/guard/internal/app/store/audit"
	documentstore "github.com/one-zero-eight/guard/internal/app/store/documents"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB establishes the MongoDB connection the rest of the app builds
// on. The ping catches a bad URI or unreachable server before WAFFLE moves
// on to schema setup.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		logger.Error("mongo connect failed", zap.Error(err))
		return DBDeps{}, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		logger.Error("mongo ping failed", zap.Error(err))
		_ = client.Disconnect(ctx)
		return DBDeps{}, err
	}

	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))
	return DBDeps{
		GuardMongoClient:   client,
		GuardMongoDatabase: client.Database(appCfg.MongoDatabase),
	}, nil
}

// EnsureSchema creates indexes and upgrades records written by earlier
// schema shapes.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	documents := documentstore.New(deps.GuardMongoDatabase)
	if err := documents.EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := audit.New(deps.GuardMongoDatabase).EnsureIndexes(ctx); err != nil {
		return err
	}

	migrated, err := documents.Migrate(ctx)
	if err != nil {
		return err
	}
	if migrated > 0 {
		logger.Info("upgraded document records", zap.Int64("count", migrated))
	}
	return nil
}
