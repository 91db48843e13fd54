package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/anonto42/chirp/backend/pkg/logger"
)

// DB holds the database connections the configured backends need. Unused
// connections stay nil.
type DB struct {
	Postgres *gorm.DB
	Mongo    *mongo.Client
}

// InitDB opens the connections required by cfg
func InitDB(ctx context.Context, cfg *Config) (*DB, error) {
	db := &DB{}
	if cfg.IdentityProvider == IdentityLocal {
		if cfg.PostgresConnStr == "" {
			return nil, fmt.Errorf("POSTGRES_CONN_STR environment variable not set")
		}
		postgresDB, err := initPostgres(cfg.PostgresConnStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		db.Postgres = postgresDB
	}
	if cfg.StoreBackend == StoreMongo {
		mongoClient, err := initMongo(ctx, cfg.MongoURI)
		if err != nil {
			db.CloseDB()
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		db.Mongo = mongoClient
	}
	return db, nil
}

// initPostgres initializes the PostgreSQL database connection using GORM
func initPostgres(connStr string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Ping the database to verify connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}

	logger.L().Info("connected to PostgreSQL")
	return db, nil
}

// initMongo initializes the MongoDB connection
func initMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.L().Info("connected to MongoDB")
	return client, nil
}

// CloseDB closes the Postgres connection. The Mongo client belongs to the
// document store, which disconnects it on Close.
func (db *DB) CloseDB() {
	if db.Postgres == nil {
		return
	}
	sqlDB, err := db.Postgres.DB()
	if err != nil {
		logger.L().Warn("get SQL DB from GORM", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.L().Warn("close PostgreSQL connection", zap.Error(err))
		return
	}
	logger.L().Info("PostgreSQL connection closed")
}
