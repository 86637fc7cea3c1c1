package internal

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type DatabaseConnection struct {
	URI         string
	DB          string
	MongoDB     *mongo.Database
	MongoClient *mongo.Client
	Logger      *logrus.Logger
}

// Connect opens the client and selects the database. A failure leaves
// MongoDB nil and is returned to the caller to decide whether it is fatal.
func (d *DatabaseConnection) Connect(ctx context.Context) error {
	if d.URI == "" {
		return errors.New("no mongo connection string configured")
	}

	session := options.Client().ApplyURI(d.URI)
	if err := session.Validate(); err != nil {
		return fmt.Errorf("invalid mongo uri: %w", err)
	}

	client, err := mongo.Connect(ctx, session)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", d.DB, err)
	}

	d.MongoClient = client
	d.MongoDB = client.Database(d.DB)
	d.Logger.Infof("Successfully connected to database: %s", d.DB)
	return nil
}

func (d *DatabaseConnection) Ping(ctx context.Context) error {
	if d.MongoClient == nil {
		return errors.New("database not connected")
	}
	return d.MongoClient.Ping(ctx, readpref.Primary())
}

// Disconnect closes the client, it is a no-op when Connect never succeeded.
func (d *DatabaseConnection) Disconnect(ctx context.Context) error {
	if d.MongoClient == nil {
		return nil
	}
	err := d.MongoClient.Disconnect(ctx)
	d.MongoClient = nil
	d.MongoDB = nil
	if err != nil {
		return err
	}
	d.Logger.Infof("Disconnected from database: %s", d.DB)
	return nil
}
