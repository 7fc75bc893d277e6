// Package mongodb keeps the analytics report history in MongoDB.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ClientConfig sizes the archive connection. The archive sees one write per
// analytics run, so the pool stays small.
type ClientConfig struct {
	URL            string
	AppName        string
	MaxPoolSize    uint64
	ConnectTimeout time.Duration
}

func DefaultClientConfig(url string) ClientConfig {
	return ClientConfig{
		URL:            url,
		AppName:        "officeflow",
		MaxPoolSize:    10,
		ConnectTimeout: 10 * time.Second,
	}
}

func (c ClientConfig) options() *options.ClientOptions {
	opts := options.Client().
		ApplyURI(c.URL).
		SetAppName(c.AppName).
		SetMaxPoolSize(c.MaxPoolSize).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true)
	if c.ConnectTimeout > 0 {
		opts.SetConnectTimeout(c.ConnectTimeout).
			SetServerSelectionTimeout(c.ConnectTimeout)
	}
	return opts
}

// Connect opens a client and checks the primary is reachable. The client is
// disconnected again when the ping fails.
func Connect(ctx context.Context, cfg ClientConfig) (*mongo.Client, error) {
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	client, err := mongo.Connect(ctx, cfg.options())
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, nil
}
