package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultConnectTimeout = 10 * time.Second

// Dial is the default DialFunc: connect and ping, both bounded by timeout.
func Dial(ctx context.Context, uri string, timeout time.Duration) (Client, error) {
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	clientOpts := options.Client().ApplyURI(uri)
	if clientOpts.ConnectTimeout == nil {
		clientOpts.SetConnectTimeout(timeout)
	}
	if clientOpts.ServerSelectionTimeout == nil {
		clientOpts.SetServerSelectionTimeout(timeout)
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(dialCtx, clientOpts)
	if err != nil {
		return nil, err
	}

	// Ping the database to verify connection
	if err := client.Ping(dialCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}
