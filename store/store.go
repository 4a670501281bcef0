// Package store opens the single MongoDB connection a docbench run holds
// for its whole duration.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Options describes where the server is.
type Options struct {
	Host           string
	Port           int
	ConnectTimeout time.Duration
	// URI, when set, is used instead of Host and Port.
	URI string
}

// URIFor builds a mongodb:// URI for host and port.
func URIFor(host string, port int) string {
	return "mongodb://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// Client wraps a connected driver client.
type Client struct {
	client *mongo.Client
	logger *slog.Logger
	uri    string
}

// Connect dials the server and pings the primary. The driver connects
// lazily, so the ping is what surfaces an unreachable server.
func Connect(ctx context.Context, opts Options, logger *slog.Logger) (*Client, error) {
	uri := opts.URI
	if uri == "" {
		uri = URIFor(opts.Host, opts.Port)
	}

	clientOpts := options.Client().ApplyURI(uri)
	if opts.ConnectTimeout > 0 {
		clientOpts.SetServerSelectionTimeout(opts.ConnectTimeout)
		clientOpts.SetConnectTimeout(opts.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", uri, err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())

		return nil, fmt.Errorf("ping %s: %w", uri, err)
	}

	logger.InfoContext(ctx, "connected to MongoDB", slog.String("uri", uri))

	return &Client{client: client, logger: logger, uri: uri}, nil
}

// Database returns a handle to the named database.
func (c *Client) Database(name string) *mongo.Database {
	return c.client.Database(name)
}

// Close releases the connection. It is safe to defer right after Connect.
func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect %s: %w", c.uri, err)
	}

	c.logger.Info("MongoDB connection closed")

	return nil
}
