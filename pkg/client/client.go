package client

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"parkly/pkg/logger"
)

const disconnectTimeout = 5 * time.Second

type Client struct {
	Mongo *mongo.Client
	Redis *redis.Client
	AMQP  *amqp.Connection
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) SetMongo(log *logger.Logger, mongoURI string, mongoConnTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB", "error", err)
	}

	log.Info("Successfully connected to MongoDB")
	c.Mongo = client
}

// SetRedis leaves c.Redis nil when the server is unreachable so callers can
// fall back to in-process stores.
func (c *Client) SetRedis(log *logger.Logger, addr, password string, db int) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unavailable, continuing without it", "addr", addr, "error", err)
		_ = rdb.Close()
		return
	}

	log.Info("Successfully connected to Redis", "addr", addr)
	c.Redis = rdb
}

func (c *Client) SetAMQP(log *logger.Logger, url string) {
	conn, err := amqp.Dial(url)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", "error", err)
	}

	log.Info("Successfully connected to RabbitMQ")
	c.AMQP = conn
}

func (c *Client) GracefulShutdown(log *logger.Logger) {
	if c.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
		if err := c.Mongo.Disconnect(ctx); err != nil {
			log.Error("Failed to disconnect MongoDB", "error", err)
		}
		cancel()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Error("Failed to close Redis client", "error", err)
		}
	}
	if c.AMQP != nil && !c.AMQP.IsClosed() {
		if err := c.AMQP.Close(); err != nil {
			log.Error("Failed to close RabbitMQ connection", "error", err)
		}
	}
}
