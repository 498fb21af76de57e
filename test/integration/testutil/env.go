package testutil

import (
	"os"
	"testing"
	"time"

	"parkly/pkg/auth"
	"parkly/pkg/client"
)

const DefaultHealthCheckTimeout = 30 * time.Second

type TestEnv struct {
	MongoURI     string
	DatabaseName string
	RequestsURL  string
	SlotsURL     string
	JWTSecret    string
}

func NewTestEnv() *TestEnv {
	return &TestEnv{
		MongoURI:     getEnv("TEST_MONGO_URI", DefaultMongoURI),
		DatabaseName: getEnv("TEST_DB_NAME", DefaultDatabaseName),
		RequestsURL:  getEnv("TEST_REQUESTS_URL", "http://localhost:8080"),
		SlotsURL:     getEnv("TEST_SLOTS_URL", "http://localhost:8081"),
		JWTSecret:    getEnv("TEST_JWT_SECRET", "integration-secret"),
	}
}

func (e *TestEnv) Setup(t *testing.T) *MongoHelper {
	t.Helper()

	mongo := NewMongoHelper(t, e.MongoURI, e.DatabaseName)
	mongo.Clean(t)

	for _, url := range []string{e.RequestsURL, e.SlotsURL} {
		if err := client.NewHttpClient(url).WaitForHealthy(DefaultHealthCheckTimeout); err != nil {
			t.Fatalf("%s: %v", url, err)
		}
	}
	return mongo
}

// Token issues a bearer token the services under test accept.
func (e *TestEnv) Token(t *testing.T, id auth.Identity) string {
	t.Helper()
	token, err := auth.NewVerifier(e.JWTSecret).Issue(id, time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return token
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
