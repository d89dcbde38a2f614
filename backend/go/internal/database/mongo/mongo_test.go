package mongo

import (
	"context"
	"testing"

	"Aethena/backend/go/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestClientOptionsAuth(t *testing.T) {
	opts := ClientOptions(&config.MongoConfig{Address: "mongodb://localhost:27017"})
	assert.Nil(t, opts.Auth)

	opts = ClientOptions(&config.MongoConfig{Address: "mongodb://localhost:27017", Username: "u", Password: "p"})
	if assert.NotNil(t, opts.Auth) {
		assert.Equal(t, "u", opts.Auth.Username)
	}
}

func TestHealthCheckWithoutClient(t *testing.T) {
	assert.Error(t, HealthCheck(context.Background()))
	assert.NoError(t, Close(context.Background()))
}
