package mongostore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lewisdbentley/graphbook/errors"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid",
			config: Config{URI: "mongodb://localhost:27017", Database: "library"},
		},
		{
			name:    "missing uri",
			config:  Config{Database: "library"},
			wantErr: true,
		},
		{
			name:    "missing database",
			config:  Config{URI: "mongodb://localhost:27017"},
			wantErr: true,
		},
		{
			name: "custom ping timeout",
			config: Config{
				URI: "mongodb://localhost:27017", Database: "library",
				PingTimeoutStr: "2s",
			},
		},
		{
			name: "bad ping timeout",
			config: Config{
				URI: "mongodb://localhost:27017", Database: "library",
				PingTimeoutStr: "whenever",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigDefaultPingTimeout(t *testing.T) {
	cfg := Config{URI: "mongodb://localhost:27017", Database: "library"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Second, cfg.pingTimeout)
}

func TestMapError(t *testing.T) {
	assert.NoError(t, MapError(nil, "Store", "Find", "find"))

	notFound := MapError(mongo.ErrNoDocuments, "Store", "AuthorByName", "lookup")
	assert.True(t, errors.IsNotFound(notFound))

	transient := MapError(assert.AnError, "Store", "Books", "find")
	assert.True(t, errors.IsTransient(transient))
}
