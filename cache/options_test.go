package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewOptions(t *testing.T) {
	defaults := NewOptions()
	assert.Equal(t, time.Hour, defaults.MaxAge)
	assert.Empty(t, defaults.Name)

	opts := NewOptions(
		WithDSN("valkey://cache:6379/2"),
		WithName("basket"),
		WithMaxAge(720*time.Hour),
	)
	assert.Equal(t, Options{DSN: "valkey://cache:6379/2", Name: "basket", MaxAge: 720 * time.Hour}, *opts)
	assert.True(t, opts.DSN.IsValkey())
}
