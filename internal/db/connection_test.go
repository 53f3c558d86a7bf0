package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDBServiceRejectsEmptyConnectionString(t *testing.T) {
	service, err := NewDBService("")
	require.Error(t, err)
	assert.Nil(t, service)
}

func TestNewDBServiceFailsWhenUnreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network-bound connection test in short mode")
	}
	service, err := NewDBService("postgres://foliotrack@127.0.0.1:1/foliotrack?sslmode=disable&connect_timeout=1")
	require.Error(t, err)
	assert.Nil(t, service)
}
