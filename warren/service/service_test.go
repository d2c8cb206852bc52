package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warrenhq/warren/warren/services/agent"
	"github.com/warrenhq/warren/warren/services/compute"
	"github.com/warrenhq/warren/warren/services/controlplane"
)

func TestNewKnownServices(t *testing.T) {
	svc, err := New("controlplane", &controlplane.Config{})
	require.NoError(t, err)
	assert.NotNil(t, svc)

	svc, err = New("compute", &compute.Config{})
	require.NoError(t, err)
	assert.NotNil(t, svc)

	svc, err = New("agent", &agent.Config{})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestNewUnknownService(t *testing.T) {
	_, err := New("mystery", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown service type")
}
