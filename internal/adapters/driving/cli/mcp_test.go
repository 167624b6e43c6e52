package cli

import (
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mnemo/internal/adapters/driving/mcp"
)

func TestResolveHTTPAddr(t *testing.T) {
	addr, err := resolveHTTPAddr("localhost:9000")
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", addr)

	addr, err = resolveHTTPAddr("auto")
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	assert.Equal(t, mcpAutoHost, host)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, port, mcpAutoPortStart)
	assert.LessOrEqual(t, port, mcpAutoPortEnd)
}

func TestMCPCmd_RequiresServices(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	memoryService = nil

	_, _, err := execute(t, "mcp")

	require.Error(t, err)
	assert.ErrorIs(t, err, mcp.ErrMissingMemoryService)
}

func TestMCPCmd_HasHTTPFlag(t *testing.T) {
	flag := mcpCmd.Flags().Lookup("http")
	require.NotNil(t, flag)
	assert.Empty(t, flag.DefValue)
}
