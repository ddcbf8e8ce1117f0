package integration_test

import (
	"context"
	"os"
	"os/exec"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

func serverBinary(t *testing.T) string {
	t.Helper()
	for _, path := range []string{"./bin/lectern", "../../bin/lectern"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	t.Skip("Server binary not found. Run 'go build -o bin/lectern ./cmd/server' first.")
	return ""
}

// stdioEnv runs the binary with an in-memory database and the HTTP side on
// an ephemeral loopback port.
func stdioEnv() []string {
	return append(os.Environ(),
		"LECTERN_TRANSPORT=stdio",
		"LECTERN_DB_PATH=:memory:",
		"LECTERN_SERVER_HOST=127.0.0.1",
		"LECTERN_SERVER_PORT=0",
	)
}

// TestStdioProtocolCompliance drives the binary over stdio with the MCP SDK
// client.
func TestStdioProtocolCompliance(t *testing.T) {
	binaryPath := serverBinary(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, binaryPath)
	cmd.Env = stdioEnv()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, &sdkmcp.CommandTransport{Command: cmd}, nil)
	require.NoError(t, err, "Failed to connect to server")
	defer session.Close()

	t.Run("ServerInfo", func(t *testing.T) {
		initResult := session.InitializeResult()
		require.NotNil(t, initResult)
		require.NotNil(t, initResult.ServerInfo)
		require.Equal(t, "lectern", initResult.ServerInfo.Name)
		require.Equal(t, "0.1.0", initResult.ServerInfo.Version)
	})

	t.Run("ListTools", func(t *testing.T) {
		tools, err := session.ListTools(ctx, nil)
		require.NoError(t, err, "tools/list failed")

		toolNames := make(map[string]bool)
		for _, tool := range tools.Tools {
			toolNames[tool.Name] = true
		}
		for _, name := range []string{"list_presentations", "open_presenter", "navigate_slide", "list_audit"} {
			require.True(t, toolNames[name], "Missing expected tool: %s", name)
		}
	})

	t.Run("CallListPresentations", func(t *testing.T) {
		result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
			Name:      "list_presentations",
			Arguments: map[string]any{},
		})
		require.NoError(t, err, "tools/call list_presentations failed")
		require.False(t, result.IsError, "list_presentations returned error: %v", result)
		require.NotEmpty(t, result.Content)

		text, ok := result.Content[0].(*sdkmcp.TextContent)
		require.True(t, ok)
		require.JSONEq(t, `{"presentations":[]}`, text.Text)
	})

	t.Run("CallPresenterStateUnknown", func(t *testing.T) {
		result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
			Name:      "presenter_state",
			Arguments: map[string]any{"presentation_id": "nope"},
		})
		require.NoError(t, err)
		require.True(t, result.IsError)
	})
}

// TestStdioProtocol_StdoutHygiene checks that stdout carries nothing but
// JSON-RPC messages.
func TestStdioProtocol_StdoutHygiene(t *testing.T) {
	binaryPath := serverBinary(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, binaryPath)
	cmd.Env = stdioEnv()

	stdin, err := cmd.StdinPipe()
	require.NoError(t, err)
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())
	defer func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}()

	initReq := `{"jsonrpc":"2.0","method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}},"id":1}`
	_, err = stdin.Write([]byte(initReq + "\n"))
	require.NoError(t, err)

	first := make(chan byte, 1)
	go func() {
		buf := make([]byte, 1)
		if n, _ := stdout.Read(buf); n == 1 {
			first <- buf[0]
		}
		close(first)
	}()

	select {
	case b, ok := <-first:
		require.True(t, ok, "Server produced no stdout output")
		require.Equal(t, byte('{'), b, "stdout should start with a JSON-RPC message")
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for server response")
	}
	_ = stdin.Close()
}
