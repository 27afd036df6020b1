package registry

import (
	"bufio"
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRegistry accepts one connection at a time and answers every
// request with the given raw reply line.
func fakeRegistry(t *testing.T, reply string) *Client {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "registry.sock")
	ln, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				r := bufio.NewReader(conn)
				for {
					if _, err := r.ReadBytes('\n'); err != nil {
						return
					}
					if _, err := conn.Write(append([]byte(reply), '\n')); err != nil {
						return
					}
				}
			}(conn)
		}
	}()

	return NewClient(ClientConfig{
		SocketPath:     socketPath,
		ConnectTimeout: time.Second,
		RequestTimeout: time.Second,
	})
}

func TestListSessions(t *testing.T) {
	client := fakeRegistry(t, `{"ok":true,"sessions":[{"session":"s1","pid":100,"has_turn":true},{"session":"s2","pid":200,"has_turn":false}]}`)

	sessions, err := client.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s1", sessions[0].Session)
	assert.Equal(t, 100, sessions[0].PID)
	assert.True(t, sessions[0].HasTurn)
	assert.Equal(t, "s2", sessions[1].Session)
}

func TestListSessionsEmpty(t *testing.T) {
	client := fakeRegistry(t, `{"ok":true,"sessions":[]}`)

	sessions, err := client.ListSessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestFetchTurn(t *testing.T) {
	client := fakeRegistry(t, `{"ok":true,"turn":{"turn_id":"t-1","content":"aGVsbG8=","timestamp":1700000000,"interrupted":false,"truncated":true}}`)

	turn, err := client.FetchTurn(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "t-1", turn.TurnID)
	assert.Equal(t, []byte("hello"), turn.Content)
	assert.True(t, turn.Truncated)
	assert.False(t, turn.Interrupted)
}

func TestRegistryError(t *testing.T) {
	client := fakeRegistry(t, `{"ok":false,"error":"unknown session"}`)

	_, err := client.FetchTurn(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown session")
}

func TestSchemaRejectsMalformedResponse(t *testing.T) {
	// pid as a string violates the response schema.
	client := fakeRegistry(t, `{"ok":true,"sessions":[{"session":"s1","pid":"oops"}]}`)

	_, err := client.ListSessions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed registry response")
}

func TestSchemaRejectsMissingOk(t *testing.T) {
	client := fakeRegistry(t, `{"sessions":[]}`)

	_, err := client.ListSessions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed registry response")
}

func TestDaemonNotRunning(t *testing.T) {
	client := NewClient(ClientConfig{
		SocketPath:     filepath.Join(t.TempDir(), "missing.sock"),
		ConnectTimeout: 200 * time.Millisecond,
		RequestTimeout: 200 * time.Millisecond,
	})

	_, err := client.ListSessions(context.Background())
	require.Error(t, err)
}

func TestPasteTurn(t *testing.T) {
	client := fakeRegistry(t, `{"ok":true}`)
	require.NoError(t, client.PasteTurn(context.Background(), "s1"))
}
