package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turnkeyd/internal/config"
	"turnkeyd/internal/focus"
	"turnkeyd/internal/hotkey"
	"turnkeyd/internal/journal"
	"turnkeyd/internal/logging"
	"turnkeyd/internal/registry"
)

// fakeRegistry serves canned per-op replies over a unix socket for the
// duration of the test.
func fakeRegistry(t *testing.T, replies map[string]string) string {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "registry.sock")
	ln, err := net.Listen("unix", socket)
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
				line, err := bufio.NewReader(conn).ReadBytes('\n')
				if err != nil {
					return
				}
				var req struct {
					Op string `json:"op"`
				}
				if err := json.Unmarshal(line, &req); err != nil {
					return
				}
				reply, ok := replies[req.Op]
				if !ok {
					reply = `{"ok": false, "error": "unexpected op"}`
				}
				conn.Write(append([]byte(reply), '\n'))
			}(conn)
		}
	}()
	return socket
}

type fixedResolver struct {
	session string
	err     error
}

func (r fixedResolver) FocusedSession([]registry.SessionDescriptor) (string, error) {
	return r.session, r.err
}

func testBroker(t *testing.T, socket string, resolver focus.SessionResolver) (*broker, string) {
	t.Helper()
	dir := t.TempDir()

	jrnl, err := journal.Open(filepath.Join(dir, "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { jrnl.Close() })

	cfg := registry.DefaultClientConfig()
	cfg.SocketPath = socket

	sinkDir := filepath.Join(dir, "turns")
	require.NoError(t, os.MkdirAll(sinkDir, 0o700))

	return &broker{
		client:   registry.NewClient(cfg),
		resolver: resolver,
		journal:  jrnl,
		sinkDir:  sinkDir,
		logger:   logging.Default(),
	}, sinkDir
}

const fetchReply = `{"ok": true, "turn": {"turn_id": "turn-1", "content": "aGVsbG8=", "timestamp": 1700000000, "interrupted": false, "truncated": false}}`

func TestCaptureWritesFileAndJournals(t *testing.T) {
	socket := fakeRegistry(t, map[string]string{
		"list-sessions": `{"ok": true, "sessions": [{"session": "s1", "pid": 42, "has_turn": true}]}`,
		"fetch-turn":    fetchReply,
	})
	b, sinkDir := testBroker(t, socket, fixedResolver{session: "s1"})

	b.handle(hotkey.EventCapture)

	data, err := os.ReadFile(filepath.Join(sinkDir, "turn-1.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	recent, err := b.journal.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "turn-1", recent[0].TurnID)
	assert.Equal(t, sinkFile, recent[0].Sink)
	assert.Equal(t, journal.CodeOK, recent[0].Code)
	assert.Equal(t, 5, recent[0].ByteLength)
}

func TestCaptureToClipboard(t *testing.T) {
	socket := fakeRegistry(t, map[string]string{
		"list-sessions": `{"ok": true, "sessions": [{"session": "s1", "pid": 42, "has_turn": true}]}`,
		"fetch-turn":    fetchReply,
	})
	b, _ := testBroker(t, socket, fixedResolver{session: "s1"})

	var copied []byte
	b.clipboard = func(content []byte) error {
		copied = append([]byte(nil), content...)
		return nil
	}

	b.handle(hotkey.EventClipboard)

	assert.Equal(t, "hello", string(copied))

	recent, err := b.journal.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, sinkClipboard, recent[0].Sink)
	assert.Equal(t, journal.CodeOK, recent[0].Code)
}

func TestClipboardFailureJournalsOpaqueCode(t *testing.T) {
	socket := fakeRegistry(t, map[string]string{
		"list-sessions": `{"ok": true, "sessions": [{"session": "s1", "pid": 42, "has_turn": true}]}`,
		"fetch-turn":    fetchReply,
	})
	b, _ := testBroker(t, socket, fixedResolver{session: "s1"})
	b.clipboard = func([]byte) error { return errors.New("xsel exploded") }

	b.handle(hotkey.EventClipboard)

	recent, err := b.journal.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "clipboard_failed", recent[0].Code)
}

func TestFileWriteFailureJournalsOpaqueCode(t *testing.T) {
	socket := fakeRegistry(t, map[string]string{
		"list-sessions": `{"ok": true, "sessions": [{"session": "s1", "pid": 42, "has_turn": true}]}`,
		"fetch-turn":    fetchReply,
	})
	b, sinkDir := testBroker(t, socket, fixedResolver{session: "s1"})
	// Point the file sink somewhere unwritable.
	b.sinkDir = filepath.Join(sinkDir, "missing", "nested")

	b.handle(hotkey.EventCapture)

	recent, err := b.journal.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "file_write_failed", recent[0].Code)
}

func TestNoSessionIsSilentlyIgnored(t *testing.T) {
	socket := fakeRegistry(t, map[string]string{
		"list-sessions": `{"ok": true, "sessions": []}`,
	})
	b, sinkDir := testBroker(t, socket, fixedResolver{err: focus.ErrNoSession})

	b.handle(hotkey.EventCapture)

	entries, err := os.ReadDir(sinkDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	recent, err := b.journal.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestAmbiguousFocusDeliversNothing(t *testing.T) {
	socket := fakeRegistry(t, map[string]string{
		"list-sessions": `{"ok": true, "sessions": [{"session": "s1", "pid": 42}, {"session": "s2", "pid": 43}]}`,
	})
	b, sinkDir := testBroker(t, socket, fixedResolver{
		err: &focus.AmbiguousError{Sessions: []string{"s1", "s2"}},
	})

	b.handle(hotkey.EventCapture)

	entries, err := os.ReadDir(sinkDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPasteRoutesToRegistry(t *testing.T) {
	socket := fakeRegistry(t, map[string]string{
		"list-sessions": `{"ok": true, "sessions": [{"session": "s1", "pid": 42, "has_turn": true}]}`,
		"paste-turn":    `{"ok": true}`,
	})
	b, _ := testBroker(t, socket, fixedResolver{session: "s1"})

	b.handle(hotkey.EventPaste)

	// Paste is registry-side; no sink delivery, no journal row.
	recent, err := b.journal.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestBindingsFromConfig(t *testing.T) {
	cfg := config.Default()
	capture, paste, clipboard := bindings(cfg)
	assert.Equal(t, cfg.Hotkeys.Capture, capture.Spec)
	assert.Equal(t, cfg.Hotkeys.Paste, paste.Spec)
	require.NotNil(t, clipboard)
	assert.Equal(t, cfg.Hotkeys.Clipboard, clipboard.Spec)

	cfg.Hotkeys.Clipboard = ""
	_, _, clipboard = bindings(cfg)
	assert.Nil(t, clipboard)
}
