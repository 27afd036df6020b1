// Package notify sends desktop notifications over the session bus.
//
// The broker loop uses it to surface states the lower layers
// deliberately leave to the consumer: ambiguous focus resolution and
// sink delivery failures. The resolver itself never logs or reports
// these; surfacing them is UX policy and lives here.
package notify

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	notifyBusName   = "org.freedesktop.Notifications"
	notifyPath      = "/org/freedesktop/Notifications"
	notifyMethod    = "org.freedesktop.Notifications.Notify"
	expireTimeoutMs = 5000
)

// Notifier delivers desktop notifications via
// org.freedesktop.Notifications.
type Notifier struct {
	conn *dbus.Conn
}

// New connects to the session bus. Failure is non-fatal to the daemon;
// callers may run with a nil Notifier and skip notifications.
func New() (*Notifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &Notifier{conn: conn}, nil
}

// Send shows one transient notification. A nil receiver is a no-op so
// callers need not branch on notification availability.
func (n *Notifier) Send(summary, body string) error {
	if n == nil || n.conn == nil {
		return nil
	}
	obj := n.conn.Object(notifyBusName, dbus.ObjectPath(notifyPath))
	call := obj.Call(notifyMethod, 0,
		"turnkeyd",             // app_name
		uint32(0),              // replaces_id
		"",                     // app_icon
		summary,                // summary
		body,                   // body
		[]string{},             // actions
		map[string]dbus.Variant{}, // hints
		int32(expireTimeoutMs), // expire_timeout
	)
	if call.Err != nil {
		return fmt.Errorf("notify: %w", call.Err)
	}
	return nil
}

// Close closes the bus connection.
func (n *Notifier) Close() error {
	if n == nil || n.conn == nil {
		return nil
	}
	return n.conn.Close()
}
