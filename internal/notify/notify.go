// Package notify tells the experimenter's desktop that a session was saved.
package notify

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	busName    = "org.freedesktop.Notifications"
	objectPath = dbus.ObjectPath("/org/freedesktop/Notifications")
	method     = busName + ".Notify"
)

// Notifier delivers short messages.
type Notifier interface {
	Notify(ctx context.Context, summary, body string) error
}

// Noop discards every message.
type Noop struct{}

// Notify does nothing.
func (Noop) Notify(context.Context, string, string) error { return nil }

type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...any) *dbus.Call
}

// DBus sends freedesktop notifications over the session bus.
type DBus struct {
	obj     caller
	app     string
	timeout int32
}

// NewDBus connects to the session bus. timeoutMillis is passed to the
// notification server; -1 lets it decide.
func NewDBus(app string, timeoutMillis int32) (*DBus, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}
	return &DBus{
		obj:     conn.Object(busName, objectPath),
		app:     app,
		timeout: timeoutMillis,
	}, nil
}

// Notify posts a notification.
func (d *DBus) Notify(ctx context.Context, summary, body string) error {
	call := d.obj.CallWithContext(ctx, method, 0,
		d.app,
		uint32(0),
		"",
		summary,
		body,
		[]string{},
		map[string]dbus.Variant{},
		d.timeout,
	)
	if call.Err != nil {
		return fmt.Errorf("notify: %w", call.Err)
	}
	return nil
}
