package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBus struct {
	method string
	args   []any
	err    error
}

func (f *fakeBus) CallWithContext(_ context.Context, method string, _ dbus.Flags, args ...any) *dbus.Call {
	f.method = method
	f.args = args
	return &dbus.Call{Err: f.err}
}

func TestDBusNotify(t *testing.T) {
	bus := &fakeBus{}
	d := &DBus{obj: bus, app: "statlearn", timeout: 5000}

	require.NoError(t, d.Notify(context.Background(), "Session saved", "participant 4: 6/8"))

	assert.Equal(t, "org.freedesktop.Notifications.Notify", bus.method)
	require.Len(t, bus.args, 8)
	assert.Equal(t, "statlearn", bus.args[0])
	assert.Equal(t, uint32(0), bus.args[1])
	assert.Equal(t, "Session saved", bus.args[3])
	assert.Equal(t, "participant 4: 6/8", bus.args[4])
	assert.Equal(t, int32(5000), bus.args[7])
}

func TestDBusNotifyError(t *testing.T) {
	cause := errors.New("no notification daemon")
	d := &DBus{obj: &fakeBus{err: cause}, app: "statlearn"}

	err := d.Notify(context.Background(), "s", "b")
	assert.ErrorIs(t, err, cause)
}

func TestNoop(t *testing.T) {
	var n Notifier = Noop{}
	assert.NoError(t, n.Notify(context.Background(), "s", "b"))
}
