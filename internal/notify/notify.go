package notify

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/hoppxi/adjust-brightness/pkg/displayinfo"
)

const (
	notifyBus       = "org.freedesktop.Notifications"
	notifyPath      = "/org/freedesktop/Notifications"
	notifyInterface = "org.freedesktop.Notifications"

	appName   = "adjust-brightness"
	appIcon   = "display-brightness-symbolic"
	timeoutMs = int32(2000)
)

// Notifier shows brightness changes through the desktop notification daemon.
// Successive notifications replace each other.
type Notifier struct {
	mu   sync.Mutex
	conn *dbus.Conn
	id   uint32
}

func New() (*Notifier, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Notifier{conn: conn}, nil
}

func (n *Notifier) Close() error {
	return n.conn.Close()
}

type message struct {
	summary string
	body    string
	hints   map[string]dbus.Variant
}

func brightnessMessage(display string, level int) message {
	return message{
		summary: "Screen Brightness",
		body:    fmt.Sprintf("%s set to %d/%d", display, level, displayinfo.Steps),
		hints: map[string]dbus.Variant{
			// progress bar in daemons that support it (dunst, mako, swaync)
			"value":                           dbus.MakeVariant(int32(level * 100 / displayinfo.Steps)),
			"x-canonical-private-synchronous": dbus.MakeVariant(appName),
			"urgency":                         dbus.MakeVariant(byte(0)),
		},
	}
}

// Brightness announces that display now runs at level.
func (n *Notifier) Brightness(display string, level int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	m := brightnessMessage(display, level)
	obj := n.conn.Object(notifyBus, dbus.ObjectPath(notifyPath))
	call := obj.Call(notifyInterface+".Notify", 0,
		appName,
		n.id,
		appIcon,
		m.summary,
		m.body,
		[]string{},
		m.hints,
		timeoutMs,
	)
	if call.Err != nil {
		return fmt.Errorf("Notify failed: %w", call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("failed to parse Notify response: %w", err)
	}
	n.id = id
	return nil
}
