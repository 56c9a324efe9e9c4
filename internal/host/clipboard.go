package host

import (
	"errors"

	"github.com/atotto/clipboard"

	"github.com/roach88/tagstamp/internal/engine"
)

// ErrClipboardUnsupported is returned when the system has no clipboard
// utility.
var ErrClipboardUnsupported = errors.New("clipboard not supported on this system")

// SystemClipboard copies to the operating system clipboard.
type SystemClipboard struct{}

var _ engine.Clipboard = SystemClipboard{}

// Copy replaces the clipboard contents with text.
func (SystemClipboard) Copy(text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnsupported
	}
	return clipboard.WriteAll(text)
}

// BroadcastClipboard sends copies to connected editors as well as to the
// fallback clipboard, so a browser-based editor can place them on its own
// clipboard.
type BroadcastClipboard struct {
	Hub      *Hub
	Fallback engine.Clipboard
}

// Copy never fails while at least one target accepted the text.
func (c BroadcastClipboard) Copy(text string) error {
	sent := c.Hub.Broadcast(Message{Type: TypeCopy, Text: text}) > 0
	if c.Fallback == nil {
		if !sent {
			return ErrNoEditor
		}
		return nil
	}
	if err := c.Fallback.Copy(text); err != nil && !sent {
		return err
	}
	return nil
}
