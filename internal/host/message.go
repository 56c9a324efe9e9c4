package host

import (
	"github.com/roach88/tagstamp/internal/engine"
	"github.com/roach88/tagstamp/internal/model"
)

// Message types sent to clients.
const (
	TypeHello    = "hello"
	TypeApply    = "apply"
	TypeDeselect = "deselect"
	TypeCreate   = "create"
	TypeCopy     = "copy"
	TypeState    = "state"
	TypeError    = "error"
)

// Message types received from clients.
const (
	TypeSelection      = "selection"
	TypeModifiers      = "modifiers"
	TypeDatasetChanged = "dataset_changed"
	TypeClick          = "click"
	TypeToggle         = "toggle"
	TypeDeactivate     = "deactivate"
	TypeSelect         = "select"
)

// Message is the websocket frame in both directions. Only the fields
// relevant to Type are set.
type Message struct {
	Type     string `json:"type"`
	ClientID string `json:"client_id,omitempty"`

	Groups   []model.MutationGroup `json:"groups,omitempty"`
	Geometry *model.Geometry       `json:"geometry,omitempty"`
	Tags     *model.TagMap         `json:"tags,omitempty"`
	Update   *engine.Update        `json:"update,omitempty"`
	Error    string                `json:"error,omitempty"`
	Text     string                `json:"text,omitempty"`

	Selection  *model.Selection `json:"selection,omitempty"`
	Modifiers  *model.Modifiers `json:"modifiers,omitempty"`
	TemplateID string           `json:"template_id,omitempty"`
	Clicks     int              `json:"clicks,omitempty"`
}
