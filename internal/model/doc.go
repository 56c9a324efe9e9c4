// Package model defines the data types shared by every tagstamp component.
//
// A Template is a named bundle of tags plus applicability rules. Templates
// and the Separator sentinel form the ordered entry list held by the catalog
// and partitioned into display columns by the layout package.
//
// # Ordering
//
// Tag maps (TagMap) preserve insertion order. The order is semantically
// visible: mutations are emitted in map order and persisted data round-trips
// in the same order. TagMap therefore replaces Go maps wherever a template
// stores tags.
//
// # Identity
//
// Template IDs are assigned once at creation and never change, even when the
// template is renamed. New IDs are content-addressed from the creation
// timestamp, the name and a random salt (see NewTemplateID).
//
// Separators are compared by identity: there is exactly one Separator value.
package model
