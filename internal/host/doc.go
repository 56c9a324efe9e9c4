// Package host connects the engine to an editor over HTTP and websockets.
//
// The editor pushes selection, modifier and dataset notifications, either
// as JSON POSTs under /api or as messages on the /api/ws websocket. The Hub
// turns the engine's mutations into websocket commands (apply, deselect,
// create) and streams state updates back to every connected client.
//
// Routes:
//
//	GET  /api/templates
//	GET  /api/columns?columns=N&height=H
//	GET  /api/state
//	GET  /api/icons/{id}
//	GET  /api/ws
//	POST /api/selection
//	POST /api/modifiers
//	POST /api/dataset/changed
//	POST /api/templates/{id}/select
//	POST /api/templates/{id}/click?count=N
//	POST /api/autoapply/toggle
//	POST /api/autoapply/deactivate
package host
