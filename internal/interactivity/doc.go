// Package interactivity tracks multi-step component sessions, such as
// paginated messages, and routes button clicks to the session that owns the
// clicked message.
//
// A Router holds at most one Session per message id. Run registers a session,
// waits until it settles (terminal action, timeout or cancellation), then
// always unregisters it and runs its Cleanup. Clicks on unmanaged messages are
// ignored, and clicks from anyone but the session's actor never reach it.
package interactivity
