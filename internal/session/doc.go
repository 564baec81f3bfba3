// Package session owns the client's view of the remote player.
//
// One goroutine owns all mutable state. Pollers, command completions and
// user actions reach it only as events on a channel, and it publishes an
// immutable View after each change. Readers never lock: they load the
// latest View or receive it from a subscription.
//
// Two reconciliation policies apply:
//
//   - Overwrite. Every successful poll replaces the corresponding local
//     value, including values applied optimistically by a command (play and
//     pause flags, module toggles, seek position).
//   - Hold until confirmed. A device transfer never changes the active
//     device locally; the target is shown as pending until a snapshot
//     reports it, or until the transfer timeout passes.
package session
