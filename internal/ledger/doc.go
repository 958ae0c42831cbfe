// Package ledger keeps the in-memory record of what a session has proposed
// and what the user has done about it: the append-only suggestion list,
// the applied set, the bounded undo stack of pre-apply document snapshots,
// the single inline-preview slot and the bounded thinking-trace log.
package ledger
