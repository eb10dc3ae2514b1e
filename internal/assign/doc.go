// Package assign balances incoming clients across a pool of support agents.
//
// Selection is least-busy-first: the two agents with the fewest clients are
// fetched and, when exactly tied, one is chosen uniformly at random so that
// equally-loaded agents accumulate work at the same rate.
//
// Removing an agent moves its clients and chat sessions in bulk to a
// replacement chosen by the same rule. An agent whose clients have nowhere
// to go cannot be removed.
//
// Client counts are maintained as running increments rather than computed
// per assignment, which keeps the hot path to a single indexed read. The
// trade-off is possible drift under concurrent writes; Reconcile recomputes
// the counters on demand.
package assign
