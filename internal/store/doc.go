// ABOUTME: Package store provides persistence for glotdesk entities
// ABOUTME: Users, clients, chatbots, chat sessions and messages in SQLite

// Package store defines the persistence layer for the glotdesk gateway.
//
// The Store interface covers everything the core subsystems need: user and
// client records, the chatbot that resolves a client to an admin's agent
// pool, and the append-only chat sessions exchanged between a client and
// its assigned agent.
//
// The SQLite implementation keeps all timestamps as RFC 3339 strings in
// UTC. Sessions are unique per (client, agent) pair and created lazily on
// first message; messages are immutable once appended.
//
// Two bulk operations exist solely for agent deletion: BulkReassignClients
// and BulkRepointSessions move an outgoing agent's clients and history onto
// its replacement in single statements. They are intentionally not wrapped
// in one transaction with the counter update that follows them - a partial
// failure leaves a drifted clients_handled counter, which is an accepted
// degraded state, not a correctness bug.
package store
