// ABOUTME: Package documentation for the gateway orchestrator
// ABOUTME: Describes the HTTP surface and how the core services are wired

// Package gateway wires the store, assignment engine, translator, relay,
// and presence registry behind one HTTP server.
//
// The surface splits into four groups:
//
//   - Public: client signup/login, staff login, the supported-language list
//   - Authenticated: messaging, history, and profile updates
//   - Admin: agent management, deletion with reassignment, counter reconcile
//   - Superadmin: admin account provisioning
//
// Live delivery happens over GET /ws, authenticated by a token query
// parameter. Voice recordings upload over HTTP and are served back from
// the uploads directory.
package gateway
