// Package auth provides JWT-based authentication for glotdesk.
//
// Tokens are HS256-signed and carry the subject's ID and role. The HTTP
// middleware verifies the bearer token and attaches a Principal to the
// request context; handlers read it back with FromContext. RequireRole
// layers role checks on top.
//
// Passwords are hashed with bcrypt at the default cost.
package auth
