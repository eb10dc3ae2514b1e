// Package presence tracks which participants currently hold live websocket
// connections. Each identifier owns a connection group, so a user with
// several open tabs receives every event once per tab. Delivery is
// best-effort and non-blocking: a slow tab drops events rather than stall
// the sender, and EmitToUser only reports whether the user was reachable
// at all.
package presence
