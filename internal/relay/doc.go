// Package relay moves chat messages between clients and their assigned
// agents. Every message is translated from the sender's language into the
// recipient's before persisting, with two deliberate soft spots: a failed
// translation delivers the original text, and a failed voice transcription
// still delivers the audio reference. Both participants' live connections
// get a push for each persisted message; offline participants catch up
// from history.
package relay
