// Package translator talks to the external translation and transcription
// service. The Client issues HTTP requests with a hard timeout; NewCached
// layers a TTL cache over repeated translations. Callers treat failures as
// soft: message delivery falls back to the original text rather than block
// on the service.
package translator
