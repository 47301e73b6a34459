// Package relay moves assistant output into Telegram. The Relay consumes
// the runtime event stream and forwards streamed deltas into the bound
// forum topics, re-delivering oversized completed responses as document
// attachments. The Syncer runs once at startup and rebinds existing
// sessions to topics without blocking the stream.
package relay
