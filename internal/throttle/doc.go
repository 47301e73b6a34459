// Package throttle serializes outbound chat-platform calls.
//
// The Telegram Bot API rate-limits bots aggressively; every outbound call
// the bridge makes goes through a single Throttler so that consecutive
// calls start at least the configured interval apart (500ms by default),
// in FIFO order, one at a time. Enqueue never blocks the caller; each
// call's outcome is delivered independently, so one failure cannot poison
// the queue.
package throttle
