// Package notify implements the notification relay worker and its
// bridge-side client. The worker registers Telegram users over a webhook,
// hands each one an opaque install key persisted in SQLite, and exposes a
// /notify endpoint that forwards authenticated one-shot notices to the
// registered chat. The bridge posts to that endpoint when a session goes
// idle.
package notify
