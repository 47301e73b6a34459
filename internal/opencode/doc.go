// Package opencode is the client for the OpenCode assistant runtime.
//
// Four operations cover session management (create, list, delete, prompt);
// assistant output arrives separately through the SSE /event subscription,
// decoded into the closed Event union. Every operation takes a context and
// returns a structured error on failure.
package opencode
