// Package tracker records which in-flight message ids belong to the human
// operator versus the assistant, and accumulates streamed assistant output
// per message. Content accumulation only has meaning for messages tracked
// as assistant; marking a message as user clears its content.
package tracker
