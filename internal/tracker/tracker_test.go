// ABOUTME: Tests for the message role tracker
// ABOUTME: Covers role exclusivity, content accumulation, and the size ceiling

package tracker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoles_MutuallyExclusive(t *testing.T) {
	tr := New(nil)

	tr.MarkUser("m1")
	assert.True(t, tr.IsUser("m1"))
	assert.False(t, tr.IsAssistant("m1"))

	tr.MarkAssistant("m1")
	assert.True(t, tr.IsAssistant("m1"))
	assert.False(t, tr.IsUser("m1"))

	tr.MarkUser("m1")
	assert.True(t, tr.IsUser("m1"))
	assert.False(t, tr.IsAssistant("m1"))
}

func TestRoles_UnknownID(t *testing.T) {
	tr := New(nil)
	assert.False(t, tr.IsUser("nope"))
	assert.False(t, tr.IsAssistant("nope"))
}

func TestAppendContent_Accumulates(t *testing.T) {
	tr := New(nil)
	tr.MarkAssistant("m1")

	assert.True(t, tr.AppendContent("m1", "hello "))
	assert.True(t, tr.AppendContent("m1", "world"))
	assert.Equal(t, "hello world", tr.Content("m1"))
}

func TestAppendContent_SizeCeiling(t *testing.T) {
	tr := New(nil)
	tr.MarkAssistant("m1")

	big := strings.Repeat("x", MaxContentSize-3)
	assert.True(t, tr.AppendContent("m1", big))

	// Would exceed the ceiling: rejected, content unchanged.
	assert.False(t, tr.AppendContent("m1", "yyyy"))
	assert.Equal(t, big, tr.Content("m1"))

	// Rejection is idempotent.
	assert.False(t, tr.AppendContent("m1", "yyyy"))
	assert.Equal(t, big, tr.Content("m1"))

	// A delta that still fits is accepted.
	assert.True(t, tr.AppendContent("m1", "zzz"))
	assert.Equal(t, big+"zzz", tr.Content("m1"))
}

func TestMarkUser_ClearsContent(t *testing.T) {
	tr := New(nil)
	tr.MarkAssistant("m1")
	tr.AppendContent("m1", "streamed")

	tr.MarkUser("m1")
	assert.Empty(t, tr.Content("m1"))
}

func TestMarkAssistant_KeepsContent(t *testing.T) {
	tr := New(nil)
	tr.MarkAssistant("m1")
	tr.AppendContent("m1", "part one")

	// Assistant messages are re-marked on every update while streaming.
	tr.MarkAssistant("m1")
	assert.Equal(t, "part one", tr.Content("m1"))
}

func TestClearContent(t *testing.T) {
	tr := New(nil)
	tr.MarkAssistant("m1")
	tr.AppendContent("m1", "data")

	tr.ClearContent("m1")
	assert.Empty(t, tr.Content("m1"))
	assert.True(t, tr.IsAssistant("m1"))
}
