package dev

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, "1 + 1", StripCodeFence("```go\n1 + 1\n```"))
	assert.Equal(t, "x", StripCodeFence("```x```"))
	assert.Equal(t, "plain", StripCodeFence("  plain  "))
}

func TestEvaluateExpression(t *testing.T) {
	out, err := Evaluate(`1 + 2`, nil)
	require.NoError(t, err)
	assert.Equal(t, "3", out)
}

func TestEvaluateUsesSymbols(t *testing.T) {
	symbols := map[string]reflect.Value{
		"Double": reflect.ValueOf(func(n int) int { return n * 2 }),
	}
	out, err := Evaluate(`Double(21)`, symbols)
	require.NoError(t, err)
	assert.Equal(t, "42", out)
}

func TestEvaluateReportsErrors(t *testing.T) {
	_, err := Evaluate(`undefinedThing()`, nil)
	assert.Error(t, err)
}
