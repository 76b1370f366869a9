package wrydebug_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjamn/wryware/canon"
	"github.com/benjamn/wryware/task"
	"github.com/benjamn/wryware/wrydebug"
)

type leaf struct{ Value int }

func leafHandler() *canon.Handler {
	return &canon.Handler{
		Deconstruct: func(obj any) []any { return []any{obj.(*leaf).Value} },
		Reconstruct: func(children []any) any { return &leaf{Value: children[0].(int)} },
	}
}

func TestDumpReportsCanonStats(t *testing.T) {
	c := canon.New()
	require.NoError(t, c.Handlers().Enable(reflect.TypeOf(&leaf{}), leafHandler()))
	c.Admit(&leaf{Value: 1})

	out := wrydebug.Dump(c)
	assert.Contains(t, out, "Known Canonical Values: 1")
	assert.Contains(t, out, "Resolved Inputs: 1")
	assert.Contains(t, out, "Go Version:")
}

func TestDumpWithoutCanon(t *testing.T) {
	out := wrydebug.Dump(nil)
	assert.NotContains(t, out, "Canon Information")
	assert.Contains(t, out, "Hostname:")
}

func TestDumpTask(t *testing.T) {
	tk := task.Resolve(42)
	out := wrydebug.DumpTask(tk)
	assert.Contains(t, out, "Settled: true")
}
