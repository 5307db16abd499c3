package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/bpf"
)

func TestCompileEmpty(t *testing.T) {
	ins, err := Compile("   ", 65535)
	require.NoError(t, err)
	assert.Nil(t, ins)
}

func TestCompileTCPPort(t *testing.T) {
	ins, err := Compile("tcp and port 80", 65535)
	require.NoError(t, err)
	require.NotEmpty(t, ins)

	// 最后一条一定是 ret 指令。
	last := ins[len(ins)-1].Disassemble()
	switch last.(type) {
	case bpf.RetConstant, bpf.RetA:
	default:
		t.Fatalf("last instruction = %#v", last)
	}
}

func TestCompileInvalid(t *testing.T) {
	_, err := Compile("tcp and and port", 65535)
	assert.Error(t, err)
}
