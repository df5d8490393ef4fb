package shell

import (
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveEnvironment(t *testing.T) {
	sep := string(os.PathListSeparator)
	tests := []struct {
		name     string
		sysEnv   []string
		cmdEnv   []string
		expected []string
	}{
		{
			name:     "system only (allowed)",
			sysEnv:   []string{"USER=test", "PATH=/bin", "HOME=/home/test"},
			expected: []string{"HOME=/home/test", "PATH=/bin", "USER=test"},
		},
		{
			name:     "system only (filtered)",
			sysEnv:   []string{"USER=test", "SSH_AUTH_SOCK=/tmp/ssh", "SECRET=key"},
			expected: []string{"USER=test"},
		},
		{
			name:     "command variables added",
			sysEnv:   []string{"PATH=/bin"},
			cmdEnv:   []string{"CC=clang", "LUADIR=/x"},
			expected: []string{"CC=clang", "LUADIR=/x", "PATH=/bin"},
		},
		{
			name:     "command PATH prepended",
			sysEnv:   []string{"PATH=/bin"},
			cmdEnv:   []string{"PATH=/opt/bin"},
			expected: []string{"PATH=/opt/bin" + sep + "/bin"},
		},
		{
			name:     "command PATH without host PATH",
			cmdEnv:   []string{"PATH=/opt/bin"},
			expected: []string{"PATH=/opt/bin"},
		},
		{
			name:     "command overrides host",
			sysEnv:   []string{"USER=test"},
			cmdEnv:   []string{"USER=rocks", "broken"},
			expected: []string{"USER=rocks"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolveEnvironment(tt.sysEnv, tt.cmdEnv))
		})
	}
}

func TestLookPath(t *testing.T) {
	dir := t.TempDir()
	tool := dir + "/tool"
	assert.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\n"), 0o700))
	assert.NoError(t, os.WriteFile(dir+"/data", []byte("x"), 0o600))

	got, err := lookPath("tool", []string{"PATH=/nonexistent" + string(os.PathListSeparator) + dir})
	assert.NoError(t, err)
	assert.Equal(t, tool, got)

	_, err = lookPath("data", []string{"PATH=" + dir})
	assert.Error(t, err)

	_, err = lookPath("tool", nil)
	assert.Error(t, err)
}

func TestTailBuffer(t *testing.T) {
	tail := &tailBuffer{max: 3}
	for i := range 5 {
		_, _ = tail.Write([]byte("line" + strconv.Itoa(i) + "\n"))
	}
	assert.Equal(t, "line2\nline3\nline4", tail.String())

	_, _ = tail.Write([]byte("partial"))
	assert.Equal(t, "line3\nline4\npartial", tail.String())
	assert.Equal(t, 3, len(strings.Split(tail.String(), "\n")))
}
