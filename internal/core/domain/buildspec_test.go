package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/rocks/internal/core/domain"
)

func TestBuildSpec_Kinds(t *testing.T) {
	for _, kind := range domain.BuildKinds() {
		spec, err := domain.NewBuildSpec(kind)
		require.NoError(t, err)
		assert.Equal(t, kind, spec.Kind())
	}

	_, err := domain.NewBuildSpec("make")
	require.ErrorIs(t, err, domain.ErrUnknownBuildKind)
}

func TestBuildSpec_TypeField(t *testing.T) {
	spec := &domain.NativeModuleSpec{
		Modules:  []domain.NativeModule{{Name: "lpeg", Sources: []string{"lpcap.c", "lpcode.c"}}},
		External: []string{"pcre"},
	}

	data, err := domain.MarshalBuildSpec(spec)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "native-module", fields["type"])

	back, err := domain.UnmarshalBuildSpec(data)
	require.NoError(t, err)
	assert.Equal(t, spec, back)
}

func TestUnmarshalBuildSpec_DefaultsWithoutType(t *testing.T) {
	spec, err := domain.UnmarshalBuildSpec([]byte(`{"modules":{"foo":"src/foo.lua"}}`))
	require.NoError(t, err)

	def, ok := spec.(*domain.DefaultSpec)
	require.True(t, ok)
	assert.Equal(t, "src/foo.lua", def.Modules["foo"])
}

func TestBuildSpecFromMap(t *testing.T) {
	spec, err := domain.BuildSpecFromMap(map[string]any{
		"type": "custom-script",
		"steps": []any{
			map[string]any{"run": []any{"make", "install"}, "env": map[string]any{"CFLAGS": "-O2"}},
		},
	})
	require.NoError(t, err)

	script, ok := spec.(*domain.CustomScriptSpec)
	require.True(t, ok)
	require.Len(t, script.Steps, 1)
	assert.Equal(t, []string{"make", "install"}, script.Steps[0].Run)
	assert.Equal(t, "-O2", script.Steps[0].Env["CFLAGS"])
}

func TestSameBuildSpec(t *testing.T) {
	a := &domain.ParserGrammarSpec{Language: "lua"}
	b := &domain.ParserGrammarSpec{Language: "lua"}
	c := &domain.ParserGrammarSpec{Language: "c"}

	assert.True(t, domain.SameBuildSpec(a, b))
	assert.False(t, domain.SameBuildSpec(a, c))
	assert.True(t, domain.SameBuildSpec(nil, &domain.DefaultSpec{}))
}
