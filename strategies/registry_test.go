package strategies

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry(nil)

	var ids []string
	for _, d := range r.Definitions() {
		ids = append(ids, d.ID)
		assert.Equal(t, KindBuiltin, d.Kind)
	}
	assert.Equal(t, []string{"ema-cross", "noop", "open-once"}, ids)
}

func TestRegistryLoadCaches(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()

	a, err := r.Load(ctx, "open-once")
	require.NoError(t, err)
	b, err := r.Load(ctx, "open-once")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, []string{"open-once"}, r.Loaded())

	fresh, err := r.New(ctx, "open-once")
	require.NoError(t, err)
	assert.NotSame(t, a, fresh)
	assert.Equal(t, []string{"open-once"}, r.Loaded())
}

func TestRegistryEvictAndReload(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()

	a, err := r.Load(ctx, "ema-cross")
	require.NoError(t, err)

	assert.True(t, r.Evict("ema-cross"))
	assert.False(t, r.Evict("ema-cross"))
	assert.Empty(t, r.Loaded())

	b, err := r.Reload(ctx, "ema-cross")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, []string{"ema-cross"}, r.Loaded())
}

func TestRegistryUnknown(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	require.NoError(t, r.Define(Definition{ID: "ghost", Kind: KindBuiltin, Name: "missing"}))
	_, err = r.New(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestRegistryDefineValidation(t *testing.T) {
	r := NewRegistry(nil)

	assert.Error(t, r.Define(Definition{}))
	assert.Error(t, r.Define(Definition{ID: "x", Kind: KindSubprocess}))
	assert.Error(t, r.Define(Definition{ID: "x", Kind: KindModel}))
	assert.Error(t, r.Define(Definition{ID: "x", Kind: "plugin"}))
}

func TestRegistryDefineParamsAndEvictsOnRedefine(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()

	require.NoError(t, r.Define(Definition{
		ID:     "fast-cross",
		Name:   "ema-cross",
		Params: Params{"fast": 3, "slow": 9},
	}))
	s, err := r.Load(ctx, "fast-cross")
	require.NoError(t, err)
	ec := s.(*EMACross)
	assert.Equal(t, 3, ec.FastPeriod)
	assert.Equal(t, 9, ec.SlowPeriod)

	require.NoError(t, r.Define(Definition{
		ID:     "fast-cross",
		Name:   "ema-cross",
		Params: Params{"fast": 4, "slow": 9},
	}))
	assert.Empty(t, r.Loaded())

	s, err = r.Load(ctx, "fast-cross")
	require.NoError(t, err)
	assert.Equal(t, 4, s.(*EMACross).FastPeriod)
}

func TestRegistryBadParams(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Define(Definition{ID: "bad", Name: "ema-cross", Params: Params{"fast": 10, "slow": 5}}))
	_, err := r.Load(context.Background(), "bad")
	assert.Error(t, err)
	assert.Empty(t, r.Loaded())
}

func TestRegistryModelKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testModelYAML), 0o644))

	r := NewRegistry(nil)
	require.NoError(t, r.Define(Definition{ID: "m1", Kind: KindModel, Path: path}))

	s, err := r.Load(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", s.Name())
}
