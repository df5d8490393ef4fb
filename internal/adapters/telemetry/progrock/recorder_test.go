package progrock_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vprogrock "github.com/vito/progrock"
	"go.trai.ch/rocks/internal/adapters/telemetry/progrock"
	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/rocks/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

type captureWriter struct {
	mu       sync.Mutex
	vertexes map[string]*vprogrock.Vertex
	closed   bool
}

func (c *captureWriter) WriteStatus(update *vprogrock.StatusUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vertexes == nil {
		c.vertexes = make(map[string]*vprogrock.Vertex)
	}
	for _, v := range update.Vertexes {
		c.vertexes[v.Id] = v
	}
	return nil
}

func (c *captureWriter) Close() error {
	c.closed = true
	return nil
}

func (c *captureWriter) vertex(name string) *vprogrock.Vertex {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vertexes[digest.FromString(name).String()]
}

func TestRecorder_Record(t *testing.T) {
	w := &captureWriter{}
	rec := progrock.NewRecorder(w)

	ctx, lua := rec.Record(context.Background(), "lua@5.4.6")
	fromCtx, ok := ports.VertexFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, lua, fromCtx)
	lua.Cached()
	lua.Complete(nil)

	_, lfs := rec.Record(context.Background(), "lfs@1.8.0", ports.WithInputs("lua@5.4.6"))
	_, err := lfs.Stdout().Write([]byte("cc -c lfs.c\n"))
	require.NoError(t, err)
	lfs.Log(domain.LogLevelInfo, "linking")
	lfs.Complete(errors.New("cc failed"))

	require.NoError(t, rec.Close())
	assert.True(t, w.closed)

	luaV := w.vertex("lua@5.4.6")
	require.NotNil(t, luaV)
	assert.Equal(t, "lua@5.4.6", luaV.Name)
	assert.True(t, luaV.Cached)
	assert.NotNil(t, luaV.Completed)

	lfsV := w.vertex("lfs@1.8.0")
	require.NotNil(t, lfsV)
	assert.Equal(t, []string{digest.FromString("lua@5.4.6").String()}, lfsV.Inputs)
	require.NotNil(t, lfsV.Error)
	assert.Equal(t, "cc failed", *lfsV.Error)
}

func TestStatusLog_ReportsEachVertexOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info("lua@5.4.6 up to date")
	log.EXPECT().Info("lpeg@1.1.0 done")
	log.EXPECT().Warn("lfs@1.8.0 failed: cc failed")

	rec := progrock.NewRecorder(progrock.NewStatusLog(log))

	_, lua := rec.Record(context.Background(), "lua@5.4.6")
	lua.Cached()
	lua.Complete(nil)

	_, lpeg := rec.Record(context.Background(), "lpeg@1.1.0")
	_, _ = lpeg.Stdout().Write([]byte("building\n"))
	lpeg.Complete(nil)

	_, lfs := rec.Record(context.Background(), "lfs@1.8.0")
	lfs.Complete(errors.New("cc failed"))

	_, pending := rec.Record(context.Background(), "pending@1.0.0")
	_ = pending

	require.NoError(t, rec.Close())
}

func TestNew(t *testing.T) {
	rec := progrock.New()
	require.NotNil(t, rec)
	_, v := rec.Record(context.Background(), "x@1.0.0")
	v.Complete(nil)
	require.NoError(t, rec.Close())
}
