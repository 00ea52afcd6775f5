package store_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/quire/blob"
	"github.com/ByLCY/quire/store"
)

type failingStore struct{ err error }

func (f failingStore) Put(context.Context, string, []byte, string) (string, error) {
	return "", f.err
}

func (f failingStore) Get(context.Context, string) ([]byte, error) { return nil, f.err }

func TestSinkUploadsOnFinish(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	sink := store.NewSink(mem, "docs/a.pdf")

	_, err := sink.Write([]byte("%PDF-"))
	require.NoError(t, err)
	_, err = sink.Write([]byte("1.7"))
	require.NoError(t, err)

	_, err = mem.Get(ctx, "docs/a.pdf")
	require.ErrorIs(t, err, store.ErrNotFound, "nothing is stored before Finish")

	asm, err := sink.Finish(ctx)
	require.NoError(t, err)
	assert.Equal(t, "memory://docs/a.pdf", asm.Location)
	assert.Equal(t, []byte("%PDF-1.7"), asm.Data)

	stored, err := mem.Get(ctx, "docs/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, asm.Data, stored)

	_, err = sink.Write([]byte("late"))
	require.ErrorIs(t, err, blob.ErrSinkClosed)
}

func TestSinkAbortSkipsUpload(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	sink := store.NewSink(mem, "k")
	_, _ = sink.Write([]byte("partial"))

	cause := errors.New("render failed")
	sink.Abort(cause)

	_, err := sink.Finish(ctx)
	require.ErrorIs(t, err, cause)
	_, err = mem.Get(ctx, "k")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSinkWrapsStoreErrors(t *testing.T) {
	cause := errors.New("bucket gone")
	sink := store.NewSink(failingStore{err: cause}, "k")
	_, err := sink.Finish(context.Background())
	require.ErrorIs(t, err, cause)
}

func TestFactoryGeneratesDistinctKeys(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	open := store.Factory(mem, "renders/")

	var locations []string
	for range 2 {
		sink, err := open(ctx)
		require.NoError(t, err)
		_, _ = sink.Write([]byte("x"))
		asm, err := sink.Finish(ctx)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(asm.Location, "memory://renders/"))
		assert.True(t, strings.HasSuffix(asm.Location, ".pdf"))
		locations = append(locations, asm.Location)
	}
	assert.NotEqual(t, locations[0], locations[1])

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := open(canceled)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewKey(t *testing.T) {
	key, err := store.NewKey("invoices/")
	require.NoError(t, err)
	require.Regexp(t, `^invoices/[0-9a-f]{32}\.pdf$`, key)

	other, err := store.NewKey("invoices/")
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}
