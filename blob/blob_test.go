package blob_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/quire/blob"
)

func TestBufferAssemblesWritesInOrder(t *testing.T) {
	sink := blob.NewBuffer()
	for _, chunk := range []string{"%PDF-", "1.7\n", "%%EOF"} {
		_, err := sink.Write([]byte(chunk))
		require.NoError(t, err)
	}

	asm, err := sink.Finish(context.Background())
	require.NoError(t, err)

	b := asm.ToBlob(blob.MediaTypePDF)
	assert.Equal(t, blob.MediaTypePDF, b.Type)
	assert.Equal(t, "%PDF-1.7\n%%EOF", string(b.Bytes()))
	assert.Equal(t, len("%PDF-1.7\n%%EOF"), b.Size())

	data, err := io.ReadAll(b.Reader())
	require.NoError(t, err)
	assert.Equal(t, b.Bytes(), data)

	_, err = sink.Write([]byte("late"))
	assert.ErrorIs(t, err, blob.ErrSinkClosed)
}

func TestBufferAbortReportsError(t *testing.T) {
	boom := errors.New("boom")
	sink := blob.NewBuffer()
	_, _ = sink.Write([]byte("partial"))
	sink.Abort(boom)

	_, err := sink.Finish(context.Background())
	assert.Same(t, boom, err)
}

func TestBlobBytesAreCopies(t *testing.T) {
	src := []byte("abc")
	b := blob.New(src, "text/plain")
	src[0] = 'x'
	got := b.Bytes()
	got[1] = 'y'
	assert.Equal(t, "abc", string(b.Bytes()))
}
