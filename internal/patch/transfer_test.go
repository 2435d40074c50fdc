package patch

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/realmd/internal/constants"
	"github.com/udisondev/realmd/internal/testutil"
)

// collector собирает XFER_DATA сообщения.
type collector struct {
	mu     sync.Mutex
	chunks [][]byte
}

func (c *collector) send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunks = append(c.chunks, bytes.Clone(b))
	return nil
}

func (c *collector) payload(t *testing.T) []byte {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []byte
	for _, ch := range c.chunks {
		require.GreaterOrEqual(t, len(ch), 3)
		require.Equal(t, byte(constants.CmdXferData), ch[0])
		n := int(binary.LittleEndian.Uint16(ch[1:]))
		require.Equal(t, n, len(ch)-3)
		require.LessOrEqual(t, n, constants.XferChunkSize)
		out = append(out, ch[3:]...)
	}
	return out
}

func testFile(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func TestTransfer_Complete(t *testing.T) {
	data := testFile(3*constants.XferChunkSize + 123)
	var c collector
	var sent atomic.Int64
	finished := make(chan error, 1)

	tr := StartTransfer(context.Background(), bytes.NewReader(data), 0, int64(len(data)), TransferOptions{
		Send:     c.send,
		Sent:     func(n int) { sent.Add(int64(n)) },
		Finished: func(_ *Transfer, err error) { finished <- err },
	})

	select {
	case <-tr.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("transfer did not finish")
	}
	assert.NoError(t, tr.Err())
	assert.NoError(t, <-finished)
	assert.Len(t, c.chunks, 4)
	assert.Equal(t, data, c.payload(t))
	assert.Equal(t, int64(len(data)), sent.Load())
}

func TestTransfer_Resume(t *testing.T) {
	data := testFile(10000)
	var c collector

	tr := StartTransfer(context.Background(), bytes.NewReader(data), 5000, int64(len(data)), TransferOptions{Send: c.send})
	<-tr.Done()

	require.NoError(t, tr.Err())
	assert.Equal(t, data[5000:], c.payload(t))
}

func TestTransfer_ResumePastEnd(t *testing.T) {
	data := testFile(100)
	var c collector

	tr := StartTransfer(context.Background(), bytes.NewReader(data), 500, int64(len(data)), TransferOptions{Send: c.send})
	<-tr.Done()

	assert.NoError(t, tr.Err())
	assert.Empty(t, c.chunks)
}

func TestTransfer_Stop(t *testing.T) {
	data := testFile(100 * constants.XferChunkSize)
	var c collector

	tr := StartTransfer(context.Background(), bytes.NewReader(data), 0, int64(len(data)), TransferOptions{
		Delay: 50 * time.Millisecond,
		Send:  c.send,
	})

	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.chunks) >= 1
	}, time.Second, time.Millisecond)

	tr.Stop()
	assert.ErrorIs(t, tr.Err(), ErrTransferCancelled)

	c.mu.Lock()
	n := len(c.chunks)
	c.mu.Unlock()
	time.Sleep(120 * time.Millisecond)
	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, n, len(c.chunks), "no chunks after Stop returns")
}

func TestTransfer_SendError(t *testing.T) {
	data := testFile(2 * constants.XferChunkSize)

	tr := StartTransfer(context.Background(), bytes.NewReader(data), 0, int64(len(data)), TransferOptions{
		Send: func([]byte) error { return testutil.ErrSimulated },
	})
	<-tr.Done()
	assert.True(t, errors.Is(tr.Err(), testutil.ErrSimulated))
}

func TestTransfer_ShortFile(t *testing.T) {
	data := testFile(100)
	var c collector

	tr := StartTransfer(context.Background(), bytes.NewReader(data), 0, 200, TransferOptions{Send: c.send})
	<-tr.Done()
	assert.Error(t, tr.Err())
}
