package patch

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/udisondev/realmd/internal/constants"
)

// ErrTransferCancelled is the result of a transfer stopped before completion.
var ErrTransferCancelled = errors.New("patch transfer cancelled")

const xferDataHeaderSize = 3 // cmd + chunk size u16

// TransferOptions configures a Transfer.
type TransferOptions struct {
	// Delay between two XFER_DATA messages.
	Delay time.Duration
	// Send writes one XFER_DATA message. The slice is reused after Send
	// returns.
	Send func([]byte) error
	// Sent, if set, is called with the payload size of every chunk sent.
	Sent func(n int)
	// Finished, if set, is called from the transfer goroutine when it ends
	// with nil (all bytes sent), ErrTransferCancelled or a send/read error.
	Finished func(t *Transfer, err error)
}

// Transfer streams [pos, size) of a patch file in a background goroutine.
type Transfer struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// StartTransfer starts streaming src from pos up to size. A pos at or past
// size completes immediately without sending anything.
func StartTransfer(parent context.Context, src io.ReaderAt, pos, size int64, opts TransferOptions) *Transfer {
	ctx, cancel := context.WithCancel(parent)
	t := &Transfer{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(t.done)
		defer cancel()

		t.err = run(ctx, src, pos, size, opts)
		if opts.Finished != nil {
			opts.Finished(t, t.err)
		}
	}()

	return t
}

// Stop cancels the transfer and waits for its goroutine to exit.
// Stop must not be called from Finished.
func (t *Transfer) Stop() {
	t.cancel()
	<-t.done
}

// Done is closed when the transfer goroutine exits.
func (t *Transfer) Done() <-chan struct{} {
	return t.done
}

// Err returns the transfer result. Valid only after Done is closed.
func (t *Transfer) Err() error {
	return t.err
}

func run(ctx context.Context, src io.ReaderAt, pos, size int64, opts TransferOptions) error {
	buf := make([]byte, xferDataHeaderSize+constants.XferChunkSize)
	buf[0] = constants.CmdXferData

	for pos < size {
		if ctx.Err() != nil {
			return ErrTransferCancelled
		}

		n := int(min(size-pos, constants.XferChunkSize))
		binary.LittleEndian.PutUint16(buf[1:], uint16(n))

		if _, err := src.ReadAt(buf[xferDataHeaderSize:xferDataHeaderSize+n], pos); err != nil {
			return fmt.Errorf("reading patch at %d: %w", pos, err)
		}
		if err := opts.Send(buf[:xferDataHeaderSize+n]); err != nil {
			return fmt.Errorf("sending patch chunk: %w", err)
		}
		pos += int64(n)
		if opts.Sent != nil {
			opts.Sent(n)
		}

		if pos < size && opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return ErrTransferCancelled
			case <-time.After(opts.Delay):
			}
		}
	}
	return nil
}
