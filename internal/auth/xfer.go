package auth

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/udisondev/realmd/internal/auth/clientpackets"
	"github.com/udisondev/realmd/internal/patch"
)

// handleXferAccept starts the offered patch from the beginning.
func (h *Handler) handleXferAccept(_ context.Context, s *Session, _ []byte) error {
	return h.startTransfer(s, 0)
}

// handleXferResume continues the offered patch from the client's offset.
func (h *Handler) handleXferResume(_ context.Context, s *Session, msg []byte) error {
	p, err := clientpackets.ParseXferResume(msg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return h.startTransfer(s, int64(min(p.Pos, uint64(1<<62))))
}

// handleXferCancel drops the connection.
func (h *Handler) handleXferCancel(_ context.Context, s *Session, _ []byte) error {
	s.logger().Info("patch transfer cancelled by client")
	s.Close()
	return ErrTransferCancelled
}

func (h *Handler) startTransfer(s *Session, pos int64) error {
	log := s.logger()

	opts := patch.TransferOptions{
		Delay: h.cfg.PatchDelay(),
		Send:  s.Send,
		Sent:  h.metrics.RecordPatchBytes,
		Finished: func(_ *patch.Transfer, err error) {
			switch {
			case err == nil:
				log.Info("patch transfer complete")
			case errors.Is(err, patch.ErrTransferCancelled):
				log.Debug("patch transfer stopped")
			default:
				log.Warn("patch transfer failed", "err", err)
			}
		},
	}
	reopen := func() (*os.File, error) {
		f, _, err := h.patches.Open(s.build, s.locale)
		return f, err
	}

	if err := s.startTransfer(pos, opts, reopen); err != nil {
		return fmt.Errorf("starting patch transfer at %d: %w", pos, err)
	}
	log.Info("patch transfer started", "pos", pos)
	return nil
}
