package ledger

import (
	"context"
	"fmt"

	"github.com/roach88/hiscore/internal/ethsig"
	"github.com/roach88/hiscore/internal/model"
	"github.com/roach88/hiscore/internal/store"
)

// Submit records a score. The submission passes, in order: signature check,
// freshness check, nonce check, zero-score check, and best-score comparison.
// The first failing step decides the returned *model.Error and nothing is
// written. On success the nonce, the registry entry, the new best score and
// the events commit together.
//
// A submission without Auth is only admitted when Config.LegacySubmit is set
// and skips the first three steps.
func (l *Ledger) Submit(ctx context.Context, sub model.Submission) (model.Receipt, error) {
	if sub.Score > model.MaxLedgerScore {
		return model.Receipt{}, model.NewValidationError(model.CodeInvalidScore,
			fmt.Sprintf("score %d exceeds %d", sub.Score, model.MaxLedgerScore))
	}

	res, err := l.enqueue(ctx, request{kind: requestSubmit, submission: sub})
	if err != nil {
		return model.Receipt{}, err
	}
	return res.receipt, nil
}

// processSubmit runs the submission state machine.
// Called only from the Run goroutine.
func (l *Ledger) processSubmit(ctx context.Context, sub model.Submission) (model.Receipt, error) {
	if sub.Authenticated() {
		if err := l.verifyAuthorization(sub); err != nil {
			l.reject(sub, err)
			return model.Receipt{}, err
		}
	} else if !l.cfg.LegacySubmit {
		l.reject(sub, model.ErrLegacySubmitDisabled)
		return model.Receipt{}, model.ErrLegacySubmitDisabled
	}

	txID := l.txIDs.Generate()
	base := l.clock.Current()
	receipt := model.Receipt{
		TxID:   txID,
		Player: sub.Player,
		Score:  sub.Score,
		Events: []model.Event{},
	}

	err := l.store.WithTx(ctx, func(tx *store.Tx) error {
		if sub.Authenticated() {
			used, err := tx.NonceUsed(ctx, sub.Auth.Nonce)
			if err != nil {
				return err
			}
			if used {
				return model.ErrNonceAlreadyUsed
			}
		}

		if sub.Score == 0 {
			return model.ErrZeroScoreRejected
		}

		rec, found, err := tx.Player(ctx, sub.Player)
		if err != nil {
			return err
		}
		if found && sub.Score <= rec.BestScore {
			return model.NewScoreNotHigher(rec.BestScore, sub.Score)
		}

		seq := base
		var events []model.Event
		if !found {
			idx, err := tx.NextRegistryIndex(ctx)
			if err != nil {
				return err
			}
			seq++
			rec = model.PlayerRecord{Address: sub.Player, BestScore: sub.Score, RegistryIndex: idx}
			if err := tx.InsertPlayer(ctx, rec, seq); err != nil {
				return err
			}
			events = append(events, model.NewFirstAppearance(seq, txID, sub.Player, sub.Score))
			receipt.FirstAppearance = true
		} else {
			receipt.PreviousBest = rec.BestScore
			if err := tx.RaiseBestScore(ctx, sub.Player, sub.Score, seq+1); err != nil {
				return err
			}
		}

		seq++
		events = append(events, model.NewScoreImproved(seq, txID, sub.Player, sub.Score, receipt.PreviousBest))

		// Registered above, so the foreign key holds.
		if sub.Authenticated() {
			if err := tx.ConsumeNonce(ctx, sub.Auth.Nonce, sub.Player, txID, seq); err != nil {
				return err
			}
		}

		for _, ev := range events {
			stamped, err := ev.WithID()
			if err != nil {
				return err
			}
			if err := tx.AppendEvent(ctx, stamped); err != nil {
				return err
			}
			receipt.Events = append(receipt.Events, stamped)
		}
		receipt.Seq = seq
		return nil
	})
	if err != nil {
		l.reject(sub, err)
		return model.Receipt{}, err
	}

	l.clock.Advance(len(receipt.Events))

	l.logger.Info("score committed",
		"tx_id", txID,
		"player", sub.Player.Hex(),
		"score", sub.Score,
		"previous_best", receipt.PreviousBest,
		"first_appearance", receipt.FirstAppearance,
		"seq", receipt.Seq,
	)
	return receipt, nil
}

// verifyAuthorization runs the stateless steps: signer recovery, then freshness.
func (l *Ledger) verifyAuthorization(sub model.Submission) error {
	if l.cfg.TrustedSigner.IsZero() {
		return model.ErrSignerNotConfigured
	}

	auth := sub.Auth
	sig, err := ethsig.ParseSignature(auth.Signature)
	if err != nil {
		return model.ErrInvalidSignature
	}

	payload := ethsig.PayloadHash(sub.Player, sub.Score, auth.Timestamp, auth.Nonce)
	signer, err := ethsig.RecoverPayloadSigner(payload, sig)
	if err != nil || signer != l.cfg.TrustedSigner {
		return model.ErrInvalidSignature
	}

	now := l.wall.Now().Unix()
	if now > auth.Timestamp+int64(l.cfg.SignatureWindow.Seconds()) {
		return model.ErrSignatureExpired
	}
	return nil
}

// reject logs a refused submission. Domain rejections are routine and go to
// debug; anything else is an infrastructure failure.
func (l *Ledger) reject(sub model.Submission, err error) {
	if e, ok := model.AsError(err); ok {
		l.logger.Debug("submission rejected",
			"player", sub.Player.Hex(),
			"score", sub.Score,
			"code", e.Code,
			"kind", e.Kind,
		)
		return
	}
	l.logger.Error("submission failed",
		"player", sub.Player.Hex(),
		"score", sub.Score,
		"error", err,
	)
}
