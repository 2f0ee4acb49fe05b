package ledger

import (
	"context"
	"fmt"

	"github.com/roach88/hiscore/internal/model"
	"github.com/roach88/hiscore/internal/store"
)

// HasSkin reports whether player owns skinID. Unknown skins are never owned.
func (l *Ledger) HasSkin(ctx context.Context, player model.Address, skinID uint64) (bool, error) {
	return l.store.HasSkin(ctx, player, skinID)
}

// Skins returns the configured catalog.
func (l *Ledger) Skins() []Skin {
	out := make([]Skin, len(l.cfg.Skins))
	copy(out, l.cfg.Skins)
	return out
}

// GrantSkin unlocks a catalog skin.
//
// Granting a skin the player already owns is a no-op: Granted is false,
// nothing is charged and no event is emitted. In purchase mode the whole
// Payment is taken and must cover the skin's price.
func (l *Ledger) GrantSkin(ctx context.Context, grant model.SkinGrant) (model.SkinReceipt, error) {
	if _, ok := l.skins[grant.SkinID]; !ok {
		return model.SkinReceipt{}, model.NewValidationError(model.CodeUnknownSkin,
			fmt.Sprintf("skin %d is not in the catalog", grant.SkinID))
	}

	res, err := l.enqueue(ctx, request{kind: requestGrant, grant: grant})
	if err != nil {
		return model.SkinReceipt{}, err
	}
	return res.skinReceipt, nil
}

// processGrant runs one grant transaction.
// Called only from the Run goroutine.
func (l *Ledger) processGrant(ctx context.Context, grant model.SkinGrant) (model.SkinReceipt, error) {
	skin := l.skins[grant.SkinID]
	receipt := model.SkinReceipt{
		Player: grant.Player,
		SkinID: grant.SkinID,
		Events: []model.Event{},
	}

	var txID string
	seq := l.clock.Current() + 1

	err := l.store.WithTx(ctx, func(tx *store.Tx) error {
		owned, err := tx.HasSkin(ctx, grant.Player, grant.SkinID)
		if err != nil {
			return err
		}
		if owned {
			return nil
		}

		var price uint64
		if l.cfg.SkinMode == SkinModePurchase {
			price = skin.Price
			if grant.Payment < price {
				return model.NewInsufficientPayment(price, grant.Payment)
			}
		}

		txID = l.txIDs.Generate()
		if _, err := tx.GrantSkin(ctx, grant.Player, grant.SkinID, seq); err != nil {
			return err
		}
		if l.cfg.SkinMode == SkinModePurchase {
			if err := tx.RecordPurchase(ctx, txID, grant.Player, grant.SkinID, price, grant.Payment, seq); err != nil {
				return err
			}
			receipt.Charged = grant.Payment
		}

		ev, err := model.NewSkinGranted(seq, txID, grant.Player, grant.SkinID, price).WithID()
		if err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, ev); err != nil {
			return err
		}

		receipt.TxID = txID
		receipt.Granted = true
		receipt.Events = append(receipt.Events, ev)
		return nil
	})
	if err != nil {
		if e, ok := model.AsError(err); ok {
			l.logger.Debug("skin grant rejected",
				"player", grant.Player.Hex(),
				"skin_id", grant.SkinID,
				"code", e.Code,
			)
		} else {
			l.logger.Error("skin grant failed",
				"player", grant.Player.Hex(),
				"skin_id", grant.SkinID,
				"error", err,
			)
		}
		return model.SkinReceipt{}, err
	}

	if !receipt.Granted {
		l.logger.Debug("skin already owned", "player", grant.Player.Hex(), "skin_id", grant.SkinID)
		return receipt, nil
	}

	l.clock.Advance(1)
	l.logger.Info("skin granted",
		"tx_id", txID,
		"player", grant.Player.Hex(),
		"skin_id", grant.SkinID,
		"charged", receipt.Charged,
		"seq", seq,
	)
	return receipt, nil
}
