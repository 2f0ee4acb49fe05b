package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hiscore/internal/model"
)

func purchaseMode(c *Config) {
	c.SkinMode = SkinModePurchase
	c.Skins = []Skin{{ID: 1, Name: "jesse", Price: 500}, {ID: 2, Name: "gold", Price: 1000}}
}

func TestGrantSkin_Claim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owned, err := f.ledger.HasSkin(ctx, player1, 1)
	require.NoError(t, err)
	assert.False(t, owned)

	receipt, err := f.ledger.GrantSkin(ctx, model.SkinGrant{Player: player1, SkinID: 1})
	require.NoError(t, err)
	assert.True(t, receipt.Granted)
	assert.Equal(t, uint64(0), receipt.Charged)
	require.Len(t, receipt.Events, 1)
	assert.Equal(t, model.EventSkinGranted, receipt.Events[0].Kind)
	assert.Equal(t, model.Attrs{model.AttrSkinID: 1, model.AttrPrice: 0}, receipt.Events[0].Attrs)

	owned, err = f.ledger.HasSkin(ctx, player1, 1)
	require.NoError(t, err)
	assert.True(t, owned)

	// Skins are independent of scores.
	assert.Equal(t, uint64(0), f.playerCount(t))
}

func TestGrantSkin_RegrantIsSilentNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.GrantSkin(ctx, model.SkinGrant{Player: player1, SkinID: 1})
	require.NoError(t, err)
	seq := f.ledger.Seq()

	receipt, err := f.ledger.GrantSkin(ctx, model.SkinGrant{Player: player1, SkinID: 1})
	require.NoError(t, err)
	assert.False(t, receipt.Granted)
	assert.Empty(t, receipt.TxID)
	assert.Empty(t, receipt.Events)
	assert.Equal(t, seq, f.ledger.Seq())
}

func TestGrantSkin_UnknownSkin(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.GrantSkin(context.Background(), model.SkinGrant{Player: player1, SkinID: 42})
	require.ErrorIs(t, err, model.ErrUnknownSkin)
	assert.True(t, model.IsKind(err, model.KindValidation))
}

func TestGrantSkin_PurchaseRequiresPayment(t *testing.T) {
	f := newFixture(t, purchaseMode)
	ctx := context.Background()

	_, err := f.ledger.GrantSkin(ctx, model.SkinGrant{Player: player1, SkinID: 2, Payment: 999})
	require.ErrorIs(t, err, model.ErrInsufficientPayment)
	e, _ := model.AsError(err)
	assert.Equal(t, uint64(1000), e.Current)
	assert.Equal(t, uint64(999), e.Submitted)

	owned, err := f.ledger.HasSkin(ctx, player1, 2)
	require.NoError(t, err)
	assert.False(t, owned)

	purchases, err := f.store.ReadPurchases(ctx)
	require.NoError(t, err)
	assert.Empty(t, purchases)
}

func TestGrantSkin_PurchaseRecordsTrail(t *testing.T) {
	f := newFixture(t, purchaseMode)
	ctx := context.Background()

	receipt, err := f.ledger.GrantSkin(ctx, model.SkinGrant{Player: player1, SkinID: 1, Payment: 600})
	require.NoError(t, err)
	assert.True(t, receipt.Granted)
	assert.Equal(t, uint64(600), receipt.Charged)
	assert.Equal(t, uint64(500), receipt.Events[0].Attrs[model.AttrPrice])

	purchases, err := f.store.ReadPurchases(ctx)
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, receipt.TxID, purchases[0].TxID)
	assert.Equal(t, uint64(500), purchases[0].Price)
	assert.Equal(t, uint64(600), purchases[0].Payment)

	// Owned: no second charge, even with payment attached.
	again, err := f.ledger.GrantSkin(ctx, model.SkinGrant{Player: player1, SkinID: 1, Payment: 600})
	require.NoError(t, err)
	assert.False(t, again.Granted)
	assert.Equal(t, uint64(0), again.Charged)

	purchases, err = f.store.ReadPurchases(ctx)
	require.NoError(t, err)
	assert.Len(t, purchases, 1)
}

func TestSkins_ReturnsCopy(t *testing.T) {
	f := newFixture(t)

	skins := f.ledger.Skins()
	require.Len(t, skins, 1)
	skins[0].Name = "changed"
	assert.Equal(t, "jesse", f.ledger.Skins()[0].Name)
}
