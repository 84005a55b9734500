package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/drstein77/cartview/internal/models"
	"github.com/drstein77/cartview/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type nopLog struct{}

func (nopLog) Info(string, ...zap.Field)  {}
func (nopLog) Error(string, ...zap.Field) {}

type fetcherMock struct {
	items []models.CartItem
	err   error
	calls int
}

func (f *fetcherMock) Fetch(ctx context.Context) ([]models.CartItem, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func exampleItems() []models.CartItem {
	return []models.CartItem{
		{ID: "1", Title: "Asgaard sofa", Image: "https://example.com/sofa.png", Price: 500000, Quantity: 2},
		{ID: "2", Title: "Side table", Image: "https://example.com/table.png", Price: 250000, Quantity: 1},
	}
}

func loadedView(t *testing.T, items []models.CartItem) *View {
	t.Helper()
	v := NewView("page-1", &fetcherMock{items: items}, nopLog{})
	require.NoError(t, v.Load(context.Background()))
	return v
}

func TestLoad_Populated(t *testing.T) {
	v := loadedView(t, exampleItems())

	snap := v.Snapshot()
	assert.Equal(t, StatusPopulated, snap.Status)
	require.Len(t, snap.Lines, 2)
	assert.Equal(t, "₹5000.00", money.Format(snap.Lines[0].Item.Price, money.DefaultSymbol))
	assert.Equal(t, "₹2500.00", money.Format(snap.Lines[1].Item.Price, money.DefaultSymbol))
	assert.Equal(t, "₹10000.00", money.Format(snap.Lines[0].Subtotal, money.DefaultSymbol))
	assert.Equal(t, "₹2500.00", money.Format(snap.Lines[1].Subtotal, money.DefaultSymbol))
	assert.Equal(t, "₹12500.00", money.Format(snap.Total, money.DefaultSymbol))
}

func TestLoad_Empty(t *testing.T) {
	v := loadedView(t, []models.CartItem{})

	snap := v.Snapshot()
	assert.Equal(t, StatusEmpty, snap.Status)
	assert.Empty(t, snap.Lines)
	assert.Equal(t, int64(0), snap.Total)
}

func TestLoad_FailureStaysLoading(t *testing.T) {
	fetchErr := errors.New("connection refused")
	f := &fetcherMock{err: fetchErr}
	v := NewView("page-1", f, nopLog{})

	err := v.Load(context.Background())
	assert.ErrorIs(t, err, fetchErr)
	assert.Equal(t, StatusLoading, v.Status())
	assert.Empty(t, v.Snapshot().Lines)

	// no retry
	assert.ErrorIs(t, v.Load(context.Background()), ErrAlreadyLoaded)
	assert.Equal(t, 1, f.calls)
}

func TestLoad_Twice(t *testing.T) {
	v := loadedView(t, exampleItems())
	assert.ErrorIs(t, v.Load(context.Background()), ErrAlreadyLoaded)
}

func TestSetQuantity_UpdatesOnlyThatLine(t *testing.T) {
	v := loadedView(t, exampleItems())

	require.NoError(t, v.SetQuantity("1", 3))

	snap := v.Snapshot()
	assert.Equal(t, 3, snap.Lines[0].Item.Quantity)
	assert.Equal(t, "₹15000.00", money.Format(snap.Lines[0].Subtotal, money.DefaultSymbol))
	assert.Equal(t, int64(250000), snap.Lines[1].Subtotal)
	assert.Equal(t, "₹17500.00", money.Format(snap.Total, money.DefaultSymbol))
}

func TestSetQuantity_Rejected(t *testing.T) {
	v := loadedView(t, exampleItems())

	assert.ErrorIs(t, v.SetQuantity("1", 0), ErrInvalidQuantity)
	assert.ErrorIs(t, v.SetQuantity("1", -4), ErrInvalidQuantity)
	assert.ErrorIs(t, v.SetQuantity("42", 2), ErrItemNotFound)

	snap := v.Snapshot()
	assert.Equal(t, 2, snap.Lines[0].Item.Quantity)
	assert.Equal(t, int64(1250000), snap.Total)
}

func TestSetQuantity_OutOfRange(t *testing.T) {
	v := loadedView(t, exampleItems())

	err := v.SetQuantity("1", 100000000000000000)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	snap := v.Snapshot()
	assert.Equal(t, 2, snap.Lines[0].Item.Quantity)
	assert.Equal(t, int64(1250000), snap.Total)
}

func TestSetQuantity_TotalOutOfRange(t *testing.T) {
	// Each subtotal fits in int64, the sum of them does not.
	v := loadedView(t, []models.CartItem{
		{ID: "1", Title: "Yacht", Price: 3000000000000000000, Quantity: 1},
		{ID: "2", Title: "Jet", Price: 3000000000000000000, Quantity: 1},
	})

	assert.ErrorIs(t, v.SetQuantity("1", 3), ErrInvalidQuantity)
	require.NoError(t, v.SetQuantity("1", 2))

	snap := v.Snapshot()
	assert.Equal(t, 2, snap.Lines[0].Item.Quantity)
	assert.Equal(t, int64(9000000000000000000), snap.Total)
}

func TestLoad_TotalOutOfRange(t *testing.T) {
	f := &fetcherMock{items: []models.CartItem{
		{ID: "1", Title: "Yacht", Price: 5000000000000000000, Quantity: 1},
		{ID: "2", Title: "Jet", Price: 5000000000000000000, Quantity: 1},
	}}
	v := NewView("page-1", f, nopLog{})

	err := v.Load(context.Background())
	assert.ErrorIs(t, err, money.ErrOverflow)
	assert.Equal(t, StatusLoading, v.Status())
	assert.Empty(t, v.Snapshot().Lines)
}

func TestSetQuantity_NotPopulated(t *testing.T) {
	v := NewView("page-1", &fetcherMock{}, nopLog{})
	assert.ErrorIs(t, v.SetQuantity("1", 2), ErrNotPopulated)

	empty := loadedView(t, nil)
	assert.ErrorIs(t, empty.SetQuantity("1", 2), ErrNotPopulated)
}

func TestRemove(t *testing.T) {
	v := loadedView(t, exampleItems())
	require.NoError(t, v.SetQuantity("1", 3))

	before := v.Snapshot()
	require.NoError(t, v.Remove("2"))
	after := v.Snapshot()

	assert.Len(t, after.Lines, len(before.Lines)-1)
	assert.Equal(t, before.Total-before.Lines[1].Subtotal, after.Total)
	assert.Equal(t, "₹15000.00", money.Format(after.Total, money.DefaultSymbol))
	assert.Equal(t, StatusPopulated, after.Status)
}

func TestRemove_LastItemEmptiesCart(t *testing.T) {
	v := loadedView(t, exampleItems())

	require.NoError(t, v.Remove("1"))
	require.NoError(t, v.Remove("2"))

	snap := v.Snapshot()
	assert.Equal(t, StatusEmpty, snap.Status)
	assert.Empty(t, snap.Lines)
	assert.Equal(t, int64(0), snap.Total)

	// no way back to populated
	assert.ErrorIs(t, v.Remove("1"), ErrNotPopulated)
	assert.ErrorIs(t, v.SetQuantity("1", 1), ErrNotPopulated)
}

func TestRemove_Unknown(t *testing.T) {
	v := loadedView(t, exampleItems())
	assert.ErrorIs(t, v.Remove("99"), ErrItemNotFound)
	assert.Len(t, v.Snapshot().Lines, 2)
}

func TestCheckout_NoStateChange(t *testing.T) {
	v := loadedView(t, exampleItems())
	before := v.Snapshot()

	assert.Equal(t, "Proceeding to checkout!", v.Checkout())
	assert.Equal(t, before, v.Snapshot())
}

func TestLoad_DoesNotAliasFetchedSlice(t *testing.T) {
	items := exampleItems()
	v := loadedView(t, items)

	require.NoError(t, v.SetQuantity("1", 7))
	assert.Equal(t, 2, items[0].Quantity)
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{raw: "3", want: 3},
		{raw: " 12 ", want: 12},
		{raw: "1", want: 1},
		{raw: "0", wantErr: true},
		{raw: "-2", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "2.5", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseQuantity(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidQuantity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSnapshotResponse(t *testing.T) {
	v := loadedView(t, exampleItems())

	resp := v.Snapshot().Response(money.DefaultSymbol)
	assert.Equal(t, "page-1", resp.PageID)
	assert.Equal(t, "populated", resp.Status)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "₹10000.00", resp.Items[0].SubtotalText)
	assert.Equal(t, resp.Total, resp.Subtotal)
	assert.Equal(t, "₹12500.00", resp.SubtotalText)
	assert.Equal(t, "₹12500.00", resp.TotalText)
}
