package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"amhaz-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func cartLines(t *testing.T, f *fixture, id Identity) []models.CartItem {
	t.Helper()
	cart, err := f.svc.Carts.Resolve(context.Background(), id)
	require.NoError(t, err)
	return cart.Items
}

func TestResolveCreatesSingleActiveCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := GuestIdentity("sess-1")

	first, err := f.svc.Carts.Resolve(ctx, guest)
	require.NoError(t, err)
	second, err := f.svc.Carts.Resolve(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var active int64
	require.NoError(t, f.db.Model(&models.Cart{}).Where("session_key = ? AND is_active = ?", "sess-1", true).Count(&active).Error)
	assert.EqualValues(t, 1, active)
}

func TestResolveRequiresIdentity(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Carts.Resolve(context.Background(), Identity{})
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestResolveUserTakesPrecedenceOverSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "user@test.com")
	p := f.product(t, "Olive Oil", "4.50", 5)

	_, err := f.svc.Carts.AddLine(ctx, GuestIdentity("sess-1"), p.ID, 2)
	require.NoError(t, err)

	both := Identity{UserID: &user.ID, SessionKey: "sess-1"}
	cart, err := f.svc.Carts.Resolve(ctx, both)
	require.NoError(t, err)
	require.NotNil(t, cart.UserID)
	assert.Equal(t, user.ID, *cart.UserID)
	assert.Empty(t, cart.Items, "guest lines are not carried over without a merge")
}

func TestAddLineTwiceIncrementsSingleRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := GuestIdentity("sess-1")
	p := f.product(t, "Olive Oil", "4.50", 5)

	count, err := f.svc.Carts.AddLine(ctx, guest, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	count, err = f.svc.Carts.AddLine(ctx, guest, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	lines := cartLines(t, f, guest)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestAddLineClampsToStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := GuestIdentity("sess-1")
	p := f.product(t, "Olive Oil", "4.50", 2)

	count, err := f.svc.Carts.AddLine(ctx, guest, p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = f.svc.Carts.AddLine(ctx, guest, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	lines := cartLines(t, f, guest)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestAddLineOutOfStock(t *testing.T) {
	f := newFixture(t)
	guest := GuestIdentity("sess-1")
	p := f.product(t, "Olive Oil", "4.50", 0)

	_, err := f.svc.Carts.AddLine(context.Background(), guest, p.ID, 1)
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Empty(t, cartLines(t, f, guest))
}

func TestAddLineUnknownProduct(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Carts.AddLine(context.Background(), GuestIdentity("sess-1"), uuid.New(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddLineRejectsZeroQuantity(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Olive Oil", "4.50", 3)
	_, err := f.svc.Carts.AddLine(context.Background(), GuestIdentity("sess-1"), p.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestSetLineQuantityBlockedAtStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := GuestIdentity("sess-1")
	p := f.product(t, "Olive Oil", "4.50", 2)
	_, err := f.svc.Carts.AddLine(ctx, guest, p.ID, 1)
	require.NoError(t, err)
	item := cartLines(t, f, guest)[0]

	result, err := f.svc.Carts.SetLineQuantity(ctx, guest, item.ID, +1)
	require.NoError(t, err)
	assert.False(t, result.Blocked)
	assert.Equal(t, 2, result.Quantity)
	assert.Equal(t, "9", result.CartTotal.String())

	result, err = f.svc.Carts.SetLineQuantity(ctx, guest, item.ID, +1)
	require.NoError(t, err)
	assert.True(t, result.Blocked)
	assert.Equal(t, 2, result.Quantity)
	assert.Equal(t, 2, result.MaxStock)
	assert.Equal(t, 2, cartLines(t, f, guest)[0].Quantity)
}

func TestSetLineQuantityDecrementToZeroRemoves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := GuestIdentity("sess-1")
	p := f.product(t, "Olive Oil", "4.50", 2)
	_, err := f.svc.Carts.AddLine(ctx, guest, p.ID, 1)
	require.NoError(t, err)
	item := cartLines(t, f, guest)[0]

	result, err := f.svc.Carts.SetLineQuantity(ctx, guest, item.ID, -1)
	require.NoError(t, err)
	assert.True(t, result.Removed)
	assert.True(t, result.CartTotal.IsZero())
	assert.Empty(t, cartLines(t, f, guest))
}

func TestSetLineQuantityRejectsOtherSteps(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Carts.SetLineQuantity(context.Background(), GuestIdentity("sess-1"), uuid.New(), 3)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCartLinesAreScopedToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := GuestIdentity("sess-owner")
	intruder := GuestIdentity("sess-intruder")
	p := f.product(t, "Olive Oil", "4.50", 5)
	_, err := f.svc.Carts.AddLine(ctx, owner, p.ID, 2)
	require.NoError(t, err)
	item := cartLines(t, f, owner)[0]

	_, err = f.svc.Carts.SetLineQuantity(ctx, intruder, item.ID, -1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.Carts.RemoveLine(ctx, intruder, item.ID), ErrNotFound)
	assert.Equal(t, 2, cartLines(t, f, owner)[0].Quantity)
}

func TestRemoveLineAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := GuestIdentity("sess-1")
	oil := f.product(t, "Olive Oil", "4.50", 5)
	zaatar := f.product(t, "Zaatar", "2.00", 5)
	_, err := f.svc.Carts.AddLine(ctx, guest, oil.ID, 1)
	require.NoError(t, err)
	_, err = f.svc.Carts.AddLine(ctx, guest, zaatar.ID, 3)
	require.NoError(t, err)

	lines := cartLines(t, f, guest)
	require.Len(t, lines, 2)
	require.NoError(t, f.svc.Carts.RemoveLine(ctx, guest, lines[0].ID))

	summary, err := f.svc.Carts.Get(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalItems)
	assert.Equal(t, "6.00", summary.TotalPrice.StringFixed(2))

	require.NoError(t, f.svc.Carts.Clear(ctx, guest))
	summary, err = f.svc.Carts.Get(ctx, guest)
	require.NoError(t, err)
	assert.Zero(t, summary.TotalItems)
}

func TestCartTotalFollowsLivePrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := GuestIdentity("sess-1")
	p := f.product(t, "Olive Oil", "4.50", 5)
	_, err := f.svc.Carts.AddLine(ctx, guest, p.ID, 2)
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", p.ID).Update("price", "5.00").Error)

	summary, err := f.svc.Carts.Get(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, "10.00", summary.TotalPrice.StringFixed(2))
}

func TestMergeGuestCartIntoUserCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "user@test.com")
	guest := GuestIdentity("sess-1")
	oil := f.product(t, "Olive Oil", "4.50", 3)
	zaatar := f.product(t, "Zaatar", "2.00", 5)

	_, err := f.svc.Carts.AddLine(ctx, UserIdentity(user.ID), oil.ID, 2)
	require.NoError(t, err)
	_, err = f.svc.Carts.AddLine(ctx, guest, oil.ID, 2)
	require.NoError(t, err)
	_, err = f.svc.Carts.AddLine(ctx, guest, zaatar.ID, 1)
	require.NoError(t, err)

	cart, err := f.svc.Carts.Merge(ctx, "sess-1", user.ID)
	require.NoError(t, err)

	quantities := map[string]int{}
	for _, item := range cart.Items {
		quantities[item.Product.Name] = item.Quantity
	}
	assert.Equal(t, map[string]int{"Olive Oil": 3, "Zaatar": 1}, quantities)

	var guestCarts []models.Cart
	require.NoError(t, f.db.Where("session_key = ?", "sess-1").Find(&guestCarts).Error)
	require.Len(t, guestCarts, 1)
	assert.False(t, guestCarts[0].IsActive)
}

func TestMergeLogsOnlyLinesThatMoved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	core, logs := observer.New(zap.InfoLevel)
	carts := NewCartService(f.db, zap.New(core))
	user := f.user(t, "user@test.com")
	guest := GuestIdentity("sess-1")
	oil := f.product(t, "Olive Oil", "4.50", 3)
	zaatar := f.product(t, "Zaatar", "2.00", 5)

	_, err := carts.AddLine(ctx, guest, oil.ID, 1)
	require.NoError(t, err)
	_, err = carts.AddLine(ctx, guest, zaatar.ID, 2)
	require.NoError(t, err)
	f.setStockDirect(t, zaatar.ID, 0)

	cart, err := carts.Merge(ctx, "sess-1", user.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)

	entries := logs.FilterMessage("guest cart merged").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 1, entries[0].ContextMap()["lines"])
}

func TestMergeWithoutGuestCart(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "user@test.com")

	cart, err := f.svc.Carts.Merge(context.Background(), "never-used", user.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, user.ID, *cart.UserID)
}

func TestConcurrentAddLineOnSameCart(t *testing.T) {
	f := newFixture(t)
	guest := GuestIdentity("sess-1")
	p := f.product(t, "Olive Oil", "4.50", 100)

	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			_, err := f.svc.Carts.AddLine(context.Background(), guest, p.ID, 1)
			return err
		})
	}
	require.NoError(t, g.Wait())

	lines := cartLines(t, f, guest)
	require.Len(t, lines, 1)
	assert.Equal(t, 10, lines[0].Quantity)

	var carts int64
	require.NoError(t, f.db.Model(&models.Cart{}).Where("session_key = ?", "sess-1").Count(&carts).Error)
	assert.EqualValues(t, 1, carts)
}

// A rival request creates the guest's cart between our lookup and our insert.
// The unique index rejects the second cart and the rival's cart is returned.
func TestResolveReturnsCartCreatedByRival(t *testing.T) {
	f := newFixture(t)
	rivalID := uuid.New()
	raced := false

	err := f.db.Callback().Query().After("gorm:query").Register("test:rival_cart", func(d *gorm.DB) {
		if raced || !errors.Is(d.Error, gorm.ErrRecordNotFound) {
			return
		}
		if _, ok := d.Statement.Dest.(*models.Cart); !ok {
			return
		}
		raced = true
		now := time.Now()
		_, execErr := d.Statement.ConnPool.ExecContext(d.Statement.Context,
			"INSERT INTO carts (id, session_key, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
			rivalID.String(), "sess-race", true, now, now)
		assert.NoError(t, execErr)
	})
	require.NoError(t, err)

	cart, err := f.svc.Carts.Resolve(context.Background(), GuestIdentity("sess-race"))
	require.NoError(t, err)
	require.True(t, raced)
	assert.Equal(t, rivalID, cart.ID)

	var carts int64
	require.NoError(t, f.db.Model(&models.Cart{}).Where("session_key = ?", "sess-race").Count(&carts).Error)
	assert.EqualValues(t, 1, carts)
}
