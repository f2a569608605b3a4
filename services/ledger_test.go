package services

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"amhaz-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestLedgerRecordTruncatesReason(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Olive Oil", "4.50", 0)

	var movement *models.StockMovement
	err := f.db.Transaction(func(tx *gorm.DB) error {
		var err error
		movement, err = f.svc.Ledger.Record(tx, p.ID, 7, strings.Repeat("r", 250))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, models.MaxMovementReasonLength, utf8.RuneCountInString(movement.Reason))
	assert.Equal(t, 7, f.ledgerSum(t, p.ID))
}

func TestLedgerRecordTruncatesMultiByteReasonOnCharacters(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Olive Oil", "4.50", 0)

	var movement *models.StockMovement
	err := f.db.Transaction(func(tx *gorm.DB) error {
		var err error
		movement, err = f.svc.Ledger.Record(tx, p.ID, 2, strings.Repeat("زيت ", 40))
		return err
	})
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(movement.Reason))
	assert.Equal(t, models.MaxMovementReasonLength, utf8.RuneCountInString(movement.Reason))

	var stored models.StockMovement
	require.NoError(t, f.db.First(&stored, "id = ?", movement.ID).Error)
	assert.Equal(t, movement.Reason, stored.Reason)
}

func TestLedgerEntriesAreImmutable(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Olive Oil", "4.50", 3)

	var movement models.StockMovement
	require.NoError(t, f.db.Where("product_id = ?", p.ID).First(&movement).Error)

	err := f.db.Model(&movement).Update("change", 100).Error
	assert.ErrorIs(t, err, models.ErrImmutableMovement)

	err = f.db.Delete(&movement).Error
	assert.ErrorIs(t, err, models.ErrImmutableMovement)

	assert.Equal(t, 3, f.ledgerSum(t, p.ID))
}

func TestLedgerListFiltersByProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	oil := f.product(t, "Olive Oil", "4.50", 3)
	zaatar := f.product(t, "Zaatar", "2.00", 5)
	_, err := f.svc.Stock.RemoveStock(ctx, oil.ID, 1, "Damaged")
	require.NoError(t, err)

	movements, err := f.svc.Ledger.List(ctx, MovementFilter{ProductID: &oil.ID})
	require.NoError(t, err)
	require.Len(t, movements, 2)
	for _, m := range movements {
		assert.Equal(t, oil.ID, m.ProductID)
		require.NotNil(t, m.Product)
		assert.Equal(t, "Olive Oil", m.Product.Name)
	}

	all, err := f.svc.Ledger.List(ctx, MovementFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	sum, err := f.svc.Ledger.Sum(ctx, zaatar.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, sum)
}
