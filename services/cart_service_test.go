package services_test

import (
	"context"
	"testing"

	"commerce-api/apperr"
	"commerce-api/models"
	"commerce-api/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newCartService(t *testing.T) (*services.CartService, *gorm.DB) {
	db := newTestDB(t)
	return services.NewCartService(db, testLogger(t)), db
}

func TestGetCartReturnsEmptyPlaceholder(t *testing.T) {
	svc, db := newCartService(t)
	user := seedUser(t, db, "cart@example.com")

	cart, err := svc.GetCart(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, cart.UserID)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.TotalAmount)
}

func TestAddToCartComputesTotals(t *testing.T) {
	svc, db := newCartService(t)
	user := seedUser(t, db, "cart@example.com")
	category := seedCategory(t, db, "Electronics")
	phone := seedProduct(t, db, category.ID, "Phone", 499.99, 10)
	caseFor := seedProduct(t, db, category.ID, "Phone Case", 19.99, 50)

	_, err := svc.AddToCart(context.Background(), user.ID, phone.ID, 2)
	require.NoError(t, err)
	cart, err := svc.AddToCart(context.Background(), user.ID, caseFor.ID, 3)
	require.NoError(t, err)

	assert.InDelta(t, 2*499.99+3*19.99, cart.TotalAmount, 0.001)
	assert.Equal(t, 2, cart.ItemCount)
	assert.Len(t, cart.Items, 2)
}

func TestAddToCartMergesExistingLine(t *testing.T) {
	svc, db := newCartService(t)
	user := seedUser(t, db, "cart@example.com")
	category := seedCategory(t, db, "Electronics")
	product := seedProduct(t, db, category.ID, "Phone", 100, 10)

	_, err := svc.AddToCart(context.Background(), user.ID, product.ID, 2)
	require.NoError(t, err)
	cart, err := svc.AddToCart(context.Background(), user.ID, product.ID, 3)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.InDelta(t, 500.0, cart.TotalAmount, 0.001)
}

func TestAddToCartStockBoundaries(t *testing.T) {
	svc, db := newCartService(t)
	user := seedUser(t, db, "cart@example.com")
	category := seedCategory(t, db, "Electronics")
	product := seedProduct(t, db, category.ID, "Limited", 10, 5)

	// Requesting more than stock fails outright.
	_, err := svc.AddToCart(context.Background(), user.ID, product.ID, 6)
	require.Error(t, err)
	assert.Equal(t, 400, apperr.From(err).Code)

	// Exactly the stock succeeds.
	_, err = svc.AddToCart(context.Background(), user.ID, product.ID, 5)
	require.NoError(t, err)

	// One more on the same line exceeds stock again.
	_, err = svc.AddToCart(context.Background(), user.ID, product.ID, 1)
	require.Error(t, err)
	assert.Equal(t, 400, apperr.From(err).Code)
}

func TestAddToCartRejectsInactiveProduct(t *testing.T) {
	svc, db := newCartService(t)
	user := seedUser(t, db, "cart@example.com")
	category := seedCategory(t, db, "Electronics")
	product := seedProduct(t, db, category.ID, "Ghost", 10, 5)
	require.NoError(t, db.Model(product).Update("is_active", false).Error)

	_, err := svc.AddToCart(context.Background(), user.ID, product.ID, 1)
	require.Error(t, err)
	assert.Equal(t, 404, apperr.From(err).Code)
}

func TestUpdateItemZeroQuantityDeletesLine(t *testing.T) {
	svc, db := newCartService(t)
	user := seedUser(t, db, "cart@example.com")
	category := seedCategory(t, db, "Electronics")
	product := seedProduct(t, db, category.ID, "Phone", 100, 10)

	cart, err := svc.AddToCart(context.Background(), user.ID, product.ID, 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)

	require.NoError(t, svc.UpdateItem(context.Background(), user.ID, cart.Items[0].ID, 0))

	reloaded, err := svc.GetCart(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Items)
	assert.Zero(t, reloaded.TotalAmount)
	assert.Zero(t, reloaded.ItemCount)
}

func TestRemoveItemRecomputesTotals(t *testing.T) {
	svc, db := newCartService(t)
	user := seedUser(t, db, "cart@example.com")
	category := seedCategory(t, db, "Electronics")
	a := seedProduct(t, db, category.ID, "A", 30, 10)
	b := seedProduct(t, db, category.ID, "B", 20, 10)

	_, err := svc.AddToCart(context.Background(), user.ID, a.ID, 1)
	require.NoError(t, err)
	cart, err := svc.AddToCart(context.Background(), user.ID, b.ID, 2)
	require.NoError(t, err)

	var line models.CartItem
	require.NoError(t, db.Where("cart_id = ? AND product_id = ?", cart.ID, b.ID).First(&line).Error)
	require.NoError(t, svc.RemoveItem(context.Background(), user.ID, line.ID))

	reloaded, err := svc.GetCart(context.Background(), user.ID)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, reloaded.TotalAmount, 0.001)
	assert.Equal(t, 1, reloaded.ItemCount)
}

func TestRemoveItemUnknownLine(t *testing.T) {
	svc, db := newCartService(t)
	user := seedUser(t, db, "cart@example.com")
	category := seedCategory(t, db, "Electronics")
	product := seedProduct(t, db, category.ID, "Phone", 100, 10)

	_, err := svc.AddToCart(context.Background(), user.ID, product.ID, 1)
	require.NoError(t, err)

	err = svc.RemoveItem(context.Background(), user.ID, 9999)
	require.Error(t, err)
	assert.Equal(t, 404, apperr.From(err).Code)
}

func TestClearEmptiesCart(t *testing.T) {
	svc, db := newCartService(t)
	user := seedUser(t, db, "cart@example.com")
	category := seedCategory(t, db, "Electronics")
	product := seedProduct(t, db, category.ID, "Phone", 100, 10)

	_, err := svc.AddToCart(context.Background(), user.ID, product.ID, 3)
	require.NoError(t, err)
	require.NoError(t, svc.Clear(context.Background(), user.ID))

	cart, err := svc.GetCart(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.TotalAmount)
}

func TestMoveToWishlist(t *testing.T) {
	svc, db := newCartService(t)
	user := seedUser(t, db, "cart@example.com")
	category := seedCategory(t, db, "Electronics")
	product := seedProduct(t, db, category.ID, "Phone", 100, 10)

	cart, err := svc.AddToCart(context.Background(), user.ID, product.ID, 1)
	require.NoError(t, err)

	require.NoError(t, svc.MoveToWishlist(context.Background(), user.ID, cart.Items[0].ID))

	var wishCount int64
	require.NoError(t, db.Model(&models.Wishlist{}).
		Where("user_id = ? AND product_id = ?", user.ID, product.ID).
		Count(&wishCount).Error)
	assert.EqualValues(t, 1, wishCount)

	reloaded, err := svc.GetCart(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Items)
}

func TestGetCartHealsDriftedTotals(t *testing.T) {
	svc, db := newCartService(t)
	user := seedUser(t, db, "cart@example.com")
	category := seedCategory(t, db, "Electronics")
	product := seedProduct(t, db, category.ID, "Phone", 100, 10)

	cart, err := svc.AddToCart(context.Background(), user.ID, product.ID, 2)
	require.NoError(t, err)

	// Corrupt the denormalized totals directly.
	require.NoError(t, db.Model(&models.Cart{}).
		Where("id = ?", cart.ID).
		Updates(map[string]interface{}{"total_amount": 1.0, "item_count": 99}).Error)

	healed, err := svc.GetCart(context.Background(), user.ID)
	require.NoError(t, err)
	assert.InDelta(t, 200.0, healed.TotalAmount, 0.001)
	assert.Equal(t, 1, healed.ItemCount)
}
