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

func newWishlistService(t *testing.T) (*services.WishlistService, *gorm.DB) {
	db := newTestDB(t)
	cart := services.NewCartService(db, testLogger(t))
	return services.NewWishlistService(db, cart), db
}

func TestWishlistAddAndDuplicate(t *testing.T) {
	svc, db := newWishlistService(t)
	user := seedUser(t, db, "wish@example.com")
	category := seedCategory(t, db, "Electronics")
	product := seedProduct(t, db, category.ID, "Phone", 100, 10)

	entry, err := svc.Add(context.Background(), user.ID, product.ID)
	require.NoError(t, err)
	require.NotNil(t, entry.Product)
	assert.Equal(t, product.ID, entry.Product.ID)

	_, err = svc.Add(context.Background(), user.ID, product.ID)
	require.Error(t, err)
	assert.Equal(t, 400, apperr.From(err).Code)
}

func TestWishlistAddRejectsInactiveProduct(t *testing.T) {
	svc, db := newWishlistService(t)
	user := seedUser(t, db, "wish@example.com")
	category := seedCategory(t, db, "Electronics")
	product := seedProduct(t, db, category.ID, "Ghost", 100, 10)
	require.NoError(t, db.Model(product).Update("is_active", false).Error)

	_, err := svc.Add(context.Background(), user.ID, product.ID)
	require.Error(t, err)
	assert.Equal(t, 404, apperr.From(err).Code)
}

func TestWishlistRemove(t *testing.T) {
	svc, db := newWishlistService(t)
	user := seedUser(t, db, "wish@example.com")
	category := seedCategory(t, db, "Electronics")
	product := seedProduct(t, db, category.ID, "Phone", 100, 10)

	_, err := svc.Add(context.Background(), user.ID, product.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Remove(context.Background(), user.ID, product.ID))

	err = svc.Remove(context.Background(), user.ID, product.ID)
	require.Error(t, err)
	assert.Equal(t, 404, apperr.From(err).Code)
}

func TestMoveToCartRemovesWishlistRow(t *testing.T) {
	svc, db := newWishlistService(t)
	user := seedUser(t, db, "wish@example.com")
	category := seedCategory(t, db, "Electronics")
	product := seedProduct(t, db, category.ID, "Phone", 100, 10)

	_, err := svc.Add(context.Background(), user.ID, product.ID)
	require.NoError(t, err)

	cart, err := svc.MoveToCart(context.Background(), user.ID, product.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)

	var count int64
	require.NoError(t, db.Model(&models.Wishlist{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestMoveToCartKeepsWishlistOnStockFailure(t *testing.T) {
	svc, db := newWishlistService(t)
	user := seedUser(t, db, "wish@example.com")
	category := seedCategory(t, db, "Electronics")
	product := seedProduct(t, db, category.ID, "Sold Out", 100, 0)

	_, err := svc.Add(context.Background(), user.ID, product.ID)
	require.NoError(t, err)

	_, err = svc.MoveToCart(context.Background(), user.ID, product.ID)
	require.Error(t, err)
	assert.Equal(t, 400, apperr.From(err).Code)

	var count int64
	require.NoError(t, db.Model(&models.Wishlist{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestMoveToCartRollsBackBothSides(t *testing.T) {
	svc, db := newWishlistService(t)
	user := seedUser(t, db, "wish@example.com")
	category := seedCategory(t, db, "Electronics")
	product := seedProduct(t, db, category.ID, "Sold Out", 100, 0)

	_, err := svc.Add(context.Background(), user.ID, product.ID)
	require.NoError(t, err)

	_, err = svc.MoveToCart(context.Background(), user.ID, product.ID)
	require.Error(t, err)

	// Neither side of the move survives a failed add.
	var wishlistRows, cartRows int64
	require.NoError(t, db.Model(&models.Wishlist{}).Where("user_id = ?", user.ID).Count(&wishlistRows).Error)
	require.NoError(t, db.Model(&models.CartItem{}).Count(&cartRows).Error)
	assert.EqualValues(t, 1, wishlistRows)
	assert.Zero(t, cartRows)
}

func TestMoveToCartUnknownProduct(t *testing.T) {
	svc, db := newWishlistService(t)
	user := seedUser(t, db, "wish@example.com")

	_, err := svc.MoveToCart(context.Background(), user.ID, 424242)
	require.Error(t, err)
	assert.Equal(t, 404, apperr.From(err).Code)
}
