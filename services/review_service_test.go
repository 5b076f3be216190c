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

func newReviewService(t *testing.T) (*services.ReviewService, *gorm.DB) {
	db := newTestDB(t)
	return services.NewReviewService(db), db
}

func reviewRequest(rating int) services.ReviewRequest {
	return services.ReviewRequest{Rating: rating, Title: "Title", Comment: "Comment"}
}

func TestCreateReviewRecomputesProductRating(t *testing.T) {
	svc, db := newReviewService(t)
	alice := seedUser(t, db, "alice@example.com")
	bob := seedUser(t, db, "bob@example.com")
	category := seedCategory(t, db, "Electronics")
	product := seedProduct(t, db, category.ID, "Phone", 100, 10)

	_, err := svc.Create(context.Background(), alice.ID, product.ID, reviewRequest(5))
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), bob.ID, product.ID, reviewRequest(2))
	require.NoError(t, err)

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, product.ID).Error)
	assert.InDelta(t, 3.5, reloaded.AverageRating, 0.001)
	assert.Equal(t, 2, reloaded.RatingCount)
}

func TestCreateReviewOnePerUserPerProduct(t *testing.T) {
	svc, db := newReviewService(t)
	user := seedUser(t, db, "alice@example.com")
	category := seedCategory(t, db, "Electronics")
	product := seedProduct(t, db, category.ID, "Phone", 100, 10)

	_, err := svc.Create(context.Background(), user.ID, product.ID, reviewRequest(4))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), user.ID, product.ID, reviewRequest(5))
	require.Error(t, err)
	assert.Equal(t, 409, apperr.From(err).Code)
}

func TestCreateReviewVerifiedPurchaseFlag(t *testing.T) {
	svc, db := newReviewService(t)
	buyer := seedUser(t, db, "buyer@example.com")
	browser := seedUser(t, db, "browser@example.com")
	category := seedCategory(t, db, "Electronics")
	product := seedProduct(t, db, category.ID, "Phone", 100, 10)

	orderSvc := services.NewOrderService(db, nil, nil, testLogger(t))
	order, err := orderSvc.CreateOrder(context.Background(), buyer.ID, &services.CreateOrderRequest{
		Items:           []services.OrderItemRequest{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: shippingFixture(),
		PaymentMethod:   "credit_card",
	})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("payment_status", models.PaymentStatusCompleted).Error)

	verified, err := svc.Create(context.Background(), buyer.ID, product.ID, reviewRequest(5))
	require.NoError(t, err)
	assert.True(t, verified.IsVerifiedPurchase)

	unverified, err := svc.Create(context.Background(), browser.ID, product.ID, reviewRequest(3))
	require.NoError(t, err)
	assert.False(t, unverified.IsVerifiedPurchase)
}

func TestCreateReviewRejectsInactiveProduct(t *testing.T) {
	svc, db := newReviewService(t)
	user := seedUser(t, db, "alice@example.com")
	category := seedCategory(t, db, "Electronics")
	product := seedProduct(t, db, category.ID, "Ghost", 100, 10)
	require.NoError(t, db.Model(product).Update("is_active", false).Error)

	_, err := svc.Create(context.Background(), user.ID, product.ID, reviewRequest(4))
	require.Error(t, err)
	assert.Equal(t, 404, apperr.From(err).Code)
}

func TestDeleteReviewOwnershipAndRecompute(t *testing.T) {
	svc, db := newReviewService(t)
	alice := seedUser(t, db, "alice@example.com")
	bob := seedUser(t, db, "bob@example.com")
	category := seedCategory(t, db, "Electronics")
	product := seedProduct(t, db, category.ID, "Phone", 100, 10)

	review, err := svc.Create(context.Background(), alice.ID, product.ID, reviewRequest(5))
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), bob.ID, product.ID, reviewRequest(1))
	require.NoError(t, err)

	// A stranger may not delete someone else's review; an admin may.
	err = svc.Delete(context.Background(), bob.ID, review.ID, false)
	require.Error(t, err)
	assert.Equal(t, 403, apperr.From(err).Code)

	require.NoError(t, svc.Delete(context.Background(), bob.ID, review.ID, true))

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, product.ID).Error)
	assert.InDelta(t, 1.0, reloaded.AverageRating, 0.001)
	assert.Equal(t, 1, reloaded.RatingCount)

	err = svc.Delete(context.Background(), alice.ID, 9999, false)
	require.Error(t, err)
	assert.Equal(t, 404, apperr.From(err).Code)
}

func TestListReviewsPagination(t *testing.T) {
	svc, db := newReviewService(t)
	category := seedCategory(t, db, "Electronics")
	product := seedProduct(t, db, category.ID, "Phone", 100, 10)

	for i := 0; i < 5; i++ {
		user := seedUser(t, db, "user"+string(rune('a'+i))+"@example.com")
		_, err := svc.Create(context.Background(), user.ID, product.ID, reviewRequest(4))
		require.NoError(t, err)
	}

	reviews, pagination, err := svc.ListForProduct(context.Background(), product.ID, 1, 2)
	require.NoError(t, err)
	assert.Len(t, reviews, 2)
	assert.EqualValues(t, 5, pagination.TotalItems)
	assert.EqualValues(t, 3, pagination.TotalPages)
}
