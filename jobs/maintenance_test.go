package jobs_test

import (
	"context"
	"testing"
	"time"

	"commerce-api/jobs"
	"commerce-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newJobsDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.Payment{},
	))
	return db
}

type recordingMaintenanceNotifier struct {
	lowStock  []uint
	reminders []uint
}

func (r *recordingMaintenanceNotifier) SendLowStockAlert(_ context.Context, product *models.Product) {
	r.lowStock = append(r.lowStock, product.ID)
}

func (r *recordingMaintenanceNotifier) SendAbandonedCartReminder(_ context.Context, userID uint) {
	r.reminders = append(r.reminders, userID)
}

type recordingAlerter struct {
	events []interface{}
}

func (r *recordingAlerter) PublishInventoryAlert(data interface{}) {
	r.events = append(r.events, data)
}

func seedJobProduct(t *testing.T, db *gorm.DB, name string, stock int) *models.Product {
	t.Helper()
	category := models.Category{Name: name + " category", IsActive: true}
	require.NoError(t, db.Create(&category).Error)
	product := models.Product{
		Name:        name,
		Description: "test",
		Price:       10,
		CategoryID:  category.ID,
		Stock:       stock,
		IsActive:    true,
	}
	require.NoError(t, db.Create(&product).Error)
	return &product
}

func seedJobUser(t *testing.T, db *gorm.DB, email string, active bool) *models.User {
	t.Helper()
	user := models.User{Name: "Test", Email: email, Password: "x", Role: models.RoleCustomer, IsActive: active}
	require.NoError(t, db.Create(&user).Error)
	if !active {
		// IsActive carries default:true, so gorm drops the zero value from
		// the INSERT; flip it after the fact.
		require.NoError(t, db.Model(&user).Update("is_active", false).Error)
	}
	return &user
}

func TestCheckLowStockAlertsOnlyBelowThreshold(t *testing.T) {
	db := newJobsDB(t)
	notifier := &recordingMaintenanceNotifier{}
	alerter := &recordingAlerter{}
	m := jobs.NewMaintenance(db, nil, notifier, alerter, nil, nil, zap.NewNop())

	low := seedJobProduct(t, db, "Low", 3)
	seedJobProduct(t, db, "Plenty", 50)
	inactive := seedJobProduct(t, db, "Inactive", 1)
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)

	m.CheckLowStock(context.Background())

	assert.Equal(t, []uint{low.ID}, notifier.lowStock)
	assert.Len(t, alerter.events, 1)

	// Without a cache there is no suppression, so a second run alerts again.
	m.CheckLowStock(context.Background())
	assert.Len(t, notifier.lowStock, 2)
}

func TestSendAbandonedCartReminders(t *testing.T) {
	db := newJobsDB(t)
	notifier := &recordingMaintenanceNotifier{}
	m := jobs.NewMaintenance(db, nil, notifier, nil, nil, nil, zap.NewNop())

	idleUser := seedJobUser(t, db, "idle@example.com", true)
	freshUser := seedJobUser(t, db, "fresh@example.com", true)
	goneUser := seedJobUser(t, db, "gone@example.com", false)

	stale := time.Now().Add(-48 * time.Hour)
	for _, cart := range []models.Cart{
		{UserID: idleUser.ID, ItemCount: 2, TotalAmount: 40},
		{UserID: freshUser.ID, ItemCount: 1, TotalAmount: 10},
		{UserID: goneUser.ID, ItemCount: 1, TotalAmount: 10},
	} {
		require.NoError(t, db.Create(&cart).Error)
	}
	// Age the idle and deactivated users' carts past the idle threshold.
	require.NoError(t, db.Model(&models.Cart{}).
		Where("user_id IN ?", []uint{idleUser.ID, goneUser.ID}).
		Update("updated_at", stale).Error)

	m.SendAbandonedCartReminders(context.Background())

	assert.Equal(t, []uint{idleUser.ID}, notifier.reminders)
}

func TestCleanupExpiredCartsRestoresStock(t *testing.T) {
	db := newJobsDB(t)
	m := jobs.NewMaintenance(db, nil, nil, nil, nil, nil, zap.NewNop())

	user := seedJobUser(t, db, "expired@example.com", true)
	product := seedJobProduct(t, db, "Reserved", 5)

	past := time.Now().Add(-time.Hour)
	cart := models.Cart{UserID: user.ID, ExpiresAt: &past, TotalAmount: 30, ItemCount: 1}
	require.NoError(t, db.Create(&cart).Error)
	require.NoError(t, db.Create(&models.CartItem{
		CartID:    cart.ID,
		ProductID: product.ID,
		Quantity:  3,
		Price:     10,
	}).Error)

	// A live cart must not be touched.
	future := time.Now().Add(time.Hour)
	liveUser := seedJobUser(t, db, "live@example.com", true)
	liveCart := models.Cart{UserID: liveUser.ID, ExpiresAt: &future, TotalAmount: 10, ItemCount: 1}
	require.NoError(t, db.Create(&liveCart).Error)
	require.NoError(t, db.Create(&models.CartItem{
		CartID:    liveCart.ID,
		ProductID: product.ID,
		Quantity:  1,
		Price:     10,
	}).Error)

	cleaned := m.CleanupExpiredCarts(context.Background())
	assert.Equal(t, 1, cleaned)

	var reloadedProduct models.Product
	require.NoError(t, db.First(&reloadedProduct, product.ID).Error)
	assert.Equal(t, 8, reloadedProduct.Stock)

	var reloadedCart models.Cart
	require.NoError(t, db.First(&reloadedCart, cart.ID).Error)
	assert.Zero(t, reloadedCart.TotalAmount)
	assert.Zero(t, reloadedCart.ItemCount)

	var items int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("cart_id = ?", cart.ID).Count(&items).Error)
	assert.Zero(t, items)

	// Use a fresh struct: reloadedCart still holds the first cart's primary
	// key, which gorm would add as an extra WHERE condition.
	var reloadedLiveCart models.Cart
	require.NoError(t, db.First(&reloadedLiveCart, liveCart.ID).Error)
	assert.Equal(t, 1, reloadedLiveCart.ItemCount)

	// Emptied carts are skipped on the next sweep.
	assert.Zero(t, m.CleanupExpiredCarts(context.Background()))
}

func TestWeeklyReportSurvivesEmptyDatabase(t *testing.T) {
	db := newJobsDB(t)
	m := jobs.NewMaintenance(db, nil, nil, nil, nil, nil, zap.NewNop())
	m.WeeklyReport(context.Background())
}
