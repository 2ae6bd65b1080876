package migrate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Run(db))
	t.Cleanup(func() { Close(db) })
	return db
}

func TestRun_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, Run(db), "повторная миграция не должна падать")

	for _, m := range Models() {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}
	assert.True(t, db.Migrator().HasIndex(&PropertyView{}, "idx_property_views_unique"))
	assert.True(t, db.Migrator().HasIndex(&UserSubscription{}, "idx_user_subscriptions_one_active"))
}

func TestSchema_OneActiveSubscriptionPerUser(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.Create(&UserSubscription{UserID: 1, PlanID: 1, Status: "active"}).Error)
	assert.Error(t, db.Create(&UserSubscription{UserID: 1, PlanID: 2, Status: "active"}).Error)

	// неактивных может быть сколько угодно
	require.NoError(t, db.Create(&UserSubscription{UserID: 1, PlanID: 2, Status: "cancelled"}).Error)
	require.NoError(t, db.Create(&UserSubscription{UserID: 1, PlanID: 3, Status: "pending"}).Error)
	require.NoError(t, db.Create(&UserSubscription{UserID: 2, PlanID: 1, Status: "active"}).Error)
}

func TestSchema_PropertyViewUniquePerSubscription(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()

	require.NoError(t, db.Create(&PropertyView{UserID: 1, PropertyID: 10, SubscriptionID: 100, ViewedAt: now}).Error)
	assert.Error(t, db.Create(&PropertyView{UserID: 1, PropertyID: 10, SubscriptionID: 100, ViewedAt: now}).Error)

	// новая подписка открывает тот же объект заново
	require.NoError(t, db.Create(&PropertyView{UserID: 1, PropertyID: 10, SubscriptionID: 101, ViewedAt: now}).Error)
}

func TestSchema_MerchantTransactionIDUnique(t *testing.T) {
	db := setupTestDB(t)
	p := func() *Payment {
		return &Payment{
			UserID: 1, PlanID: 1, Amount: 599, GSTAmount: 108, TotalAmount: 707,
			MerchantTransactionID: "TRU_1_000001_ABCD",
			CallbackData:          datatypes.JSON(`{}`),
		}
	}
	require.NoError(t, db.Create(p()).Error)
	assert.Error(t, db.Create(p()).Error)
}
