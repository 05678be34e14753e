package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/saudamarket/storefront-backend/internal/products"
	"github.com/saudamarket/storefront-backend/internal/promocodes"
	"github.com/saudamarket/storefront-backend/pkg/db/models"
	pkgerrors "github.com/saudamarket/storefront-backend/pkg/errors"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	for _, ddl := range []string{
		`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  sku TEXT NOT NULL,
  price NUMERIC NOT NULL,
  promotion_price NUMERIC,
  discount_price NUMERIC,
  has_promotion INTEGER NOT NULL DEFAULT 0,
  is_discount INTEGER NOT NULL DEFAULT 0,
  allow_promocode INTEGER NOT NULL DEFAULT 1,
  quantity INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE carts (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  session_token TEXT,
  expires_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE UNIQUE INDEX ux_carts_user_id ON carts (user_id) WHERE user_id IS NOT NULL;`,
		`CREATE UNIQUE INDEX ux_carts_session_token ON carts (session_token) WHERE session_token IS NOT NULL;`,
		`CREATE TABLE cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  price NUMERIC NOT NULL,
  applied_price NUMERIC NOT NULL,
  has_promotion INTEGER NOT NULL DEFAULT 0,
  allow_promocode INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (cart_id, product_id)
);`,
		`CREATE TABLE promocodes (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  discount_type TEXT NOT NULL,
  discount_value NUMERIC NOT NULL,
  min_order_amount NUMERIC NOT NULL DEFAULT 0,
  starts_at DATETIME,
  ends_at DATETIME,
  max_uses INTEGER NOT NULL DEFAULT 0,
  used_count INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	} {
		require.NoError(t, db.Exec(ddl).Error)
	}

	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newCartTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(
		NewRepository(db),
		gormTxRunner{db: db},
		products.NewRepository(db),
		promocodes.NewRepository(db),
		30*24*time.Hour,
	)
	require.NoError(t, err)
	return svc
}

func seedProduct(t *testing.T, db *gorm.DB, p models.Product) models.Product {
	t.Helper()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Name == "" {
		p.Name = "Widget"
	}
	if p.SKU == "" {
		p.SKU = "SKU-" + p.ID.String()[:8]
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestGetOrCreateAnonymousThenLoginKeepsItems(t *testing.T) {
	t.Parallel()

	db := setupCartTestDB(t)
	svc := newCartTestService(t, db)
	ctx := context.Background()

	product := seedProduct(t, db, models.Product{
		Price:    decimal.NewFromInt(500),
		Quantity: 10,
		IsActive: true,
	})

	empty := ""
	anon, err := svc.GetOrCreate(ctx, Identity{SessionToken: &empty})
	require.NoError(t, err)
	require.NotNil(t, anon.SessionToken)
	require.NotNil(t, anon.ExpiresAt)
	assert.True(t, anon.IsAnonymous())

	_, err = svc.AddItem(ctx, anon.ID, product.ID, 2)
	require.NoError(t, err)

	userID := uuid.New()
	merged, err := svc.GetOrCreate(ctx, Identity{UserID: &userID, SessionToken: anon.SessionToken})
	require.NoError(t, err)

	assert.Equal(t, anon.ID, merged.ID, "login must re-own the session cart, not create a new one")
	require.NotNil(t, merged.UserID)
	assert.Equal(t, userID, *merged.UserID)
	require.Len(t, merged.Items, 1)
	assert.Equal(t, 2, merged.Items[0].Quantity)
}

func TestGetOrCreateConflictWhenBothCartsHaveIdentity(t *testing.T) {
	t.Parallel()

	db := setupCartTestDB(t)
	svc := newCartTestService(t, db)
	ctx := context.Background()

	product := seedProduct(t, db, models.Product{
		Price:    decimal.NewFromInt(100),
		Quantity: 10,
		IsActive: true,
	})

	userID := uuid.New()
	userCart, err := svc.GetOrCreate(ctx, Identity{UserID: &userID})
	require.NoError(t, err)

	empty := ""
	anon, err := svc.GetOrCreate(ctx, Identity{SessionToken: &empty})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, anon.ID, product.ID, 1)
	require.NoError(t, err)

	_, err = svc.GetOrCreate(ctx, Identity{UserID: &userID, SessionToken: anon.SessionToken})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	// An empty session cart is no conflict; the user cart wins.
	emptyAnon, err := svc.GetOrCreate(ctx, Identity{SessionToken: &empty})
	require.NoError(t, err)
	got, err := svc.GetOrCreate(ctx, Identity{UserID: &userID, SessionToken: emptyAnon.SessionToken})
	require.NoError(t, err)
	assert.Equal(t, userCart.ID, got.ID)
}

func TestGetOrCreateExpiredSessionCartIsRetired(t *testing.T) {
	t.Parallel()

	db := setupCartTestDB(t)
	svc := newCartTestService(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	token := uuid.NewString()
	past := time.Now().Add(-time.Hour)
	stale, err := repo.Create(ctx, &models.Cart{SessionToken: &token, ExpiresAt: &past})
	require.NoError(t, err)

	fresh, err := svc.GetOrCreate(ctx, Identity{SessionToken: &token})
	require.NoError(t, err)
	assert.NotEqual(t, stale.ID, fresh.ID, "expired cart must not be resurrected")
	require.NotNil(t, fresh.SessionToken)
	assert.NotEqual(t, token, *fresh.SessionToken)

	_, err = repo.FindByID(ctx, stale.ID)
	assert.Error(t, err, "expired cart row is deleted")

	// On login an expired session cart is treated as absent.
	staleToken := uuid.NewString()
	_, err = repo.Create(ctx, &models.Cart{SessionToken: &staleToken, ExpiresAt: &past})
	require.NoError(t, err)
	userID := uuid.New()
	owned, err := svc.GetOrCreate(ctx, Identity{UserID: &userID, SessionToken: &staleToken})
	require.NoError(t, err)
	require.NotNil(t, owned.UserID)
	assert.Equal(t, userID, *owned.UserID)
	assert.NotEqual(t, staleToken, derefString(owned.SessionToken))
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func TestAddItemFoldsIntoExistingLine(t *testing.T) {
	t.Parallel()

	db := setupCartTestDB(t)
	svc := newCartTestService(t, db)
	ctx := context.Background()

	product := seedProduct(t, db, models.Product{
		Price:    decimal.NewFromInt(250),
		Quantity: 3,
		IsActive: true,
	})

	empty := ""
	cart, err := svc.GetOrCreate(ctx, Identity{SessionToken: &empty})
	require.NoError(t, err)

	cart, err = svc.AddItem(ctx, cart.ID, product.ID, 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)

	_, err = svc.AddItem(ctx, cart.ID, product.ID, 2)
	require.Error(t, err, "2+2 exceeds stock of 3")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	cart, err = svc.AddItem(ctx, cart.ID, product.ID, 1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
}

func TestAddItemRefreshesAppliedPrice(t *testing.T) {
	t.Parallel()

	db := setupCartTestDB(t)
	svc := newCartTestService(t, db)
	ctx := context.Background()

	product := seedProduct(t, db, models.Product{
		Price:    decimal.NewFromInt(1000),
		Quantity: 10,
		IsActive: true,
	})

	empty := ""
	cart, err := svc.GetOrCreate(ctx, Identity{SessionToken: &empty})
	require.NoError(t, err)

	cart, err = svc.AddItem(ctx, cart.ID, product.ID, 1)
	require.NoError(t, err)
	assert.True(t, cart.Items[0].AppliedPrice.Equal(decimal.NewFromInt(1000)))

	promo := decimal.NewFromInt(900)
	require.NoError(t, db.Model(&models.Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]any{"has_promotion": true, "promotion_price": promo}).Error)

	cart, err = svc.AddItem(ctx, cart.ID, product.ID, 1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.True(t, cart.Items[0].AppliedPrice.Equal(promo), "promotion must be picked up on re-add")
	assert.True(t, cart.Items[0].HasPromotion)
}

func TestAddItemInactiveProduct(t *testing.T) {
	t.Parallel()

	db := setupCartTestDB(t)
	svc := newCartTestService(t, db)
	ctx := context.Background()

	product := seedProduct(t, db, models.Product{
		Price:    decimal.NewFromInt(100),
		Quantity: 10,
		IsActive: false,
	})

	empty := ""
	cart, err := svc.GetOrCreate(ctx, Identity{SessionToken: &empty})
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, cart.ID, product.ID, 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateItemReappliesStockCheck(t *testing.T) {
	t.Parallel()

	db := setupCartTestDB(t)
	svc := newCartTestService(t, db)
	ctx := context.Background()

	product := seedProduct(t, db, models.Product{
		Price:    decimal.NewFromInt(100),
		Quantity: 5,
		IsActive: true,
	})

	empty := ""
	cart, err := svc.GetOrCreate(ctx, Identity{SessionToken: &empty})
	require.NoError(t, err)
	cart, err = svc.AddItem(ctx, cart.ID, product.ID, 1)
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	_, err = svc.UpdateItem(ctx, cart.ID, itemID, 6)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	cart, err = svc.UpdateItem(ctx, cart.ID, itemID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, cart.Items[0].Quantity)

	_, err = svc.UpdateItem(ctx, cart.ID, itemID, 0)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRemoveItemAndClear(t *testing.T) {
	t.Parallel()

	db := setupCartTestDB(t)
	svc := newCartTestService(t, db)
	ctx := context.Background()

	first := seedProduct(t, db, models.Product{Price: decimal.NewFromInt(100), Quantity: 5, IsActive: true})
	second := seedProduct(t, db, models.Product{Price: decimal.NewFromInt(200), Quantity: 5, IsActive: true})

	empty := ""
	cart, err := svc.GetOrCreate(ctx, Identity{SessionToken: &empty})
	require.NoError(t, err)
	cart, err = svc.AddItem(ctx, cart.ID, first.ID, 1)
	require.NoError(t, err)
	cart, err = svc.AddItem(ctx, cart.ID, second.ID, 1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)

	cart, err = svc.RemoveItem(ctx, cart.ID, cart.Items[0].ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)

	_, err = svc.RemoveItem(ctx, cart.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, svc.Clear(ctx, cart.ID))
	quote, err := svc.GetQuote(ctx, cart.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, quote.Cart.Items)
}

func TestGetQuoteWithFixedPromocode(t *testing.T) {
	t.Parallel()

	db := setupCartTestDB(t)
	svc := newCartTestService(t, db)
	ctx := context.Background()

	promoPrice := decimal.NewFromInt(900)
	discounted := seedProduct(t, db, models.Product{
		Price:          decimal.NewFromInt(1000),
		PromotionPrice: &promoPrice,
		HasPromotion:   true,
		Quantity:       10,
		IsActive:       true,
	})
	plain := seedProduct(t, db, models.Product{
		Price:    decimal.NewFromInt(500),
		Quantity: 10,
		IsActive: true,
	})

	code := models.Promocode{
		ID:             uuid.New(),
		Code:           "TAKE300",
		DiscountType:   "fixed",
		DiscountValue:  decimal.NewFromInt(300),
		MinOrderAmount: decimal.NewFromInt(1000),
		IsActive:       true,
	}
	require.NoError(t, db.Create(&code).Error)

	empty := ""
	cart, err := svc.GetOrCreate(ctx, Identity{SessionToken: &empty})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, cart.ID, discounted.ID, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, cart.ID, plain.ID, 1)
	require.NoError(t, err)

	quote, err := svc.GetQuote(ctx, cart.ID, &code.Code)
	require.NoError(t, err)

	assert.True(t, quote.Totals.Subtotal.Equal(decimal.NewFromInt(2300)), "subtotal %s", quote.Totals.Subtotal)
	assert.True(t, quote.Totals.Discount.Equal(decimal.NewFromInt(200)), "discount %s", quote.Totals.Discount)
	assert.True(t, quote.Totals.PromocodeDiscount.Equal(decimal.NewFromInt(300)))
	assert.True(t, quote.Totals.Total.Equal(decimal.NewFromInt(2000)), "total %s", quote.Totals.Total)
	assert.Equal(t, 3, quote.Totals.ItemsCount)

	missing := "NOPE"
	_, err = svc.GetQuote(ctx, cart.ID, &missing)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
