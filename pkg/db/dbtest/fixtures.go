package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gtclicks/ledger-backend/pkg/db/models"
	"github.com/gtclicks/ledger-backend/pkg/enums"
)

// Seller is a photographer fixture with its user row.
type Seller struct {
	User         models.User
	Photographer models.Photographer
}

// CreateSeller inserts a user and photographer. An empty pixKey leaves the
// photographer without a payout key.
func CreateSeller(t testing.TB, db *gorm.DB, pixKey string) Seller {
	t.Helper()
	user := models.User{Email: fmt.Sprintf("seller-%s@example.com", uuid.NewString()[:8]), Name: "Seller"}
	mustCreate(t, db, &user)
	photographer := models.Photographer{UserID: user.ID, Username: "seller-" + user.ID.String()[:8]}
	if pixKey != "" {
		photographer.PixKey = &pixKey
	}
	mustCreate(t, db, &photographer)
	return Seller{User: user, Photographer: photographer}
}

// CreateBuyer inserts a buyer user.
func CreateBuyer(t testing.TB, db *gorm.DB) models.User {
	t.Helper()
	user := models.User{Email: fmt.Sprintf("buyer-%s@example.com", uuid.NewString()[:8]), Name: "Buyer"}
	mustCreate(t, db, &user)
	return user
}

// CreatePhoto inserts a photo owned by the photographer, optionally inside a
// new collection.
func CreatePhoto(t testing.TB, db *gorm.DB, photographerID uuid.UUID, title string, withCollection bool) models.Photo {
	t.Helper()
	photo := models.Photo{PhotographerID: photographerID, Title: title}
	if withCollection {
		collection := models.Collection{PhotographerID: photographerID, Title: title + " collection"}
		mustCreate(t, db, &collection)
		photo.CollectionID = &collection.ID
	}
	mustCreate(t, db, &photo)
	return photo
}

// CreatePendingOrder inserts a PENDING order with one item per photo/price
// pair and a total equal to the item sum.
func CreatePendingOrder(t testing.TB, db *gorm.DB, buyerID uuid.UUID, items map[uuid.UUID]string) models.Order {
	t.Helper()
	total := decimal.Zero
	for _, price := range items {
		total = total.Add(decimal.RequireFromString(price))
	}
	order := models.Order{BuyerID: buyerID, Total: total, Status: enums.OrderStatusPending}
	mustCreate(t, db, &order)
	for photoID, price := range items {
		item := models.OrderItem{OrderID: order.ID, PhotoID: photoID, PricePaid: decimal.RequireFromString(price)}
		mustCreate(t, db, &item)
	}
	return order
}

// CreateBalance seeds a balance row directly.
func CreateBalance(t testing.TB, db *gorm.DB, photographerID uuid.UUID, available, blocked string) {
	t.Helper()
	mustCreate(t, db, &models.Balance{
		PhotographerID: photographerID,
		Available:      decimal.RequireFromString(available),
		Blocked:        decimal.RequireFromString(blocked),
	})
}

func mustCreate(t testing.TB, db *gorm.DB, value any) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("create fixture %T: %v", value, err)
	}
}
