package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-tableorder/config"
	"github.com/yeremiapane/restaurant-tableorder/database"
	"github.com/yeremiapane/restaurant-tableorder/models"
	"github.com/yeremiapane/restaurant-tableorder/services"
	"github.com/yeremiapane/restaurant-tableorder/utils"
	"gorm.io/gorm"
)

var demoTables = []services.CreateTableInput{
	{Name: "A1", Zone: "indoor", Capacity: 2},
	{Name: "A2", Zone: "indoor", Capacity: 4},
	{Name: "A3", Zone: "indoor", Capacity: 4},
	{Name: "B1", Zone: "terrace", Type: models.TableTypeOutdoor, Capacity: 4},
	{Name: "V1", Zone: "first floor", Type: models.TableTypeVIP, Capacity: 8},
	{Name: "BAR", Zone: "bar", Type: models.TableTypeBar, Capacity: 6},
}

var demoMenu = map[string][][2]string{
	"Makanan": {{"Nasi Goreng", "35000"}, {"Mie Goreng", "32000"}, {"Sate Ayam", "40000"}},
	"Minuman": {{"Es Teh", "8000"}, {"Kopi Susu", "22000"}},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load config: %v", err)
	}
	utils.InitJWT(cfg.JWTSecret)

	db, err := config.InitDB(cfg.Database)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate: %v", err)
	}

	ctx := context.Background()
	tables := services.NewTableService(db)
	for _, in := range demoTables {
		var n int64
		db.Model(&models.Table{}).Where("name = ?", in.Name).Count(&n)
		if n > 0 {
			continue
		}
		t, err := tables.CreateTable(ctx, in)
		if err != nil {
			utils.ErrorLogger.Fatalf("create table %s: %v", in.Name, err)
		}
		fmt.Printf("table %-4s id=%d qr=%s\n", t.Name, t.ID, t.QRCode)
	}

	for name, items := range demoMenu {
		cat := models.Category{Name: name}
		if err := db.Where(models.Category{Name: name}).FirstOrCreate(&cat).Error; err != nil {
			utils.ErrorLogger.Fatalf("category %s: %v", name, err)
		}
		for _, it := range items {
			p := models.Product{
				CategoryID:  cat.ID,
				Name:        it[0],
				Price:       decimal.RequireFromString(it[1]),
				IsAvailable: true,
			}
			if err := db.Where(models.Product{Name: it[0]}).FirstOrCreate(&p).Error; err != nil {
				utils.ErrorLogger.Fatalf("product %s: %v", it[0], err)
			}
		}
	}

	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "changeme"
	}
	hashed, err := services.HashPassword(password)
	if err != nil {
		utils.ErrorLogger.Fatalf("hash seed password: %v", err)
	}

	for _, u := range []models.User{
		{Name: "Admin", Email: "admin@restaurant.local", Password: hashed, Role: models.RoleAdmin, IsActive: true},
		{Name: "Staff", Email: "staff@restaurant.local", Password: hashed, Role: models.RoleStaff, IsActive: true},
	} {
		user, err := ensureUser(db, u)
		if err != nil {
			utils.ErrorLogger.Fatalf("user %s: %v", u.Email, err)
		}
		token, err := utils.GenerateToken(user.ID, string(user.Role), 30*24*time.Hour)
		if err != nil {
			utils.ErrorLogger.Fatalf("token for %s: %v", u.Email, err)
		}
		fmt.Printf("%-5s token: %s\n", user.Role, token)
	}
	fmt.Println("seed complete")
}

func ensureUser(db *gorm.DB, u models.User) (models.User, error) {
	var existing models.User
	err := db.Where("email = ?", u.Email).First(&existing).Error
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return existing, err
	}
	return u, db.Create(&u).Error
}
