package main

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/wowsandek/scud-portal/internal/model"
	"github.com/wowsandek/scud-portal/pkg/config"
	"github.com/wowsandek/scud-portal/pkg/database"
	"github.com/wowsandek/scud-portal/pkg/logger"
)

// sampleStores are the unclaimed storefront slots created on first run.
var sampleStores = []string{
	"Coffee Corner",
	"Electro World",
	"Fashion Point",
	"Fresh Market",
	"Shoe Box",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logger.InitLogger(cfg)
	log := logger.GetLogger()

	db, err := database.Open(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close(db)

	if err := seedAdmin(db, log); err != nil {
		log.Fatal("Failed to seed admin account", zap.Error(err))
	}
	if err := seedStores(db, log); err != nil {
		log.Fatal("Failed to seed storefront slots", zap.Error(err))
	}

	log.Info("Seeding complete")
}

// seedAdmin creates the reserved administration account if it does not
// exist yet.
func seedAdmin(db *gorm.DB, log *zap.Logger) error {
	var count int64
	if err := db.Model(&model.Tenant{}).
		Where("name = ?", model.AdminTenantName).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Info("Admin account already present")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("adminpass"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	password := string(hash)

	admin := model.Tenant{
		Name:         model.AdminTenantName,
		PasswordHash: &password,
		APIKey:       uuid.NewString(),
		Status:       model.TenantStatusActive,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Info("Admin account created", zap.Uint("tenant_id", admin.ID))
	return nil
}

// seedStores creates sample unclaimed storefront slots, skipping names
// that already exist so the seeder is safe to run repeatedly.
func seedStores(db *gorm.DB, log *zap.Logger) error {
	for _, name := range sampleStores {
		var count int64
		if err := db.Model(&model.Tenant{}).
			Where("name = ?", name).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		store := model.Tenant{
			Name:   name,
			APIKey: uuid.NewString(),
			Status: model.TenantStatusActive,
		}
		if err := db.Create(&store).Error; err != nil {
			return err
		}
		log.Info("Storefront slot created", zap.String("name", name))
	}
	return nil
}
