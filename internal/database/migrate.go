package database

import (
	"github.com/DanielSanMiguel/entrega-imagenes/internal/domain"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.DeliveryRecord{})
}
