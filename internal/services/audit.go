package services

import (
	"gorm.io/gorm"

	"github.com/diewo77/facturation/internal/models"
)

// writeAudit records a lifecycle transition inside the caller's transaction.
func writeAudit(tx *gorm.DB, userID uint, entityType string, entityID uint, action, detail string) error {
	return tx.Create(&models.AuditLog{
		UserID:     userID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Detail:     detail,
	}).Error
}

// updateWithVersion applies a version-guarded update on a document row.
// RowsAffected à zéro signifie qu'une mutation concurrente est passée entre
// notre lecture et notre écriture : l'appelant reçoit ErrVersionConflict et
// peut rejouer l'opération.
func updateWithVersion(tx *gorm.DB, model interface{}, id uint, version int, updates map[string]interface{}) error {
	updates["version"] = version + 1
	res := tx.Model(model).Where("id = ? AND version = ?", id, version).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}
