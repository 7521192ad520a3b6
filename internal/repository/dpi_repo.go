package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/safetypro/rumore-server/internal/model"
)

type DPIRepository struct {
	db *gorm.DB
}

func NewDPIRepository(db *gorm.DB) *DPIRepository {
	return &DPIRepository{db: db}
}

func (r *DPIRepository) Create(valutazione *model.ValutazioneDPI) error {
	return r.db.Create(valutazione).Error
}

// GetByID 不带归属过滤，只给管理员访问路径用
func (r *DPIRepository) GetByID(id int64) (*model.ValutazioneDPI, error) {
	var valutazione model.ValutazioneDPI
	if err := r.db.First(&valutazione, id).Error; err != nil {
		return nil, err
	}
	return &valutazione, nil
}

func (r *DPIRepository) GetByIDAndUser(id, userID int64) (*model.ValutazioneDPI, error) {
	var valutazione model.ValutazioneDPI
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&valutazione).Error
	if err != nil {
		return nil, err
	}
	return &valutazione, nil
}

func (r *DPIRepository) ListByUser(userID int64, aziendaID *int64) ([]model.ValutazioneDPI, error) {
	query := r.db.Where("user_id = ?", userID)
	if aziendaID != nil {
		query = query.Where("azienda_id = ?", *aziendaID)
	}

	var valutazioni []model.ValutazioneDPI
	err := query.Order("created_at DESC").Find(&valutazioni).Error
	return valutazioni, err
}

func (r *DPIRepository) Update(valutazione *model.ValutazioneDPI) error {
	return r.db.Save(valutazione).Error
}

func (r *DPIRepository) Delete(id, userID int64) (int64, error) {
	result := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.ValutazioneDPI{})
	return result.RowsAffected, result.Error
}

func (r *DPIRepository) CountByUser(userID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.ValutazioneDPI{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *DPIRepository) CountByUserSince(userID int64, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.ValutazioneDPI{}).
		Where("user_id = ? AND created_at >= ?", userID, since).Count(&count).Error
	return count, err
}
