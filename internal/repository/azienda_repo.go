package repository

import (
	"gorm.io/gorm"

	"github.com/safetypro/rumore-server/internal/model"
)

type AziendaRepository struct {
	db *gorm.DB
}

func NewAziendaRepository(db *gorm.DB) *AziendaRepository {
	return &AziendaRepository{db: db}
}

func (r *AziendaRepository) Create(azienda *model.Azienda) error {
	return r.db.Create(azienda).Error
}

// GetByIDAndUser 所有读取都带 user_id 过滤，别人的企业等同于不存在
// GetByID 不带归属过滤，只给管理员访问路径用
func (r *AziendaRepository) GetByID(id int64) (*model.Azienda, error) {
	var azienda model.Azienda
	if err := r.db.First(&azienda, id).Error; err != nil {
		return nil, err
	}
	return &azienda, nil
}

func (r *AziendaRepository) GetByIDAndUser(id, userID int64) (*model.Azienda, error) {
	var azienda model.Azienda
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&azienda).Error
	if err != nil {
		return nil, err
	}
	return &azienda, nil
}

func (r *AziendaRepository) ListByUser(userID int64) ([]model.Azienda, error) {
	var aziende []model.Azienda
	err := r.db.Where("user_id = ?", userID).Order("ragione_sociale ASC").Find(&aziende).Error
	return aziende, err
}

func (r *AziendaRepository) Update(azienda *model.Azienda) error {
	return r.db.Save(azienda).Error
}

func (r *AziendaRepository) Delete(id, userID int64) (int64, error) {
	result := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Azienda{})
	return result.RowsAffected, result.Error
}

func (r *AziendaRepository) ExistsByPartitaIVA(partitaIVA string) (bool, error) {
	var count int64
	err := r.db.Model(&model.Azienda{}).Where("partita_iva = ?", partitaIVA).Count(&count).Error
	return count > 0, err
}

func (r *AziendaRepository) CountByUser(userID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.Azienda{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
