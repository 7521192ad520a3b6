package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/safetypro/rumore-server/internal/model"
)

type EsposizioneRepository struct {
	db *gorm.DB
}

func NewEsposizioneRepository(db *gorm.DB) *EsposizioneRepository {
	return &EsposizioneRepository{db: db}
}

func (r *EsposizioneRepository) Create(valutazione *model.ValutazioneEsposizione) error {
	return r.db.Create(valutazione).Error
}

// GetByID 不带归属过滤，只给管理员访问路径用
func (r *EsposizioneRepository) GetByID(id int64) (*model.ValutazioneEsposizione, error) {
	var valutazione model.ValutazioneEsposizione
	err := r.db.Preload("Misurazioni", func(db *gorm.DB) *gorm.DB {
		return db.Order("ordine ASC")
	}).First(&valutazione, id).Error
	if err != nil {
		return nil, err
	}
	return &valutazione, nil
}

func (r *EsposizioneRepository) GetByIDAndUser(id, userID int64) (*model.ValutazioneEsposizione, error) {
	var valutazione model.ValutazioneEsposizione
	err := r.db.Preload("Misurazioni", func(db *gorm.DB) *gorm.DB {
		return db.Order("ordine ASC")
	}).Where("id = ? AND user_id = ?", id, userID).First(&valutazione).Error
	if err != nil {
		return nil, err
	}
	return &valutazione, nil
}

func (r *EsposizioneRepository) ListByUser(userID int64, aziendaID *int64) ([]model.ValutazioneEsposizione, error) {
	query := r.db.Preload("Misurazioni", func(db *gorm.DB) *gorm.DB {
		return db.Order("ordine ASC")
	}).Where("user_id = ?", userID)
	if aziendaID != nil {
		query = query.Where("azienda_id = ?", *aziendaID)
	}

	var valutazioni []model.ValutazioneEsposizione
	err := query.Order("created_at DESC").Find(&valutazioni).Error
	return valutazioni, err
}

// UpdateWithMisurazioni 更新评估并整体替换测量记录。替换在一个事务里做，
// 不支持对单条测量的增量修改，部分失败时旧数据原样保留。
func (r *EsposizioneRepository) UpdateWithMisurazioni(valutazione *model.ValutazioneEsposizione, misurazioni []model.Misurazione) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(valutazione).Updates(map[string]interface{}{
			"azienda_id":     valutazione.AziendaID,
			"mansione":       valutazione.Mansione,
			"reparto":        valutazione.Reparto,
			"lex":            valutazione.Lex,
			"lpicco":         valutazione.Lpicco,
			"classe_rischio": valutazione.ClasseRischio,
		}).Error; err != nil {
			return err
		}

		if err := tx.Where("valutazione_id = ?", valutazione.ID).Delete(&model.Misurazione{}).Error; err != nil {
			return err
		}

		for i := range misurazioni {
			misurazioni[i].ID = 0
			misurazioni[i].ValutazioneID = valutazione.ID
			misurazioni[i].Ordine = i
		}
		if len(misurazioni) > 0 {
			if err := tx.Create(&misurazioni).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *EsposizioneRepository) Delete(id, userID int64) (int64, error) {
	result := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.ValutazioneEsposizione{})
	return result.RowsAffected, result.Error
}

func (r *EsposizioneRepository) CountByUser(userID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.ValutazioneEsposizione{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *EsposizioneRepository) CountByUserSince(userID int64, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.ValutazioneEsposizione{}).
		Where("user_id = ? AND created_at >= ?", userID, since).Count(&count).Error
	return count, err
}
