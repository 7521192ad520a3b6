package repository

import (
	"gorm.io/gorm"

	"github.com/safetypro/rumore-server/internal/model"
)

type DocumentoRepository struct {
	db *gorm.DB
}

func NewDocumentoRepository(db *gorm.DB) *DocumentoRepository {
	return &DocumentoRepository{db: db}
}

func (r *DocumentoRepository) Create(doc *model.Documento) error {
	return r.db.Create(doc).Error
}

// GetByID 不带归属过滤，只给管理员访问路径用
func (r *DocumentoRepository) GetByID(id int64) (*model.Documento, error) {
	var doc model.Documento
	if err := r.db.First(&doc, id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentoRepository) GetByIDAndUser(id, userID int64) (*model.Documento, error) {
	var doc model.Documento
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentoRepository) ListByUser(userID int64) ([]model.Documento, error) {
	var docs []model.Documento
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&docs).Error
	return docs, err
}

func (r *DocumentoRepository) ListByEsposizione(esposizioneID, userID int64) ([]model.Documento, error) {
	var docs []model.Documento
	err := r.db.Where("esposizione_id = ? AND user_id = ?", esposizioneID, userID).
		Order("created_at DESC").Find(&docs).Error
	return docs, err
}

func (r *DocumentoRepository) ListByDPI(dpiID, userID int64) ([]model.Documento, error) {
	var docs []model.Documento
	err := r.db.Where("dpi_id = ? AND user_id = ?", dpiID, userID).
		Order("created_at DESC").Find(&docs).Error
	return docs, err
}

func (r *DocumentoRepository) Delete(id, userID int64) (int64, error) {
	result := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Documento{})
	return result.RowsAffected, result.Error
}

// SumSizeByUser 当前占用存储（字节），配额按 MB 比较时再换算
func (r *DocumentoRepository) SumSizeByUser(userID int64) (int64, error) {
	var total int64
	err := r.db.Model(&model.Documento{}).Where("user_id = ?", userID).
		Select("COALESCE(SUM(size_bytes), 0)").Scan(&total).Error
	return total, err
}

func (r *DocumentoRepository) CountByUser(userID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.Documento{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
