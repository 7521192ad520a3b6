package model

import (
	"time"
)

// Documento 评估附件。EsposizioneID 与 DPIID 只能设置其一。
type Documento struct {
	ID            int64                   `gorm:"primaryKey" json:"id"`
	UserID        int64                   `gorm:"not null;index" json:"user_id"`
	User          *User                   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	EsposizioneID *int64                  `gorm:"index" json:"esposizione_id,omitempty"`
	Esposizione   *ValutazioneEsposizione `gorm:"foreignKey:EsposizioneID;constraint:OnDelete:CASCADE" json:"-"`
	DPIID         *int64                  `gorm:"column:dpi_id;index" json:"dpi_id,omitempty"`
	DPI           *ValutazioneDPI         `gorm:"foreignKey:DPIID;constraint:OnDelete:CASCADE" json:"-"`
	Filename      string                  `gorm:"size:255;not null" json:"filename"`
	ObjectKey     string                  `gorm:"size:500;not null" json:"-"`
	URL           string                  `gorm:"size:500" json:"url"`
	Kind          string                  `gorm:"size:50" json:"kind"`
	SizeBytes     int64                   `json:"size_bytes"`
	CreatedAt     time.Time               `json:"created_at"`
}

func (Documento) TableName() string {
	return "documenti"
}
