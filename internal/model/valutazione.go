package model

import (
	"time"
)

// ValutazioneEsposizione 噪声暴露评估。lex/lpicco 等数值由前端计算，
// 后端只作为不透明的十进制字符串存储，不做任何计算或校验。
type ValutazioneEsposizione struct {
	ID            int64         `gorm:"primaryKey" json:"id"`
	UserID        int64         `gorm:"not null;index" json:"user_id"`
	User          *User         `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	AziendaID     *int64        `gorm:"index" json:"azienda_id"`
	Azienda       *Azienda      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Mansione      string        `gorm:"size:255;not null" json:"mansione"`
	Reparto       string        `gorm:"size:255" json:"reparto"`
	Lex           string        `gorm:"type:decimal(5,2)" json:"lex"`
	Lpicco        string        `gorm:"type:decimal(5,2)" json:"lpicco"`
	ClasseRischio string        `gorm:"size:50" json:"classe_rischio"`
	Misurazioni   []Misurazione `gorm:"foreignKey:ValutazioneID" json:"misurazioni"`
	CreatedAt     time.Time     `json:"created_at"`
}

func (ValutazioneEsposizione) TableName() string {
	return "valutazioni_esposizione"
}

// Misurazione 单条测量记录，ordine 决定显示与重算顺序（从 0 连续）
type Misurazione struct {
	ID            int64                   `gorm:"primaryKey" json:"id"`
	ValutazioneID int64                   `gorm:"not null;index" json:"-"`
	Valutazione   *ValutazioneEsposizione `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Attivita      string                  `gorm:"size:255" json:"attivita"`
	Leq           string                  `gorm:"type:decimal(5,2)" json:"leq"`
	Durata        string                  `gorm:"type:decimal(10,2)" json:"durata"`
	Lpicco        string                  `gorm:"type:decimal(5,2)" json:"lpicco"`
	Ordine        int                     `gorm:"default:0" json:"ordine"`
}

func (Misurazione) TableName() string {
	return "misurazioni"
}

// ValutazioneDPI 听力防护用品（DPI）适用性评估
type ValutazioneDPI struct {
	ID                 int64     `gorm:"primaryKey" json:"id"`
	UserID             int64     `gorm:"not null;index" json:"user_id"`
	User               *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	AziendaID          *int64    `gorm:"index" json:"azienda_id"`
	Azienda            *Azienda  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Mansione           string    `gorm:"size:255;not null" json:"mansione"`
	Reparto            string    `gorm:"size:255" json:"reparto"`
	DPISelezionato     string    `gorm:"column:dpi_selezionato;size:255" json:"dpi_selezionato"`
	H                  string    `gorm:"type:decimal(5,2)" json:"h"`
	M                  string    `gorm:"type:decimal(5,2)" json:"m"`
	L                  string    `gorm:"type:decimal(5,2)" json:"l"`
	LexPerDPI          string    `gorm:"column:lex_per_dpi;type:decimal(5,2)" json:"lex_per_dpi"`
	PNR                string    `gorm:"column:pnr;type:decimal(5,2)" json:"pnr,omitempty"`
	Leff               string    `gorm:"type:decimal(5,2)" json:"leff,omitempty"`
	ProtezioneAdeguata string    `gorm:"size:50" json:"protezione_adeguata,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

func (ValutazioneDPI) TableName() string {
	return "valutazioni_dpi"
}
