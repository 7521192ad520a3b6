package model

import (
	"time"
)

type Azienda struct {
	ID                   int64     `gorm:"primaryKey" json:"id"`
	UserID               int64     `gorm:"not null;index" json:"user_id"`
	User                 *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	RagioneSociale       string    `gorm:"size:255;not null;index" json:"ragione_sociale"`
	PartitaIVA           string    `gorm:"column:partita_iva;size:11;uniqueIndex;not null" json:"partita_iva"`
	CodiceFiscale        string    `gorm:"size:16;not null" json:"codice_fiscale"`
	Indirizzo            string    `gorm:"size:255;not null" json:"indirizzo"`
	Citta                string    `gorm:"size:100;not null" json:"citta"`
	CAP                  string    `gorm:"column:cap;size:5;not null" json:"cap"`
	Provincia            string    `gorm:"size:2;not null" json:"provincia"`
	Telefono             string    `gorm:"size:20" json:"telefono,omitempty"`
	Email                string    `gorm:"size:255" json:"email,omitempty"`
	RappresentanteLegale string    `gorm:"size:255" json:"rappresentante_legale,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func (Azienda) TableName() string {
	return "aziende"
}
