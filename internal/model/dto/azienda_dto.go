package dto

// CreateAziendaRequest 新建公司请求
type CreateAziendaRequest struct {
	RagioneSociale       string `json:"ragione_sociale" binding:"required,max=255"`
	PartitaIVA           string `json:"partita_iva" binding:"required,len=11"`
	CodiceFiscale        string `json:"codice_fiscale" binding:"required,max=16"`
	Indirizzo            string `json:"indirizzo" binding:"required,max=255"`
	Citta                string `json:"citta" binding:"required,max=100"`
	CAP                  string `json:"cap" binding:"required,len=5"`
	Provincia            string `json:"provincia" binding:"required,len=2"`
	Telefono             string `json:"telefono" binding:"omitempty,max=20"`
	Email                string `json:"email" binding:"omitempty,email"`
	RappresentanteLegale string `json:"rappresentante_legale" binding:"omitempty,max=255"`
}

// UpdateAziendaRequest 更新公司请求，只更新提交的字段
type UpdateAziendaRequest struct {
	RagioneSociale       *string `json:"ragione_sociale" binding:"omitempty,max=255"`
	PartitaIVA           *string `json:"partita_iva" binding:"omitempty,len=11"`
	CodiceFiscale        *string `json:"codice_fiscale" binding:"omitempty,max=16"`
	Indirizzo            *string `json:"indirizzo" binding:"omitempty,max=255"`
	Citta                *string `json:"citta" binding:"omitempty,max=100"`
	CAP                  *string `json:"cap" binding:"omitempty,len=5"`
	Provincia            *string `json:"provincia" binding:"omitempty,len=2"`
	Telefono             *string `json:"telefono" binding:"omitempty,max=20"`
	Email                *string `json:"email" binding:"omitempty,email"`
	RappresentanteLegale *string `json:"rappresentante_legale" binding:"omitempty,max=255"`
}

// CreateAziendaResponse 新建公司响应
type CreateAziendaResponse struct {
	ID        int64  `json:"id"`
	CreatedAt string `json:"created_at"`
}
