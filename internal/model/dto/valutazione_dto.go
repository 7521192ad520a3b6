package dto

// MisurazioneInput 测量记录，数值为前端计算好的十进制字符串
type MisurazioneInput struct {
	Attivita string `json:"attivita" binding:"required,max=255"`
	Leq      string `json:"leq" binding:"required"`
	Durata   string `json:"durata" binding:"required"`
	Lpicco   string `json:"lpicco" binding:"required"`
}

// CreateEsposizioneRequest 新建暴露评估请求
type CreateEsposizioneRequest struct {
	AziendaID     *int64             `json:"azienda_id"`
	Mansione      string             `json:"mansione" binding:"required,max=255"`
	Reparto       string             `json:"reparto" binding:"omitempty,max=255"`
	Misurazioni   []MisurazioneInput `json:"misurazioni" binding:"required,min=1,dive"`
	Lex           string             `json:"lex" binding:"required"`
	Lpicco        string             `json:"lpicco" binding:"required"`
	ClasseRischio string             `json:"classe_rischio" binding:"required,max=50"`
}

// UpdateEsposizioneRequest 更新暴露评估，misurazioni 整体替换
type UpdateEsposizioneRequest struct {
	AziendaID     *int64             `json:"azienda_id"`
	Mansione      *string            `json:"mansione" binding:"omitempty,max=255"`
	Reparto       *string            `json:"reparto" binding:"omitempty,max=255"`
	Misurazioni   []MisurazioneInput `json:"misurazioni" binding:"omitempty,dive"`
	Lex           *string            `json:"lex"`
	Lpicco        *string            `json:"lpicco"`
	ClasseRischio *string            `json:"classe_rischio" binding:"omitempty,max=50"`
}

// CreateValutazioneResponse 新建评估响应
type CreateValutazioneResponse struct {
	ID        int64  `json:"id"`
	CreatedAt string `json:"created_at"`
}

// ValoriHML DPI 的 H/M/L 衰减值
type ValoriHML struct {
	H string `json:"h" binding:"required"`
	M string `json:"m" binding:"required"`
	L string `json:"l" binding:"required"`
}

// CreateDPIRequest 新建 DPI 评估请求
type CreateDPIRequest struct {
	AziendaID          *int64    `json:"azienda_id"`
	Mansione           string    `json:"mansione" binding:"required,max=255"`
	Reparto            string    `json:"reparto" binding:"omitempty,max=255"`
	DPISelezionato     string    `json:"dpi_selezionato" binding:"required,max=255"`
	ValoriHML          ValoriHML `json:"valori_hml" binding:"required"`
	LexPerDPI          string    `json:"lex_per_dpi" binding:"required"`
	PNR                string    `json:"pnr"`
	Leff               string    `json:"leff"`
	ProtezioneAdeguata string    `json:"protezione_adeguata" binding:"omitempty,max=50"`
}

// UpdateDPIRequest 更新 DPI 评估，只更新提交的字段
type UpdateDPIRequest struct {
	AziendaID          *int64     `json:"azienda_id"`
	Mansione           *string    `json:"mansione" binding:"omitempty,max=255"`
	Reparto            *string    `json:"reparto" binding:"omitempty,max=255"`
	DPISelezionato     *string    `json:"dpi_selezionato" binding:"omitempty,max=255"`
	ValoriHML          *ValoriHML `json:"valori_hml"`
	LexPerDPI          *string    `json:"lex_per_dpi"`
	PNR                *string    `json:"pnr"`
	Leff               *string    `json:"leff"`
	ProtezioneAdeguata *string    `json:"protezione_adeguata" binding:"omitempty,max=50"`
}
