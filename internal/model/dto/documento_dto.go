package dto

// DocumentoInfo 附件信息
type DocumentoInfo struct {
	ID            int64  `json:"id"`
	EsposizioneID *int64 `json:"esposizione_id,omitempty"`
	DPIID         *int64 `json:"dpi_id,omitempty"`
	Filename      string `json:"filename"`
	Kind          string `json:"kind"`
	SizeBytes     int64  `json:"size_bytes"`
	CreatedAt     string `json:"created_at"`
}
