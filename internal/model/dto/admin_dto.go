package dto

// AdminUserInfo 管理端用户概要，含各类数据计数
type AdminUserInfo struct {
	ID                 int64  `json:"id"`
	Email              string `json:"email"`
	Nome               string `json:"nome"`
	IsAdmin            bool   `json:"is_admin"`
	CreatedAt          string `json:"created_at"`
	LastLogin          string `json:"last_login,omitempty"`
	AziendeCount       int64  `json:"aziende_count"`
	EsposizioniCount   int64  `json:"esposizioni_count"`
	DPICount           int64  `json:"dpi_count"`
	DocumentiCount     int64  `json:"documenti_count"`
	SubscriptionStatus string `json:"subscription_status,omitempty"`
}

// SetAdminRequest 设置/取消管理员
type SetAdminRequest struct {
	IsAdmin *bool `json:"is_admin" binding:"required"`
}
