package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/safetypro/rumore-server/internal/model"
)

var seq int64

func nextSeq() int64 {
	return atomic.AddInt64(&seq, 1)
}

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	n := nextSeq()
	user := &model.User{
		Email:        fmt.Sprintf("test_%d@example.com", n),
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuvwxyz123456", // bcrypt hash placeholder
		Nome:         fmt.Sprintf("Utente Test %d", n),
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = email
	}
}

// WithAdmin 设置为管理员
func WithAdmin() func(*model.User) {
	return func(u *model.User) {
		u.IsAdmin = true
	}
}

// WithPasswordHash 设置密码哈希
func WithPasswordHash(hash string) func(*model.User) {
	return func(u *model.User) {
		u.PasswordHash = hash
	}
}

// TestAzienda 创建测试企业
func TestAzienda(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.Azienda)) *model.Azienda {
	t.Helper()

	n := nextSeq()
	azienda := &model.Azienda{
		UserID:         userID,
		RagioneSociale: fmt.Sprintf("Officina Test %d S.r.l.", n),
		PartitaIVA:     fmt.Sprintf("%011d", n),
		CodiceFiscale:  fmt.Sprintf("%016d", n),
		Indirizzo:      "Via Roma 1",
		Citta:          "Milano",
		CAP:            "20100",
		Provincia:      "MI",
	}

	for _, opt := range opts {
		opt(azienda)
	}

	if err := db.Create(azienda).Error; err != nil {
		t.Fatalf("Failed to create test azienda: %v", err)
	}

	return azienda
}

// WithPartitaIVA 设置增值税号
func WithPartitaIVA(piva string) func(*model.Azienda) {
	return func(a *model.Azienda) {
		a.PartitaIVA = piva
	}
}

// WithRagioneSociale 设置公司名称
func WithRagioneSociale(name string) func(*model.Azienda) {
	return func(a *model.Azienda) {
		a.RagioneSociale = name
	}
}

// TestEsposizione 创建测试暴露评估，默认带两条测量
func TestEsposizione(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.ValutazioneEsposizione)) *model.ValutazioneEsposizione {
	t.Helper()

	valutazione := &model.ValutazioneEsposizione{
		UserID:        userID,
		Mansione:      "Operatore pressa",
		Reparto:       "Stampaggio",
		Lex:           "85.30",
		Lpicco:        "122.00",
		ClasseRischio: "rischio_medio",
		Misurazioni: []model.Misurazione{
			{Attivita: "Pressatura", Leq: "88.50", Durata: "240.00", Lpicco: "122.00", Ordine: 0},
			{Attivita: "Pausa", Leq: "65.00", Durata: "60.00", Lpicco: "80.00", Ordine: 1},
		},
	}

	for _, opt := range opts {
		opt(valutazione)
	}

	if err := db.Create(valutazione).Error; err != nil {
		t.Fatalf("Failed to create test esposizione: %v", err)
	}

	return valutazione
}

// WithAziendaID 关联企业
func WithAziendaID(aziendaID int64) func(*model.ValutazioneEsposizione) {
	return func(v *model.ValutazioneEsposizione) {
		v.AziendaID = &aziendaID
	}
}

// WithMisurazioni 设置测量记录
func WithMisurazioni(misurazioni []model.Misurazione) func(*model.ValutazioneEsposizione) {
	return func(v *model.ValutazioneEsposizione) {
		v.Misurazioni = misurazioni
	}
}

// TestDPI 创建测试 DPI 评估
func TestDPI(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.ValutazioneDPI)) *model.ValutazioneDPI {
	t.Helper()

	valutazione := &model.ValutazioneDPI{
		UserID:             userID,
		Mansione:           "Operatore pressa",
		Reparto:            "Stampaggio",
		DPISelezionato:     "Cuffia 3M Peltor X4",
		H:                  "33.00",
		M:                  "30.00",
		L:                  "22.00",
		LexPerDPI:          "88.50",
		PNR:                "27.40",
		Leff:               "61.10",
		ProtezioneAdeguata: "adeguata",
	}

	for _, opt := range opts {
		opt(valutazione)
	}

	if err := db.Create(valutazione).Error; err != nil {
		t.Fatalf("Failed to create test DPI: %v", err)
	}

	return valutazione
}

// WithDPIAzienda 关联企业
func WithDPIAzienda(aziendaID int64) func(*model.ValutazioneDPI) {
	return func(v *model.ValutazioneDPI) {
		v.AziendaID = &aziendaID
	}
}

// TestDocumento 创建测试文档
func TestDocumento(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.Documento)) *model.Documento {
	t.Helper()

	n := nextSeq()
	doc := &model.Documento{
		UserID:    userID,
		Filename:  fmt.Sprintf("relazione_%d.pdf", n),
		ObjectKey: fmt.Sprintf("documenti/%d/test-%d.pdf", userID, n),
		URL:       fmt.Sprintf("https://cdn.example.com/documenti/%d/test-%d.pdf", userID, n),
		Kind:      "relazione",
		SizeBytes: 1024,
	}

	for _, opt := range opts {
		opt(doc)
	}

	if err := db.Create(doc).Error; err != nil {
		t.Fatalf("Failed to create test documento: %v", err)
	}

	return doc
}

// WithEsposizioneID 附加到暴露评估
func WithEsposizioneID(id int64) func(*model.Documento) {
	return func(d *model.Documento) {
		d.EsposizioneID = &id
	}
}

// WithDPIID 附加到 DPI 评估
func WithDPIID(id int64) func(*model.Documento) {
	return func(d *model.Documento) {
		d.DPIID = &id
	}
}

// TestPlan 创建测试套餐
func TestPlan(t *testing.T, db *gorm.DB, opts ...func(*model.SubscriptionPlan)) *model.SubscriptionPlan {
	t.Helper()

	n := nextSeq()
	maxEspo := 50
	maxDPI := 50
	maxAziende := 20
	storage := 500
	plan := &model.SubscriptionPlan{
		Name:                           fmt.Sprintf("plan_%d", n),
		DisplayName:                    fmt.Sprintf("Piano Test %d", n),
		PriceMonthly:                   29.90,
		Currency:                       "EUR",
		MaxValutazioniEsposizioneMonth: &maxEspo,
		MaxValutazioniDPIMonth:         &maxDPI,
		MaxAziende:                     &maxAziende,
		StorageMB:                      &storage,
		FeatureArchivioDocumenti:       true,
		StripeProductID:                fmt.Sprintf("prod_test_%d", n),
		StripePriceIDMonthly:           fmt.Sprintf("price_test_m_%d", n),
		StripePriceIDYearly:            fmt.Sprintf("price_test_y_%d", n),
		IsActive:                       true,
	}

	for _, opt := range opts {
		opt(plan)
	}

	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("Failed to create test plan: %v", err)
	}

	return plan
}

// WithUnlimited 所有配额设为不限
func WithUnlimited() func(*model.SubscriptionPlan) {
	return func(p *model.SubscriptionPlan) {
		p.MaxValutazioniEsposizioneMonth = nil
		p.MaxValutazioniDPIMonth = nil
		p.MaxAziende = nil
		p.StorageMB = nil
	}
}

// WithInactive 停用套餐
func WithInactive() func(*model.SubscriptionPlan) {
	return func(p *model.SubscriptionPlan) {
		p.IsActive = false
	}
}

// TestSubscription 创建测试订阅
func TestSubscription(t *testing.T, db *gorm.DB, userID, planID int64, opts ...func(*model.UserSubscription)) *model.UserSubscription {
	t.Helper()

	n := nextSeq()
	stripeSubID := fmt.Sprintf("sub_test_%d", n)
	now := time.Now()
	periodEnd := now.AddDate(0, 1, 0)
	sub := &model.UserSubscription{
		UserID:               userID,
		PlanID:               planID,
		Status:               model.SubStatusActive,
		BillingCycle:         model.BillingCycleMonthly,
		StripeCustomerID:     fmt.Sprintf("cus_test_%d", n),
		StripeSubscriptionID: &stripeSubID,
		CurrentPeriodStart:   &now,
		CurrentPeriodEnd:     &periodEnd,
	}

	for _, opt := range opts {
		opt(sub)
	}

	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	return sub
}

// WithStatus 设置订阅状态
func WithStatus(status string) func(*model.UserSubscription) {
	return func(s *model.UserSubscription) {
		s.Status = status
	}
}

// WithStripeSubscriptionID 设置 Stripe 订阅 id
func WithStripeSubscriptionID(id string) func(*model.UserSubscription) {
	return func(s *model.UserSubscription) {
		s.StripeSubscriptionID = &id
	}
}

// WithUsage 设置当前周期用量
func WithUsage(esposizioni, dpi int, storageMB float64) func(*model.UserSubscription) {
	return func(s *model.UserSubscription) {
		s.UsageValutazioniEsposizione = esposizioni
		s.UsageValutazioniDPI = dpi
		s.UsageStorageMB = storageMB
	}
}

// TestInvoice 创建测试发票
func TestInvoice(t *testing.T, db *gorm.DB, subscriptionID, userID int64, opts ...func(*model.SubscriptionInvoice)) *model.SubscriptionInvoice {
	t.Helper()

	n := nextSeq()
	now := time.Now()
	invoice := &model.SubscriptionInvoice{
		SubscriptionID:  subscriptionID,
		UserID:          userID,
		StripeInvoiceID: fmt.Sprintf("in_test_%d", n),
		InvoiceNumber:   fmt.Sprintf("INV-%06d", n),
		Amount:          29.90,
		TotalAmount:     29.90,
		Currency:        "EUR",
		Status:          "paid",
		Paid:            true,
		InvoiceDate:     &now,
		PaidDate:        &now,
	}

	for _, opt := range opts {
		opt(invoice)
	}

	if err := db.Create(invoice).Error; err != nil {
		t.Fatalf("Failed to create test invoice: %v", err)
	}

	return invoice
}

// WithStripeInvoiceID 设置 Stripe 发票 id
func WithStripeInvoiceID(id string) func(*model.SubscriptionInvoice) {
	return func(i *model.SubscriptionInvoice) {
		i.StripeInvoiceID = id
	}
}
