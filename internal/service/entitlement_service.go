package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/safetypro/rumore-server/config"
	"github.com/safetypro/rumore-server/internal/model"
	"github.com/safetypro/rumore-server/internal/model/dto"
	"github.com/safetypro/rumore-server/internal/repository"
)

var (
	ErrQuotaAziende     = errors.New("Hai raggiunto il numero massimo di aziende per il tuo piano")
	ErrQuotaEsposizione = errors.New("Hai raggiunto il numero massimo di valutazioni del rumore per questo mese")
	ErrQuotaDPI         = errors.New("Hai raggiunto il numero massimo di valutazioni DPI per questo mese")
	ErrQuotaStorage     = errors.New("Hai esaurito lo spazio di archiviazione del tuo piano")
	ErrFeatureArchivio  = errors.New("L'archivio documenti non è incluso nel tuo piano")
)

// EntitlementService 把订阅状态换算成有效配额。用量总是从业务表现算，
// 订阅行上的计数器只是展示快照，不作为扣配额依据。
type EntitlementService struct {
	subRepo     *repository.SubscriptionRepository
	aziendaRepo *repository.AziendaRepository
	espoRepo    *repository.EsposizioneRepository
	dpiRepo     *repository.DPIRepository
	docRepo     *repository.DocumentoRepository
	freeTier    *config.FreeTierConfig
}

func NewEntitlementService(
	subRepo *repository.SubscriptionRepository,
	aziendaRepo *repository.AziendaRepository,
	espoRepo *repository.EsposizioneRepository,
	dpiRepo *repository.DPIRepository,
	docRepo *repository.DocumentoRepository,
	freeTier *config.FreeTierConfig,
) *EntitlementService {
	return &EntitlementService{
		subRepo:     subRepo,
		aziendaRepo: aziendaRepo,
		espoRepo:    espoRepo,
		dpiRepo:     dpiRepo,
		docRepo:     docRepo,
		freeTier:    freeTier,
	}
}

// entitlements 有效配额。nil 表示不设限。
type entitlements struct {
	maxEsposizioni   *int
	maxDPI           *int
	maxAziende       *int
	storageMB        *int
	archivioAbilitat bool
	periodStart      time.Time
	periodEnd        *time.Time
	sub              *model.UserSubscription
}

// resolve 当前订阅（active/trial/past_due）决定配额，没有订阅走免费档。
// past_due 按宽限期处理，保留付费配额直到 Stripe 把订阅转为 canceled。
func (s *EntitlementService) resolve(userID int64) (*entitlements, error) {
	sub, err := s.subRepo.GetCurrentByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.freeEntitlements(), nil
		}
		return nil, err
	}

	ent := &entitlements{
		maxEsposizioni:   sub.Plan.MaxValutazioniEsposizioneMonth,
		maxDPI:           sub.Plan.MaxValutazioniDPIMonth,
		maxAziende:       sub.Plan.MaxAziende,
		storageMB:        sub.Plan.StorageMB,
		archivioAbilitat: sub.Plan.FeatureArchivioDocumenti,
		periodStart:      startOfMonth(time.Now().UTC()),
		sub:              sub,
	}
	if sub.CurrentPeriodStart != nil {
		ent.periodStart = *sub.CurrentPeriodStart
	}
	ent.periodEnd = sub.CurrentPeriodEnd
	return ent, nil
}

func (s *EntitlementService) freeEntitlements() *entitlements {
	maxEspo := s.freeTier.MaxValutazioniEsposizioneMonth
	maxDPI := s.freeTier.MaxValutazioniDPIMonth
	maxAziende := s.freeTier.MaxAziende
	storage := s.freeTier.StorageMB
	return &entitlements{
		maxEsposizioni: &maxEspo,
		maxDPI:         &maxDPI,
		maxAziende:     &maxAziende,
		storageMB:      &storage,
		periodStart:    startOfMonth(time.Now().UTC()),
	}
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// CheckCanCreateAzienda 企业数是总量上限，不按月重置
func (s *EntitlementService) CheckCanCreateAzienda(userID int64) error {
	ent, err := s.resolve(userID)
	if err != nil {
		return err
	}
	if ent.maxAziende == nil {
		return nil
	}

	count, err := s.aziendaRepo.CountByUser(userID)
	if err != nil {
		return err
	}
	if count >= int64(*ent.maxAziende) {
		return ErrQuotaAziende
	}
	return nil
}

func (s *EntitlementService) CheckCanCreateEsposizione(userID int64) error {
	ent, err := s.resolve(userID)
	if err != nil {
		return err
	}
	if ent.maxEsposizioni == nil {
		return nil
	}

	count, err := s.espoRepo.CountByUserSince(userID, ent.periodStart)
	if err != nil {
		return err
	}
	if count >= int64(*ent.maxEsposizioni) {
		return ErrQuotaEsposizione
	}
	return nil
}

func (s *EntitlementService) CheckCanCreateDPI(userID int64) error {
	ent, err := s.resolve(userID)
	if err != nil {
		return err
	}
	if ent.maxDPI == nil {
		return nil
	}

	count, err := s.dpiRepo.CountByUserSince(userID, ent.periodStart)
	if err != nil {
		return err
	}
	if count >= int64(*ent.maxDPI) {
		return ErrQuotaDPI
	}
	return nil
}

// CheckCanUploadDocument 检查档案功能开关和剩余存储空间
func (s *EntitlementService) CheckCanUploadDocument(userID, sizeBytes int64) error {
	ent, err := s.resolve(userID)
	if err != nil {
		return err
	}
	if !ent.archivioAbilitat {
		return ErrFeatureArchivio
	}
	if ent.storageMB == nil {
		return nil
	}

	used, err := s.docRepo.SumSizeByUser(userID)
	if err != nil {
		return err
	}
	limitBytes := int64(*ent.storageMB) * 1024 * 1024
	if used+sizeBytes > limitBytes {
		return ErrQuotaStorage
	}
	return nil
}

// CurrentSubscription 返回当前订阅，没有时返回 nil 而不是错误
func (s *EntitlementService) CurrentSubscription(userID int64) (*model.UserSubscription, error) {
	sub, err := s.subRepo.GetCurrentByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

// Usage 当前周期用量与上限
func (s *EntitlementService) Usage(userID int64) (*dto.UsageInfo, error) {
	ent, err := s.resolve(userID)
	if err != nil {
		return nil, err
	}

	espoCount, err := s.espoRepo.CountByUserSince(userID, ent.periodStart)
	if err != nil {
		return nil, err
	}
	dpiCount, err := s.dpiRepo.CountByUserSince(userID, ent.periodStart)
	if err != nil {
		return nil, err
	}
	usedBytes, err := s.docRepo.SumSizeByUser(userID)
	if err != nil {
		return nil, err
	}

	info := &dto.UsageInfo{
		UsageValutazioniEsposizione:    int(espoCount),
		UsageValutazioniDPI:            int(dpiCount),
		UsageStorageMB:                 float64(usedBytes) / (1024 * 1024),
		MaxValutazioniEsposizioneMonth: ent.maxEsposizioni,
		MaxValutazioniDPIMonth:         ent.maxDPI,
		MaxAziende:                     ent.maxAziende,
		MaxStorageMB:                   ent.storageMB,
		PeriodStart:                    ent.periodStart.Format(time.RFC3339),
	}
	if ent.periodEnd != nil {
		info.PeriodEnd = ent.periodEnd.Format(time.RFC3339)
	}
	return info, nil
}
