package service

import (
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/safetypro/rumore-server/internal/model"
	"github.com/safetypro/rumore-server/internal/model/dto"
	"github.com/safetypro/rumore-server/internal/repository"
)

type DPIService struct {
	dpiRepo     *repository.DPIRepository
	aziendaRepo *repository.AziendaRepository
	userRepo    *repository.UserRepository
	entitlement *EntitlementService
}

func NewDPIService(
	dpiRepo *repository.DPIRepository,
	aziendaRepo *repository.AziendaRepository,
	userRepo *repository.UserRepository,
	entitlement *EntitlementService,
) *DPIService {
	return &DPIService{
		dpiRepo:     dpiRepo,
		aziendaRepo: aziendaRepo,
		userRepo:    userRepo,
		entitlement: entitlement,
	}
}

// Create 新建 DPI 评估。衰减值和计算结果都是前端算好的字符串。
func (s *DPIService) Create(userID int64, req *dto.CreateDPIRequest) (*model.ValutazioneDPI, error) {
	if err := s.entitlement.CheckCanCreateDPI(userID); err != nil {
		return nil, err
	}

	if req.AziendaID != nil {
		if _, err := s.aziendaRepo.GetByIDAndUser(*req.AziendaID, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrAziendaNotFound
			}
			return nil, err
		}
	}

	valutazione := &model.ValutazioneDPI{
		UserID:             userID,
		AziendaID:          req.AziendaID,
		Mansione:           req.Mansione,
		Reparto:            req.Reparto,
		DPISelezionato:     req.DPISelezionato,
		H:                  req.ValoriHML.H,
		M:                  req.ValoriHML.M,
		L:                  req.ValoriHML.L,
		LexPerDPI:          req.LexPerDPI,
		PNR:                req.PNR,
		Leff:               req.Leff,
		ProtezioneAdeguata: req.ProtezioneAdeguata,
	}
	if err := s.dpiRepo.Create(valutazione); err != nil {
		return nil, err
	}

	s.snapshotUsage(userID)
	return valutazione, nil
}

func (s *DPIService) List(userID int64, aziendaID *int64) ([]model.ValutazioneDPI, error) {
	return s.dpiRepo.ListByUser(userID, aziendaID)
}

func (s *DPIService) Get(id, userID int64) (*model.ValutazioneDPI, error) {
	valutazione, err := s.dpiRepo.GetByIDAndUser(id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if isAdminUser(s.userRepo, userID) {
				valutazione, err = s.dpiRepo.GetByID(id)
				if err == nil {
					return valutazione, nil
				}
			}
			return nil, ErrValutazioneNotFound
		}
		return nil, err
	}
	return valutazione, nil
}

func (s *DPIService) Update(id, userID int64, req *dto.UpdateDPIRequest) (*model.ValutazioneDPI, error) {
	valutazione, err := s.Get(id, userID)
	if err != nil {
		return nil, err
	}

	if req.AziendaID != nil {
		// 企业归属按评估所有者判断，管理员代改时也不能跨用户挂靠
		if _, err := s.aziendaRepo.GetByIDAndUser(*req.AziendaID, valutazione.UserID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrAziendaNotFound
			}
			return nil, err
		}
		valutazione.AziendaID = req.AziendaID
	}
	if req.Mansione != nil {
		valutazione.Mansione = *req.Mansione
	}
	if req.Reparto != nil {
		valutazione.Reparto = *req.Reparto
	}
	if req.DPISelezionato != nil {
		valutazione.DPISelezionato = *req.DPISelezionato
	}
	if req.ValoriHML != nil {
		valutazione.H = req.ValoriHML.H
		valutazione.M = req.ValoriHML.M
		valutazione.L = req.ValoriHML.L
	}
	if req.LexPerDPI != nil {
		valutazione.LexPerDPI = *req.LexPerDPI
	}
	if req.PNR != nil {
		valutazione.PNR = *req.PNR
	}
	if req.Leff != nil {
		valutazione.Leff = *req.Leff
	}
	if req.ProtezioneAdeguata != nil {
		valutazione.ProtezioneAdeguata = *req.ProtezioneAdeguata
	}

	if err := s.dpiRepo.Update(valutazione); err != nil {
		return nil, err
	}
	return valutazione, nil
}

func (s *DPIService) Delete(id, userID int64) error {
	valutazione, err := s.Get(id, userID)
	if err != nil {
		return err
	}

	affected, err := s.dpiRepo.Delete(id, valutazione.UserID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrValutazioneNotFound
	}
	return nil
}

func (s *DPIService) snapshotUsage(userID int64) {
	sub, err := s.entitlement.CurrentSubscription(userID)
	if err != nil || sub == nil {
		return
	}
	if err := s.entitlement.subRepo.IncrementUsageDPI(sub.ID); err != nil {
		log.Printf("Failed to snapshot DPI usage for user %d: %v", userID, err)
	}
}
