package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/safetypro/rumore-server/internal/model"
	"github.com/safetypro/rumore-server/internal/model/dto"
	"github.com/safetypro/rumore-server/internal/repository"
)

var (
	ErrAziendaNotFound  = errors.New("Azienda non trovata")
	ErrPartitaIVAExists = errors.New("Partita IVA già registrata")
)

type AziendaService struct {
	aziendaRepo *repository.AziendaRepository
	userRepo    *repository.UserRepository
	entitlement *EntitlementService
}

func NewAziendaService(aziendaRepo *repository.AziendaRepository, userRepo *repository.UserRepository, entitlement *EntitlementService) *AziendaService {
	return &AziendaService{
		aziendaRepo: aziendaRepo,
		userRepo:    userRepo,
		entitlement: entitlement,
	}
}

// Create 新建企业，先查套餐配额再查重
func (s *AziendaService) Create(userID int64, req *dto.CreateAziendaRequest) (*model.Azienda, error) {
	if err := s.entitlement.CheckCanCreateAzienda(userID); err != nil {
		return nil, err
	}

	exists, err := s.aziendaRepo.ExistsByPartitaIVA(req.PartitaIVA)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrPartitaIVAExists
	}

	azienda := &model.Azienda{
		UserID:               userID,
		RagioneSociale:       req.RagioneSociale,
		PartitaIVA:           req.PartitaIVA,
		CodiceFiscale:        req.CodiceFiscale,
		Indirizzo:            req.Indirizzo,
		Citta:                req.Citta,
		CAP:                  req.CAP,
		Provincia:            req.Provincia,
		Telefono:             req.Telefono,
		Email:                req.Email,
		RappresentanteLegale: req.RappresentanteLegale,
	}
	if err := s.aziendaRepo.Create(azienda); err != nil {
		return nil, err
	}
	return azienda, nil
}

func (s *AziendaService) List(userID int64) ([]model.Azienda, error) {
	return s.aziendaRepo.ListByUser(userID)
}

func (s *AziendaService) Get(id, userID int64) (*model.Azienda, error) {
	azienda, err := s.aziendaRepo.GetByIDAndUser(id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if isAdminUser(s.userRepo, userID) {
				return s.getAny(id)
			}
			return nil, ErrAziendaNotFound
		}
		return nil, err
	}
	return azienda, nil
}

func (s *AziendaService) getAny(id int64) (*model.Azienda, error) {
	azienda, err := s.aziendaRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAziendaNotFound
		}
		return nil, err
	}
	return azienda, nil
}

// Update 只更新提交的字段
func (s *AziendaService) Update(id, userID int64, req *dto.UpdateAziendaRequest) (*model.Azienda, error) {
	azienda, err := s.Get(id, userID)
	if err != nil {
		return nil, err
	}

	if req.PartitaIVA != nil && *req.PartitaIVA != azienda.PartitaIVA {
		exists, err := s.aziendaRepo.ExistsByPartitaIVA(*req.PartitaIVA)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrPartitaIVAExists
		}
		azienda.PartitaIVA = *req.PartitaIVA
	}
	if req.RagioneSociale != nil {
		azienda.RagioneSociale = *req.RagioneSociale
	}
	if req.CodiceFiscale != nil {
		azienda.CodiceFiscale = *req.CodiceFiscale
	}
	if req.Indirizzo != nil {
		azienda.Indirizzo = *req.Indirizzo
	}
	if req.Citta != nil {
		azienda.Citta = *req.Citta
	}
	if req.CAP != nil {
		azienda.CAP = *req.CAP
	}
	if req.Provincia != nil {
		azienda.Provincia = *req.Provincia
	}
	if req.Telefono != nil {
		azienda.Telefono = *req.Telefono
	}
	if req.Email != nil {
		azienda.Email = *req.Email
	}
	if req.RappresentanteLegale != nil {
		azienda.RappresentanteLegale = *req.RappresentanteLegale
	}

	if err := s.aziendaRepo.Update(azienda); err != nil {
		return nil, err
	}
	return azienda, nil
}

// Delete 删除企业，关联的评估和文档级联清理
func (s *AziendaService) Delete(id, userID int64) error {
	azienda, err := s.Get(id, userID)
	if err != nil {
		return err
	}

	affected, err := s.aziendaRepo.Delete(id, azienda.UserID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAziendaNotFound
	}
	return nil
}
