package service

import (
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/safetypro/rumore-server/internal/model"
	"github.com/safetypro/rumore-server/internal/model/dto"
	"github.com/safetypro/rumore-server/internal/repository"
)

var ErrValutazioneNotFound = errors.New("Valutazione non trovata")

type EsposizioneService struct {
	espoRepo    *repository.EsposizioneRepository
	aziendaRepo *repository.AziendaRepository
	userRepo    *repository.UserRepository
	entitlement *EntitlementService
}

func NewEsposizioneService(
	espoRepo *repository.EsposizioneRepository,
	aziendaRepo *repository.AziendaRepository,
	userRepo *repository.UserRepository,
	entitlement *EntitlementService,
) *EsposizioneService {
	return &EsposizioneService{
		espoRepo:    espoRepo,
		aziendaRepo: aziendaRepo,
		userRepo:    userRepo,
		entitlement: entitlement,
	}
}

// Create 新建暴露评估。azienda_id 必须属于当前用户，
// 测量记录按提交顺序编号。
func (s *EsposizioneService) Create(userID int64, req *dto.CreateEsposizioneRequest) (*model.ValutazioneEsposizione, error) {
	if err := s.entitlement.CheckCanCreateEsposizione(userID); err != nil {
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

	misurazioni := make([]model.Misurazione, len(req.Misurazioni))
	for i, m := range req.Misurazioni {
		misurazioni[i] = model.Misurazione{
			Attivita: m.Attivita,
			Leq:      m.Leq,
			Durata:   m.Durata,
			Lpicco:   m.Lpicco,
			Ordine:   i,
		}
	}

	valutazione := &model.ValutazioneEsposizione{
		UserID:        userID,
		AziendaID:     req.AziendaID,
		Mansione:      req.Mansione,
		Reparto:       req.Reparto,
		Lex:           req.Lex,
		Lpicco:        req.Lpicco,
		ClasseRischio: req.ClasseRischio,
		Misurazioni:   misurazioni,
	}
	if err := s.espoRepo.Create(valutazione); err != nil {
		return nil, err
	}

	s.snapshotUsage(userID)
	return valutazione, nil
}

func (s *EsposizioneService) List(userID int64, aziendaID *int64) ([]model.ValutazioneEsposizione, error) {
	return s.espoRepo.ListByUser(userID, aziendaID)
}

func (s *EsposizioneService) Get(id, userID int64) (*model.ValutazioneEsposizione, error) {
	valutazione, err := s.espoRepo.GetByIDAndUser(id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if isAdminUser(s.userRepo, userID) {
				valutazione, err = s.espoRepo.GetByID(id)
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

// Update 更新评估。提交了 misurazioni 时整体替换，不支持增量修改单条。
func (s *EsposizioneService) Update(id, userID int64, req *dto.UpdateEsposizioneRequest) (*model.ValutazioneEsposizione, error) {
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
	if req.Lex != nil {
		valutazione.Lex = *req.Lex
	}
	if req.Lpicco != nil {
		valutazione.Lpicco = *req.Lpicco
	}
	if req.ClasseRischio != nil {
		valutazione.ClasseRischio = *req.ClasseRischio
	}

	if req.Misurazioni != nil {
		misurazioni := make([]model.Misurazione, len(req.Misurazioni))
		for i, m := range req.Misurazioni {
			misurazioni[i] = model.Misurazione{
				Attivita: m.Attivita,
				Leq:      m.Leq,
				Durata:   m.Durata,
				Lpicco:   m.Lpicco,
			}
		}
		if err := s.espoRepo.UpdateWithMisurazioni(valutazione, misurazioni); err != nil {
			return nil, err
		}
	} else {
		if err := s.espoRepo.UpdateWithMisurazioni(valutazione, valutazione.Misurazioni); err != nil {
			return nil, err
		}
	}

	return s.Get(id, userID)
}

func (s *EsposizioneService) Delete(id, userID int64) error {
	valutazione, err := s.Get(id, userID)
	if err != nil {
		return err
	}

	affected, err := s.espoRepo.Delete(id, valutazione.UserID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrValutazioneNotFound
	}
	return nil
}

// snapshotUsage 刷新订阅行上的用量快照，失败只记日志
func (s *EsposizioneService) snapshotUsage(userID int64) {
	sub, err := s.entitlement.CurrentSubscription(userID)
	if err != nil || sub == nil {
		return
	}
	if err := s.entitlement.subRepo.IncrementUsageEsposizione(sub.ID); err != nil {
		log.Printf("Failed to snapshot esposizione usage for user %d: %v", userID, err)
	}
}
