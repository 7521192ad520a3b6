package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/safetypro/rumore-server/internal/model/dto"
	"github.com/safetypro/rumore-server/internal/repository"
)

var ErrCannotDemoteSelf = errors.New("Non puoi rimuovere i tuoi privilegi di amministratore")

type AdminService struct {
	userRepo    *repository.UserRepository
	aziendaRepo *repository.AziendaRepository
	espoRepo    *repository.EsposizioneRepository
	dpiRepo     *repository.DPIRepository
	docRepo     *repository.DocumentoRepository
	subRepo     *repository.SubscriptionRepository
}

func NewAdminService(
	userRepo *repository.UserRepository,
	aziendaRepo *repository.AziendaRepository,
	espoRepo *repository.EsposizioneRepository,
	dpiRepo *repository.DPIRepository,
	docRepo *repository.DocumentoRepository,
	subRepo *repository.SubscriptionRepository,
) *AdminService {
	return &AdminService{
		userRepo:    userRepo,
		aziendaRepo: aziendaRepo,
		espoRepo:    espoRepo,
		dpiRepo:     dpiRepo,
		docRepo:     docRepo,
		subRepo:     subRepo,
	}
}

// ListUsers 用户列表，带各类数据计数
func (s *AdminService) ListUsers(offset, limit int) ([]dto.AdminUserInfo, int64, error) {
	users, total, err := s.userRepo.List(offset, limit)
	if err != nil {
		return nil, 0, err
	}

	infos := make([]dto.AdminUserInfo, 0, len(users))
	for _, user := range users {
		info := dto.AdminUserInfo{
			ID:        user.ID,
			Email:     user.Email,
			Nome:      user.Nome,
			IsAdmin:   user.IsAdmin,
			CreatedAt: user.CreatedAt.Format(time.RFC3339),
		}
		if user.LastLogin != nil {
			info.LastLogin = user.LastLogin.Format(time.RFC3339)
		}

		if count, err := s.aziendaRepo.CountByUser(user.ID); err == nil {
			info.AziendeCount = count
		}
		if count, err := s.espoRepo.CountByUser(user.ID); err == nil {
			info.EsposizioniCount = count
		}
		if count, err := s.dpiRepo.CountByUser(user.ID); err == nil {
			info.DPICount = count
		}
		if count, err := s.docRepo.CountByUser(user.ID); err == nil {
			info.DocumentiCount = count
		}
		if sub, err := s.subRepo.GetCurrentByUserID(user.ID); err == nil {
			info.SubscriptionStatus = sub.Status
		}

		infos = append(infos, info)
	}
	return infos, total, nil
}

// SetAdmin 授予或撤销管理员。不能撤销自己，避免把最后一个管理员锁在门外。
func (s *AdminService) SetAdmin(actorID, targetID int64, isAdmin bool) error {
	if actorID == targetID && !isAdmin {
		return ErrCannotDemoteSelf
	}

	if _, err := s.userRepo.GetByID(targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	return s.userRepo.UpdateFields(targetID, map[string]interface{}{
		"is_admin": isAdmin,
	})
}

// DeleteUser 删除用户及其全部数据
func (s *AdminService) DeleteUser(targetID int64) error {
	if _, err := s.userRepo.GetByID(targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return s.userRepo.Delete(targetID)
}
