package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/safetypro/rumore-server/config"
	"github.com/safetypro/rumore-server/internal/model"
	"github.com/safetypro/rumore-server/internal/model/dto"
	"github.com/safetypro/rumore-server/internal/pkg/email"
	"github.com/safetypro/rumore-server/internal/pkg/jwt"
	"github.com/safetypro/rumore-server/internal/repository"
)

var (
	ErrEmailExists        = errors.New("Email già registrata")
	ErrInvalidCredentials = errors.New("Email o password non validi")
	ErrInvalidResetToken  = errors.New("Token di reimpostazione non valido o scaduto")
	ErrUserNotFound       = errors.New("Utente non trovato")
)

const resetTokenTTL = 30 * time.Minute

type AuthService struct {
	userRepo *repository.UserRepository
	emailSvc *email.Service
	cfg      *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, emailSvc *email.Service, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		emailSvc: emailSvc,
		cfg:      cfg,
	}
}

// Register 用户注册，成功后直接发放 token
func (s *AuthService) Register(req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	exists, err := s.userRepo.ExistsByEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		Nome:         req.Nome,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	token, err := jwt.GenerateToken(user.ID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.RegisterResponse{
		UserID: user.ID,
		Token:  token,
	}, nil
}

// Login 用户登录
func (s *AuthService) Login(req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := s.userRepo.UpdateLastLogin(user.ID, now); err != nil {
		// 登录时间只是统计用途，失败不阻断登录
		log.Printf("Failed to update last_login for user %d: %v", user.ID, err)
	}

	token, err := jwt.GenerateToken(user.ID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		Token: token,
		User:  toUserInfo(user),
	}, nil
}

// GetProfile 当前用户信息
func (s *AuthService) GetProfile(userID int64) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return toUserInfo(user), nil
}

// ForgotPassword 发送重置链接。邮箱不存在时同样返回成功，
// 不给探测注册邮箱的机会。
func (s *AuthService) ForgotPassword(req *dto.ForgotPasswordRequest) error {
	user, err := s.userRepo.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	token, err := generateResetToken()
	if err != nil {
		return err
	}

	prt := &model.PasswordResetToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}
	if err := s.userRepo.CreateResetToken(prt); err != nil {
		return err
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", s.cfg.Stripe.FrontendURL, token)
	if s.emailSvc != nil {
		if err := s.emailSvc.SendPasswordReset(user.Email, resetLink); err != nil {
			log.Printf("Failed to send reset email to user %d: %v", user.ID, err)
		}
	}
	return nil
}

// ResetPassword 用一次性令牌重置密码
func (s *AuthService) ResetPassword(req *dto.ResetPasswordRequest) error {
	prt, err := s.userRepo.GetResetToken(req.Token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	if prt.Used || time.Now().After(prt.ExpiresAt) {
		return ErrInvalidResetToken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdateFields(prt.UserID, map[string]interface{}{
		"password_hash": string(hashedPassword),
	}); err != nil {
		return err
	}
	return s.userRepo.MarkResetTokenUsed(prt.ID)
}

func toUserInfo(user *model.User) *dto.UserInfo {
	info := &dto.UserInfo{
		ID:        user.ID,
		Email:     user.Email,
		Nome:      user.Nome,
		IsAdmin:   user.IsAdmin,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
	if user.LastLogin != nil {
		info.LastLogin = user.LastLogin.Format(time.RFC3339)
	}
	return info
}

func generateResetToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
