package service

import (
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/safetypro/rumore-server/config"
	"github.com/safetypro/rumore-server/internal/model"
	"github.com/safetypro/rumore-server/internal/model/dto"
	"github.com/safetypro/rumore-server/internal/repository"
)

var (
	ErrDocumentoNotFound   = errors.New("Documento non trovato")
	ErrFileTooLarge        = errors.New("Il file supera la dimensione massima consentita")
	ErrExtensionNotAllowed = errors.New("Tipo di file non consentito")
	ErrDocTargetMissing    = errors.New("Il documento deve essere collegato a una valutazione")
)

// DocumentStorage 对象存储抽象，生产环境由 OSS 客户端实现
type DocumentStorage interface {
	UploadDocument(userID int64, filename string, data []byte) (objectKey, url string, err error)
	GetObject(objectKey string) (io.ReadCloser, error)
	Delete(objectKey string) error
}

type DocumentoService struct {
	docRepo     *repository.DocumentoRepository
	espoRepo    *repository.EsposizioneRepository
	dpiRepo     *repository.DPIRepository
	userRepo    *repository.UserRepository
	storage     DocumentStorage
	entitlement *EntitlementService
	cfg         *config.UploadConfig
}

func NewDocumentoService(
	docRepo *repository.DocumentoRepository,
	espoRepo *repository.EsposizioneRepository,
	dpiRepo *repository.DPIRepository,
	userRepo *repository.UserRepository,
	storage DocumentStorage,
	entitlement *EntitlementService,
	cfg *config.UploadConfig,
) *DocumentoService {
	return &DocumentoService{
		docRepo:     docRepo,
		espoRepo:    espoRepo,
		dpiRepo:     dpiRepo,
		userRepo:    userRepo,
		storage:     storage,
		entitlement: entitlement,
		cfg:         cfg,
	}
}

// Upload 上传附件。必须挂到一个属于当前用户的评估上，
// esposizioneID 和 dpiID 二选一。
func (s *DocumentoService) Upload(userID int64, esposizioneID, dpiID *int64, filename, kind string, data []byte) (*model.Documento, error) {
	if (esposizioneID == nil) == (dpiID == nil) {
		return nil, ErrDocTargetMissing
	}

	if int64(len(data)) > s.cfg.MaxSize {
		return nil, ErrFileTooLarge
	}
	if !s.extensionAllowed(filename) {
		return nil, ErrExtensionNotAllowed
	}

	if err := s.entitlement.CheckCanUploadDocument(userID, int64(len(data))); err != nil {
		return nil, err
	}

	if esposizioneID != nil {
		if _, err := s.espoRepo.GetByIDAndUser(*esposizioneID, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrValutazioneNotFound
			}
			return nil, err
		}
	}
	if dpiID != nil {
		if _, err := s.dpiRepo.GetByIDAndUser(*dpiID, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrValutazioneNotFound
			}
			return nil, err
		}
	}

	objectKey, url, err := s.storage.UploadDocument(userID, filename, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	doc := &model.Documento{
		UserID:        userID,
		EsposizioneID: esposizioneID,
		DPIID:         dpiID,
		Filename:      filename,
		ObjectKey:     objectKey,
		URL:           url,
		Kind:          kind,
		SizeBytes:     int64(len(data)),
	}
	if err := s.docRepo.Create(doc); err != nil {
		// 落库失败时回收对象，避免存储泄漏
		if delErr := s.storage.Delete(objectKey); delErr != nil {
			log.Printf("Failed to clean up orphan object %s: %v", objectKey, delErr)
		}
		return nil, err
	}

	s.snapshotStorage(userID, float64(len(data))/(1024*1024))
	return doc, nil
}

// Download 以流方式返回文件内容，调用方负责 Close
func (s *DocumentoService) Download(id, userID int64) (*model.Documento, io.ReadCloser, error) {
	doc, err := s.Get(id, userID)
	if err != nil {
		return nil, nil, err
	}

	body, err := s.storage.GetObject(doc.ObjectKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read document: %w", err)
	}
	return doc, body, nil
}

// Get 归属过滤，管理员可读任何用户的文档
func (s *DocumentoService) Get(id, userID int64) (*model.Documento, error) {
	doc, err := s.docRepo.GetByIDAndUser(id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if isAdminUser(s.userRepo, userID) {
				doc, err = s.docRepo.GetByID(id)
				if err == nil {
					return doc, nil
				}
			}
			return nil, ErrDocumentoNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *DocumentoService) List(userID int64, esposizioneID, dpiID *int64) ([]model.Documento, error) {
	if esposizioneID != nil {
		return s.docRepo.ListByEsposizione(*esposizioneID, userID)
	}
	if dpiID != nil {
		return s.docRepo.ListByDPI(*dpiID, userID)
	}
	return s.docRepo.ListByUser(userID)
}

// Delete 所有者或管理员可删，存储用量记在文档所有者名下
func (s *DocumentoService) Delete(id, userID int64) error {
	doc, err := s.Get(id, userID)
	if err != nil {
		return err
	}

	affected, err := s.docRepo.Delete(id, doc.UserID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrDocumentoNotFound
	}

	if err := s.storage.Delete(doc.ObjectKey); err != nil {
		// 数据库记录已删，对象删除失败只记日志
		log.Printf("Failed to delete object %s: %v", doc.ObjectKey, err)
	}

	s.snapshotStorage(doc.UserID, -float64(doc.SizeBytes)/(1024*1024))
	return nil
}

func ToDocumentoInfo(doc *model.Documento) *dto.DocumentoInfo {
	return &dto.DocumentoInfo{
		ID:            doc.ID,
		EsposizioneID: doc.EsposizioneID,
		DPIID:         doc.DPIID,
		Filename:      doc.Filename,
		Kind:          doc.Kind,
		SizeBytes:     doc.SizeBytes,
		CreatedAt:     doc.CreatedAt.Format(time.RFC3339),
	}
}

func (s *DocumentoService) extensionAllowed(filename string) bool {
	ext := strings.ToLower(path.Ext(filename))
	for _, allowed := range s.cfg.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (s *DocumentoService) snapshotStorage(userID int64, deltaMB float64) {
	sub, err := s.entitlement.CurrentSubscription(userID)
	if err != nil || sub == nil {
		return
	}
	if err := s.entitlement.subRepo.AddUsageStorage(sub.ID, deltaMB); err != nil {
		log.Printf("Failed to snapshot storage usage for user %d: %v", userID, err)
	}
}
