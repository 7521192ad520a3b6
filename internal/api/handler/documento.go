package handler

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/safetypro/rumore-server/internal/api/middleware"
	"github.com/safetypro/rumore-server/internal/model/dto"
	"github.com/safetypro/rumore-server/internal/pkg/response"
	"github.com/safetypro/rumore-server/internal/service"
)

type DocumentoHandler struct {
	docService *service.DocumentoService
}

func NewDocumentoHandler(docService *service.DocumentoService) *DocumentoHandler {
	return &DocumentoHandler{
		docService: docService,
	}
}

// Upload 上传附件，multipart 表单：file + esposizione_id/dpi_id + kind
// POST /api/v1/documenti
func (h *DocumentoHandler) Upload(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.ParamError(c, "File mancante")
		return
	}
	defer file.Close()

	esposizioneID, err := optionalFormID(c, "esposizione_id")
	if err != nil {
		response.ParamError(c, "esposizione_id non valido")
		return
	}
	dpiID, err := optionalFormID(c, "dpi_id")
	if err != nil {
		response.ParamError(c, "dpi_id non valido")
		return
	}
	kind := c.PostForm("kind")

	data, err := io.ReadAll(file)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	doc, err := h.docService.Upload(userID, esposizioneID, dpiID, header.Filename, kind, data)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDocTargetMissing),
			errors.Is(err, service.ErrFileTooLarge),
			errors.Is(err, service.ErrExtensionNotAllowed):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrFeatureArchivio),
			errors.Is(err, service.ErrQuotaStorage):
			response.QuotaError(c, err.Error())
		case errors.Is(err, service.ErrValutazioneNotFound):
			response.NotFoundError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, service.ToDocumentoInfo(doc))
}

// List 附件列表，可按评估过滤
// GET /api/v1/documenti?esposizione_id=1 | ?dpi_id=1
func (h *DocumentoHandler) List(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	esposizioneID, err := optionalQueryID(c, "esposizione_id")
	if err != nil {
		response.ParamError(c, "esposizione_id non valido")
		return
	}
	dpiID, err := optionalQueryID(c, "dpi_id")
	if err != nil {
		response.ParamError(c, "dpi_id non valido")
		return
	}

	docs, err := h.docService.List(userID, esposizioneID, dpiID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	infos := make([]*dto.DocumentoInfo, 0, len(docs))
	for i := range docs {
		infos = append(infos, service.ToDocumentoInfo(&docs[i]))
	}
	response.Success(c, infos)
}

// Download 下载附件内容
// GET /api/v1/documenti/:id/download
func (h *DocumentoHandler) Download(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "ID non valido")
		return
	}

	doc, body, err := h.docService.Download(id, userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDocumentoNotFound):
			response.NotFoundError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}
	defer body.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Header("Content-Length", strconv.FormatInt(doc.SizeBytes, 10))
	c.DataFromReader(200, doc.SizeBytes, "application/octet-stream", body, nil)
}

// Delete 删除附件
// DELETE /api/v1/documenti/:id
func (h *DocumentoHandler) Delete(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "ID non valido")
		return
	}

	if err := h.docService.Delete(id, userID); err != nil {
		switch {
		case errors.Is(err, service.ErrDocumentoNotFound):
			response.NotFoundError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "Documento eliminato", nil)
}

func optionalFormID(c *gin.Context, field string) (*int64, error) {
	raw := c.PostForm(field)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func optionalQueryID(c *gin.Context, field string) (*int64, error) {
	raw := c.Query(field)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
