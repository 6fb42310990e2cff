// Package access 为文档附件签发短时访问链接
//
// 调用方必须是文档的起草人、审批人或参阅人，且请求的地址必须登记在该文档上，
// 防止用其他文档的附件地址换取链接。
package access

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/employee"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/model"
	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/repository"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/apperr"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/config"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/logger"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/metrics"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/objectstore"
	"gorm.io/gorm"
)

// Disposition 链接用途
type Disposition string

const (
	DispositionPreview  Disposition = "preview"
	DispositionDownload Disposition = "download"
)

// PresignRequest 预签名请求
type PresignRequest struct {
	DocumentID  uint
	FileURL     string // 查询参数 url 的值，路由层已解码一次
	CallerEmail string
	Disposition Disposition
}

// UploadTicket 上传凭证
type UploadTicket struct {
	UploadURL  string    `json:"upload_url"`
	StorageURL string    `json:"storage_url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Service 附件访问网关
type Service struct {
	documents *repository.DocumentRepository
	employees employee.Resolver
	presigner objectstore.Presigner
	baseURL   string
	ttl       time.Duration
	now       func() time.Time
}

func NewService(documents *repository.DocumentRepository, employees employee.Resolver, presigner objectstore.Presigner, cfg config.StorageConfig) *Service {
	cfg.SetDefaults()
	return &Service{
		documents: documents,
		employees: employees,
		presigner: presigner,
		baseURL:   cfg.PublicBaseURL,
		ttl:       time.Duration(cfg.PresignTTL) * time.Second,
		now:       time.Now,
	}
}

// Presign 校验权限后返回预签名下载/预览地址
func (s *Service) Presign(ctx context.Context, req PresignRequest) (string, error) {
	signed, err := s.presign(ctx, req)
	result := "ok"
	if err != nil {
		result = fmt.Sprintf("%d", apperr.StatusOf(err))
	}
	metrics.PresignRequestsTotal.WithLabelValues(string(req.Disposition), result).Inc()
	return signed, err
}

func (s *Service) presign(ctx context.Context, req PresignRequest) (string, error) {
	if strings.TrimSpace(req.FileURL) == "" {
		return "", apperr.BadRequest("文件地址不能为空")
	}

	caller, err := s.resolveCaller(ctx, req.CallerEmail)
	if err != nil {
		return "", err
	}

	doc, err := s.documents.FindDetail(req.DocumentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperr.NotFound("文档不存在")
		}
		return "", apperr.Internal(err, "查询文档失败")
	}

	if !doc.CanView(caller.ID) {
		logger.Warnf("[Access] Employee %d denied file access on document %d", caller.ID, doc.ID)
		return "", apperr.Forbidden("无权访问该文档的附件")
	}
	storageURL, ok := matchFile(doc, req.FileURL)
	if !ok {
		return "", apperr.BadRequest("文件不属于该文档")
	}

	key, err := objectstore.KeyFromURL(s.baseURL, storageURL)
	if err != nil {
		return "", apperr.BadRequest("文件地址不在存储范围内")
	}

	disposition := objectstore.ContentDisposition(req.Disposition == DispositionDownload, fileName(doc, storageURL, key))
	signed, err := s.presigner.PresignGet(ctx, key, s.ttl, disposition)
	if err != nil {
		return "", apperr.Upstream(err, "生成文件访问链接失败")
	}
	return signed, nil
}

// UploadURL 为起草人生成附件上传地址，上传完成后需要登记附件
func (s *Service) UploadURL(ctx context.Context, actor model.Identity, documentID uint, name string) (*UploadTicket, error) {
	name = strings.TrimSpace(path.Base(name))
	if name == "" || name == "." || name == "/" {
		return nil, apperr.BadRequest("文件名不能为空")
	}

	doc, err := s.documents.FindByID(documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("文档不存在")
		}
		return nil, apperr.Internal(err, "查询文档失败")
	}
	if !doc.IsWriter(actor.EmployeeID) {
		return nil, apperr.Forbidden("只有起草人可以上传附件")
	}
	if !doc.Status.Editable() {
		return nil, apperr.Conflict("文档当前状态为 %s，不能上传附件", doc.Status)
	}

	key := fmt.Sprintf("documents/%d/%s/%s", doc.ID, uuid.New().String(), name)
	signed, err := s.presigner.PresignPut(ctx, key, s.ttl)
	if err != nil {
		return nil, apperr.Upstream(err, "生成上传链接失败")
	}
	return &UploadTicket{
		UploadURL:  signed,
		StorageURL: objectstore.URLForKey(s.baseURL, key),
		ExpiresAt:  s.now().Add(s.ttl),
	}, nil
}

// CheckStorageURL 登记附件前确认地址属于本服务的存储
func (s *Service) CheckStorageURL(storageURL string) error {
	if _, err := objectstore.KeyFromURL(s.baseURL, storageURL); err != nil {
		return apperr.BadRequest("文件地址不在存储范围内")
	}
	return nil
}

func (s *Service) resolveCaller(ctx context.Context, email string) (*model.Employee, error) {
	caller, err := s.employees.ResolveByEmail(ctx, email)
	switch {
	case errors.Is(err, employee.ErrNotFound):
		return nil, apperr.NotFound("员工不存在")
	case err != nil:
		return nil, apperr.Upstream(err, "人事服务暂不可用")
	}
	return caller, nil
}

// matchFile 先按原值匹配登记的存储地址，不匹配时再解码一次，兼容重复编码的客户端
func matchFile(doc *model.Document, fileURL string) (string, bool) {
	if doc.HasFile(fileURL) {
		return fileURL, true
	}
	decoded, err := url.QueryUnescape(fileURL)
	if err != nil || decoded == fileURL || !doc.HasFile(decoded) {
		return "", false
	}
	return decoded, true
}

func fileName(doc *model.Document, storageURL, key string) string {
	if name := doc.FileName(storageURL); name != "" {
		return name
	}
	return path.Base(key)
}
