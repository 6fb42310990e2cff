package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/kimjiwon0450/Back-HRHub-sub000/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrVersionConflict 条件更新未命中，文档已被其他请求修改
var ErrVersionConflict = errors.New("document was modified concurrently")

// DocumentBox 文档列表的视角
type DocumentBox string

const (
	BoxWritten    DocumentBox = "written"    // 我起草的
	BoxPending    DocumentBox = "pending"    // 待我审批
	BoxInvolved   DocumentBox = "involved"   // 我参与审批的
	BoxReferenced DocumentBox = "referenced" // 抄送我的
)

// DocumentFilter 列表查询条件
type DocumentFilter struct {
	EmployeeID uint
	Box        DocumentBox
	Status     model.DocumentStatus
	Keyword    string
	Page       int
	PageSize   int
}

// DocumentRepository 审批文档仓库
type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Transaction 在单个事务中执行，回调中的仓库绑定到该事务
func (r *DocumentRepository) Transaction(fn func(repo *DocumentRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&DocumentRepository{db: tx})
	})
}

// Create 创建文档，同时写入审批线和参阅人
func (r *DocumentRepository) Create(doc *model.Document) error {
	return r.db.Create(doc).Error
}

func (r *DocumentRepository) FindByID(id uint) (*model.Document, error) {
	var doc model.Document
	err := r.db.Where("id = ?", id).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindDetail 加载文档及审批线、附件、参阅人
func (r *DocumentRepository) FindDetail(id uint) (*model.Document, error) {
	var doc model.Document
	err := r.db.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("References", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ?", id).
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// UpdateVersioned 以版本号为条件更新文档，成功后版本号加一
func (r *DocumentRepository) UpdateVersioned(doc *model.Document, fields map[string]interface{}) error {
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["version"] = doc.Version + 1

	result := r.db.Model(&model.Document{}).
		Where("id = ? AND version = ?", doc.ID, doc.Version).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	doc.Version++
	return nil
}

// Delete 删除文档及全部关联数据
func (r *DocumentRepository) Delete(id uint) error {
	for _, related := range []interface{}{
		&model.ApprovalLine{},
		&model.Attachment{},
		&model.DocumentReference{},
		&model.DocumentHistory{},
	} {
		if err := r.db.Where("document_id = ?", id).Delete(related).Error; err != nil {
			return err
		}
	}
	return r.db.Delete(&model.Document{}, "id = ?", id).Error
}

// ReplaceLines 重建审批线
func (r *DocumentRepository) ReplaceLines(documentID uint, lines []model.ApprovalLine) error {
	if err := r.db.Where("document_id = ?", documentID).Delete(&model.ApprovalLine{}).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	for i := range lines {
		lines[i].ID = 0
		lines[i].DocumentID = documentID
	}
	return r.db.Create(&lines).Error
}

// DecideLine 记录审批人的决定，只更新仍为 PENDING 的审批线
func (r *DocumentRepository) DecideLine(lineID uint, status model.ApprovalLineStatus, comment string, at time.Time) error {
	result := r.db.Model(&model.ApprovalLine{}).
		Where("id = ? AND status = ?", lineID, model.ApprovalLineStatusPending).
		Updates(map[string]interface{}{
			"status":     status,
			"comment":    comment,
			"decided_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// ResetLines 所有审批线恢复为 PENDING 并清除决定
func (r *DocumentRepository) ResetLines(documentID uint) error {
	return r.db.Model(&model.ApprovalLine{}).
		Where("document_id = ?", documentID).
		Updates(map[string]interface{}{
			"status":     model.ApprovalLineStatusPending,
			"comment":    "",
			"decided_at": nil,
		}).Error
}

// ReferenceIDs 按添加顺序返回参阅人
func (r *DocumentRepository) ReferenceIDs(documentID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.DocumentReference{}).
		Where("document_id = ?", documentID).
		Order("id ASC").
		Pluck("employee_id", &ids).Error
	return ids, err
}

// AddReference 添加参阅人，已存在时忽略
func (r *DocumentRepository) AddReference(documentID, employeeID uint) error {
	ref := model.DocumentReference{DocumentID: documentID, EmployeeID: employeeID}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&ref).Error
}

// RemoveReference 删除参阅人，返回是否删除了记录
func (r *DocumentRepository) RemoveReference(documentID, employeeID uint) (bool, error) {
	result := r.db.Where("document_id = ? AND employee_id = ?", documentID, employeeID).
		Delete(&model.DocumentReference{})
	return result.RowsAffected > 0, result.Error
}

// ReplaceReferences 重建参阅人列表
func (r *DocumentRepository) ReplaceReferences(documentID uint, employeeIDs []uint) error {
	if err := r.db.Where("document_id = ?", documentID).Delete(&model.DocumentReference{}).Error; err != nil {
		return err
	}
	for _, employeeID := range employeeIDs {
		if err := r.AddReference(documentID, employeeID); err != nil {
			return err
		}
	}
	return nil
}

func (r *DocumentRepository) CreateAttachment(att *model.Attachment) error {
	return r.db.Create(att).Error
}

func (r *DocumentRepository) FindAttachment(documentID, attachmentID uint) (*model.Attachment, error) {
	var att model.Attachment
	err := r.db.Where("id = ? AND document_id = ?", attachmentID, documentID).First(&att).Error
	if err != nil {
		return nil, err
	}
	return &att, nil
}

func (r *DocumentRepository) DeleteAttachment(attachmentID uint) error {
	return r.db.Delete(&model.Attachment{}, "id = ?", attachmentID).Error
}

// AddHistory 追加操作记录
func (r *DocumentRepository) AddHistory(documentID, actorID uint, action model.HistoryAction, comment string) error {
	return r.db.Create(&model.DocumentHistory{
		DocumentID: documentID,
		ActorID:    actorID,
		Action:     action,
		Comment:    comment,
	}).Error
}

func (r *DocumentRepository) ListHistory(documentID uint) ([]model.DocumentHistory, error) {
	var histories []model.DocumentHistory
	err := r.db.Where("document_id = ?", documentID).Order("id ASC").Find(&histories).Error
	return histories, err
}

// FindDueScheduled 返回到期未发布的预约文档ID，按预约时间排序
func (r *DocumentRepository) FindDueScheduled(now time.Time, limit int) ([]uint, error) {
	var ids []uint
	query := r.db.Model(&model.Document{}).
		Where("status = ? AND published = ? AND scheduled_at <= ?", model.DocumentStatusScheduled, false, now).
		Order("scheduled_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Pluck("id", &ids).Error
	return ids, err
}

// likeEscaper 以 ! 作 LIKE 转义符，各方言写法一致
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// escapeLike 关键字按字面匹配
func escapeLike(keyword string) string {
	return likeEscaper.Replace(keyword)
}

// List 按视角分页查询文档
func (r *DocumentRepository) List(filter DocumentFilter) (total int64, docs []model.Document, err error) {
	query := r.db.Model(&model.Document{})
	unsubmitted := []model.DocumentStatus{model.DocumentStatusDraft, model.DocumentStatusScheduled}

	switch filter.Box {
	case BoxPending:
		query = query.Where("status = ? AND current_approver_id = ?", model.DocumentStatusInProgress, filter.EmployeeID)
	case BoxInvolved:
		query = query.Where("status NOT IN ?", unsubmitted).
			Where("id IN (?)", r.db.Model(&model.ApprovalLine{}).Select("document_id").Where("approver_id = ?", filter.EmployeeID))
	case BoxReferenced:
		query = query.Where("status NOT IN ?", unsubmitted).
			Where("id IN (?)", r.db.Model(&model.DocumentReference{}).Select("document_id").Where("employee_id = ?", filter.EmployeeID))
	default:
		query = query.Where("writer_id = ?", filter.EmployeeID)
	}

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Keyword != "" {
		query = query.Where("title LIKE ? ESCAPE '!'", "%"+escapeLike(filter.Keyword)+"%")
	}

	if err = query.Count(&total).Error; err != nil {
		return
	}

	if total == 0 {
		return 0, []model.Document{}, nil
	}

	if filter.PageSize > 0 && filter.Page > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	err = query.Order("updated_at DESC, id DESC").Find(&docs).Error
	return
}
