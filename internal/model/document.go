package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// DocumentStatus 文档状态
type DocumentStatus string

const (
	DocumentStatusDraft      DocumentStatus = "DRAFT"       // 草稿，仅作者可见可改
	DocumentStatusScheduled  DocumentStatus = "SCHEDULED"   // 预约提交，到点由调度任务提交
	DocumentStatusInProgress DocumentStatus = "IN_PROGRESS" // 审批中
	DocumentStatusApproved   DocumentStatus = "APPROVED"    // 全部审批通过
	DocumentStatusRejected   DocumentStatus = "REJECTED"    // 被驳回，可修改后重新提交
	DocumentStatusRecalled   DocumentStatus = "RECALLED"    // 作者撤回，可修改后重新提交
)

// Editable 作者可以修改内容的状态
func (s DocumentStatus) Editable() bool {
	return s == DocumentStatusDraft || s == DocumentStatusRecalled || s == DocumentStatusRejected
}

// Valid 是否为已定义的状态
func (s DocumentStatus) Valid() bool {
	switch s {
	case DocumentStatusDraft, DocumentStatusScheduled, DocumentStatusInProgress,
		DocumentStatusApproved, DocumentStatusRejected, DocumentStatusRecalled:
		return true
	}
	return false
}

// Document 审批文档
type Document struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	DocumentNumber string         `gorm:"type:varchar(50);uniqueIndex" json:"document_number"`
	TemplateID     *uint          `gorm:"index" json:"template_id,omitempty"`
	WriterID       uint           `gorm:"not null;index" json:"writer_id"`
	WriterEmail    string         `gorm:"type:varchar(100)" json:"writer_email"`
	Title          string         `gorm:"type:varchar(200);not null" json:"title"`
	Body           string         `gorm:"type:text" json:"body"`
	Status         DocumentStatus `gorm:"type:varchar(20);default:DRAFT;not null;index" json:"status"`
	Detail         datatypes.JSON `gorm:"type:json" json:"detail"`

	CurrentApproverID *uint `gorm:"index" json:"current_approver_id,omitempty"`

	// 预约提交
	ScheduledAt *time.Time `gorm:"index" json:"scheduled_at,omitempty"`
	Published   bool       `gorm:"default:false;index" json:"published"`

	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	ReturnedAt  *time.Time `json:"returned_at,omitempty"`
	RecalledAt  *time.Time `json:"recalled_at,omitempty"`

	// 催办
	ReminderCount  int        `gorm:"default:0" json:"reminder_count"`
	LastRemindedAt *time.Time `json:"last_reminded_at,omitempty"`

	// Version 乐观锁版本号，每次状态变更递增
	Version int `gorm:"default:1;not null" json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Lines       []ApprovalLine      `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
	Attachments []Attachment        `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"attachments,omitempty"`
	References  []DocumentReference `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"references,omitempty"`
}

// TableName 指定表名
func (Document) TableName() string {
	return "documents"
}

// DocumentDetail detail 列中与服务端相关的字段，其余字段原样保留给前端渲染
type DocumentDetail struct {
	References  []DetailReference `json:"references"`
	Attachments []DetailFile      `json:"attachments,omitempty"`
}

// DetailReference 参阅人
type DetailReference struct {
	EmployeeID uint `json:"employeeId"`
}

// DetailFile 表单内嵌的附件
type DetailFile struct {
	FileName string `json:"fileName"`
	URL      string `json:"url"`
}

// ParseDetail 解析 detail 列，空值返回零值
func (d *Document) ParseDetail() (DocumentDetail, error) {
	var detail DocumentDetail
	if len(d.Detail) == 0 {
		return detail, nil
	}
	if err := json.Unmarshal(d.Detail, &detail); err != nil {
		return detail, err
	}
	return detail, nil
}

// SetDetailReferences 以参阅人表为准重写 detail.references，保留其他字段
func (d *Document) SetDetailReferences(employeeIDs []uint) error {
	raw := map[string]json.RawMessage{}
	if len(d.Detail) > 0 {
		if err := json.Unmarshal(d.Detail, &raw); err != nil {
			return err
		}
	}

	refs := make([]DetailReference, 0, len(employeeIDs))
	for _, id := range employeeIDs {
		refs = append(refs, DetailReference{EmployeeID: id})
	}
	encoded, err := json.Marshal(refs)
	if err != nil {
		return err
	}
	raw["references"] = encoded

	merged, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	d.Detail = datatypes.JSON(merged)
	return nil
}

// FormData 返回去掉服务端字段后的表单数据，用于模板校验
func (d *Document) FormData() (map[string]interface{}, error) {
	data := map[string]interface{}{}
	if len(d.Detail) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(d.Detail, &data); err != nil {
		return nil, err
	}
	delete(data, "references")
	delete(data, "attachments")
	return data, nil
}

// IsWriter 是否为作者
func (d *Document) IsWriter(employeeID uint) bool {
	return d.WriterID == employeeID
}

// IsApprover 是否在审批线中（需预加载 Lines）
func (d *Document) IsApprover(employeeID uint) bool {
	for _, line := range d.Lines {
		if line.ApproverID == employeeID {
			return true
		}
	}
	return false
}

// IsReference 是否为参阅人（需预加载 References）
func (d *Document) IsReference(employeeID uint) bool {
	for _, ref := range d.References {
		if ref.EmployeeID == employeeID {
			return true
		}
	}
	return false
}

// Submitted 是否已经进入过审批流程
func (d *Document) Submitted() bool {
	return d.Status != DocumentStatusDraft && d.Status != DocumentStatusScheduled
}

// CanView 作者始终可以查看；审批人、参阅人在文档提交后可以查看
func (d *Document) CanView(employeeID uint) bool {
	if d.IsWriter(employeeID) {
		return true
	}
	if !d.Submitted() {
		return false
	}
	return d.IsApprover(employeeID) || d.IsReference(employeeID)
}

// HasFile 请求的存储地址是否属于本文档（附件表或 detail 内嵌附件）
func (d *Document) HasFile(storageURL string) bool {
	for _, att := range d.Attachments {
		if att.StorageURL == storageURL {
			return true
		}
	}
	detail, err := d.ParseDetail()
	if err != nil {
		return false
	}
	for _, f := range detail.Attachments {
		if f.URL == storageURL {
			return true
		}
	}
	return false
}

// FileName 返回存储地址对应的文件名
func (d *Document) FileName(storageURL string) string {
	for _, att := range d.Attachments {
		if att.StorageURL == storageURL {
			return att.FileName
		}
	}
	if detail, err := d.ParseDetail(); err == nil {
		for _, f := range detail.Attachments {
			if f.URL == storageURL {
				return f.FileName
			}
		}
	}
	return ""
}

// CurrentLine 返回当前待审批的审批线（序号最小的 PENDING 项）
func (d *Document) CurrentLine() *ApprovalLine {
	var current *ApprovalLine
	for i := range d.Lines {
		line := &d.Lines[i]
		if line.Status != ApprovalLineStatusPending {
			continue
		}
		if current == nil || line.Sequence < current.Sequence {
			current = line
		}
	}
	return current
}
