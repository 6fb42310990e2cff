package model

import "time"

// Attachment 文档附件
type Attachment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	DocumentID  uint      `gorm:"not null;index" json:"document_id"`
	FileName    string    `gorm:"type:varchar(255);not null" json:"file_name"`
	StorageURL  string    `gorm:"type:varchar(1000);not null" json:"storage_url"`
	ContentType string    `gorm:"type:varchar(100)" json:"content_type"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// TableName 指定表名
func (Attachment) TableName() string {
	return "document_attachments"
}

// DocumentReference 参阅人（抄送），只读访问文档
type DocumentReference struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID uint      `gorm:"not null;uniqueIndex:uk_document_reference" json:"document_id"`
	EmployeeID uint      `gorm:"not null;uniqueIndex:uk_document_reference;index" json:"employee_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName 指定表名
func (DocumentReference) TableName() string {
	return "document_references"
}
