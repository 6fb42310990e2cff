package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	TemplateStatusActive   = "active"
	TemplateStatusInactive = "inactive"
)

// TemplateCategory 表单模板分类
type TemplateCategory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:varchar(255)" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (TemplateCategory) TableName() string {
	return "template_categories"
}

// Template 表单模板，Schema 为 JSON Schema，前端据此渲染输入表单
type Template struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CategoryID  *uint          `gorm:"index" json:"category_id,omitempty"`
	Name        string         `gorm:"type:varchar(100);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Schema      datatypes.JSON `gorm:"column:schema;type:json;not null" json:"schema"`
	Status      string         `gorm:"type:varchar(20);default:active" json:"status"`
	Version     int            `gorm:"default:1;not null" json:"version"`
	CreatedBy   uint           `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	Category *TemplateCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// TableName 指定表名
func (Template) TableName() string {
	return "templates"
}
