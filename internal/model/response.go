package model

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/apperr"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/logger"
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(data interface{}) Response {
	return Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

func Error(code int, message string) Response {
	return Response{
		Code:    code,
		Message: message,
	}
}

// HandleError 统一错误处理函数，记录详细日志并返回错误响应
// 状态码和对外消息取自 apperr.Error，其他错误按 500 处理
func HandleError(c *gin.Context, err error, context ...string) {
	code := apperr.StatusOf(err)

	requestMethod := c.Request.Method
	requestPath := c.Request.URL.Path
	requestQuery := c.Request.URL.RawQuery
	clientIP := c.ClientIP()

	employeeID := ""
	email := ""
	if uid, exists := c.Get("employee_id"); exists {
		employeeID = fmt.Sprintf("%v", uid)
	}
	if e, exists := c.Get("email"); exists {
		email = fmt.Sprintf("%v", e)
	}

	fullURL := requestPath
	if requestQuery != "" {
		fullURL = fmt.Sprintf("%s?%s", requestPath, requestQuery)
	}

	errorMsg := err.Error()
	if len(context) > 0 {
		errorMsg = fmt.Sprintf("%s: %v", context[0], err)
	}

	if code >= 500 {
		logger.Errorf(
			"Request error [%d]: %v\n"+
				"  Request: %s %s\n"+
				"  Client IP: %s\n"+
				"  Employee ID: %s\n"+
				"  Email: %s",
			code, errorMsg, requestMethod, fullURL, clientIP, employeeID, email,
		)
	} else {
		logger.Warnf("Request rejected [%d]: %v (%s %s, employee=%s)",
			code, errorMsg, requestMethod, fullURL, employeeID)
	}

	c.AbortWithStatusJSON(code, Error(code, apperr.MessageOf(err)))
}

// PaginatedResponse 分页响应
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// NewPaginatedResponse 构建分页响应
func NewPaginatedResponse(data interface{}, total int64, page, pageSize int) PaginatedResponse {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// Pagination 分页参数
type Pagination struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// Normalize 规范分页参数，默认第1页每页20条，最大100条
func (p *Pagination) Normalize() {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

// Offset 计算偏移量
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}
