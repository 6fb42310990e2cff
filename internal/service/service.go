// Package service 提供统一的 service 导出
// 所有 service 按功能模块分类到子目录中
package service

import (
	// Access services
	accessService "github.com/kimjiwon0450/Back-HRHub-sub000/internal/service/access"
	// Approval services
	approvalService "github.com/kimjiwon0450/Back-HRHub-sub000/internal/service/approval"
	// Auth services
	authService "github.com/kimjiwon0450/Back-HRHub-sub000/internal/service/auth"
	// Template services
	templateService "github.com/kimjiwon0450/Back-HRHub-sub000/internal/service/template"
)

// Auth services
type TokenService = authService.TokenService
type Claims = authService.Claims

var NewTokenService = authService.NewTokenService

// Approval services
type ApprovalService = approvalService.Service
type DocumentInput = approvalService.DocumentInput
type CreateCommand = approvalService.CreateCommand

var NewApprovalService = approvalService.NewService

// Access services
type AccessService = accessService.Service
type PresignRequest = accessService.PresignRequest

var NewAccessService = accessService.NewService

// Template services
type TemplateService = templateService.Service

var NewTemplateService = templateService.NewService
