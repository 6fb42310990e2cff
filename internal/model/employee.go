package model

// Employee 人事服务返回的员工信息
type Employee struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Role       string `json:"role"`
}

// Identity 已验证的调用方身份，来自网关签发的令牌
type Identity struct {
	EmployeeID uint   `json:"employeeId"`
	Email      string `json:"email"`
	Role       string `json:"role"`
}
