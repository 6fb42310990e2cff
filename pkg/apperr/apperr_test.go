package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	cause := errors.New("dial tcp: refused")

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", NotFound("文档不存在"), http.StatusNotFound},
		{"forbidden", Forbidden("无权查看"), http.StatusForbidden},
		{"bad request", BadRequest("参数错误"), http.StatusBadRequest},
		{"conflict", Conflict("文档已被修改"), http.StatusConflict},
		{"upstream", Upstream(cause, "人事服务不可用"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("approve: %w", Forbidden("不是当前审批人")), http.StatusForbidden},
		{"plain error", cause, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, StatusOf(tt.err))
		})
	}
}

func TestMessageHidesInternalCause(t *testing.T) {
	err := Upstream(errors.New("secret dsn"), "人事服务不可用")
	assert.Equal(t, "人事服务不可用", MessageOf(err))
	assert.Contains(t, err.Error(), "secret dsn")
	assert.Equal(t, "服务内部错误", MessageOf(errors.New("boom")))
}

func TestWrapKeepsStatus(t *testing.T) {
	base := NotFound("模板不存在")
	wrapped := base.Wrap(errors.New("record not found"))

	assert.True(t, Is(wrapped, http.StatusNotFound))
	assert.False(t, Is(wrapped, http.StatusBadRequest))
	assert.ErrorContains(t, wrapped, "record not found")
}
