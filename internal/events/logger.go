package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/logger"
	"go.uber.org/zap"
)

// zapAdapter 把 watermill 日志写入全局 zap 日志
type zapAdapter struct {
	fields watermill.LogFields
}

func NewZapAdapter() watermill.LoggerAdapter {
	return &zapAdapter{}
}

func (a *zapAdapter) Error(msg string, err error, fields watermill.LogFields) {
	logger.Error("[Watermill] "+msg, append(a.zapFields(fields), zap.Error(err))...)
}

func (a *zapAdapter) Info(msg string, fields watermill.LogFields) {
	logger.Info("[Watermill] "+msg, a.zapFields(fields)...)
}

func (a *zapAdapter) Debug(msg string, fields watermill.LogFields) {
	if logger.Logger != nil {
		logger.Logger.Debug("[Watermill] "+msg, a.zapFields(fields)...)
	}
}

func (a *zapAdapter) Trace(msg string, fields watermill.LogFields) {
	a.Debug(msg, fields)
}

func (a *zapAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &zapAdapter{fields: a.fields.Add(fields)}
}

func (a *zapAdapter) zapFields(fields watermill.LogFields) []zap.Field {
	all := a.fields.Add(fields)
	out := make([]zap.Field, 0, len(all))
	for k, v := range all {
		out = append(out, zap.Any(k, v))
	}
	return out
}
