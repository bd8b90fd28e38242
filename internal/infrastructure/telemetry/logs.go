package telemetry

import (
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.uber.org/zap/zapcore"
)

// NewZapCore bridges zap entries at or above level to the OpenTelemetry log
// pipeline, to be teed next to the console core with logger.WithCore. Without
// a logger provider it returns a core that drops everything.
func NewZapCore(p *Providers, serviceName string, level zapcore.Level) zapcore.Core {
	if p == nil || p.Logger == nil {
		return zapcore.NewNopCore()
	}
	bridge := otelzap.NewCore(serviceName, otelzap.WithLoggerProvider(p.Logger))
	core, err := zapcore.NewIncreaseLevelCore(bridge, level)
	if err != nil {
		// the bridge already filters above level
		return bridge
	}
	return core
}
