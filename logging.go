// Logging helpers for RxGo
// 诊断日志与panic上报
package rxgo

import (
	"context"
	"log/slog"
)

// logger 返回配置的日志记录器，未配置时使用slog默认记录器
func (c *Config) logger() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// report 上报被恢复的panic，不会向调用方传播
func (c *Config) report(component, kind string, err error) {
	if c != nil && c.ErrorReporter != nil {
		c.ErrorReporter(err)
		return
	}
	c.logger().LogAttrs(context.Background(), slog.LevelError, "recovered panic",
		slog.String("component", component),
		slog.String("kind", kind),
		slog.Any("panic", err),
	)
}

// debug 记录调试日志
func (c *Config) debug(msg string, attrs ...slog.Attr) {
	c.logger().LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
}
