package middleware

import (
	"net/http"
	"time"

	"PPanel/logger"
	errs "PPanel/tools/errs"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 配置选项
type RouteOpt struct {
	AccessLog bool
}

// 封装 GET
func GET(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.AccessLog {
		r.GET(path, AccessLog(), handler)
	} else {
		r.GET(path, handler)
	}
}

// 封装 POST
func POST(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.AccessLog {
		r.POST(path, AccessLog(), handler)
	} else {
		r.POST(path, handler)
	}
}

// Recovery handler panic 转 CodeError 记日志，返回 500
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				err := errs.ErrPanic(r)
				logger.Error("handler panic", zap.String("path", c.FullPath()), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"code": errs.ServerInternalError,
					"msg":  "internal error",
				})
			}
		}()
		c.Next()
	}
}

// AccessLog 访问日志
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("access",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("cost", time.Since(start)),
		)
	}
}
