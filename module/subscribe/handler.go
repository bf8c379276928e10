package subscribe

import (
	"net/http"

	"PPanel/logger"
	errs "PPanel/tools/errs"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 订阅HTTP入口：GET /sub/:token?format=xxx
type Handler struct {
	svc      *Service
	renderer Renderer
}

func NewHandler(svc *Service, renderer Renderer) *Handler {
	if renderer == nil {
		renderer = ListRenderer{}
	}
	return &Handler{svc: svc, renderer: renderer}
}

// Fetch gin 处理函数
func (h *Handler) Fetch(c *gin.Context) {
	token := c.Param("token")
	rc := requestContextFrom(c)

	cands, acct, err := h.svc.Resolve(c.Request.Context(), token, rc)
	if err != nil {
		writeError(c, err)
		return
	}

	body, contentType, err := h.renderer.Render(c.Query("format"), acct, cands)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, body)
}

// requestContextFrom 从请求头收集客户端信号；缺失字段就是空串。
func requestContextFrom(c *gin.Context) RequestContext {
	return RequestContext{
		SourceAddr:     c.ClientIP(),
		UserAgent:      c.GetHeader("User-Agent"),
		AcceptLanguage: c.GetHeader("Accept-Language"),
		Hints: ClientHints{
			UA:       c.GetHeader("Sec-CH-UA"),
			Platform: c.GetHeader("Sec-CH-UA-Platform"),
			Mobile:   c.GetHeader("Sec-CH-UA-Mobile"),
		},
		Fingerprint:  c.GetHeader("X-Device-Fingerprint"),
		ProtocolHint: c.Query("protocol"),
	}
}

// writeError 错误分类到HTTP状态：
// 令牌无效与生命周期类 403；配置缺口 404；并发超限 429；格式 400；其余 500。
// 出网只带固定文案，Detail 上下文留在服务端日志。
func writeError(c *gin.Context, err error) {
	code := errs.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case errs.SubscriptionNotFoundCode, errs.SubscriptionExpiredCode, errs.DataLimitExceededCode:
		status = http.StatusForbidden
	case errs.NoActiveEndpointsCode:
		status = http.StatusNotFound
	case errs.IPLimitExceededCode, errs.DeviceLimitExceededCode:
		status = http.StatusTooManyRequests
	case errs.UnsupportedFormatCode, errs.ArgsError:
		status = http.StatusBadRequest
	}
	logger.Warn("subscribe request refused",
		zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	c.JSON(status, gin.H{"code": code, "msg": errs.MsgOf(err)})
}
