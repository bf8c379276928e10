package errs

// ===== 通用错误码 =====
const (
	ServerInternalError = 500  // 服务器内部错误
	ArgsError           = 1001 // 参数错误
	RecordNotFoundError = 1002 // 记录不存在
)

// ===== 订阅解析 / 准入错误码 =====
const (
	SubscriptionNotFoundCode = 1201 // 订阅令牌无效或账号不存在
	SubscriptionExpiredCode  = 1202 // 订阅已过期
	DataLimitExceededCode    = 1203 // 流量配额已用尽
	NoActiveEndpointsCode    = 1204 // 无可用节点
	IPLimitExceededCode      = 1205 // 源IP并发数超限
	DeviceLimitExceededCode  = 1206 // 设备并发数超限
	UnsupportedFormatCode    = 1207 // 不支持的订阅输出格式
)

var (
	ErrInternalServer = NewCodeError(ServerInternalError, "ServerInternalError")
	ErrArgs           = NewCodeError(ArgsError, "ArgsError")
	ErrRecordNotFound = NewCodeError(RecordNotFoundError, "RecordNotFoundError")

	ErrSubscriptionNotFound = NewCodeError(SubscriptionNotFoundCode, "SubscriptionNotFound")
	ErrSubscriptionExpired  = NewCodeError(SubscriptionExpiredCode, "SubscriptionExpired")
	ErrDataLimitExceeded    = NewCodeError(DataLimitExceededCode, "DataLimitExceeded")
	ErrNoActiveEndpoints    = NewCodeError(NoActiveEndpointsCode, "NoActiveEndpoints")
	ErrIPLimitExceeded      = NewCodeError(IPLimitExceededCode, "IpLimitExceeded")
	ErrDeviceLimitExceeded  = NewCodeError(DeviceLimitExceededCode, "DeviceLimitExceeded")
	ErrUnsupportedFormat    = NewCodeError(UnsupportedFormatCode, "UnsupportedFormat")
)
