package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 使用场景：
//   - Store 错误：NOT_FOUND, NOT_SUPPORTED
//   - 召回错误：SOURCE_TIMEOUT, SOURCE_UNAVAILABLE, ALL_SOURCES_FAILED
//   - 缓存错误：CACHE_UNAVAILABLE
//   - 配置错误：INVALID_WEIGHTS
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "SOURCE_TIMEOUT"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "recall", "cache"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	// 通用错误代码
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误

	// 召回错误代码（单源失败不致命，Aggregator 记录后继续）
	ErrorCodeSourceTimeout     = "SOURCE_TIMEOUT"      // 单个召回源超时
	ErrorCodeSourceUnavailable = "SOURCE_UNAVAILABLE"  // 单个召回源不可用
	ErrorCodeAllSourcesFailed  = "ALL_SOURCES_FAILED"  // 所有召回源失败（返回空的降级页）

	// 缓存错误代码（永不致命，回退为直接计算）
	ErrorCodeCacheUnavailable = "CACHE_UNAVAILABLE"

	// 权重配置错误代码（加载时致命，绝不带病上线）
	ErrorCodeInvalidWeights = "INVALID_WEIGHTS"
)

// 模块名称常量
const (
	ModuleStore    = "store"    // 存储模块
	ModuleRecall   = "recall"   // 召回模块
	ModuleRank     = "rank"     // 排序模块
	ModuleCache    = "cache"    // 缓存模块
	ModuleFeed     = "feed"     // 编排模块
	ModuleFeedback = "feedback" // 反馈模块
)

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsSourceTimeout 检查错误是否为召回源超时
func IsSourceTimeout(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeSourceTimeout
	}
	return false
}

// IsSourceUnavailable 检查错误是否为召回源不可用
func IsSourceUnavailable(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeSourceUnavailable
	}
	return false
}

// IsAllSourcesFailed 检查错误是否为所有召回源失败
func IsAllSourcesFailed(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeAllSourcesFailed
	}
	return false
}

// IsCacheUnavailable 检查错误是否为缓存不可用
func IsCacheUnavailable(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeCacheUnavailable
	}
	return false
}

// IsInvalidWeights 检查错误是否为权重配置非法
func IsInvalidWeights(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeInvalidWeights
	}
	return false
}
