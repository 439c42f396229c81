package core

import "github.com/rushteam/feedkit/pkg/utils"

// FeedContext 承载用户/场景/实时信息，贯穿整条 Feed 链路透传。
type FeedContext struct {
	UserID   string
	DeviceID string
	Scene    string

	// Params 请求级上下文参数，例如 page_size、weight_version、实时特征等。
	Params map[string]any

	// Labels 是请求级标签，用于解释与观测（例如 degraded、sources_failed）。
	Labels map[string]utils.Label
}

// PutLabel 写入请求级 Label。
func (fctx *FeedContext) PutLabel(key string, lbl utils.Label) {
	if fctx.Labels == nil {
		fctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := fctx.Labels[key]; ok {
		fctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	fctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (fctx *FeedContext) GetLabel(key string) (utils.Label, bool) {
	if fctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := fctx.Labels[key]
	return lbl, ok
}
