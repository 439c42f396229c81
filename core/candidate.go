package core

import (
	"time"

	"github.com/rushteam/feedkit/pkg/utils"
)

// SourceID 标识候选内容的召回来源。
type SourceID string

const (
	SourceFollowees SourceID = "followees" // 关注流：用户关注的作者发布的内容
	SourceTrending  SourceID = "trending"  // 热门流：全局热门内容（与用户无关）
	SourceAffinity  SourceID = "affinity"  // 兴趣流：协同过滤类的个性化推荐
)

// RawSignals 是分析存储中预聚合的原始互动计数。
type RawSignals struct {
	Likes       int64   `json:"likes"`
	Comments    int64   `json:"comments"`
	Shares      int64   `json:"shares"`
	Impressions int64   `json:"impressions"`
	Completion  float64 `json:"completion"` // 平均完播率，[0,1]
}

// Candidate 是 Feed 链路中的统一承载结构：原始信号、子分、综合分、标签。
// 一次请求内由 rank.Engine 产出 Combined 后视为不可变；权重变化时整体重算，
// 绝不原地修改单个字段。
type Candidate struct {
	ContentID string
	AuthorID  string
	Source    SourceID
	Raw       RawSignals

	// 子分，统一归一化到 [0,1]
	Freshness  float64
	Engagement float64
	Affinity   float64

	// ModelSignal 是可选的模型打分；缺失时按 0 参与加权，不报错。
	ModelSignal *float64

	// Combined 由 rank.Engine 根据当前权重版本计算，是其余字段的确定性函数。
	Combined float64

	CreatedAt time.Time
	Labels    map[string]utils.Label
}

func NewCandidate(contentID string, source SourceID) *Candidate {
	return &Candidate{
		ContentID: contentID,
		Source:    source,
		Labels:    make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (c *Candidate) PutLabel(key string, lbl utils.Label) {
	if c.Labels == nil {
		c.Labels = make(map[string]utils.Label)
	}
	if old, ok := c.Labels[key]; ok {
		c.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	c.Labels[key] = lbl
}
