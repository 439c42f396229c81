package rank

import (
	"math"
	"sort"
	"time"

	"github.com/rushteam/feedkit/core"
)

// Engine 是纯函数式打分引擎：无 I/O、无共享可变状态，
// 相同输入（候选 + 权重 + 时钟）必然得到相同输出。
//
// combined = w.freshness*freshness + w.completion*completion +
//            w.engagement*engagement + w.affinity*affinity +
//            w.model_signal*model_signal
//
// 各子分先独立归一化到 [0,1] 再加权。新鲜度随内容年龄单调衰减：
// 其他信号相同时，旧内容的得分永远不高于新内容。
type Engine struct {
	// DecayHours 是新鲜度指数衰减的时间常数（小时）。
	// freshness = exp(-age_hours/DecayHours)，0h=1.0，24h≈0.37，48h≈0.14。
	DecayHours float64

	// MinFreshness 是新鲜度下限，避免长尾内容彻底归零。
	MinFreshness float64

	// Now 用于注入时钟（测试用）；nil 时使用 time.Now。
	Now func() time.Time
}

// NewEngine 返回默认配置的引擎：24 小时衰减常数，下限 0.05。
func NewEngine() *Engine {
	return &Engine{
		DecayHours:   24,
		MinFreshness: 0.05,
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Score 计算单个候选的综合分（同时回填各子分与 Combined）。
func (e *Engine) Score(c *core.Candidate, w Weights) float64 {
	return e.score(c, w, e.now())
}

func (e *Engine) score(c *core.Candidate, w Weights, now time.Time) float64 {
	freshness := e.freshness(c.CreatedAt, now)
	completion := clamp01(c.Raw.Completion)
	engagement := e.engagement(c)
	affinity := clamp01(c.Affinity)

	// 缺失的模型分按 0 参与加权，不报错
	var model float64
	if c.ModelSignal != nil {
		model = clamp01(*c.ModelSignal)
	}

	combined := w.Freshness*freshness +
		w.Completion*completion +
		w.Engagement*engagement +
		w.Affinity*affinity +
		w.ModelSignal*model

	c.Freshness = freshness
	c.Engagement = engagement
	c.Affinity = affinity
	c.Combined = combined
	return combined
}

// ScoreBatch 批量打分并按综合分降序排序。
// 整批使用同一时刻快照，保证批内确定性；
// 同分按 ContentID 升序打破平局，重复计算结果可复现。
func (e *Engine) ScoreBatch(cands []*core.Candidate, w Weights) []*core.Candidate {
	now := e.now()
	for _, c := range cands {
		if c == nil {
			continue
		}
		e.score(c, w, now)
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i] == nil {
			return false
		}
		if cands[j] == nil {
			return true
		}
		if cands[i].Combined != cands[j].Combined {
			return cands[i].Combined > cands[j].Combined
		}
		return cands[i].ContentID < cands[j].ContentID
	})
	return cands
}

// freshness 计算归一化新鲜度。未来时间戳按刚发布处理。
func (e *Engine) freshness(createdAt, now time.Time) float64 {
	if createdAt.IsZero() {
		return e.MinFreshness
	}
	age := now.Sub(createdAt)
	if age < 0 {
		age = 0
	}
	f := math.Exp(-age.Hours() / e.DecayHours)
	if f < e.MinFreshness {
		f = e.MinFreshness
	}
	return f
}

// engagement 归一化互动子分。
// 候选源预计算了 Engagement 时直接采用；否则用加权互动率推导：
// (likes + 2*comments + 3*shares) / impressions，再截断到 [0,1]。
func (e *Engine) engagement(c *core.Candidate) float64 {
	if c.Engagement > 0 {
		return clamp01(c.Engagement)
	}
	if c.Raw.Impressions <= 0 {
		return 0
	}
	rate := float64(c.Raw.Likes+2*c.Raw.Comments+3*c.Raw.Shares) / float64(c.Raw.Impressions)
	return clamp01(rate)
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
