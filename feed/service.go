package feed

import (
	"context"
	"time"

	"github.com/rushteam/feedkit/cache"
	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/feedback"
	"github.com/rushteam/feedkit/filter"
	"github.com/rushteam/feedkit/rank"
	"github.com/rushteam/feedkit/recall"
)

// SignalProvider 为候选批量补充模型分（例如 feast.ModelSignalProvider）。
// 失败只损失一个信号项，不阻断出页。
type SignalProvider interface {
	Attach(ctx context.Context, cands []*core.Candidate) error
}

// Request 是一次取 Feed 的请求。
type Request struct {
	UserID   string
	Cursor   string // 上一页返回的 next_cursor；空串取首页
	PageSize int

	// WeightVersion 指定权重版本（AB 对比用）；为空时使用 active 版本。
	WeightVersion string
}

// Item 是响应中的单条内容。
type Item struct {
	ContentID string  `json:"content_id"`
	Score     float64 `json:"score"`
}

// Page 是一页 Feed 响应。
// Degraded 表示本次聚合期间至少一个候选源失败——结果可用但不完整，
// 显式告知调用方而不是藏起来。
type Page struct {
	Items         []Item `json:"items"`
	NextCursor    string `json:"next_cursor"`
	Degraded      bool   `json:"degraded"`
	WeightVersion string `json:"weight_version"`
	FromCache     bool   `json:"-"`
}

// Service 是 Feed 编排门面，按固定状态机处理每个请求：
//
//	CacheCheck → CacheHit → Done
//	CacheCheck → CacheMiss → Aggregate → Rank → Dedup → PersistCache → Done
//
// 缓存只影响延迟：缓存后端不可用时跳过 CacheCheck/PersistCache，
// 直接计算出一页正确结果。
type Service struct {
	Aggregator *recall.Aggregator
	Engine     *rank.Engine
	Weights    *rank.WeightSet

	// Served 是曝光窗口；nil 时关闭去重（测试/演示用）。
	Served *filter.ServedStore

	// Filters 是策略过滤器链（CEL 规则等），在曝光去重之后执行。
	Filters []filter.Filter

	// Cache 是整页缓存；nil 时每次直接计算。
	Cache *cache.FeedCache

	// Signals 可选的模型分来源（feast）。
	Signals SignalProvider

	// Collector 承接互动事件上报；RecordImpressions 为 true 时
	// 出页后自动记一条 view 事件闭环曝光计数。
	Collector         feedback.Collector
	RecordImpressions bool

	// DefaultPageSize 默认 20；MaxPageSize 默认 100。
	DefaultPageSize int
	MaxPageSize     int

	// CacheTimeout 是缓存读写的独立超时，默认 200ms，
	// 让慢缓存只拖慢、不拖垮。
	CacheTimeout time.Duration
}

func (s *Service) pageSize(req Request) int {
	size := req.PageSize
	if size <= 0 {
		size = s.DefaultPageSize
	}
	if size <= 0 {
		size = 20
	}
	max := s.MaxPageSize
	if max <= 0 {
		max = 100
	}
	if size > max {
		size = max
	}
	return size
}

func (s *Service) cacheTimeout() time.Duration {
	if s.CacheTimeout > 0 {
		return s.CacheTimeout
	}
	return 200 * time.Millisecond
}

// GetFeed 产出一页个性化、去重、缓存加速的排序结果。
// 唯一对调用方可见的失败形态是"一条候选都拿不到"，
// 此时返回空页并置 degraded=true，而不是错误——空 Feed 是合法状态。
func (s *Service) GetFeed(ctx context.Context, req Request) (*Page, error) {
	if req.UserID == "" {
		return nil, core.NewDomainError(core.ModuleFeed, core.ErrorCodeInvalidInput, "feed: user_id is required")
	}

	weights, err := s.resolveWeights(req.WeightVersion)
	if err != nil {
		return nil, err
	}

	cur, err := decodeCursor(req.Cursor)
	if err != nil {
		return nil, err
	}

	// CacheCheck：命中未过期页直接返回；缓存故障视同未命中
	if cached := s.cacheGet(ctx, req.UserID, weights.Version, req.Cursor); cached != nil {
		return cached, nil
	}

	// CacheMiss：Aggregate → Rank → Dedup → PersistCache
	fctx := &core.FeedContext{UserID: req.UserID}
	agg, err := s.Aggregator.Aggregate(ctx, fctx)
	if err != nil {
		return nil, err
	}

	if len(agg.Candidates) == 0 {
		// ALL_SOURCES_FAILED（或候选池为空）：出一页空的降级结果。
		// 不缓存：下个请求应该再试一次完整计算
		return &Page{Items: []Item{}, Degraded: true, WeightVersion: weights.Version}, nil
	}

	if s.Signals != nil {
		_ = s.Signals.Attach(ctx, agg.Candidates)
	}

	scored := s.Engine.ScoreBatch(agg.Candidates, weights)
	visible := s.applyFilters(ctx, fctx, scored)

	// 沿 cursor 推进到上一页之后
	if cur != nil {
		trimmed := visible[:0]
		for _, c := range visible {
			if cur.after(c.Combined, c.ContentID) {
				trimmed = append(trimmed, c)
			}
		}
		visible = trimmed
	}

	size := s.pageSize(req)
	pageCands := visible
	if len(pageCands) > size {
		pageCands = pageCands[:size]
	}

	page := &Page{
		Items:         make([]Item, 0, len(pageCands)),
		Degraded:      agg.Degraded,
		WeightVersion: weights.Version,
	}
	ids := make([]string, 0, len(pageCands))
	for _, c := range pageCands {
		page.Items = append(page.Items, Item{ContentID: c.ContentID, Score: c.Combined})
		ids = append(ids, c.ContentID)
	}
	if len(visible) > size && len(pageCands) > 0 {
		last := pageCands[len(pageCands)-1]
		page.NextCursor = encodeCursor(last.Combined, last.ContentID)
	}

	// 出页成功后的副作用：写曝光窗口、记曝光事件。
	// 窗口写失败只意味着可能重复曝光，不影响本次响应
	if s.Served != nil && len(ids) > 0 {
		_ = s.Served.MarkServed(ctx, req.UserID, ids)
	}
	if s.RecordImpressions && s.Collector != nil {
		now := time.Now().Unix()
		for _, c := range pageCands {
			_ = s.Collector.Record(ctx, feedback.Event{
				UserID:    req.UserID,
				ContentID: c.ContentID,
				AuthorID:  c.AuthorID,
				Type:      feedback.EventView,
				Timestamp: now,
			})
		}
	}

	// PersistCache：完整计算成功后才写；降级页不缓存。
	// 请求取消不应废弃已算好的页，对下一个请求者仍然有效
	if !page.Degraded {
		s.cacheSet(context.WithoutCancel(ctx), req, weights.Version, page)
	}
	return page, nil
}

// RecordEngagement 把互动事件投入反馈通道（fire-and-forget）。
// 反馈链路与读路径只通过共享存储耦合，这里绝不同步更新任何聚合。
func (s *Service) RecordEngagement(ctx context.Context, ev feedback.Event) error {
	if s.Collector == nil {
		return core.NewDomainError(core.ModuleFeed, core.ErrorCodeNotSupported, "feed: no engagement collector configured")
	}
	return s.Collector.Record(ctx, ev)
}

// Invalidate 清掉用户的全部缓存页。
// 由内容创作链路在用户自己的内容变更时调用。
func (s *Service) Invalidate(ctx context.Context, userID string) error {
	if s.Cache == nil {
		return nil
	}
	return s.Cache.Invalidate(ctx, userID)
}

func (s *Service) resolveWeights(version string) (rank.Weights, error) {
	if s.Weights == nil {
		return rank.DefaultWeights(), nil
	}
	if version == "" {
		return s.Weights.Active(), nil
	}
	w, ok := s.Weights.Get(version)
	if !ok {
		return rank.Weights{}, core.NewDomainError(core.ModuleFeed, core.ErrorCodeInvalidInput, "feed: unknown weight version: "+version)
	}
	return w, nil
}

func (s *Service) cacheGet(ctx context.Context, userID, version, cursorStr string) *Page {
	if s.Cache == nil {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, s.cacheTimeout())
	defer cancel()

	cached, err := s.Cache.Get(cctx, userID, version, cursorStr)
	if err != nil || cached == nil {
		// CACHE_UNAVAILABLE 或未命中：走直接计算
		return nil
	}

	page := &Page{
		Items:         make([]Item, 0, len(cached.Items)),
		NextCursor:    cached.NextCursor,
		Degraded:      cached.Degraded,
		WeightVersion: cached.WeightVersion,
		FromCache:     true,
	}
	for _, it := range cached.Items {
		page.Items = append(page.Items, Item{ContentID: it.ContentID, Score: it.Score})
	}
	return page
}

func (s *Service) cacheSet(ctx context.Context, req Request, version string, page *Page) {
	if s.Cache == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, s.cacheTimeout())
	defer cancel()

	cp := &cache.Page{
		UserID:        req.UserID,
		WeightVersion: version,
		Cursor:        req.Cursor,
		Items:         make([]cache.PageItem, 0, len(page.Items)),
		NextCursor:    page.NextCursor,
		Degraded:      page.Degraded,
		GeneratedAt:   time.Now(),
	}
	for _, it := range page.Items {
		cp.Items = append(cp.Items, cache.PageItem{ContentID: it.ContentID, Score: it.Score})
	}
	_ = s.Cache.Set(cctx, cp)
}

// applyFilters 先做曝光窗口批量去重，再跑策略过滤器链。
// 两者都是只读判定；任何过滤器出错按保留处理
func (s *Service) applyFilters(ctx context.Context, fctx *core.FeedContext, cands []*core.Candidate) []*core.Candidate {
	out := cands
	if s.Served != nil {
		sf := &filter.ServedFilter{History: s.Served}
		out = sf.Filter(ctx, fctx, out)
	}
	if len(s.Filters) > 0 {
		node := &filter.Node{Filters: s.Filters}
		filtered, err := node.Process(ctx, fctx, out)
		if err == nil {
			out = filtered
		}
	}
	return out
}
