package recall

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rushteam/feedkit/core"
)

// Source 表示一个可复用的候选源（关注流/热门流/兴趣流/...）。
// 你可以把它理解为“可并发 fan-out 的策略单元”。
// Fetch 必须是只读的：候选源绝不产生副作用。
type Source interface {
	Name() string
	ID() core.SourceID
	Fetch(ctx context.Context, fctx *core.FeedContext, limit int) ([]*core.Candidate, error)
}

// candidateRow 是分析存储中预计算的候选行（JSON 编码）。
// 上游离线/近线任务按秒到分钟级的节奏刷新这些行；
// 反馈链路只通过覆盖 stats hash 的方式参与，见 applyLiveStats。
type candidateRow struct {
	ContentID   string   `json:"content_id"`
	AuthorID    string   `json:"author_id"`
	Likes       int64    `json:"likes"`
	Comments    int64    `json:"comments"`
	Shares      int64    `json:"shares"`
	Impressions int64    `json:"impressions"`
	Completion  float64  `json:"completion"`
	Engagement  float64  `json:"engagement"`
	Affinity    float64  `json:"affinity"`
	ModelSignal *float64 `json:"model_signal,omitempty"`
	CreatedAt   int64    `json:"created_at"` // Unix 秒
}

// decodeRows 将存储中的 JSON 数组解析为候选列表，并按 limit 截断。
func decodeRows(data []byte, source core.SourceID, limit int) ([]*core.Candidate, error) {
	var rows []candidateRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	out := make([]*core.Candidate, 0, len(rows))
	for _, row := range rows {
		c := core.NewCandidate(row.ContentID, source)
		c.AuthorID = row.AuthorID
		c.Raw = core.RawSignals{
			Likes:       row.Likes,
			Comments:    row.Comments,
			Shares:      row.Shares,
			Impressions: row.Impressions,
			Completion:  row.Completion,
		}
		c.Engagement = row.Engagement
		c.Affinity = row.Affinity
		c.ModelSignal = row.ModelSignal
		c.CreatedAt = time.Unix(row.CreatedAt, 0)
		out = append(out, c)
	}
	return out, nil
}

// StatsKey 是单条内容的滚动互动计数 hash 的 key。
// 字段：likes / comments / shares / impressions，由 feedback.Ingestor 写入。
func StatsKey(contentID string) string {
	return "feed:stats:" + contentID
}

// applyLiveStats 把反馈链路累积的实时计数叠加到候选的原始信号上。
// 读取失败只是少一份实时性，不影响召回本身。
func applyLiveStats(ctx context.Context, kv core.KeyValueStore, cands []*core.Candidate) {
	if kv == nil {
		return
	}
	for _, c := range cands {
		fields, err := kv.HGetAll(ctx, StatsKey(c.ContentID))
		if err != nil || len(fields) == 0 {
			continue
		}
		c.Raw.Likes += parseCount(fields["likes"])
		c.Raw.Comments += parseCount(fields["comments"])
		c.Raw.Shares += parseCount(fields["shares"])
		c.Raw.Impressions += parseCount(fields["impressions"])
	}
}

func parseCount(v []byte) int64 {
	if len(v) == 0 {
		return 0
	}
	n, _ := strconv.ParseInt(string(v), 10, 64)
	return n
}
