package recall

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/utils"
)

// AggregateResult 是一次聚合召回的产出。
// Candidates 是所有未失败候选源结果的并集（按 ContentID 去重，保留先到的）；
// SourcesFailed 记录失败的候选源；Degraded 表示至少一个源失败。
type AggregateResult struct {
	Candidates    []*core.Candidate
	SourcesFailed []core.SourceID
	// Errors 记录每个失败源的分类错误（SOURCE_TIMEOUT / SOURCE_UNAVAILABLE）。
	Errors   map[core.SourceID]*core.DomainError
	Degraded bool
}

// Aggregator 并发执行多个候选源，容忍部分失败，并合并结果。
// 单源的超时/错误只记录不扩散；外层 Deadline 到期后，
// 迟到的源结果直接丢弃，不做事后合并。
// 所有源都失败时返回空集并置 Degraded，绝不拿缓存旧数据冒充新结果。
type Aggregator struct {
	Sources []Source

	// PerSourceLimit 限制单源返回的候选数，约束最坏情况成本。
	PerSourceLimit int

	// SourceTimeout 是每个候选源的独立超时时间。
	SourceTimeout time.Duration

	// Deadline 是整次聚合的外层截止时间（0 表示只受 ctx 约束）。
	Deadline time.Duration
}

func (a *Aggregator) Name() string        { return "recall.aggregate" }
func (a *Aggregator) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口；失败源与降级标记写入 fctx 的 Labels。
func (a *Aggregator) Process(
	ctx context.Context,
	fctx *core.FeedContext,
	_ []*core.Candidate,
) ([]*core.Candidate, error) {
	res, err := a.Aggregate(ctx, fctx)
	if err != nil {
		return nil, err
	}
	if fctx != nil && res.Degraded {
		for _, src := range res.SourcesFailed {
			fctx.PutLabel("source_failed", utils.Label{Value: string(src), Source: "recall"})
		}
		fctx.PutLabel("degraded", utils.Label{Value: "true", Source: "recall"})
	}
	return res.Candidates, nil
}

// Aggregate 并发 fan-out 所有候选源并合并。
func (a *Aggregator) Aggregate(ctx context.Context, fctx *core.FeedContext) (*AggregateResult, error) {
	if len(a.Sources) == 0 {
		return &AggregateResult{Degraded: true}, nil
	}

	if a.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Deadline)
		defer cancel()
	}

	var (
		mu       sync.Mutex
		all      []*core.Candidate
		failed   []core.SourceID
		failErrs = make(map[core.SourceID]*core.DomainError)
		eg, _    = errgroup.WithContext(ctx)
	)

	for _, src := range a.Sources {
		s := src
		eg.Go(func() error {
			fetchCtx := ctx
			if a.SourceTimeout > 0 {
				var cancel context.CancelFunc
				fetchCtx, cancel = context.WithTimeout(ctx, a.SourceTimeout)
				defer cancel()
			}

			cands, err := s.Fetch(fetchCtx, fctx, a.PerSourceLimit)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				// 单源失败只记录，不中断其他候选源
				failed = append(failed, s.ID())
				failErrs[s.ID()] = ClassifySourceError(err)
				return nil
			}
			if ctx.Err() != nil {
				// 外层截止时间已过，迟到结果作废
				failed = append(failed, s.ID())
				failErrs[s.ID()] = ClassifySourceError(ctx.Err())
				return nil
			}

			// 记录召回来源 label，方便 explain / 观测
			for _, c := range cands {
				c.PutLabel("source", utils.Label{Value: s.Name(), Source: "recall"})
			}
			all = append(all, cands...)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	res := &AggregateResult{
		Candidates:    mergeUnion(all),
		SourcesFailed: failed,
		Errors:        failErrs,
		Degraded:      len(failed) > 0,
	}
	return res, nil
}

// ClassifySourceError 把底层错误归入召回错误分类（超时/不可用）。
func ClassifySourceError(err error) *core.DomainError {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return core.NewDomainError(core.ModuleRecall, core.ErrorCodeSourceTimeout, "recall: source timed out")
	}
	return core.NewDomainError(core.ModuleRecall, core.ErrorCodeSourceUnavailable, "recall: source unavailable: "+err.Error())
}

// mergeUnion 按 ContentID 去重，保留第一个出现的；后到的同 ID 候选只合并 labels。
func mergeUnion(all []*core.Candidate) []*core.Candidate {
	seen := make(map[string]*core.Candidate, len(all))
	out := make([]*core.Candidate, 0, len(all))
	for _, c := range all {
		if c == nil {
			continue
		}
		if old, ok := seen[c.ContentID]; ok {
			for k, v := range c.Labels {
				old.PutLabel(k, v)
			}
			continue
		}
		seen[c.ContentID] = c
		out = append(out, c)
	}
	return out
}
