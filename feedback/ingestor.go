package feedback

import (
	"context"
	"sync"
	"time"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/recall"
)

// Collector 反馈收集器接口（异步非阻塞）。
type Collector interface {
	// Record 异步记录一个互动事件（不阻塞读路径）
	Record(ctx context.Context, ev Event) error

	// Close 优雅关闭（等待缓冲数据处理完成）
	Close() error
}

// Ingestor 消费互动事件并更新候选源读取的聚合数据：
//   - 滚动互动计数：HIncrBy feed:stats:{content_id}
//   - 兴趣权重：ZIncrBy feed:affinity_w:{user_id}，member=author_id
//
// 与读路径完全解耦，只通过共享存储间接影响下一次召回——
// 新数字"最终"会出现，滞后以秒到分钟计，绝不同步阻塞出页。
// 单个事件处理失败独立重试，超过次数后丢弃。
type Ingestor struct {
	kv core.KeyValueStore

	// MaxRetries 单事件最大重试次数，默认 3
	MaxRetries int

	// RetryDelay 重试间隔，默认 100ms
	RetryDelay time.Duration

	// DedupTTL 幂等去重 key 的保留期（秒），默认 7 天
	DedupTTL int

	ch        chan Event
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// IngestorOption 配置项
type IngestorOption func(*Ingestor)

// WithBufferSize 设置事件缓冲队列长度（默认 1024）。
func WithBufferSize(n int) IngestorOption {
	return func(in *Ingestor) {
		if n > 0 {
			in.ch = make(chan Event, n)
		}
	}
}

// WithMaxRetries 设置单事件最大重试次数。
func WithMaxRetries(n int) IngestorOption {
	return func(in *Ingestor) { in.MaxRetries = n }
}

// NewIngestor 创建并启动 Ingestor（后台单 worker 顺序消费）。
func NewIngestor(kv core.KeyValueStore, opts ...IngestorOption) *Ingestor {
	in := &Ingestor{
		kv:         kv,
		MaxRetries: 3,
		RetryDelay: 100 * time.Millisecond,
		DedupTTL:   7 * 24 * 3600,
		ch:         make(chan Event, 1024),
	}
	for _, opt := range opts {
		opt(in)
	}

	in.wg.Add(1)
	go in.run()
	return in
}

// Record 实现 Collector：非阻塞入队。队列满时丢弃并报错，
// 读路径的延迟永远不为反馈买单。
func (in *Ingestor) Record(_ context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	select {
	case in.ch <- ev:
		return nil
	default:
		return core.NewDomainError(core.ModuleFeedback, core.ErrorCodeInternalError, "feedback: event buffer full, dropped")
	}
}

// Close 停止接收并处理完缓冲内剩余事件。
func (in *Ingestor) Close() error {
	in.closeOnce.Do(func() {
		close(in.ch)
	})
	in.wg.Wait()
	return nil
}

func (in *Ingestor) run() {
	defer in.wg.Done()
	for ev := range in.ch {
		in.applyWithRetry(ev)
	}
}

func (in *Ingestor) applyWithRetry(ev Event) {
	var err error
	for attempt := 0; attempt <= in.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(in.RetryDelay)
		}
		if err = in.Apply(context.Background(), ev); err == nil {
			return
		}
	}
	// 重试耗尽即放弃：聚合数据是近似值，丢单个事件可接受
}

// Apply 同步处理单个事件（幂等）。
// KafkaConsumer 等外部消费端在提交位点前直接调用此方法。
func (in *Ingestor) Apply(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	// at-least-once 通道会重复投递：同 ID 事件只生效一次
	if ev.ID != "" {
		fresh, err := in.kv.SetNX(ctx, "feed:evt:"+ev.ID, []byte{1}, in.DedupTTL)
		if err != nil {
			return err
		}
		if !fresh {
			return nil
		}
	}

	if err := in.update(ctx, ev); err != nil {
		// 更新失败时撤销去重标记，让重试/重复投递有机会补上
		if ev.ID != "" {
			_ = in.kv.Delete(ctx, "feed:evt:"+ev.ID)
		}
		return err
	}
	return nil
}

func (in *Ingestor) update(ctx context.Context, ev Event) error {
	if field := ev.statsField(); field != "" {
		if _, err := in.kv.HIncrBy(ctx, recall.StatsKey(ev.ContentID), field, 1); err != nil {
			return err
		}
	}

	if ev.AuthorID != "" {
		if w := ev.AffinityWeight(); w > 0 {
			if _, err := in.kv.ZIncrBy(ctx, recall.AffinityWeightKey(ev.UserID), w, ev.AuthorID); err != nil {
				return err
			}
		}
	}
	return nil
}

var _ Collector = (*Ingestor)(nil)
