package feedback

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaCollector 把互动事件批量发往 Kafka（生产环境推荐）。
// 事件先进内存缓冲，按批量大小/时间间隔异步刷出，绝不阻塞读路径。
type KafkaCollector struct {
	client        *kgo.Client
	topic         string
	batchSize     int
	flushInterval time.Duration

	mu        sync.Mutex
	buffer    []Event
	lastFlush time.Time
	closed    bool
	closeOnce sync.Once
	wg        sync.WaitGroup
	stopCh    chan struct{}
}

// KafkaConfig Kafka 采集/消费配置
type KafkaConfig struct {
	Brokers []string // Kafka Broker 地址列表
	Topic   string   // 事件 Topic
	Group   string   // 消费组（仅消费端使用）

	// 生产端性能配置
	BatchSize     int           // 批量大小（建议 100-1000）
	FlushInterval time.Duration // 刷新间隔（建议 1-5 秒）
	ClientID      string        // 客户端 ID
}

// NewKafkaCollector 创建 Kafka 采集器。
func NewKafkaCollector(config KafkaConfig) (*KafkaCollector, error) {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = time.Second
	}
	if config.ClientID == "" {
		config.ClientID = "feedkit-engagement-collector"
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(config.Brokers...),
		kgo.ClientID(config.ClientID),
		kgo.RequiredAcks(kgo.LeaderAck()),
	)
	if err != nil {
		return nil, err
	}

	c := &KafkaCollector{
		client:        client,
		topic:         config.Topic,
		batchSize:     config.BatchSize,
		flushInterval: config.FlushInterval,
		buffer:        make([]Event, 0, config.BatchSize),
		lastFlush:     time.Now(),
		stopCh:        make(chan struct{}),
	}

	c.wg.Add(1)
	go c.flushLoop()
	return c, nil
}

// Record 实现 Collector：非阻塞写入缓冲。
func (c *KafkaCollector) Record(_ context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.buffer = append(c.buffer, ev)

	// 达到批量大小，触发发送
	if len(c.buffer) >= c.batchSize {
		go c.flush()
	}
	return nil
}

// flushLoop 定时刷新循环
func (c *KafkaCollector) flushLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			shouldFlush := len(c.buffer) > 0 && time.Since(c.lastFlush) >= c.flushInterval
			c.mu.Unlock()
			if shouldFlush {
				c.flush()
			}
		case <-c.stopCh:
			return
		}
	}
}

// flush 刷新缓冲到 Kafka
func (c *KafkaCollector) flush() {
	c.mu.Lock()
	if len(c.buffer) == 0 {
		c.mu.Unlock()
		return
	}
	events := make([]Event, len(c.buffer))
	copy(events, c.buffer)
	c.buffer = c.buffer[:0]
	c.lastFlush = time.Now()
	c.mu.Unlock()

	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		record := &kgo.Record{
			Topic: c.topic,
			Key:   []byte(ev.UserID), // 同一用户的事件落同一分区，保持有序
			Value: data,
		}
		c.client.Produce(context.Background(), record, func(_ *kgo.Record, _ error) {
			// 发送失败交给通道端的 at-least-once 语义兜底
		})
	}
}

// Close 优雅关闭（等待缓冲数据发送完成）
func (c *KafkaCollector) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		close(c.stopCh)
		c.wg.Wait()
		c.flush()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.client.Flush(ctx)
		c.client.Close()
	})
	return nil
}

var _ Collector = (*KafkaCollector)(nil)

// KafkaConsumer 从 Kafka 消费互动事件并交给 Ingestor.Apply。
// at-least-once：先处理后提交位点；重复投递由 Apply 的事件 ID 去重兜住。
type KafkaConsumer struct {
	client   *kgo.Client
	ingestor *Ingestor
}

// NewKafkaConsumer 创建消费端。
func NewKafkaConsumer(config KafkaConfig, ingestor *Ingestor) (*KafkaConsumer, error) {
	if config.ClientID == "" {
		config.ClientID = "feedkit-engagement-consumer"
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(config.Brokers...),
		kgo.ClientID(config.ClientID),
		kgo.ConsumeTopics(config.Topic),
		kgo.ConsumerGroup(config.Group),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, err
	}
	return &KafkaConsumer{client: client, ingestor: ingestor}, nil
}

// Run 阻塞消费，直到 ctx 取消。
func (c *KafkaConsumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		if fetches.IsClientClosed() {
			return nil
		}

		fetches.EachRecord(func(record *kgo.Record) {
			var ev Event
			if err := json.Unmarshal(record.Value, &ev); err != nil {
				// 毒丸消息直接跳过，随位点一起提交
				return
			}
			// 处理失败也不中断消费：Apply 内部已撤销去重标记，
			// 依赖下一次重复投递补偿
			_ = c.ingestor.Apply(ctx, ev)
		})

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil && ctx.Err() == nil {
			// 提交失败意味着下一轮可能重复消费，幂等去重会兜住
			continue
		}
	}
}

// Close 关闭消费端。
func (c *KafkaConsumer) Close() {
	c.client.Close()
}
