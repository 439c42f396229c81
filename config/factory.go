package config

import (
	"fmt"
	"time"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/filter"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/conv"
	"github.com/rushteam/feedkit/rank"
	"github.com/rushteam/feedkit/recall"
	"github.com/rushteam/feedkit/rerank"
)

// Deps 是 Node 构建所需的共享依赖。
type Deps struct {
	Store   core.Store
	Weights *rank.WeightSet
}

// DefaultFactory 返回一个包含所有内置 Node 的工厂。
// 候选源、曝光窗口等需要存储的 Node 从 Deps 注入后端。
func DefaultFactory(deps Deps) *pipeline.NodeFactory {
	factory := pipeline.NewNodeFactory()

	// 注册 Recall Nodes
	factory.Register("recall.aggregate", func(cfg map[string]any) (pipeline.Node, error) {
		return buildAggregateNode(deps, cfg)
	})

	// 注册 Rank Nodes
	factory.Register("rank.score", func(cfg map[string]any) (pipeline.Node, error) {
		return buildRankNode(deps, cfg)
	})

	// 注册 Filter Nodes
	factory.Register("filter", func(cfg map[string]any) (pipeline.Node, error) {
		return buildFilterNode(deps, cfg)
	})

	// 注册 PostProcess Nodes
	factory.Register("rerank.topn", func(cfg map[string]any) (pipeline.Node, error) {
		n := conv.ConfigGetInt64(cfg, "n", 0)
		return &rerank.TopN{N: int(n)}, nil
	})
	factory.Register("rerank.diversity", func(cfg map[string]any) (pipeline.Node, error) {
		max := conv.ConfigGetInt64(cfg, "max_per_author", 0)
		return &rerank.Diversity{MaxPerAuthor: int(max)}, nil
	})

	return factory
}

func buildAggregateNode(deps Deps, cfg map[string]any) (pipeline.Node, error) {
	sourcesConfig, ok := cfg["sources"].([]any)
	if !ok {
		return nil, fmt.Errorf("sources not found or invalid")
	}

	sources := make([]recall.Source, 0, len(sourcesConfig))
	for _, sc := range sourcesConfig {
		sourceMap, ok := sc.(map[string]any)
		if !ok {
			continue
		}
		liveStats := conv.ConfigGet[bool](sourceMap, "live_stats", false)
		switch sourceType := conv.ConfigGet[string](sourceMap, "type", ""); sourceType {
		case "followees":
			sources = append(sources, &recall.Followees{
				Store:     deps.Store,
				KeyPrefix: conv.ConfigGet[string](sourceMap, "key_prefix", ""),
				LiveStats: liveStats,
			})
		case "trending":
			sources = append(sources, &recall.Trending{
				Store:     deps.Store,
				Key:       conv.ConfigGet[string](sourceMap, "key", ""),
				LiveStats: liveStats,
			})
		case "affinity":
			sources = append(sources, &recall.Affinity{
				Store:     deps.Store,
				KeyPrefix: conv.ConfigGet[string](sourceMap, "key_prefix", ""),
				LiveBoost: conv.ConfigGet[bool](sourceMap, "live_boost", false),
			})
		default:
			return nil, fmt.Errorf("unknown source type: %s", sourceType)
		}
	}

	agg := &recall.Aggregator{
		Sources:        sources,
		PerSourceLimit: int(conv.ConfigGetInt64(cfg, "per_source_limit", 200)),
	}
	if ms := conv.ConfigGetInt64(cfg, "source_timeout_ms", 0); ms > 0 {
		agg.SourceTimeout = time.Duration(ms) * time.Millisecond
	}
	if ms := conv.ConfigGetInt64(cfg, "deadline_ms", 0); ms > 0 {
		agg.Deadline = time.Duration(ms) * time.Millisecond
	}
	return agg, nil
}

func buildRankNode(deps Deps, cfg map[string]any) (pipeline.Node, error) {
	node := &rank.Node{
		Engine:   rank.NewEngine(),
		Weights:  deps.Weights,
		Version:  conv.ConfigGet[string](cfg, "version", ""),
		MinScore: conv.ConfigGetFloat64(cfg, "min_score", 0),
	}
	if hours := conv.ConfigGetFloat64(cfg, "decay_hours", 0); hours > 0 {
		node.Engine.DecayHours = hours
	}
	return node, nil
}

func buildFilterNode(deps Deps, cfg map[string]any) (pipeline.Node, error) {
	var filters []filter.Filter

	if conv.ConfigGet[bool](cfg, "served", false) {
		kv, ok := deps.Store.(core.KeyValueStore)
		if !ok {
			return nil, fmt.Errorf("served filter requires a KeyValueStore backend")
		}
		served := filter.NewServedStore(kv)
		if days := conv.ConfigGetInt64(cfg, "served_window_days", 0); days > 0 {
			served.Window = time.Duration(days) * 24 * time.Hour
		}
		filters = append(filters, &filter.ServedFilter{History: served})
	}

	if rules := conv.SliceAnyToString(cfg["rules"]); len(rules) > 0 {
		rf, err := filter.NewRuleFilter(rules...)
		if err != nil {
			return nil, fmt.Errorf("compile rules: %w", err)
		}
		filters = append(filters, rf)
	}

	return &filter.Node{Filters: filters}, nil
}
