package feast

import (
	"context"

	"github.com/rushteam/feedkit/core"
)

// DefaultModelSignalFeature 是在线存储中模型分特征的默认名称。
const DefaultModelSignalFeature = "content_stats:model_score"

// ModelSignalProvider 从 Feast 在线存储批量拉取候选内容的模型分，
// 回填到 Candidate.ModelSignal。模型训练不在本模块范围内：
// 这里只是把一个现成的数值信号接进打分公式。
//
// 获取失败或特征缺失时保持 ModelSignal 为 nil，打分按 0 处理——
// 模型信号是增益项，不是出页的前提。
type ModelSignalProvider struct {
	Client Client

	// Feature 默认 DefaultModelSignalFeature
	Feature string

	// EntityKey 默认 "content_id"
	EntityKey string
}

// Attach 为候选批量回填模型分。
func (p *ModelSignalProvider) Attach(ctx context.Context, cands []*core.Candidate) error {
	if p.Client == nil || len(cands) == 0 {
		return nil
	}

	feature := p.Feature
	if feature == "" {
		feature = DefaultModelSignalFeature
	}
	entityKey := p.EntityKey
	if entityKey == "" {
		entityKey = "content_id"
	}

	entityRows := make([]map[string]interface{}, 0, len(cands))
	for _, c := range cands {
		entityRows = append(entityRows, map[string]interface{}{entityKey: c.ContentID})
	}

	resp, err := p.Client.GetOnlineFeatures(ctx, &GetOnlineFeaturesRequest{
		Features:   []string{feature},
		EntityRows: entityRows,
	})
	if err != nil {
		return err
	}
	if len(resp.FeatureVectors) != len(cands) {
		return nil
	}

	for i, fv := range resp.FeatureVectors {
		if score, ok := fv.Values[feature].(float64); ok {
			s := score
			cands[i].ModelSignal = &s
		}
	}
	return nil
}
