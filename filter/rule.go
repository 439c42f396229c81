package filter

import (
	"context"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pkg/dsl"
)

// RuleFilter 是 CEL 表达式驱动的策略过滤器。
// 任意一条规则命中即过滤。规则在构造时编译，非法表达式在加载期报错。
//
// 示例规则：
//   - `candidate.author_id == fctx.user_id` → 不给用户推自己的内容
//   - `candidate.raw.impressions > 100000 && candidate.engagement < 0.01` → 压低低质高曝光
type RuleFilter struct {
	rules []*dsl.Rule
}

// NewRuleFilter 编译给定的 CEL 表达式集合。
func NewRuleFilter(exprs ...string) (*RuleFilter, error) {
	rules := make([]*dsl.Rule, 0, len(exprs))
	for _, expr := range exprs {
		if expr == "" {
			continue
		}
		rule, err := dsl.Compile(expr)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return &RuleFilter{rules: rules}, nil
}

func (f *RuleFilter) Name() string {
	return "filter.rule"
}

func (f *RuleFilter) ShouldFilter(
	_ context.Context,
	fctx *core.FeedContext,
	c *core.Candidate,
) (bool, error) {
	if c == nil {
		return false, nil
	}
	for _, rule := range f.rules {
		hit, err := rule.Match(c, fctx)
		if err != nil {
			// 运行期求值失败按未命中处理，不阻断出页
			continue
		}
		if hit {
			return true, nil
		}
	}
	return false, nil
}
