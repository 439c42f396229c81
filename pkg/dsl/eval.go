package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/feedkit/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
	celEnvErr  error
)

// initCELEnv 初始化 CEL 环境，定义变量和函数
func initCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		// 定义变量类型
		cel.Variable("candidate", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("fctx", cel.DynType),
	)
	return env, err
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Rule 是一条编译好的策略规则，使用 CEL (Common Expression Language) 实现。
// CEL 是 Google 开发的表达式语言，具有类型安全、高性能、线程安全等特性。
// 编译一次后可被多个 goroutine 并发 Match。
//
// 表达式语法（CEL 标准语法）：
//   - 基础：label.source == "trending" / candidate.author_id != "u1"
//   - 数值：candidate.combined > 0.7 / candidate.freshness >= 0.5
//   - 逻辑：label.source == "affinity" && candidate.engagement > 0.8
//   - 包含：label.source.contains("trend")
//
// 示例：
//   - `candidate.author_id == fctx.user_id` → 过滤用户自己发布的内容
//   - `candidate.raw.impressions > 100000 && candidate.engagement < 0.01` → 低质高曝光
type Rule struct {
	expr string
	prg  cel.Program
}

// Compile 编译 DSL 表达式。表达式非法时在加载期报错，不留到请求期。
func Compile(expr string) (*Rule, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %v", issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %v", err)
	}

	return &Rule{expr: expr, prg: prg}, nil
}

// Expr 返回规则的原始表达式。
func (r *Rule) Expr() string { return r.expr }

// Match 对单个候选执行规则，返回布尔结果。
// 表达式必须返回 bool；访问不存在的 key 时 CEL 会报错，
// 存在性检查请使用 label.key != null 形式。
func (r *Rule) Match(c *core.Candidate, fctx *core.FeedContext) (bool, error) {
	out, _, err := r.prg.Eval(buildInput(c, fctx))
	if err != nil {
		return false, fmt.Errorf("eval error: %v", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(c *core.Candidate, fctx *core.FeedContext) map[string]any {
	labels := make(map[string]any, len(c.Labels))
	for k, v := range c.Labels {
		labels[k] = v.Value
	}

	var model float64
	if c.ModelSignal != nil {
		model = *c.ModelSignal
	}

	candidate := map[string]any{
		"content_id":   c.ContentID,
		"author_id":    c.AuthorID,
		"source":       string(c.Source),
		"freshness":    c.Freshness,
		"engagement":   c.Engagement,
		"affinity":     c.Affinity,
		"model_signal": model,
		"combined":     c.Combined,
		"raw": map[string]any{
			"likes":       c.Raw.Likes,
			"comments":    c.Raw.Comments,
			"shares":      c.Raw.Shares,
			"impressions": c.Raw.Impressions,
			"completion":  c.Raw.Completion,
		},
	}

	ctxMap := map[string]any{}
	if fctx != nil {
		ctxMap["user_id"] = fctx.UserID
		ctxMap["scene"] = fctx.Scene
		for k, v := range fctx.Params {
			ctxMap[k] = v
		}
	}

	return map[string]any{
		"candidate": candidate,
		"label":     labels,
		"fctx":      ctxMap,
	}
}
