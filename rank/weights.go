package rank

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/feedkit/core"
)

// Weights 是一组带版本号的打分系数。
// 不可变：灰度/AB 对比通过多版本共存实现，而不是原地改系数；
// 每个缓存页和每次打分都携带所用的版本号。
type Weights struct {
	Version     string  `yaml:"version"`
	Freshness   float64 `yaml:"freshness"`
	Completion  float64 `yaml:"completion"`
	Engagement  float64 `yaml:"engagement"`
	Affinity    float64 `yaml:"affinity"`
	ModelSignal float64 `yaml:"model_signal"`
}

// DefaultWeights 返回内置默认权重（版本 "v1"，系数和为 1.0）。
func DefaultWeights() Weights {
	return Weights{
		Version:     "v1",
		Freshness:   0.25,
		Completion:  0.20,
		Engagement:  0.25,
		Affinity:    0.15,
		ModelSignal: 0.15,
	}
}

// Validate 在加载期检查权重配置：系数必须非负，总和应在 [0.5, 1.5] 内
// （期望 ≈1.0，宽松区间用于兜住手误而非强制归一）。
// 非法配置在这里报错，绝不留到请求期。
func (w Weights) Validate() error {
	if w.Version == "" {
		return core.NewDomainError(core.ModuleRank, core.ErrorCodeInvalidWeights, "rank: weights version is empty")
	}
	coefs := []float64{w.Freshness, w.Completion, w.Engagement, w.Affinity, w.ModelSignal}
	sum := 0.0
	for _, c := range coefs {
		if c < 0 {
			return core.NewDomainError(core.ModuleRank, core.ErrorCodeInvalidWeights,
				fmt.Sprintf("rank: weights %s has negative coefficient", w.Version))
		}
		sum += c
	}
	if sum < 0.5 || sum > 1.5 {
		return core.NewDomainError(core.ModuleRank, core.ErrorCodeInvalidWeights,
			fmt.Sprintf("rank: weights %s sum %.3f outside [0.5, 1.5]", w.Version, sum))
	}
	return nil
}

// WeightSet 是多版本权重注册表，支持灰度期间多版本共存。
// 读多写少，读路径只持有读锁。
type WeightSet struct {
	mu       sync.RWMutex
	active   string
	versions map[string]Weights
}

// NewWeightSet 用给定版本构建注册表，active 为默认生效版本。
func NewWeightSet(active string, versions ...Weights) (*WeightSet, error) {
	ws := &WeightSet{versions: make(map[string]Weights, len(versions))}
	for _, w := range versions {
		if err := w.Validate(); err != nil {
			return nil, err
		}
		ws.versions[w.Version] = w
	}
	if _, ok := ws.versions[active]; !ok {
		return nil, core.NewDomainError(core.ModuleRank, core.ErrorCodeInvalidWeights,
			fmt.Sprintf("rank: active version %q not registered", active))
	}
	ws.active = active
	return ws, nil
}

// Active 返回当前生效的权重。
func (ws *WeightSet) Active() Weights {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.versions[ws.active]
}

// Get 按版本号取权重。
func (ws *WeightSet) Get(version string) (Weights, bool) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	w, ok := ws.versions[version]
	return w, ok
}

// Register 注册一个新版本（校验不通过则拒绝）。
func (ws *WeightSet) Register(w Weights) error {
	if err := w.Validate(); err != nil {
		return err
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.versions[w.Version] = w
	return nil
}

// SetActive 切换生效版本（版本必须已注册）。
func (ws *WeightSet) SetActive(version string) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if _, ok := ws.versions[version]; !ok {
		return core.NewDomainError(core.ModuleRank, core.ErrorCodeInvalidWeights,
			fmt.Sprintf("rank: version %q not registered", version))
	}
	ws.active = version
	return nil
}

// weightsFile 是权重配置文件结构。
type weightsFile struct {
	Active   string    `yaml:"active"`
	Versions []Weights `yaml:"versions"`
}

// LoadWeightSet 从 YAML 文件加载多版本权重。
// 任意一个版本非法即整体失败（启动期 fail-fast）。
func LoadWeightSet(path string) (*WeightSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cfg weightsFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(cfg.Versions) == 0 {
		return nil, core.NewDomainError(core.ModuleRank, core.ErrorCodeInvalidWeights, "rank: no weight versions in config")
	}

	return NewWeightSet(cfg.Active, cfg.Versions...)
}
