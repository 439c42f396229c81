package feedback

import "github.com/rushteam/feedkit/core"

// EventType 互动事件类型
type EventType string

const (
	EventView    EventType = "view"    // 浏览/曝光
	EventLike    EventType = "like"    // 点赞
	EventComment EventType = "comment" // 评论
	EventShare   EventType = "share"   // 转发
	EventWatch   EventType = "watch"   // 观看时长（带完播率）
)

// Event 是互动反馈事件（轻量级，只包含必要信息）。
// 事件通道按 at-least-once 投递，重复投递靠 ID 幂等去重。
type Event struct {
	// ID 是事件的全局唯一 id，用于幂等去重；为空时跳过去重。
	ID string `json:"id,omitempty"`

	UserID    string    `json:"user_id"`
	ContentID string    `json:"content_id"`
	AuthorID  string    `json:"author_id,omitempty"`
	Type      EventType `json:"type"`

	// Completion 是观看完播率 [0,1]，仅 watch 事件有意义。
	Completion float64 `json:"completion,omitempty"`

	Timestamp int64 `json:"timestamp"` // Unix 秒
}

// Validate 校验事件的必填字段。
func (e Event) Validate() error {
	if e.UserID == "" || e.ContentID == "" {
		return core.NewDomainError(core.ModuleFeedback, core.ErrorCodeInvalidInput, "feedback: user_id and content_id are required")
	}
	switch e.Type {
	case EventView, EventLike, EventComment, EventShare, EventWatch:
		return nil
	default:
		return core.NewDomainError(core.ModuleFeedback, core.ErrorCodeInvalidInput, "feedback: unknown event type: "+string(e.Type))
	}
}

// AffinityWeight 是事件对 (user, author) 兴趣权重的贡献。
// 主动行为（赞/评/转）权重高于被动浏览；watch 按完播率折算。
func (e Event) AffinityWeight() float64 {
	switch e.Type {
	case EventView:
		return 1.0
	case EventLike:
		return 2.0
	case EventComment:
		return 3.0
	case EventShare:
		return 3.0
	case EventWatch:
		c := e.Completion
		if c < 0 {
			c = 0
		}
		if c > 1 {
			c = 1
		}
		return 2.0 * c
	default:
		return 0
	}
}

// statsField 返回事件对应的滚动计数字段；不计数的事件返回空串。
func (e Event) statsField() string {
	switch e.Type {
	case EventView:
		return "impressions"
	case EventLike:
		return "likes"
	case EventComment:
		return "comments"
	case EventShare:
		return "shares"
	default:
		return ""
	}
}
