package feed

import (
	"encoding/base64"
	"encoding/json"

	"github.com/rushteam/feedkit/core"
)

// cursor 编码翻页位置：上一页最后一条的 (combined_score, content_id)。
// 基于位置而不是偏移量，候选池的并发插入不会让后续页错位；
// 对外是不透明的 base64 字符串，客户端不应解析。
type cursor struct {
	Score     float64 `json:"s"`
	ContentID string  `json:"c"`
}

// encodeCursor 生成不透明 cursor。
func encodeCursor(score float64, contentID string) string {
	data, _ := json.Marshal(cursor{Score: score, ContentID: contentID})
	return base64.RawURLEncoding.EncodeToString(data)
}

// decodeCursor 解析 cursor；空串表示首页，返回 (nil, nil)。
func decodeCursor(s string) (*cursor, error) {
	if s == "" {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, core.NewDomainError(core.ModuleFeed, core.ErrorCodeInvalidInput, "feed: malformed cursor")
	}
	var c cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, core.NewDomainError(core.ModuleFeed, core.ErrorCodeInvalidInput, "feed: malformed cursor")
	}
	return &c, nil
}

// after 判断 (score, contentID) 是否严格位于 cursor 之后。
// 排序为综合分降序、同分 content_id 升序，翻页沿同一全序推进。
func (c *cursor) after(score float64, contentID string) bool {
	if score != c.Score {
		return score < c.Score
	}
	return contentID > c.ContentID
}
