package feast

import (
	"context"
	"testing"
)

// TestGrpcClient_GetOnlineFeatures 测试 gRPC 客户端的基本功能
// 注意：这是一个示例测试，实际使用时需要连接真实的 Feast 服务器
func TestGrpcClient_GetOnlineFeatures(t *testing.T) {
	t.Skip("需要连接真实的 Feast 服务器才能运行")

	ctx := context.Background()

	client, err := NewGrpcClient("localhost", 6565, "feed")
	if err != nil {
		t.Fatalf("创建客户端失败: %v", err)
	}
	defer client.Close()

	req := &GetOnlineFeaturesRequest{
		Features: []string{DefaultModelSignalFeature},
		EntityRows: []map[string]interface{}{
			{"content_id": "c1001"},
			{"content_id": "c1002"},
		},
	}

	resp, err := client.GetOnlineFeatures(ctx, req)
	if err != nil {
		t.Fatalf("获取特征失败: %v", err)
	}

	if len(resp.FeatureVectors) != 2 {
		t.Errorf("期望 2 个特征向量，实际得到 %d 个", len(resp.FeatureVectors))
	}
	for i, fv := range resp.FeatureVectors {
		t.Logf("特征向量 %d: %+v", i, fv.Values)
	}
}

func TestConvertToSDKValue(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
	}{
		{"string", "content-1"},
		{"int", 42},
		{"int64", int64(42)},
		{"float64", 0.87},
		{"bool", true},
		{"bytes", []byte("raw")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := convertToSDKValue(tt.input); got == nil {
				t.Errorf("convertToSDKValue(%v) = nil", tt.input)
			}
		})
	}
}

func TestConvertFromSDKValue(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  interface{}
	}{
		{"nil", nil, nil},
		{"string", "x", "x"},
		{"int64 to float64", int64(7), float64(7)},
		{"float64", 0.5, 0.5},
		{"bool true", true, float64(1)},
		{"bool false", false, float64(0)},
		{"bytes to string", []byte("b"), "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := convertFromSDKValue(tt.input); got != tt.want {
				t.Errorf("convertFromSDKValue(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
