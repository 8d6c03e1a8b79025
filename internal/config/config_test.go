package config

import "testing"

// TestLoad は環境変数からの設定読み込みを検証する。
// 環境変数を書き換えるためt.Parallelは使用しない。
func TestLoad(t *testing.T) {
	t.Run("未設定の項目にはデフォルト値が適用される", func(t *testing.T) {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("設定の読み込みに失敗: %v", err)
		}

		if cfg.Port != "8080" {
			t.Errorf("Port: got %s, want 8080", cfg.Port)
		}
		if cfg.FrontendURL != "http://localhost:3000" {
			t.Errorf("FrontendURL: got %s", cfg.FrontendURL)
		}
		if cfg.OpsWebhookURL != "" {
			t.Errorf("OpsWebhookURL: got %s, want 空", cfg.OpsWebhookURL)
		}
	})

	t.Run("環境変数がデフォルト値を上書きする", func(t *testing.T) {
		t.Setenv("DISPATCHHUB_PORT", "9090")
		t.Setenv("DISPATCHHUB_JWT_SECRET", "test-secret")
		t.Setenv("DISPATCHHUB_OPS_WEBHOOK_URL", "https://hooks.example.com/ops")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("設定の読み込みに失敗: %v", err)
		}

		if cfg.Port != "9090" {
			t.Errorf("Port: got %s, want 9090", cfg.Port)
		}
		if cfg.JWTSecret != "test-secret" {
			t.Errorf("JWTSecret: got %s, want test-secret", cfg.JWTSecret)
		}
		if cfg.OpsWebhookURL != "https://hooks.example.com/ops" {
			t.Errorf("OpsWebhookURL: got %s", cfg.OpsWebhookURL)
		}
	})
}
