// Package config はdispatchhubサービスの設定を管理する。
// 環境変数からviper経由で設定値を読み込み、未設定の項目にはデフォルト値を適用する。
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config はdispatchhubサービスの設定値。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string `mapstructure:"port"`
	// JWTSecret はJWT署名用の秘密鍵。
	JWTSecret string `mapstructure:"jwt_secret"`
	// DBPath はSQLiteデータベースファイルのパス。
	DBPath string `mapstructure:"db_path"`
	// StorageDir はアップロードファイルの保存先ディレクトリ。
	StorageDir string `mapstructure:"storage_dir"`
	// FrontendURL は管理ダッシュボードのURL（CORS許可オリジン）。
	FrontendURL string `mapstructure:"frontend_url"`
	// OpsWebhookURL は管理者向け通知を転送するWebhookのURL。
	// 空の場合はWebhook転送を行わない。
	OpsWebhookURL string `mapstructure:"ops_webhook_url"`
}

// Load は環境変数から設定を読み込む。
// 環境変数は DISPATCHHUB_ プレフィックス付きで参照する
// （例: DISPATCHHUB_PORT, DISPATCHHUB_JWT_SECRET）。
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("dispatchhub")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("jwt_secret", "dev-secret-key")
	v.SetDefault("db_path", "/data/dispatchhub.db?_journal_mode=WAL&_busy_timeout=5000")
	v.SetDefault("storage_dir", "/data/files")
	v.SetDefault("frontend_url", "http://localhost:3000")
	v.SetDefault("ops_webhook_url", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
