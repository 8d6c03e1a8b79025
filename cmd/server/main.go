// dispatchhubサービスのエントリポイント。
// 運送会社の管理ダッシュボード向けバックエンドを起動する。
// 配車・顧客・ドライバー・トラックの管理APIと、状態変更を各宛先へ
// 伝搬する通知ファンアウトエンジンを提供する。
package main

import (
	"log"

	"github.com/nao1215/dispatchhub/internal/blob"
	"github.com/nao1215/dispatchhub/internal/config"
	"github.com/nao1215/dispatchhub/internal/notify"
	"github.com/nao1215/dispatchhub/internal/server"
	"github.com/nao1215/dispatchhub/internal/store"
	"github.com/nao1215/dispatchhub/pkg/httpclient"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	st, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("ストアの初期化に失敗: %v", err)
	}
	defer st.Close()

	bs, err := blob.New(cfg.StorageDir)
	if err != nil {
		log.Fatalf("ブロブストアの初期化に失敗: %v", err)
	}

	var opts []notify.Option
	if cfg.OpsWebhookURL != "" {
		opts = append(opts, notify.WithOpsWebhook(httpclient.New(cfg.OpsWebhookURL)))
	}
	engine := notify.NewEngine(st, opts...)

	srv := server.New(cfg, st, bs, engine)

	log.Printf("dispatchhubサービスを起動します: :%s", cfg.Port)
	if err := srv.Run(); err != nil {
		log.Fatalf("dispatchhubサービスの起動に失敗: %v", err)
	}
}
