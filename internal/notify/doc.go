// Package notify は通知ファンアウトエンジンを提供する。
//
// 1つのドメインイベント（配車依頼の作成、状態遷移、画像の添付、
// 管理者ブロードキャスト）を受け取り、宛先ごとの通知レコードを組み立てて
// 各受信者のコレクションへ書き込む。書き込みは受信者ごとに並行して行い、
// 一部の書き込みが失敗しても残りの書き込みは中断しない（ベストエフォート配信）。
package notify
