// Package httpclient は外部サービスとのHTTP通信を行うクライアントを提供する。
//
// 管理者向け通知のWebhook転送など、外部システムへのJSONリクエストを
// 統一した形式で送信するために使用する。
package httpclient
