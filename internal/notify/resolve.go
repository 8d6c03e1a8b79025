package notify

import (
	"context"
	"log"
	"strings"
)

// shortCodeMaxLen はショートコードとみなす識別子の最大長。
const shortCodeMaxLen = 10

// rolePrefix は宛先区分ごとのショートコードのプレフィックス（例: cust_001, drv_001）。
var rolePrefix = map[RecipientKind]string{
	KindCustomer: "cust",
	KindDriver:   "drv",
}

// resolveStorageKey はイベントペイロード由来の識別子をストレージキーに解決する。
//
// 旧来の呼び出し元からは、ストレージキーそのもの（ショートコード）と
// 外部キー（認証プロバイダのID等）のどちらも渡ってくる。ショートコードの形状
// （長さ10以下かつロールプレフィックスを含む）ならそのまま使用し、
// そうでなければロールコレクションを全件走査してshort_codeまたはauth_uidが
// 一致する行のキーを返す。一致する行がなければ渡された値をそのまま返す。
//
// 走査はコレクションサイズに比例するが、この業務では宛先コレクションが
// 小規模であることを前提にしている。
func (e *Engine) resolveStorageKey(ctx context.Context, kind RecipientKind, id string) string {
	if isShortCode(kind, id) {
		return id
	}

	collection := roleCollection(kind)
	docs, err := e.store.QueryRecords(ctx, collection, nil, nil)
	if err != nil {
		log.Printf("[Notify] 宛先解決のための走査に失敗: collection=%s, error=%v", collection, err)
		return id
	}

	for _, doc := range docs {
		shortCode, _ := doc["short_code"].(string)
		authUID, _ := doc["auth_uid"].(string)
		if shortCode == id || authUID == id {
			if key, ok := doc["id"].(string); ok && key != "" {
				return key
			}
		}
	}
	return id
}

// isShortCode は識別子がショートコードの形状かどうかを判定する。
func isShortCode(kind RecipientKind, id string) bool {
	prefix, ok := rolePrefix[kind]
	if !ok {
		return false
	}
	return id != "" && len(id) <= shortCodeMaxLen && strings.Contains(id, prefix)
}
