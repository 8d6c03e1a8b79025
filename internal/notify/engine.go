package notify

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nao1215/dispatchhub/internal/event"
	"github.com/nao1215/dispatchhub/internal/store"
	"github.com/nao1215/dispatchhub/pkg/httpclient"
)

// AdminCollection は管理者向け通知フィードのコレクションパス。
const AdminCollection = "notifications"

// RecipientKind は通知の宛先区分を表す。
type RecipientKind string

const (
	// KindAdmin は管理者フィード宛。
	KindAdmin RecipientKind = "admin"
	// KindCustomer は特定の顧客宛。
	KindCustomer RecipientKind = "customer"
	// KindDriver は特定のドライバー宛。
	KindDriver RecipientKind = "driver"
)

// Recipient は1件の通知の宛先を表す。
type Recipient struct {
	// Kind は宛先区分。
	Kind RecipientKind `json:"kind"`
	// ID は宛先の識別子。管理者宛の場合は空。
	ID string `json:"id,omitempty"`
}

// Delivery は1宛先への書き込み結果を表す。
type Delivery struct {
	// Recipient は書き込み対象の宛先。
	Recipient Recipient
	// Err は書き込みに失敗した場合のエラー。成功時はnil。
	Err error
}

// Record は宛先コレクションへ書き込まれる通知レコード。
// is_read以外のフィールドは書き込み後に変更されない。
type Record struct {
	// ID は通知の一意識別子。
	ID string `json:"id,omitempty"`
	// Type は通知の種類（"new_request" 等）。
	Type string `json:"type"`
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Message は通知メッセージ。
	Message string `json:"message"`
	// Priority は通知の優先度。
	Priority event.Priority `json:"priority"`
	// IsRead は通知の既読状態。
	IsRead bool `json:"is_read"`
	// RecipientKind は宛先区分。
	RecipientKind RecipientKind `json:"recipient_kind"`
	// RecipientID は宛先の識別子。管理者宛の場合は空。
	RecipientID string `json:"recipient_id,omitempty"`
	// DispatchID は関連する配車のID。配車に紐づかない通知では空。
	DispatchID string `json:"dispatch_id,omitempty"`
	// Status は配車状態遷移通知における遷移後の状態。
	Status string `json:"status,omitempty"`
	// ImageURL は画像アップロード通知における画像の取得URL。
	ImageURL string `json:"image_url,omitempty"`
	// ImageType は画像アップロード通知における画像種別。
	ImageType string `json:"image_type,omitempty"`
	// Audience はブロードキャスト通知における宛先区分。
	Audience string `json:"audience,omitempty"`
	// CreatedAt は通知の作成日時（RFC3339形式）。
	CreatedAt string `json:"created_at"`
}

// Engine は通知ファンアウトエンジン。
// ドメインイベントを宛先ごとの通知レコード書き込みへ変換する。
type Engine struct {
	// store は通知レコードの書き込み先ドキュメントストア。
	store store.Store
	// opsWebhook は管理者向け通知を転送するWebhookクライアント。nilの場合は転送しない。
	opsWebhook *httpclient.Client
}

// Option はEngineの生成オプション。
type Option func(*Engine)

// WithOpsWebhook は管理者向け通知をWebhookへ転送するクライアントを設定する。
// 転送はベストエフォートであり、失敗してもファンアウトは失敗しない。
func WithOpsWebhook(client *httpclient.Client) Option {
	return func(e *Engine) {
		e.opsWebhook = client
	}
}

// NewEngine は新しいファンアウトエンジンを生成する。
func NewEngine(st store.Store, opts ...Option) *Engine {
	e := &Engine{store: st}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// target は1宛先への書き込み内容。
type target struct {
	recipient  Recipient
	collection string
	record     Record
}

// Dispatch は1つのドメインイベントを宛先ごとの通知レコード書き込みへ展開する。
//
// 宛先の解決はイベント種別とペイロードから決まる。ブロードキャストの all-* は
// 呼び出し時点のロールコレクションの内容に展開される（スナップショット保証はない）。
// すべての宛先への書き込みを並行して1回ずつ試行し、個々の失敗は中断せずに
// 結果リストへ記録する。部分的な失敗があってもロールバックは行わない。
//
// 戻り値のエラーはペイロード不正（宛先IDの欠落や未知のイベント種別）の場合のみ。
func (e *Engine) Dispatch(ctx context.Context, kind event.Kind, payload any) ([]Delivery, error) {
	recipients, err := e.resolveRecipients(ctx, kind, payload)
	if err != nil {
		return nil, err
	}

	createdAt := time.Now().UTC().Format(time.RFC3339)
	targets := make([]target, 0, len(recipients))
	for _, r := range recipients {
		rec := buildRecord(kind, payload, r)
		rec.CreatedAt = createdAt
		targets = append(targets, target{
			recipient:  r.Recipient,
			collection: r.collection(),
			record:     rec,
		})
	}

	// 宛先ごとに並行して書き込む。失敗しても残りの書き込みは継続する。
	deliveries := make([]Delivery, len(targets))
	var wg sync.WaitGroup
	for i, t := range targets {
		wg.Add(1)
		go func(i int, t target) {
			defer wg.Done()

			doc, err := store.ToDocument(t.record)
			if err == nil {
				_, err = e.store.AddRecord(ctx, t.collection, doc)
			}
			if err != nil {
				log.Printf("[Notify] 通知の書き込みに失敗: kind=%s, recipient=%s/%s, error=%v",
					kind, t.recipient.Kind, t.recipient.ID, err)
			}
			deliveries[i] = Delivery{Recipient: t.recipient, Err: err}
		}(i, t)
	}
	wg.Wait()

	e.forwardToOps(ctx, targets)
	return deliveries, nil
}

// forwardToOps は管理者向け通知レコードをWebhookへ転送する。
// 転送に失敗してもログに記録し、ファンアウト自体は成功として扱う。
func (e *Engine) forwardToOps(ctx context.Context, targets []target) {
	if e.opsWebhook == nil {
		return
	}
	for _, t := range targets {
		if t.recipient.Kind != KindAdmin {
			continue
		}
		if err := e.opsWebhook.PostJSON(ctx, "", t.record, nil); err != nil {
			log.Printf("[Notify] Webhookへの転送に失敗: %v", err)
		}
	}
}

// resolvedRecipient は宛先と、書き込み先コレクションの決定に必要な情報。
type resolvedRecipient struct {
	Recipient
	// storageKey は宛先コレクションパスに使用するストレージキー。
	storageKey string
}

// collection は宛先の通知コレクションパスを返す。
func (r resolvedRecipient) collection() string {
	switch r.Kind {
	case KindCustomer:
		return "customers/" + r.storageKey + "/notifications"
	case KindDriver:
		return "drivers/" + r.storageKey + "/notifications"
	case KindAdmin:
	}
	return AdminCollection
}

// resolveRecipients はイベント種別とペイロードから宛先集合を決定する。
// どのイベントでも管理者宛のレコードはちょうど1件になる。
// 同一イベント内で同じ宛先が重複した場合は1件に集約する。
func (e *Engine) resolveRecipients(ctx context.Context, kind event.Kind, payload any) ([]resolvedRecipient, error) {
	recipients := []resolvedRecipient{{Recipient: Recipient{Kind: KindAdmin}}}

	switch kind {
	case event.KindNewRequest:
		if _, ok := payload.(event.NewRequestData); !ok {
			return nil, fmt.Errorf("イベント %s のペイロードが不正です", kind)
		}

	case event.KindStatusChanged:
		data, ok := payload.(event.StatusChangedData)
		if !ok {
			return nil, fmt.Errorf("イベント %s のペイロードが不正です", kind)
		}
		recipients = append(recipients, e.targeted(ctx, KindCustomer, data.CustomerID))
		for _, a := range data.Assignments {
			recipients = append(recipients, e.targeted(ctx, KindDriver, a.DriverID))
		}

	case event.KindImageUploaded:
		data, ok := payload.(event.ImageUploadedData)
		if !ok {
			return nil, fmt.Errorf("イベント %s のペイロードが不正です", kind)
		}
		recipients = append(recipients, e.targeted(ctx, KindCustomer, data.CustomerID))

	case event.KindAdminBroadcast:
		data, ok := payload.(event.AdminBroadcastData)
		if !ok {
			return nil, fmt.Errorf("イベント %s のペイロードが不正です", kind)
		}
		expanded, err := e.expandAudience(ctx, data)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, expanded...)

	default:
		return nil, fmt.Errorf("未知のイベント種別: %s", kind)
	}

	return dedupe(recipients), nil
}

// expandAudience はブロードキャストの宛先区分を個別の宛先に展開する。
// all-* は呼び出し時点のロールコレクションを1回読み取って展開する。
// コレクションの読み取りに失敗した場合はログに記録し、その区分は空として扱う。
func (e *Engine) expandAudience(ctx context.Context, data event.AdminBroadcastData) ([]resolvedRecipient, error) {
	switch data.Audience {
	case event.AudienceAllCustomers:
		return e.listRole(ctx, KindCustomer), nil
	case event.AudienceAllDrivers:
		return e.listRole(ctx, KindDriver), nil
	case event.AudienceAllUsers:
		return append(e.listRole(ctx, KindCustomer), e.listRole(ctx, KindDriver)...), nil
	case event.AudienceCustomer:
		if data.RecipientID == "" {
			return nil, fmt.Errorf("宛先区分 %s には宛先IDが必要です", data.Audience)
		}
		return []resolvedRecipient{e.targeted(ctx, KindCustomer, data.RecipientID)}, nil
	case event.AudienceDriver:
		if data.RecipientID == "" {
			return nil, fmt.Errorf("宛先区分 %s には宛先IDが必要です", data.Audience)
		}
		return []resolvedRecipient{e.targeted(ctx, KindDriver, data.RecipientID)}, nil
	}
	return nil, fmt.Errorf("未知の宛先区分: %s", data.Audience)
}

// listRole はロールコレクションの全レコードを宛先に変換する。
// コレクションから取得したIDはそのままストレージキーとして使用できる。
func (e *Engine) listRole(ctx context.Context, kind RecipientKind) []resolvedRecipient {
	collection := roleCollection(kind)
	docs, err := e.store.QueryRecords(ctx, collection, nil, nil)
	if err != nil {
		log.Printf("[Notify] ロールコレクションの読み取りに失敗: collection=%s, error=%v", collection, err)
		return nil
	}

	recipients := make([]resolvedRecipient, 0, len(docs))
	for _, doc := range docs {
		id, _ := doc["id"].(string)
		if id == "" {
			continue
		}
		recipients = append(recipients, resolvedRecipient{
			Recipient:  Recipient{Kind: kind, ID: id},
			storageKey: id,
		})
	}
	return recipients
}

// targeted はイベントペイロード由来の識別子から宛先を生成する。
// 識別子はショートコードまたは外部キーの可能性があるため、ストレージキーに解決する。
func (e *Engine) targeted(ctx context.Context, kind RecipientKind, id string) resolvedRecipient {
	return resolvedRecipient{
		Recipient:  Recipient{Kind: kind, ID: id},
		storageKey: e.resolveStorageKey(ctx, kind, id),
	}
}

// dedupe は宛先の重複を取り除く。同一イベント内で同じ宛先に
// 複数のレコードが書き込まれることを防ぐ。
func dedupe(recipients []resolvedRecipient) []resolvedRecipient {
	seen := make(map[Recipient]struct{}, len(recipients))
	result := make([]resolvedRecipient, 0, len(recipients))
	for _, r := range recipients {
		if _, ok := seen[r.Recipient]; ok {
			continue
		}
		seen[r.Recipient] = struct{}{}
		result = append(result, r)
	}
	return result
}

// roleCollection は宛先区分に対応するロールコレクションパスを返す。
func roleCollection(kind RecipientKind) string {
	if kind == KindDriver {
		return "drivers"
	}
	return "customers"
}
