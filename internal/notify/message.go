package notify

import (
	"fmt"

	"github.com/nao1215/dispatchhub/internal/dispatch"
	"github.com/nao1215/dispatchhub/internal/event"
)

// 通知レコードのtypeフィールドに設定する値。
const (
	// TypeNewRequest は新規配車依頼の通知。
	TypeNewRequest = "new_request"
	// TypeStatusChanged は配車状態遷移の通知。
	TypeStatusChanged = "dispatch_status_changed"
	// TypeImageUploaded は画像アップロードの通知。
	TypeImageUploaded = "dispatch_image"
	// TypeAdminBroadcast は管理者ブロードキャストの通知。
	TypeAdminBroadcast = "admin_broadcast"
)

// buildRecord はイベントと宛先から通知レコードを組み立てる。
// タイトルとメッセージはイベント種別ごとのテンプレートから生成する。
// ペイロードの型はresolveRecipientsで検証済みであることを前提とする。
func buildRecord(kind event.Kind, payload any, r resolvedRecipient) Record {
	rec := Record{
		Priority:      event.PriorityFor(kind, payload),
		IsRead:        false,
		RecipientKind: r.Kind,
		RecipientID:   r.ID,
	}

	switch kind {
	case event.KindNewRequest:
		data := payload.(event.NewRequestData)
		rec.Type = TypeNewRequest
		rec.DispatchID = data.DispatchID
		rec.Title = "新しい配車依頼"
		rec.Message = fmt.Sprintf("%sから新しい配車依頼が届きました（%s → %s）",
			customerLabel(data.CustomerName, data.CustomerID),
			data.SourceLocation, data.DestinationLocation)

	case event.KindStatusChanged:
		data := payload.(event.StatusChangedData)
		rec.Type = TypeStatusChanged
		rec.DispatchID = data.DispatchID
		rec.Status = string(data.Status)
		rec.Title = statusTitle(data.Status)
		rec.Message = statusMessage(r.Kind, data)

	case event.KindImageUploaded:
		data := payload.(event.ImageUploadedData)
		rec.Type = TypeImageUploaded
		rec.DispatchID = data.DispatchID
		rec.ImageType = data.ImageType
		rec.ImageURL = data.ImageURL
		if data.ImageType == event.ImageTypeInconvenience {
			rec.Title = "事故・破損の報告"
			rec.Message = fmt.Sprintf("配車 %s に事故・破損の報告画像がアップロードされました", data.DispatchID)
		} else {
			rec.Title = "画像のアップロード"
			rec.Message = fmt.Sprintf("配車 %s に画像がアップロードされました", data.DispatchID)
		}

	case event.KindAdminBroadcast:
		data := payload.(event.AdminBroadcastData)
		rec.Type = TypeAdminBroadcast
		rec.Audience = string(data.Audience)
		rec.Title = data.Title
		rec.Message = data.Message
	}

	return rec
}

// statusTitle は配車状態ごとの通知タイトルを返す。
// すべての状態を列挙し、状態の追加時にコンパイルエラーではなく
// このswitchの網羅テストで検出する。
func statusTitle(status dispatch.Status) string {
	switch status {
	case dispatch.StatusPending:
		return "配車依頼を受け付けました"
	case dispatch.StatusAccepted:
		return "配車依頼が承認されました"
	case dispatch.StatusRejected:
		return "配車依頼が却下されました"
	case dispatch.StatusAssigned:
		return "ドライバーが割り当てられました"
	case dispatch.StatusInProgress:
		return "輸送が開始されました"
	case dispatch.StatusCompleted:
		return "輸送が完了しました"
	case dispatch.StatusCancelled:
		return "配車がキャンセルされました"
	}
	return "配車の状態が更新されました"
}

// statusMessage は宛先区分に応じた状態遷移メッセージを生成する。
// 住所は状態書き込み前のスナップショットから渡されたものを使用する。
func statusMessage(kind RecipientKind, data event.StatusChangedData) string {
	route := fmt.Sprintf("%s → %s", data.SourceLocation, data.DestinationLocation)

	if kind == KindDriver && data.Status == dispatch.StatusAssigned {
		return fmt.Sprintf("新しい輸送が割り当てられました（%s）", route)
	}

	return fmt.Sprintf("配車 %s の状態が「%s」になりました（%s）", data.DispatchID, statusLabel(data.Status), route)
}

// statusLabel は配車状態の表示名を返す。
func statusLabel(status dispatch.Status) string {
	switch status {
	case dispatch.StatusPending:
		return "受付中"
	case dispatch.StatusAccepted:
		return "承認済み"
	case dispatch.StatusRejected:
		return "却下"
	case dispatch.StatusAssigned:
		return "割当済み"
	case dispatch.StatusInProgress:
		return "輸送中"
	case dispatch.StatusCompleted:
		return "完了"
	case dispatch.StatusCancelled:
		return "キャンセル"
	}
	return string(status)
}

// customerLabel は顧客の表示名を返す。表示名が未設定の場合は識別子を使用する。
func customerLabel(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
