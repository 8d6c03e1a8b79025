// Package event は通知ファンアウトの引き金となるドメインイベントを定義する。
//
// イベント種別ごとに固有のペイロード構造体を持ち、
// 共通のエンベロープ（受信者・優先度・作成日時）はファンアウトエンジンが付与する。
package event

import "github.com/nao1215/dispatchhub/internal/dispatch"

// Kind はドメインイベントの種類を表す。
type Kind string

const (
	// KindNewRequest は顧客から新しい配車依頼が作成されたことを表す。
	KindNewRequest Kind = "NewRequest"
	// KindStatusChanged は配車の状態が遷移したことを表す。
	KindStatusChanged Kind = "StatusChanged"
	// KindImageUploaded は配車に画像が添付されたことを表す。
	KindImageUploaded Kind = "ImageUploaded"
	// KindAdminBroadcast は管理者が任意の宛先へお知らせを送信したことを表す。
	KindAdminBroadcast Kind = "AdminBroadcast"
)

// Priority は通知の優先度を表す。
type Priority string

const (
	// PriorityLow は低優先度。
	PriorityLow Priority = "low"
	// PriorityNormal は通常優先度。
	PriorityNormal Priority = "normal"
	// PriorityHigh は高優先度。
	PriorityHigh Priority = "high"
)

// Audience は管理者ブロードキャストの宛先区分を表す。
type Audience string

const (
	// AudienceAllCustomers はすべての顧客。
	AudienceAllCustomers Audience = "all-customers"
	// AudienceAllDrivers はすべてのドライバー。
	AudienceAllDrivers Audience = "all-drivers"
	// AudienceAllUsers はすべての顧客とドライバー。
	AudienceAllUsers Audience = "all-users"
	// AudienceCustomer は特定の顧客1名。
	AudienceCustomer Audience = "specific-customer"
	// AudienceDriver は特定のドライバー1名。
	AudienceDriver Audience = "specific-driver"
)

// ImageTypeInconvenience は事故・破損などの報告画像を表す画像種別。
// この種別の画像アップロード通知は高優先度になる。
const ImageTypeInconvenience = "inconvenience"

// NewRequestData はNewRequestイベントのペイロード。
type NewRequestData struct {
	// DispatchID は作成された配車のID。
	DispatchID string `json:"dispatch_id"`
	// CustomerID は依頼元顧客の識別子。
	CustomerID string `json:"customer_id"`
	// CustomerName は依頼元顧客の表示名。
	CustomerName string `json:"customer_name"`
	// SourceLocation は集荷地の住所。
	SourceLocation string `json:"source_location"`
	// DestinationLocation は配送先の住所。
	DestinationLocation string `json:"destination_location"`
}

// StatusChangedData はStatusChangedイベントのペイロード。
// 住所等の表示用フィールドは状態書き込み前の配車スナップショットから取得する。
type StatusChangedData struct {
	// DispatchID は対象の配車のID。
	DispatchID string `json:"dispatch_id"`
	// Status は遷移後の状態。
	Status dispatch.Status `json:"status"`
	// CustomerID は依頼元顧客の識別子。
	CustomerID string `json:"customer_id"`
	// SourceLocation は集荷地の住所。
	SourceLocation string `json:"source_location"`
	// DestinationLocation は配送先の住所。
	DestinationLocation string `json:"destination_location"`
	// Assignments はドライバー・トラックの割り当て一覧。
	Assignments []dispatch.Assignment `json:"assignments"`
}

// ImageUploadedData はImageUploadedイベントのペイロード。
type ImageUploadedData struct {
	// DispatchID は画像が添付された配車のID。
	DispatchID string `json:"dispatch_id"`
	// CustomerID は依頼元顧客の識別子。
	CustomerID string `json:"customer_id"`
	// ImageType は画像の種別（"normal" または "inconvenience"）。
	ImageType string `json:"image_type"`
	// ImageURL は画像の取得URL。
	ImageURL string `json:"image_url"`
}

// AdminBroadcastData はAdminBroadcastイベントのペイロード。
type AdminBroadcastData struct {
	// Audience は宛先区分。
	Audience Audience `json:"audience"`
	// RecipientID は特定の顧客・ドライバー宛の場合の識別子。
	// 宛先区分が all-* の場合は使用しない。
	RecipientID string `json:"recipient_id,omitempty"`
	// Title はお知らせのタイトル。
	Title string `json:"title"`
	// Message はお知らせの本文。
	Message string `json:"message"`
}

// PriorityFor はイベントの内容から通知の優先度を決定する。
// 事故報告画像のアップロードと輸送完了は高優先度、それ以外は通常優先度になる。
func PriorityFor(kind Kind, payload any) Priority {
	switch kind {
	case KindImageUploaded:
		if data, ok := payload.(ImageUploadedData); ok && data.ImageType == ImageTypeInconvenience {
			return PriorityHigh
		}
	case KindStatusChanged:
		if data, ok := payload.(StatusChangedData); ok && data.Status == dispatch.StatusCompleted {
			return PriorityHigh
		}
	case KindNewRequest, KindAdminBroadcast:
	}
	return PriorityNormal
}
