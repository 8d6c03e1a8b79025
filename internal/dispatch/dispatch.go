package dispatch

// Collection は配車レコードを格納するコレクションパス。
const Collection = "dispatches"

// Assignment は配車に対するドライバーとトラックの割り当てを表す。
type Assignment struct {
	// DriverID は割り当てられたドライバーの識別子。
	DriverID string `json:"driver_id"`
	// TruckID は割り当てられたトラックの識別子。
	TruckID string `json:"truck_id"`
	// Status は割り当て単位の状態（省略時は配車本体の状態に従う）。
	Status string `json:"status,omitempty"`
}

// Dispatch は1件の配車（輸送依頼）を表す。
type Dispatch struct {
	// ID は配車の一意識別子。
	ID string `json:"id"`
	// Status は配車の現在の状態。
	Status Status `json:"status"`
	// CustomerID は依頼元顧客の識別子。
	CustomerID string `json:"customer_id"`
	// CustomerName は依頼元顧客の表示名。通知メッセージの描画に使用する。
	CustomerName string `json:"customer_name,omitempty"`
	// SourceLocation は集荷地の住所。
	SourceLocation string `json:"source_location"`
	// DestinationLocation は配送先の住所。
	DestinationLocation string `json:"destination_location"`
	// Assignments はドライバー・トラックの割り当て一覧。
	Assignments []Assignment `json:"assignments,omitempty"`
	// CreatedAt は依頼の作成日時（RFC3339形式）。
	CreatedAt string `json:"created_at,omitempty"`
	// AcceptedAt は承認日時。
	AcceptedAt string `json:"accepted_at,omitempty"`
	// RejectedAt は却下日時。
	RejectedAt string `json:"rejected_at,omitempty"`
	// AssignedAt は割り当て日時。
	AssignedAt string `json:"assigned_at,omitempty"`
	// StartedAt は輸送開始日時。
	StartedAt string `json:"started_at,omitempty"`
	// CompletedAt は輸送完了日時。
	CompletedAt string `json:"completed_at,omitempty"`
	// CancelledAt はキャンセル日時。
	CancelledAt string `json:"cancelled_at,omitempty"`
}
