// Package dispatch は配車（トラック輸送依頼）のエンティティと状態遷移を定義する。
//
// 配車はリクエストから完了までのライフサイクルを持ち、
// 状態遷移のたびに通知のファンアウトが発火する。
package dispatch

import "fmt"

// Status は配車の状態を表す閉じた列挙型。
type Status string

const (
	// StatusPending は顧客からの依頼を受け付け、管理者の対応待ちの状態。
	StatusPending Status = "pending"
	// StatusAccepted は管理者が依頼を承認した状態。
	StatusAccepted Status = "accepted"
	// StatusRejected は管理者が依頼を却下した状態（終端）。
	StatusRejected Status = "rejected"
	// StatusAssigned はドライバーとトラックが割り当てられた状態。
	StatusAssigned Status = "assigned"
	// StatusInProgress は輸送が開始された状態。
	StatusInProgress Status = "in_progress"
	// StatusCompleted は輸送が完了した状態（終端）。
	StatusCompleted Status = "completed"
	// StatusCancelled は依頼がキャンセルされた状態（終端）。
	StatusCancelled Status = "cancelled"
)

// transitions は状態ごとの遷移先を定義する。
// pending → accepted|rejected、accepted → assigned、assigned → in_progress、
// in_progress → completed。cancelledはpending・accepted・assignedから遷移できる。
var transitions = map[Status][]Status{
	StatusPending:    {StatusAccepted, StatusRejected, StatusCancelled},
	StatusAccepted:   {StatusAssigned, StatusCancelled},
	StatusAssigned:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
	StatusRejected:   {},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// ParseStatus は文字列をStatusに変換する。未知の値はエラーになる。
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if _, ok := transitions[status]; !ok {
		return "", fmt.Errorf("未知の配車ステータス: %s", s)
	}
	return status, nil
}

// CanTransition は現在の状態からtoへの遷移が許可されているかを返す。
func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal は終端状態（以後の遷移がない状態）かどうかを返す。
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// TimestampField は状態遷移時に記録するタイムスタンプのフィールド名を返す。
func (s Status) TimestampField() string {
	switch s {
	case StatusPending:
		return "created_at"
	case StatusAccepted:
		return "accepted_at"
	case StatusRejected:
		return "rejected_at"
	case StatusAssigned:
		return "assigned_at"
	case StatusInProgress:
		return "started_at"
	case StatusCompleted:
		return "completed_at"
	case StatusCancelled:
		return "cancelled_at"
	}
	return ""
}
