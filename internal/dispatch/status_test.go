package dispatch

import "testing"

// TestParseStatus は配車ステータスのパースを検証する。
func TestParseStatus(t *testing.T) {
	t.Parallel()

	t.Run("定義済みステータスをパースできる", func(t *testing.T) {
		t.Parallel()
		for _, s := range []string{"pending", "accepted", "rejected", "assigned", "in_progress", "completed", "cancelled"} {
			status, err := ParseStatus(s)
			if err != nil {
				t.Errorf("ParseStatus(%q): unexpected error: %v", s, err)
			}
			if string(status) != s {
				t.Errorf("ParseStatus(%q): got %q", s, status)
			}
		}
	})

	t.Run("未知の値はエラーになる", func(t *testing.T) {
		t.Parallel()
		for _, s := range []string{"", "unknown", "PENDING", "done"} {
			if _, err := ParseStatus(s); err == nil {
				t.Errorf("ParseStatus(%q): expected error", s)
			}
		}
	})
}

// TestCanTransition は状態遷移の許可・禁止を網羅的に検証する。
func TestCanTransition(t *testing.T) {
	t.Parallel()

	allowed := map[Status][]Status{
		StatusPending:    {StatusAccepted, StatusRejected, StatusCancelled},
		StatusAccepted:   {StatusAssigned, StatusCancelled},
		StatusAssigned:   {StatusInProgress, StatusCancelled},
		StatusInProgress: {StatusCompleted},
		StatusRejected:   {},
		StatusCompleted:  {},
		StatusCancelled:  {},
	}

	all := []Status{
		StatusPending, StatusAccepted, StatusRejected, StatusAssigned,
		StatusInProgress, StatusCompleted, StatusCancelled,
	}

	for from, tos := range allowed {
		want := make(map[Status]bool, len(tos))
		for _, to := range tos {
			want[to] = true
		}
		for _, to := range all {
			if got := from.CanTransition(to); got != want[to] {
				t.Errorf("CanTransition(%s → %s): got %v, want %v", from, to, got, want[to])
			}
		}
	}
}

// TestIsTerminal は終端状態の判定を検証する。
func TestIsTerminal(t *testing.T) {
	t.Parallel()

	terminal := map[Status]bool{
		StatusPending:    false,
		StatusAccepted:   false,
		StatusAssigned:   false,
		StatusInProgress: false,
		StatusRejected:   true,
		StatusCompleted:  true,
		StatusCancelled:  true,
	}

	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Errorf("IsTerminal(%s): got %v, want %v", status, got, want)
		}
	}
}

// TestTimestampField は状態ごとのタイムスタンプフィールド名を検証する。
func TestTimestampField(t *testing.T) {
	t.Parallel()

	fields := map[Status]string{
		StatusPending:    "created_at",
		StatusAccepted:   "accepted_at",
		StatusRejected:   "rejected_at",
		StatusAssigned:   "assigned_at",
		StatusInProgress: "started_at",
		StatusCompleted:  "completed_at",
		StatusCancelled:  "cancelled_at",
	}

	for status, want := range fields {
		if got := status.TimestampField(); got != want {
			t.Errorf("TimestampField(%s): got %q, want %q", status, got, want)
		}
	}
}
