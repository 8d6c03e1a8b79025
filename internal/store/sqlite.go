package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nao1215/dispatchhub/pkg/migration"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// SQLite はStoreインターフェースのSQLite実装。
// すべてのコレクションを単一のrecordsテーブルにJSONドキュメントとして格納する。
type SQLite struct {
	// db はSQLiteデータベース接続。
	db *sqlx.DB
	// mu はsubscribersへのアクセスを保護する。
	mu sync.Mutex
	// subscribers は購読中のコールバック。キーは購読ID。
	subscribers map[int]subscriber
	// nextSubID は次に採番する購読ID。
	nextSubID int
}

// subscriber はSubscribeで登録された1件の購読。
type subscriber struct {
	collection string
	filters    []Filter
	onChange   ChangeFunc
}

// NewSQLite は指定パスにSQLiteデータベースを開き、マイグレーションを適用する。
// パスに ":memory:" を指定するとインメモリデータベースになる（テスト用）。
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := migration.Run(db.DB, migrationFS, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("マイグレーションの適用に失敗: %w", err)
	}

	return &SQLite{
		db:          db,
		subscribers: make(map[int]subscriber),
	}, nil
}

// Close はデータベース接続を閉じる。
func (s *SQLite) Close() error {
	return s.db.Close()
}

// AddRecord はコレクションにレコードを追加し、採番されたIDを返す。
// doc["id"] が空の場合はUUIDを採番する。created_atが未設定の場合は現在時刻を設定する。
func (s *SQLite) AddRecord(ctx context.Context, collection string, doc Document) (string, error) {
	id, _ := doc["id"].(string)
	if id == "" {
		id = uuid.New().String()
	}

	stored := make(Document, len(doc)+2)
	for k, v := range doc {
		stored[k] = v
	}
	stored["id"] = id
	if _, ok := stored["created_at"]; !ok {
		stored["created_at"] = time.Now().UTC().Format(time.RFC3339)
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("レコードのシリアライズに失敗: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO records (collection, id, data) VALUES (?, ?, ?)",
		collection, id, string(data),
	)
	if err != nil {
		return "", fmt.Errorf("レコードの追加に失敗: collection=%s: %w", collection, err)
	}

	s.notify(collection, stored)
	return id, nil
}

// UpdateRecord は既存レコードにpartialの内容をマージして保存する。
// 対象レコードが存在しない場合はErrNotFoundを返す。
func (s *SQLite) UpdateRecord(ctx context.Context, collection, id string, partial Document) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var raw string
	err = tx.GetContext(ctx, &raw,
		"SELECT data FROM records WHERE collection = ? AND id = ?", collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("レコードの取得に失敗: %w", err)
	}

	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("レコードのデシリアライズに失敗: %w", err)
	}
	for k, v := range partial {
		doc[k] = v
	}
	// IDの書き換えは許可しない。
	doc["id"] = id

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("レコードのシリアライズに失敗: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE records SET data = ? WHERE collection = ? AND id = ?",
		string(data), collection, id,
	); err != nil {
		return fmt.Errorf("レコードの更新に失敗: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗: %w", err)
	}

	s.notify(collection, doc)
	return nil
}

// GetRecord はIDでレコードを1件取得する。存在しない場合はErrNotFoundを返す。
func (s *SQLite) GetRecord(ctx context.Context, collection, id string) (Document, error) {
	var raw string
	err := s.db.GetContext(ctx, &raw,
		"SELECT data FROM records WHERE collection = ? AND id = ?", collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("レコードの取得に失敗: collection=%s, id=%s: %w", collection, id, err)
	}

	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("レコードのデシリアライズに失敗: %w", err)
	}
	return doc, nil
}

// DeleteRecord はレコードを1件削除する。対象が存在しない場合はErrNotFoundを返す。
func (s *SQLite) DeleteRecord(ctx context.Context, collection, id string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM records WHERE collection = ? AND id = ?", collection, id)
	if err != nil {
		return fmt.Errorf("レコードの削除に失敗: collection=%s, id=%s: %w", collection, id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// QueryRecords はフィルタ・ソート条件に一致するレコードを取得する。
// フィルタはJSONフィールドへの等価条件。該当レコードがない場合は空スライスを返す。
func (s *SQLite) QueryRecords(ctx context.Context, collection string, filters []Filter, orderBy *OrderBy) ([]Document, error) {
	var sb strings.Builder
	sb.WriteString("SELECT data FROM records WHERE collection = ?")
	args := []any{collection}

	for _, f := range filters {
		sb.WriteString(" AND json_extract(data, ?) = ?")
		args = append(args, "$."+f.Field, filterValue(f.Value))
	}

	if orderBy != nil && orderBy.Field != "" {
		sb.WriteString(" ORDER BY json_extract(data, ?)")
		args = append(args, "$."+orderBy.Field)
		if orderBy.Desc {
			sb.WriteString(" DESC")
		}
	} else {
		sb.WriteString(" ORDER BY created_at")
		if orderBy != nil && orderBy.Desc {
			sb.WriteString(" DESC")
		}
	}

	var rows []string
	if err := s.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, fmt.Errorf("クエリの実行に失敗: collection=%s: %w", collection, err)
	}

	docs := make([]Document, 0, len(rows))
	for _, raw := range rows {
		var doc Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("レコードのデシリアライズに失敗: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Subscribe はコレクションへの書き込みを購読する。
// フィルタ条件に一致するレコードの追加・更新がコミットされた後にonChangeが呼ばれる。
func (s *SQLite) Subscribe(collection string, filters []Filter, onChange ChangeFunc) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = subscriber{
		collection: collection,
		filters:    filters,
		onChange:   onChange,
	}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// notify は書き込み後に一致する購読者へ変更を通知する。
func (s *SQLite) notify(collection string, doc Document) {
	s.mu.Lock()
	subs := make([]subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		if sub.collection == collection && matchFilters(doc, sub.filters) {
			subs = append(subs, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.onChange(doc)
	}
}

// filterValue はフィルタ値をjson_extractの戻り値と比較可能な形式に変換する。
// SQLiteのjson_extractはJSONの真偽値を整数0/1として返す。
func filterValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return v
}
