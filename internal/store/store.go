// Package store はドキュメントストアの抽象と実装を提供する。
//
// 顧客・ドライバー・トラック・配車・通知などのコレクションを
// コレクションパスで指定して読み書きする。永続化の実体はSQLiteだが、
// 利用側はStoreインターフェースにのみ依存する。
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound は指定されたレコードが存在しないことを表す。
var ErrNotFound = errors.New("レコードが見つかりません")

// Document はコレクションに格納される1件のレコード。
// JSONオブジェクトとして永続化される。
type Document map[string]any

// Filter はクエリの等価条件を表す。
type Filter struct {
	// Field は比較対象のフィールド名。
	Field string
	// Value は比較する値。
	Value any
}

// OrderBy はクエリのソート条件を表す。
type OrderBy struct {
	// Field はソート対象のフィールド名。空の場合は作成日時順になる。
	Field string
	// Desc がtrueの場合は降順でソートする。
	Desc bool
}

// ChangeFunc はSubscribeで登録する変更通知コールバック。
// 書き込みがコミットされた後に、変更後のレコードを受け取る。
type ChangeFunc func(doc Document)

// Store はドキュメントストアが提供する機能のインターフェース。
// テスト時にはフェイク実装に差し替えられる。
type Store interface {
	// AddRecord はコレクションにレコードを追加し、採番されたIDを返す。
	// doc["id"] が指定されていればそのIDを使用する。
	AddRecord(ctx context.Context, collection string, doc Document) (string, error)
	// UpdateRecord は既存レコードにpartialの内容をマージして保存する。
	UpdateRecord(ctx context.Context, collection, id string, partial Document) error
	// GetRecord はIDでレコードを1件取得する。存在しない場合はErrNotFoundを返す。
	GetRecord(ctx context.Context, collection, id string) (Document, error)
	// DeleteRecord はレコードを1件削除する。存在しない場合はErrNotFoundを返す。
	DeleteRecord(ctx context.Context, collection, id string) error
	// QueryRecords はフィルタ・ソート条件に一致するレコードを取得する。
	QueryRecords(ctx context.Context, collection string, filters []Filter, orderBy *OrderBy) ([]Document, error)
	// Subscribe はコレクションへの書き込みを購読する。
	// 返却された関数を呼び出すと購読を解除する。
	Subscribe(collection string, filters []Filter, onChange ChangeFunc) func()
	// Close はストアの接続を閉じる。
	Close() error
}

// ToDocument は構造体をDocumentに変換する。
// JSONタグに従ってフィールド名がマッピングされる。
func ToDocument(v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("レコードのシリアライズに失敗: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("レコードの変換に失敗: %w", err)
	}
	return doc, nil
}

// FromDocument はDocumentを指定された型にデシリアライズする。
func FromDocument[T any](doc Document) (*T, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("レコードのシリアライズに失敗: %w", err)
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("レコードのデシリアライズに失敗: %w", err)
	}
	return &v, nil
}

// matchFilters はレコードがすべてのフィルタ条件を満たすかを判定する。
// JSON経由で正規化した値同士を比較するため、数値型の違いは吸収される。
func matchFilters(doc Document, filters []Filter) bool {
	for _, f := range filters {
		if !jsonEqual(doc[f.Field], f.Value) {
			return false
		}
	}
	return true
}

// jsonEqual は2つの値をJSON表現に正規化して比較する。
func jsonEqual(a, b any) bool {
	aj, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bj, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(aj) == string(bj)
}
