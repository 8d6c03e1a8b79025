package migration

import (
	"database/sql"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

// openTestDB はテスト用のインメモリSQLiteデータベースを開く。
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestRun はマイグレーションの適用を検証する。
func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("バージョン順にすべて適用される", func(t *testing.T) {
		t.Parallel()
		db := openTestDB(t)

		fsys := fstest.MapFS{
			"migrations/000002_add_column.up.sql": &fstest.MapFile{
				Data: []byte("ALTER TABLE items ADD COLUMN note TEXT"),
			},
			"migrations/000001_create_items.up.sql": &fstest.MapFile{
				Data: []byte("CREATE TABLE items (id TEXT PRIMARY KEY)"),
			},
		}

		if err := Run(db, fsys, "migrations"); err != nil {
			t.Fatalf("マイグレーションの適用に失敗: %v", err)
		}

		// 2番目のマイグレーションで追加された列が使用できる
		if _, err := db.Exec("INSERT INTO items (id, note) VALUES ('i-1', 'メモ')"); err != nil {
			t.Errorf("マイグレーション後のテーブルが不正: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("バージョン数の取得に失敗: %v", err)
		}
		if count != 2 {
			t.Errorf("適用済みバージョン数: got %d, want 2", count)
		}
	})

	t.Run("再実行しても適用済みバージョンはスキップされる", func(t *testing.T) {
		t.Parallel()
		db := openTestDB(t)

		fsys := fstest.MapFS{
			"migrations/000001_create_items.up.sql": &fstest.MapFile{
				Data: []byte("CREATE TABLE items (id TEXT PRIMARY KEY)"),
			},
		}

		if err := Run(db, fsys, "migrations"); err != nil {
			t.Fatalf("1回目の適用に失敗: %v", err)
		}
		// 再実行でCREATE TABLEが二重適用されればエラーになる
		if err := Run(db, fsys, "migrations"); err != nil {
			t.Fatalf("2回目の適用に失敗: %v", err)
		}
	})

	t.Run("命名規約に合わないファイルは無視される", func(t *testing.T) {
		t.Parallel()
		db := openTestDB(t)

		fsys := fstest.MapFS{
			"migrations/000001_create_items.up.sql": &fstest.MapFile{
				Data: []byte("CREATE TABLE items (id TEXT PRIMARY KEY)"),
			},
			"migrations/README.md": &fstest.MapFile{
				Data: []byte("マイグレーションの説明"),
			},
			"migrations/000001_create_items.down.sql": &fstest.MapFile{
				Data: []byte("DROP TABLE items"),
			},
		}

		if err := Run(db, fsys, "migrations"); err != nil {
			t.Fatalf("マイグレーションの適用に失敗: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("バージョン数の取得に失敗: %v", err)
		}
		if count != 1 {
			t.Errorf("適用済みバージョン数: got %d, want 1", count)
		}
	})

	t.Run("不正なSQLはエラーになり適用されない", func(t *testing.T) {
		t.Parallel()
		db := openTestDB(t)

		fsys := fstest.MapFS{
			"migrations/000001_broken.up.sql": &fstest.MapFile{
				Data: []byte("CREATE TABLE ("),
			},
		}

		if err := Run(db, fsys, "migrations"); err == nil {
			t.Fatal("エラーが返されるべきです")
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("バージョン数の取得に失敗: %v", err)
		}
		if count != 0 {
			t.Errorf("適用済みバージョン数: got %d, want 0", count)
		}
	})
}
