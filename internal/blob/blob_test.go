package blob

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestUpload はファイルの保存と取得URLの生成を検証する。
func TestUpload(t *testing.T) {
	t.Parallel()

	t.Run("保存したファイルの内容が一致する", func(t *testing.T) {
		t.Parallel()
		s, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("ストアの作成に失敗: %v", err)
		}

		url, err := s.Upload("dispatch_image/disp-1/photo.jpg", strings.NewReader("画像データ"))
		if err != nil {
			t.Fatalf("アップロードに失敗: %v", err)
		}
		if url != "/files/dispatch_image/disp-1/photo.jpg" {
			t.Errorf("URL: got %s", url)
		}

		fullPath, err := s.FilePath(url)
		if err != nil {
			t.Fatalf("パス解決に失敗: %v", err)
		}
		data, err := os.ReadFile(fullPath)
		if err != nil {
			t.Fatalf("ファイルの読み込みに失敗: %v", err)
		}
		if string(data) != "画像データ" {
			t.Errorf("内容: got %q, want 画像データ", data)
		}
	})

	t.Run("中間ディレクトリが自動的に作成される", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		s, err := New(dir)
		if err != nil {
			t.Fatalf("ストアの作成に失敗: %v", err)
		}

		if _, err := s.Upload("a/b/c/file.txt", strings.NewReader("x")); err != nil {
			t.Fatalf("アップロードに失敗: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "a", "b", "c", "file.txt")); err != nil {
			t.Errorf("ファイルが存在しません: %v", err)
		}
	})
}

// TestDelete はベストエフォート削除の動作を検証する。
func TestDelete(t *testing.T) {
	t.Parallel()

	t.Run("保存済みファイルを削除できる", func(t *testing.T) {
		t.Parallel()
		s, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("ストアの作成に失敗: %v", err)
		}

		url, err := s.Upload("photo.jpg", strings.NewReader("データ"))
		if err != nil {
			t.Fatalf("アップロードに失敗: %v", err)
		}

		s.Delete(url)

		fullPath, _ := s.FilePath(url)
		if _, err := os.Stat(fullPath); !os.IsNotExist(err) {
			t.Error("ファイルが削除されていません")
		}
	})

	t.Run("存在しないファイルの削除はエラーにならない", func(t *testing.T) {
		t.Parallel()
		s, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("ストアの作成に失敗: %v", err)
		}

		// パニックやエラーを起こさず正常に戻ることのみを確認する
		s.Delete("/files/nonexistent.jpg")
	})
}

// TestPathTraversal はベースディレクトリ外を指すパスの拒否を検証する。
func TestPathTraversal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("ストアの作成に失敗: %v", err)
	}

	// filepath.Cleanにより上位ディレクトリへの参照は無害化され、
	// 保存先はベースディレクトリ配下に制限される
	url, err := s.Upload("../../etc/passwd", strings.NewReader("データ"))
	if err != nil {
		t.Fatalf("アップロードに失敗: %v", err)
	}

	fullPath, err := s.FilePath(url)
	if err != nil {
		t.Fatalf("パス解決に失敗: %v", err)
	}
	if !strings.HasPrefix(fullPath, dir) {
		t.Errorf("保存先がベースディレクトリ外です: %s", fullPath)
	}
}
