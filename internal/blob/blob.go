// Package blob はアップロードファイルの保存と取得を提供する。
// ローカルファイルシステムに保存し、取得用のURLパスを返す。
package blob

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// urlPrefix は取得URLのプレフィックス。HTTPサーバー側の静的配信パスと一致させる。
const urlPrefix = "/files/"

// Store はファイルシステムを使用したオブジェクトストア。
type Store struct {
	// baseDir はファイルの保存先ルートディレクトリ。
	baseDir string
}

// New は保存先ディレクトリを初期化してStoreを生成する。
func New(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("ストレージディレクトリの作成に失敗: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// Upload はデータを指定パスに保存し、取得用URLを返す。
// パスの中間ディレクトリは自動的に作成する。
func (s *Store) Upload(path string, r io.Reader) (string, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("保存先ディレクトリの作成に失敗: %w", err)
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("ファイルの作成に失敗: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		return "", fmt.Errorf("ファイルの書き込みに失敗: %w", err)
	}

	return urlPrefix + path, nil
}

// Delete は指定されたURLまたはパスのファイルを削除する。
// 削除はベストエフォートであり、失敗してもログに記録するのみでエラーを返さない。
func (s *Store) Delete(urlOrPath string) {
	path := strings.TrimPrefix(urlOrPath, urlPrefix)
	fullPath, err := s.resolve(path)
	if err != nil {
		log.Printf("ファイル削除をスキップ: %v", err)
		return
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		log.Printf("ファイルの削除に失敗: path=%s, error=%v", path, err)
	}
}

// FilePath は取得URLまたは相対パスをファイルシステム上の絶対パスに変換する。
// 静的配信ハンドラから使用する。
func (s *Store) FilePath(urlOrPath string) (string, error) {
	return s.resolve(strings.TrimPrefix(urlOrPath, urlPrefix))
}

// resolve は相対パスをbaseDir配下の絶対パスに解決する。
// baseDirの外側を指すパスは拒否する。
func (s *Store) resolve(path string) (string, error) {
	fullPath := filepath.Join(s.baseDir, filepath.Clean("/"+path))
	if !strings.HasPrefix(fullPath, s.baseDir+string(os.PathSeparator)) {
		return "", fmt.Errorf("不正なファイルパス: %s", path)
	}
	return fullPath, nil
}
