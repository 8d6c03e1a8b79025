package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/dispatchhub/internal/store"
)

// driversCollection はドライバーレコードを格納するコレクションパス。
const driversCollection = "drivers"

// createDriverRequest はドライバー作成リクエストのJSON構造。
type createDriverRequest struct {
	// ShortCode はドライバーの外部向け識別子（例: drv_001）。
	// 指定された場合はレコードIDとしても使用される。
	ShortCode string `json:"short_code"`
	// Name はドライバーの氏名。
	Name string `json:"name" binding:"required"`
	// Phone は電話番号。
	Phone string `json:"phone"`
	// LicenseNo は運転免許証番号。
	LicenseNo string `json:"license_no"`
	// AuthUID は認証プロバイダ側のユーザーID。
	AuthUID string `json:"auth_uid"`
}

// handleCreateDriver はドライバーを作成するハンドラを返す。管理者専用。
func (s *Server) handleCreateDriver() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createDriverRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		doc := store.Document{
			"id":         req.ShortCode,
			"short_code": req.ShortCode,
			"name":       req.Name,
			"phone":      req.Phone,
			"license_no": req.LicenseNo,
			"auth_uid":   req.AuthUID,
			"status":     "available",
		}

		id, err := s.store.AddRecord(c.Request.Context(), driversCollection, doc)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ドライバーの作成に失敗しました"})
			log.Printf("ドライバー作成エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"id": id})
	}
}

// handleListDrivers はドライバー一覧を返すハンドラを返す。
// 取得に失敗した場合はログに記録し、空配列を返す。
func (s *Server) handleListDrivers() gin.HandlerFunc {
	return func(c *gin.Context) {
		docs, err := s.store.QueryRecords(c.Request.Context(), driversCollection,
			nil, &store.OrderBy{Field: "created_at", Desc: true})
		if err != nil {
			log.Printf("ドライバー一覧取得エラー: %v", err)
			c.JSON(http.StatusOK, []store.Document{})
			return
		}
		c.JSON(http.StatusOK, docs)
	}
}

// handleGetDriver はドライバーを1件取得するハンドラを返す。
func (s *Server) handleGetDriver() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := s.store.GetRecord(c.Request.Context(), driversCollection, c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ドライバーが見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ドライバーの取得に失敗しました"})
			log.Printf("ドライバー取得エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

// handleUpdateDriver はドライバー情報を部分更新するハンドラを返す。管理者専用。
func (s *Server) handleUpdateDriver() gin.HandlerFunc {
	return func(c *gin.Context) {
		var partial store.Document
		if err := c.ShouldBindJSON(&partial); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		err := s.store.UpdateRecord(c.Request.Context(), driversCollection, c.Param("id"), partial)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ドライバーが見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ドライバーの更新に失敗しました"})
			log.Printf("ドライバー更新エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "ドライバーを更新しました"})
	}
}

// handleDeleteDriver はドライバーを削除するハンドラを返す。管理者専用。
// プロフィール画像が設定されている場合はベストエフォートで削除する。
func (s *Server) handleDeleteDriver() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		doc, err := s.store.GetRecord(c.Request.Context(), driversCollection, id)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ドライバーが見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ドライバーの取得に失敗しました"})
			log.Printf("ドライバー取得エラー: %v", err)
			return
		}

		if imageURL, _ := doc["profile_image_url"].(string); imageURL != "" {
			s.blob.Delete(imageURL)
		}

		if err := s.store.DeleteRecord(c.Request.Context(), driversCollection, id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ドライバーの削除に失敗しました"})
			log.Printf("ドライバー削除エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "ドライバーを削除しました"})
	}
}
