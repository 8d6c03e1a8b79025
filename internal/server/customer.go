package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/dispatchhub/internal/store"
)

// customersCollection は顧客レコードを格納するコレクションパス。
const customersCollection = "customers"

// createCustomerRequest は顧客作成リクエストのJSON構造。
type createCustomerRequest struct {
	// ShortCode は顧客の外部向け識別子（例: cust_001）。
	// 指定された場合はレコードIDとしても使用される。
	ShortCode string `json:"short_code"`
	// Name は顧客の表示名。
	Name string `json:"name" binding:"required"`
	// Email はメールアドレス。
	Email string `json:"email"`
	// Phone は電話番号。
	Phone string `json:"phone"`
	// Address は住所。
	Address string `json:"address"`
	// AuthUID は認証プロバイダ側のユーザーID。
	AuthUID string `json:"auth_uid"`
}

// handleCreateCustomer は顧客を作成するハンドラを返す。管理者専用。
func (s *Server) handleCreateCustomer() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createCustomerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		doc := store.Document{
			"id":         req.ShortCode,
			"short_code": req.ShortCode,
			"name":       req.Name,
			"email":      req.Email,
			"phone":      req.Phone,
			"address":    req.Address,
			"auth_uid":   req.AuthUID,
		}

		id, err := s.store.AddRecord(c.Request.Context(), customersCollection, doc)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "顧客の作成に失敗しました"})
			log.Printf("顧客作成エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"id": id})
	}
}

// handleListCustomers は顧客一覧を返すハンドラを返す。
// 取得に失敗した場合はログに記録し、空配列を返す。
func (s *Server) handleListCustomers() gin.HandlerFunc {
	return func(c *gin.Context) {
		docs, err := s.store.QueryRecords(c.Request.Context(), customersCollection,
			nil, &store.OrderBy{Field: "created_at", Desc: true})
		if err != nil {
			log.Printf("顧客一覧取得エラー: %v", err)
			c.JSON(http.StatusOK, []store.Document{})
			return
		}
		c.JSON(http.StatusOK, docs)
	}
}

// handleGetCustomer は顧客を1件取得するハンドラを返す。
func (s *Server) handleGetCustomer() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := s.store.GetRecord(c.Request.Context(), customersCollection, c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "顧客が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "顧客の取得に失敗しました"})
			log.Printf("顧客取得エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

// handleUpdateCustomer は顧客情報を部分更新するハンドラを返す。管理者専用。
func (s *Server) handleUpdateCustomer() gin.HandlerFunc {
	return func(c *gin.Context) {
		var partial store.Document
		if err := c.ShouldBindJSON(&partial); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		err := s.store.UpdateRecord(c.Request.Context(), customersCollection, c.Param("id"), partial)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "顧客が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "顧客の更新に失敗しました"})
			log.Printf("顧客更新エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "顧客を更新しました"})
	}
}

// handleDeleteCustomer は顧客を削除するハンドラを返す。管理者専用。
// プロフィール画像が設定されている場合はベストエフォートで削除する。
func (s *Server) handleDeleteCustomer() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		doc, err := s.store.GetRecord(c.Request.Context(), customersCollection, id)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "顧客が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "顧客の取得に失敗しました"})
			log.Printf("顧客取得エラー: %v", err)
			return
		}

		if imageURL, _ := doc["profile_image_url"].(string); imageURL != "" {
			s.blob.Delete(imageURL)
		}

		if err := s.store.DeleteRecord(c.Request.Context(), customersCollection, id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "顧客の削除に失敗しました"})
			log.Printf("顧客削除エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "顧客を削除しました"})
	}
}
