package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/dispatchhub/internal/event"
	"github.com/nao1215/dispatchhub/internal/notify"
	"github.com/nao1215/dispatchhub/internal/store"
	"github.com/nao1215/dispatchhub/pkg/middleware"
)

// feedCollection は認証済みユーザーのロールに応じた通知フィードの
// コレクションパスを返す。管理者は共有フィード、顧客・ドライバーは
// ユーザーごとの専用フィードを参照する。
func feedCollection(c *gin.Context) string {
	switch middleware.GetRole(c) {
	case "customer":
		return "customers/" + middleware.GetUserID(c) + "/notifications"
	case "driver":
		return "drivers/" + middleware.GetUserID(c) + "/notifications"
	}
	return notify.AdminCollection
}

// handleListNotifications は通知一覧を新しい順で返すハンドラを返す。
// 取得に失敗した場合はログに記録し、空配列を返す。
func (s *Server) handleListNotifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		docs, err := s.store.QueryRecords(c.Request.Context(), feedCollection(c),
			nil, &store.OrderBy{Field: "created_at", Desc: true})
		if err != nil {
			log.Printf("通知一覧取得エラー: %v", err)
			c.JSON(http.StatusOK, []store.Document{})
			return
		}
		c.JSON(http.StatusOK, docs)
	}
}

// handleListUnreadNotifications は未読通知の一覧を新しい順で返すハンドラを返す。
// 取得に失敗した場合はログに記録し、空配列を返す。
func (s *Server) handleListUnreadNotifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		docs, err := s.store.QueryRecords(c.Request.Context(), feedCollection(c),
			[]store.Filter{{Field: "is_read", Value: false}},
			&store.OrderBy{Field: "created_at", Desc: true})
		if err != nil {
			log.Printf("未読通知取得エラー: %v", err)
			c.JSON(http.StatusOK, []store.Document{})
			return
		}
		c.JSON(http.StatusOK, docs)
	}
}

// handleMarkAsRead は通知を既読にするハンドラを返す。
// 既読済みの通知に対しても成功を返す（冪等）。
func (s *Server) handleMarkAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := s.store.UpdateRecord(c.Request.Context(), feedCollection(c), c.Param("id"),
			store.Document{"is_read": true})
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "通知が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の更新に失敗しました"})
			log.Printf("通知既読化エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "通知を既読にしました"})
	}
}

// handleMarkAllAsRead はフィード内の全未読通知を既読にするハンドラを返す。
// 個々の更新の失敗はログに記録し、残りの更新は継続する。
func (s *Server) handleMarkAllAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		collection := feedCollection(c)
		docs, err := s.store.QueryRecords(c.Request.Context(), collection,
			[]store.Filter{{Field: "is_read", Value: false}}, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "未読通知の取得に失敗しました"})
			log.Printf("未読通知取得エラー: %v", err)
			return
		}

		updated := 0
		for _, doc := range docs {
			id, _ := doc["id"].(string)
			if id == "" {
				continue
			}
			if err := s.store.UpdateRecord(c.Request.Context(), collection, id,
				store.Document{"is_read": true}); err != nil {
				log.Printf("通知既読化エラー: id=%s, error=%v", id, err)
				continue
			}
			updated++
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "通知を既読にしました",
			"updated": updated,
		})
	}
}

// broadcastRequest は管理者ブロードキャストリクエストのJSON構造。
type broadcastRequest struct {
	// Audience はブロードキャストの宛先区分。
	Audience string `json:"audience" binding:"required,oneof=all-customers all-drivers all-users specific-customer specific-driver"`
	// RecipientID は specific-* の宛先区分における宛先の識別子。
	RecipientID string `json:"recipient_id"`
	// Title はブロードキャストのタイトル。
	Title string `json:"title" binding:"required"`
	// Message はブロードキャストの本文。
	Message string `json:"message" binding:"required"`
}

// handleBroadcast は管理者ブロードキャストを発火するハンドラを返す。管理者専用。
// 宛先区分を展開して各宛先へファンアウトし、配信結果の集計を返す。
func (s *Server) handleBroadcast() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req broadcastRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		deliveries, err := s.engine.Dispatch(c.Request.Context(), event.KindAdminBroadcast, event.AdminBroadcastData{
			Audience:    event.Audience(req.Audience),
			RecipientID: req.RecipientID,
			Title:       req.Title,
			Message:     req.Message,
		})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logFailedDeliveries(deliveries)

		delivered, failed := 0, 0
		for _, d := range deliveries {
			if d.Err != nil {
				failed++
				continue
			}
			delivered++
		}

		c.JSON(http.StatusOK, gin.H{
			"message":   "ブロードキャストを送信しました",
			"delivered": delivered,
			"failed":    failed,
		})
	}
}
