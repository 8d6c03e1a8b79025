package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/dispatchhub/internal/dispatch"
	"github.com/nao1215/dispatchhub/internal/event"
	"github.com/nao1215/dispatchhub/internal/notify"
	"github.com/nao1215/dispatchhub/internal/store"
)

// createDispatchRequest は配車作成リクエストのJSON構造。
type createDispatchRequest struct {
	// CustomerID は依頼元顧客の識別子。
	CustomerID string `json:"customer_id" binding:"required"`
	// CustomerName は依頼元顧客の表示名。
	CustomerName string `json:"customer_name"`
	// SourceLocation は集荷地の住所。
	SourceLocation string `json:"source_location" binding:"required"`
	// DestinationLocation は配送先の住所。
	DestinationLocation string `json:"destination_location" binding:"required"`
}

// handleCreateDispatch は配車依頼を作成するハンドラを返す。
// 作成された配車はpending状態になり、管理者宛にNewRequest通知が発火する。
func (s *Server) handleCreateDispatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createDispatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		d := dispatch.Dispatch{
			Status:              dispatch.StatusPending,
			CustomerID:          req.CustomerID,
			CustomerName:        req.CustomerName,
			SourceLocation:      req.SourceLocation,
			DestinationLocation: req.DestinationLocation,
		}
		doc, err := store.ToDocument(d)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "配車の作成に失敗しました"})
			log.Printf("配車変換エラー: %v", err)
			return
		}
		// AddRecordでのID採番に任せるため、空のIDは取り除く。
		delete(doc, "id")

		id, err := s.store.AddRecord(c.Request.Context(), dispatch.Collection, doc)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "配車の作成に失敗しました"})
			log.Printf("配車作成エラー: %v", err)
			return
		}

		// 管理者宛にNewRequest通知を発火する。
		// 通知の失敗はログに記録し、配車の作成自体は成功として扱う。
		deliveries, err := s.engine.Dispatch(c.Request.Context(), event.KindNewRequest, event.NewRequestData{
			DispatchID:          id,
			CustomerID:          req.CustomerID,
			CustomerName:        req.CustomerName,
			SourceLocation:      req.SourceLocation,
			DestinationLocation: req.DestinationLocation,
		})
		if err != nil {
			log.Printf("NewRequest通知の発火に失敗: %v", err)
		}
		logFailedDeliveries(deliveries)

		c.JSON(http.StatusCreated, gin.H{
			"id":     id,
			"status": string(dispatch.StatusPending),
		})
	}
}

// handleListDispatches は配車一覧を返すハンドラを返す。
// クエリパラメータstatusで状態によるフィルタができる。
// 取得に失敗した場合はログに記録し、空配列を返す。
func (s *Server) handleListDispatches() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filters []store.Filter
		if status := c.Query("status"); status != "" {
			filters = append(filters, store.Filter{Field: "status", Value: status})
		}

		docs, err := s.store.QueryRecords(c.Request.Context(), dispatch.Collection,
			filters, &store.OrderBy{Field: "created_at", Desc: true})
		if err != nil {
			log.Printf("配車一覧取得エラー: %v", err)
			c.JSON(http.StatusOK, []store.Document{})
			return
		}
		c.JSON(http.StatusOK, docs)
	}
}

// handleGetDispatch は配車を1件取得するハンドラを返す。
func (s *Server) handleGetDispatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := s.store.GetRecord(c.Request.Context(), dispatch.Collection, c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "配車が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "配車の取得に失敗しました"})
			log.Printf("配車取得エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

// updateStatusRequest は配車状態遷移リクエストのJSON構造。
type updateStatusRequest struct {
	// Status は遷移先の状態。
	Status string `json:"status" binding:"required"`
	// Assignments はassignedへの遷移時に設定するドライバー・トラックの割り当て。
	Assignments []dispatch.Assignment `json:"assignments"`
}

// handleUpdateDispatchStatus は配車の状態遷移を処理するハンドラを返す。
//
// 状態機械で遷移の妥当性を検証し、状態の書き込み前に配車のスナップショットを
// 取得して通知メッセージの描画用フィールド（住所等）に使用する。
// 書き込み後にStatusChanged通知を各宛先へファンアウトする。
// 通知の部分的な失敗は状態遷移の成否に影響しない。
func (s *Server) handleUpdateDispatchStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		var req updateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		newStatus, err := dispatch.ParseStatus(req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// 状態書き込み前のスナップショットを取得する。
		doc, err := s.store.GetRecord(c.Request.Context(), dispatch.Collection, id)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "配車が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "配車の取得に失敗しました"})
			log.Printf("配車取得エラー: %v", err)
			return
		}

		prior, err := store.FromDocument[dispatch.Dispatch](doc)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "配車の読み取りに失敗しました"})
			log.Printf("配車デシリアライズエラー: %v", err)
			return
		}

		if !prior.Status.CanTransition(newStatus) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "不正な状態遷移です: " + string(prior.Status) + " → " + string(newStatus),
			})
			return
		}

		assignments := prior.Assignments
		if newStatus == dispatch.StatusAssigned && len(req.Assignments) > 0 {
			assignments = req.Assignments
		}

		partial := store.Document{"status": string(newStatus)}
		partial[newStatus.TimestampField()] = time.Now().UTC().Format(time.RFC3339)
		if newStatus == dispatch.StatusAssigned {
			assignmentDocs := make([]any, 0, len(assignments))
			for _, a := range assignments {
				d, convErr := store.ToDocument(a)
				if convErr != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "割り当ての変換に失敗しました"})
					log.Printf("割り当て変換エラー: %v", convErr)
					return
				}
				assignmentDocs = append(assignmentDocs, d)
			}
			partial["assignments"] = assignmentDocs
		}

		if err := s.store.UpdateRecord(c.Request.Context(), dispatch.Collection, id, partial); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "配車の更新に失敗しました"})
			log.Printf("配車状態更新エラー: %v", err)
			return
		}

		// StatusChanged通知をファンアウトする。住所等はスナップショットの値を使用する。
		deliveries, err := s.engine.Dispatch(c.Request.Context(), event.KindStatusChanged, event.StatusChangedData{
			DispatchID:          id,
			Status:              newStatus,
			CustomerID:          prior.CustomerID,
			SourceLocation:      prior.SourceLocation,
			DestinationLocation: prior.DestinationLocation,
			Assignments:         assignments,
		})
		if err != nil {
			log.Printf("StatusChanged通知の発火に失敗: %v", err)
		}
		logFailedDeliveries(deliveries)

		c.JSON(http.StatusOK, gin.H{
			"message": "配車の状態を更新しました",
			"status":  string(newStatus),
		})
	}
}

// logFailedDeliveries はファンアウト結果のうち失敗した宛先をログに記録する。
// 部分的な失敗はリトライせず、呼び出し元の成否にも影響させない。
func logFailedDeliveries(deliveries []notify.Delivery) {
	for _, d := range deliveries {
		if d.Err != nil {
			log.Printf("通知の配信に失敗: recipient=%s/%s, error=%v", d.Recipient.Kind, d.Recipient.ID, d.Err)
		}
	}
}
