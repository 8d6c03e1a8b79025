package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nao1215/dispatchhub/internal/dispatch"
	"github.com/nao1215/dispatchhub/internal/event"
	"github.com/nao1215/dispatchhub/internal/store"
	"github.com/nao1215/dispatchhub/pkg/middleware"
)

// imagesCollection は配車画像レコードを格納するコレクションパス。
const imagesCollection = "dispatch_image"

// maxUploadSize はアップロード可能なファイルの最大サイズ（10MB）。
// テスト時に差し替え可能にするためvarとして宣言する。
var maxUploadSize int64 = 10 << 20

// handleUploadImage は配車への画像添付を処理するハンドラを返す。
// マルチパートフォームからファイルを受け取り、ブロブストアに保存し、
// dispatch_imageコレクションにレコードを追加してImageUploaded通知を発火する。
func (s *Server) handleUploadImage() gin.HandlerFunc {
	return func(c *gin.Context) {
		dispatchID := c.Param("id")

		// 添付先の配車が存在することを確認する。
		doc, err := s.store.GetRecord(c.Request.Context(), dispatch.Collection, dispatchID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "配車が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "配車の取得に失敗しました"})
			log.Printf("配車取得エラー: %v", err)
			return
		}
		customerID, _ := doc["customer_id"].(string)

		// マルチパートフォームからファイルを取得する。
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("ファイルの取得に失敗しました: %v", err)})
			return
		}
		defer file.Close()

		if header.Size > maxUploadSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("ファイルサイズが上限を超えています（最大%dMB）", maxUploadSize/(1<<20))})
			return
		}

		contentType := header.Header.Get("Content-Type")
		if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("許可されていないContent-Typeです: %s（image/*のみ）", contentType)})
			return
		}

		// 画像種別（"normal" または "inconvenience"）。省略時はnormal。
		imageType := c.PostForm("type")
		if imageType == "" {
			imageType = "normal"
		}

		imageID := uuid.New().String()
		filename := filepath.Base(header.Filename)
		storagePath := fmt.Sprintf("dispatch_image/%s/%s_%s", dispatchID, imageID, filename)

		imageURL, err := s.blob.Upload(storagePath, file)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ファイルの保存に失敗しました"})
			log.Printf("画像保存エラー: %v", err)
			return
		}

		record := store.Document{
			"id":          imageID,
			"dispatch_id": dispatchID,
			"customer_id": customerID,
			"type":        imageType,
			"url":         imageURL,
			"filename":    filename,
			"uploaded_by": middleware.GetUserID(c),
		}
		if _, err := s.store.AddRecord(c.Request.Context(), imagesCollection, record); err != nil {
			// レコードの追加に失敗した場合、保存済みのファイルをクリーンアップする。
			s.blob.Delete(imageURL)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "画像レコードの作成に失敗しました"})
			log.Printf("画像レコード作成エラー: %v", err)
			return
		}

		// ImageUploaded通知を発火する。事故報告画像は高優先度になる。
		deliveries, err := s.engine.Dispatch(c.Request.Context(), event.KindImageUploaded, event.ImageUploadedData{
			DispatchID: dispatchID,
			CustomerID: customerID,
			ImageType:  imageType,
			ImageURL:   imageURL,
		})
		if err != nil {
			log.Printf("ImageUploaded通知の発火に失敗: %v", err)
		}
		logFailedDeliveries(deliveries)

		c.JSON(http.StatusCreated, gin.H{
			"id":  imageID,
			"url": imageURL,
		})
	}
}

// handleListImages は配車に添付された画像の一覧を返すハンドラを返す。
// 取得に失敗した場合はログに記録し、空配列を返す。
func (s *Server) handleListImages() gin.HandlerFunc {
	return func(c *gin.Context) {
		docs, err := s.store.QueryRecords(c.Request.Context(), imagesCollection,
			[]store.Filter{{Field: "dispatch_id", Value: c.Param("id")}},
			&store.OrderBy{Field: "created_at", Desc: true})
		if err != nil {
			log.Printf("画像一覧取得エラー: %v", err)
			c.JSON(http.StatusOK, []store.Document{})
			return
		}
		c.JSON(http.StatusOK, docs)
	}
}

// handleDeleteImage は画像を削除するハンドラを返す。管理者専用。
// ブロブの削除はベストエフォートであり、失敗してもレコードの削除は行う。
func (s *Server) handleDeleteImage() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		doc, err := s.store.GetRecord(c.Request.Context(), imagesCollection, id)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "画像が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "画像の取得に失敗しました"})
			log.Printf("画像取得エラー: %v", err)
			return
		}

		if imageURL, _ := doc["url"].(string); imageURL != "" {
			s.blob.Delete(imageURL)
		}

		if err := s.store.DeleteRecord(c.Request.Context(), imagesCollection, id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "画像の削除に失敗しました"})
			log.Printf("画像削除エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "画像を削除しました"})
	}
}
