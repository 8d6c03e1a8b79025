package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/dispatchhub/internal/store"
)

// trucksCollection はトラックレコードを格納するコレクションパス。
const trucksCollection = "trucks"

// createTruckRequest はトラック作成リクエストのJSON構造。
type createTruckRequest struct {
	// ShortCode はトラックの外部向け識別子（例: truck_001）。
	// 指定された場合はレコードIDとしても使用される。
	ShortCode string `json:"short_code"`
	// PlateNo はナンバープレート。
	PlateNo string `json:"plate_no" binding:"required"`
	// Model は車種。
	Model string `json:"model"`
	// CapacityTons は最大積載量（トン）。
	CapacityTons float64 `json:"capacity_tons"`
}

// handleCreateTruck はトラックを作成するハンドラを返す。管理者専用。
func (s *Server) handleCreateTruck() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createTruckRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		doc := store.Document{
			"id":            req.ShortCode,
			"short_code":    req.ShortCode,
			"plate_no":      req.PlateNo,
			"model":         req.Model,
			"capacity_tons": req.CapacityTons,
			"status":        "active",
		}

		id, err := s.store.AddRecord(c.Request.Context(), trucksCollection, doc)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "トラックの作成に失敗しました"})
			log.Printf("トラック作成エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"id": id})
	}
}

// handleListTrucks はトラック一覧を返すハンドラを返す。
// 取得に失敗した場合はログに記録し、空配列を返す。
func (s *Server) handleListTrucks() gin.HandlerFunc {
	return func(c *gin.Context) {
		docs, err := s.store.QueryRecords(c.Request.Context(), trucksCollection,
			nil, &store.OrderBy{Field: "created_at", Desc: true})
		if err != nil {
			log.Printf("トラック一覧取得エラー: %v", err)
			c.JSON(http.StatusOK, []store.Document{})
			return
		}
		c.JSON(http.StatusOK, docs)
	}
}

// handleGetTruck はトラックを1件取得するハンドラを返す。
func (s *Server) handleGetTruck() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := s.store.GetRecord(c.Request.Context(), trucksCollection, c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "トラックが見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "トラックの取得に失敗しました"})
			log.Printf("トラック取得エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

// handleUpdateTruck はトラック情報を部分更新するハンドラを返す。管理者専用。
func (s *Server) handleUpdateTruck() gin.HandlerFunc {
	return func(c *gin.Context) {
		var partial store.Document
		if err := c.ShouldBindJSON(&partial); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		err := s.store.UpdateRecord(c.Request.Context(), trucksCollection, c.Param("id"), partial)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "トラックが見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "トラックの更新に失敗しました"})
			log.Printf("トラック更新エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "トラックを更新しました"})
	}
}

// handleDeleteTruck はトラックを削除するハンドラを返す。管理者専用。
func (s *Server) handleDeleteTruck() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := s.store.DeleteRecord(c.Request.Context(), trucksCollection, c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "トラックが見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "トラックの削除に失敗しました"})
			log.Printf("トラック削除エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "トラックを削除しました"})
	}
}
