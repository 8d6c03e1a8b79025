package server

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/dispatchhub/internal/store"
	"github.com/nao1215/dispatchhub/pkg/middleware"
)

// usersCollection はサインイン用ユーザーを格納するコレクションパス。
const usersCollection = "users"

// signInRequest はサインインリクエストのJSON構造。
type signInRequest struct {
	// Email はユーザーのメールアドレス。
	Email string `json:"email" binding:"required,email"`
	// Password はパスワード。
	Password string `json:"password" binding:"required"`
}

// handleSignIn はメールアドレスとパスワードで認証しJWTを発行するハンドラを返す。
func (s *Server) handleSignIn() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req signInRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "メールアドレスとパスワードが必要です"})
			return
		}

		users, err := s.store.QueryRecords(c.Request.Context(), usersCollection,
			[]store.Filter{{Field: "email", Value: req.Email}}, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "認証処理に失敗しました"})
			log.Printf("ユーザー検索エラー: %v", err)
			return
		}
		if len(users) == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "メールアドレスまたはパスワードが正しくありません"})
			return
		}

		user := users[0]
		digest, _ := user["password_digest"].(string)
		if !verifyPassword(req.Password, digest) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "メールアドレスまたはパスワードが正しくありません"})
			return
		}

		userID, _ := user["id"].(string)
		role, _ := user["role"].(string)
		token, err := middleware.GenerateJWT(s.cfg.JWTSecret, userID, role, req.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "トークン生成に失敗しました"})
			log.Printf("JWT生成エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":   token,
			"user_id": userID,
			"role":    role,
		})
	}
}

// handleMe は認証済みユーザーの情報を返すハンドラを返す。
func (s *Server) handleMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		user, err := s.store.GetRecord(c.Request.Context(), usersCollection, userID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "ユーザーが見つかりません"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":           user["id"],
			"email":        user["email"],
			"role":         user["role"],
			"display_name": user["display_name"],
		})
	}
}

// createUserRequest はユーザー作成リクエストのJSON構造。
type createUserRequest struct {
	// ID はユーザーの識別子。顧客・ドライバーのレコードIDと揃えることで
	// 通知フィードが対応付けられる。省略時はUUIDが採番される。
	ID string `json:"id"`
	// Email はユーザーのメールアドレス。
	Email string `json:"email" binding:"required,email"`
	// Password はパスワード。
	Password string `json:"password" binding:"required,min=8"`
	// Role はユーザーのロール。
	Role string `json:"role" binding:"required,oneof=admin customer driver"`
	// DisplayName は表示名。
	DisplayName string `json:"display_name"`
}

// handleCreateUser はサインイン用ユーザーを作成するハンドラを返す。管理者専用。
func (s *Server) handleCreateUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		doc := store.Document{
			"id":              req.ID,
			"email":           req.Email,
			"password_digest": hashPassword(req.Password),
			"role":            req.Role,
			"display_name":    req.DisplayName,
		}

		id, err := s.store.AddRecord(c.Request.Context(), usersCollection, doc)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザーの作成に失敗しました"})
			log.Printf("ユーザー作成エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"id": id})
	}
}

// hashPassword はパスワードのSHA-256ダイジェストを16進文字列で返す。
func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// verifyPassword はパスワードが保存済みダイジェストと一致するかを検証する。
func verifyPassword(password, digest string) bool {
	if digest == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(hashPassword(password)), []byte(digest)) == 1
}
