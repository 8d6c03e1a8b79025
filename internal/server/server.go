// Package server はdispatchhubのHTTP APIサーバーを提供する。
//
// 運送会社の管理ダッシュボード向けに、顧客・ドライバー・トラック・配車・
// 画像・通知のCRUD APIを公開する。状態を変更する操作は通知ファンアウト
// エンジンを通じて各宛先への通知を発火させる。
package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/dispatchhub/internal/blob"
	"github.com/nao1215/dispatchhub/internal/config"
	"github.com/nao1215/dispatchhub/internal/notify"
	"github.com/nao1215/dispatchhub/internal/store"
	"github.com/nao1215/dispatchhub/pkg/middleware"
)

// Server はdispatchhubのHTTPサーバー。
// 依存するストア・ブロブストア・ファンアウトエンジンは外部から注入される。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg はサービス設定。
	cfg *config.Config
	// store はドキュメントストア。
	store store.Store
	// blob はアップロードファイルの保存先。
	blob *blob.Store
	// engine は通知ファンアウトエンジン。
	engine *notify.Engine
}

// New は依存を注入して新しいサーバーを生成する。
func New(cfg *config.Config, st store.Store, bs *blob.Store, engine *notify.Engine) *Server {
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS([]string{cfg.FrontendURL}))

	// マルチパートフォームの最大メモリを設定する。
	router.MaxMultipartMemory = maxUploadSize

	s := &Server{
		router: router,
		cfg:    cfg,
		store:  st,
		blob:   bs,
		engine: engine,
	}
	s.setupRoutes()

	return s
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.cfg.Port))
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	// 認証エンドポイント（認証不要）
	auth := s.router.Group("/auth")
	{
		auth.POST("/sign-in", s.handleSignIn())
	}

	api := s.router.Group("/api/v1")
	api.Use(middleware.JWTAuth(s.cfg.JWTSecret))
	{
		// 認証済みユーザー情報
		api.GET("/me", s.handleMe())

		// ユーザー管理（管理者のみ）
		api.POST("/users", middleware.RequireRole("admin"), s.handleCreateUser())

		// 顧客
		customers := api.Group("/customers")
		{
			customers.POST("", middleware.RequireRole("admin"), s.handleCreateCustomer())
			customers.GET("", s.handleListCustomers())
			customers.GET("/:id", s.handleGetCustomer())
			customers.PUT("/:id", middleware.RequireRole("admin"), s.handleUpdateCustomer())
			customers.DELETE("/:id", middleware.RequireRole("admin"), s.handleDeleteCustomer())
		}

		// ドライバー
		drivers := api.Group("/drivers")
		{
			drivers.POST("", middleware.RequireRole("admin"), s.handleCreateDriver())
			drivers.GET("", s.handleListDrivers())
			drivers.GET("/:id", s.handleGetDriver())
			drivers.PUT("/:id", middleware.RequireRole("admin"), s.handleUpdateDriver())
			drivers.DELETE("/:id", middleware.RequireRole("admin"), s.handleDeleteDriver())
		}

		// トラック
		trucks := api.Group("/trucks")
		{
			trucks.POST("", middleware.RequireRole("admin"), s.handleCreateTruck())
			trucks.GET("", s.handleListTrucks())
			trucks.GET("/:id", s.handleGetTruck())
			trucks.PUT("/:id", middleware.RequireRole("admin"), s.handleUpdateTruck())
			trucks.DELETE("/:id", middleware.RequireRole("admin"), s.handleDeleteTruck())
		}

		// 配車
		dispatches := api.Group("/dispatches")
		{
			dispatches.POST("", middleware.RequireRole("admin", "customer"), s.handleCreateDispatch())
			dispatches.GET("", s.handleListDispatches())
			dispatches.GET("/:id", s.handleGetDispatch())
			// 状態遷移（管理者またはドライバーが実行する）
			dispatches.PUT("/:id/status", middleware.RequireRole("admin", "driver"), s.handleUpdateDispatchStatus())
			// 配車への画像添付
			dispatches.POST("/:id/images", s.handleUploadImage())
			dispatches.GET("/:id/images", s.handleListImages())
		}

		// 画像の削除
		api.DELETE("/images/:id", middleware.RequireRole("admin"), s.handleDeleteImage())

		// 通知
		notifications := api.Group("/notifications")
		{
			// 通知一覧取得（ロールに応じたフィードを返す）
			notifications.GET("", s.handleListNotifications())
			// 未読通知一覧取得
			notifications.GET("/unread", s.handleListUnreadNotifications())
			// 通知を既読にする
			notifications.PUT("/:id/read", s.handleMarkAsRead())
			// 全通知を既読にする
			notifications.PUT("/read-all", s.handleMarkAllAsRead())
			// 管理者ブロードキャスト
			notifications.POST("/broadcast", middleware.RequireRole("admin"), s.handleBroadcast())
		}
	}

	// アップロードファイルの取得（img要素から直接参照されるため認証不要）
	s.router.Static("/files", s.cfg.StorageDir)

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "dispatchhub"})
	})
}
