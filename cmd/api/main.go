package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	api "github.com/tetris-battle/engine/internal/api/handlers"
	auth "github.com/tetris-battle/engine/internal/api/middleware"
	"github.com/tetris-battle/engine/internal/database"
	"github.com/tetris-battle/engine/internal/services/room"
	"github.com/tetris-battle/engine/internal/services/tetris"
	"github.com/tetris-battle/engine/internal/store"
)

// storePublisher adapts a store.Store into the tetris.Publisher interface
// the player simulation uses to announce game-over state.
type storePublisher struct {
	st store.Store
}

func (p storePublisher) Publish(ctx context.Context, channel, payload string) error {
	return p.st.Publish(ctx, channel, payload)
}

// repoPersister adapts a database.ResultRepository into the
// tetris.ResultPersister interface the player simulation uses to record a
// finished player's final aggregate stats.
type repoPersister struct {
	repo database.ResultRepository
}

func (p repoPersister) PersistResult(ctx context.Context, playerID string, score, level, linesCleared int) error {
	_, err := p.repo.CreateResult(nil, playerID, score, level, linesCleared)
	return err
}

func main() {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil {
			log.Printf("warning: .envファイルの読み込み中にエラーが発生しました (本番環境では問題ありません): %v", err)
		}
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("エラー: DATABASE_URL 環境変数が設定されていません。")
	}

	databaseService, err := database.NewDatabaseService(databaseURL)
	if err != nil {
		log.Fatalf("DatabaseService の初期化に失敗しました: %v", err)
	}
	defer databaseService.DB.Close()
	log.Println("データベース接続が正常に確立されました。")

	resultRepo := database.NewResultRepository(databaseService.DB)

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			redisDB = parsed
		}
	}
	redisStore, err := store.NewRedisStore(redisAddr, os.Getenv("REDIS_PASSWORD"), redisDB)
	if err != nil {
		log.Fatalf("Redisへの接続に失敗しました: %v", err)
	}
	cachedStore := store.NewCachingStore(redisStore)

	scheduler := tetris.NewScheduler()
	persister := repoPersister{repo: resultRepo}
	publisher := storePublisher{st: cachedStore}

	roomManager := room.NewManager(cachedStore, scheduler, persister, publisher)
	sessionManager := tetris.NewSessionManager()
	gateway := room.NewGateway(roomManager, sessionManager)

	fanOutCtx, cancelFanOut := context.WithCancel(context.Background())
	sessionManager.StartFanOut(fanOutCtx, cachedStore)

	gameHandler := api.NewGameHandler(sessionManager, gateway)
	resultHandler := api.NewResultHandler(resultRepo)

	allowedOrigins := []string{"http://localhost:3000"}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		allowedOrigins = strings.Split(v, ",")
	}

	r := mux.NewRouter()
	r.Use(auth.CORSHandler(allowedOrigins))

	// WebSocket接続。ルーム参加・入力・状態取得は全てこの接続上の
	// クローズドなメッセージセット経由で行われる。
	r.HandleFunc("/api/game/ws", gameHandler.HandleWebSocketConnection)

	r.HandleFunc("/api/results", resultHandler.GetTopResults).Methods("GET", "OPTIONS")
	// スコアの投稿だけは認証必須: 他人のuser_idでスコアを偽造できないようにする。
	r.Handle("/api/results", auth.AuthMiddleware(http.HandlerFunc(resultHandler.PostScore))).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/results/user/{user_id}", resultHandler.GetUserResult).Methods("GET", "OPTIONS")

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("サーバーの起動に失敗しました: %v", err)
		}
	}()

	log.Printf("サーバーをポート %s で起動中...", port)
	log.Println("サーバーが正常に起動しました。終了するには Ctrl+C を押してください。")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("サーバーをシャットダウンしています...")

	cancelFanOut()
	scheduler.Shutdown()
	sessionManager.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("サーバーのシャットダウン中にエラーが発生しました: %v", err)
	}

	if err := cachedStore.Close(); err != nil {
		log.Printf("ストアのクローズ中にエラーが発生しました: %v", err)
	}

	log.Println("サーバーが正常にシャットダウンされました。")
}
