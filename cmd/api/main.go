package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shinyyama/hoko/internal/ai"
	"github.com/shinyyama/hoko/internal/app"
	"github.com/shinyyama/hoko/internal/authn"
	"github.com/shinyyama/hoko/internal/catalog"
	"github.com/shinyyama/hoko/internal/config"
	"github.com/shinyyama/hoko/internal/db"
	"github.com/shinyyama/hoko/internal/login"
	appmw "github.com/shinyyama/hoko/internal/middleware"
	"github.com/shinyyama/hoko/internal/otp"
	"github.com/shinyyama/hoko/internal/realtime"
	"github.com/shinyyama/hoko/internal/repository"
	"github.com/shinyyama/hoko/internal/repository/memory"
	"github.com/shinyyama/hoko/internal/server"
	"github.com/shinyyama/hoko/internal/service"
	"github.com/shinyyama/hoko/internal/storage"
	"github.com/shinyyama/hoko/internal/task"
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	broker := realtime.NewBroker()
	var repos *repository.Set
	if cfg.StoreBackend == "memory" {
		st := memory.New(broker)
		for _, c := range catalog.DefaultCities() {
			st.AddCity(c)
		}
		repos = st.Set()
		log.Printf("[api] stage=store backend=memory")
	} else {
		// repositories answer ErrDBNotReady until the connection below lands
		repos = repository.NewSet(nil)
	}

	blobs, err := newUploader(ctx, cfg)
	if err != nil {
		log.Fatalf("storage init error: %v", err)
	}

	var sender otp.Sender = otp.NewFunctionClient(cfg.OTPFunctionURL, cfg.OTPFunctionKey)
	if cfg.OTPDemoCode != "" {
		log.Printf("[api] stage=otp mode=demo")
		sender = otp.Demo{Code: cfg.OTPDemoCode}
	}

	tasks := task.NewRunner()
	loginDeps := login.Deps{
		Sender: sender,
		Codes:  repos.OTPCodes,
		Users:  repos.Users,
		Tasks:  tasks,
	}
	if cfg.FirebaseProjectID != "" {
		fb, err := authn.NewFirebase(ctx, cfg.FirebaseProjectID, cfg.CredentialsFile)
		if err != nil {
			log.Printf("[api] stage=firebase_init err=%v", err)
		} else {
			loginDeps.Issuer = fb
		}
	}

	notif := service.NewNotificationService(repos.Notifications)
	deps := app.Deps{
		Cities:        repos.Cities,
		Posts:         service.NewPostService(repos.Posts, repos.Offers, notif, blobs),
		Offers:        service.NewOfferService(repos.Offers, repos.Posts, notif),
		Chat:          service.NewChatService(repos.Messages, repos.Users, notif),
		Notifications: notif,
		Broker:        broker,
		Login:         loginDeps,
	}
	if cfg.GeminiAPIKey != "" {
		cc, err := ai.NewCategoryClient(ctx, cfg.GeminiAPIKey, cfg.GeminiCategoryModel)
		if err != nil {
			log.Printf("[api] stage=gemini_init err=%v", err)
		} else {
			deps.Suggester = cc
		}
	}

	srv := server.New(server.Options{
		Repos:        repos,
		App:          deps,
		Sessions:     appmw.NewSessions(cfg.SessionSecret, time.Duration(cfg.SessionTTLHours)*time.Hour, cfg.CookieSecure),
		OriginSuffix: cfg.AllowedOriginSuffix,
		Sha:          os.Getenv("GIT_SHA"),
		BuildTime:    os.Getenv("BUILD_TIME"),
	})

	go srv.Sessions().RunJanitor(ctx, 10*time.Minute, time.Duration(cfg.SessionTTLHours)*time.Hour)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Printf("starting server on %s", addr)
		errCh <- srv.Start(addr)
	}()

	if cfg.StoreBackend != "memory" {
		go func() {
			conn, err := db.ConnectRetry(ctx, cfg)
			if err != nil {
				log.Printf("db connect error: %v", err)
				return
			}
			if err := conn.Use(broker.Plugin()); err != nil {
				log.Printf("realtime plugin error: %v", err)
			}
			if err := db.Migrate(conn); err != nil {
				log.Printf("auto migrate error: %v", err)
			}
			srv.SetDB(conn)
		}()
	}

	if err := <-errCh; err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func newUploader(ctx context.Context, cfg *config.Config) (storage.Uploader, error) {
	if cfg.StorageProvider == "cloudinary" {
		return storage.NewCloudinary(cfg.CloudinaryURL)
	}
	return storage.NewGCS(ctx, cfg.StorageBucket, cfg.CredentialsFile)
}
