package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	discordrouter "github.com/Keburichi/excelbot/internal/adapters/discord"
	"github.com/Keburichi/excelbot/internal/adapters/fflogs"
	"github.com/Keburichi/excelbot/internal/adapters/httpapi"
	"github.com/Keburichi/excelbot/internal/adapters/lodestone"
	"github.com/Keburichi/excelbot/internal/app/service"
	"github.com/Keburichi/excelbot/internal/infra/config"
	"github.com/Keburichi/excelbot/internal/infra/storage"
	"github.com/Keburichi/excelbot/internal/worker"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	_ = godotenv.Load()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.Load()

	// DB
	db, err := storage.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := storage.Migrate(db); err != nil {
		log.Fatal("migrate:", err)
	}
	log.Println("✅ DB ready and migrated")

	// Repos
	memberRepo := storage.NewMemberRepo(db)
	roleRepo := storage.NewRoleRepo(db)
	fightRepo := storage.NewFightRepo(db)
	lotteryRepo := storage.NewLotteryRepo(db)
	importLogRepo := storage.NewImportLogRepo(db)

	// FFLogs + Lodestone clients
	tokens := fflogs.NewTokenStore(cfg.FFLogsClientID, cfg.FFLogsClientSecret, cfg.FFLogsTokenURL, nil)
	logsAPI := fflogs.New(cfg.FFLogsAPIURL, tokens)
	lodestoneAPI := lodestone.New()

	// Discord session (services need it for announcements)
	auth := cfg.DiscordToken
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(auth)), "bot ") {
		auth = "Bot " + strings.TrimSpace(auth)
	}
	s, err := discordgo.New(auth)
	if err != nil {
		log.Fatal(err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers
	if err := s.Open(); err != nil {
		log.Fatal(err)
	}
	defer s.Close()
	log.Printf("✅ Connected as %s (%s)", s.State.User.Username, s.State.User.ID)

	// Services
	notifier := discordrouter.NewChannelNotifier(s)
	roster := discordrouter.NewRoster(s, cfg.DiscordGuild)
	lotterySvc := service.NewLotteryService(memberRepo, lotteryRepo, notifier, cfg.LotteryChannelID)
	memberSvc := service.NewMemberService(memberRepo, memberRepo, roleRepo, roster)
	verifySvc := service.NewVerifyService(memberRepo, lodestoneAPI)
	syncSvc := service.NewSyncService(memberRepo, fightRepo, importLogRepo, logsAPI, cfg.MembersPerWave, cfg.RequestDelay)

	// Web API
	web := httpapi.New(cfg.SessionSecret, memberRepo, fightRepo, lotteryRepo, importLogRepo, verifySvc)
	go web.Start(cfg.HTTPAddr)

	// Router
	r := discordrouter.NewRouter(s, cfg.DiscordGuild, lotterySvc, memberSvc, verifySvc, syncSvc)
	if err := r.Register(); err != nil {
		log.Fatalf("registering commands: %v", err)
	}
	r.Handlers()
	log.Printf("✅ commands registered in guild %s", cfg.DiscordGuild)

	// Background sync
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w, err := worker.New(memberSvc, syncSvc)
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	if err := w.Start(ctx); err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	defer func() { _ = w.Stop() }()
	log.Println("✅ background sync running")

	// Wait for signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-stop
}
