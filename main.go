package main

import (
	"net/http"
	"time"

	"github.com/aliaunction/auction-engine/configs"
	"github.com/aliaunction/auction-engine/internal/database"
	"github.com/aliaunction/auction-engine/internal/engine"
	"github.com/aliaunction/auction-engine/internal/handlers/websocket"
	"github.com/aliaunction/auction-engine/pkg/types"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found")
	}

	// Load configurations
	cfg, err := configs.LoadConfig()
	if err != nil {
		log.Fatal("Error loading config: ", err)
	}

	port := cfg.Server.Port
	if port == "" {
		port = "8080" // Default port if not specified
	}

	// Setup logger
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "debug" // Default log level if not specified
	}
	logLevel, err := log.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		log.Error("Invalid log level: ", err)
	}
	log.SetLevel(logLevel)

	// Initialize database service
	var db database.Service
	if cfg.Database.Driver == "memory" {
		db = database.NewMemory()
	} else {
		db = database.New(cfg)
	}
	defer db.Close()

	minIncrement, err := decimal.NewFromString(cfg.Engine.BidIncrement)
	if err != nil {
		minIncrement = decimal.Zero
	}

	// Initialize the auction engine with the configured anti-sniping
	// defaults; per-auction copies are created on first use.
	eng := engine.New(db,
		engine.WithAntiSnipingDefaults(types.AntiSnipingConfig{
			Enabled:          cfg.Engine.AntiSniping.Enabled,
			ThresholdMinutes: cfg.Engine.AntiSniping.ThresholdMinutes,
			ExtensionMinutes: cfg.Engine.AntiSniping.ExtensionMinutes,
			MaxExtensions:    cfg.Engine.AntiSniping.MaxExtensions,
		}),
		engine.WithMinIncrement(minIncrement),
	)

	// Initialize WebSocket handler and wire it as the engine's broadcaster
	auctionHandler := websocket.NewAuctionHandler(db, eng)
	eng.SetBroadcaster(auctionHandler)

	// Start periodic check for due auctions
	closeInterval, err := time.ParseDuration(cfg.Engine.CloseInterval)
	if err != nil {
		closeInterval = 30 * time.Second
	}
	auctionHandler.StartPeriodicCheck(closeInterval)

	// Setup routes
	http.HandleFunc("/ws/auction", auctionHandler.HandleAuctionWebSocket)

	log.Infof("Server started on port %s", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
