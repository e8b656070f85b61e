package main

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/aliaunction/auction-engine/configs"
	"github.com/aliaunction/auction-engine/internal/database"
	"github.com/aliaunction/auction-engine/internal/engine"
	"github.com/aliaunction/auction-engine/internal/handlers/websocket"
	"github.com/aliaunction/auction-engine/pkg/types"
	"github.com/aliaunction/auction-engine/pkg/utils"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
)

var (
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	baseStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))
	db  database.Service
	eng *engine.Engine
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Every(10*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Define the model for the Bubble Tea application
type model struct {
	table     table.Model
	viewport  viewport.Model
	logBuffer *bytes.Buffer
	logs      []string
	showTable bool
	quitting  bool
}

func (m model) Init() tea.Cmd {
	return tick()
}

func auctionColumns() []table.Column {
	return []table.Column{
		{Title: "AUCTION ID", Width: 36},
		{Title: "STATUS", Width: 10},
		{Title: "PRICE", Width: 12},
		{Title: "TOP BIDDER", Width: 36},
		{Title: "RESERVE", Width: 8},
		{Title: "TIME LEFT", Width: 16},
	}
}

func auctionRows() []table.Row {
	ctx := context.Background()
	auctions, err := db.GetCurrentAuctions(ctx)
	if err != nil {
		log.Error("Error getting auctions: ", err)
		return nil
	}

	now := eng.Now()
	rows := make([]table.Row, 0, len(auctions))
	for _, auction := range auctions {
		topBidder := "-"
		if auction.CurrentBidderID != nil {
			topBidder = auction.CurrentBidderID.String()
		}

		reserve, err := db.GetReservePrice(ctx, auction.ID)
		if err != nil {
			log.Error("Error getting reserve price: ", err)
		}
		reserveStatus := engine.ResolveReserveStatus(auction, reserve)

		timeLeft := "Ended"
		if seconds := engine.CountdownSeconds(auction, now); seconds > 0 {
			timeLeft = (time.Duration(seconds) * time.Second).String()
		}

		rows = append(rows, table.Row{
			auction.ID.String(),
			string(engine.ResolveTimeStatus(auction, now)),
			auction.CurrentPrice.StringFixed(2),
			topBidder,
			string(reserveStatus),
			timeLeft,
		})
	}
	return rows
}

func newTable() model {
	t := table.New(
		table.WithColumns(auctionColumns()),
		table.WithRows(auctionRows()),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	vp := viewport.New(120, 15)
	vp.Style = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		PaddingRight(2)
	return model{table: t, showTable: true, viewport: vp}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)
	switch msg := msg.(type) {
	case tickMsg:
		if m.showTable {
			m.table.SetRows(auctionRows())
		} else {
			// refresh logs to get new logs
			m.logs = nil
			logs := strings.Split(m.logBuffer.String(), "\n")
			m.logs = append(m.logs, logs...)
		}
		return m, tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "up":
			if !m.showTable {
				m.viewport.LineUp(1) // Scroll up one line in logs
			}
		case "down":
			if !m.showTable {
				m.viewport.LineDown(1) // Scroll down one line in logs
			}
		case "tab":
			m.showTable = !m.showTable
			if !m.showTable {
				// Load logs from buffer when switching to logs view
				m.logs = nil
				logs := strings.Split(m.logBuffer.String(), "\n")
				m.logs = append(m.logs, logs...)
			}
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
	}

	if m.showTable {
		m.table, cmd = m.table.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// Render the view based on the current state of the model
func (m model) View() string {
	if m.quitting {
		return "Bye!\n"
	}
	if m.showTable {
		return baseStyle.Render(m.table.View()) + "\n" + helpStyle.Render("• tab: switch modes • q: exit\n")
	}

	// Create a copy of logs to avoid modifying the original
	styledLogs := make([]string, len(m.logs))
	copy(styledLogs, m.logs)

	styledLogs = utils.ColorizeLogs(styledLogs)

	// only show last 15 lines of logs
	if len(styledLogs) > 15 {
		styledLogs = styledLogs[len(styledLogs)-15:]
	}

	m.viewport.SetContent(strings.Join(styledLogs, "\n"))
	return m.viewport.View() + "\n" + helpStyle.Render("• tab: switch modes • q: exit\n")
}

func main() {
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

	// Redirect logs to buffer
	logBuffer := new(bytes.Buffer)
	log.SetOutput(logBuffer)

	// Initialize database service
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

	// Initialize the auction engine
	eng = engine.New(db,
		engine.WithAntiSnipingDefaults(types.AntiSnipingConfig{
			Enabled:          cfg.Engine.AntiSniping.Enabled,
			ThresholdMinutes: cfg.Engine.AntiSniping.ThresholdMinutes,
			ExtensionMinutes: cfg.Engine.AntiSniping.ExtensionMinutes,
			MaxExtensions:    cfg.Engine.AntiSniping.MaxExtensions,
		}),
		engine.WithMinIncrement(minIncrement),
	)

	// Initialize WebSocket handler
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

	// Start server in a goroutine
	log.Infof("Server started on port %s", port)
	go func() {
		if err := http.ListenAndServe(":"+port, nil); err != nil {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	// Start Bubble Tea program
	m := newTable()
	m.logBuffer = logBuffer
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running Bubble Tea program: %v", err)
	}
}
