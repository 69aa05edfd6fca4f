// Package dashboard serves the PnL calculators over HTTP so reports can be
// computed from posted trades and prices.
package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/cors"

	"keeperstats/config"
	"keeperstats/logger"
	"keeperstats/models"
	"keeperstats/processor"
	"keeperstats/writer"
)

// Server hosts the report API.
type Server struct {
	cfg         config.DashboardConfig
	vwapMinutes int
	log         *logger.Log
	logStore    *logStore
	reports     *history[reportSummary]
	httpServer  *http.Server
	now         func() time.Time
}

// NewServer builds the API server. defaultVwapMinutes applies to requests
// that do not name a window.
func NewServer(cfg config.DashboardConfig, defaultVwapMinutes int, log *logger.Log) *Server {
	cfg.Address = normalizeAddress(cfg.Address)
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 32 << 20
	}
	if cfg.MaxPriceMinutes <= 0 {
		cfg.MaxPriceMinutes = config.DefaultMaxPriceMinutes
	}

	logStore := newLogStore(cfg.LogHistory)
	log.AddHook(logStore)

	return &Server{
		cfg:         cfg,
		vwapMinutes: defaultVwapMinutes,
		log:         log,
		logStore:    logStore,
		reports:     newHistory[reportSummary](cfg.ReportHistory),
		now:         time.Now,
	}
}

// Run serves until ctx is cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	defer s.logStore.close()

	s.httpServer = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log := s.log.WithComponent("dashboard").WithFields(logger.Fields{"address": s.cfg.Address})
	log.Info("starting report api")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		log.Info("report api stopped")
		return nil
	case err := <-errCh:
		return err
	}
}

// Address reports the network address the server listens on.
func (s *Server) Address() string {
	return s.cfg.Address
}

// Handler returns the router wrapped with CORS handling.
func (s *Server) Handler() http.Handler {
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:         int((24 * time.Hour).Seconds()),
	}).Handler(s.buildRouter())
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	// Client IPs are only logged, so no proxy is trusted.
	_ = router.SetTrustedProxies(nil)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.POST("/pnl", s.handlePnL)
	v1.POST("/chart", s.handleChart)
	v1.GET("/reports", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"reports": s.reports.snapshot()})
	})
	v1.GET("/logs", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"logs": s.logStore.snapshot()})
	})

	return router
}

// reportRequest is the body accepted by the report endpoints.
type reportRequest struct {
	Base        string               `json:"base"`
	Quote       string               `json:"quote"`
	VwapMinutes int                  `json:"vwap_minutes"`
	Trades      []models.ListedTrade `json:"trades"`
	Prices      []models.PricePoint  `json:"prices"`
}

type apiError struct {
	status  int
	code    string
	message string
}

func (e *apiError) Error() string { return e.message }

func badRequest(format string, args ...interface{}) *apiError {
	return &apiError{status: http.StatusBadRequest, code: "invalid_request", message: fmt.Sprintf(format, args...)}
}

func writeError(c *gin.Context, err *apiError) {
	c.AbortWithStatusJSON(err.status, gin.H{"error": gin.H{"code": err.code, "message": err.message}})
}

// decode reads the request body and runs the calculators on it.
func (s *Server) decode(c *gin.Context) (reportRequest, processor.Analysis, *apiError) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)

	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, processor.Analysis{}, &apiError{status: http.StatusRequestEntityTooLarge, code: "body_too_large", message: err.Error()}
		}
		return req, processor.Analysis{}, badRequest("malformed request body: %v", err)
	}
	if req.VwapMinutes == 0 {
		req.VwapMinutes = s.vwapMinutes
	}
	if req.VwapMinutes < 0 {
		return req, processor.Analysis{}, badRequest("vwap_minutes must be positive")
	}
	if span := processor.GranularLen(req.Prices); span > s.cfg.MaxPriceMinutes {
		return req, processor.Analysis{}, badRequest("prices span %d minutes, limit is %d", span, s.cfg.MaxPriceMinutes)
	}

	trades := make([]models.TradeRecord, 0, len(req.Trades))
	for _, l := range req.Trades {
		t, err := l.Trade()
		if err != nil {
			return req, processor.Analysis{}, badRequest("%v", err)
		}
		trades = append(trades, t)
	}

	start := time.Now()
	analysis := processor.Analyze(trades, req.Prices, req.VwapMinutes)
	logger.LogPerformanceEntry(s.log.WithComponent("dashboard"), "dashboard", "analyze", time.Since(start), logger.Fields{
		"trades": len(trades),
		"prices": len(req.Prices),
	})
	return req, analysis, nil
}

type dayJSON struct {
	Day                 string   `json:"day"`
	TradeCount          int      `json:"trade_count"`
	Volume              string   `json:"volume"`
	Bought              string   `json:"bought"`
	Sold                string   `json:"sold"`
	NetBought           string   `json:"net_bought"`
	CumulativeNetBought string   `json:"cumulative_net_bought"`
	Profit              *float64 `json:"profit"`
	Incomplete          bool     `json:"incomplete"`
}

type reportJSON struct {
	ID          string    `json:"id"`
	Pair        string    `json:"pair"`
	VwapMinutes int       `json:"vwap_minutes"`
	Days        []dayJSON `json:"days"`
	TradeCount  int       `json:"trade_count"`
	Volume      string    `json:"volume"`
	Profit      *float64  `json:"profit"`
	Caveats     []string  `json:"caveats"`
}

func pairName(req reportRequest) string {
	if req.Base == "" && req.Quote == "" {
		return ""
	}
	return strings.ToUpper(req.Base) + "/" + strings.ToUpper(req.Quote)
}

func (s *Server) handlePnL(c *gin.Context) {
	req, analysis, apiErr := s.decode(c)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	report := analysis.Report
	id := uuid.NewString()

	var total *float64
	if report.ProfitCalculated {
		p := report.Profit
		total = &p
	}
	s.reports.add(reportSummary{
		ID:               id,
		GeneratedAt:      s.now().UTC(),
		Pair:             pairName(req),
		TradeCount:       report.TradeCount,
		Days:             len(report.Days),
		Profit:           total,
		IncompleteDays:   report.IncompleteDays(),
		VwapMinutes:      req.VwapMinutes,
		PricePointsCount: len(req.Prices),
	})

	if c.Query("format") == "text" {
		var buf bytes.Buffer
		if err := writer.WritePnLText(&buf, report, req.Base, req.Quote, s.now()); err != nil {
			writeError(c, &apiError{status: http.StatusInternalServerError, code: "render_failed", message: err.Error()})
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
		return
	}

	out := reportJSON{
		ID:          id,
		Pair:        pairName(req),
		VwapMinutes: req.VwapMinutes,
		Days:        make([]dayJSON, 0, len(report.Days)),
		TradeCount:  report.TradeCount,
		Volume:      report.Volume.String(),
		Profit:      total,
		Caveats:     report.Caveats,
	}
	for _, d := range report.Days {
		day := dayJSON{
			Day:                 d.Day.Format("2006-01-02"),
			TradeCount:          d.TradeCount,
			Volume:              d.Volume.String(),
			Bought:              d.Bought.String(),
			Sold:                d.Sold.String(),
			NetBought:           d.NetBought.String(),
			CumulativeNetBought: d.CumulativeNetBought.String(),
			Incomplete:          d.Incomplete,
		}
		if d.ProfitCalculated {
			p := d.Profit
			day.Profit = &p
		}
		out.Days = append(out.Days, day)
	}
	c.JSON(http.StatusOK, out)
}

type pointJSON struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

func points(in []processor.ChartPoint) []pointJSON {
	out := make([]pointJSON, 0, len(in))
	for _, p := range in {
		out = append(out, pointJSON{Timestamp: p.Timestamp, Value: p.Value})
	}
	return out
}

func (s *Server) handleChart(c *gin.Context) {
	_, analysis, apiErr := s.decode(c)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	if c.Query("format") == "csv" {
		var buf bytes.Buffer
		if err := writer.WriteChartCSV(&buf, analysis.Chart); err != nil {
			writeError(c, &apiError{status: http.StatusInternalServerError, code: "render_failed", message: err.Error()})
			return
		}
		c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cumulative_profit": points(analysis.Chart.CumulativeProfit),
		"price":             points(analysis.Chart.Price),
	})
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)

	if addr == "" {
		return "0.0.0.0:8080"
	}

	if strings.Contains(addr, "://") {
		if parsed, err := url.Parse(addr); err == nil {
			if host := parsed.Host; host != "" {
				addr = host
			} else if parsed.Opaque != "" {
				addr = parsed.Opaque
			}
		}
	}

	if strings.HasPrefix(addr, ":") {
		if len(addr) > 1 && addr[1] >= '0' && addr[1] <= '9' {
			return "0.0.0.0" + addr
		}
	}

	host, port, err := net.SplitHostPort(addr)
	if err == nil {
		if host == "" || host == "*" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = "8080"
		}
		return net.JoinHostPort(host, port)
	}

	if ip := net.ParseIP(addr); ip != nil {
		return net.JoinHostPort(addr, "8080")
	}

	if !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, "8080")
	}

	return addr
}
