// Package server exposes the PIR server's HTTP/WebSocket surface over
// gin (spec.md §6): the bucket index download endpoints, the range
// delta archive, the query endpoint, and the live subscription feed.
package server

import (
	"bytes"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/inspirepir/inspire/broadcast"
	"github.com/inspirepir/inspire/inspireerr"
	"github.com/inspirepir/inspire/inspiremetrics"
	"github.com/inspirepir/inspire/lanerouter"
	"github.com/inspirepir/inspire/pir"
	"github.com/inspirepir/inspire/updater"
)

// Server bundles everything an HTTP handler needs: the live updater
// (bucket index + delta tiers), the two PIR backends (one per lane),
// the lane router, and the broadcast hub.
type Server struct {
	Updater     *updater.Updater
	Broadcast   *broadcast.Broadcast
	Router      *lanerouter.LaneRouter
	HotBackend  pir.Backend
	ColdBackend pir.Backend
}

// NewRouter builds the gin engine with every route wired, matching
// the endpoint table in spec.md §6.
func (s *Server) NewRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/index/raw", s.handleIndexRaw)
	r.GET("/index/deltas", s.handleIndexDeltas)
	r.GET("/index/deltas/info", s.handleIndexDeltasInfo)
	r.POST("/pir/query", s.handleQuery)
	r.GET("/index/subscribe", s.handleSubscribe)
	return r
}

// handleIndexRaw serves the full bucket index: zstd-compressed by
// default, or the raw counts blob with ?compressed=false.
func (s *Server) handleIndexRaw(c *gin.Context) {
	idx := s.Updater.Index()
	if c.Query("compressed") == "false" {
		c.Data(http.StatusOK, "application/octet-stream", idx.EncodeRaw())
		return
	}
	c.Data(http.StatusOK, "application/zstd", idx.EncodeCompressed())
}

// handleIndexDeltas serves the complete range-delta archive (header +
// directory + per-tier merged payloads), addressable by HTTP Range: a
// client that already knows a tier's (offset, size) from
// "/index/deltas/info" can fetch just that tier's payload with a
// "Range: bytes=" request instead of downloading the whole archive.
func (s *Server) handleIndexDeltas(c *gin.Context) {
	archive := s.Updater.Archive()
	encoded, err := archive.Encode()
	if err != nil {
		writeError(c, err)
		return
	}
	c.Writer.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(c.Writer, c.Request, "deltas.bin", time.Time{}, bytes.NewReader(encoded))
}

// handleIndexDeltasInfo serves just the header and directory — the
// first 64 + 16*num_ranges bytes — so a client can decide which tier
// to range-fetch without downloading every payload.
func (s *Server) handleIndexDeltasInfo(c *gin.Context) {
	archive := s.Updater.Archive()
	c.Data(http.StatusOK, "application/octet-stream", archive.InfoBytes())
}

type queryRequest struct {
	Query pir.Query `json:"query"`
	Lane  string    `json:"lane"`
}

type queryResponse struct {
	Result      string  `json:"result"`
	QueryTimeMs float64 `json:"query_time_ms"`
}

// handleQuery answers a single XOR-subset PIR query against the
// requested lane's backend, timing the response for both the caller
// and the server's own metrics.
func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, inspireerr.Wrap(inspireerr.Validation, "server.handleQuery", "decoding request", err))
		return
	}

	backend := s.ColdBackend
	laneName := "cold"
	if req.Lane == "hot" {
		backend = s.HotBackend
		laneName = "hot"
	}
	if backend == nil {
		writeError(c, inspireerr.New(inspireerr.Validation, "server.handleQuery", "lane has no backend configured"))
		return
	}

	start := time.Now()
	result, err := backend.Respond(req.Query)
	elapsed := time.Since(start)
	if err != nil {
		writeError(c, err)
		return
	}

	inspiremetrics.QueriesTotal.WithLabelValues(laneName).Inc()
	inspiremetrics.QueryDurationSeconds.WithLabelValues(laneName).Observe(elapsed.Seconds())

	c.JSON(http.StatusOK, queryResponse{
		Result:      hex.EncodeToString(result[:]),
		QueryTimeMs: float64(elapsed.Microseconds()) / 1000.0,
	})
}

// handleSubscribe upgrades the connection to the /index/subscribe
// WebSocket feed (spec.md §6/§4.6).
func (s *Server) handleSubscribe(c *gin.Context) {
	if err := broadcast.ServeSubscription(c.Writer, c.Request, s.Broadcast, s.Updater.CurrentBlock()); err != nil {
		c.Error(err)
	}
}

// writeError maps an inspireerr kind to the HTTP status spec.md §7
// implies for it, and writes a JSON error body.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch inspireerr.KindOf(err) {
	case inspireerr.Validation:
		status = http.StatusBadRequest
	case inspireerr.IntegrityViolation:
		status = http.StatusUnprocessableEntity
	case inspireerr.ResourceExhaustion:
		status = http.StatusRequestEntityTooLarge
	case inspireerr.ProtocolVersionMismatch:
		status = http.StatusConflict
	case inspireerr.TransientIO:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
