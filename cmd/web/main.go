package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"chainlens/pkg/apperr"
	"chainlens/pkg/logging"
	"chainlens/pkg/report"
	"chainlens/pkg/types"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chainlens_http_requests_total",
		Help: "Total HTTP requests by route and outcome.",
	}, []string{"route", "ok"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chainlens_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

func main() {
	debug := os.Getenv("DEBUG") == "1"
	logger, err := logging.New(debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/api/analyze", handleAnalyze(logger))
	r.POST("/api/block", handleBlock(logger))

	if _, err := os.Stat("web/build"); err == nil {
		r.Static("/static", "web/build/static")
		r.StaticFile("/", "web/build/index.html")
		r.NoRoute(func(c *gin.Context) {
			c.File("web/build/index.html")
		})
	} else {
		r.GET("/", func(c *gin.Context) {
			c.Data(200, "text/html", []byte(fallbackHTML))
		})
	}

	logger.Info("listening", zap.String("addr", "127.0.0.1:"+port))
	fmt.Printf("http://127.0.0.1:%s\n", port)
	if err := r.Run(":" + port); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

// requestLogger records per-request structured logs and the prometheus
// counters/histogram above, keyed by the matched route rather than the raw
// path (avoids unbounded label cardinality from path parameters).
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)

		logger.Info("request",
			zap.String("route", route),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", elapsed),
		)
		requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		requestsTotal.WithLabelValues(route, fmt.Sprintf("%t", c.Writer.Status() < 400)).Inc()
	}
}

func handleAnalyze(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			respondErr(c, apperr.InvalidFixture("failed to read request body: %v", err))
			return
		}

		var fixture types.Fixture
		if err := json.Unmarshal(body, &fixture); err != nil {
			respondErr(c, apperr.InvalidFixture("failed to parse JSON: %v", err))
			return
		}
		if fixture.Network == "" {
			fixture.Network = "mainnet"
		}

		result, err := report.ParseTransaction(fixture)
		if err != nil {
			logger.Warn("transaction analysis failed", zap.Error(err))
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// blockRequest carries the three raw inputs report.ParseBlock needs, hex
// encoded so /api/block stays a plain JSON endpoint like /api/analyze.
type blockRequest struct {
	Network   string `json:"network"`
	BlockHex  string `json:"block_hex"`
	RevHex    string `json:"rev_hex"`
	XorKeyHex string `json:"xor_key_hex"`
}

func handleBlock(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			respondErr(c, apperr.InvalidBlock("failed to read request body: %v", err))
			return
		}

		var req blockRequest
		if err := json.Unmarshal(body, &req); err != nil {
			respondErr(c, apperr.InvalidBlock("failed to parse JSON: %v", err))
			return
		}
		if req.Network == "" {
			req.Network = "mainnet"
		}

		blkData, err := hex.DecodeString(req.BlockHex)
		if err != nil {
			respondErr(c, apperr.InvalidBlock("block_hex is not valid hex: %v", err))
			return
		}
		revData, err := hex.DecodeString(req.RevHex)
		if err != nil {
			respondErr(c, apperr.InvalidBlock("rev_hex is not valid hex: %v", err))
			return
		}
		xorKey, err := hex.DecodeString(req.XorKeyHex)
		if err != nil {
			respondErr(c, apperr.InvalidBlock("xor_key_hex is not valid hex: %v", err))
			return
		}

		result, err := report.ParseBlock(blkData, revData, xorKey, req.Network, logger)
		if err != nil {
			logger.Warn("block analysis failed", zap.Error(err))
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func respondErr(c *gin.Context, err error) {
	code := apperr.CodeInvalidFixture
	if ce, ok := err.(*apperr.CodedError); ok {
		code = ce.Code
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"ok": false,
		"error": types.ErrorInfo{
			Code:    code,
			Message: err.Error(),
		},
	})
}

const fallbackHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Chain Lens - Bitcoin Transaction Analyzer</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 800px; margin: 50px auto; padding: 20px; }
        h1 { color: #f7931a; }
        textarea { width: 100%; height: 200px; font-family: monospace; }
        button { background: #f7931a; color: white; padding: 10px 20px; border: none; cursor: pointer; }
        pre { background: #f5f5f5; padding: 15px; overflow-x: auto; }
    </style>
</head>
<body>
    <h1>Chain Lens</h1>
    <p>Paste a transaction fixture JSON below:</p>
    <textarea id="input" placeholder='{"network":"mainnet","raw_tx":"...","prevouts":[...]}'></textarea>
    <br><br>
    <button onclick="analyze()">Analyze Transaction</button>
    <h2>Result:</h2>
    <pre id="output">Results will appear here...</pre>

    <script>
        async function analyze() {
            const input = document.getElementById('input').value;
            const output = document.getElementById('output');

            try {
                const response = await fetch('/api/analyze', {
                    method: 'POST',
                    headers: {'Content-Type': 'application/json'},
                    body: input
                });
                const result = await response.json();
                output.textContent = JSON.stringify(result, null, 2);
            } catch (err) {
                output.textContent = 'Error: ' + err.message;
            }
        }
    </script>
</body>
</html>`
