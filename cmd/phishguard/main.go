package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/PhishGuardAI/phishguard/pkg/analyzer"
	"github.com/PhishGuardAI/phishguard/pkg/config"
	"github.com/PhishGuardAI/phishguard/pkg/logger"
	"github.com/PhishGuardAI/phishguard/pkg/oracle"
	"github.com/PhishGuardAI/phishguard/pkg/ratelimit"
	"github.com/PhishGuardAI/phishguard/pkg/rules"
)

const Version = "1.0.0"

const serviceName = "phishguard"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, TimeFormat: time.RFC3339})

	switch os.Args[1] {
	case "serve":
		port := strconv.Itoa(cfg.Port)
		if len(os.Args) > 2 {
			port = os.Args[2]
		}
		runServer(cfg, log, port)
	case "analyze":
		if len(os.Args) < 3 {
			fmt.Println("Usage: phishguard analyze <text>")
			os.Exit(1)
		}
		runAnalyze(cfg, log, strings.Join(os.Args[2:], " "))
	case "version":
		fmt.Printf("PhishGuard v%s\n", Version)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("PhishGuard v%s - Phishing Email Analyzer\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  phishguard serve [port]     Start HTTP server (default: 5000)")
	fmt.Println("  phishguard analyze <text>   Analyze text and print the result as JSON")
	fmt.Println("  phishguard version          Show version")
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Println("  phishguard serve 8080")
	fmt.Println("  phishguard analyze \"Verify your account immediately\"")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY                 Enable the Gemini oracle")
	fmt.Println("  OPENAI_API_KEY                 Enable an OpenAI-compatible oracle")
	fmt.Println("  PHISHGUARD_ORACLE_PROVIDER     Force provider: gemini, openai, ollama, none")
	fmt.Println("  PHISHGUARD_RULES_PATH          YAML file with site-local keyword rules")
	fmt.Println("  PHISHGUARD_REDIS_ADDR          Redis address for shared rate limiting")
}

func newEngine(cfg *config.Config, log *logger.Logger) (*analyzer.Engine, error) {
	set, err := rules.Load(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	if cfg.RulesPath != "" {
		log.Info().Str("path", cfg.RulesPath).Int("rules", set.Len()).Msg("loaded rule overlay")
	}
	return analyzer.NewEngine(newOracle(cfg, log), set, log), nil
}

func newOracle(cfg *config.Config, log *logger.Logger) oracle.Oracle {
	switch cfg.OracleProvider {
	case config.ProviderGemini, config.ProviderOpenAI, config.ProviderOllama:
		log.Info().Str("provider", string(cfg.OracleProvider)).Str("model", cfg.OracleModel).
			Msg("✓ AI oracle enabled")
		return oracle.NewClient(oracle.ClientConfig{
			Provider: oracle.Provider(cfg.OracleProvider),
			APIKey:   cfg.OracleAPIKey,
			Model:    cfg.OracleModel,
			BaseURL:  cfg.OracleBaseURL,
			Timeout:  cfg.OracleTimeout,
		}, log)
	case config.ProviderNone:
		log.Info().Msg("○ AI oracle disabled (no credential), using deterministic fallback")
		return oracle.Offline{}
	default:
		log.Warn().Str("provider", string(cfg.OracleProvider)).
			Msg("unknown oracle provider, using deterministic fallback")
		return oracle.Offline{}
	}
}

func newLimiter(cfg *config.Config, log *logger.Logger) ratelimit.Limiter {
	if !cfg.RateLimitEnabled {
		return nil
	}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		log.Info().Str("addr", cfg.RedisAddr).Msg("rate limiting via Redis")
		return ratelimit.NewRedisLimiter(client, cfg.RateLimitMax, cfg.RateLimitWindow)
	}
	return ratelimit.NewMemoryLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
}

// ============================================================================
// CLI Mode
// ============================================================================

func runAnalyze(cfg *config.Config, log *logger.Logger, text string) {
	engine, err := newEngine(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("engine init failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.OracleTimeout+5*time.Second)
	defer cancel()

	result, err := engine.Analyze(ctx, text)
	if err != nil {
		log.Fatal().Err(err).Msg("analysis failed")
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

// ============================================================================
// HTTP Server Mode
// ============================================================================

func runServer(cfg *config.Config, log *logger.Logger, port string) {
	engine, err := newEngine(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("engine init failed")
	}

	app := buildApp(cfg, log, engine, newLimiter(cfg, log))

	log.Info().Str("port", port).Msg("PhishGuard HTTP server starting")
	if err := app.Listen(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// analyzeResponse flattens the analysis result and stamps it.
type analyzeResponse struct {
	analyzer.AnalysisResult
	AnalyzedAt string `json:"analyzed_at"`
}

func buildApp(cfg *config.Config, log *logger.Logger, engine *analyzer.Engine, limiter ratelimit.Limiter) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "PhishGuard",
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions},
		AllowHeaders: []string{"Content-Type", "X-API-Key"},
	}))

	// Request ID, security headers, access log.
	app.Use(func(c fiber.Ctx) error {
		requestID := uuid.NewString()
		c.Set("X-Request-ID", requestID)
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Content-Security-Policy", "default-src 'none'")
		c.Set("Referrer-Policy", "no-referrer")

		start := time.Now()
		err := c.Next()
		log.Info().
			Str("request_id", requestID).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
		return err
	})

	if limiter != nil {
		app.Use(func(c fiber.Ctx) error {
			d, err := limiter.Allow(c.Context(), clientID(c))
			if err != nil {
				// Fail open: a cache outage must not take analysis down.
				log.Warn().Err(err).Msg("rate limit check failed, allowing request")
				return c.Next()
			}
			c.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			c.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
			c.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
			if !d.Allowed {
				c.Set("Retry-After", strconv.FormatInt(int64(time.Until(d.ResetAt).Seconds())+1, 10))
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "rate limit exceeded, try again later",
				})
			}
			return c.Next()
		})
	}

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"service":   serviceName,
			"version":   Version,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	app.Post("/analyze", func(c fiber.Ctx) error {
		var req struct {
			Text string `json:"text"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
		}
		if strings.TrimSpace(req.Text) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "text field is required"})
		}
		if len(req.Text) > cfg.MaxTextLength {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("text exceeds maximum length of %d characters", cfg.MaxTextLength),
			})
		}
		if strings.ContainsRune(req.Text, '\x00') {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "text contains invalid characters"})
		}

		result, err := engine.Analyze(c.Context(), req.Text)
		if err != nil {
			log.Error().Err(err).Msg("analysis failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
		}

		return c.JSON(analyzeResponse{
			AnalysisResult: *result,
			AnalyzedAt:     time.Now().UTC().Format(time.RFC3339),
		})
	})

	return app
}

// clientID identifies a caller for rate limiting: API key when present,
// forwarded IP behind a proxy, socket address otherwise.
func clientID(c fiber.Ctx) string {
	if key := c.Get("X-API-Key"); key != "" {
		return "key:" + key
	}
	if fwd := c.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			fwd = fwd[:i]
		}
		return "ip:" + strings.TrimSpace(fwd)
	}
	return "ip:" + c.IP()
}
