package sandbox

import (
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

// FailConfig injects failures into a fraction of requests.
type FailConfig struct {
	Rate float64
	Code int
}

// ParseFailConfig parses "rate=<float>,code=<httpStatus>". An empty string
// disables injection; the code defaults to 500.
func ParseFailConfig(raw string) (FailConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return FailConfig{}, nil
	}
	cfg := FailConfig{Code: http.StatusInternalServerError}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		keyVal := strings.SplitN(part, "=", 2)
		if len(keyVal) != 2 {
			return FailConfig{}, fmt.Errorf("sandbox: invalid fail segment %q", part)
		}
		val := strings.TrimSpace(keyVal[1])
		switch strings.TrimSpace(keyVal[0]) {
		case "rate":
			rate, err := cast.ToFloat64E(val)
			if err != nil {
				return FailConfig{}, fmt.Errorf("sandbox: fail rate: %w", err)
			}
			if rate < 0 || rate > 1 {
				return FailConfig{}, fmt.Errorf("sandbox: fail rate %v outside [0, 1]", rate)
			}
			cfg.Rate = rate
		case "code":
			code, err := cast.ToIntE(val)
			if err != nil {
				return FailConfig{}, fmt.Errorf("sandbox: fail code: %w", err)
			}
			if code < 400 || code > 599 {
				return FailConfig{}, fmt.Errorf("sandbox: fail code %d is not an error status", code)
			}
			cfg.Code = code
		default:
			return FailConfig{}, fmt.Errorf("sandbox: unknown fail key %q", keyVal[0])
		}
	}
	return cfg, nil
}

func latency(delay time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if delay > 0 {
			time.Sleep(delay)
		}
		c.Next()
	}
}

func failureInjection(cfg FailConfig, roll func() float64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Rate > 0 && roll() < cfg.Rate {
			status := cfg.Code
			if status == 0 {
				status = http.StatusInternalServerError
			}
			c.AbortWithStatusJSON(status, gin.H{"error": "failure injected"})
			return
		}
		c.Next()
	}
}

func defaultRoll() float64 {
	return rand.Float64()
}
