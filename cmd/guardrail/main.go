package main

import (
	"context"
	"fmt"
	"os"

	"github.com/guardrail/guardrail/internal/cli"
	"github.com/guardrail/guardrail/internal/observability"
	"github.com/guardrail/guardrail/internal/observability/logging"
	"github.com/guardrail/guardrail/internal/observability/otel"
	"github.com/guardrail/guardrail/internal/observability/receipt"
)

func main() {
	ctx := observability.WithOpID(context.Background())

	log, err := logging.NewLogger(loggingConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()
	ctx = logging.WithLogger(ctx, log)

	if path := os.Getenv("GUARDRAIL_RECEIPT"); path != "" {
		w, err := receipt.NewWriter(path, os.Getenv("GUARDRAIL_RECEIPT_MODE"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "receipt init failed: %v\n", err)
			os.Exit(1)
		}
		defer w.Close()
		ctx = receipt.WithWriter(ctx, w)
	}

	if cfg := otelConfigFromEnv(); cfg.Enabled {
		h, err := otel.Init(ctx, cfg)
		if err != nil {
			// Tracing is best effort; the check itself must still run.
			log.Warn("otel", "tracing disabled", "error", err)
		} else {
			defer h.Shutdown(ctx)
			ctx = otel.WithHandle(ctx, h)
		}
	}

	cli.ExecuteContext(ctx)
}

func loggingConfigFromEnv() logging.Config {
	cfg := logging.DefaultConfig()
	if v := os.Getenv("GUARDRAIL_LOG_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("GUARDRAIL_LOG_LEVEL"); v != "" {
		cfg.Level = v
	}
	if v := os.Getenv("GUARDRAIL_LOG_OUTPUT"); v != "" {
		cfg.Output = v
	}
	return cfg
}

func otelConfigFromEnv() otel.Config {
	cfg := otel.DefaultConfig()
	if os.Getenv("GUARDRAIL_OTEL") == "1" {
		cfg.Enabled = true
	}
	if v := os.Getenv("GUARDRAIL_OTEL_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("GUARDRAIL_OTEL_PROTOCOL"); v != "" {
		cfg.Protocol = v
	}
	if os.Getenv("GUARDRAIL_OTEL_INSECURE") == "1" {
		cfg.Insecure = true
	}
	return cfg
}
