package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/girijasivakumar242/IARS/internal/metrics"
	"github.com/girijasivakumar242/IARS/internal/storage/models"
	"github.com/girijasivakumar242/IARS/pkg/circuitbreaker"
	"github.com/girijasivakumar242/IARS/pkg/logger"
)

// ProcessScorer invokes an external executable once per scoring call and
// parses a single JSON object from its stdout:
//
//	{"riskLevel": "Low"|"Medium"|"High", "suggestion": "..."}
//
// Every invocation is bounded by a timeout; a repeatedly failing executable
// trips the circuit breaker so requests fail fast instead of spawning a
// doomed process each time. There is no pooling, caching or retrying.
type ProcessScorer struct {
	command string
	script  string
	timeout time.Duration
	breaker *circuitbreaker.CircuitBreaker
}

func NewProcessScorer(command, script string, timeout time.Duration) *ProcessScorer {
	return &ProcessScorer{
		command: command,
		script:  script,
		timeout: timeout,
		breaker: circuitbreaker.New("scorer", circuitbreaker.Config{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Cooldown:         30 * time.Second,
			Logger:           logger.Log,
		}),
	}
}

func (p *ProcessScorer) Score(ctx context.Context, attendance, internalMarks, cgpa float64) (*Result, error) {
	for _, v := range []float64{attendance, internalMarks, cgpa} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("scorer features must be finite numbers")
		}
	}

	start := time.Now()

	var result *Result
	err := p.breaker.Execute(func() error {
		r, err := p.invoke(ctx, attendance, internalMarks, cgpa)
		if err != nil {
			return err
		}
		result = r
		return nil
	})

	if err != nil {
		metrics.ScoringTotal.WithLabelValues("failure").Inc()
		metrics.ScoringDuration.WithLabelValues("failure").Observe(time.Since(start).Seconds())
		logger.Warn("Scoring failed",
			zap.Error(err),
			zap.String("command", p.command),
			zap.String("script", p.script),
		)
		return nil, ErrUnavailable
	}

	metrics.ScoringTotal.WithLabelValues("success").Inc()
	metrics.ScoringDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())

	return result, nil
}

func (p *ProcessScorer) invoke(ctx context.Context, attendance, internalMarks, cgpa float64) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(
		ctx,
		p.command,
		p.script,
		formatFeature(attendance),
		formatFeature(internalMarks),
		formatFeature(cgpa),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Bounds the wait for output pipes when a killed scorer leaves behind a
	// child process still holding them open.
	cmd.WaitDelay = time.Second

	// Run waits for the process and drains both pipes on every exit path,
	// including the kill issued when the context deadline fires.
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("scorer process timed out after %s: %w", p.timeout, ctx.Err())
		}
		return nil, fmt.Errorf("scorer process failed: %w (stderr: %s)", err, truncate(stderr.String(), 256))
	}

	raw := bytes.TrimSpace(stdout.Bytes())
	if len(raw) == 0 {
		return nil, fmt.Errorf("scorer produced no output")
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("scorer produced malformed output: %w", err)
	}

	if !models.ValidRiskLevel(result.RiskLevel) {
		return nil, fmt.Errorf("scorer returned unknown risk level %q", result.RiskLevel)
	}
	if result.Suggestion == "" {
		return nil, fmt.Errorf("scorer returned an empty suggestion")
	}

	return &result, nil
}

func formatFeature(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
