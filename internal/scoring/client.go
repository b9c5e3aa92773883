// Package scoring talks to the external portfolio health scoring API.
package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/newthinker/folio/internal/core"
	"go.uber.org/zap"
)

// Contract constants shared with the scoring server.
const (
	DefaultQueryParam = "holdings"
	PortfolioField    = "portfolio"
	AverageField      = "average_health_score"
)

// Config holds client configuration
type Config struct {
	BaseURL    string
	Path       string
	QueryParam string
	Timeout    time.Duration // 0 keeps the transport default
	Debug      bool
}

// Client fetches health scores for a holdings string.
type Client struct {
	http       *resty.Client
	path       string
	queryParam string
	logger     *zap.Logger
}

// New creates a new scoring client
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.QueryParam == "" {
		cfg.QueryParam = DefaultQueryParam
	}

	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetDebug(cfg.Debug).
		SetLogger(logger.Sugar()).
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}

	return &Client{
		http:       rc,
		path:       cfg.Path,
		queryParam: cfg.QueryParam,
		logger:     logger,
	}
}

// Fetch issues exactly one GET carrying holdings as the query parameter.
// The holdings string is sent as-is: it is neither trimmed nor split, and the
// server decodes the parameter back to the identical string.
func (c *Client) Fetch(ctx context.Context, holdings string) (*core.Report, error) {
	c.logger.Debug("sending scoring request",
		zap.String("path", c.path),
		zap.String(c.queryParam, holdings),
	)

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam(c.queryParam, holdings).
		Get(c.path)
	if err != nil {
		return nil, core.WrapError(core.ErrRequestFailed, fmt.Errorf("dialing scoring api: %w", err))
	}

	if !resp.IsSuccess() {
		return nil, core.WrapError(core.ErrRequestFailed,
			fmt.Errorf("unexpected status: %s", resp.Status()))
	}

	report, err := ParseReport(resp.Body())
	if err != nil {
		return nil, core.WrapError(core.ErrRequestFailed, err)
	}

	c.logger.Debug("received scoring response",
		zap.Int("status", resp.StatusCode()),
		zap.Strings("symbols", report.Symbols()),
		zap.String("average", report.Average.String()),
		zap.Duration("took", resp.Time()),
	)

	return report, nil
}
