package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/sofa-check/sofa-check/internal/cache"
	"github.com/sofa-check/sofa-check/internal/compat"
	"github.com/sofa-check/sofa-check/internal/version"
)

// compatibilityPayload 在输出行之外附带 feed 来源，方便调用方识别降级状态。
type compatibilityPayload struct {
	compat.Row
	FeedSource string `json:"feed_source"`
}

type artifactStatus struct {
	Present   bool       `json:"present"`
	SizeBytes int64      `json:"size_bytes,omitempty"`
	ModTime   *time.Time `json:"mod_time,omitempty"`
}

type statusPayload struct {
	Version   string         `json:"version"`
	FeedURL   string         `json:"feed_url"`
	Validator string         `json:"validator,omitempty"`
	Body      artifactStatus `json:"body"`
}

// registerRoutes 挂载查询与诊断路由。查询接口永远返回 200 + 完整行，
// 上游失败只体现在行内容与 feed_source 上（输出 schema 稳定性契约）。
func registerRoutes(app *fiber.App, opts AppOptions) {
	app.Get("/v1/compatibility", func(c fiber.Ctx) error {
		systemVersion := c.Query("system_version")
		modelIdentifier := c.Query("model_identifier")
		if systemVersion == "" || modelIdentifier == "" {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"error": "system_version and model_identifier are required"})
		}

		started := time.Now()
		facts := compat.SystemFacts{
			SystemVersion:   systemVersion,
			ModelIdentifier: modelIdentifier,
		}

		result := opts.Fetcher.Fetch(requestContext(c))
		row := compat.BuildRow(facts, compat.Evaluate(result.Body, facts.ModelIdentifier))

		opts.Logger.WithFields(logrus.Fields{
			"action":           "compatibility_check",
			"request_id":       RequestID(c),
			"model_identifier": row.ModelIdentifier,
			"status":           row.Status,
			"is_compatible":    row.IsCompatible,
			"feed_source":      string(result.Source),
			"elapsed_ms":       time.Since(started).Milliseconds(),
		}).Info("compatibility_check_complete")

		return c.JSON(compatibilityPayload{
			Row:        row,
			FeedSource: string(result.Source),
		})
	})

	app.Get("/-/status", func(c fiber.Ctx) error {
		ctx := requestContext(c)
		payload := statusPayload{
			Version: version.Full(),
			FeedURL: opts.Fetcher.FeedURL(),
			Body:    artifactStatus{},
		}

		payload.Validator = opts.Fetcher.CachedValidator(ctx)
		if info, err := opts.Store.Stat(ctx, cache.ArtifactBody); err == nil {
			modTime := info.ModTime
			payload.Body = artifactStatus{
				Present:   true,
				SizeBytes: info.SizeBytes,
				ModTime:   &modTime,
			}
		} else if !errors.Is(err, cache.ErrNotFound) {
			opts.Logger.WithError(err).WithField("action", "status").Warn("cache_stat_failed")
		}

		return c.JSON(payload)
	})
}

// requestContext 返回请求关联的 ctx，fiber 未提供时退回 Background。
func requestContext(c fiber.Ctx) context.Context {
	if ctx := c.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
