package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("ListenPort", "必须在 1-65535")
	}
	if g.CachePath == "" {
		return newFieldError("CachePath", "不能为空")
	}
	if g.FetchTimeout.DurationValue() <= 0 {
		return newFieldError("FetchTimeout", "必须大于 0")
	}
	if err := validateFeedURL(g.FeedURL); err != nil {
		return fmt.Errorf("FeedURL: %w", err)
	}

	return nil
}

func validateFeedURL(raw string) error {
	if raw == "" {
		return errors.New("缺少数据源地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，数据源: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("数据源缺少 Host: %s", raw)
	}
	return nil
}
