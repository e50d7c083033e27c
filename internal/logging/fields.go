package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// FetchFields 提供 feed 抓取相关字段，供抓取与查询日志复用。
func FetchFields(feedURL, source string, status int) logrus.Fields {
	return logrus.Fields{
		"feed_url":        feedURL,
		"feed_source":     source,
		"upstream_status": status,
	}
}

// EvalFields 提供兼容性判定结果字段，供查询接口与 CLI 输出日志复用。
func EvalFields(model, status, compatible string) logrus.Fields {
	return logrus.Fields{
		"model_identifier": model,
		"status":           status,
		"is_compatible":    compatible,
	}
}
