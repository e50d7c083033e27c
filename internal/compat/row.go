package compat

import "strings"

// SystemFacts 是由外部主机探测层提供的只读快照。
type SystemFacts struct {
	SystemVersion   string
	ModelIdentifier string
}

// Row 是最终的单行输出，字段名与上游 osquery 表逐一对应。
type Row struct {
	SystemVersion         string `json:"system_version"`
	SystemOSMajor         string `json:"system_os_major"`
	ModelIdentifier       string `json:"model_identifier"`
	LatestMacOS           string `json:"latest_macos"`
	LatestCompatibleMacOS string `json:"latest_compatible_macos"`
	IsCompatible          string `json:"is_compatible"`
	Status                string `json:"status"`
}

// BuildRow 将系统事实与判定结果装配成恰好一行输出。
func BuildRow(facts SystemFacts, v Verdict) Row {
	return Row{
		SystemVersion:         facts.SystemVersion,
		SystemOSMajor:         majorVersion(facts.SystemVersion),
		ModelIdentifier:       v.Model,
		LatestMacOS:           v.LatestOS,
		LatestCompatibleMacOS: v.LatestCompatible,
		IsCompatible:          v.Compat.Encode(),
		Status:                v.Status,
	}
}

// majorVersion 截取第一个 "." 之前的主版本号，无分隔符时返回原串。
func majorVersion(version string) string {
	if idx := strings.Index(version, "."); idx >= 0 {
		return version[:idx]
	}
	return version
}
