package compat

import (
	"encoding/json"
	"errors"
	"strings"
)

// 虚拟机标识子串及其替换目标。虚拟化 Mac 不会单独出现在 feed 中，
// 统一映射到 Apple Silicon 基线机型 M1 Mac mini 再查表。
const (
	virtualMarker   = "VirtualMac"
	virtualFallback = "Macmini9,1"
)

// 固定状态文案，保持与上游 osquery 表的输出逐字一致。
const (
	StatusPass        = "Pass"
	StatusFail        = "Fail"
	StatusUnsupported = "Unsupported Hardware"
	StatusNoData      = "Could not obtain data"
)

// Compat 是三态判定结果：兼容 / 不兼容 / 无法判定。
type Compat int

const (
	// CompatUnknown 表示抓取或解析失败，无法给出判定。
	CompatUnknown Compat = -1
	// Incompatible 表示机型仍受支持但系统不是其最新兼容版本。
	Incompatible Compat = 0
	// Compatible 表示最新版本与机型最新兼容版本一致。
	Compatible Compat = 1
)

// Encode 返回行输出使用的 "1"/"0"/"-1" 编码。
func (c Compat) Encode() string {
	switch c {
	case Compatible:
		return "1"
	case Incompatible:
		return "0"
	default:
		return "-1"
	}
}

// document 仅映射判定所需的 feed 字段，其余内容原样忽略。
type document struct {
	OSVersions []struct {
		OSVersion string `json:"OSVersion"`
	} `json:"OSVersions"`
	Models map[string]struct {
		SupportedOS []string `json:"SupportedOS"`
	} `json:"Models"`
}

// Verdict 是一次判定的全部输出，Model 为虚拟机替换后的机型。
type Verdict struct {
	Model            string
	LatestOS         string
	LatestCompatible string
	Compat           Compat
	Status           string
}

// SubstituteVirtual 将虚拟化机型映射到固定参考机型，幂等且确定。
func SubstituteVirtual(model string) string {
	if strings.Contains(model, virtualMarker) {
		return virtualFallback
	}
	return model
}

// Evaluate 依据 feed 正文判定 model 的兼容性。feedText 为空与解析失败
// 分别短路为 "无数据" / "解析错误" 两种错误形态，绝不向上抛错。
func Evaluate(feedText []byte, model string) Verdict {
	if len(feedText) == 0 {
		return Verdict{
			Model:            SubstituteVirtual(model),
			LatestOS:         "Unknown",
			LatestCompatible: "Unknown",
			Compat:           CompatUnknown,
			Status:           StatusNoData,
		}
	}

	doc, err := parseDocument(feedText)
	if err != nil {
		return Verdict{
			Model:            SubstituteVirtual(model),
			LatestOS:         "Error",
			LatestCompatible: "Error",
			Compat:           CompatUnknown,
			Status:           "Error parsing data: " + err.Error(),
		}
	}

	model = SubstituteVirtual(model)
	latest := doc.OSVersions[0].OSVersion

	latestCompatible := "Unsupported"
	unsupported := true
	if entry, ok := doc.Models[model]; ok && len(entry.SupportedOS) > 0 {
		latestCompatible = entry.SupportedOS[0]
		unsupported = false
	}

	compat := Incompatible
	if latest == latestCompatible {
		compat = Compatible
	}

	// Unsupported Hardware 优先于版本串的偶然相等。
	status := StatusUnsupported
	if !unsupported {
		if compat == Compatible {
			status = StatusPass
		} else {
			status = StatusFail
		}
	}

	return Verdict{
		Model:            model,
		LatestOS:         latest,
		LatestCompatible: latestCompatible,
		Compat:           compat,
		Status:           status,
	}
}

// parseDocument 解析并校验判定所需的最小结构。
func parseDocument(feedText []byte) (*document, error) {
	var doc document
	if err := json.Unmarshal(feedText, &doc); err != nil {
		return nil, err
	}
	if len(doc.OSVersions) == 0 || doc.OSVersions[0].OSVersion == "" {
		return nil, errors.New("missing OSVersions")
	}
	if doc.Models == nil {
		return nil, errors.New("missing Models")
	}
	return &doc, nil
}
