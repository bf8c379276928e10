package subscribe

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"PPanel/module/account/model"
	errs "PPanel/tools/errs"
)

// Renderer 输出渲染协作方：把裁决结果变成某种订阅文件方言。
// 引擎对方言不感知；不认识的格式报 UnsupportedFormat。
type Renderer interface {
	Render(format string, acct *model.Account, cands []Candidate) (body []byte, contentType string, err error)
}

// ListRenderer 内置的朴素渲染：plain / base64 / json 三种。
// 各代理方言（clash、sing-box 等）由面板的渲染侧注册自己的实现。
type ListRenderer struct{}

func (ListRenderer) Render(format string, acct *model.Account, cands []Candidate) ([]byte, string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "plain":
		return []byte(plainList(cands)), "text/plain; charset=utf-8", nil
	case "base64":
		return []byte(base64.StdEncoding.EncodeToString([]byte(plainList(cands)))), "text/plain; charset=utf-8", nil
	case "json":
		body, err := json.Marshal(cands)
		if err != nil {
			return nil, "", errs.WrapMsg(err, "marshal candidates")
		}
		return body, "application/json", nil
	default:
		return nil, "", errs.ErrUnsupportedFormat.WrapMsg("unknown format", "format", format)
	}
}

func plainList(cands []Candidate) string {
	var sb strings.Builder
	for _, c := range cands {
		fmt.Fprintf(&sb, "%s://%s\n", c.Protocol, c.EndpointID)
	}
	return sb.String()
}
