package main

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// ---------------------------------------------------------------------------
// Stage Notices
// ---------------------------------------------------------------------------

// defaultNotices are the instruction banners shown above each stage.
var defaultNotices = map[string]string{
	"intro": "**목적** 신설학교 학급 편성을 위한 정보 수집\n\n" +
		"**순서** ①지역 및 학교 → ②개인정보 수집·이용 동의서 → ③전입예정확인서 → ④제출",
	StageSelectRegionSchool.String(): "전입 예정 지역 및 전학 예정 학교를 선택하세요.",
	StageConsent.String():            "개인정보 수집·이용 동의서를 확인 후 진행하세요.",
	StageFillForm.String():           "작성란 예시를 지운 후 작성하세요.",
	StagePreviewAndSubmit.String():   "미리보기를 통해 최종 확인 후 제출하세요.",
}

// renderNotices converts the configured Markdown notices to sanitized HTML.
// Keys missing from configured fall back to defaultNotices.
func renderNotices(configured map[string]string) (map[string]template.HTML, error) {
	md := goldmark.New()
	policy := bluemonday.UGCPolicy()

	out := make(map[string]template.HTML, len(defaultNotices))
	for key, text := range defaultNotices {
		if custom, ok := configured[key]; ok {
			text = custom
		}
		var buf bytes.Buffer
		if err := md.Convert([]byte(text), &buf); err != nil {
			return nil, fmt.Errorf("notice %s: %w", key, err)
		}
		out[key] = template.HTML(strings.TrimSpace(policy.Sanitize(buf.String())))
	}
	return out, nil
}
