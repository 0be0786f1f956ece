package session

import (
	"strings"

	"github.com/MicroPhone1/App-HelpPeople/internal/model"
)

// DefaultTriggers is the built-in Thai command table. Order matters: every
// trigger whose keyword occurs in an utterance fires, in table order.
func DefaultTriggers() []model.Trigger {
	return []model.Trigger{
		{Keyword: "หนัก", Label: "ขอเข้าห้องน้ำ (ปวดหนัก)"},
		{Keyword: "เบา", Label: "ขอเข้าห้องน้ำ (ปวดเบา)"},
		{Keyword: "น้ำ", Label: "ขอดื่มน้ำ"},
		{Keyword: "ข้าว", Label: "ขออาหาร/หิวข้าว"},
		{Keyword: "ช่วยด้วย", Label: "ขอความช่วยเหลือเร่งด่วน"},
		{Keyword: "เจ็บ", Label: "ขอความช่วยเหลือ (เจ็บ)"},
		{Keyword: "ปวด", Label: "ขอความช่วยเหลือ (ปวด)"},
	}
}

// Match scans a transcript against the trigger table and returns every
// trigger whose keyword substring is contained in it. One utterance holding
// several keywords yields several matches; that mirrors how a single spoken
// sentence can carry more than one request.
func Match(transcript string, triggers []model.Trigger) []model.Trigger {
	normalized := strings.ToLower(strings.TrimSpace(transcript))
	if normalized == "" {
		return nil
	}
	var matched []model.Trigger
	for _, t := range triggers {
		if t.Keyword != "" && strings.Contains(normalized, strings.ToLower(t.Keyword)) {
			matched = append(matched, t)
		}
	}
	return matched
}
