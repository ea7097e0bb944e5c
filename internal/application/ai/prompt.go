package ai

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/bryanwahyu/ayursense/internal/domain/ai"
	"github.com/bryanwahyu/ayursense/internal/domain/reading"
	"github.com/bryanwahyu/ayursense/internal/domain/session"
)

var summaryChannels = []reading.Channel{
	reading.ChannelTDS,
	reading.ChannelPH,
	reading.ChannelORP,
	reading.ChannelTemperature,
}

// SystemPrompt provides strict directions and schema for JSON output.
func SystemPrompt() string {
	return `You assess whether a herbal liquid is safe to apply to the skin for a stated condition, using summary statistics from an electronic tongue. You must produce one valid JSON object only (no markdown, no commentary). Do not include code fences.

Channels:
- tds: total dissolved solids in ppm.
- ph: acidity index, 0 to 14.
- orp: oxidation-reduction potential in mV.
- temperature: degrees Celsius.
A channel reported as unknown had no reading during the session; do not guess its value.

Requirements:
- "safe" is a boolean.
- "confidence" is a number from 0 to 100.
- "explanation" is one or two plain sentences naming the measurements that drove the decision.

Schema:
{"safe": false, "confidence": 0, "explanation": "<string>"}`
}

// UserPrompt summarises w per channel for the given condition.
func UserPrompt(w *session.SampleWindow, cond session.Condition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Condition: %s\n", cond.Label())
	fmt.Fprintf(&b, "Samples: %d\n", w.Len())
	for _, ch := range summaryChannels {
		st, ok := w.Stats(ch)
		if !ok {
			fmt.Fprintf(&b, "%s: unknown\n", ch)
			continue
		}
		fmt.Fprintf(&b, "%s: last=%s min=%s max=%s mean=%s n=%d\n",
			ch, num(st.Last), num(st.Min), num(st.Max), num(st.Mean), st.Count)
	}
	b.WriteString("Respond with the JSON per schema.")
	return b.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

type verdictResponse struct {
	Safe        *bool    `json:"safe"`
	Confidence  *float64 `json:"confidence"`
	Explanation string   `json:"explanation"`
}

// ParseVerdict decodes a model answer. Code fences are tolerated; missing
// fields are not. Confidence is clamped to [0,100].
func ParseVerdict(raw string) (session.Verdict, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var resp verdictResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &resp); err != nil {
		return session.Verdict{}, fmt.Errorf("%w: %v", ai.ErrInvalidResponse, err)
	}
	if resp.Safe == nil || resp.Confidence == nil {
		return session.Verdict{}, fmt.Errorf("%w: safe and confidence are required", ai.ErrInvalidResponse)
	}
	explanation := strings.TrimSpace(resp.Explanation)
	if explanation == "" {
		return session.Verdict{}, fmt.Errorf("%w: empty explanation", ai.ErrInvalidResponse)
	}
	return session.Verdict{
		Safe:        *resp.Safe,
		Confidence:  session.ClampConfidence(*resp.Confidence),
		Explanation: explanation,
	}, nil
}
