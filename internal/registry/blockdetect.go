package registry

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of registry-side blocking detected.
type BlockType string

const (
	BlockNone      BlockType = ""
	BlockRateLimit BlockType = "rate_limit"
	BlockChallenge BlockType = "challenge"
	BlockCaptcha   BlockType = "captcha"
)

// detectBlock inspects a registry response for signs that the registry is
// throttling or challenging us rather than answering the search. A blocked
// response must be classified as a search failure, never as "not found".
func detectBlock(resp *http.Response, body []byte) BlockType {
	if resp == nil {
		return BlockNone
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return BlockRateLimit
	}

	// Challenge pages arrive as HTML where the API normally answers JSON.
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("server") == "cloudflare" {
			return BlockChallenge
		}
	}

	lower := strings.ToLower(string(body))
	switch {
	case strings.Contains(lower, "captcha"):
		return BlockCaptcha
	case strings.Contains(lower, "checking your browser"),
		strings.Contains(lower, "just a moment"),
		strings.Contains(lower, "verify you are human"):
		return BlockChallenge
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") &&
		strings.Contains(lower, "<html") && resp.StatusCode != http.StatusOK {
		return BlockChallenge
	}

	return BlockNone
}
