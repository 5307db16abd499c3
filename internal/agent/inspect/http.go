// Package inspect holds the narrow payload heuristics applied to TCP segments.
// They only produce diagnostics; decoded records never depend on them.
package inspect

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// HTTPRequest 是从请求行和 Host 头里拿到的最少信息。
type HTTPRequest struct {
	Method string
	Target string
	Host   string
}

var methodPrefixes = [][]byte{
	[]byte("GET "),
	[]byte("POST "),
	[]byte("PUT "),
	[]byte("DELETE "),
	[]byte("HEAD "),
	[]byte("OPTIONS "),
	[]byte("PATCH "),
	[]byte("CONNECT "),
	[]byte("TRACE "),
}

// DetectHTTPRequest 不做 TCP 流重组，只看单个分段的 payload 是否像 HTTP 请求。
func DetectHTTPRequest(payload []byte) (HTTPRequest, bool) {
	if len(payload) == 0 || !utf8.Valid(payload) {
		return HTTPRequest{}, false
	}
	method, target, ok := parseRequestLine(payload)
	if !ok {
		return HTTPRequest{}, false
	}
	return HTTPRequest{Method: method, Target: target, Host: findHost(payload)}, true
}

func parseRequestLine(payload []byte) (method string, target string, ok bool) {
	line := firstLine(payload)
	if len(line) == 0 {
		return "", "", false
	}

	// 先做前缀判断，避免 strings.Fields 在大量非 HTTP payload 上分配。
	matched := false
	for _, p := range methodPrefixes {
		if bytes.HasPrefix(line, p) {
			matched = true
			break
		}
	}
	if !matched {
		return "", "", false
	}

	parts := strings.Fields(string(line))
	if len(parts) < 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// findHost 返回第一个 Host 头的值，大小写不敏感；没有则返回空串。
func findHost(payload []byte) string {
	for _, raw := range bytes.Split(payload, []byte("\n")) {
		line := bytes.TrimRight(raw, "\r")
		if len(line) < 5 || !bytes.EqualFold(line[:5], []byte("host:")) {
			continue
		}
		return string(bytes.TrimSpace(line[5:]))
	}
	return ""
}

func firstLine(payload []byte) []byte {
	// HTTP 行以 \r\n 结尾；兼容只有 \n 的情况。
	if i := bytes.IndexByte(payload, '\n'); i >= 0 {
		return bytes.TrimRight(payload[:i], "\r")
	}
	return payload
}
