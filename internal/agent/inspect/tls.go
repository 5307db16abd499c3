package inspect

const (
	tlsContentHandshake = 0x16
	tlsMajorVersion     = 0x03
)

// LooksLikeTLSHandshake 只比较记录头的前两个字节（content type + 主版本号），不做进一步解析。
func LooksLikeTLSHandshake(payload []byte) bool {
	return len(payload) >= 2 && payload[0] == tlsContentHandshake && payload[1] == tlsMajorVersion
}
