package storage

import "strings"

const upperhex = "0123456789ABCDEF"

// encodeHeaderPath percent-encodes every byte outside the unreserved
// set. Used for the Alist File-Path upload header, which must carry a
// fully escaped path (slashes included).
func encodeHeaderPath(p string) string {
	return percentEncode(p, func(b byte) bool {
		return isAlphaNum(b) || b == '-' || b == '_' || b == '.' || b == '~'
	})
}

// encodeURI mirrors JavaScript's encodeURI: alphanumerics and the set
// -_.!~*'();/?:@&=+$,# pass through, everything else (spaces, brackets,
// multi-byte characters) is percent-encoded per UTF-8 byte. Play URLs
// embedded in .strm files use this form so media players resolve them
// verbatim.
func encodeURI(p string) string {
	return percentEncode(p, func(b byte) bool {
		if isAlphaNum(b) {
			return true
		}
		return strings.IndexByte("-_.!~*'();/?:@&=+$,#", b) >= 0
	})
}

func percentEncode(s string, safe func(byte) bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if safe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0x0f])
	}
	return b.String()
}

func isAlphaNum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
