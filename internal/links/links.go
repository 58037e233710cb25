// 包 links 从自由文本中抽取 http/https 链接。
//
// 匹配规则：协议头之后直到下一个空白字符为止（含 Unicode 空白，如全角空格）。
// 紧跟在链接后的标点（无空白分隔）会被一并截取，这是按空白切分的已知行为。
package links

import "regexp"

var urlPattern = regexp.MustCompile(`https?://[^\s\v\x{85}\p{Z}]+`)

// ExtractURLs 按出现顺序返回全部链接；没有匹配时返回空切片。
func ExtractURLs(text string) []string {
	found := urlPattern.FindAllString(text, -1)
	if found == nil {
		return []string{}
	}
	return found
}

// FirstHTTPLink 返回最左侧的链接。
func FirstHTTPLink(text string) (string, bool) {
	u := urlPattern.FindString(text)
	return u, u != ""
}
