package extract

// defaultSelectors maps a hostname (without www.) to the CSS selector of its
// article body. Used by tier 2 when the readability pass comes up short.
func defaultSelectors() map[string]string {
	return map[string]string{
		"finance.naver.com":   "#news_read",
		"news.naver.com":      "#dic_area",
		"mk.co.kr":            ".news_cnt_detail_wrap",
		"hankyung.com":        "#articletxt",
		"sedaily.com":         ".article_view",
		"coindeskkorea.com":   "#article-view-content-div",
		"tokenpost.kr":        ".article_content",
		"finance.yahoo.com":   ".caas-body",
		"reuters.com":         "article",
		"investing.com":       ".articlePage",
	}
}

// RegisterSelector adds or overrides a per-domain selector at runtime.
func (e *Extractor) RegisterSelector(host, selector string) {
	e.selectors[host] = selector
}
