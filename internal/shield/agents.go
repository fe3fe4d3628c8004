package shield

import "strings"

type agentKind int

const (
	agentHuman agentKind = iota
	agentCrawler
	agentBot
)

type agentClass struct {
	kind    agentKind
	name    string
	domains []string
}

// Search engine crawlers are allowed once their address verifies.
var crawlers = []agentClass{
	{kind: agentCrawler, name: "googlebot", domains: []string{"googlebot.com", "google.com", "googleusercontent.com"}},
	{kind: agentCrawler, name: "bingbot", domains: []string{"search.msn.com"}},
	{kind: agentCrawler, name: "duckduckbot", domains: []string{"duckduckgo.com"}},
	{kind: agentCrawler, name: "yandexbot", domains: []string{"yandex.ru", "yandex.net", "yandex.com"}},
	{kind: agentCrawler, name: "applebot", domains: []string{"applebot.apple.com"}},
	{kind: agentCrawler, name: "baiduspider", domains: []string{"baidu.com", "baidu.jp"}},
}

var botMarkers = []string{
	"bot",
	"crawler",
	"spider",
	"scrapy",
	"curl/",
	"wget/",
	"python-requests",
	"python-urllib",
	"go-http-client",
	"java/",
	"libwww-perl",
	"httpclient",
	"headlesschrome",
	"phantomjs",
}

func classifyAgent(ua string) agentClass {
	ua = strings.ToLower(strings.TrimSpace(ua))
	if ua == "" {
		return agentClass{kind: agentBot, name: "empty"}
	}
	for _, c := range crawlers {
		if strings.Contains(ua, c.name) {
			return c
		}
	}
	for _, marker := range botMarkers {
		if strings.Contains(ua, marker) {
			return agentClass{kind: agentBot, name: marker}
		}
	}
	return agentClass{kind: agentHuman}
}
