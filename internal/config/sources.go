package config

// browserHeaders имитируют обычный браузер: часть издателей отдаёт ленту
// только клиентам с такими заголовками.
func browserHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Accept":          "application/rss+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
		"Connection":      "keep-alive",
	}
}

// DefaultSources — встроенный реестр финансовых лент.
func DefaultSources() []Source {
	return []Source{
		{
			Name: "Economic Times",
			URLs: []string{"https://economictimes.indiatimes.com/markets/rssfeeds/1977021501.cms"},
		},
		{
			Name: "Business Standard",
			URLs: []string{
				"https://www.business-standard.com/rss/india-news-216.rss",
				"https://www.business-standard.com/rss/latest.rss",
				"https://www.business-standard.com/rss/markets-106.rss",
			},
			Headers: browserHeaders(),
		},
		{
			Name:    "5Paisa",
			URLs:    []string{"https://www.5paisa.com/rss/news.xml"},
			Headers: browserHeaders(),
		},
		{
			Name:    "CNBC",
			URLs:    []string{"https://www.cnbc.com/id/100003114/device/rss/rss.html"},
			Headers: browserHeaders(),
		},
		{
			Name:    "Yahoo",
			URLs:    []string{"https://finance.yahoo.com/news/rssindex"},
			Headers: browserHeaders(),
		},
		{
			Name:    "Economist",
			URLs:    []string{"https://www.economist.com/finance-and-economics/rss.xml"},
			Headers: browserHeaders(),
		},
		{
			Name:    "Investing.com",
			URLs:    investingFeeds(),
			Headers: browserHeaders(),
		},
	}
}

func investingFeeds() []string {
	paths := []string{
		"121899", "market_overview", "market_overview_Technical", "market_overview_Fundamental",
		"market_overview_Opinion", "market_overview_investing_ideas", "302", "320",
		"forex", "forex_Technical", "forex_Fundamental", "forex_Opinion", "forex_Signals",
		"286", "290",
		"stock", "stock_Technical", "stock_Fundamental", "stock_Opinion", "stock_stock_picks",
		"stock_Stocks", "stock_Indices", "stock_Futures", "stock_ETFs", "stock_Options",
		"commodities", "commodities_Technical", "commodities_Fundamental", "commodities_Opinion",
		"commodities_Strategy", "commodities_Metals", "commodities_Energy", "commodities_Agriculture",
		"bonds", "bonds_Technical", "bonds_Fundamental", "bonds_Opinion", "bonds_Strategy",
		"bonds_Government", "bonds_Corporate",
		"news", "news_1060", "news_1061", "news_1062", "news_1063", "news_1064", "news_1065",
		"news_301", "news_356", "news_357", "news_1", "news_11", "news_25", "news_95", "news_14",
		"investing_news", "central_banks",
	}
	urls := make([]string, 0, len(paths))
	for _, p := range paths {
		urls = append(urls, "https://www.investing.com/rss/"+p+".rss")
	}
	return urls
}
