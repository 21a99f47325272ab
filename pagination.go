package main

import (
	"net/url"
	"strconv"
)

type Page struct {
	Num int    `json:"num"`
	URL string `json:"url,omitempty"`
}

type Pages []Page

type PaginationConfig struct {
	ipp   int
	page  int
	total int
	url   string
	param string
}

func totalPages(total, ipp int) int {
	if ipp <= 0 {
		return 0
	}
	return (total + ipp - 1) / ipp
}

// Pagination lists the page links of a listing. Other query parameters of the base
// url, such as the category, are kept.
func Pagination(pc PaginationConfig) Pages {
	if pc.total <= pc.ipp {
		return make(Pages, 0)
	}
	pCount := totalPages(pc.total, pc.ipp)
	pages := make(Pages, pCount)
	// Normalize first page
	if pc.page == 0 {
		pc.page = 1
	}
	pURL, err := url.Parse(pc.url)
	if err != nil {
		pURL = &url.URL{}
	}
	val := pURL.Query()
	for i := 1; i <= pCount; i++ {
		// Don't set the url for the current page
		tURL := ""
		if i != pc.page {
			val.Set(pc.param, strconv.Itoa(i))
			pURL.RawQuery = val.Encode()
			tURL = pURL.String()
		}
		pages[i-1] = Page{i, tURL}
	}
	return pages
}

// getPageNumber parses a 1-based page parameter and returns the 0-based page.
func getPageNumber(pageStr string) int {
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		return 0
	}
	return page - 1
}
