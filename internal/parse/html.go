package parse

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lien-Gu/bookrank/internal/model"
)

var bookHrefRe = regexp.MustCompile(`(?:novelid=|/book/)(\d+)`)

// ParseRankingHTML extracts ranking entries from the one server-rendered
// board page. Rows that do not yield a book id are skipped and counted.
func ParseRankingHTML(pageID string, body []byte) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("parse html: %w", err)
	}

	res := Result{
		RankingName: strings.TrimSpace(doc.Find(".rank-title, h1").First().Text()),
	}
	seen := make(map[string]struct{})
	doc.Find(".rank-list li, table.rank tbody tr").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("a").First()
		href, _ := link.Attr("href")
		m := bookHrefRe.FindStringSubmatch(href)
		if m == nil {
			res.Failed++
			return
		}
		bookID := m[1]
		title := strings.TrimSpace(link.Text())
		if title == "" {
			res.Failed++
			return
		}
		author := strings.TrimSpace(row.Find(".author").First().Text())
		score := int64(0)
		if s := strings.TrimSpace(row.Find(".score").First().Text()); s != "" {
			if n, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64); err == nil {
				score = n
			}
		}

		res.Entries = append(res.Entries, model.RankingEntry{
			Position: len(res.Entries) + 1,
			BookID:   bookID,
			Title:    title,
			Author:   author,
			Score:    score,
		})
		if _, dup := seen[bookID]; !dup {
			seen[bookID] = struct{}{}
			res.Books = append(res.Books, model.Book{
				ID:     bookID,
				Title:  title,
				Author: author,
			})
			res.Snapshots = append(res.Snapshots, model.BookSnapshot{BookID: bookID})
		}
	})
	if len(res.Entries) == 0 {
		return Result{}, ErrEmptyPayload
	}
	return res, nil
}
