package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"revshare/pkg/config"
	"revshare/pkg/logger"

	"github.com/PuerkitoBio/goquery"
)

// Collector fetches revenue-share rows from the upstream dashboard.
// Rows come back as header-keyed maps with the dashboard's original
// header text; normalization happens downstream.
type Collector interface {
	Login(ctx context.Context) error
	Collect(ctx context.Context, fetchDate time.Time, firstPageOnly bool) ([]map[string]string, error)
}

// Dashboard paths and markup anchors. The upstream is a Django admin
// changelist, so the selectors track its fixed structure.
const (
	loginPath  = "/ad-sharing/login/"
	reportPath = "/ad-sharing/publisher/revenueshare/"

	csrfField    = "csrfmiddlewaretoken"
	csrfCookie   = "csrftoken"
	maxPages     = 1000
	requestLimit = 30 * time.Second
)

// DashboardCollector is the HTTP implementation of Collector. One
// instance carries one authenticated session.
type DashboardCollector struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

// NewDashboardCollector creates a collector from scraper config
func NewDashboardCollector(cfg *config.ScraperConfig) (*DashboardCollector, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &DashboardCollector{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		client: &http.Client{
			Jar:     jar,
			Timeout: requestLimit,
		},
	}, nil
}

func (c *DashboardCollector) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	return resp, nil
}

// Login performs the form login flow: fetch the login page, lift the CSRF
// token out of the form (or the session cookie), post credentials, then
// verify the report page no longer redirects back to login.
func (c *DashboardCollector) Login(ctx context.Context) error {
	loginURL := c.baseURL + loginPath

	resp, err := c.get(ctx, loginURL)
	if err != nil {
		return fmt.Errorf("failed to load login page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to parse login page: %w", err)
	}

	form := doc.Find("form#login-form").First()
	if form.Length() == 0 {
		form = doc.Find(`form[action*="login"]`).First()
	}
	if form.Length() == 0 {
		return fmt.Errorf("login form not found on %s", loginURL)
	}

	postURL := loginURL
	if action, ok := form.Attr("action"); ok && action != "" {
		resolved, err := resolveURL(loginURL, action)
		if err != nil {
			return fmt.Errorf("bad login form action %q: %w", action, err)
		}
		postURL = resolved
	}

	token, _ := form.Find(`input[name="` + csrfField + `"]`).Attr("value")
	if token == "" {
		token = c.cookieValue(loginURL, csrfCookie)
	}
	if token == "" {
		return fmt.Errorf("csrf token not found on login page")
	}

	values := url.Values{
		"username": {c.username},
		"password": {c.password},
		csrfField:  {token},
	}
	if next, ok := form.Find(`input[name="next"]`).Attr("value"); ok && next != "" {
		values.Set("next", next)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postURL, strings.NewReader(values.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", loginURL)

	postResp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	io.Copy(io.Discard, postResp.Body)
	postResp.Body.Close()

	// The upstream answers a bad login with the login page again, status
	// 200. Probing the report page is the only reliable check.
	probe, err := c.get(ctx, c.baseURL+reportPath)
	if err != nil {
		return fmt.Errorf("login verification failed: %w", err)
	}
	finalURL := probe.Request.URL.String()
	io.Copy(io.Discard, probe.Body)
	probe.Body.Close()
	if strings.Contains(strings.ToLower(finalURL), "login") {
		return fmt.Errorf("login rejected for user %q", c.username)
	}

	logger.Infof("collector: logged in as %s", c.username)
	return nil
}

// Collect scrapes the report table for one date, following the changelist
// pagination unless firstPageOnly is set.
func (c *DashboardCollector) Collect(ctx context.Context, fetchDate time.Time, firstPageOnly bool) ([]map[string]string, error) {
	dateText := fetchDate.Format("2006-01-02")

	base, err := url.Parse(c.baseURL + reportPath)
	if err != nil {
		return nil, err
	}
	query := base.Query()
	query.Set("channel", "No Filter")
	query.Set("time_unit_date__range__gte", dateText)
	query.Set("time_unit_date__range__lte", dateText)
	base.RawQuery = query.Encode()

	var all []map[string]string
	var headers []string

	for page := 1; page <= maxPages; page++ {
		pageURL := *base
		if page > 1 {
			q := pageURL.Query()
			q.Set("p", strconv.Itoa(page))
			pageURL.RawQuery = q.Encode()
		}

		resp, err := c.get(ctx, pageURL.String())
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d: %w", page, err)
		}
		doc, err := goquery.NewDocumentFromReader(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to parse page %d: %w", page, err)
		}

		table := doc.Find("table#result_list").First()
		if table.Length() == 0 {
			if page == 1 {
				return nil, fmt.Errorf("result table not found for %s", dateText)
			}
			break
		}

		if headers == nil {
			headers = tableHeaders(table)
		}

		rows := tableRows(table, headers)
		all = append(all, rows...)
		logger.Debugf("collector: page %d of %s yielded %d rows", page, dateText, len(rows))

		if firstPageOnly || !hasNextPage(doc, page, len(rows)) {
			break
		}
	}

	logger.Infof("collector: fetched %d rows for %s", len(all), dateText)
	return all, nil
}

// tableHeaders reads the changelist header texts in column order. Sortable
// columns nest their label in a div.text.
func tableHeaders(table *goquery.Selection) []string {
	var headers []string
	table.Find("thead tr").First().Find("th").Each(func(_ int, th *goquery.Selection) {
		label := th.Find("div.text").First()
		text := strings.TrimSpace(label.Text())
		if label.Length() == 0 {
			text = strings.TrimSpace(th.Text())
		}
		headers = append(headers, text)
	})
	return headers
}

// tableRows reads tbody rows whose cell count matches the header row.
// Short rows (group separators, empty-state markup) are dropped.
func tableRows(table *goquery.Selection, headers []string) []map[string]string {
	var rows []map[string]string
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() != len(headers) {
			return
		}
		row := make(map[string]string, len(headers))
		cells.Each(func(i int, td *goquery.Selection) {
			row[headers[i]] = strings.TrimSpace(td.Text())
		})
		rows = append(rows, row)
	})
	return rows
}

// hasNextPage inspects the changelist footer: the current page number from
// span.this-page against the highest p= link in the paginator.
func hasNextPage(doc *goquery.Document, page, rowsOnPage int) bool {
	footer := doc.Find("div.changelist-footer").First()
	if footer.Length() == 0 {
		return false
	}
	if rowsOnPage == 0 {
		return false
	}

	current := page
	if text := strings.TrimSpace(footer.Find("span.this-page").First().Text()); text != "" {
		if n, err := strconv.Atoi(text); err == nil {
			current = n
		}
	}

	maxPage := current
	footer.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		parsed, err := url.Parse(href)
		if err != nil {
			return
		}
		if p := parsed.Query().Get("p"); p != "" {
			if n, err := strconv.Atoi(p); err == nil && n > maxPage {
				maxPage = n
			}
		}
	})
	return current < maxPage
}

func (c *DashboardCollector) cookieValue(rawURL, name string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	for _, cookie := range c.client.Jar.Cookies(u) {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

func resolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}
