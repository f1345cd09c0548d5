package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"revshare/pkg/config"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

const testToken = "tok123"

// fakeDashboard mimics the upstream admin changelist closely enough for the
// login and pagination flows: CSRF-protected form login, a session cookie,
// and a two-page result table.
type fakeDashboard struct {
	username string
	password string

	pages      map[int]string
	totalPages int

	loginPosts int
}

func (d *fakeDashboard) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(loginPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			http.SetCookie(w, &http.Cookie{Name: csrfCookie, Value: testToken, Path: "/"})
			fmt.Fprintf(w, `<html><body>
				<form id="login-form" action="%s" method="post">
					<input type="hidden" name="csrfmiddlewaretoken" value="%s">
					<input type="hidden" name="next" value="%s">
					<input name="username"><input name="password">
				</form>
			</body></html>`, loginPath, testToken, reportPath)
			return
		}

		d.loginPosts++
		r.ParseForm()
		if r.FormValue(csrfField) != testToken {
			http.Error(w, "csrf failure", http.StatusForbidden)
			return
		}
		if r.FormValue("username") != d.username || r.FormValue("password") != d.password {
			// Bad credentials re-render the login page with status 200.
			fmt.Fprint(w, `<html><body><form id="login-form"></form></body></html>`)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "session-ok", Path: "/"})
		http.Redirect(w, r, reportPath, http.StatusFound)
	})

	mux.HandleFunc(reportPath, func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("sessionid"); err != nil || c.Value != "session-ok" {
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		}
		page := 1
		if p := r.URL.Query().Get("p"); p != "" {
			fmt.Sscanf(p, "%d", &page)
		}
		body, ok := d.pages[page]
		if !ok {
			fmt.Fprint(w, `<html><body></body></html>`)
			return
		}
		fmt.Fprint(w, body)
	})

	return mux
}

func resultPage(rows string, thisPage, maxPage int) string {
	var links strings.Builder
	for p := 1; p <= maxPage; p++ {
		if p == thisPage {
			fmt.Fprintf(&links, `<span class="this-page">%d</span>`, p)
		} else {
			fmt.Fprintf(&links, `<a href="?p=%d">%d</a>`, p, p)
		}
	}
	return fmt.Sprintf(`<html><body>
		<table id="result_list">
			<thead><tr>
				<th><div class="text"><a href="?o=1">Channel</a></div></th>
				<th><div class="text"><a href="?o=2">Slot</a></div></th>
				<th>Net Revenue (USD)</th>
			</tr></thead>
			<tbody>%s</tbody>
		</table>
		<div class="changelist-footer"><p class="paginator">%s</p></div>
	</body></html>`, rows, links.String())
}

func resultRow(channel, slot, revenue string) string {
	return fmt.Sprintf(`<tr><td>%s</td><td>%s</td><td> %s </td></tr>`, channel, slot, revenue)
}

func newTestCollector(t *testing.T, baseURL, username, password string) *DashboardCollector {
	t.Helper()
	c, err := NewDashboardCollector(&config.ScraperConfig{
		BaseURL:  baseURL,
		Username: username,
		Password: password,
	})
	require.NoError(t, err)
	return c
}

func TestLoginSuccess(t *testing.T) {
	dash := &fakeDashboard{username: "reporter", password: "s3cret"}
	srv := httptest.NewServer(dash.handler())
	defer srv.Close()

	c := newTestCollector(t, srv.URL, "reporter", "s3cret")
	require.NoError(t, c.Login(context.Background()))
	assert.Equal(t, 1, dash.loginPosts)
}

func TestLoginRejected(t *testing.T) {
	dash := &fakeDashboard{username: "reporter", password: "s3cret"}
	srv := httptest.NewServer(dash.handler())
	defer srv.Close()

	c := newTestCollector(t, srv.URL, "reporter", "wrong")
	err := c.Login(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login rejected")
}

func TestLoginFormMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>maintenance</p></body></html>`)
	}))
	defer srv.Close()

	c := newTestCollector(t, srv.URL, "reporter", "s3cret")
	err := c.Login(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login form not found")
}

func TestCollectFollowsPagination(t *testing.T) {
	dash := &fakeDashboard{
		username: "reporter",
		password: "s3cret",
		pages: map[int]string{
			1: resultPage(
				resultRow("ch1", "a_desktop", "10.00")+resultRow("ch1", "a_mobile", "20.00"),
				1, 2),
			2: resultPage(resultRow("ch1", "b_desktop", "5.00"), 2, 2),
		},
	}
	srv := httptest.NewServer(dash.handler())
	defer srv.Close()

	c := newTestCollector(t, srv.URL, "reporter", "s3cret")
	require.NoError(t, c.Login(context.Background()))

	rows, err := c.Collect(context.Background(), time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "ch1", rows[0]["Channel"])
	assert.Equal(t, "a_desktop", rows[0]["Slot"])
	assert.Equal(t, "10.00", rows[0]["Net Revenue (USD)"], "cell text must be trimmed")
	assert.Equal(t, "b_desktop", rows[2]["Slot"])
}

func TestCollectFirstPageOnly(t *testing.T) {
	dash := &fakeDashboard{
		username: "reporter",
		password: "s3cret",
		pages: map[int]string{
			1: resultPage(resultRow("ch1", "a_desktop", "10.00"), 1, 2),
			2: resultPage(resultRow("ch1", "b_desktop", "5.00"), 2, 2),
		},
	}
	srv := httptest.NewServer(dash.handler())
	defer srv.Close()

	c := newTestCollector(t, srv.URL, "reporter", "s3cret")
	require.NoError(t, c.Login(context.Background()))

	rows, err := c.Collect(context.Background(), time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a_desktop", rows[0]["Slot"])
}

func TestCollectMissingTable(t *testing.T) {
	dash := &fakeDashboard{
		username: "reporter",
		password: "s3cret",
		pages:    map[int]string{},
	}
	srv := httptest.NewServer(dash.handler())
	defer srv.Close()

	c := newTestCollector(t, srv.URL, "reporter", "s3cret")
	require.NoError(t, c.Login(context.Background()))

	_, err := c.Collect(context.Background(), time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "result table not found")
}

func TestCollectSkipsShortRows(t *testing.T) {
	dash := &fakeDashboard{
		username: "reporter",
		password: "s3cret",
		pages: map[int]string{
			1: resultPage(
				resultRow("ch1", "a_desktop", "10.00")+`<tr><td colspan="3">group break</td></tr>`,
				1, 1),
		},
	}
	srv := httptest.NewServer(dash.handler())
	defer srv.Close()

	c := newTestCollector(t, srv.URL, "reporter", "s3cret")
	require.NoError(t, c.Login(context.Background()))

	rows, err := c.Collect(context.Background(), time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestHasNextPageBounds(t *testing.T) {
	// Footer absent: no next page.
	doc := mustDoc(t, `<html><body></body></html>`)
	assert.False(t, hasNextPage(doc, 1, 10))

	// Current page is the highest page.
	doc = mustDoc(t, `<html><body><div class="changelist-footer">
		<a href="?p=1">1</a><span class="this-page">2</span>
	</div></body></html>`)
	assert.False(t, hasNextPage(doc, 2, 10))

	// A higher p= link means there is more to fetch.
	doc = mustDoc(t, `<html><body><div class="changelist-footer">
		<span class="this-page">1</span><a href="?p=3">3</a>
	</div></body></html>`)
	assert.True(t, hasNextPage(doc, 1, 10))

	// An empty page never advances, whatever the footer claims.
	assert.False(t, hasNextPage(doc, 1, 0))
}
