// Package edgar fetches company filings from the SEC EDGAR API.
package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/jaytaylor/html2text"
	"go.uber.org/zap"

	"github.com/tordrt/cyberdisclosure/internal/logging"
	"github.com/tordrt/cyberdisclosure/internal/models"
	"github.com/tordrt/cyberdisclosure/internal/schema"
	"github.com/tordrt/cyberdisclosure/internal/transform"
)

// Default EDGAR endpoints
const (
	DefaultDataURL = "https://data.sec.gov"
	DefaultWWWURL  = "https://www.sec.gov"
)

// Config configures a Client. UserAgent is mandatory: EDGAR rejects
// anonymous requests.
type Config struct {
	UserAgent string
	DataURL   string
	WWWURL    string
	RetryMax  int
	// RetryWait bounds the wait between attempts; zero keeps the client
	// defaults.
	RetryWait time.Duration
	Logger    *zap.SugaredLogger
}

// Client talks to EDGAR
type Client struct {
	http      *retryablehttp.Client
	userAgent string
	dataURL   string
	wwwURL    string
	log       *zap.SugaredLogger
}

// NewClient returns a client with retries on 429 and 5xx responses
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.UserAgent) == "" {
		return nil, fmt.Errorf("a user agent identifying the requester is required by EDGAR")
	}
	if cfg.DataURL == "" {
		cfg.DataURL = DefaultDataURL
	}
	if cfg.WWWURL == "" {
		cfg.WWWURL = DefaultWWWURL
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}

	hc := retryablehttp.NewClient()
	hc.Logger = logging.Leveled{SugaredLogger: cfg.Logger}
	if cfg.RetryMax > 0 {
		hc.RetryMax = cfg.RetryMax
	}
	if cfg.RetryWait > 0 {
		hc.RetryWaitMin = cfg.RetryWait
		hc.RetryWaitMax = cfg.RetryWait
	}

	return &Client{
		http:      hc,
		userAgent: cfg.UserAgent,
		dataURL:   strings.TrimRight(cfg.DataURL, "/"),
		wwwURL:    strings.TrimRight(cfg.WWWURL, "/"),
		log:       cfg.Logger,
	}, nil
}

// Filing is an EDGAR filing of one of the tracked form types
type Filing struct {
	Ticker          string
	CIK             string
	AccessionNumber string
	Form            string
	FilingDate      time.Time
	PrimaryDocument string
}

// DocumentURL is the archive location of the filing's primary document
func (c *Client) DocumentURL(f Filing) string {
	cik := strings.TrimLeft(f.CIK, "0")
	accession := strings.ReplaceAll(f.AccessionNumber, "-", "")
	return fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s", c.wwwURL, cik, accession, f.PrimaryDocument)
}

type tickerEntry struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// LookupCIK resolves a ticker to its zero-padded ten digit CIK
func (c *Client) LookupCIK(ctx context.Context, ticker string) (string, error) {
	var entries map[string]tickerEntry
	if err := c.getJSON(ctx, c.wwwURL+"/files/company_tickers.json", &entries); err != nil {
		return "", fmt.Errorf("failed to fetch ticker map: %w", err)
	}

	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	for _, e := range entries {
		if strings.EqualFold(e.Ticker, ticker) {
			return PadCIK(strconv.FormatInt(e.CIK, 10)), nil
		}
	}
	return "", fmt.Errorf("ticker %s not found in EDGAR", ticker)
}

// PadCIK left-pads a CIK with zeros to ten digits
func PadCIK(cik string) string {
	cik = strings.TrimSpace(cik)
	if len(cik) >= 10 {
		return cik
	}
	return strings.Repeat("0", 10-len(cik)) + cik
}

// filingColumns is EDGAR's column-oriented filing list, used both for the
// recent filings and for each older archive page.
type filingColumns struct {
	AccessionNumber []string `json:"accessionNumber"`
	FilingDate      []string `json:"filingDate"`
	Form            []string `json:"form"`
	PrimaryDocument []string `json:"primaryDocument"`
}

// archivePage names a file holding filings older than the recent window
type archivePage struct {
	Name       string `json:"name"`
	FilingFrom string `json:"filingFrom"`
	FilingTo   string `json:"filingTo"`
}

type submissions struct {
	CIK     string   `json:"cik"`
	Name    string   `json:"name"`
	Tickers []string `json:"tickers"`
	Filings struct {
		Recent filingColumns `json:"recent"`
		Files  []archivePage `json:"files"`
	} `json:"filings"`
}

// Filings returns the company's filings of the tracked form types filed
// between from and to inclusive. Zero bounds are open. Archive pages beyond
// the recent window are fetched when their date span overlaps the bounds.
func (c *Client) Filings(ctx context.Context, ticker, cik string, from, to time.Time) ([]Filing, error) {
	cik = PadCIK(cik)

	var sub submissions
	if err := c.getJSON(ctx, fmt.Sprintf("%s/submissions/CIK%s.json", c.dataURL, cik), &sub); err != nil {
		return nil, fmt.Errorf("failed to fetch submissions for CIK %s: %w", cik, err)
	}

	sel := filingSelector{ticker: strings.ToUpper(ticker), cik: cik, from: from, to: to}
	filings, err := sel.collect(sub.Filings.Recent, nil)
	if err != nil {
		return nil, err
	}

	pages := 0
	for _, page := range sub.Filings.Files {
		if !sel.overlaps(page) {
			continue
		}
		var cols filingColumns
		if err := c.getJSON(ctx, fmt.Sprintf("%s/submissions/%s", c.dataURL, page.Name), &cols); err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", page.Name, err)
		}
		if filings, err = sel.collect(cols, filings); err != nil {
			return nil, fmt.Errorf("%s: %w", page.Name, err)
		}
		pages++
	}

	c.log.Infow("Fetched filings", "ticker", ticker, "cik", cik, "tracked", len(filings),
		"recent", len(sub.Filings.Recent.Form), "archive_pages", pages)
	return filings, nil
}

type filingSelector struct {
	ticker, cik string
	from, to    time.Time
}

// overlaps reports whether an archive page may hold filings inside the
// bounds. Pages with unreadable spans are fetched.
func (s filingSelector) overlaps(page archivePage) bool {
	first, errFrom := models.ParseDate(page.FilingFrom)
	last, errTo := models.ParseDate(page.FilingTo)
	if errFrom != nil || errTo != nil {
		return true
	}
	if !s.from.IsZero() && last.Before(models.Date(s.from)) {
		return false
	}
	if !s.to.IsZero() && first.After(models.Date(s.to)) {
		return false
	}
	return true
}

func (s filingSelector) collect(cols filingColumns, filings []Filing) ([]Filing, error) {
	n := len(cols.Form)
	if len(cols.FilingDate) != n || len(cols.AccessionNumber) != n || len(cols.PrimaryDocument) != n {
		return nil, fmt.Errorf("malformed submissions for CIK %s: column lengths differ", s.cik)
	}

	for i := 0; i < n; i++ {
		if !trackedForms[cols.Form[i]] {
			continue
		}
		date, err := models.ParseDate(cols.FilingDate[i])
		if err != nil {
			return nil, fmt.Errorf("filing %s: invalid date %q", cols.AccessionNumber[i], cols.FilingDate[i])
		}
		if (!s.from.IsZero() && date.Before(models.Date(s.from))) || (!s.to.IsZero() && date.After(models.Date(s.to))) {
			continue
		}
		filings = append(filings, Filing{
			Ticker:          s.ticker,
			CIK:             s.cik,
			AccessionNumber: cols.AccessionNumber[i],
			Form:            cols.Form[i],
			FilingDate:      date,
			PrimaryDocument: cols.PrimaryDocument[i],
		})
	}
	return filings, nil
}

var trackedForms = func() map[string]bool {
	m := make(map[string]bool, len(schema.FilingTypes))
	for _, ft := range schema.FilingTypes {
		m[ft] = true
	}
	return m
}()

// DocumentText downloads the primary document of f and converts it to
// plain text
func (c *Client) DocumentText(ctx context.Context, f Filing) (string, error) {
	body, err := c.get(ctx, c.DocumentURL(f))
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", f.AccessionNumber, err)
	}

	text, err := html2text.FromString(string(body), html2text.Options{OmitLinks: true})
	if err != nil {
		return "", fmt.Errorf("failed to convert %s to text: %w", f.AccessionNumber, err)
	}
	return text, nil
}

// Rows converts filings to dataset rows. When withText is set each primary
// document is downloaded and scanned for cybersecurity mentions.
func (c *Client) Rows(ctx context.Context, filings []Filing, withText bool) ([]models.Filing, error) {
	rows := make([]models.Filing, 0, len(filings))
	for _, f := range filings {
		row := models.Filing{Ticker: f.Ticker, FilingDate: f.FilingDate, FilingType: f.Form}
		if withText {
			text, err := c.DocumentText(ctx, f)
			if err != nil {
				return nil, err
			}
			row.CybersecurityMention = transform.DetectCyberMention(text)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	body, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s from %s", resp.Status, url)
	}
	return io.ReadAll(resp.Body)
}
