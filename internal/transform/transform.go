// Package transform cleans and enriches dataset rows before validation.
package transform

import (
	"sort"
	"strings"
	"time"

	"github.com/tordrt/cyberdisclosure/internal/models"
)

// ImmediateDisclosureDays is the longest breach-to-filing delay classified
// as an immediate disclosure.
const ImmediateDisclosureDays = 4

var cyberKeywords = []string{
	"cybersecurity",
	"cyber security",
	"data breach",
	"hacking",
	"malware",
	"ransomware",
	"phishing",
	"unauthorized access",
	"security incident",
	"data theft",
	"privacy breach",
}

// CleanCompanies trims names and sectors, upper-cases tickers and drops rows
// repeating an earlier ticker. Blank sectors become NULL.
func CleanCompanies(companies []models.Company) []models.Company {
	seen := make(map[string]bool, len(companies))
	cleaned := make([]models.Company, 0, len(companies))

	for _, c := range companies {
		c.Ticker = strings.ToUpper(strings.TrimSpace(c.Ticker))
		c.Name = strings.TrimSpace(c.Name)
		if c.Sector != nil {
			sector := strings.TrimSpace(*c.Sector)
			if sector == "" {
				c.Sector = nil
			} else {
				c.Sector = &sector
			}
		}

		if seen[c.Ticker] {
			continue
		}
		seen[c.Ticker] = true
		cleaned = append(cleaned, c)
	}
	return cleaned
}

// NormalizeTickers upper-cases and trims the ticker references of child rows
// so they match cleaned companies.
func NormalizeTickers(ds *models.Dataset) {
	norm := func(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
	for i := range ds.StockPrices {
		ds.StockPrices[i].Ticker = norm(ds.StockPrices[i].Ticker)
	}
	for i := range ds.Filings {
		ds.Filings[i].Ticker = norm(ds.Filings[i].Ticker)
	}
	for i := range ds.Incidents {
		ds.Incidents[i].Ticker = norm(ds.Incidents[i].Ticker)
	}
}

// CalculateReturns fills each missing return with the simple change from the
// company's previous close by date. Rows keep their input order so that
// validation issues point at input rows. The first row of each company keeps
// a NULL return, as does any row next to a blank closing price; returns
// already present are kept.
func CalculateReturns(prices []models.StockPrice) []models.StockPrice {
	out := make([]models.StockPrice, len(prices))
	copy(out, prices)

	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		pa, pb := out[order[a]], out[order[b]]
		if pa.Ticker != pb.Ticker {
			return pa.Ticker < pb.Ticker
		}
		return pa.Date.Before(pb.Date)
	})

	for k := 1; k < len(order); k++ {
		cur, prev := &out[order[k]], out[order[k-1]]
		if cur.Returns != nil || prev.Ticker != cur.Ticker {
			continue
		}
		if prev.IsBlank("closing_price") || cur.IsBlank("closing_price") || prev.ClosingPrice <= 0 {
			continue
		}
		r := cur.ClosingPrice/prev.ClosingPrice - 1
		cur.Returns = &r
	}
	return out
}

// DetectCyberMention reports whether text mentions a cybersecurity matter
func DetectCyberMention(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range cyberKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DetectMentions sets CybersecurityMention on filings that carry text. Filings
// without text keep the flag they were given.
func DetectMentions(filings []models.Filing) {
	for i := range filings {
		if filings[i].Text != "" {
			filings[i].CybersecurityMention = DetectCyberMention(filings[i].Text)
		}
	}
}

// ClassifyDisclosureSpeed sets DisclosureSpeed on filings that mention
// cybersecurity and have none. The filing is matched to the company's latest
// incident breached on or before the filing date: a delay of at most
// ImmediateDisclosureDays days is Immediate, a longer one Delayed, and no
// matching incident Unknown.
func ClassifyDisclosureSpeed(filings []models.Filing, incidents []models.Incident) {
	byTicker := make(map[string][]time.Time)
	for _, inc := range incidents {
		byTicker[inc.Ticker] = append(byTicker[inc.Ticker], models.Date(inc.BreachDate))
	}

	for i := range filings {
		f := &filings[i]
		if !f.CybersecurityMention || f.DisclosureSpeed != nil {
			continue
		}

		filed := models.Date(f.FilingDate)
		var latest time.Time
		for _, breach := range byTicker[f.Ticker] {
			if !breach.After(filed) && breach.After(latest) {
				latest = breach
			}
		}

		speed := models.SpeedUnknown
		if !latest.IsZero() {
			speed = models.SpeedDelayed
			if DaysBetween(latest, filed) <= ImmediateDisclosureDays {
				speed = models.SpeedImmediate
			}
		}
		f.DisclosureSpeed = &speed
	}
}

// DaysBetween counts calendar days from a to b
func DaysBetween(a, b time.Time) int {
	return int(models.Date(b).Sub(models.Date(a)).Hours() / 24)
}

// EventWindow returns the prices dated within days calendar days of event,
// ordered by date, marking the row on the event date
func EventWindow(prices []models.StockPrice, event time.Time, days int) []models.WindowPrice {
	event = models.Date(event)
	from, to := event.AddDate(0, 0, -days), event.AddDate(0, 0, days)

	var window []models.WindowPrice
	for _, p := range prices {
		d := models.Date(p.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		window = append(window, models.WindowPrice{StockPrice: p, EventDay: d.Equal(event)})
	}
	sort.SliceStable(window, func(i, j int) bool { return window[i].Date.Before(window[j].Date) })
	return window
}

// Apply runs every transformation over ds in place
func Apply(ds *models.Dataset) {
	ds.Companies = CleanCompanies(ds.Companies)
	NormalizeTickers(ds)
	ds.StockPrices = CalculateReturns(ds.StockPrices)
	DetectMentions(ds.Filings)
	ClassifyDisclosureSpeed(ds.Filings, ds.Incidents)
}
