// Package validate checks dataset rows before they reach the database. Row
// rules mirror the table CHECK constraints; plausibility rules only warn.
package validate

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tordrt/cyberdisclosure/internal/models"
	"github.com/tordrt/cyberdisclosure/internal/schema"
)

// Plausibility bounds; rows beyond them are loaded but reported.
const (
	MaxPlausiblePrice  = 10000
	MaxPlausibleVolume = 1e12
	MaxPlausibleReturn = 1

	// MaxMissingPriceRatio is the share of blank closing prices above which
	// the price dataset gets a warning.
	MaxMissingPriceRatio = 0.05
)

// Issue is a single problem found in a dataset. Row is the zero-based row
// index, or -1 for problems that concern the dataset as a whole.
type Issue struct {
	Dataset string
	Row     int
	Field   string
	Message string
}

func (i Issue) String() string {
	switch {
	case i.Row < 0:
		return i.Message
	case i.Field == "":
		return fmt.Sprintf("row %d: %s", i.Row+1, i.Message)
	default:
		return fmt.Sprintf("row %d: %s %s", i.Row+1, i.Field, i.Message)
	}
}

// Validator validates rows using struct tags
type Validator struct {
	v *validator.Validate
}

// New returns a Validator reporting fields by their column names
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("db"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Company validates one company row
func (v *Validator) Company(row int, c models.Company) []Issue {
	return v.structIssues(schema.TableCompanies, row, c)
}

// StockPrice validates one price row. A column left blank in the input is
// reported as required instead of by the range rule its zero value breaks.
func (v *Validator) StockPrice(row int, p models.StockPrice) []Issue {
	issues := v.structIssues(schema.TableStockPrices, row, p)
	if len(p.Blank) == 0 {
		return issues
	}

	kept := issues[:0]
	for _, issue := range issues {
		if !p.IsBlank(issue.Field) {
			kept = append(kept, issue)
		}
	}
	for _, column := range p.Blank {
		kept = append(kept, Issue{Dataset: schema.TableStockPrices, Row: row, Field: column, Message: "is required"})
	}
	return kept
}

// Filing validates one filing row
func (v *Validator) Filing(row int, f models.Filing) []Issue {
	return v.structIssues(schema.TableSECFilings, row, f)
}

// Incident validates one incident row
func (v *Validator) Incident(row int, inc models.Incident) []Issue {
	return v.structIssues(schema.TableIncidents, row, inc)
}

func (v *Validator) structIssues(dataset string, row int, s any) []Issue {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []Issue{{Dataset: dataset, Row: row, Message: err.Error()}}
	}

	issues := make([]Issue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, Issue{Dataset: dataset, Row: row, Field: fe.Field(), Message: describe(fe)})
	}
	return issues
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "alpha", "uppercase":
		return "must contain only uppercase letters"
	case "excludesall":
		return fmt.Sprintf("must not contain any of %q", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gtefield":
		return fmt.Sprintf("must not be before %s", snakeCase(fe.Param()))
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// snakeCase maps a Go field name to its column name, e.g. BreachDate -> breach_date
func snakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// priceWarnings flags values that satisfy the constraints but are unlikely
func priceWarnings(row int, p models.StockPrice) []Issue {
	var issues []Issue
	if p.ClosingPrice >= MaxPlausiblePrice {
		issues = append(issues, Issue{Dataset: schema.TableStockPrices, Row: row, Field: "closing_price",
			Message: fmt.Sprintf("%.2f is implausibly high", p.ClosingPrice)})
	}
	if float64(p.TradingVolume) >= MaxPlausibleVolume {
		issues = append(issues, Issue{Dataset: schema.TableStockPrices, Row: row, Field: "trading_volume",
			Message: fmt.Sprintf("%d is implausibly high", p.TradingVolume)})
	}
	if p.Returns != nil && math.Abs(*p.Returns) > MaxPlausibleReturn {
		issues = append(issues, Issue{Dataset: schema.TableStockPrices, Row: row, Field: "returns",
			Message: fmt.Sprintf("daily return %.4f exceeds 100%%", *p.Returns)})
	}
	return issues
}
