package domain

import (
	"fmt"
	"strings"
	"time"
)

// InputDateFormat is the month-year layout used by the Date column ("Jan-23").
const InputDateFormat = "Jan-06"

// MonthFormat is the layout used for display rows and JSON month keys.
const MonthFormat = "2006-01"

type CertificateRecord struct {
	Name         string
	Date         time.Time // first day of the month, UTC
	Group        string
	Organization string
	Link         string // empty when the certificate has no public link
	NameLink     string // "[Name](Link)" when Link is set, else Name
	Row          int    // CSV line the record was read from
}

// NameWithLink returns the markdown-or-plain name used by the table.
func NameWithLink(name, link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return name
	}
	return fmt.Sprintf("[%s](%s)", name, link)
}

type MonthPoint struct {
	Month      time.Time `json:"-"`
	Label      string    `json:"month"`
	Count      int       `json:"count"`
	Cumulative int       `json:"cumulative"`
}

type CategoryCount struct {
	Label string  `json:"label"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
	Major bool    `json:"major"`
}

type DisplayRow struct {
	Month        string `json:"date"`
	Name         string `json:"name"`
	Title        string `json:"title"`
	Link         string `json:"link,omitempty"`
	Topic        string `json:"topic"`
	Organization string `json:"organization"`
}

type Summary struct {
	Total  int       `json:"total"`
	Years  int       `json:"years"`
	Months int       `json:"months"`
	First  time.Time `json:"first"`
}

// Headline reads "N Certificates over Y Years and M Months".
func (s Summary) Headline() string {
	return fmt.Sprintf("%d Certificates over %d Years and %d Months", s.Total, s.Years, s.Months)
}

// Profile is the owner block shown above the dashboard.
type Profile struct {
	Title    string `json:"title"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	Source   string `json:"source_url,omitempty"`
}
