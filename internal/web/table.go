package web

import (
	"net/url"
	"sort"
	"strings"

	"certdash/internal/domain"
)

const (
	ViewGraphs = "graphs"
	ViewTable  = "table"

	SortDate         = "date"
	SortName         = "name"
	SortTopic        = "topic"
	SortOrganization = "organization"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// tableState is the table view's query string: sort key, order and filter.
type tableState struct {
	Sort  string
	Order string
	Query string
}

func parseView(v string) string {
	if strings.EqualFold(strings.TrimSpace(v), ViewTable) {
		return ViewTable
	}
	return ViewGraphs
}

// parseTableState falls back to file order (date asc) for unknown keys.
func parseTableState(q url.Values) tableState {
	st := tableState{Sort: SortDate, Order: OrderAsc, Query: strings.TrimSpace(q.Get("q"))}
	switch key := strings.ToLower(q.Get("sort")); key {
	case SortDate, SortName, SortTopic, SortOrganization:
		st.Sort = key
	}
	if strings.EqualFold(q.Get("order"), OrderDesc) {
		st.Order = OrderDesc
	}
	return st
}

func (st tableState) values() url.Values {
	v := url.Values{}
	v.Set("view", ViewTable)
	v.Set("sort", st.Sort)
	v.Set("order", st.Order)
	if st.Query != "" {
		v.Set("q", st.Query)
	}
	return v
}

func (st tableState) href() string {
	return "/?" + st.values().Encode()
}

// FilterRows keeps rows whose title, topic, organization or month contain q,
// case-insensitively. An empty q keeps every row.
func FilterRows(rows []domain.DisplayRow, q string) []domain.DisplayRow {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return rows
	}
	var out []domain.DisplayRow
	for _, r := range rows {
		for _, field := range []string{r.Title, r.Topic, r.Organization, r.Month} {
			if strings.Contains(strings.ToLower(field), q) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// SortRows returns a sorted copy. Equal keys keep their file order, in both
// directions.
func SortRows(rows []domain.DisplayRow, key, order string) []domain.DisplayRow {
	out := make([]domain.DisplayRow, len(rows))
	copy(out, rows)

	field := func(r domain.DisplayRow) string {
		switch key {
		case SortName:
			return strings.ToLower(r.Title)
		case SortTopic:
			return strings.ToLower(r.Topic)
		case SortOrganization:
			return strings.ToLower(r.Organization)
		default:
			return r.Month
		}
	}
	desc := order == OrderDesc
	sort.SliceStable(out, func(i, j int) bool {
		a, b := field(out[i]), field(out[j])
		if desc {
			return a > b
		}
		return a < b
	})
	return out
}

type column struct {
	Label  string
	Href   string
	Active bool
	Order  string
}

// columns links each header to its sort; the active column's link flips the
// order.
func columns(st tableState) []column {
	defs := []struct{ label, key string }{
		{"Date", SortDate},
		{"Name", SortName},
		{"Topic", SortTopic},
		{"Organization", SortOrganization},
	}
	cols := make([]column, len(defs))
	for i, def := range defs {
		next := tableState{Sort: def.key, Order: OrderAsc, Query: st.Query}
		active := st.Sort == def.key
		if active && st.Order == OrderAsc {
			next.Order = OrderDesc
		}
		cols[i] = column{Label: def.label, Href: next.href(), Active: active, Order: st.Order}
	}
	return cols
}
