package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const singleObject = "application/vnd.pgrst.object+json"

// Query is a request against one table. Filters accumulate; a query is
// executed once with Get, Insert, Update or Delete.
type Query struct {
	c      *Client
	table  string
	params url.Values
	orders []string
	single bool
}

func (c *Client) From(table string) *Query {
	return &Query{c: c, table: table, params: url.Values{}}
}

// Select sets the column list. Related tables are embedded with the
// alias:fk(columns) form, e.g. "*,product:product_id(product_id,title)".
func (q *Query) Select(columns string) *Query {
	q.params.Set("select", compactSelect(columns))
	return q
}

func (q *Query) Eq(column string, value any) *Query {
	q.params.Add(column, "eq."+fmt.Sprint(value))
	return q
}

func (q *Query) Neq(column string, value any) *Query {
	q.params.Add(column, "neq."+fmt.Sprint(value))
	return q
}

func (q *Query) Is(column string, value string) *Query {
	q.params.Add(column, "is."+value)
	return q
}

// ILike filters by a case-insensitive pattern; * is the wildcard.
func (q *Query) ILike(column, pattern string) *Query {
	q.params.Add(column, "ilike."+pattern)
	return q
}

// Or adds a disjunction of filters written as "col.op.value,col.op.value".
func (q *Query) Or(filters string) *Query {
	q.params.Add("or", "("+filters+")")
	return q
}

func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.orders = append(q.orders, column+"."+dir)
	return q
}

func (q *Query) Limit(n int) *Query {
	q.params.Set("limit", strconv.Itoa(n))
	return q
}

// Single expects exactly one row. Zero rows fail with CodeNoRows.
func (q *Query) Single() *Query {
	q.single = true
	return q
}

func (q *Query) Get(ctx context.Context, dst any) error {
	resp, err := q.c.do(ctx, q.request(http.MethodGet, nil, ""))
	if err != nil {
		return err
	}
	return decodeInto(resp, dst)
}

// Insert posts rows (a struct, map or slice). When dst is nil the inserted
// representation is not requested.
func (q *Query) Insert(ctx context.Context, rows any, dst any) error {
	resp, err := q.c.do(ctx, q.request(http.MethodPost, rows, preferReturn(dst)))
	if err != nil {
		return err
	}
	return decodeInto(resp, dst)
}

func (q *Query) Update(ctx context.Context, patch any, dst any) error {
	resp, err := q.c.do(ctx, q.request(http.MethodPatch, patch, preferReturn(dst)))
	if err != nil {
		return err
	}
	return decodeInto(resp, dst)
}

func (q *Query) Delete(ctx context.Context) error {
	_, err := q.c.do(ctx, q.request(http.MethodDelete, nil, "return=minimal"))
	return err
}

func (q *Query) request(method string, body any, prefer string) request {
	params := url.Values{}
	for k, v := range q.params {
		params[k] = append([]string(nil), v...)
	}
	if len(q.orders) > 0 {
		params.Set("order", strings.Join(q.orders, ","))
	}

	header := http.Header{}
	if q.single {
		header.Set("Accept", singleObject)
	}
	if prefer != "" {
		header.Set("Prefer", prefer)
	}

	return request{
		method: method,
		path:   "/rest/v1/" + q.table,
		query:  params,
		header: header,
		body:   body,
	}
}

func preferReturn(dst any) string {
	if dst == nil {
		return "return=minimal"
	}
	return "return=representation"
}

func compactSelect(columns string) string {
	return strings.Join(strings.Fields(columns), "")
}
