package tushare

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
)

// Response is the tabular payload of a successful call.
type Response struct {
	RequestID string
	Fields    []string
	Rows      []Row
	HasMore   bool
	raw       []byte
}

// Bytes returns the response body the Response was parsed from.
func (r *Response) Bytes() []byte { return r.raw }

// Len returns the number of rows.
func (r *Response) Len() int { return len(r.Rows) }

// Parse decodes a response body. A non-zero code yields an *Error.
func Parse(body []byte) (*Response, error) {
	if !gjson.ValidBytes(body) {
		return nil, eris.New("tushare: response is not valid json")
	}
	doc := gjson.ParseBytes(body)

	if code := doc.Get("code").Int(); code != 0 {
		return nil, &Error{Code: int(code), Msg: doc.Get("msg").String()}
	}

	out := &Response{
		RequestID: doc.Get("request_id").String(),
		HasMore:   doc.Get("data.has_more").Bool(),
		raw:       body,
	}

	index := make(map[string]int)
	for i, f := range doc.Get("data.fields").Array() {
		out.Fields = append(out.Fields, f.String())
		index[f.String()] = i
	}
	for _, item := range doc.Get("data.items").Array() {
		out.Rows = append(out.Rows, Row{index: index, cells: item.Array()})
	}
	return out, nil
}

// Row is one item of a response. Cells may be strings, numbers or null.
type Row struct {
	index map[string]int
	cells []gjson.Result
}

func (r Row) cell(name string) (gjson.Result, bool) {
	i, ok := r.index[name]
	if !ok || i >= len(r.cells) {
		return gjson.Result{}, false
	}
	c := r.cells[i]
	if c.Type == gjson.Null {
		return gjson.Result{}, false
	}
	return c, true
}

// String returns the named cell as text, or "" when absent or null.
func (r Row) String(name string) string {
	c, ok := r.cell(name)
	if !ok {
		return ""
	}
	return c.String()
}

// Float returns the named cell as a number. Numeric strings are accepted;
// anything else reports false.
func (r Row) Float(name string) (float64, bool) {
	c, ok := r.cell(name)
	if !ok {
		return 0, false
	}
	switch c.Type {
	case gjson.Number:
		return c.Float(), true
	case gjson.String:
		f, err := strconv.ParseFloat(c.Str, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
