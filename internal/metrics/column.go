package metrics

import "github.com/sells-group/finmetrics/internal/model"

// Column is one field across a company's rows. All operations are
// elementwise and propagate missing values.
type Column []model.Value

// Sub returns a - b.
func Sub(a, b Column) Column {
	out := make(Column, len(a))
	for i := range a {
		if a[i].Valid && b[i].Valid {
			out[i] = model.Some(a[i].Float - b[i].Float)
		}
	}
	return out
}

// Div returns a / b. A zero or missing denominator yields missing.
func Div(a, b Column) Column {
	out := make(Column, len(a))
	for i := range a {
		if a[i].Valid && b[i].Valid && b[i].Float != 0 {
			out[i] = model.Some(a[i].Float / b[i].Float)
		}
	}
	return out
}

// Scale multiplies every present value by k.
func Scale(a Column, k float64) Column {
	out := make(Column, len(a))
	for i, v := range a {
		if v.Valid {
			out[i] = model.Some(v.Float * k)
		}
	}
	return out
}

// FillMissing replaces missing values with f.
func FillMissing(a Column, f float64) Column {
	out := make(Column, len(a))
	for i, v := range a {
		if v.Valid {
			out[i] = v
		} else {
			out[i] = model.Some(f)
		}
	}
	return out
}

// Field extracts one field from every record.
func Field(recs []model.MergedRecord, key string) Column {
	out := make(Column, len(recs))
	for i, r := range recs {
		out[i] = r.Value(key)
	}
	return out
}

// FirstPresent returns the column for the first key present in any record,
// and the key used. With no key present it returns an all-missing column and
// an empty key.
func FirstPresent(recs []model.MergedRecord, keys ...string) (Column, string) {
	for _, k := range keys {
		for _, r := range recs {
			if r.Has(k) {
				return Field(recs, k), k
			}
		}
	}
	return make(Column, len(recs)), ""
}
