package field

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/syssam/pgoose/dialect"
)

// Keyword is an SQL keyword that is written into the statement text
// instead of being bound as an argument.
type Keyword string

// SQL keywords produced by the Boolean type.
const (
	True  Keyword = "TRUE"
	False Keyword = "FALSE"
)

// SQLLiteral returns the keyword text.
func (k Keyword) SQLLiteral() string { return string(k) }

// DateLayout is the layout Date values are written with.
const DateLayout = "2006-01-02 15:04:05-07:00"

// dateLayouts are tried in order when parsing a Date read back as text.
var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999Z07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func sameType(name string) map[string]string {
	return map[string]string{dialect.Postgres: name}
}

func init() {
	for _, t := range []*Type{
		{
			Name: TypeString,
			Columns: map[string]string{
				dialect.Postgres: "varchar(255)",
				dialect.MySQL:    "varchar(255)",
				dialect.SQLite:   "varchar(255)",
			},
			Catalog: map[string]string{
				dialect.Postgres: "character varying",
				dialect.MySQL:    "varchar",
				dialect.SQLite:   "varchar(255)",
			},
			Encode: encodeString(StringLimit),
			Decode: decodeString,
		},
		{
			Name:    TypeText,
			Columns: sameType("text"),
			Encode:  encodeString(0),
			Decode:  decodeString,
		},
		{
			Name:    TypeNumber,
			Columns: map[string]string{dialect.Postgres: "real", dialect.MySQL: "double"},
			Encode: func(v any) (any, error) {
				f, err := toFloat(v)
				if err != nil {
					return nil, mismatch(TypeNumber, v, err)
				}
				return f, nil
			},
			Decode: func(v any) (any, error) {
				f, err := toFloat(v)
				if err != nil {
					return nil, mismatch(TypeNumber, v, err)
				}
				return f, nil
			},
		},
		{
			Name:    TypeBigNumber,
			Columns: map[string]string{dialect.Postgres: "numeric", dialect.MySQL: "decimal(65,30)"},
			Catalog: map[string]string{dialect.Postgres: "numeric", dialect.MySQL: "decimal"},
			Encode: func(v any) (any, error) {
				d, err := toDecimal(v)
				if err != nil {
					return nil, mismatch(TypeBigNumber, v, err)
				}
				return d.String(), nil
			},
			Decode: func(v any) (any, error) {
				d, err := toDecimal(v)
				if err != nil {
					return nil, mismatch(TypeBigNumber, v, err)
				}
				return d, nil
			},
		},
		{
			Name:    TypeBoolean,
			Columns: sameType("boolean"),
			Catalog: map[string]string{dialect.Postgres: "boolean", dialect.MySQL: "tinyint"},
			Encode: func(v any) (any, error) {
				b, err := toBool(v)
				if err != nil {
					return nil, mismatch(TypeBoolean, v, err)
				}
				if b {
					return True, nil
				}
				return False, nil
			},
			Decode: func(v any) (any, error) {
				b, err := toBool(v)
				if err != nil {
					return nil, mismatch(TypeBoolean, v, err)
				}
				return b, nil
			},
		},
		{
			Name: TypeDate,
			Columns: map[string]string{
				dialect.Postgres: "timestamp with time zone",
				dialect.MySQL:    "datetime",
				dialect.SQLite:   "datetime",
			},
			Encode: func(v any) (any, error) {
				t, err := toTime(v)
				if err != nil {
					return nil, mismatch(TypeDate, v, err)
				}
				return t.Format(DateLayout), nil
			},
			Decode: func(v any) (any, error) {
				t, err := toTime(v)
				if err != nil {
					return nil, mismatch(TypeDate, v, err)
				}
				return t, nil
			},
		},
		{
			Name:    TypeJSON,
			Columns: sameType("json"),
			Encode:  encodeJSON,
			Decode:  decodeJSON,
		},
		{
			Name:    TypeJSONB,
			Columns: map[string]string{dialect.Postgres: "jsonb", dialect.MySQL: "json"},
			Encode:  encodeJSON,
			Decode:  decodeJSON,
		},
		{
			Name: TypeUUID,
			Columns: map[string]string{
				dialect.Postgres: "uuid",
				dialect.MySQL:    "char(36)",
				dialect.SQLite:   "uuid",
			},
			Catalog: map[string]string{dialect.MySQL: "char", dialect.Postgres: "uuid"},
			Encode: func(v any) (any, error) {
				u, err := toUUID(v)
				if err != nil {
					return nil, mismatch(TypeUUID, v, err)
				}
				return u.String(), nil
			},
			Decode: func(v any) (any, error) {
				u, err := toUUID(v)
				if err != nil {
					return nil, mismatch(TypeUUID, v, err)
				}
				return u, nil
			},
		},
		{
			Name:    TypeID,
			Columns: map[string]string{dialect.Postgres: "integer", dialect.MySQL: "int"},
			Encode: func(v any) (any, error) {
				n, err := toInt64(v)
				if err != nil {
					return nil, mismatch(TypeID, v, err)
				}
				return n, nil
			},
			Decode: func(v any) (any, error) {
				n, err := toInt64(v)
				if err != nil {
					return nil, mismatch(TypeID, v, err)
				}
				return n, nil
			},
		},
	} {
		MustRegister(t)
	}
}

func encodeString(limit int) func(any) (any, error) {
	return func(v any) (any, error) {
		var s string
		switch v := v.(type) {
		case string:
			s = v
		case []byte:
			s = string(v)
		case fmt.Stringer:
			s = v.String()
		default:
			s = fmt.Sprint(v)
		}
		if limit > 0 {
			s = truncate(s, limit)
		}
		return s, nil
	}
}

func decodeString(v any) (any, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// truncate clips s to n characters.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

var errNotNumeric = errors.New("not a numeric value")

func toFloat(v any) (float64, error) {
	switch v := v.(type) {
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
	case json.Number:
		return v.Float64()
	case decimal.Decimal:
		f, _ := v.Float64()
		return f, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	return 0, errNotNumeric
}

func toInt64(v any) (int64, error) {
	switch v := v.(type) {
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
	case json.Number:
		return v.Int64()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
			return 0, fmt.Errorf("%v is not an integer", f)
		}
		return int64(f), nil
	}
	return 0, errNotNumeric
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch v := v.(type) {
	case decimal.Decimal:
		return v, nil
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, errNotNumeric
		}
		return *v, nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	case []byte:
		return decimal.NewFromString(strings.TrimSpace(string(v)))
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	}
	n, err := toInt64(v)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromInt(n), nil
}

func toBool(v any) (bool, error) {
	switch v := v.(type) {
	case bool:
		return v, nil
	case Keyword:
		return strconv.ParseBool(string(v))
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	case []byte:
		return strconv.ParseBool(strings.TrimSpace(string(v)))
	}
	n, err := toInt64(v)
	if err != nil {
		return false, err
	}
	return n != 0, nil
}

func toTime(v any) (time.Time, error) {
	switch v := v.(type) {
	case time.Time:
		return v.UTC().Truncate(time.Second), nil
	case *time.Time:
		if v == nil {
			return time.Time{}, errors.New("nil time")
		}
		return v.UTC().Truncate(time.Second), nil
	case string:
		return parseTime(v)
	case []byte:
		return parseTime(string(v))
	case int64:
		return time.Unix(v, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unsupported date value %T", v)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Second), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func encodeJSON(v any) (any, error) {
	switch v := v.(type) {
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, mismatch(TypeJSON, v, errors.New("invalid json document"))
		}
		return string(v), nil
	case []byte:
		if json.Valid(v) {
			return string(v), nil
		}
	case string:
		// Strings already holding a document are stored verbatim.
		if json.Valid([]byte(v)) {
			return v, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, mismatch(TypeJSON, v, err)
	}
	return string(b), nil
}

func decodeJSON(v any) (any, error) {
	var raw []byte
	switch v := v.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return v, nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, mismatch(TypeJSON, v, err)
	}
	return out, nil
}

func toUUID(v any) (uuid.UUID, error) {
	switch v := v.(type) {
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case string:
		return uuid.Parse(v)
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.ParseBytes(v)
	case fmt.Stringer:
		return uuid.Parse(v.String())
	}
	return uuid.Nil, fmt.Errorf("unsupported uuid value %T", v)
}
