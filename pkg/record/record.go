// Package record defines the three fixed-shape records sampled by the
// emulator (pins, geolocations and users) and the JSON envelopes they are
// shipped in.
//
// Records are transient. They are decoded from a sampled row, serialized into
// a protocol-specific envelope and then discarded.
package record

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Kind identifies a record type.
type Kind string

const (
	KindPin  Kind = "pin"
	KindGeo  Kind = "geo"
	KindUser Kind = "user"
)

// Kinds lists every record kind in the order they are sampled and sent.
var Kinds = []Kind{KindPin, KindGeo, KindUser}

// Time layouts used when stringifying time fields.
const (
	KafkaTimeLayout   = "2006-01-02 15:04:05"
	KinesisTimeLayout = "2006-01-02T15:04:05"
)

var ErrUnknownKind = errors.New("unknown record kind")

// Record is a sampled row of a known kind.
type Record interface {
	Kind() Kind
	// Values returns exactly the fixed field set of the kind. Time fields are
	// formatted with layout.
	Values(layout string) map[string]any
}

// nullColumns records the schema columns that were NULL in the sampled row.
// Values reports them as nil so they serialize as JSON null.
type nullColumns map[string]bool

func (n *nullColumns) set(col string) {
	if *n == nil {
		*n = make(nullColumns)
	}
	(*n)[col] = true
}

func (n nullColumns) apply(values map[string]any) map[string]any {
	for col := range n {
		if _, ok := values[col]; ok {
			values[col] = nil
		}
	}
	return values
}

// Pin is a row of the pin table.
type Pin struct {
	nulls          nullColumns
	Index          int    `mapstructure:"index"`
	UniqueID       string `mapstructure:"unique_id"`
	Title          string `mapstructure:"title"`
	Description    string `mapstructure:"description"`
	PosterName     string `mapstructure:"poster_name"`
	FollowerCount  string `mapstructure:"follower_count"`
	TagList        string `mapstructure:"tag_list"`
	IsImageOrVideo string `mapstructure:"is_image_or_video"`
	ImageSrc       string `mapstructure:"image_src"`
	Downloaded     int    `mapstructure:"downloaded"`
	SaveLocation   string `mapstructure:"save_location"`
	Category       string `mapstructure:"category"`
}

func (p *Pin) Kind() Kind { return KindPin }

func (p *Pin) setNull(col string) { p.nulls.set(col) }

func (p *Pin) Values(_ string) map[string]any {
	return p.nulls.apply(map[string]any{
		"index":             p.Index,
		"unique_id":         p.UniqueID,
		"title":             p.Title,
		"description":       p.Description,
		"poster_name":       p.PosterName,
		"follower_count":    p.FollowerCount,
		"tag_list":          p.TagList,
		"is_image_or_video": p.IsImageOrVideo,
		"image_src":         p.ImageSrc,
		"downloaded":        p.Downloaded,
		"save_location":     p.SaveLocation,
		"category":          p.Category,
	})
}

// Geo is a row of the geolocation table.
type Geo struct {
	nulls     nullColumns
	Timestamp time.Time `mapstructure:"timestamp"`
	Country   string    `mapstructure:"country"`
	Ind       int       `mapstructure:"ind"`
	Latitude  float64   `mapstructure:"latitude"`
	Longitude float64   `mapstructure:"longitude"`
}

func (g *Geo) Kind() Kind { return KindGeo }

func (g *Geo) setNull(col string) { g.nulls.set(col) }

func (g *Geo) Values(layout string) map[string]any {
	return g.nulls.apply(map[string]any{
		"ind":       g.Ind,
		"timestamp": g.Timestamp.Format(layout),
		"latitude":  g.Latitude,
		"longitude": g.Longitude,
		"country":   g.Country,
	})
}

// User is a row of the user table.
type User struct {
	nulls      nullColumns
	DateJoined time.Time `mapstructure:"date_joined"`
	FirstName  string    `mapstructure:"first_name"`
	LastName   string    `mapstructure:"last_name"`
	Ind        int       `mapstructure:"ind"`
	Age        int       `mapstructure:"age"`
}

func (u *User) Kind() Kind { return KindUser }

func (u *User) setNull(col string) { u.nulls.set(col) }

func (u *User) Values(layout string) map[string]any {
	return u.nulls.apply(map[string]any{
		"ind":         u.Ind,
		"first_name":  u.FirstName,
		"last_name":   u.LastName,
		"age":         u.Age,
		"date_joined": u.DateJoined.Format(layout),
	})
}

// New returns an empty record of kind k.
func New(k Kind) (Record, error) {
	switch k {
	case KindPin:
		return &Pin{}, nil
	case KindGeo:
		return &Geo{}, nil
	case KindUser:
		return &User{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
}

// Decode decodes a sampled row into a record of kind k. Columns outside the
// kind's schema are ignored. Numeric and time columns delivered as text (or
// raw bytes) are converted. NULL columns stay null in Values.
func Decode(k Kind, row map[string]any) (Record, error) {
	rec, err := New(k)
	if err != nil {
		return nil, err
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			bytesToStringHook,
			mapstructure.StringToTimeHookFunc(KafkaTimeLayout),
		),
		WeaklyTypedInput: true,
		Result:           rec,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s decoder: %w", k, err)
	}

	if err := dec.Decode(row); err != nil {
		return nil, fmt.Errorf("failed to decode %s row: %w", k, err)
	}

	if n, ok := rec.(interface{ setNull(string) }); ok {
		for col, v := range row {
			if v == nil {
				n.setNull(col)
			}
		}
	}
	return rec, nil
}

func bytesToStringHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if b, ok := data.([]byte); ok && to.Kind() != reflect.Slice {
		return string(b), nil
	}
	return data, nil
}
