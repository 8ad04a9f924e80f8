package catalog

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/mmstore/storefront/internal/domain/product"
)

// page is the dummyjson list envelope.
type page struct {
	products []product.Product
	total    int
	skip     int
	limit    int
}

func decodePage(data []byte) (*page, error) {
	d := jx.DecodeBytes(data)
	var p page
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "products":
			return d.Arr(func(d *jx.Decoder) error {
				prod, err := decodeProduct(d)
				if err != nil {
					return err
				}
				p.products = append(p.products, prod)
				return nil
			})
		case "total":
			v, err := d.Int()
			p.total = v
			return err
		case "skip":
			v, err := d.Int()
			p.skip = v
			return err
		case "limit":
			v, err := d.Int()
			p.limit = v
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode product page")
	}
	return &p, nil
}

func decodeProductBytes(data []byte) (*product.Product, error) {
	d := jx.DecodeBytes(data)
	p, err := decodeProduct(d)
	if err != nil {
		return nil, errors.Wrap(err, "decode product")
	}
	return &p, nil
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Int64()
			p.ID = v
			return err
		case "title":
			v, err := d.Str()
			p.Title = v
			return err
		case "brand":
			return decodeOptStr(d, &p.Brand)
		case "category":
			return decodeOptStr(d, &p.Category)
		case "thumbnail":
			return decodeOptStr(d, &p.Thumbnail)
		case "price":
			return decodeDecimal(d, &p.Price)
		case "discountPercentage":
			return decodeDecimal(d, &p.DiscountPercentage)
		case "stock":
			v, err := d.Int()
			p.Stock = v
			return err
		case "rating":
			v, err := d.Float64()
			p.Rating = v
			return err
		default:
			return d.Skip()
		}
	})
	return p, err
}

func decodeOptStr(d *jx.Decoder, dst *string) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	v, err := d.Str()
	*dst = v
	return err
}

// decodeDecimal parses a JSON number into a decimal without a float round
// trip, so "10.99" stays exactly 10.99.
func decodeDecimal(d *jx.Decoder, dst *decimal.Decimal) error {
	n, err := d.Num()
	if err != nil {
		return err
	}
	v, err := decimal.NewFromString(strings.Trim(n.String(), `"`))
	if err != nil {
		return errors.Wrap(err, "parse decimal")
	}
	*dst = v
	return nil
}

// decodeCategories handles both category index shapes: a bare array of slug
// strings, and an array of {slug, name, url} objects.
func decodeCategories(data []byte) ([]Category, error) {
	d := jx.DecodeBytes(data)
	var cats []Category
	err := d.Arr(func(d *jx.Decoder) error {
		switch d.Next() {
		case jx.String:
			slug, err := d.Str()
			if err != nil {
				return err
			}
			cats = append(cats, Category{Slug: slug, Name: slug})
			return nil
		case jx.Object:
			var c Category
			if err := d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "slug":
					v, err := d.Str()
					c.Slug = v
					return err
				case "name":
					v, err := d.Str()
					c.Name = v
					return err
				default:
					return d.Skip()
				}
			}); err != nil {
				return err
			}
			if c.Name == "" {
				c.Name = c.Slug
			}
			cats = append(cats, c)
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode categories")
	}
	return cats, nil
}
