package extract

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/atlas/internal/model"
)

// Contract reads field values out of extraction responses.
type Contract struct {
	extractor Extractor
}

// NewContract creates a Contract over extractor.
func NewContract(extractor Extractor) *Contract {
	return &Contract{extractor: extractor}
}

// Extract sends instruction and returns the "data" member of the response.
// Extraction failures and missing data yield the empty value. For
// products_services the sibling "type" member is kept, producing an object
// {data, type} whenever data itself is non-empty.
func (c *Contract) Extract(ctx context.Context, field model.FieldName, instruction string) model.Value {
	obj, err := c.extractor.ExtractJSON(ctx, instruction)
	if err != nil {
		zap.L().Warn("extract: extraction failed",
			zap.String("field", string(field)),
			zap.Error(err),
		)
		return model.Value{}
	}

	data := model.FromAny(obj["data"])
	if field == model.FieldProductsServices {
		if kind, ok := obj["type"]; ok && !data.Falsy() {
			return model.Object(map[string]model.Value{
				"data": data,
				"type": model.FromAny(kind),
			})
		}
	}
	return data
}

// Payload returns the part of a cleaned value that decides acceptance: the
// data member of a products_services {data, type} object, else v itself.
func Payload(field model.FieldName, v model.Value) model.Value {
	if field != model.FieldProductsServices || v.Kind != model.KindObject {
		return v
	}
	if keys := v.Keys(); len(keys) == 2 && keys[0] == "data" && keys[1] == "type" {
		return v.Get("data")
	}
	return v
}
