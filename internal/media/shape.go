package media

import (
	"encoding/json"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// SummaryFields are the only media list fields exposed to browsers, in output order.
var SummaryFields = []string{"id", "key", "title", "description", "thumbnail", "status", "duration", "totalViews"}

// DetailFields are the media detail fields exposed to browsers, in output order.
// videoWidth and videoHeight are derived by ResolveDimensions; download and
// progressive are consumed but never passed on.
var DetailFields = []string{"id", "key", "title", "description", "thumbnail", "status", "duration", "videoWidth", "videoHeight"}

// ShapeSummary keeps the SummaryFields present in a media list item and drops everything else.
func ShapeSummary(raw []byte) json.RawMessage {
	item := gjson.ParseBytes(raw)
	out := []byte(`{}`)
	for _, field := range SummaryFields {
		v := item.Get(field)
		if !v.Exists() {
			continue
		}
		out = setRaw(out, field, v.Raw)
	}
	return out
}

// ShapeSummaries shapes every item of a JSON array. Anything that is not an array yields an empty list.
func ShapeSummaries(items gjson.Result) []json.RawMessage {
	out := []json.RawMessage{}
	if !items.IsArray() {
		return out
	}
	for _, item := range items.Array() {
		if !item.IsObject() {
			continue
		}
		out = append(out, ShapeSummary([]byte(item.Raw)))
	}
	return out
}

// ShapeDetail builds the browser-facing detail object. Every DetailFields key is
// present; values missing upstream are null.
func ShapeDetail(raw []byte, dims Dimensions) json.RawMessage {
	detail := gjson.ParseBytes(raw)
	out := []byte(`{}`)
	for _, field := range DetailFields {
		value := "null"
		switch field {
		case "videoWidth":
			if dims.Resolved() {
				value = strconv.Itoa(dims.Width)
			}
		case "videoHeight":
			if dims.Resolved() {
				value = strconv.Itoa(dims.Height)
			}
		default:
			if v := detail.Get(field); v.Exists() {
				value = v.Raw
			}
		}
		out = setRaw(out, field, value)
	}
	return out
}

func setRaw(doc []byte, field, raw string) []byte {
	next, err := sjson.SetRawBytes(doc, field, []byte(raw))
	if err != nil {
		return doc
	}
	return next
}
