package memory

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// normalize round-trips v through BSON so stored values and filter values
// share one representation.
func normalize(v interface{}) (bson.M, error) {
	if v == nil {
		return bson.M{}, nil
	}
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("memory: marshal: %w", err)
	}
	out := bson.M{}
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("memory: unmarshal: %w", err)
	}
	return out, nil
}

func matches(doc, filter bson.M) bool {
	for k, want := range filter {
		if k == "$or" {
			ok := false
			for _, clause := range asArray(want) {
				sub, isDoc := asDoc(clause)
				if isDoc && matches(doc, sub) {
					ok = true
					break
				}
			}
			if !ok {
				return false
			}
			continue
		}
		got, found := lookup(doc, k)
		if !found {
			if want == nil {
				continue
			}
			return false
		}
		if !equal(got, want) {
			return false
		}
	}
	return true
}

func equal(a, b interface{}) bool {
	if na, ok := number(a); ok {
		if nb, ok := number(b); ok {
			return na == nb
		}
	}
	return reflect.DeepEqual(a, b)
}

func lookup(doc bson.M, path string) (interface{}, bool) {
	var cur interface{} = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := asDoc(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func setPath(doc bson.M, path string, v interface{}) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := asDoc(cur[part])
		if !ok {
			next = bson.M{}
		}
		cur[part] = next
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

func deletePath(doc bson.M, path string) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := asDoc(cur[part])
		if !ok {
			return
		}
		cur[part] = next
		cur = next
	}
	delete(cur, parts[len(parts)-1])
}

// asDoc views v as a mutable map when it is any kind of document.
func asDoc(v interface{}) (bson.M, bool) {
	switch d := v.(type) {
	case bson.M:
		return d, true
	case map[string]interface{}:
		return bson.M(d), true
	case bson.D:
		m := bson.M{}
		for _, e := range d {
			m[e.Key] = e.Value
		}
		return m, true
	}
	return nil, false
}

func asArray(v interface{}) []interface{} {
	switch a := v.(type) {
	case nil:
		return nil
	case bson.A:
		return []interface{}(a)
	case []interface{}:
		return a
	}
	return []interface{}{v}
}

func copyDoc(d bson.M) bson.M {
	out := make(bson.M, len(d))
	for k, v := range d {
		if sub, ok := asDoc(v); ok {
			out[k] = copyDoc(sub)
			continue
		}
		if arr, ok := v.(bson.A); ok {
			out[k] = append(bson.A(nil), arr...)
			continue
		}
		out[k] = v
	}
	return out
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func truthy(v interface{}) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	if n, ok := number(v); ok {
		return n != 0
	}
	return v != nil
}

func truthyNegative(v interface{}) bool {
	n, ok := number(v)
	return ok && n < 0
}

// compare orders two field values. Missing values sort first.
func compare(a, b interface{}) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if na, ok := number(a); ok {
		if nb, ok := number(b); ok {
			switch {
			case na < nb:
				return -1
			case na > nb:
				return 1
			}
			return 0
		}
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case primitive.DateTime:
		if y, ok := b.(primitive.DateTime); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	case primitive.ObjectID:
		if y, ok := b.(primitive.ObjectID); ok {
			return bytes.Compare(x[:], y[:])
		}
	case bool:
		if y, ok := b.(bool); ok && x != y {
			if !x {
				return -1
			}
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
